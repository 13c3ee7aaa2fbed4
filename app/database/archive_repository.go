package database

import (
	"database/sql"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var _ ArchiveRepository = (*SQLArchiveRepository)(nil)

// SQLArchiveRepository is the sqlite-backed archive index.
type SQLArchiveRepository struct {
	db *DB
	sb sq.StatementBuilderType
}

func NewArchiveRepository(db *DB) *SQLArchiveRepository {
	return &SQLArchiveRepository{
		db: db,
		sb: sq.StatementBuilder.PlaceholderFormat(sq.Question),
	}
}

// Register inserts entries that are not yet present. Already-registered
// article ids are skipped, so re-running a pipeline over the same snapshot is
// harmless. Returns the number of newly inserted rows.
func (r *SQLArchiveRepository) Register(entries []ArchiveEntry) (int, error) {
	if len(entries) == 0 {
		return 0, nil
	}

	builder := r.sb.Insert("archive_entries").
		Options("OR IGNORE").
		Columns("article_id", "url", "source_domain", "date_bucket", "status")

	for _, e := range entries {
		status := e.Status
		if status == "" {
			status = ArchiveStatusPending
		}
		builder = builder.Values(e.ArticleID, e.URL, e.SourceDomain, e.DateBucket, status)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return 0, fmt.Errorf("failed to build insert: %w", err)
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("failed to register archive entries: %w", err)
	}

	inserted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}

	return int(inserted), nil
}

// GetPending returns entries awaiting PDF archival, oldest first.
func (r *SQLArchiveRepository) GetPending(limit int) ([]ArchiveEntry, error) {
	builder := r.sb.Select("article_id", "url", "source_domain", "date_bucket", "status", "pdf_key", "created_at", "uploaded_at").
		From("archive_entries").
		Where(sq.Eq{"status": ArchiveStatusPending}).
		OrderBy("created_at ASC")
	if limit > 0 {
		builder = builder.Limit(uint64(limit))
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build select: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pending entries: %w", err)
	}
	defer rows.Close()

	var entries []ArchiveEntry
	for rows.Next() {
		var e ArchiveEntry
		var uploadedAt sql.NullTime
		if err := rows.Scan(&e.ArticleID, &e.URL, &e.SourceDomain, &e.DateBucket, &e.Status, &e.PDFKey, &e.CreatedAt, &uploadedAt); err != nil {
			return nil, fmt.Errorf("failed to scan archive entry: %w", err)
		}
		if uploadedAt.Valid {
			e.UploadedAt = &uploadedAt.Time
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// MarkUploaded records a completed PDF upload for an article.
func (r *SQLArchiveRepository) MarkUploaded(articleID, pdfKey string) error {
	query, args, err := r.sb.Update("archive_entries").
		Set("status", ArchiveStatusUploaded).
		Set("pdf_key", pdfKey).
		Set("uploaded_at", time.Now().UTC()).
		Where(sq.Eq{"article_id": articleID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("failed to build update: %w", err)
	}

	result, err := r.db.Exec(query, args...)
	if err != nil {
		return fmt.Errorf("failed to mark entry uploaded: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("archive entry not found: %s", articleID)
	}

	return nil
}

// CountByStatus returns entry counts grouped by status.
func (r *SQLArchiveRepository) CountByStatus() (map[string]int, error) {
	query, args, err := r.sb.Select("status", "COUNT(*)").
		From("archive_entries").
		GroupBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("failed to build count query: %w", err)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to count archive entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[string]int)
	for rows.Next() {
		var status string
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("failed to scan count: %w", err)
		}
		counts[status] = count
	}

	return counts, rows.Err()
}
