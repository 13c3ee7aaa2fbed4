package database

// ArchiveRepository manages the archive index: one row per article scheduled
// for PDF archival, keyed by article id with skip-if-exists semantics.
type ArchiveRepository interface {
	Register(entries []ArchiveEntry) (int, error)
	GetPending(limit int) ([]ArchiveEntry, error)
	MarkUploaded(articleID, pdfKey string) error
	CountByStatus() (map[string]int, error)
}
