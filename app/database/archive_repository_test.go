package database

import (
	"path/filepath"
	"testing"
)

func testRepo(t *testing.T) *SQLArchiveRepository {
	t.Helper()

	db, err := NewConnection(filepath.Join(t.TempDir(), "archive.db"))
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if _, _, err := RunMigrations(db); err != nil {
		t.Fatalf("Failed to run migrations: %v", err)
	}

	return NewArchiveRepository(db)
}

func sampleEntries() []ArchiveEntry {
	return []ArchiveEntry{
		{ArticleID: "a1", URL: "https://a.com/x", SourceDomain: "a.com", DateBucket: "2026-08-31"},
		{ArticleID: "b2", URL: "https://b.com/y", SourceDomain: "b.com", DateBucket: "2026-08-31"},
	}
}

func TestArchiveRepository_RegisterSkipsExisting(t *testing.T) {
	repo := testRepo(t)

	inserted, err := repo.Register(sampleEntries())
	if err != nil {
		t.Fatalf("Register failed: %v", err)
	}
	if inserted != 2 {
		t.Errorf("Expected 2 inserted, got %d", inserted)
	}

	// Registering the same articles again is a no-op
	inserted, err = repo.Register(sampleEntries())
	if err != nil {
		t.Fatalf("Second register failed: %v", err)
	}
	if inserted != 0 {
		t.Errorf("Expected 0 inserted on re-register, got %d", inserted)
	}
}

func TestArchiveRepository_PendingAndUpload(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.Register(sampleEntries()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	pending, err := repo.GetPending(0)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("Expected 2 pending entries, got %d", len(pending))
	}

	if err := repo.MarkUploaded("a1", "pdfs/2026-08-31/a.com/a1.pdf"); err != nil {
		t.Fatalf("MarkUploaded failed: %v", err)
	}

	pending, err = repo.GetPending(0)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 1 || pending[0].ArticleID != "b2" {
		t.Errorf("Expected only b2 pending, got %v", pending)
	}

	counts, err := repo.CountByStatus()
	if err != nil {
		t.Fatalf("CountByStatus failed: %v", err)
	}
	if counts[ArchiveStatusPending] != 1 || counts[ArchiveStatusUploaded] != 1 {
		t.Errorf("Unexpected counts: %v", counts)
	}
}

func TestArchiveRepository_MarkUploadedUnknownID(t *testing.T) {
	repo := testRepo(t)

	if err := repo.MarkUploaded("nope", "key"); err == nil {
		t.Error("Expected error for unknown article id")
	}
}

func TestArchiveRepository_GetPendingLimit(t *testing.T) {
	repo := testRepo(t)

	if _, err := repo.Register(sampleEntries()); err != nil {
		t.Fatalf("Register failed: %v", err)
	}

	pending, err := repo.GetPending(1)
	if err != nil {
		t.Fatalf("GetPending failed: %v", err)
	}
	if len(pending) != 1 {
		t.Errorf("Expected limit of 1 respected, got %d", len(pending))
	}
}
