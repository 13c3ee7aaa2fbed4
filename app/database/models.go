package database

import (
	"time"
)

// Archive entry statuses. Pending entries are picked up by the external PDF
// archiver; uploaded entries carry the object-storage key.
const (
	ArchiveStatusPending  = "pending"
	ArchiveStatusUploaded = "uploaded"
)

// ArchiveEntry is one row of the archive index, keyed by article id.
type ArchiveEntry struct {
	ArticleID    string
	URL          string
	SourceDomain string
	DateBucket   string
	Status       string
	PDFKey       string
	CreatedAt    time.Time
	UploadedAt   *time.Time
}
