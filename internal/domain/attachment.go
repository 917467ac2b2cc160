package domain

import "time"

// Attachment stores metadata for an uploaded file on a ticket. The file
// bytes themselves live in external storage; only metadata is persisted here.
type Attachment struct {
	ID         int64
	TicketID   int64
	UploaderID int64
	FileName   string
	StoredName string
	MimeType   string
	SizeBytes  int64
	CreatedAt  time.Time
}
