package domain

import "time"

// Notification is a user-facing message produced as a lifecycle side effect.
type Notification struct {
	ID        int64
	UserID    int64
	Title     string
	Message   string
	Link      *string
	Read      bool
	CreatedAt time.Time
	ReadAt    *time.Time
}
