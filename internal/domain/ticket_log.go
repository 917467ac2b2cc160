package domain

import "time"

// TicketLogAction captures which kind of lifecycle mutation a log entry records.
type TicketLogAction string

const (
	LogActionCreated           TicketLogAction = "CREATED"
	LogActionStatusChanged     TicketLogAction = "STATUS_CHANGED"
	LogActionAssigned          TicketLogAction = "ASSIGNED"
	LogActionAttachmentAdded   TicketLogAction = "ATTACHMENT_ADDED"
	LogActionNoteAdded         TicketLogAction = "NOTE_ADDED"
	LogActionUpdatedByEmployee TicketLogAction = "UPDATED_BY_EMPLOYEE"
	LogActionFeedbackAdded     TicketLogAction = "FEEDBACK_ADDED"
)

// TicketLogEntry is an append-only audit entry. Entries are never updated
// or deleted once written.
type TicketLogEntry struct {
	ID        int64
	TicketID  int64
	ActorID   int64
	Action    TicketLogAction
	OldStatus *TicketStatus
	NewStatus *TicketStatus
	Note      *string
	CreatedAt time.Time
}
