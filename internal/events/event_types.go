package events

import (
	"time"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventTicketCreated       EventType = "ticket_created"
	EventTicketStatusChanged EventType = "ticket_status_changed"
	EventTicketAssigned      EventType = "ticket_assigned"
	EventTicketNoteAdded     EventType = "ticket_note_added"
	EventTicketFileAttached  EventType = "ticket_file_attached"
	EventTicketFeedbackGiven EventType = "ticket_feedback_given"
	EventTaskUpdated         EventType = "task_updated"
	EventTaskRated           EventType = "task_rated"
)

// Event represents a domain event emitted by the lifecycle engines.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	EntityID  int64       `json:"entity_id"`
	ActorID   int64       `json:"actor_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	Code        string                `json:"code"`
	RequesterID int64                 `json:"requester_id"`
	Priority    domain.TicketPriority `json:"priority"`
	Title       string                `json:"title"`
}

// TicketStatusChangedPayload payload.
type TicketStatusChangedPayload struct {
	OldStatus domain.TicketStatus `json:"old_status"`
	NewStatus domain.TicketStatus `json:"new_status"`
}

// TicketAssignedPayload payload.
type TicketAssignedPayload struct {
	AssigneeID int64 `json:"assignee_id"`
}

// TicketNoteAddedPayload payload.
type TicketNoteAddedPayload struct {
	NotePreview string `json:"note_preview"`
}

// TicketFileAttachedPayload payload.
type TicketFileAttachedPayload struct {
	FileName  string `json:"file_name"`
	SizeBytes int64  `json:"size_bytes"`
}

// TicketFeedbackGivenPayload payload.
type TicketFeedbackGivenPayload struct {
	Rating int `json:"rating"`
}

// TaskUpdatedPayload payload.
type TaskUpdatedPayload struct {
	Status     domain.TaskStatus `json:"status"`
	AssigneeID *int64            `json:"assignee_id,omitempty"`
}

// TaskRatedPayload payload.
type TaskRatedPayload struct {
	Rating int `json:"rating"`
}
