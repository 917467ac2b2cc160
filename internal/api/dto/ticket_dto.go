package dto

import (
	"time"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
)

// CreateTicketRequest payload.
type CreateTicketRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	DepartmentID int64  `json:"department_id"`
	CategoryID   int64  `json:"category_id"`
	RequesterID  int64  `json:"requester_id,omitempty"`
}

// ChangeStatusRequest payload.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// AssignRequest payload.
type AssignRequest struct {
	TechnicianID int64 `json:"technician_id"`
}

// SelfEditRequest payload.
type SelfEditRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	Priority     string `json:"priority"`
	DepartmentID int64  `json:"department_id"`
	CategoryID   int64  `json:"category_id"`
}

// FeedbackRequest payload.
type FeedbackRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// WorkNoteRequest payload.
type WorkNoteRequest struct {
	Note             string `json:"note"`
	TimeSpentMinutes int    `json:"time_spent_minutes,omitempty"`
}

// TicketResponse represents a ticket.
type TicketResponse struct {
	ID              int64                 `json:"id"`
	Code            string                `json:"code"`
	Title           string                `json:"title"`
	Description     string                `json:"description"`
	Status          domain.TicketStatus   `json:"status"`
	Priority        domain.TicketPriority `json:"priority"`
	DepartmentID    int64                 `json:"department_id"`
	CategoryID      int64                 `json:"category_id"`
	RequesterID     int64                 `json:"requester_id"`
	AssigneeID      *int64                `json:"assignee_id"`
	FeedbackRating  *int                  `json:"feedback_rating"`
	FeedbackComment *string               `json:"feedback_comment"`
	FeedbackGivenAt *time.Time            `json:"feedback_given_at"`
	CreatedAt       time.Time             `json:"created_at"`
	UpdatedAt       time.Time             `json:"updated_at"`
}

// TicketLogResponse represents an audit entry.
type TicketLogResponse struct {
	ID        int64                  `json:"id"`
	TicketID  int64                  `json:"ticket_id"`
	ActorID   int64                  `json:"actor_id"`
	Action    domain.TicketLogAction `json:"action"`
	OldStatus *domain.TicketStatus   `json:"old_status,omitempty"`
	NewStatus *domain.TicketStatus   `json:"new_status,omitempty"`
	Note      *string                `json:"note,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// AttachmentResponse metadata.
type AttachmentResponse struct {
	ID        int64     `json:"id"`
	TicketID  int64     `json:"ticket_id"`
	FileName  string    `json:"file_name"`
	MimeType  string    `json:"mime_type"`
	SizeBytes int64     `json:"size_bytes"`
	CreatedAt time.Time `json:"created_at"`
}

// FromTicket maps a domain ticket into its response shape.
func FromTicket(t *domain.Ticket) TicketResponse {
	return TicketResponse{
		ID:              t.ID,
		Code:            t.Code,
		Title:           t.Title,
		Description:     t.Description,
		Status:          t.Status,
		Priority:        t.Priority,
		DepartmentID:    t.DepartmentID,
		CategoryID:      t.CategoryID,
		RequesterID:     t.RequesterID,
		AssigneeID:      t.AssigneeID,
		FeedbackRating:  t.FeedbackRating,
		FeedbackComment: t.FeedbackComment,
		FeedbackGivenAt: t.FeedbackGivenAt,
		CreatedAt:       t.CreatedAt,
		UpdatedAt:       t.UpdatedAt,
	}
}

// FromTicketLog maps an audit entry into its response shape.
func FromTicketLog(e domain.TicketLogEntry) TicketLogResponse {
	return TicketLogResponse{
		ID:        e.ID,
		TicketID:  e.TicketID,
		ActorID:   e.ActorID,
		Action:    e.Action,
		OldStatus: e.OldStatus,
		NewStatus: e.NewStatus,
		Note:      e.Note,
		CreatedAt: e.CreatedAt,
	}
}

// FromAttachment maps attachment metadata into its response shape.
func FromAttachment(a domain.Attachment) AttachmentResponse {
	return AttachmentResponse{
		ID:        a.ID,
		TicketID:  a.TicketID,
		FileName:  a.FileName,
		MimeType:  a.MimeType,
		SizeBytes: a.SizeBytes,
		CreatedAt: a.CreatedAt,
	}
}
