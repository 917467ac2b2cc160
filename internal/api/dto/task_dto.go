package dto

import (
	"time"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
)

// CreateTaskRequest payload.
type CreateTaskRequest struct {
	Title       string     `json:"title"`
	Description string     `json:"description"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	AssigneeID  *int64     `json:"assignee_id"`
	DueAt       *time.Time `json:"due_at,omitempty"`
}

// AdminUpdateTaskRequest payload. Nil fields are left untouched.
type AdminUpdateTaskRequest struct {
	Title          *string    `json:"title"`
	Description    *string    `json:"description"`
	Status         *string    `json:"status"`
	Priority       *string    `json:"priority"`
	AssigneeID     *int64     `json:"assignee_id"`
	DueAt          *time.Time `json:"due_at"`
	TechnicianNote *string    `json:"technician_note"`
}

// TechnicianUpdateRequest payload.
type TechnicianUpdateRequest struct {
	Status string  `json:"status"`
	Note   *string `json:"note"`
}

// AnnotateProgressRequest payload.
type AnnotateProgressRequest struct {
	Comment string `json:"comment"`
}

// TaskRatingRequest payload.
type TaskRatingRequest struct {
	Rating int `json:"rating"`
}

// TaskResponse represents a task.
type TaskResponse struct {
	ID             int64               `json:"id"`
	Title          string              `json:"title"`
	Description    string              `json:"description"`
	Status         domain.TaskStatus   `json:"status"`
	Priority       domain.TaskPriority `json:"priority"`
	AssigneeID     *int64              `json:"assignee_id"`
	CreatedBy      int64               `json:"created_by"`
	DueAt          *time.Time          `json:"due_at"`
	TechnicianNote *string             `json:"technician_note"`
	Rating         *int                `json:"rating"`
	RatedAt        *time.Time          `json:"rated_at"`
	CreatedAt      time.Time           `json:"created_at"`
	UpdatedAt      time.Time           `json:"updated_at"`
}

// TaskProgressResponse represents one progress entry.
type TaskProgressResponse struct {
	ID           int64             `json:"id"`
	TaskID       int64             `json:"task_id"`
	TechnicianID *int64            `json:"technician_id"`
	Status       domain.TaskStatus `json:"status"`
	Note         *string           `json:"note,omitempty"`
	AdminComment *string           `json:"admin_comment,omitempty"`
	AdminID      *int64            `json:"admin_id,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

// FromTask maps a domain task into its response shape.
func FromTask(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:             t.ID,
		Title:          t.Title,
		Description:    t.Description,
		Status:         t.Status,
		Priority:       t.Priority,
		AssigneeID:     t.AssigneeID,
		CreatedBy:      t.CreatedBy,
		DueAt:          t.DueAt,
		TechnicianNote: t.TechnicianNote,
		Rating:         t.Rating,
		RatedAt:        t.RatedAt,
		CreatedAt:      t.CreatedAt,
		UpdatedAt:      t.UpdatedAt,
	}
}

// FromTaskProgress maps a progress entry into its response shape.
func FromTaskProgress(e domain.TaskProgressEntry) TaskProgressResponse {
	return TaskProgressResponse{
		ID:           e.ID,
		TaskID:       e.TaskID,
		TechnicianID: e.TechnicianID,
		Status:       e.Status,
		Note:         e.Note,
		AdminComment: e.AdminComment,
		AdminID:      e.AdminID,
		CreatedAt:    e.CreatedAt,
	}
}
