package domain

import "time"

// TaskStatus enumerates lifecycle states for internal tasks.
type TaskStatus string

const (
	TaskStatusOpen       TaskStatus = "OPEN"
	TaskStatusInProgress TaskStatus = "IN_PROGRESS"
	TaskStatusDone       TaskStatus = "DONE"
	TaskStatusCancelled  TaskStatus = "CANCELLED"
)

// ParseTaskStatus validates a raw task status value.
func ParseTaskStatus(raw string) (TaskStatus, bool) {
	switch TaskStatus(raw) {
	case TaskStatusOpen, TaskStatusInProgress, TaskStatusDone, TaskStatusCancelled:
		return TaskStatus(raw), true
	}
	return "", false
}

// TaskPriority enumerates urgency levels for internal tasks.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "LOW"
	TaskPriorityMedium TaskPriority = "MEDIUM"
	TaskPriorityHigh   TaskPriority = "HIGH"
)

// ParseTaskPriority validates a raw task priority value.
func ParseTaskPriority(raw string) (TaskPriority, bool) {
	switch TaskPriority(raw) {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return TaskPriority(raw), true
	}
	return "", false
}

// Task is an admin-assigned internal work item.
type Task struct {
	ID             int64
	Title          string
	Description    string
	Status         TaskStatus
	Priority       TaskPriority
	AssigneeID     *int64
	CreatedBy      int64
	DueAt          *time.Time
	TechnicianNote *string
	Rating         *int
	RatedAt        *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// RatingLocked reports whether the task has received its one-time rating.
// A rated task accepts no further updates, progress entries, or comments.
func (t *Task) RatingLocked() bool {
	return t.Rating != nil
}

// TaskProgressEntry is a snapshot written per status or note change on a task.
// Unlike ticket log entries, the admin comment field is a mutable annotation.
type TaskProgressEntry struct {
	ID           int64
	TaskID       int64
	TechnicianID *int64
	Status       TaskStatus
	Note         *string
	AdminComment *string
	AdminID      *int64
	CreatedAt    time.Time
}
