package domain

import "time"

// TicketStatus enumerates lifecycle states for tickets.
type TicketStatus string

const (
	TicketStatusNew        TicketStatus = "NEW"
	TicketStatusInProgress TicketStatus = "IN_PROGRESS"
	TicketStatusOnHold     TicketStatus = "ON_HOLD"
	TicketStatusResolved   TicketStatus = "RESOLVED"
	TicketStatusClosed     TicketStatus = "CLOSED"
)

// ParseTicketStatus validates a raw status value against the enum.
func ParseTicketStatus(raw string) (TicketStatus, bool) {
	switch TicketStatus(raw) {
	case TicketStatusNew, TicketStatusInProgress, TicketStatusOnHold, TicketStatusResolved, TicketStatusClosed:
		return TicketStatus(raw), true
	}
	return "", false
}

// TicketPriority enumerates urgency levels.
type TicketPriority string

const (
	TicketPriorityLow      TicketPriority = "LOW"
	TicketPriorityMedium   TicketPriority = "MEDIUM"
	TicketPriorityHigh     TicketPriority = "HIGH"
	TicketPriorityCritical TicketPriority = "CRITICAL"
)

// ParseTicketPriority validates a raw priority value.
func ParseTicketPriority(raw string) (TicketPriority, bool) {
	switch TicketPriority(raw) {
	case TicketPriorityLow, TicketPriorityMedium, TicketPriorityHigh, TicketPriorityCritical:
		return TicketPriority(raw), true
	}
	return "", false
}

// Ticket is the aggregate for employee issue reports.
type Ticket struct {
	ID              int64
	Code            string
	Title           string
	Description     string
	Status          TicketStatus
	Priority        TicketPriority
	DepartmentID    int64
	CategoryID      int64
	RequesterID     int64
	AssigneeID      *int64
	FeedbackRating  *int
	FeedbackComment *string
	FeedbackGivenAt *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// FeedbackLocked reports whether the ticket carries post-resolution feedback.
// Once feedback exists no further lifecycle mutation is permitted.
func (t *Ticket) FeedbackLocked() bool {
	return t.FeedbackRating != nil
}
