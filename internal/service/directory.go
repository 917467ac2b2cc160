package service

import (
	"context"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
)

// Directory resolves users for display names and notification fan-out.
// The lifecycle engines depend on this capability instead of querying
// accounts directly, so recipient lists stay mockable.
type Directory interface {
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	ListByRole(ctx context.Context, role domain.Role) ([]domain.User, error)
}

// Notifier delivers user-facing messages as lifecycle side effects.
// Implementations swallow delivery failures; callers fire and forget.
type Notifier interface {
	Notify(ctx context.Context, userID int64, title, message, link string)
}

// Actor identifies the authenticated caller of a lifecycle operation.
type Actor struct {
	ID   int64
	Role domain.Role
}
