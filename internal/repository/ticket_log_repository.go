package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
)

// TicketLogRepository stores the append-only audit trail. There is
// deliberately no update or delete operation.
type TicketLogRepository interface {
	Append(ctx context.Context, entry *domain.TicketLogEntry) error
	ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketLogEntry, error)
}

type ticketLogRepository struct {
	pool *pgxpool.Pool
}

// NewTicketLogRepository builds repository.
func NewTicketLogRepository(pool *pgxpool.Pool) TicketLogRepository {
	return &ticketLogRepository{pool: pool}
}

func (r *ticketLogRepository) Append(ctx context.Context, entry *domain.TicketLogEntry) error {
	const query = `
        INSERT INTO ticket_logs (ticket_id, actor_id, action, old_status, new_status, note)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		entry.TicketID,
		entry.ActorID,
		entry.Action,
		entry.OldStatus,
		entry.NewStatus,
		entry.Note,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *ticketLogRepository) ListByTicket(ctx context.Context, ticketID int64) ([]domain.TicketLogEntry, error) {
	const query = `
        SELECT id, ticket_id, actor_id, action, old_status, new_status, note, created_at
        FROM ticket_logs WHERE ticket_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TicketLogEntry
	for rows.Next() {
		var entry domain.TicketLogEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TicketID,
			&entry.ActorID,
			&entry.Action,
			&entry.OldStatus,
			&entry.NewStatus,
			&entry.Note,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
