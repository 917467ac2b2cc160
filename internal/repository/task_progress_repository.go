package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ict-helpdesk/servicedesk/internal/domain"
)

// TaskProgressRepository stores per-update task snapshots. Entries are
// append-only except the admin comment, which is a mutable annotation
// overwritten in place by AnnotateComment.
type TaskProgressRepository interface {
	Append(ctx context.Context, entry *domain.TaskProgressEntry) error
	GetByID(ctx context.Context, id int64) (*domain.TaskProgressEntry, error)
	ListByTask(ctx context.Context, taskID int64) ([]domain.TaskProgressEntry, error)
	AnnotateComment(ctx context.Context, entryID int64, adminID int64, comment string) error
}

type taskProgressRepository struct {
	pool *pgxpool.Pool
}

// NewTaskProgressRepository builds repository.
func NewTaskProgressRepository(pool *pgxpool.Pool) TaskProgressRepository {
	return &taskProgressRepository{pool: pool}
}

func (r *taskProgressRepository) Append(ctx context.Context, entry *domain.TaskProgressEntry) error {
	const query = `
        INSERT INTO task_progress (task_id, technician_id, status, note, admin_comment, admin_id)
        VALUES ($1,$2,$3,$4,$5,$6)
        RETURNING id, created_at`
	return querier(ctx, r.pool).QueryRow(ctx, query,
		entry.TaskID,
		entry.TechnicianID,
		entry.Status,
		entry.Note,
		entry.AdminComment,
		entry.AdminID,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func (r *taskProgressRepository) GetByID(ctx context.Context, id int64) (*domain.TaskProgressEntry, error) {
	const query = `
        SELECT id, task_id, technician_id, status, note, admin_comment, admin_id, created_at
        FROM task_progress WHERE id=$1`
	var entry domain.TaskProgressEntry
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&entry.ID,
		&entry.TaskID,
		&entry.TechnicianID,
		&entry.Status,
		&entry.Note,
		&entry.AdminComment,
		&entry.AdminID,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *taskProgressRepository) ListByTask(ctx context.Context, taskID int64) ([]domain.TaskProgressEntry, error) {
	const query = `
        SELECT id, task_id, technician_id, status, note, admin_comment, admin_id, created_at
        FROM task_progress WHERE task_id=$1 ORDER BY created_at ASC, id ASC`
	rows, err := querier(ctx, r.pool).Query(ctx, query, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TaskProgressEntry
	for rows.Next() {
		var entry domain.TaskProgressEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.TaskID,
			&entry.TechnicianID,
			&entry.Status,
			&entry.Note,
			&entry.AdminComment,
			&entry.AdminID,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}

func (r *taskProgressRepository) AnnotateComment(ctx context.Context, entryID int64, adminID int64, comment string) error {
	const query = `UPDATE task_progress SET admin_comment=$1, admin_id=$2 WHERE id=$3`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, comment, adminID, entryID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
