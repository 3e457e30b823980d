package taskboard

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/depot-erp/depot/internal/platform/db"
)

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// GroupExists reports whether the task group exists.
func (r *PGRepository) GroupExists(ctx context.Context, groupID int64) (bool, error) {
	var ok bool
	err := r.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM task_groups WHERE id = $1)`, groupID).Scan(&ok)
	return ok, err
}

// ListGroupTasks returns the group's tasks ordered by board position.
func (r *PGRepository) ListGroupTasks(ctx context.Context, groupID int64) ([]Task, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, group_id, title, status, assigned_user_id, position, estimated_time, sum_time
		FROM tasks WHERE group_id = $1
		ORDER BY position, id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []Task
	for rows.Next() {
		var (
			t        Task
			status   string
			assigned pgtype.Int8
		)
		if err := rows.Scan(&t.ID, &t.GroupID, &t.Title, &status, &assigned, &t.Position, &t.EstimatedTime, &t.SumTime); err != nil {
			return nil, err
		}
		t.Status = Status(status)
		if assigned.Valid {
			id := assigned.Int64
			t.AssignedUserID = &id
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// ListGroupMembers returns the active members of the group ordered by name.
func (r *PGRepository) ListGroupMembers(ctx context.Context, groupID int64) ([]Member, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT u.id, u.name FROM task_group_members m
		JOIN users u ON u.id = m.user_id AND u.is_active
		WHERE m.group_id = $1
		ORDER BY u.name, u.id`, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []Member
	for rows.Next() {
		var m Member
		if err := rows.Scan(&m.UserID, &m.Name); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

// ApplyMove writes the moved tasks' status and assignee and renumbers positions in one
// transaction.
func (r *PGRepository) ApplyMove(ctx context.Context, groupID int64, updates []TaskUpdate, placements []Placement) error {
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, u := range updates {
			batch.Queue(`UPDATE tasks SET status = $3, assigned_user_id = $4, updated_at = NOW() WHERE id = $1 AND group_id = $2`,
				u.TaskID, groupID, string(u.Status), u.AssignedUserID)
		}
		for _, p := range placements {
			batch.Queue(`UPDATE tasks SET position = $3 WHERE id = $1 AND group_id = $2`, p.TaskID, groupID, p.Position)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

var _ Repository = (*PGRepository)(nil)
