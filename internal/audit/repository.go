package audit

import (
	"context"
	"encoding/json"
	"strconv"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Query is the repository form of TimelineFilters. Limit <= 0 means no limit.
type Query struct {
	From    pgtype.Timestamptz
	To      pgtype.Timestamptz
	ActorID pgtype.Int8
	Entity  pgtype.Text
	Action  pgtype.Text
	Offset  int
	Limit   int
}

// Repository reads audit_logs.
type Repository interface {
	Timeline(ctx context.Context, q Query) ([]TimelineRow, error)
}

// PGRepository implements Repository using PostgreSQL.
type PGRepository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a PostgreSQL repository.
func NewRepository(pool *pgxpool.Pool) *PGRepository {
	return &PGRepository{pool: pool}
}

// Timeline returns matching entries newest first.
func (r *PGRepository) Timeline(ctx context.Context, q Query) ([]TimelineRow, error) {
	sql := `SELECT a.occurred_at, a.actor_id, COALESCE(u.email, ''), a.action, a.entity, a.entity_id, a.meta
		FROM audit_logs a
		LEFT JOIN users u ON u.id = a.actor_id
		WHERE ($1::timestamptz IS NULL OR a.occurred_at >= $1)
		  AND ($2::timestamptz IS NULL OR a.occurred_at < $2)
		  AND ($3::bigint IS NULL OR a.actor_id = $3)
		  AND ($4::text IS NULL OR a.entity = $4)
		  AND ($5::text IS NULL OR a.action = $5)
		ORDER BY a.occurred_at DESC, a.id DESC`
	args := []any{q.From, q.To, q.ActorID, q.Entity, q.Action}
	if q.Limit > 0 {
		args = append(args, q.Limit, q.Offset)
		sql += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}
	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []TimelineRow
	for rows.Next() {
		var (
			row  TimelineRow
			meta []byte
		)
		if err := rows.Scan(&row.At, &row.ActorID, &row.ActorEmail, &row.Action, &row.Entity, &row.EntityID, &meta); err != nil {
			return nil, err
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &row.Meta); err != nil {
				return nil, err
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
