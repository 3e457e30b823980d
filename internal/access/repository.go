package access

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
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

// ActiveCatalog returns the active permission definitions ordered by area.
func (r *PGRepository) ActiveCatalog(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, area, sub_areas FROM permissions WHERE is_active ORDER BY area, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var (
			p    Permission
			subs string
		)
		if err := rows.Scan(&p.ID, &p.Area, &subs); err != nil {
			return nil, err
		}
		p.SubAreas = ParseSubAreas(subs)
		p.IsActive = true
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// ActiveRole returns the role of the user when the user is active.
func (r *PGRepository) ActiveRole(ctx context.Context, userID int64) (int64, error) {
	var roleID int64
	err := r.pool.QueryRow(ctx, `SELECT role_id FROM users WHERE id = $1 AND is_active`, userID).Scan(&roleID)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrNotFound
	}
	return roleID, err
}

// RoleGrants returns the role_permissions rows of the role.
func (r *PGRepository) RoleGrants(ctx context.Context, roleID int64) ([]GrantRow, error) {
	return scanGrants(ctx, r.pool,
		`SELECT rp.permission_id, rp.access FROM role_permissions rp
		 JOIN roles ro ON ro.id = rp.role_id AND ro.is_active
		 WHERE rp.role_id = $1 ORDER BY rp.permission_id`, roleID)
}

// UserGrants returns the user_permissions rows of the user.
func (r *PGRepository) UserGrants(ctx context.Context, userID int64) ([]GrantRow, error) {
	return scanGrants(ctx, r.pool,
		`SELECT up.permission_id, up.access FROM user_permissions up
		 JOIN users u ON u.id = up.user_id AND u.is_active
		 WHERE up.user_id = $1 ORDER BY up.permission_id`, userID)
}

// ReplaceGrants swaps the owner's rows for rows in one transaction.
func (r *PGRepository) ReplaceGrants(ctx context.Context, scope Scope, ownerID int64, rows []GrantRow) error {
	var table, column string
	switch scope {
	case ScopeRole:
		table, column = "role_permissions", "role_id"
	case ScopeUser:
		table, column = "user_permissions", "user_id"
	default:
		return fmt.Errorf("access: invalid scope %q", scope)
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM `+table+` WHERE `+column+` = $1`, ownerID); err != nil {
			return err
		}
		batch := &pgx.Batch{}
		for _, row := range rows {
			batch.Queue(`INSERT INTO `+table+` (`+column+`, permission_id, access) VALUES ($1, $2, $3)`, ownerID, row.PermissionID, row.Access)
		}
		if batch.Len() == 0 {
			return nil
		}
		return tx.SendBatch(ctx, batch).Close()
	})
}

func scanGrants(ctx context.Context, q db.DBTX, sql string, ownerID int64) ([]GrantRow, error) {
	rows, err := q.Query(ctx, sql, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []GrantRow
	for rows.Next() {
		var g GrantRow
		if err := rows.Scan(&g.PermissionID, &g.Access); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

var _ Repository = (*PGRepository)(nil)
