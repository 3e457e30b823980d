package warehouses

import (
	"context"
	"errors"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/depot-erp/depot/internal/platform/db"
	"github.com/depot-erp/depot/internal/shared"
)

type Repository interface {
	List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error)
	Get(ctx context.Context, id int64) (Warehouse, error)
	Create(ctx context.Context, warehouse Warehouse) (Warehouse, error)
	Update(ctx context.Context, id int64, warehouse Warehouse) (Warehouse, error)
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{pool: pool}
}

const warehouseColumns = `id, code, name, address, is_active, created_at, updated_at`

// List builds its filter clause dynamically; the same clause and args feed the count.
func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Warehouse, int, error) {
	where := ` WHERE 1=1`
	args := []any{}

	if filters.IsActive != nil {
		args = append(args, *filters.IsActive)
		where += ` AND is_active = $` + strconv.Itoa(len(args))
	}
	if filters.Search != "" {
		args = append(args, "%"+filters.Search+"%")
		where += ` AND (name ILIKE $` + strconv.Itoa(len(args)) + ` OR code ILIKE $` + strconv.Itoa(len(args)) + `)`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM warehouses`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := `SELECT ` + warehouseColumns + ` FROM warehouses` + where +
		` ORDER BY ` + filters.OrderBy("name", "code", "name")
	if filters.Limit > 0 {
		args = append(args, filters.Limit, filters.Offset())
		query += ` LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var warehouses []Warehouse
	for rows.Next() {
		w, err := scanWarehouse(rows)
		if err != nil {
			return nil, 0, err
		}
		warehouses = append(warehouses, w)
	}
	return warehouses, total, rows.Err()
}

func (r *repository) Get(ctx context.Context, id int64) (Warehouse, error) {
	w, err := scanWarehouse(r.pool.QueryRow(ctx, `SELECT `+warehouseColumns+` FROM warehouses WHERE id = $1`, id))
	return w, mapErr(err)
}

func (r *repository) Create(ctx context.Context, warehouse Warehouse) (Warehouse, error) {
	w, err := scanWarehouse(r.pool.QueryRow(ctx, `
		INSERT INTO warehouses (code, name, address, is_active)
		VALUES ($1, $2, $3, $4)
		RETURNING `+warehouseColumns,
		warehouse.Code, warehouse.Name, warehouse.Address, warehouse.IsActive))
	return w, mapErr(err)
}

func (r *repository) Update(ctx context.Context, id int64, warehouse Warehouse) (Warehouse, error) {
	w, err := scanWarehouse(r.pool.QueryRow(ctx, `
		UPDATE warehouses SET code = $2, name = $3, address = $4, updated_at = NOW()
		WHERE id = $1
		RETURNING `+warehouseColumns,
		id, warehouse.Code, warehouse.Name, warehouse.Address))
	return w, mapErr(err)
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM warehouses WHERE id = $1`, id)
	if err != nil {
		return mapErr(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanWarehouse(row pgx.Row) (Warehouse, error) {
	var w Warehouse
	err := row.Scan(&w.ID, &w.Code, &w.Name, &w.Address, &w.IsActive, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, pgx.ErrNoRows):
		return ErrNotFound
	case db.IsUniqueViolation(err):
		return ErrDuplicate
	case db.IsForeignKeyViolation(err):
		return ErrInUse
	default:
		return err
	}
}
