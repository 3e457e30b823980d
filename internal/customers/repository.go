package customers

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/depot-erp/depot/internal/platform/db"
	"github.com/depot-erp/depot/internal/shared"
)

var (
	ErrNotFound      = errors.New("customer not found")
	ErrAlreadyExists = errors.New("customer already exists")
	ErrInUse         = errors.New("customer is referenced by other records")
)

type Repository interface {
	Get(ctx context.Context, id int64) (*Customer, error)
	GetByCode(ctx context.Context, code string) (*Customer, error)
	List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error)
	Create(ctx context.Context, customer Customer) (int64, error)
	Update(ctx context.Context, id int64, updates map[string]any) error
	Delete(ctx context.Context, id int64) error
}

type repository struct {
	db db.DBTX
}

func NewRepository(pool *pgxpool.Pool) Repository {
	return &repository{db: pool}
}

const customerColumns = `id, code, name, email, phone, city, is_active, notes, created_by, created_at, updated_at`

// updatable lists the columns Update accepts, in statement order.
var updatable = []string{"name", "email", "phone", "city", "is_active", "notes"}

func (r *repository) Get(ctx context.Context, id int64) (*Customer, error) {
	return r.getOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE id = $1`, id)
}

func (r *repository) GetByCode(ctx context.Context, code string) (*Customer, error) {
	return r.getOne(ctx, `SELECT `+customerColumns+` FROM customers WHERE code = $1`, code)
}

func (r *repository) getOne(ctx context.Context, query string, arg any) (*Customer, error) {
	c, err := scanCustomer(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *repository) List(ctx context.Context, filters shared.ListFilters) ([]Customer, int, error) {
	var conditions []string
	var args []any
	argPos := 1

	if filters.IsActive != nil {
		conditions = append(conditions, fmt.Sprintf("is_active = $%d", argPos))
		args = append(args, *filters.IsActive)
		argPos++
	}
	if filters.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(code ILIKE $%d OR name ILIKE $%d OR email ILIKE $%d)", argPos, argPos, argPos))
		args = append(args, "%"+filters.Search+"%")
		argPos++
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM customers "+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	query := fmt.Sprintf(`SELECT %s FROM customers %s ORDER BY %s LIMIT $%d OFFSET $%d`,
		customerColumns, whereClause, filters.OrderBy("code", "code", "name", "city", "created_at"), argPos, argPos+1)
	args = append(args, filters.Limit, filters.Offset())

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var customers []Customer
	for rows.Next() {
		c, err := scanCustomer(rows)
		if err != nil {
			return nil, 0, err
		}
		customers = append(customers, c)
	}
	return customers, total, rows.Err()
}

func (r *repository) Create(ctx context.Context, c Customer) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, `
		INSERT INTO customers (code, name, email, phone, city, is_active, notes, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		c.Code, c.Name, c.Email, c.Phone, c.City, c.IsActive, c.Notes, c.CreatedBy).Scan(&id)
	if db.IsUniqueViolation(err) {
		return 0, ErrAlreadyExists
	}
	return id, err
}

func (r *repository) Update(ctx context.Context, id int64, updates map[string]any) error {
	query := "UPDATE customers SET updated_at = NOW()"
	var args []any
	argPos := 1
	for _, col := range updatable {
		v, ok := updates[col]
		if !ok {
			continue
		}
		query += fmt.Sprintf(", %s = $%d", col, argPos)
		args = append(args, v)
		argPos++
	}
	query += fmt.Sprintf(" WHERE id = $%d", argPos)
	args = append(args, id)

	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *repository) Delete(ctx context.Context, id int64) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if db.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanCustomer(row pgx.Row) (Customer, error) {
	var (
		c                         Customer
		email, phone, city, notes pgtype.Text
	)
	err := row.Scan(&c.ID, &c.Code, &c.Name, &email, &phone, &city, &c.IsActive, &notes, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return Customer{}, err
	}
	c.Email = textPtr(email)
	c.Phone = textPtr(phone)
	c.City = textPtr(city)
	c.Notes = textPtr(notes)
	return c, nil
}

func textPtr(t pgtype.Text) *string {
	if !t.Valid {
		return nil
	}
	v := t.String
	return &v
}
