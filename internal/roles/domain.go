package roles

import (
	"errors"
	"time"
)

var (
	// ErrDuplicate indicates a role with the same name exists.
	ErrDuplicate = errors.New("role name already in use")
)

// Role groups users that share a permission baseline.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateRoleInput is the payload for creating a role.
type CreateRoleInput struct {
	Name        string `json:"name" validate:"required,max=80"`
	Description string `json:"description" validate:"max=500"`
}
