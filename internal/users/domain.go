package users

import (
	"errors"
	"time"
)

// ErrNotFound indicates the user does not exist.
var ErrNotFound = errors.New("user not found")

// User is an employee account as listed to administrators.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	RoleID    int64     `json:"role_id"`
	RoleName  string    `json:"role_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
