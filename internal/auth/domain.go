package auth

import (
	"errors"
	"time"
)

var (
	// ErrSelfEmulation is returned when a user tries to emulate themselves.
	ErrSelfEmulation = errors.New("cannot emulate yourself")
	// ErrNotEmulating is returned when stopping emulation on a session that is not emulating.
	ErrNotEmulating = errors.New("session is not emulating")
)

// User represents an authenticated user account.
type User struct {
	ID           int64
	Email        string
	Name         string
	RoleID       int64
	PasswordHash string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
