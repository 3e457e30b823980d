package access

import (
	"errors"
	"fmt"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("access: not found")

// ErrInvalidGrant reports a grant edit that references an area or sub-area absent from the
// active catalog.
var ErrInvalidGrant = errors.New("access: invalid grant")

// ErrSelfGrant reports an attempt to edit one's own user overrides.
var ErrSelfGrant = errors.New("access: cannot edit own grants")

// Actor identifies whose grants are merged.
type Actor struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
}

// Permission is one catalog entry describing an area and the capability tokens it offers.
type Permission struct {
	ID       int64    `json:"id"`
	Area     string   `json:"area"`
	SubAreas []string `json:"sub_areas"`
	IsActive bool     `json:"is_active"`
}

// GrantRow is a persisted role_permissions or user_permissions row.
type GrantRow struct {
	PermissionID int64
	Access       string
}

// Scope selects the owner kind of a set of grant rows.
type Scope string

const (
	ScopeRole Scope = "role"
	ScopeUser Scope = "user"
)

// Valid reports whether s is a known scope.
func (s Scope) Valid() bool {
	return s == ScopeRole || s == ScopeUser
}

// LoadError wraps a failure to fetch catalog, role or user rows. Callers must treat it as
// a full deny.
type LoadError struct {
	Op  string
	Err error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("access: load %s: %v", e.Op, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
