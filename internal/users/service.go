package users

import (
	"context"

	"github.com/depot-erp/depot/internal/shared"
)

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, filters shared.ListFilters) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
}

// Service handles user business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns one page of users.
func (s *Service) ListUsers(ctx context.Context, filters shared.ListFilters) ([]User, int, error) {
	return s.repo.ListUsers(ctx, filters)
}

// GetUser returns a single user.
func (s *Service) GetUser(ctx context.Context, id int64) (User, error) {
	if id <= 0 {
		return User{}, ErrNotFound
	}
	return s.repo.GetUser(ctx, id)
}
