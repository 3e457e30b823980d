package roles

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
}

// Service handles role business logic.
type Service struct {
	repo      RepositoryPort
	validator *validator.Validate
}

// NewService builds Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo, validator: validator.New()}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// CreateRole validates input and stores a new role. New roles start without grants.
func (s *Service) CreateRole(ctx context.Context, input CreateRoleInput) (Role, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)
	if err := s.validator.Struct(input); err != nil {
		return Role{}, err
	}
	return s.repo.CreateRole(ctx, input.Name, input.Description)
}
