package roles

import (
	"context"
	"errors"
	"strings"

	"github.com/meridianhealth/meridian-hub/internal/rbac"
)

// RepositoryPort defines data access methods for roles.
type RepositoryPort interface {
	ListRoles(ctx context.Context) ([]Role, error)
	GetRole(ctx context.Context, id int64) (Role, error)
	CreateRole(ctx context.Context, name, description string) (Role, error)
	UpdateRole(ctx context.Context, id int64, name, description string) (Role, error)
	DeleteRole(ctx context.Context, id int64) error
	ListRules(ctx context.Context, roleID int64) ([]Rule, error)
	UpsertRule(ctx context.Context, roleID, permissionID int64, effect rbac.Effect) error
	DeleteRule(ctx context.Context, roleID, permissionID int64) error
}

// Service handles role business logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListRoles returns all roles.
func (s *Service) ListRoles(ctx context.Context) ([]Role, error) {
	return s.repo.ListRoles(ctx)
}

// GetRole fetches one role with its rules.
func (s *Service) GetRole(ctx context.Context, id int64) (Role, []Rule, error) {
	role, err := s.repo.GetRole(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	rules, err := s.repo.ListRules(ctx, id)
	if err != nil {
		return Role{}, nil, err
	}
	return role, rules, nil
}

// CreateRole inserts a new role.
func (s *Service) CreateRole(ctx context.Context, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	return s.repo.CreateRole(ctx, name, strings.TrimSpace(description))
}

// UpdateRole updates an existing role.
func (s *Service) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Role{}, errors.New("roles: role name required")
	}
	return s.repo.UpdateRole(ctx, id, name, strings.TrimSpace(description))
}

// DeleteRole removes a role.
func (s *Service) DeleteRole(ctx context.Context, id int64) error {
	return s.repo.DeleteRole(ctx, id)
}

// SetRules replaces a role's permission rules with the given set: missing
// rules are inserted, changed effects updated, and rules absent from the new
// set deleted.
func (s *Service) SetRules(ctx context.Context, roleID int64, rules []Rule) error {
	if _, err := s.repo.GetRole(ctx, roleID); err != nil {
		return err
	}
	existing, err := s.repo.ListRules(ctx, roleID)
	if err != nil {
		return err
	}
	current := make(map[int64]rbac.Effect, len(existing))
	for _, rule := range existing {
		current[rule.PermissionID] = rule.Effect
	}
	keep := make(map[int64]struct{}, len(rules))
	for _, rule := range rules {
		if rule.Effect != rbac.EffectAllow && rule.Effect != rbac.EffectDeny {
			return errors.New("roles: rule effect must be allow or deny")
		}
		keep[rule.PermissionID] = struct{}{}
		if effect, ok := current[rule.PermissionID]; !ok || effect != rule.Effect {
			if err := s.repo.UpsertRule(ctx, roleID, rule.PermissionID, rule.Effect); err != nil {
				return err
			}
		}
	}
	for permissionID := range current {
		if _, ok := keep[permissionID]; !ok {
			if err := s.repo.DeleteRule(ctx, roleID, permissionID); err != nil {
				return err
			}
		}
	}
	return nil
}
