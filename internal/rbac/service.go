package rbac

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound indicates that the requested record does not exist.
var ErrNotFound = errors.New("rbac: not found")

// RepositoryPort defines the data access methods the service needs.
type RepositoryPort interface {
	ListCatalog(ctx context.Context) ([]Permission, error)
	EnsurePermission(ctx context.Context, resource, action, description string) error
	ListUserOverrides(ctx context.Context, userID int64) ([]Override, error)
	ListUserRoleIDs(ctx context.Context, userID int64) ([]int64, error)
	ListRoleRules(ctx context.Context, roleIDs []int64) ([]RoleRule, error)
	UpsertOverride(ctx context.Context, userID, permissionID int64, effect Effect) error
	DeleteOverride(ctx context.Context, userID, permissionID int64) error
}

// Service orchestrates RBAC operations.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a Service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// SeedCatalog upserts the built-in permission catalog.
func (s *Service) SeedCatalog(ctx context.Context) error {
	for _, entry := range catalogEntries {
		if err := s.repo.EnsurePermission(ctx, entry.resource, entry.action, entry.description); err != nil {
			return fmt.Errorf("rbac: seed %s.%s: %w", entry.resource, entry.action, err)
		}
	}
	return nil
}

// Catalog returns the stored permission catalog.
func (s *Service) Catalog(ctx context.Context) ([]Permission, error) {
	return s.repo.ListCatalog(ctx)
}

// ResolveEffectivePermissions fetches the resolver inputs for one user and
// computes a decision per catalog permission.
func (s *Service) ResolveEffectivePermissions(ctx context.Context, userID int64) ([]EffectivePermission, error) {
	catalog, err := s.repo.ListCatalog(ctx)
	if err != nil {
		return nil, err
	}
	overrides, err := s.repo.ListUserOverrides(ctx, userID)
	if err != nil {
		return nil, err
	}
	roleIDs, err := s.repo.ListUserRoleIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	rules, err := s.repo.ListRoleRules(ctx, roleIDs)
	if err != nil {
		return nil, err
	}
	return ResolveEffective(catalog, overrides, rules), nil
}

// GrantedNames returns the "resource.action" names the user is allowed.
func (s *Service) GrantedNames(ctx context.Context, userID int64) ([]string, error) {
	effective, err := s.ResolveEffectivePermissions(ctx, userID)
	if err != nil {
		return nil, err
	}
	granted := make([]string, 0, len(effective))
	for _, ep := range effective {
		if ep.Allowed {
			granted = append(granted, ep.Resource+"."+ep.Action)
		}
	}
	return granted, nil
}

// SetUserOverride writes or clears a single override. A nil effect deletes
// the override row so the user falls back to role-derived decisions.
func (s *Service) SetUserOverride(ctx context.Context, userID, permissionID int64, effect *Effect) error {
	if effect == nil {
		return s.repo.DeleteOverride(ctx, userID, permissionID)
	}
	if *effect != EffectAllow && *effect != EffectDeny {
		return fmt.Errorf("rbac: invalid effect %q", *effect)
	}
	return s.repo.UpsertOverride(ctx, userID, permissionID, *effect)
}

// OverrideChange stages one entry of a batch override commit.
type OverrideChange struct {
	PermissionID int64
	State        OverrideState
}

// ApplyOverrides commits a batch of staged override changes. Entries with
// state "none" delete the override row; allow/deny upsert it. Writes are
// sequential and last-write-wins across concurrent admin sessions, an
// accepted limitation of this low-frequency surface.
func (s *Service) ApplyOverrides(ctx context.Context, userID int64, changes []OverrideChange) error {
	for _, change := range changes {
		switch change.State {
		case OverrideNone:
			if err := s.repo.DeleteOverride(ctx, userID, change.PermissionID); err != nil {
				return err
			}
		case OverrideAllow:
			if err := s.repo.UpsertOverride(ctx, userID, change.PermissionID, EffectAllow); err != nil {
				return err
			}
		case OverrideDeny:
			if err := s.repo.UpsertOverride(ctx, userID, change.PermissionID, EffectDeny); err != nil {
				return err
			}
		default:
			return fmt.Errorf("rbac: invalid override state %q", change.State)
		}
	}
	return nil
}

// HasPermission reports whether the user is allowed the named permission.
func (s *Service) HasPermission(ctx context.Context, userID int64, name string) (bool, error) {
	effective, err := s.ResolveEffectivePermissions(ctx, userID)
	if err != nil {
		return false, err
	}
	for _, ep := range effective {
		if ep.Resource+"."+ep.Action == name {
			return ep.Allowed, nil
		}
	}
	return false, nil
}
