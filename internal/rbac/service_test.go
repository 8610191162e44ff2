package rbac

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubRepo struct {
	catalog   []Permission
	overrides map[int64]Effect
	roleIDs   []int64
	rules     []RoleRule

	upserts []int64
	deletes []int64
}

func newStubRepo() *stubRepo {
	return &stubRepo{overrides: make(map[int64]Effect)}
}

func (s *stubRepo) ListCatalog(ctx context.Context) ([]Permission, error) {
	return s.catalog, nil
}

func (s *stubRepo) EnsurePermission(ctx context.Context, resource, action, description string) error {
	s.catalog = append(s.catalog, Permission{
		ID:          int64(len(s.catalog) + 1),
		Resource:    resource,
		Action:      action,
		Description: description,
	})
	return nil
}

func (s *stubRepo) ListUserOverrides(ctx context.Context, userID int64) ([]Override, error) {
	var out []Override
	for permID, effect := range s.overrides {
		out = append(out, Override{UserID: userID, PermissionID: permID, Effect: effect})
	}
	return out, nil
}

func (s *stubRepo) ListUserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	return s.roleIDs, nil
}

func (s *stubRepo) ListRoleRules(ctx context.Context, roleIDs []int64) ([]RoleRule, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	return s.rules, nil
}

func (s *stubRepo) UpsertOverride(ctx context.Context, userID, permissionID int64, effect Effect) error {
	s.overrides[permissionID] = effect
	s.upserts = append(s.upserts, permissionID)
	return nil
}

func (s *stubRepo) DeleteOverride(ctx context.Context, userID, permissionID int64) error {
	delete(s.overrides, permissionID)
	s.deletes = append(s.deletes, permissionID)
	return nil
}

func TestApplyOverridesCommitsStagedChanges(t *testing.T) {
	repo := newStubRepo()
	repo.catalog = []Permission{
		{ID: 1, Resource: "cpd", Action: "edit"},
		{ID: 2, Resource: "cpd", Action: "view"},
		{ID: 3, Resource: "mlo", Action: "view"},
	}
	repo.overrides[3] = EffectDeny
	svc := NewService(repo)

	err := svc.ApplyOverrides(context.Background(), 42, []OverrideChange{
		{PermissionID: 1, State: OverrideAllow},
		{PermissionID: 2, State: OverrideDeny},
		{PermissionID: 3, State: OverrideNone},
	})
	require.NoError(t, err)

	assert.Equal(t, []int64{1, 2}, repo.upserts)
	assert.Equal(t, []int64{3}, repo.deletes)
	assert.Equal(t, EffectAllow, repo.overrides[1])
	assert.Equal(t, EffectDeny, repo.overrides[2])
	_, present := repo.overrides[3]
	assert.False(t, present, "state none must delete the override row")
}

func TestApplyOverridesRejectsUnknownState(t *testing.T) {
	svc := NewService(newStubRepo())
	err := svc.ApplyOverrides(context.Background(), 42, []OverrideChange{
		{PermissionID: 1, State: OverrideState("maybe")},
	})
	require.Error(t, err)
}

func TestSetUserOverrideNilDeletes(t *testing.T) {
	repo := newStubRepo()
	repo.overrides[5] = EffectAllow
	svc := NewService(repo)

	require.NoError(t, svc.SetUserOverride(context.Background(), 42, 5, nil))
	assert.Equal(t, []int64{5}, repo.deletes)

	deny := EffectDeny
	require.NoError(t, svc.SetUserOverride(context.Background(), 42, 5, &deny))
	assert.Equal(t, EffectDeny, repo.overrides[5])
}

func TestHasPermissionUsesResolvedDecision(t *testing.T) {
	repo := newStubRepo()
	repo.catalog = []Permission{{ID: 1, Resource: "reports", Action: "view"}}
	repo.roleIDs = []int64{9}
	repo.rules = []RoleRule{{RoleID: 9, RoleName: "Executive", PermissionID: 1, Effect: EffectAllow}}
	svc := NewService(repo)

	ok, err := svc.HasPermission(context.Background(), 42, "reports.view")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = svc.HasPermission(context.Background(), 42, "reports.edit")
	require.NoError(t, err)
	assert.False(t, ok, "permissions outside the catalog resolve to false")
}

func TestSeedCatalogUpsertsEveryEntry(t *testing.T) {
	repo := newStubRepo()
	svc := NewService(repo)
	require.NoError(t, svc.SeedCatalog(context.Background()))
	assert.Len(t, repo.catalog, len(catalogEntries))
}
