package roles

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianhealth/meridian-hub/internal/rbac"
)

type stubRoleRepo struct {
	roles map[int64]Role
	rules map[int64]map[int64]rbac.Effect

	upserts int
	deletes int
}

func newStubRoleRepo() *stubRoleRepo {
	return &stubRoleRepo{
		roles: make(map[int64]Role),
		rules: make(map[int64]map[int64]rbac.Effect),
	}
}

func (s *stubRoleRepo) ListRoles(ctx context.Context) ([]Role, error) {
	var out []Role
	for _, role := range s.roles {
		out = append(out, role)
	}
	return out, nil
}

func (s *stubRoleRepo) GetRole(ctx context.Context, id int64) (Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	return role, nil
}

func (s *stubRoleRepo) CreateRole(ctx context.Context, name, description string) (Role, error) {
	role := Role{ID: int64(len(s.roles) + 1), Name: name, Description: description, CreatedAt: time.Now()}
	s.roles[role.ID] = role
	return role, nil
}

func (s *stubRoleRepo) UpdateRole(ctx context.Context, id int64, name, description string) (Role, error) {
	role, ok := s.roles[id]
	if !ok {
		return Role{}, ErrNotFound
	}
	role.Name = name
	role.Description = description
	s.roles[id] = role
	return role, nil
}

func (s *stubRoleRepo) DeleteRole(ctx context.Context, id int64) error {
	if _, ok := s.roles[id]; !ok {
		return ErrNotFound
	}
	delete(s.roles, id)
	return nil
}

func (s *stubRoleRepo) ListRules(ctx context.Context, roleID int64) ([]Rule, error) {
	var out []Rule
	for permID, effect := range s.rules[roleID] {
		out = append(out, Rule{PermissionID: permID, Effect: effect})
	}
	return out, nil
}

func (s *stubRoleRepo) UpsertRule(ctx context.Context, roleID, permissionID int64, effect rbac.Effect) error {
	if s.rules[roleID] == nil {
		s.rules[roleID] = make(map[int64]rbac.Effect)
	}
	s.rules[roleID][permissionID] = effect
	s.upserts++
	return nil
}

func (s *stubRoleRepo) DeleteRule(ctx context.Context, roleID, permissionID int64) error {
	delete(s.rules[roleID], permissionID)
	s.deletes++
	return nil
}

func TestSetRulesReconciles(t *testing.T) {
	repo := newStubRoleRepo()
	role, err := repo.CreateRole(context.Background(), "Clinician", "")
	require.NoError(t, err)
	repo.rules[role.ID] = map[int64]rbac.Effect{
		1: rbac.EffectAllow, // unchanged: no write expected
		2: rbac.EffectAllow, // effect flips to deny
		3: rbac.EffectAllow, // removed
	}
	svc := NewService(repo)

	err = svc.SetRules(context.Background(), role.ID, []Rule{
		{PermissionID: 1, Effect: rbac.EffectAllow},
		{PermissionID: 2, Effect: rbac.EffectDeny},
		{PermissionID: 4, Effect: rbac.EffectAllow},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, repo.upserts, "only changed and new rules are written")
	assert.Equal(t, 1, repo.deletes)
	assert.Equal(t, rbac.EffectDeny, repo.rules[role.ID][2])
	assert.Equal(t, rbac.EffectAllow, repo.rules[role.ID][4])
	_, removed := repo.rules[role.ID][3]
	assert.False(t, removed)
}

func TestSetRulesUnknownRole(t *testing.T) {
	svc := NewService(newStubRoleRepo())
	err := svc.SetRules(context.Background(), 99, nil)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetRulesRejectsInvalidEffect(t *testing.T) {
	repo := newStubRoleRepo()
	role, err := repo.CreateRole(context.Background(), "Trainee", "")
	require.NoError(t, err)
	svc := NewService(repo)
	err = svc.SetRules(context.Background(), role.ID, []Rule{{PermissionID: 1, Effect: rbac.Effect("maybe")}})
	require.Error(t, err)
}

func TestCreateRoleRequiresName(t *testing.T) {
	svc := NewService(newStubRoleRepo())
	_, err := svc.CreateRole(context.Background(), "   ", "x")
	require.Error(t, err)
}
