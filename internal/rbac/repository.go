package rbac

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository provides PostgreSQL backed persistence for the RBAC tables.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// ListCatalog returns the full permission catalog ordered by resource then
// action, which fixes the order of resolver results.
func (r *Repository) ListCatalog(ctx context.Context) ([]Permission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, resource, action, COALESCE(description, '') FROM permissions ORDER BY resource, action`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var perms []Permission
	for rows.Next() {
		var p Permission
		if err := rows.Scan(&p.ID, &p.Resource, &p.Action, &p.Description); err != nil {
			return nil, err
		}
		perms = append(perms, p)
	}
	return perms, rows.Err()
}

// EnsurePermission upserts a catalog entry keyed by (resource, action).
func (r *Repository) EnsurePermission(ctx context.Context, resource, action, description string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO permissions (resource, action, description)
		VALUES ($1, $2, $3)
		ON CONFLICT (resource, action) DO UPDATE SET description = EXCLUDED.description`,
		resource, action, description)
	return err
}

// ListUserOverrides returns the override rows for one user.
func (r *Repository) ListUserOverrides(ctx context.Context, userID int64) ([]Override, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT user_id, permission_id, effect, updated_at
		FROM user_permission_overrides
		WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var overrides []Override
	for rows.Next() {
		var o Override
		var effect string
		if err := rows.Scan(&o.UserID, &o.PermissionID, &effect, &o.UpdatedAt); err != nil {
			return nil, err
		}
		parsed, err := ParseEffect(effect)
		if err != nil {
			return nil, err
		}
		o.Effect = parsed
		overrides = append(overrides, o)
	}
	return overrides, rows.Err()
}

// ListUserRoleIDs returns the role IDs assigned to a user.
func (r *Repository) ListUserRoleIDs(ctx context.Context, userID int64) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT role_id FROM user_roles WHERE user_id = $1`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// ListRoleRules returns all permission rules for the given roles, annotated
// with the owning role's name. Ordering by role name keeps the role reported
// in resolver details deterministic when several roles match.
func (r *Repository) ListRoleRules(ctx context.Context, roleIDs []int64) ([]RoleRule, error) {
	if len(roleIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx, `
		SELECT rp.role_id, ro.name, rp.permission_id, rp.effect
		FROM role_permissions rp
		JOIN roles ro ON ro.id = rp.role_id
		WHERE rp.role_id = ANY($1)
		ORDER BY ro.name, rp.permission_id`, roleIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var rules []RoleRule
	for rows.Next() {
		var rule RoleRule
		var effect string
		if err := rows.Scan(&rule.RoleID, &rule.RoleName, &rule.PermissionID, &effect); err != nil {
			return nil, err
		}
		parsed, err := ParseEffect(effect)
		if err != nil {
			return nil, err
		}
		rule.Effect = parsed
		rules = append(rules, rule)
	}
	return rules, rows.Err()
}

// UpsertOverride creates or replaces the override for (user, permission).
func (r *Repository) UpsertOverride(ctx context.Context, userID, permissionID int64, effect Effect) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO user_permission_overrides (user_id, permission_id, effect, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (user_id, permission_id) DO UPDATE SET effect = EXCLUDED.effect, updated_at = NOW()`,
		userID, permissionID, string(effect))
	return err
}

// DeleteOverride removes the override for (user, permission) if present.
func (r *Repository) DeleteOverride(ctx context.Context, userID, permissionID int64) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM user_permission_overrides WHERE user_id = $1 AND permission_id = $2`, userID, permissionID)
	return err
}
