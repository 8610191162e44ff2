package rbac

import (
	"fmt"
	"time"
)

// Effect is the closed allow/deny outcome attached to a rule or override.
type Effect string

const (
	EffectAllow Effect = "allow"
	EffectDeny  Effect = "deny"
)

// ParseEffect converts a stored string into an Effect.
func ParseEffect(raw string) (Effect, error) {
	switch Effect(raw) {
	case EffectAllow:
		return EffectAllow, nil
	case EffectDeny:
		return EffectDeny, nil
	}
	return "", fmt.Errorf("rbac: invalid effect %q", raw)
}

// Source identifies where an effective decision came from.
type Source string

const (
	SourceUserOverride Source = "user_override"
	SourceRole         Source = "role"
	SourceDenied       Source = "denied"
)

// Permission represents an atomic (resource, action) capability.
type Permission struct {
	ID          int64  `json:"id"`
	Resource    string `json:"resource"`
	Action      string `json:"action"`
	Description string `json:"description,omitempty"`
}

// Name returns the canonical "resource.action" identifier.
func (p Permission) Name() string {
	return p.Resource + "." + p.Action
}

// RoleRule grants or denies a permission for a role. RoleName is carried so
// the resolver can explain which role produced a decision.
type RoleRule struct {
	RoleID       int64
	RoleName     string
	PermissionID int64
	Effect       Effect
}

// Override is a user-specific effect that bypasses role-derived effects.
type Override struct {
	UserID       int64     `json:"user_id"`
	PermissionID int64     `json:"permission_id"`
	Effect       Effect    `json:"effect"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// EffectivePermission is the derived decision for one catalog permission.
// It is recomputed on demand and never persisted.
type EffectivePermission struct {
	PermissionID int64  `json:"permission_id"`
	Resource     string `json:"resource"`
	Action       string `json:"action"`
	Allowed      bool   `json:"allowed"`
	Source       Source `json:"source"`
	Details      string `json:"details"`
}

// OverrideState is the staged value for one permission in the override
// editor: defer to roles, force allow, or force deny.
type OverrideState string

const (
	OverrideNone  OverrideState = "none"
	OverrideAllow OverrideState = "allow"
	OverrideDeny  OverrideState = "deny"
)

// ParseOverrideState converts a request string into an OverrideState.
func ParseOverrideState(raw string) (OverrideState, error) {
	switch OverrideState(raw) {
	case OverrideNone, OverrideAllow, OverrideDeny:
		return OverrideState(raw), nil
	}
	return "", fmt.Errorf("rbac: invalid override state %q", raw)
}
