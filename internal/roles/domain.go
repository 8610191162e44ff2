package roles

import (
	"time"

	"github.com/meridianhealth/meridian-hub/internal/rbac"
)

// Role represents a named bundle of permission rules.
type Role struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Rule is one (permission, effect) entry attached to a role.
type Rule struct {
	PermissionID int64       `json:"permission_id"`
	Effect       rbac.Effect `json:"effect"`
}
