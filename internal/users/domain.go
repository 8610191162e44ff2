package users

import "time"

// User represents a hub account for management screens.
type User struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	FullName  string    `json:"full_name"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// RoleAssignment links a user to a role for display.
type RoleAssignment struct {
	RoleID   int64  `json:"role_id"`
	RoleName string `json:"role_name"`
}
