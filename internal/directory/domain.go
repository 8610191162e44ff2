package directory

import "time"

// Entry is one staff member in the phone directory.
type Entry struct {
	ID         int64     `json:"id"`
	FullName   string    `json:"full_name"`
	Department string    `json:"department"`
	JobTitle   string    `json:"job_title"`
	Extension  string    `json:"extension"`
	Mobile     string    `json:"mobile,omitempty"`
	Email      string    `json:"email"`
	Location   string    `json:"location,omitempty"`
	IsActive   bool      `json:"is_active"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
