package cpd

import "time"

// Activity is one logged continuing-professional-development entry.
type Activity struct {
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	ActivityDate time.Time `json:"activity_date"`
	Category     string    `json:"category"`
	Hours        float64   `json:"hours"`
	Notes        string    `json:"notes,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// YearSummary aggregates a user's logged hours for one calendar year.
type YearSummary struct {
	Year       int                `json:"year"`
	TotalHours float64            `json:"total_hours"`
	ByCategory map[string]float64 `json:"by_category"`
	Entries    int                `json:"entries"`
}

// Categories accepted for an activity. Kept in one place so the handler
// validation and any seeding agree.
var Categories = []string{
	"course",
	"conference",
	"journal_review",
	"peer_discussion",
	"audit",
	"other",
}

func validCategory(c string) bool {
	for _, known := range Categories {
		if c == known {
			return true
		}
	}
	return false
}
