package cpd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"log/slog"
)

var (
	// ErrNotFound indicates the activity does not exist or is not owned
	// by the requesting user.
	ErrNotFound = errors.New("cpd: activity not found")
	// ErrValidation indicates the submitted activity is malformed.
	ErrValidation = errors.New("cpd: validation failed")
)

// Repository abstracts CPD persistence so the service can be tested
// with an in-memory double.
type Repository interface {
	Insert(ctx context.Context, a Activity) (Activity, error)
	ListByUser(ctx context.Context, userID int64, year int) ([]Activity, error)
	Delete(ctx context.Context, id, userID int64) error
	Get(ctx context.Context, id int64) (Activity, error)
}

// Service implements CPD activity logging and yearly summaries.
type Service struct {
	repo   Repository
	logger *slog.Logger
	now    func() time.Time
}

// NewService constructs a Service.
func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger, now: time.Now}
}

// Log records a new activity for the user.
func (s *Service) Log(ctx context.Context, a Activity) (Activity, error) {
	if a.UserID <= 0 {
		return Activity{}, fmt.Errorf("%w: missing user", ErrValidation)
	}
	if !validCategory(a.Category) {
		return Activity{}, fmt.Errorf("%w: unknown category %q", ErrValidation, a.Category)
	}
	if a.Hours <= 0 || a.Hours > 24 {
		return Activity{}, fmt.Errorf("%w: hours must be between 0 and 24", ErrValidation)
	}
	if a.ActivityDate.IsZero() {
		a.ActivityDate = s.now()
	}
	if a.ActivityDate.After(s.now()) {
		return Activity{}, fmt.Errorf("%w: activity date is in the future", ErrValidation)
	}
	return s.repo.Insert(ctx, a)
}

// ListYear returns the user's activities for the given year. A zero
// year means the current year.
func (s *Service) ListYear(ctx context.Context, userID int64, year int) ([]Activity, error) {
	if year == 0 {
		year = s.now().Year()
	}
	return s.repo.ListByUser(ctx, userID, year)
}

// Summary aggregates the user's activities for a calendar year.
func (s *Service) Summary(ctx context.Context, userID int64, year int) (YearSummary, error) {
	if year == 0 {
		year = s.now().Year()
	}
	activities, err := s.repo.ListByUser(ctx, userID, year)
	if err != nil {
		return YearSummary{}, err
	}
	summary := YearSummary{Year: year, ByCategory: make(map[string]float64)}
	for _, a := range activities {
		summary.TotalHours += a.Hours
		summary.ByCategory[a.Category] += a.Hours
		summary.Entries++
	}
	return summary, nil
}

// Remove deletes one of the user's own activities.
func (s *Service) Remove(ctx context.Context, id, userID int64) error {
	return s.repo.Delete(ctx, id, userID)
}
