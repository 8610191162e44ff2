package directory

import (
	"context"
	"strings"

	"log/slog"
)

// Service implements directory search and maintenance.
type Service struct {
	repo   *Repository
	logger *slog.Logger
}

// NewService constructs a Service.
func NewService(repo *Repository, logger *slog.Logger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Search lists active entries matching the term. An empty term lists
// everyone, ordered by name.
func (s *Service) Search(ctx context.Context, term string, limit, offset int) ([]Entry, int, error) {
	return s.repo.Search(ctx, strings.TrimSpace(term), limit, offset)
}

// Get fetches one entry.
func (s *Service) Get(ctx context.Context, id int64) (Entry, error) {
	return s.repo.Get(ctx, id)
}

// Create adds a new entry and returns it.
func (s *Service) Create(ctx context.Context, e Entry) (Entry, error) {
	id, err := s.repo.Create(ctx, e)
	if err != nil {
		return Entry{}, err
	}
	return s.repo.Get(ctx, id)
}

// Update replaces an entry's fields.
func (s *Service) Update(ctx context.Context, e Entry) (Entry, error) {
	if err := s.repo.Update(ctx, e); err != nil {
		return Entry{}, err
	}
	return s.repo.Get(ctx, e.ID)
}

// Deactivate hides an entry from search without deleting it.
func (s *Service) Deactivate(ctx context.Context, id int64) error {
	e, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}
	e.IsActive = false
	return s.repo.Update(ctx, e)
}
