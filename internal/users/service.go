package users

import "context"

// RepositoryPort defines data access methods for users.
type RepositoryPort interface {
	ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int, error)
	GetUser(ctx context.Context, id int64) (User, error)
	ListAssignments(ctx context.Context, userID int64) ([]RoleAssignment, error)
	AssignRole(ctx context.Context, userID, roleID int64) error
	RemoveRole(ctx context.Context, userID, roleID int64) error
}

// Service handles user administration logic.
type Service struct {
	repo RepositoryPort
}

// NewService builds a Service instance.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

// ListUsers returns users matching the search term.
func (s *Service) ListUsers(ctx context.Context, search string, limit, offset int) ([]User, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListUsers(ctx, search, limit, offset)
}

// GetUser fetches one user with their role assignments.
func (s *Service) GetUser(ctx context.Context, id int64) (User, []RoleAssignment, error) {
	user, err := s.repo.GetUser(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	assignments, err := s.repo.ListAssignments(ctx, id)
	if err != nil {
		return User{}, nil, err
	}
	return user, assignments, nil
}

// AssignRole links a role to a user.
func (s *Service) AssignRole(ctx context.Context, userID, roleID int64) error {
	if _, err := s.repo.GetUser(ctx, userID); err != nil {
		return err
	}
	return s.repo.AssignRole(ctx, userID, roleID)
}

// RemoveRole unlinks a role from a user.
func (s *Service) RemoveRole(ctx context.Context, userID, roleID int64) error {
	return s.repo.RemoveRole(ctx, userID, roleID)
}
