package jobs

import (
	"context"
	"errors"

	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridianhealth/meridian-hub/internal/auth"
)

// SessionSweepJob deletes expired rows from the session registry. The
// redis copies expire on their own; this keeps the audit table bounded.
type SessionSweepJob struct {
	Auth   *auth.Service
	Logger *slog.Logger
}

// NewSessionSweepJob wires dependencies for the sweep handler.
func NewSessionSweepJob(authSvc *auth.Service, logger *slog.Logger) *SessionSweepJob {
	return &SessionSweepJob{Auth: authSvc, Logger: logger}
}

// Handle processes session sweep tasks.
func (j *SessionSweepJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Auth == nil {
		return errors.New("session sweep: handler not configured")
	}
	removed, err := j.Auth.SweepExpiredSessions(ctx)
	if err != nil {
		j.logger().Error("sweep expired sessions", slog.Any("error", err))
		return err
	}
	j.logger().Info("session sweep complete", slog.Int64("removed", removed))
	return nil
}

func (j *SessionSweepJob) logger() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
