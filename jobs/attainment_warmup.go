package jobs

import (
	"context"
	"errors"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"

	"github.com/meridianhealth/meridian-hub/internal/mlo"
)

// AttainmentWarmupJob pre-populates the attainment cache so the first
// dashboard load of the day does not pay the aggregation cost.
type AttainmentWarmupJob struct {
	Targets    *mlo.Service
	Attainment *mlo.AttainmentReader
	Logger     *slog.Logger
	clock      func() time.Time
}

// NewAttainmentWarmupJob wires dependencies for the warmup handler.
func NewAttainmentWarmupJob(targets *mlo.Service, attainment *mlo.AttainmentReader, logger *slog.Logger) *AttainmentWarmupJob {
	return &AttainmentWarmupJob{
		Targets:    targets,
		Attainment: attainment,
		Logger:     logger,
		clock: func() time.Time {
			return time.Now().UTC()
		},
	}
}

// Handle processes attainment warmup tasks.
func (j *AttainmentWarmupJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Targets == nil || j.Attainment == nil {
		return errors.New("attainment warmup: handler not configured")
	}
	logger := j.logger()
	logger.Info("starting attainment warmup")

	targets, err := j.Targets.ListTargets(ctx, mlo.TargetFilter{CurrentOnly: true})
	if err != nil {
		logger.Error("list current targets", slog.Any("error", err))
		return err
	}

	seen := make(map[int64]struct{})
	warmed := 0
	for _, target := range targets {
		if _, ok := seen[target.UserID]; ok {
			continue
		}
		seen[target.UserID] = struct{}{}
		if _, err := j.Attainment.Summary(ctx, target.UserID); err != nil {
			logger.Error("warm attainment", slog.Int64("user_id", target.UserID), slog.Any("error", err))
			return err
		}
		warmed++
	}

	logger.Info("attainment warmup complete", slog.Int("users", warmed))
	return nil
}

func (j *AttainmentWarmupJob) logger() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
