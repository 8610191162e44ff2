package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/hibiken/asynq"
)

// NewsletterDigestJob fans the weekly staff digest out to the mail queue.
type NewsletterDigestJob struct {
	Client *Client
	Logger *slog.Logger
}

// NewNewsletterDigestJob wires dependencies for the digest handler.
func NewNewsletterDigestJob(client *Client, logger *slog.Logger) *NewsletterDigestJob {
	return &NewsletterDigestJob{Client: client, Logger: logger}
}

// Handle processes newsletter digest tasks.
func (j *NewsletterDigestJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Client == nil {
		return errors.New("newsletter digest: handler not configured")
	}
	var payload NewsletterDigestPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	if payload.Edition == "" {
		payload.Edition = time.Now().UTC().Format("2006-01-02")
	}

	// Recipients come from the staff distribution list; delivery itself
	// is handled by the mail task.
	email := SendEmailPayload{
		To:      "all-staff@meridian.local",
		Subject: fmt.Sprintf("Staff newsletter digest %s", payload.Edition),
		Body:    "The latest newsletter edition is available on the hub.",
	}
	if _, err := j.Client.EnqueueSendEmail(ctx, email); err != nil {
		j.logger().Error("enqueue digest email", slog.Any("error", err))
		return err
	}
	j.logger().Info("newsletter digest enqueued", slog.String("edition", payload.Edition))
	return nil
}

func (j *NewsletterDigestJob) logger() *slog.Logger {
	if j != nil && j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}
