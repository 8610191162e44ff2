package jobs

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeNewsletterDigest builds and sends the staff newsletter digest.
	TaskTypeNewsletterDigest = "mail:newsletter_digest"
	// TaskTypeAttainmentWarmup pre-computes MLO attainment summaries.
	TaskTypeAttainmentWarmup = "mlo:attainment_warmup"
	// TaskTypeSessionSweep removes expired session rows.
	TaskTypeSessionSweep = "auth:session_sweep"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// HandleSendEmailTask processes TaskTypeSendEmail tasks.
func HandleSendEmailTask(ctx context.Context, t *asynq.Task) error {
	var payload SendEmailPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	// Placeholder: SMTP delivery lands with the notification service.
	fmt.Printf("[jobs] send email to %s subject=%s\n", payload.To, payload.Subject)
	return nil
}

// NewsletterDigestPayload selects the edition to send.
type NewsletterDigestPayload struct {
	Edition string `json:"edition"`
}

// NewNewsletterDigestTask constructs the digest task.
func NewNewsletterDigestTask(payload NewsletterDigestPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeNewsletterDigest, data), nil
}

// NewAttainmentWarmupTask constructs a warmup task with no payload.
func NewAttainmentWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskTypeAttainmentWarmup, nil)
}

// NewSessionSweepTask constructs a session sweep task with no payload.
func NewSessionSweepTask() *asynq.Task {
	return asynq.NewTask(TaskTypeSessionSweep, nil)
}
