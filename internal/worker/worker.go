// Package worker runs the background job loop: confirmation emails over SMTP
// and registration-funnel signals into Postgres, both fed by the Redis queue.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/analytics"
	"github.com/brightpath-foundation/backend/internal/emaillogs"
	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/mailer"
	"github.com/brightpath-foundation/backend/pkg/queue"
)

// Processor consumes jobs from the Redis queue.
type Processor struct {
	emailRepo     *emaillogs.Repository
	analyticsRepo *analytics.Repository
	mailer        *mailer.Mailer
	queue         *queue.Queue
	logger        *zap.Logger
}

// NewProcessor creates the job processor. mailer may be nil; email jobs are
// then logged as failed instead of silently lost.
func NewProcessor(emailRepo *emaillogs.Repository, analyticsRepo *analytics.Repository, m *mailer.Mailer, q *queue.Queue, logger *zap.Logger) *Processor {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Processor{emailRepo: emailRepo, analyticsRepo: analyticsRepo, mailer: m, queue: q, logger: logger}
}

// Process executes one job.
func (p *Processor) Process(ctx context.Context, job *queue.Job) error {
	switch job.Type {
	case queue.JobTypeEmail:
		return p.processEmail(ctx, job)
	case queue.JobTypeAnalytics:
		return p.processAnalytics(ctx, job)
	}
	return fmt.Errorf("unknown job type: %s", job.Type)
}

func (p *Processor) processEmail(ctx context.Context, job *queue.Job) error {
	var payload queue.EmailPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal email payload: %w", err)
	}

	log := &models.EmailLog{
		EmailType:      payload.EmailType,
		RecipientEmail: payload.RecipientEmail,
		Subject:        payload.Subject,
		Status:         models.EmailLogStatusPending,
	}
	if payload.EventID != uuid.Nil {
		eventID := payload.EventID
		log.EventID = &eventID
	}
	if payload.SubmissionID != uuid.Nil {
		submissionID := payload.SubmissionID
		log.SubmissionID = &submissionID
	}
	if err := p.emailRepo.Create(ctx, log); err != nil {
		return fmt.Errorf("create email log: %w", err)
	}

	if p.mailer == nil {
		_ = p.emailRepo.MarkFailed(ctx, log.ID, "smtp not configured")
		p.logger.Warn("email dropped, smtp not configured", zap.String("recipient", payload.RecipientEmail))
		return nil
	}

	if err := p.mailer.Send(payload.RecipientEmail, payload.Subject, payload.BodyHTML); err != nil {
		_ = p.emailRepo.MarkFailed(ctx, log.ID, err.Error())
		return fmt.Errorf("send email: %w", err)
	}
	if err := p.emailRepo.MarkSent(ctx, log.ID); err != nil {
		p.logger.Error("mark email sent failed", zap.Error(err), zap.String("email_log_id", log.ID.String()))
	}
	p.logger.Info("email sent", zap.String("recipient", payload.RecipientEmail), zap.String("type", payload.EmailType))
	return nil
}

func (p *Processor) processAnalytics(ctx context.Context, job *queue.Job) error {
	var payload queue.AnalyticsPayload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return fmt.Errorf("unmarshal analytics payload: %w", err)
	}

	signal := &models.AnalyticsEvent{
		EventSlug:    payload.EventSlug,
		Signal:       payload.Signal,
		Step:         payload.Step,
		ErrorMessage: payload.ErrorMessage,
	}
	if err := p.analyticsRepo.Insert(ctx, signal); err != nil {
		return fmt.Errorf("insert analytics event: %w", err)
	}
	return nil
}

// Run starts the worker loop: dequeue, process, retry on error.
func (p *Processor) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			p.logger.Info("worker stopping")
			return
		default:
		}

		job, fromQueue, err := p.queue.Dequeue(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			p.logger.Warn("dequeue error", zap.Error(err))
			time.Sleep(queue.RetryBackoff)
			continue
		}
		if job == nil {
			continue
		}

		p.logger.Debug("processing job", zap.String("job_id", job.ID), zap.String("type", string(job.Type)))
		if err := p.Process(ctx, job); err != nil {
			p.logger.Error("job failed", zap.String("job_id", job.ID), zap.Error(err))
			if reErr := p.queue.Retry(ctx, job, fromQueue); reErr != nil {
				p.logger.Error("retry enqueue failed", zap.Error(reErr))
			}
			time.Sleep(queue.RetryBackoff)
			continue
		}
	}
}
