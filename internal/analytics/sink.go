// Package analytics records registration-funnel signals. Signals are fire
// and forget: recording one must never slow down or fail a registration, so
// the sink enqueues to Redis and the worker persists rows off the hot path.
package analytics

import (
	"context"

	"go.uber.org/zap"

	"github.com/brightpath-foundation/backend/internal/models"
	"github.com/brightpath-foundation/backend/pkg/queue"
)

// Sink receives funnel signals. Implementations must not block or return
// errors to callers; failures are logged and dropped.
type Sink interface {
	Record(ctx context.Context, signal models.AnalyticsEvent)
}

// QueueSink pushes signals onto the Redis analytics queue.
type QueueSink struct {
	queue  *queue.Queue
	logger *zap.Logger
}

// NewQueueSink creates a queue-backed sink.
func NewQueueSink(q *queue.Queue, logger *zap.Logger) *QueueSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &QueueSink{queue: q, logger: logger}
}

// Record enqueues the signal. Dropped with a log line on failure.
func (s *QueueSink) Record(ctx context.Context, signal models.AnalyticsEvent) {
	err := s.queue.EnqueueAnalytics(ctx, queue.AnalyticsPayload{
		EventSlug:    signal.EventSlug,
		Signal:       signal.Signal,
		Step:         signal.Step,
		ErrorMessage: signal.ErrorMessage,
	})
	if err != nil {
		s.logger.Warn("analytics signal dropped", zap.Error(err),
			zap.String("event_slug", signal.EventSlug), zap.String("signal", signal.Signal))
	}
}

// NopSink discards all signals. Used when Redis is not configured and in
// tests.
type NopSink struct{}

func (NopSink) Record(context.Context, models.AnalyticsEvent) {}
