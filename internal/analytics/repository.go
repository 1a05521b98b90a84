package analytics

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath-foundation/backend/internal/models"
)

// Repository persists and aggregates funnel signals.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an analytics repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Insert stores one signal. Called by the worker, not the request path.
func (r *Repository) Insert(ctx context.Context, e *models.AnalyticsEvent) error {
	const q = `INSERT INTO analytics_events (event_slug, signal, step, error_message)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	return r.pool.QueryRow(ctx, q, e.EventSlug, e.Signal, e.Step, e.ErrorMessage).Scan(&e.ID, &e.CreatedAt)
}

// Summary aggregates funnel counts for one event slug.
type Summary struct {
	EventSlug string         `json:"event_slug"`
	Started   int            `json:"started"`
	Completed int            `json:"completed"`
	Failed    int            `json:"failed"`
	ByStep    map[int]int    `json:"failures_by_step,omitempty"`
	TopErrors map[string]int `json:"top_errors,omitempty"`
}

// SummaryForSlug computes the funnel summary for an event.
func (r *Repository) SummaryForSlug(ctx context.Context, slug string) (*Summary, error) {
	out := &Summary{EventSlug: slug, ByStep: map[int]int{}, TopErrors: map[string]int{}}

	const countsQ = `SELECT signal, COUNT(*) FROM analytics_events WHERE event_slug = $1 GROUP BY signal`
	rows, err := r.pool.Query(ctx, countsQ, slug)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var signal string
		var count int
		if err := rows.Scan(&signal, &count); err != nil {
			return nil, err
		}
		switch signal {
		case models.SignalFormStarted:
			out.Started = count
		case models.SignalFormCompleted:
			out.Completed = count
		case models.SignalFormFailed:
			out.Failed = count
		}
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	const stepQ = `SELECT step, COUNT(*) FROM analytics_events
		WHERE event_slug = $1 AND signal = $2 GROUP BY step`
	stepRows, err := r.pool.Query(ctx, stepQ, slug, models.SignalFormFailed)
	if err != nil {
		return nil, err
	}
	defer stepRows.Close()
	for stepRows.Next() {
		var step, count int
		if err := stepRows.Scan(&step, &count); err != nil {
			return nil, err
		}
		out.ByStep[step] = count
	}
	if err := stepRows.Err(); err != nil {
		return nil, err
	}

	const errQ = `SELECT error_message, COUNT(*) FROM analytics_events
		WHERE event_slug = $1 AND signal = $2 AND error_message <> ''
		GROUP BY error_message ORDER BY COUNT(*) DESC LIMIT 10`
	errRows, err := r.pool.Query(ctx, errQ, slug, models.SignalFormFailed)
	if err != nil {
		return nil, err
	}
	defer errRows.Close()
	for errRows.Next() {
		var msg string
		var count int
		if err := errRows.Scan(&msg, &count); err != nil {
			return nil, err
		}
		out.TopErrors[msg] = count
	}
	return out, errRows.Err()
}
