package models

import (
	"time"

	"github.com/google/uuid"
)

// Registration-funnel signal names.
const (
	SignalFormStarted   = "form_started"
	SignalFormCompleted = "form_completed"
	SignalFormFailed    = "form_failed"
)

// AnalyticsEvent is one tracked registration-funnel signal (started, step
// reached, completed, error shown).
type AnalyticsEvent struct {
	ID           uuid.UUID `json:"id"`
	EventSlug    string    `json:"event_slug"`
	Signal       string    `json:"signal"`
	Step         int       `json:"step"`
	ErrorMessage string    `json:"error_message,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}
