package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a foundation event visitors can register for.
type Event struct {
	ID                 uuid.UUID  `json:"id"`
	Title              string     `json:"title"`
	Slug               string     `json:"slug"`
	Description        string     `json:"description"`
	Location           string     `json:"location,omitempty"`
	StartsAt           time.Time  `json:"starts_at"`
	EndsAt             *time.Time `json:"ends_at,omitempty"`
	MaxAttendees       *int       `json:"max_attendees,omitempty"` // nil = unlimited
	AllowRegistration  bool       `json:"allow_registration"`
	RegistrationClosed bool       `json:"registration_closed"`
	CoverImageURL      string     `json:"cover_image_url,omitempty"`
	CreatedBy          uuid.UUID  `json:"created_by"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// EventCapacity is the derived capacity state for an event. CurrentCount
// includes both legacy registrations and dynamic form submissions.
type EventCapacity struct {
	MaxAttendees       *int `json:"max_attendees,omitempty"`
	CurrentCount       int  `json:"current_count"`
	RegistrationClosed bool `json:"registration_closed"`
	AllowRegistration  bool `json:"allow_registration"`
}

// SpotsLeft returns remaining capacity, or nil when unlimited.
func (c EventCapacity) SpotsLeft() *int {
	if c.MaxAttendees == nil {
		return nil
	}
	left := *c.MaxAttendees - c.CurrentCount
	if left < 0 {
		left = 0
	}
	return &left
}

// Open reports whether the event currently accepts registrations at all
// (capacity aside).
func (c EventCapacity) Open() bool {
	return c.AllowRegistration && !c.RegistrationClosed
}
