package models

import (
	"time"

	"github.com/google/uuid"
)

// FileValue is the stored response value for a FILE field. The client reports
// name/size/type at intake; the server re-checks them and owns StorageKey.
type FileValue struct {
	Name        string `json:"name"`
	Size        int64  `json:"size"`
	ContentType string `json:"content_type"`
	StorageKey  string `json:"storage_key,omitempty"`
	URL         string `json:"url,omitempty"`
}

// Submission is one visitor's validated set of responses to a dynamic form.
// Responses map FieldDefinition.ID (as string) to a string, bool, number or
// FileValue. Immutable once created; keys may outlive their field definition.
type Submission struct {
	ID        uuid.UUID      `json:"id"`
	EventID   uuid.UUID      `json:"event_id"`
	FormID    uuid.UUID      `json:"form_id"`
	Email     string         `json:"email,omitempty"` // denormalized for quick display
	Responses map[string]any `json:"responses"`
	CreatedAt time.Time      `json:"created_at"`
}

// LegacyRegistration is a fixed-form registration, used when an event has no
// active dynamic form. It counts against the same capacity as submissions.
type LegacyRegistration struct {
	ID        uuid.UUID `json:"id"`
	EventID   uuid.UUID `json:"event_id"`
	FullName  string    `json:"full_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone,omitempty"`
	Notes     string    `json:"notes,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
