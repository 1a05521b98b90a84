package events

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath-foundation/backend/internal/models"
)

// ErrSlugTaken is returned when an event slug is already in use.
var ErrSlugTaken = errors.New("slug already in use")

// Repository handles event persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates an events repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const eventColumns = `id, title, slug, description, location, starts_at, ends_at, max_attendees, allow_registration, registration_closed, cover_image_url, created_by, created_at, updated_at`

func scanEvent(row pgx.Row) (*models.Event, error) {
	var e models.Event
	err := row.Scan(&e.ID, &e.Title, &e.Slug, &e.Description, &e.Location, &e.StartsAt, &e.EndsAt,
		&e.MaxAttendees, &e.AllowRegistration, &e.RegistrationClosed, &e.CoverImageURL,
		&e.CreatedBy, &e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &e, nil
}

// Create inserts a new event.
func (r *Repository) Create(ctx context.Context, e *models.Event) error {
	const q = `INSERT INTO events (title, slug, description, location, starts_at, ends_at, max_attendees, allow_registration, registration_closed, cover_image_url, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, e.Title, e.Slug, e.Description, e.Location, e.StartsAt, e.EndsAt,
		e.MaxAttendees, e.AllowRegistration, e.RegistrationClosed, e.CoverImageURL, e.CreatedBy).
		Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

// Update rewrites an event.
func (r *Repository) Update(ctx context.Context, e *models.Event) error {
	const q = `UPDATE events
		SET title = $1, slug = $2, description = $3, location = $4, starts_at = $5, ends_at = $6,
			max_attendees = $7, allow_registration = $8, registration_closed = $9, cover_image_url = $10, updated_at = NOW()
		WHERE id = $11`
	_, err := r.pool.Exec(ctx, q, e.Title, e.Slug, e.Description, e.Location, e.StartsAt, e.EndsAt,
		e.MaxAttendees, e.AllowRegistration, e.RegistrationClosed, e.CoverImageURL, e.ID)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

// Delete removes an event and everything hanging off it (forms, fields,
// submissions cascade in the schema).
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	return err
}

// GetByID returns one event.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
}

// GetBySlug returns one event by its public slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Event, error) {
	return scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE slug = $1`, slug))
}

// List returns events newest-first. When upcomingOnly is set, past events are
// filtered out.
func (r *Repository) List(ctx context.Context, upcomingOnly bool) ([]models.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events`
	if upcomingOnly {
		q += ` WHERE starts_at >= NOW()`
	}
	q += ` ORDER BY starts_at DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Event
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *e)
	}
	return list, rows.Err()
}

// Capacity returns the event's derived capacity state. The count covers both
// dynamic-form submissions and legacy registrations.
func (r *Repository) Capacity(ctx context.Context, eventID uuid.UUID) (*models.EventCapacity, error) {
	const q = `SELECT e.max_attendees, e.allow_registration, e.registration_closed,
			(SELECT COUNT(*) FROM submissions s WHERE s.event_id = e.id) +
			(SELECT COUNT(*) FROM legacy_registrations l WHERE l.event_id = e.id)
		FROM events e WHERE e.id = $1`
	var cap models.EventCapacity
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&cap.MaxAttendees, &cap.AllowRegistration, &cap.RegistrationClosed, &cap.CurrentCount)
	if err != nil {
		return nil, err
	}
	return &cap, nil
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}

var slugPattern = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a title into a URL-safe slug.
func Slugify(title string) string {
	s := slugPattern.ReplaceAllString(strings.ToLower(title), "-")
	s = strings.Trim(s, "-")
	if s == "" {
		s = fmt.Sprintf("event-%s", uuid.NewString()[:8])
	}
	return s
}
