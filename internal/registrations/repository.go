package registrations

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath-foundation/backend/internal/forms"
	"github.com/brightpath-foundation/backend/internal/models"
)

// Repository handles submission and legacy-registration persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a registrations repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// CreateGuarded inserts a submission after an atomic capacity check. The
// event row is locked for the duration of the transaction so two concurrent
// registrations for the last spot cannot both pass the count.
func (r *Repository) CreateGuarded(ctx context.Context, sub *models.Submission) error {
	responses, err := json.Marshal(sub.Responses)
	if err != nil {
		return fmt.Errorf("marshal responses: %w", err)
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := checkCapacity(ctx, tx, sub.EventID); err != nil {
		return err
	}

	const q = `INSERT INTO submissions (event_id, form_id, email, responses)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`
	if err := tx.QueryRow(ctx, q, sub.EventID, sub.FormID, sub.Email, responses).Scan(&sub.ID, &sub.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// CreateLegacyGuarded inserts a fixed-form registration under the same
// capacity guard as dynamic submissions.
func (r *Repository) CreateLegacyGuarded(ctx context.Context, reg *models.LegacyRegistration) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := checkCapacity(ctx, tx, reg.EventID); err != nil {
		return err
	}

	const q = `INSERT INTO legacy_registrations (event_id, full_name, email, phone, notes)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`
	if err := tx.QueryRow(ctx, q, reg.EventID, reg.FullName, reg.Email, reg.Phone, reg.Notes).Scan(&reg.ID, &reg.CreatedAt); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

// checkCapacity locks the event row and verifies a spot remains. Returns
// forms.ErrNotFound, forms.ErrFormInactive or forms.ErrCapacityExceeded.
func checkCapacity(ctx context.Context, tx pgx.Tx, eventID uuid.UUID) error {
	var maxAttendees *int
	var allow, closed bool
	const lockQ = `SELECT max_attendees, allow_registration, registration_closed FROM events WHERE id = $1 FOR UPDATE`
	if err := tx.QueryRow(ctx, lockQ, eventID).Scan(&maxAttendees, &allow, &closed); err != nil {
		return forms.ErrNotFound
	}
	if !allow || closed {
		return forms.ErrFormInactive
	}
	if maxAttendees == nil {
		return nil
	}

	var count int
	const countQ = `SELECT
		(SELECT COUNT(*) FROM submissions WHERE event_id = $1) +
		(SELECT COUNT(*) FROM legacy_registrations WHERE event_id = $1)`
	if err := tx.QueryRow(ctx, countQ, eventID).Scan(&count); err != nil {
		return err
	}
	if count >= *maxAttendees {
		return forms.ErrCapacityExceeded
	}
	return nil
}

// GetByID returns one submission.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	const q = `SELECT id, event_id, form_id, email, responses, created_at FROM submissions WHERE id = $1`
	var sub models.Submission
	var responses []byte
	err := r.pool.QueryRow(ctx, q, id).Scan(&sub.ID, &sub.EventID, &sub.FormID, &sub.Email, &responses, &sub.CreatedAt)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(responses, &sub.Responses); err != nil {
		return nil, fmt.Errorf("parse responses: %w", err)
	}
	return &sub, nil
}

// ListByEvent returns an event's submissions newest-first.
func (r *Repository) ListByEvent(ctx context.Context, eventID uuid.UUID) ([]models.Submission, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, event_id, form_id, email, responses, created_at FROM submissions WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Submission
	for rows.Next() {
		var sub models.Submission
		var responses []byte
		if err := rows.Scan(&sub.ID, &sub.EventID, &sub.FormID, &sub.Email, &responses, &sub.CreatedAt); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(responses, &sub.Responses); err != nil {
			return nil, fmt.Errorf("parse responses for %s: %w", sub.ID, err)
		}
		list = append(list, sub)
	}
	return list, rows.Err()
}

// ListLegacyByEvent returns an event's fixed-form registrations newest-first.
func (r *Repository) ListLegacyByEvent(ctx context.Context, eventID uuid.UUID) ([]models.LegacyRegistration, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, event_id, full_name, email, phone, notes, created_at FROM legacy_registrations WHERE event_id = $1 ORDER BY created_at DESC`, eventID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.LegacyRegistration
	for rows.Next() {
		var reg models.LegacyRegistration
		if err := rows.Scan(&reg.ID, &reg.EventID, &reg.FullName, &reg.Email, &reg.Phone, &reg.Notes, &reg.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, reg)
	}
	return list, rows.Err()
}

// CountByEvent returns how many registrations (both kinds) an event has.
func (r *Repository) CountByEvent(ctx context.Context, eventID uuid.UUID) (int, error) {
	const q = `SELECT
		(SELECT COUNT(*) FROM submissions WHERE event_id = $1) +
		(SELECT COUNT(*) FROM legacy_registrations WHERE event_id = $1)`
	var count int
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&count)
	return count, err
}
