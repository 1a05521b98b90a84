package formfields

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath-foundation/backend/internal/models"
)

// Repository handles registration-form and field-definition persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a form-fields repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const fieldColumns = `id, form_id, label, placeholder, field_type, options, required, sort_order, step, conditional_logic, max_file_size, accepted_types, created_at, updated_at`

func scanField(row pgx.Row) (*models.FieldDefinition, error) {
	var f models.FieldDefinition
	var options, conditional []byte
	err := row.Scan(&f.ID, &f.FormID, &f.Label, &f.Placeholder, &f.Type, &options, &f.Required,
		&f.Order, &f.Step, &conditional, &f.MaxFileSize, &f.AcceptedTypes, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if len(options) > 0 {
		if err := json.Unmarshal(options, &f.Options); err != nil {
			return nil, fmt.Errorf("parse options for field %s: %w", f.ID, err)
		}
	}
	if len(conditional) > 0 {
		var rule models.ConditionalRule
		if err := json.Unmarshal(conditional, &rule); err != nil {
			return nil, fmt.Errorf("parse conditional logic for field %s: %w", f.ID, err)
		}
		f.Conditional = &rule
	}
	return &f, nil
}

// GetFormByEventID returns the event's registration form with its fields in
// step/order sequence, or nil when the event has no form yet.
func (r *Repository) GetFormByEventID(ctx context.Context, eventID uuid.UUID) (*models.RegistrationForm, error) {
	const q = `SELECT id, event_id, is_active, total_steps, created_at, updated_at
		FROM registration_forms WHERE event_id = $1`
	var form models.RegistrationForm
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&form.ID, &form.EventID, &form.IsActive, &form.TotalSteps, &form.CreatedAt, &form.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	fields, err := r.GetFields(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	form.Fields = fields
	return &form, nil
}

// EnsureForm returns the event's registration form, creating an inactive
// single-step form on first use.
func (r *Repository) EnsureForm(ctx context.Context, eventID uuid.UUID) (*models.RegistrationForm, error) {
	const q = `INSERT INTO registration_forms (event_id)
		VALUES ($1)
		ON CONFLICT (event_id) DO UPDATE SET updated_at = registration_forms.updated_at
		RETURNING id, event_id, is_active, total_steps, created_at, updated_at`
	var form models.RegistrationForm
	err := r.pool.QueryRow(ctx, q, eventID).Scan(&form.ID, &form.EventID, &form.IsActive, &form.TotalSteps, &form.CreatedAt, &form.UpdatedAt)
	if err != nil {
		return nil, err
	}
	fields, err := r.GetFields(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	form.Fields = fields
	return &form, nil
}

// GetFormByID returns a form without its fields.
func (r *Repository) GetFormByID(ctx context.Context, formID uuid.UUID) (*models.RegistrationForm, error) {
	const q = `SELECT id, event_id, is_active, total_steps, created_at, updated_at
		FROM registration_forms WHERE id = $1`
	var form models.RegistrationForm
	err := r.pool.QueryRow(ctx, q, formID).Scan(&form.ID, &form.EventID, &form.IsActive, &form.TotalSteps, &form.CreatedAt, &form.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &form, nil
}

// UpdateFormConfig sets the form's active flag and step count.
func (r *Repository) UpdateFormConfig(ctx context.Context, formID uuid.UUID, isActive bool, totalSteps int) error {
	const q = `UPDATE registration_forms SET is_active = $1, total_steps = $2, updated_at = NOW() WHERE id = $3`
	_, err := r.pool.Exec(ctx, q, isActive, totalSteps, formID)
	return err
}

// GetFields returns all field definitions for a form, ordered by step then
// intra-step order.
func (r *Repository) GetFields(ctx context.Context, formID uuid.UUID) ([]models.FieldDefinition, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+fieldColumns+` FROM form_fields WHERE form_id = $1 ORDER BY step, sort_order, created_at`, formID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.FieldDefinition
	for rows.Next() {
		f, err := scanField(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *f)
	}
	return list, rows.Err()
}

// GetField returns one field definition.
func (r *Repository) GetField(ctx context.Context, fieldID uuid.UUID) (*models.FieldDefinition, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+fieldColumns+` FROM form_fields WHERE id = $1`, fieldID)
	return scanField(row)
}

// AddField inserts a field definition at the end of its step.
func (r *Repository) AddField(ctx context.Context, f *models.FieldDefinition) error {
	options, conditional, err := encodeFieldJSON(f)
	if err != nil {
		return err
	}
	const q = `INSERT INTO form_fields (form_id, label, placeholder, field_type, options, required, sort_order, step, conditional_logic, max_file_size, accepted_types)
		VALUES ($1, $2, $3, $4, $5, $6,
			COALESCE((SELECT MAX(sort_order) + 1 FROM form_fields WHERE form_id = $1 AND step = $7), 0),
			$7, $8, $9, $10)
		RETURNING id, sort_order, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, f.FormID, f.Label, f.Placeholder, string(f.Type), options, f.Required, f.Step, conditional, f.MaxFileSize, f.AcceptedTypes).
		Scan(&f.ID, &f.Order, &f.CreatedAt, &f.UpdatedAt)
}

// UpdateField rewrites a field definition.
func (r *Repository) UpdateField(ctx context.Context, f *models.FieldDefinition) error {
	options, conditional, err := encodeFieldJSON(f)
	if err != nil {
		return err
	}
	const q = `UPDATE form_fields
		SET label = $1, placeholder = $2, field_type = $3, options = $4, required = $5,
			step = $6, conditional_logic = $7, max_file_size = $8, accepted_types = $9, updated_at = NOW()
		WHERE id = $10`
	_, err = r.pool.Exec(ctx, q, f.Label, f.Placeholder, string(f.Type), options, f.Required, f.Step, conditional, f.MaxFileSize, f.AcceptedTypes, f.ID)
	return err
}

// DeleteField removes a field definition. Stored submissions keep their
// responses keyed by the now-orphaned field id; exports skip them.
func (r *Repository) DeleteField(ctx context.Context, fieldID uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM form_fields WHERE id = $1`, fieldID)
	return err
}

// Reorder moves a field up or down one slot within its step by swapping
// sort_order with its neighbor, in one transaction.
func (r *Repository) Reorder(ctx context.Context, fieldID uuid.UUID, direction string) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var formID uuid.UUID
	var step, order int
	err = tx.QueryRow(ctx, `SELECT form_id, step, sort_order FROM form_fields WHERE id = $1 FOR UPDATE`, fieldID).
		Scan(&formID, &step, &order)
	if err != nil {
		return err
	}

	cmp, sortDir := "<", "DESC"
	if direction == "down" {
		cmp, sortDir = ">", "ASC"
	}
	var neighborID uuid.UUID
	var neighborOrder int
	q := fmt.Sprintf(`SELECT id, sort_order FROM form_fields
		WHERE form_id = $1 AND step = $2 AND sort_order %s $3
		ORDER BY sort_order %s LIMIT 1 FOR UPDATE`, cmp, sortDir)
	err = tx.QueryRow(ctx, q, formID, step, order).Scan(&neighborID, &neighborOrder)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil // already at the edge
	}
	if err != nil {
		return err
	}

	if _, err := tx.Exec(ctx, `UPDATE form_fields SET sort_order = $1, updated_at = NOW() WHERE id = $2`, neighborOrder, fieldID); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx, `UPDATE form_fields SET sort_order = $1, updated_at = NOW() WHERE id = $2`, order, neighborID); err != nil {
		return err
	}
	return tx.Commit(ctx)
}

func encodeFieldJSON(f *models.FieldDefinition) (options, conditional []byte, err error) {
	if len(f.Options) > 0 {
		options, err = json.Marshal(f.Options)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal options: %w", err)
		}
	}
	if f.Conditional != nil {
		conditional, err = json.Marshal(f.Conditional)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal conditional logic: %w", err)
		}
	}
	return options, conditional, nil
}
