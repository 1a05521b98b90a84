package settings

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath-foundation/backend/internal/models"
)

// Repository handles site settings persistence. Values are arbitrary JSON so
// the admin panel can store contact info, social links or feature toggles
// without schema changes.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a settings repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Set upserts one setting. value must be valid JSON.
func (r *Repository) Set(ctx context.Context, key string, value json.RawMessage) (*models.Setting, error) {
	if !json.Valid(value) {
		return nil, fmt.Errorf("setting %q: value is not valid JSON", key)
	}
	const q = `INSERT INTO settings (key, value)
		VALUES ($1, $2)
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
		RETURNING updated_at`
	s := &models.Setting{Key: key, Value: string(value)}
	if err := r.pool.QueryRow(ctx, q, key, value).Scan(&s.UpdatedAt); err != nil {
		return nil, err
	}
	return s, nil
}

// Get returns one setting.
func (r *Repository) Get(ctx context.Context, key string) (*models.Setting, error) {
	const q = `SELECT key, value, updated_at FROM settings WHERE key = $1`
	var s models.Setting
	var value []byte
	if err := r.pool.QueryRow(ctx, q, key).Scan(&s.Key, &value, &s.UpdatedAt); err != nil {
		return nil, err
	}
	s.Value = string(value)
	return &s, nil
}

// List returns all settings ordered by key.
func (r *Repository) List(ctx context.Context) ([]models.Setting, error) {
	rows, err := r.pool.Query(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Setting
	for rows.Next() {
		var s models.Setting
		var value []byte
		if err := rows.Scan(&s.Key, &value, &s.UpdatedAt); err != nil {
			return nil, err
		}
		s.Value = string(value)
		list = append(list, s)
	}
	return list, rows.Err()
}
