package pages

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath-foundation/backend/internal/models"
)

// Repository handles static page persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a pages repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Upsert creates or replaces the page at a slug. Pages are keyed by slug so
// the admin panel edits "about" or "contact" without tracking IDs.
func (r *Repository) Upsert(ctx context.Context, p *models.Page) error {
	const q = `INSERT INTO pages (slug, title, body)
		VALUES ($1, $2, $3)
		ON CONFLICT (slug) DO UPDATE SET title = EXCLUDED.title, body = EXCLUDED.body, updated_at = NOW()
		RETURNING id, created_at, updated_at`
	return r.pool.QueryRow(ctx, q, p.Slug, p.Title, p.Body).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

// GetBySlug returns one page.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Page, error) {
	const q = `SELECT id, slug, title, body, created_at, updated_at FROM pages WHERE slug = $1`
	var p models.Page
	err := r.pool.QueryRow(ctx, q, slug).Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// List returns all pages ordered by slug.
func (r *Repository) List(ctx context.Context) ([]models.Page, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, slug, title, body, created_at, updated_at FROM pages ORDER BY slug`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Page
	for rows.Next() {
		var p models.Page
		if err := rows.Scan(&p.ID, &p.Slug, &p.Title, &p.Body, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		list = append(list, p)
	}
	return list, rows.Err()
}

// Delete removes a page.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM pages WHERE id = $1`, id)
	return err
}
