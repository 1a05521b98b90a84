package posts

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath-foundation/backend/internal/models"
)

// ErrSlugTaken is returned when a post slug is already in use.
var ErrSlugTaken = errors.New("slug already in use")

// Repository handles blog post persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a posts repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const postColumns = `id, title, slug, excerpt, body, cover_image_url, published, published_at, created_by, created_at, updated_at`

func scanPost(row pgx.Row) (*models.Post, error) {
	var p models.Post
	err := row.Scan(&p.ID, &p.Title, &p.Slug, &p.Excerpt, &p.Body, &p.CoverImageURL,
		&p.Published, &p.PublishedAt, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Create inserts a post. PublishedAt is stamped when the post goes out
// published.
func (r *Repository) Create(ctx context.Context, p *models.Post) error {
	const q = `INSERT INTO posts (title, slug, excerpt, body, cover_image_url, published, published_at, created_by)
		VALUES ($1, $2, $3, $4, $5, $6, CASE WHEN $6 THEN NOW() ELSE NULL END, $7)
		RETURNING id, published_at, created_at, updated_at`
	err := r.pool.QueryRow(ctx, q, p.Title, p.Slug, p.Excerpt, p.Body, p.CoverImageURL, p.Published, p.CreatedBy).
		Scan(&p.ID, &p.PublishedAt, &p.CreatedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

// Update rewrites a post. First publish stamps published_at; unpublishing
// keeps the original timestamp.
func (r *Repository) Update(ctx context.Context, p *models.Post) error {
	const q = `UPDATE posts
		SET title = $1, slug = $2, excerpt = $3, body = $4, cover_image_url = $5, published = $6,
			published_at = CASE WHEN $6 AND published_at IS NULL THEN NOW() ELSE published_at END,
			updated_at = NOW()
		WHERE id = $7
		RETURNING published_at, updated_at`
	err := r.pool.QueryRow(ctx, q, p.Title, p.Slug, p.Excerpt, p.Body, p.CoverImageURL, p.Published, p.ID).
		Scan(&p.PublishedAt, &p.UpdatedAt)
	if isUniqueViolation(err) {
		return ErrSlugTaken
	}
	return err
}

// Delete removes a post.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM posts WHERE id = $1`, id)
	return err
}

// GetByID returns one post.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE id = $1`, id))
}

// GetBySlug returns one published post by slug.
func (r *Repository) GetBySlug(ctx context.Context, slug string) (*models.Post, error) {
	return scanPost(r.pool.QueryRow(ctx, `SELECT `+postColumns+` FROM posts WHERE slug = $1 AND published`, slug))
}

// List returns posts newest-first. publishedOnly hides drafts for the public
// site.
func (r *Repository) List(ctx context.Context, publishedOnly bool) ([]models.Post, error) {
	q := `SELECT ` + postColumns + ` FROM posts`
	if publishedOnly {
		q += ` WHERE published`
	}
	q += ` ORDER BY COALESCE(published_at, created_at) DESC`
	rows, err := r.pool.Query(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.Post
	for rows.Next() {
		p, err := scanPost(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *p)
	}
	return list, rows.Err()
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "23505")
}
