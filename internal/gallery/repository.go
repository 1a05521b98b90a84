package gallery

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/brightpath-foundation/backend/internal/models"
)

// Repository handles gallery item persistence.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a gallery repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Create inserts a gallery item at the end of the ordering.
func (r *Repository) Create(ctx context.Context, item *models.GalleryItem) error {
	const q = `INSERT INTO gallery_items (id, caption, storage_key, url, content_type, file_size, sort_order)
		VALUES ($1, $2, $3, $4, $5, $6,
			COALESCE((SELECT MAX(sort_order) + 1 FROM gallery_items), 0))
		RETURNING sort_order, created_at`
	return r.pool.QueryRow(ctx, q, item.ID, item.Caption, item.StorageKey, item.URL, item.ContentType, item.FileSize).
		Scan(&item.SortOrder, &item.CreatedAt)
}

// GetByID returns one gallery item.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (*models.GalleryItem, error) {
	const q = `SELECT id, caption, storage_key, url, content_type, file_size, sort_order, created_at FROM gallery_items WHERE id = $1`
	var item models.GalleryItem
	err := r.pool.QueryRow(ctx, q, id).Scan(&item.ID, &item.Caption, &item.StorageKey, &item.URL,
		&item.ContentType, &item.FileSize, &item.SortOrder, &item.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &item, nil
}

// List returns all gallery items in display order.
func (r *Repository) List(ctx context.Context) ([]models.GalleryItem, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, caption, storage_key, url, content_type, file_size, sort_order, created_at FROM gallery_items ORDER BY sort_order, created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var list []models.GalleryItem
	for rows.Next() {
		var item models.GalleryItem
		if err := rows.Scan(&item.ID, &item.Caption, &item.StorageKey, &item.URL,
			&item.ContentType, &item.FileSize, &item.SortOrder, &item.CreatedAt); err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	return list, rows.Err()
}

// UpdateCaption sets a gallery item's caption.
func (r *Repository) UpdateCaption(ctx context.Context, id uuid.UUID, caption string) error {
	_, err := r.pool.Exec(ctx, `UPDATE gallery_items SET caption = $1 WHERE id = $2`, caption, id)
	return err
}

// Delete removes a gallery item row. The S3 object is removed by the caller.
func (r *Repository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := r.pool.Exec(ctx, `DELETE FROM gallery_items WHERE id = $1`, id)
	return err
}
