package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"platepix/api/internal/models"
)

var ErrImageNotFound = errors.New("image not found")

const imageColumns = `
	id, public_id, object_key, file_name, kind, status, uploader_id, position,
	recipe_id, checksum, size_bytes, orphaned_at, deleted_at, delete_scheduled_at,
	created_at, updated_at
`

type ImageRepository struct {
	pool *pgxpool.Pool
}

func NewImageRepository(pool *pgxpool.Pool) *ImageRepository {
	return &ImageRepository{pool: pool}
}

func scanImage(row pgx.Row) (models.Image, error) {
	var image models.Image
	err := row.Scan(
		&image.ID,
		&image.PublicID,
		&image.ObjectKey,
		&image.FileName,
		&image.Kind,
		&image.Status,
		&image.UploaderID,
		&image.Position,
		&image.RecipeID,
		&image.Checksum,
		&image.SizeBytes,
		&image.OrphanedAt,
		&image.DeletedAt,
		&image.DeleteScheduledAt,
		&image.CreatedAt,
		&image.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Image{}, ErrImageNotFound
		}
		return models.Image{}, err
	}
	return image, nil
}

func collectImages(rows pgx.Rows) ([]models.Image, error) {
	defer rows.Close()
	var images []models.Image
	for rows.Next() {
		image, err := scanImage(rows)
		if err != nil {
			return nil, err
		}
		images = append(images, image)
	}
	return images, rows.Err()
}

// Create registers an uploaded image with status processing. The row must
// exist before any ownership link may reference it.
func (r *ImageRepository) Create(ctx context.Context, image models.Image) (int64, error) {
	const query = `
		INSERT INTO images (
			public_id, object_key, file_name, kind, status, uploader_id, position,
			checksum, size_bytes, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, NOW(), NOW()
		)
		RETURNING id
	`

	var id int64
	err := querier(ctx, r.pool).QueryRow(ctx, query,
		image.PublicID,
		image.ObjectKey,
		image.FileName,
		image.Kind,
		image.Status,
		image.UploaderID,
		image.Position,
		image.Checksum,
		image.SizeBytes,
	).Scan(&id)
	return id, err
}

func (r *ImageRepository) GetByPublicID(ctx context.Context, publicID string) (models.Image, error) {
	const query = `SELECT ` + imageColumns + ` FROM images WHERE public_id = $1`
	return scanImage(querier(ctx, r.pool).QueryRow(ctx, query, publicID))
}

func (r *ImageRepository) GetByID(ctx context.Context, id int64) (models.Image, error) {
	const query = `SELECT ` + imageColumns + ` FROM images WHERE id = $1`
	return scanImage(querier(ctx, r.pool).QueryRow(ctx, query, id))
}

// Promote flips a processing image to active and clears its orphan stamp.
func (r *ImageRepository) Promote(ctx context.Context, id int64) error {
	const query = `
		UPDATE images
		SET status = $2, orphaned_at = NULL, updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, id, models.ImageStatusActive)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}

// SetLegacyOwnerIfUnset records the first claiming recipe on the image row.
// A later owner never overwrites an earlier one.
func (r *ImageRepository) SetLegacyOwnerIfUnset(ctx context.Context, id, recipeID int64) error {
	const query = `
		UPDATE images SET recipe_id = $2, updated_at = NOW()
		WHERE id = $1 AND recipe_id IS NULL
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query, id, recipeID)
	return err
}

// MarkOrphaned returns an image with no remaining links to the unclaimed
// state. The orphan stamp restarts the abandonment window so an image dropped
// mid-edit is not collected before the full window elapses again. The legacy
// owner reference is cleared only when it points at the dropping recipe.
func (r *ImageRepository) MarkOrphaned(ctx context.Context, id, recipeID int64, at time.Time) error {
	const query = `
		UPDATE images
		SET status = $3,
		    orphaned_at = $4,
		    recipe_id = NULLIF(recipe_id, $2),
		    updated_at = NOW()
		WHERE id = $1
	`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, id, recipeID, models.ImageStatusProcessing, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrImageNotFound
	}
	return nil
}

// ListAbandoned returns unclaimed images whose abandonment window elapsed
// before the cutoff. An orphan stamp, when present, supersedes creation time.
func (r *ImageRepository) ListAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]models.Image, error) {
	const query = `
		SELECT ` + imageColumns + `
		FROM images
		WHERE status = $1 AND COALESCE(orphaned_at, created_at) < $2
		ORDER BY created_at
		LIMIT $3
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, models.ImageStatusProcessing, cutoff, limit)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

// DeleteIfUnclaimed removes the row only while the image is still in the
// processing state. The single conditional statement is what makes the
// reclaim sweep safe against a concurrent activation: if another transaction
// promoted the image between the candidate read and this delete, zero rows
// match and the caller must leave the backing object alone.
func (r *ImageRepository) DeleteIfUnclaimed(ctx context.Context, id int64) (bool, error) {
	const query = `DELETE FROM images WHERE id = $1 AND status = $2`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, id, models.ImageStatusProcessing)
	if err != nil {
		return false, err
	}
	return cmd.RowsAffected() == 1, nil
}

// SoftDeleteByUploader mirrors the uploader account's deletion schedule onto
// its images. Rows already carrying a schedule are left untouched so a
// running grace period is never extended.
func (r *ImageRepository) SoftDeleteByUploader(ctx context.Context, uploaderID string, deletedAt, scheduledAt time.Time) (int64, error) {
	const query = `
		UPDATE images
		SET deleted_at = $2, delete_scheduled_at = $3, updated_at = NOW()
		WHERE uploader_id = $1 AND deleted_at IS NULL
	`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, uploaderID, deletedAt, scheduledAt)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

func (r *ImageRepository) RestoreByUploader(ctx context.Context, uploaderID string) (int64, error) {
	const query = `
		UPDATE images
		SET deleted_at = NULL, delete_scheduled_at = NULL, updated_at = NOW()
		WHERE uploader_id = $1 AND deleted_at IS NOT NULL
	`
	cmd, err := querier(ctx, r.pool).Exec(ctx, query, uploaderID)
	if err != nil {
		return 0, err
	}
	return cmd.RowsAffected(), nil
}

// ListPurgeable returns the uploader's images whose grace period elapsed at
// or before now.
func (r *ImageRepository) ListPurgeable(ctx context.Context, uploaderID string, now time.Time) ([]models.Image, error) {
	const query = `
		SELECT ` + imageColumns + `
		FROM images
		WHERE uploader_id = $1 AND delete_scheduled_at IS NOT NULL AND delete_scheduled_at <= $2
		ORDER BY created_at
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, uploaderID, now)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

// ListDue returns all images across uploaders whose grace period elapsed.
func (r *ImageRepository) ListDue(ctx context.Context, now time.Time, limit int) ([]models.Image, error) {
	const query = `
		SELECT ` + imageColumns + `
		FROM images
		WHERE delete_scheduled_at IS NOT NULL AND delete_scheduled_at <= $1
		ORDER BY delete_scheduled_at
		LIMIT $2
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, now, limit)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}

func (r *ImageRepository) Delete(ctx context.Context, id int64) error {
	const query = `DELETE FROM images WHERE id = $1`
	_, err := querier(ctx, r.pool).Exec(ctx, query, id)
	return err
}

func (r *ImageRepository) List(ctx context.Context, limit, offset int) ([]models.Image, error) {
	const query = `
		SELECT ` + imageColumns + `
		FROM images
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, limit, offset)
	if err != nil {
		return nil, err
	}
	return collectImages(rows)
}
