package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"platepix/api/internal/models"
)

// LinkRepository persists ownership links. Only the gallery service writes
// through it; the reclaim sweep and lifecycle coordinator never touch links
// directly.
type LinkRepository struct {
	pool *pgxpool.Pool
}

func NewLinkRepository(pool *pgxpool.Pool) *LinkRepository {
	return &LinkRepository{pool: pool}
}

func (r *LinkRepository) ListByRecipe(ctx context.Context, recipeID int64) ([]models.OwnershipLink, error) {
	const query = `
		SELECT recipe_id, image_id, position, created_at
		FROM recipe_images
		WHERE recipe_id = $1
		ORDER BY position
	`
	rows, err := querier(ctx, r.pool).Query(ctx, query, recipeID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var links []models.OwnershipLink
	for rows.Next() {
		var link models.OwnershipLink
		if err := rows.Scan(&link.RecipeID, &link.ImageID, &link.Position, &link.CreatedAt); err != nil {
			return nil, err
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// Create inserts a link, or does nothing if the (recipe, image) pair already
// exists. Two owners racing to link the same image both succeed; the second
// insert is a no-op.
func (r *LinkRepository) Create(ctx context.Context, recipeID, imageID int64, position int) error {
	const query = `
		INSERT INTO recipe_images (recipe_id, image_id, position, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (recipe_id, image_id) DO NOTHING
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query, recipeID, imageID, position)
	return err
}

func (r *LinkRepository) Delete(ctx context.Context, recipeID, imageID int64) error {
	const query = `DELETE FROM recipe_images WHERE recipe_id = $1 AND image_id = $2`
	_, err := querier(ctx, r.pool).Exec(ctx, query, recipeID, imageID)
	return err
}

func (r *LinkRepository) UpdatePosition(ctx context.Context, recipeID, imageID int64, position int) error {
	const query = `
		UPDATE recipe_images SET position = $3
		WHERE recipe_id = $1 AND image_id = $2
	`
	_, err := querier(ctx, r.pool).Exec(ctx, query, recipeID, imageID, position)
	return err
}

// CountByImage is the image's reference count.
func (r *LinkRepository) CountByImage(ctx context.Context, imageID int64) (int, error) {
	const query = `SELECT COUNT(*) FROM recipe_images WHERE image_id = $1`
	var count int
	err := querier(ctx, r.pool).QueryRow(ctx, query, imageID).Scan(&count)
	return count, err
}

// NextPosition returns the next free display slot for the recipe.
func (r *LinkRepository) NextPosition(ctx context.Context, recipeID int64) (int, error) {
	const query = `SELECT COALESCE(MAX(position) + 1, 0) FROM recipe_images WHERE recipe_id = $1`
	var position int
	err := querier(ctx, r.pool).QueryRow(ctx, query, recipeID).Scan(&position)
	return position, err
}
