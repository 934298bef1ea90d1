package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"platepix/api/internal/models"
)

var ErrRecipeNotFound = errors.New("recipe not found")

// RecipeRepository holds the owning side of ownership links. Recipes are
// opaque here; everything beyond identity belongs to the recipe service.
type RecipeRepository struct {
	pool *pgxpool.Pool
}

func NewRecipeRepository(pool *pgxpool.Pool) *RecipeRepository {
	return &RecipeRepository{pool: pool}
}

func (r *RecipeRepository) Create(ctx context.Context, publicID string) (models.Recipe, error) {
	const query = `
		INSERT INTO recipes (public_id, created_at)
		VALUES ($1, NOW())
		RETURNING id, public_id, created_at
	`
	var recipe models.Recipe
	err := querier(ctx, r.pool).QueryRow(ctx, query, publicID).
		Scan(&recipe.ID, &recipe.PublicID, &recipe.CreatedAt)
	return recipe, err
}

func (r *RecipeRepository) GetByPublicID(ctx context.Context, publicID string) (models.Recipe, error) {
	const query = `SELECT id, public_id, created_at FROM recipes WHERE public_id = $1`
	var recipe models.Recipe
	if err := querier(ctx, r.pool).QueryRow(ctx, query, publicID).
		Scan(&recipe.ID, &recipe.PublicID, &recipe.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Recipe{}, ErrRecipeNotFound
		}
		return models.Recipe{}, err
	}
	return recipe, nil
}

func (r *RecipeRepository) GetByID(ctx context.Context, id int64) (models.Recipe, error) {
	const query = `SELECT id, public_id, created_at FROM recipes WHERE id = $1`
	var recipe models.Recipe
	if err := querier(ctx, r.pool).QueryRow(ctx, query, id).
		Scan(&recipe.ID, &recipe.PublicID, &recipe.CreatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return models.Recipe{}, ErrRecipeNotFound
		}
		return models.Recipe{}, err
	}
	return recipe, nil
}
