package database

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS recipes (
		id         BIGSERIAL PRIMARY KEY,
		public_id  TEXT NOT NULL UNIQUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS images (
		id                  BIGSERIAL PRIMARY KEY,
		public_id           TEXT NOT NULL UNIQUE,
		object_key          TEXT NOT NULL,
		file_name           TEXT NOT NULL,
		kind                TEXT NOT NULL,
		status              TEXT NOT NULL,
		uploader_id         TEXT NOT NULL,
		position            INT NOT NULL DEFAULT 0,
		recipe_id           BIGINT REFERENCES recipes(id) ON DELETE SET NULL,
		checksum            BYTEA,
		size_bytes          BIGINT NOT NULL DEFAULT 0,
		orphaned_at         TIMESTAMPTZ,
		deleted_at          TIMESTAMPTZ,
		delete_scheduled_at TIMESTAMPTZ,
		created_at          TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		updated_at          TIMESTAMPTZ NOT NULL DEFAULT NOW()
	)`,
	`CREATE TABLE IF NOT EXISTS recipe_images (
		recipe_id  BIGINT NOT NULL REFERENCES recipes(id) ON DELETE CASCADE,
		image_id   BIGINT NOT NULL REFERENCES images(id) ON DELETE CASCADE,
		position   INT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		PRIMARY KEY (recipe_id, image_id)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_images_status_created ON images (status, created_at)`,
	`CREATE INDEX IF NOT EXISTS idx_images_uploader ON images (uploader_id)`,
	`CREATE INDEX IF NOT EXISTS idx_images_delete_scheduled ON images (delete_scheduled_at) WHERE delete_scheduled_at IS NOT NULL`,
	`CREATE INDEX IF NOT EXISTS idx_recipe_images_image ON recipe_images (image_id)`,
}

// Migrate applies the schema. Every statement is idempotent so running it on
// boot is safe for all instances.
func Migrate(ctx context.Context, pool *pgxpool.Pool) error {
	for i, stmt := range migrations {
		if _, err := pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}
	return nil
}
