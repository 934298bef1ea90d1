package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"platepix/api/internal/models"
)

type lifecycleStore interface {
	SoftDeleteByUploader(ctx context.Context, uploaderID string, deletedAt, scheduledAt time.Time) (int64, error)
	RestoreByUploader(ctx context.Context, uploaderID string) (int64, error)
	ListPurgeable(ctx context.Context, uploaderID string, now time.Time) ([]models.Image, error)
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.Image, error)
	Delete(ctx context.Context, id int64) error
}

// LifecycleService keeps image deletion schedules in lockstep with the
// uploader account. Images never get a deletion timeline of their own; every
// schedule here is copied from, or cleared with, the account's.
type LifecycleService struct {
	images lifecycleStore
	store  objectRemover
	batch  int
	log    zerolog.Logger
	now    func() time.Time
}

func NewLifecycleService(images lifecycleStore, store objectRemover, batch int, log zerolog.Logger) *LifecycleService {
	if batch <= 0 {
		batch = 500
	}
	return &LifecycleService{
		images: images,
		store:  store,
		batch:  batch,
		log:    log,
		now:    time.Now,
	}
}

// SoftDeleteByUploader mirrors the account's schedule onto all of the
// uploader's images. Images already soft-deleted keep their earlier, shorter
// schedule; a cascading call never extends a running grace period.
func (s *LifecycleService) SoftDeleteByUploader(ctx context.Context, uploaderID string, deletedAt, scheduledAt time.Time) error {
	affected, err := s.images.SoftDeleteByUploader(ctx, uploaderID, deletedAt, scheduledAt)
	if err != nil {
		return fmt.Errorf("soft delete by uploader %s: %w", uploaderID, err)
	}
	s.log.Info().
		Str("uploader_id", uploaderID).
		Int64("images", affected).
		Time("delete_scheduled_at", scheduledAt).
		Msg("images soft-deleted with uploader account")
	return nil
}

// RestoreByUploader clears the schedule on every image soft-deleted for the
// uploader. A no-op when the account was never soft-deleted.
func (s *LifecycleService) RestoreByUploader(ctx context.Context, uploaderID string) error {
	affected, err := s.images.RestoreByUploader(ctx, uploaderID)
	if err != nil {
		return fmt.Errorf("restore by uploader %s: %w", uploaderID, err)
	}
	s.log.Info().
		Str("uploader_id", uploaderID).
		Int64("images", affected).
		Msg("images restored with uploader account")
	return nil
}

// PurgeExpired hard-deletes the uploader's images whose grace period has
// elapsed. Called as part of the account purge cascade so a purged account
// leaves no image rows behind.
func (s *LifecycleService) PurgeExpired(ctx context.Context, uploaderID string) (int, error) {
	images, err := s.images.ListPurgeable(ctx, uploaderID, s.now().UTC())
	if err != nil {
		return 0, fmt.Errorf("list purgeable for uploader %s: %w", uploaderID, err)
	}
	return s.purge(ctx, images), nil
}

// PurgeDue hard-deletes images across all uploaders whose schedule elapsed.
// Run periodically as a safety net behind the account-driven cascade.
func (s *LifecycleService) PurgeDue(ctx context.Context) (int, error) {
	images, err := s.images.ListDue(ctx, s.now().UTC(), s.batch)
	if err != nil {
		return 0, fmt.Errorf("list due: %w", err)
	}
	return s.purge(ctx, images), nil
}

func (s *LifecycleService) purge(ctx context.Context, images []models.Image) int {
	purged := 0
	for _, image := range images {
		if err := s.images.Delete(ctx, image.ID); err != nil {
			s.log.Error().Err(err).Int64("image_id", image.ID).Msg("purge row delete failed")
			continue
		}
		purged++

		if err := s.store.Remove(ctx, image.ObjectKey); err != nil {
			s.log.Warn().Err(err).
				Int64("image_id", image.ID).
				Str("object_key", image.ObjectKey).
				Msg("orphaned blob: object delete failed after purge")
		}
	}
	if purged > 0 {
		s.log.Info().Int("purged", purged).Msg("expired images purged")
	}
	return purged
}
