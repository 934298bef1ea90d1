package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"platepix/api/internal/models"
)

type reclaimStore interface {
	ListAbandoned(ctx context.Context, cutoff time.Time, limit int) ([]models.Image, error)
	DeleteIfUnclaimed(ctx context.Context, id int64) (bool, error)
}

type objectRemover interface {
	Remove(ctx context.Context, key string) error
}

// ReclaimService is the sweep that collects images nobody ever claimed, and
// edit-time orphans whose restarted window elapsed. It holds no locks: the
// conditional row delete in the registry is the only serialization point
// against concurrent activation, which also makes concurrent sweepers on
// other instances harmless.
type ReclaimService struct {
	images reclaimStore
	store  objectRemover
	window time.Duration
	batch  int
	log    zerolog.Logger
	now    func() time.Time
}

func NewReclaimService(images reclaimStore, store objectRemover, window time.Duration, batch int, log zerolog.Logger) *ReclaimService {
	if batch <= 0 {
		batch = 100
	}
	return &ReclaimService{
		images: images,
		store:  store,
		window: window,
		batch:  batch,
		log:    log,
		now:    time.Now,
	}
}

type SweepStats struct {
	Scanned   int
	Reclaimed int
	Skipped   int
	Failed    int
}

// Sweep reclaims one batch of abandoned images. A failure on one candidate
// never aborts the rest; anything left behind is still unclaimed and past
// the window, so the next sweep rediscovers it.
func (s *ReclaimService) Sweep(ctx context.Context) (SweepStats, error) {
	var stats SweepStats

	cutoff := s.now().UTC().Add(-s.window)
	candidates, err := s.images.ListAbandoned(ctx, cutoff, s.batch)
	if err != nil {
		return stats, fmt.Errorf("list abandoned: %w", err)
	}

	for _, image := range candidates {
		stats.Scanned++

		deleted, err := s.images.DeleteIfUnclaimed(ctx, image.ID)
		if err != nil {
			stats.Failed++
			s.log.Error().Err(err).Int64("image_id", image.ID).Msg("reclaim delete failed")
			continue
		}
		if !deleted {
			// Claimed between the candidate read and the delete. The image
			// survives and the backing object must not be touched.
			stats.Skipped++
			s.log.Debug().Int64("image_id", image.ID).Msg("reclaim lost race to activation")
			continue
		}
		stats.Reclaimed++

		if err := s.store.Remove(ctx, image.ObjectKey); err != nil {
			// The row is gone; a dangling blob is harmless and is left for
			// offline cleanup. Never roll back the database delete for this.
			s.log.Warn().Err(err).
				Int64("image_id", image.ID).
				Str("object_key", image.ObjectKey).
				Msg("orphaned blob: object delete failed after row delete")
		}
	}

	s.log.Info().
		Int("scanned", stats.Scanned).
		Int("reclaimed", stats.Reclaimed).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("reclaim sweep finished")
	return stats, nil
}
