package service

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"platepix/api/internal/models"
)

type imageStore interface {
	GetByPublicID(ctx context.Context, publicID string) (models.Image, error)
	Promote(ctx context.Context, id int64) error
	SetLegacyOwnerIfUnset(ctx context.Context, id, recipeID int64) error
	MarkOrphaned(ctx context.Context, id, recipeID int64, at time.Time) error
}

type linkStore interface {
	ListByRecipe(ctx context.Context, recipeID int64) ([]models.OwnershipLink, error)
	Create(ctx context.Context, recipeID, imageID int64, position int) error
	Delete(ctx context.Context, recipeID, imageID int64) error
	UpdatePosition(ctx context.Context, recipeID, imageID int64, position int) error
	CountByImage(ctx context.Context, imageID int64) (int, error)
	NextPosition(ctx context.Context, recipeID int64) (int, error)
}

type txRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// GalleryService owns every write to the ownership link table. It attaches
// uploaded images to recipes and reconciles a recipe's image set when it is
// edited, without ever disturbing links held by other recipes.
type GalleryService struct {
	images imageStore
	links  linkStore
	tx     txRunner
	log    zerolog.Logger
	now    func() time.Time
}

func NewGalleryService(images imageStore, links linkStore, tx txRunner, log zerolog.Logger) *GalleryService {
	return &GalleryService{
		images: images,
		links:  links,
		tx:     tx,
		log:    log,
		now:    time.Now,
	}
}

// AttachImages links the given images to the recipe in order, skipping pairs
// that are already linked. Repeated calls are idempotent: no duplicate links,
// no reshuffled positions. Images still in the processing state are promoted
// to active on their first link.
func (s *GalleryService) AttachImages(ctx context.Context, recipeID int64, publicIDs []string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.attach(ctx, recipeID, dedupe(publicIDs))
	})
}

func (s *GalleryService) attach(ctx context.Context, recipeID int64, publicIDs []string) error {
	current, err := s.links.ListByRecipe(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("list links: %w", err)
	}
	linked := make(map[int64]struct{}, len(current))
	for _, link := range current {
		linked[link.ImageID] = struct{}{}
	}

	next, err := s.links.NextPosition(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("next position: %w", err)
	}

	for _, publicID := range publicIDs {
		image, err := s.lookup(ctx, publicID)
		if err != nil {
			return err
		}
		if _, ok := linked[image.ID]; ok {
			continue
		}

		if err := s.claim(ctx, recipeID, image, next); err != nil {
			return err
		}
		linked[image.ID] = struct{}{}
		next++
	}
	return nil
}

// SyncImages reconciles the recipe's links against the desired ordered image
// set. Removed links are dropped first so the orphan check below sees final
// reference counts; an image still referenced by another recipe is left
// untouched beyond that count read.
func (s *GalleryService) SyncImages(ctx context.Context, recipeID int64, publicIDs []string) error {
	return s.tx.InTx(ctx, func(ctx context.Context) error {
		return s.sync(ctx, recipeID, dedupe(publicIDs))
	})
}

func (s *GalleryService) sync(ctx context.Context, recipeID int64, publicIDs []string) error {
	current, err := s.links.ListByRecipe(ctx, recipeID)
	if err != nil {
		return fmt.Errorf("list links: %w", err)
	}
	positions := make(map[int64]int, len(current))
	for _, link := range current {
		positions[link.ImageID] = link.Position
	}

	desired := make([]models.Image, 0, len(publicIDs))
	desiredSet := make(map[int64]struct{}, len(publicIDs))
	for _, publicID := range publicIDs {
		image, err := s.lookup(ctx, publicID)
		if err != nil {
			return err
		}
		desired = append(desired, image)
		desiredSet[image.ID] = struct{}{}
	}

	for _, link := range current {
		if _, keep := desiredSet[link.ImageID]; keep {
			continue
		}
		if err := s.release(ctx, recipeID, link.ImageID); err != nil {
			return err
		}
	}

	for i, image := range desired {
		stored, wasLinked := positions[image.ID]
		if !wasLinked {
			if err := s.claim(ctx, recipeID, image, i); err != nil {
				return err
			}
			continue
		}
		if stored != i {
			if err := s.links.UpdatePosition(ctx, recipeID, image.ID, i); err != nil {
				return fmt.Errorf("reorder image %d: %w", image.ID, err)
			}
		}
	}
	return nil
}

// claim creates the ownership link and performs the activation side effects.
func (s *GalleryService) claim(ctx context.Context, recipeID int64, image models.Image, position int) error {
	if err := s.links.Create(ctx, recipeID, image.ID, position); err != nil {
		return fmt.Errorf("link image %d: %w", image.ID, err)
	}
	if image.Status == models.ImageStatusProcessing {
		if err := s.images.Promote(ctx, image.ID); err != nil {
			return fmt.Errorf("promote image %d: %w", image.ID, err)
		}
	}
	if err := s.images.SetLegacyOwnerIfUnset(ctx, image.ID, recipeID); err != nil {
		return fmt.Errorf("set legacy owner on image %d: %w", image.ID, err)
	}
	return nil
}

// release drops the recipe's link and, when that was the last reference,
// flips the image back to the unclaimed state. The row and the backing
// object stay around for the reclaim sweep; nothing is destroyed here.
func (s *GalleryService) release(ctx context.Context, recipeID, imageID int64) error {
	if err := s.links.Delete(ctx, recipeID, imageID); err != nil {
		return fmt.Errorf("unlink image %d: %w", imageID, err)
	}

	count, err := s.links.CountByImage(ctx, imageID)
	if err != nil {
		return fmt.Errorf("count links for image %d: %w", imageID, err)
	}
	if count > 0 {
		return nil
	}

	if err := s.images.MarkOrphaned(ctx, imageID, recipeID, s.now().UTC()); err != nil {
		return fmt.Errorf("orphan image %d: %w", imageID, err)
	}
	s.log.Debug().Int64("image_id", imageID).Int64("recipe_id", recipeID).Msg("image orphaned")
	return nil
}

func (s *GalleryService) lookup(ctx context.Context, publicID string) (models.Image, error) {
	image, err := s.images.GetByPublicID(ctx, publicID)
	if err != nil {
		return models.Image{}, fmt.Errorf("image %s: %w", publicID, err)
	}
	if image.SoftDeleted() {
		return models.Image{}, fmt.Errorf("image %s: %w", publicID, ErrImageUnavailable)
	}
	return image, nil
}

// dedupe keeps the first occurrence of each id, preserving order.
func dedupe(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
