package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"platepix/api/internal/models"
	"platepix/api/internal/repository"
)

// fakeDB is an in-memory stand-in for the image and link repositories. It
// mirrors their semantics closely enough to exercise the services, including
// the conditional delete used by the reclaim sweep.
type fakeDB struct {
	nextID int64
	images map[int64]*models.Image
	links  map[int64]map[int64]*models.OwnershipLink

	// beforeConditionalDelete runs between the candidate read and the
	// conditional delete, to simulate a concurrent activation.
	beforeConditionalDelete func(id int64)
	failDelete              map[int64]error
}

func newFakeDB() *fakeDB {
	return &fakeDB{
		images:     make(map[int64]*models.Image),
		links:      make(map[int64]map[int64]*models.OwnershipLink),
		failDelete: make(map[int64]error),
	}
}

func (f *fakeDB) addImage(publicID, uploaderID string, status models.ImageStatus, createdAt time.Time) *models.Image {
	f.nextID++
	img := &models.Image{
		ID:         f.nextID,
		PublicID:   publicID,
		ObjectKey:  fmt.Sprintf("2025/08/01/%s.png", publicID),
		FileName:   publicID + ".png",
		Kind:       models.ImageKindCover,
		Status:     status,
		UploaderID: uploaderID,
		CreatedAt:  createdAt,
		UpdatedAt:  createdAt,
	}
	f.images[img.ID] = img
	return img
}

func (f *fakeDB) GetByPublicID(_ context.Context, publicID string) (models.Image, error) {
	for _, img := range f.images {
		if img.PublicID == publicID {
			return *img, nil
		}
	}
	return models.Image{}, repository.ErrImageNotFound
}

func (f *fakeDB) Promote(_ context.Context, id int64) error {
	img, ok := f.images[id]
	if !ok {
		return repository.ErrImageNotFound
	}
	img.Status = models.ImageStatusActive
	img.OrphanedAt = nil
	return nil
}

func (f *fakeDB) SetLegacyOwnerIfUnset(_ context.Context, id, recipeID int64) error {
	img, ok := f.images[id]
	if !ok {
		return repository.ErrImageNotFound
	}
	if img.RecipeID == nil {
		rid := recipeID
		img.RecipeID = &rid
	}
	return nil
}

func (f *fakeDB) MarkOrphaned(_ context.Context, id, recipeID int64, at time.Time) error {
	img, ok := f.images[id]
	if !ok {
		return repository.ErrImageNotFound
	}
	img.Status = models.ImageStatusProcessing
	stamp := at
	img.OrphanedAt = &stamp
	if img.RecipeID != nil && *img.RecipeID == recipeID {
		img.RecipeID = nil
	}
	return nil
}

func (f *fakeDB) ListByRecipe(_ context.Context, recipeID int64) ([]models.OwnershipLink, error) {
	var links []models.OwnershipLink
	for _, link := range f.links[recipeID] {
		links = append(links, *link)
	}
	sort.Slice(links, func(i, j int) bool { return links[i].Position < links[j].Position })
	return links, nil
}

func (f *fakeDB) Create(_ context.Context, recipeID, imageID int64, position int) error {
	if f.links[recipeID] == nil {
		f.links[recipeID] = make(map[int64]*models.OwnershipLink)
	}
	if _, exists := f.links[recipeID][imageID]; exists {
		return nil
	}
	f.links[recipeID][imageID] = &models.OwnershipLink{
		RecipeID: recipeID,
		ImageID:  imageID,
		Position: position,
	}
	return nil
}

func (f *fakeDB) Delete(_ context.Context, recipeID, imageID int64) error {
	delete(f.links[recipeID], imageID)
	return nil
}

func (f *fakeDB) UpdatePosition(_ context.Context, recipeID, imageID int64, position int) error {
	if link, ok := f.links[recipeID][imageID]; ok {
		link.Position = position
	}
	return nil
}

func (f *fakeDB) CountByImage(_ context.Context, imageID int64) (int, error) {
	count := 0
	for _, byImage := range f.links {
		if _, ok := byImage[imageID]; ok {
			count++
		}
	}
	return count, nil
}

func (f *fakeDB) NextPosition(_ context.Context, recipeID int64) (int, error) {
	next := 0
	for _, link := range f.links[recipeID] {
		if link.Position >= next {
			next = link.Position + 1
		}
	}
	return next, nil
}

func (f *fakeDB) ListAbandoned(_ context.Context, cutoff time.Time, limit int) ([]models.Image, error) {
	var out []models.Image
	for _, img := range f.images {
		if img.Status != models.ImageStatusProcessing {
			continue
		}
		since := img.CreatedAt
		if img.OrphanedAt != nil {
			since = *img.OrphanedAt
		}
		if since.Before(cutoff) {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDB) DeleteIfUnclaimed(_ context.Context, id int64) (bool, error) {
	if err, ok := f.failDelete[id]; ok {
		return false, err
	}
	if f.beforeConditionalDelete != nil {
		f.beforeConditionalDelete(id)
	}
	img, ok := f.images[id]
	if !ok || img.Status != models.ImageStatusProcessing {
		return false, nil
	}
	delete(f.images, id)
	return true, nil
}

func (f *fakeDB) SoftDeleteByUploader(_ context.Context, uploaderID string, deletedAt, scheduledAt time.Time) (int64, error) {
	var affected int64
	for _, img := range f.images {
		if img.UploaderID != uploaderID || img.DeletedAt != nil {
			continue
		}
		d, s := deletedAt, scheduledAt
		img.DeletedAt = &d
		img.DeleteScheduledAt = &s
		affected++
	}
	return affected, nil
}

func (f *fakeDB) RestoreByUploader(_ context.Context, uploaderID string) (int64, error) {
	var affected int64
	for _, img := range f.images {
		if img.UploaderID != uploaderID || img.DeletedAt == nil {
			continue
		}
		img.DeletedAt = nil
		img.DeleteScheduledAt = nil
		affected++
	}
	return affected, nil
}

func (f *fakeDB) ListPurgeable(_ context.Context, uploaderID string, now time.Time) ([]models.Image, error) {
	var out []models.Image
	for _, img := range f.images {
		if img.UploaderID != uploaderID || img.DeleteScheduledAt == nil {
			continue
		}
		if !img.DeleteScheduledAt.After(now) {
			out = append(out, *img)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeDB) ListDue(_ context.Context, now time.Time, limit int) ([]models.Image, error) {
	var out []models.Image
	for _, img := range f.images {
		if img.DeleteScheduledAt == nil || img.DeleteScheduledAt.After(now) {
			continue
		}
		out = append(out, *img)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (f *fakeDB) DeleteImage(_ context.Context, id int64) error {
	delete(f.images, id)
	return nil
}

// lifecycleFake adapts fakeDB to the lifecycle store, which hard-deletes by
// row id rather than conditionally.
type lifecycleFake struct{ *fakeDB }

func (l lifecycleFake) Delete(ctx context.Context, id int64) error {
	return l.DeleteImage(ctx, id)
}

// fakeTx runs the callback directly; the fakes have no transaction state.
type fakeTx struct{}

func (fakeTx) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// fakeRemover records object-store deletes and can be told to fail for
// specific keys.
type fakeRemover struct {
	removed []string
	fail    map[string]error
}

func newFakeRemover() *fakeRemover {
	return &fakeRemover{fail: make(map[string]error)}
}

func (f *fakeRemover) Remove(_ context.Context, key string) error {
	if err, ok := f.fail[key]; ok {
		return err
	}
	f.removed = append(f.removed, key)
	return nil
}
