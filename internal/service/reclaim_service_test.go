package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platepix/api/internal/models"
)

func newReclaim(db *fakeDB, remover *fakeRemover) *ReclaimService {
	return NewReclaimService(db, remover, 24*time.Hour, 100, zerolog.Nop())
}

func TestSweepReclaimsAbandonedUploads(t *testing.T) {
	db := newFakeDB()
	remover := newFakeRemover()
	now := time.Now().UTC()

	old := db.addImage("img-old", "u1", models.ImageStatusProcessing, now.Add(-25*time.Hour))
	fresh := db.addImage("img-new", "u1", models.ImageStatusProcessing, now.Add(-1*time.Hour))
	active := db.addImage("img-act", "u1", models.ImageStatusActive, now.Add(-48*time.Hour))

	svc := newReclaim(db, remover)
	stats, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Scanned)
	assert.Equal(t, 1, stats.Reclaimed)
	assert.NotContains(t, db.images, old.ID)
	assert.Contains(t, db.images, fresh.ID)
	assert.Contains(t, db.images, active.ID)
	assert.Equal(t, []string{old.ObjectKey}, remover.removed)
}

func TestSweepRestartedWindowForOrphans(t *testing.T) {
	db := newFakeDB()
	remover := newFakeRemover()
	now := time.Now().UTC()

	// Uploaded long ago but orphaned only an hour ago: the orphan stamp
	// restarts the window, so the image survives this sweep.
	img := db.addImage("img-x", "u1", models.ImageStatusProcessing, now.Add(-72*time.Hour))
	orphaned := now.Add(-1 * time.Hour)
	db.images[img.ID].OrphanedAt = &orphaned

	svc := newReclaim(db, remover)
	stats, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, stats.Scanned)
	assert.Contains(t, db.images, img.ID)
	assert.Empty(t, remover.removed)
}

func TestSweepLosesRaceToActivation(t *testing.T) {
	db := newFakeDB()
	remover := newFakeRemover()
	now := time.Now().UTC()

	img := db.addImage("img-x", "u1", models.ImageStatusProcessing, now.Add(-25*time.Hour))

	// Simulate another transaction activating the image between the
	// candidate read and the conditional delete.
	db.beforeConditionalDelete = func(id int64) {
		db.images[id].Status = models.ImageStatusActive
	}

	svc := newReclaim(db, remover)
	stats, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Skipped)
	assert.Equal(t, 0, stats.Reclaimed)
	assert.Contains(t, db.images, img.ID)
	// The backing object must never be deleted for a survivor.
	assert.Empty(t, remover.removed)
}

func TestSweepObjectDeleteFailureDoesNotAbort(t *testing.T) {
	db := newFakeDB()
	remover := newFakeRemover()
	now := time.Now().UTC()

	a := db.addImage("img-a", "u1", models.ImageStatusProcessing, now.Add(-25*time.Hour))
	b := db.addImage("img-b", "u1", models.ImageStatusProcessing, now.Add(-26*time.Hour))
	remover.fail[a.ObjectKey] = errors.New("store down")

	svc := newReclaim(db, remover)
	stats, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	// Both rows are gone: the DB delete is authoritative, the failed blob
	// delete is only a warning.
	assert.Equal(t, 2, stats.Reclaimed)
	assert.NotContains(t, db.images, a.ID)
	assert.NotContains(t, db.images, b.ID)
	assert.Equal(t, []string{b.ObjectKey}, remover.removed)
}

func TestSweepPerCandidateIsolation(t *testing.T) {
	db := newFakeDB()
	remover := newFakeRemover()
	now := time.Now().UTC()

	bad := db.addImage("img-bad", "u1", models.ImageStatusProcessing, now.Add(-25*time.Hour))
	good := db.addImage("img-good", "u1", models.ImageStatusProcessing, now.Add(-26*time.Hour))
	db.failDelete[bad.ID] = errors.New("connection reset")

	svc := newReclaim(db, remover)
	stats, err := svc.Sweep(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, stats.Failed)
	assert.Equal(t, 1, stats.Reclaimed)
	assert.Contains(t, db.images, bad.ID)
	assert.NotContains(t, db.images, good.ID)
}
