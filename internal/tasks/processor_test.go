package tasks

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"platepix/api/internal/service"
)

type fakeSweeper struct {
	calls int
}

func (f *fakeSweeper) Sweep(context.Context) (service.SweepStats, error) {
	f.calls++
	return service.SweepStats{}, nil
}

type fakeLifecycle struct {
	softDeleted map[string][2]time.Time
	restored    []string
	purged      []string
	purgeDue    int
}

func newFakeLifecycle() *fakeLifecycle {
	return &fakeLifecycle{softDeleted: make(map[string][2]time.Time)}
}

func (f *fakeLifecycle) SoftDeleteByUploader(_ context.Context, uploaderID string, deletedAt, scheduledAt time.Time) error {
	f.softDeleted[uploaderID] = [2]time.Time{deletedAt, scheduledAt}
	return nil
}

func (f *fakeLifecycle) RestoreByUploader(_ context.Context, uploaderID string) error {
	f.restored = append(f.restored, uploaderID)
	return nil
}

func (f *fakeLifecycle) PurgeExpired(_ context.Context, uploaderID string) (int, error) {
	f.purged = append(f.purged, uploaderID)
	return 0, nil
}

func (f *fakeLifecycle) PurgeDue(context.Context) (int, error) {
	f.purgeDue++
	return 0, nil
}

func message(values map[string]interface{}) redis.XMessage {
	return redis.XMessage{ID: "1-0", Values: values}
}

func TestHandleDispatchesScheduledJobs(t *testing.T) {
	sweeper := &fakeSweeper{}
	lifecycle := newFakeLifecycle()
	p := NewProcessor(sweeper, lifecycle, zerolog.Nop())

	require.NoError(t, p.Handle(context.Background(), message(map[string]interface{}{"type": TaskSweep})))
	require.NoError(t, p.Handle(context.Background(), message(map[string]interface{}{"type": TaskPurgeDue})))

	assert.Equal(t, 1, sweeper.calls)
	assert.Equal(t, 1, lifecycle.purgeDue)
}

func TestHandleAccountDeleted(t *testing.T) {
	lifecycle := newFakeLifecycle()
	p := NewProcessor(&fakeSweeper{}, lifecycle, zerolog.Nop())

	deletedAt := time.Date(2025, 8, 1, 12, 0, 0, 0, time.UTC)
	scheduledAt := deletedAt.Add(30 * 24 * time.Hour)

	err := p.Handle(context.Background(), message(map[string]interface{}{
		"type":        TaskAccountDeleted,
		"uploaderId":  "u1",
		"deletedAt":   deletedAt.Format(time.RFC3339),
		"scheduledAt": scheduledAt.Format(time.RFC3339),
	}))
	require.NoError(t, err)

	got, ok := lifecycle.softDeleted["u1"]
	require.True(t, ok)
	assert.True(t, got[0].Equal(deletedAt))
	assert.True(t, got[1].Equal(scheduledAt))
}

func TestHandleAccountDeletedRejectsBadPayload(t *testing.T) {
	p := NewProcessor(&fakeSweeper{}, newFakeLifecycle(), zerolog.Nop())

	err := p.Handle(context.Background(), message(map[string]interface{}{
		"type":       TaskAccountDeleted,
		"uploaderId": "u1",
		"deletedAt":  "not-a-time",
	}))
	assert.Error(t, err)

	err = p.Handle(context.Background(), message(map[string]interface{}{
		"type": TaskAccountDeleted,
	}))
	assert.Error(t, err)
}

func TestHandleAccountRestoreAndPurge(t *testing.T) {
	lifecycle := newFakeLifecycle()
	p := NewProcessor(&fakeSweeper{}, lifecycle, zerolog.Nop())

	require.NoError(t, p.Handle(context.Background(), message(map[string]interface{}{
		"type":       TaskAccountRestore,
		"uploaderId": "u1",
	})))
	require.NoError(t, p.Handle(context.Background(), message(map[string]interface{}{
		"type":       TaskAccountPurge,
		"uploaderId": "u2",
	})))

	assert.Equal(t, []string{"u1"}, lifecycle.restored)
	assert.Equal(t, []string{"u2"}, lifecycle.purged)
}

func TestHandleUnknownTypeIsIgnored(t *testing.T) {
	p := NewProcessor(&fakeSweeper{}, newFakeLifecycle(), zerolog.Nop())

	err := p.Handle(context.Background(), message(map[string]interface{}{"type": "mystery"}))
	assert.NoError(t, err)
}
