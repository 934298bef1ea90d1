package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"platepix/api/internal/service"
)

const (
	TaskSweep          = "gc_sweep"
	TaskPurgeDue       = "purge_due"
	TaskAccountDeleted = "account_deleted"
	TaskAccountRestore = "account_restored"
	TaskAccountPurge   = "account_purge"
)

type sweeper interface {
	Sweep(ctx context.Context) (service.SweepStats, error)
}

type lifecycle interface {
	SoftDeleteByUploader(ctx context.Context, uploaderID string, deletedAt, scheduledAt time.Time) error
	RestoreByUploader(ctx context.Context, uploaderID string) error
	PurgeExpired(ctx context.Context, uploaderID string) (int, error)
	PurgeDue(ctx context.Context) (int, error)
}

// Processor dispatches stream messages: scheduled jobs enqueued by this
// service's cron, and account lifecycle events published by the account
// service.
type Processor struct {
	reclaim   sweeper
	lifecycle lifecycle
	logger    zerolog.Logger
}

type TaskPayload struct {
	Type        string `json:"type"`
	UploaderID  string `json:"uploaderId"`
	DeletedAt   string `json:"deletedAt"`
	ScheduledAt string `json:"scheduledAt"`
}

func NewProcessor(reclaim sweeper, lifecycle lifecycle, logger zerolog.Logger) *Processor {
	return &Processor{
		reclaim:   reclaim,
		lifecycle: lifecycle,
		logger:    logger,
	}
}

func (p *Processor) Handle(ctx context.Context, msg redis.XMessage) error {
	var payload TaskPayload
	if err := decodePayload(msg.Values, &payload); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}

	switch payload.Type {
	case TaskSweep:
		_, err := p.reclaim.Sweep(ctx)
		return err
	case TaskPurgeDue:
		_, err := p.lifecycle.PurgeDue(ctx)
		return err
	case TaskAccountDeleted:
		return p.handleAccountDeleted(ctx, payload)
	case TaskAccountRestore:
		return p.requireUploader(payload, func(uploaderID string) error {
			return p.lifecycle.RestoreByUploader(ctx, uploaderID)
		})
	case TaskAccountPurge:
		return p.requireUploader(payload, func(uploaderID string) error {
			_, err := p.lifecycle.PurgeExpired(ctx, uploaderID)
			return err
		})
	default:
		p.logger.Warn().Str("type", payload.Type).Msg("unknown task type")
		return nil
	}
}

func (p *Processor) handleAccountDeleted(ctx context.Context, payload TaskPayload) error {
	if payload.UploaderID == "" {
		return fmt.Errorf("account_deleted: missing uploaderId")
	}
	deletedAt, err := time.Parse(time.RFC3339, payload.DeletedAt)
	if err != nil {
		return fmt.Errorf("account_deleted: deletedAt: %w", err)
	}
	scheduledAt, err := time.Parse(time.RFC3339, payload.ScheduledAt)
	if err != nil {
		return fmt.Errorf("account_deleted: scheduledAt: %w", err)
	}
	return p.lifecycle.SoftDeleteByUploader(ctx, payload.UploaderID, deletedAt, scheduledAt)
}

func (p *Processor) requireUploader(payload TaskPayload, fn func(uploaderID string) error) error {
	if payload.UploaderID == "" {
		return fmt.Errorf("%s: missing uploaderId", payload.Type)
	}
	return fn(payload.UploaderID)
}

func decodePayload(values map[string]interface{}, out *TaskPayload) error {
	bytes, err := json.Marshal(values)
	if err != nil {
		return err
	}
	return json.Unmarshal(bytes, out)
}
