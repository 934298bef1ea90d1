package jobs

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"platepix/api/internal/config"
	"platepix/api/internal/tasks"
)

// Scheduler enqueues the reclaim sweep and the purge job onto the lifecycle
// stream on a fixed cadence. Running the jobs through the stream means any
// instance may pick them up; double delivery is safe because both jobs are
// built on conditional deletes.
type Scheduler struct {
	cron   *cron.Cron
	queue  *redis.Client
	cfg    config.LifecycleConfig
	stream string
	log    zerolog.Logger
}

func NewScheduler(queue *redis.Client, cfg config.LifecycleConfig, stream string, log zerolog.Logger) *Scheduler {
	c := cron.New(cron.WithSeconds())
	return &Scheduler{
		cron:   c,
		queue:  queue,
		cfg:    cfg,
		stream: stream,
		log:    log,
	}
}

func (s *Scheduler) Start() error {
	if s.queue == nil {
		return nil
	}

	if _, err := s.cron.AddFunc(s.cfg.SweepSchedule, s.enqueueSweep); err != nil {
		return err
	}
	if _, err := s.cron.AddFunc(s.cfg.PurgeSchedule, s.enqueuePurge); err != nil {
		return err
	}

	s.cron.Start()
	return nil
}

// Stop waits for any running job to finish, up to five seconds.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	select {
	case <-ctx.Done():
	case <-time.After(5 * time.Second):
	}
}

func (s *Scheduler) enqueueSweep() {
	if err := s.enqueueTask(map[string]any{
		"type": tasks.TaskSweep,
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue sweep failed")
	}
}

func (s *Scheduler) enqueuePurge() {
	if err := s.enqueueTask(map[string]any{
		"type": tasks.TaskPurgeDue,
	}); err != nil {
		s.log.Error().Err(err).Msg("enqueue purge failed")
	}
}

func (s *Scheduler) enqueueTask(payload map[string]any) error {
	if s.queue == nil {
		return nil
	}
	_, err := s.queue.XAdd(context.Background(), &redis.XAddArgs{
		Stream: s.stream,
		Values: payload,
	}).Result()
	return err
}
