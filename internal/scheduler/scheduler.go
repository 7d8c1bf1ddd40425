// Package scheduler runs the periodic session status progression.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"quest-scheduler-go/internal/domain/session"
	"quest-scheduler-go/internal/metrics"
	"quest-scheduler-go/pkg/logger"
)

type Advancer interface {
	AdvanceStatuses(ctx context.Context) (session.Advanced, error)
}

type Scheduler struct {
	cron     *cron.Cron
	advancer Advancer
	log      logger.Logger
	timeout  time.Duration

	mu      sync.Mutex
	running bool
}

// New registers the status job on spec (standard cron syntax or a
// descriptor such as "@every 1m"). Runs never overlap.
func New(spec string, advancer Advancer, log logger.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		advancer: advancer,
		log:      log,
		timeout:  30 * time.Second,
	}
	if _, err := s.cron.AddFunc(spec, s.tick); err != nil {
		return nil, fmt.Errorf("scheduler: invalid spec %q: %w", spec, err)
	}
	return s, nil
}

func (s *Scheduler) Start() {
	s.log.Info("scheduler: started", "entries", len(s.cron.Entries()))
	s.cron.Start()
}

// Stop waits for a running pass to finish or for ctx to expire.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info("scheduler: stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (s *Scheduler) tick() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		s.log.Warn("scheduler: previous pass still running, skipping")
		return
	}
	s.running = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs one progression pass and records its outcome.
func (s *Scheduler) RunOnce(ctx context.Context) (session.Advanced, error) {
	start := time.Now()
	result, err := s.advancer.AdvanceStatuses(ctx)
	metrics.RecordSchedulerRun(time.Since(start), err == nil)
	metrics.RecordStatusAdvances(result.Started, result.Finished)
	if err != nil {
		s.log.InternalError("scheduler: advance statuses failed", err,
			"started", result.Started, "finished", result.Finished)
		return result, err
	}
	if result.Started > 0 || result.Finished > 0 {
		s.log.Info("scheduler: statuses advanced", "started", result.Started, "finished", result.Finished)
	}
	return result, nil
}
