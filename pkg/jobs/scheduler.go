package jobs

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Runner executes one unit of scheduled work for a program.
type Runner func(ctx context.Context, programID string)

// SchedulerConfig configures the periodic sync scheduler.
type SchedulerConfig struct {
	Interval time.Duration
	Programs []string
	Logger   *zap.Logger
}

// Scheduler periodically runs the configured runner once per program.
// Programs within one tick are processed sequentially; group mutations
// for one program must never race with another run of the same program.
type Scheduler struct {
	interval time.Duration
	programs []string
	run      Runner
	logger   *zap.Logger

	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	started bool
}

// NewScheduler builds a scheduler with the provided runner.
func NewScheduler(run Runner, cfg SchedulerConfig) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Hour
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Scheduler{
		interval: cfg.Interval,
		programs: cfg.Programs,
		run:      run,
		logger:   cfg.Logger,
	}
}

// Start begins the tick loop. Safe to call once.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started || len(s.programs) == 0 {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)
	s.wg.Add(1)
	go s.loop(ctx)
	s.started = true
	s.logger.Sugar().Infow("sync scheduler started", "interval", s.interval, "programs", len(s.programs))
}

// Stop cancels the loop and waits for the in-flight tick to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.cancel()
	s.mu.Unlock()
	s.wg.Wait()
	s.logger.Sugar().Infow("sync scheduler stopped")
}

func (s *Scheduler) loop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	for _, programID := range s.programs {
		if ctx.Err() != nil {
			return
		}
		s.run(ctx, programID)
	}
}
