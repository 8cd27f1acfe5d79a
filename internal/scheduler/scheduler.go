package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/taskroom/taskroom-go-api/internal/observability"
)

// Job is one bounded batch operation executed on a fixed period. A run is
// expected to finish before the next tick; overlap is tolerated only because
// the jobs themselves are idempotent.
type Job func(ctx context.Context) error

type registration struct {
	name  string
	every time.Duration
	run   Job
}

// Scheduler owns the periodic jobs of the process. It is constructed once in
// main and injected where needed; tests drive registered jobs directly via
// RunOnce instead of waiting on wall-clock tickers.
type Scheduler struct {
	mu     sync.Mutex
	jobs   []registration
	logger zerolog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// New constructs an empty scheduler.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		logger: logger.With().Str("component", "scheduler").Logger(),
	}
}

// Register adds a named periodic job. Must be called before Start.
func (s *Scheduler) Register(name string, every time.Duration, run Job) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.jobs = append(s.jobs, registration{name: name, every: every, run: run})
}

// Start launches one ticker goroutine per registered job. The jobs stop when
// Stop is called or the parent context is cancelled.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for _, job := range s.jobs {
		s.wg.Add(1)
		go s.loop(runCtx, job)
	}

	s.logger.Info().Int("jobs", len(s.jobs)).Msg("scheduler started")
}

func (s *Scheduler) loop(ctx context.Context, job registration) {
	defer s.wg.Done()

	ticker := time.NewTicker(job.every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_ = s.execute(ctx, job)
		}
	}
}

func (s *Scheduler) execute(ctx context.Context, job registration) error {
	start := time.Now()
	err := job.run(ctx)
	duration := time.Since(start)

	observability.JobDuration().WithLabelValues(job.name).Observe(duration.Seconds())

	if err != nil {
		observability.JobRuns().WithLabelValues(job.name, "error").Inc()
		s.logger.Error().Err(err).
			Str("job", job.name).
			Dur("duration", duration).
			Msg("periodic job failed")
		return err
	}

	observability.JobRuns().WithLabelValues(job.name, "ok").Inc()
	s.logger.Debug().
		Str("job", job.name).
		Dur("duration", duration).
		Msg("periodic job completed")
	return nil
}

// RunOnce triggers a registered job immediately, outside its ticker cadence.
func (s *Scheduler) RunOnce(ctx context.Context, name string) error {
	s.mu.Lock()
	var found *registration
	for i := range s.jobs {
		if s.jobs[i].name == name {
			found = &s.jobs[i]
			break
		}
	}
	s.mu.Unlock()

	if found == nil {
		return fmt.Errorf("unknown job %q", name)
	}

	return s.execute(ctx, *found)
}

// Stop cancels the ticker loops and waits for in-flight runs to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	s.wg.Wait()

	s.logger.Info().Msg("scheduler stopped")
}
