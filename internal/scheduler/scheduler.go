// Package scheduler runs the background maintenance jobs: keeping the eBay
// application token warm and sweeping expired cache entries.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/guarzo/thriftflip/internal/cache"
)

// Job is one recurring task.
type Job struct {
	Name    string
	Spec    string
	Timeout time.Duration
	Run     func(ctx context.Context) error
}

// TokenRefresher renews an access token ahead of use.
type TokenRefresher interface {
	Refresh(ctx context.Context) error
}

// TokenJob keeps tokens fresh so the first search after idle does not pay for
// the OAuth round trip.
func TokenJob(spec string, tokens TokenRefresher) Job {
	return Job{
		Name:    "token-refresh",
		Spec:    spec,
		Timeout: 30 * time.Second,
		Run:     tokens.Refresh,
	}
}

// SweepJob removes expired entries from an in-process cache.
func SweepJob(spec string, sweeper cache.Sweeper) Job {
	return Job{
		Name: "cache-sweep",
		Spec: spec,
		Run: func(context.Context) error {
			return sweeper.Clean()
		},
	}
}

// Scheduler wraps a cron runner.
type Scheduler struct {
	cron   *cron.Cron
	logger zerolog.Logger
	jobs   []string
}

// New creates a scheduler. Overlapping runs of the same job are skipped and
// panics are recovered.
func New(logger zerolog.Logger) *Scheduler {
	cl := cronLogger{logger: logger}
	return &Scheduler{
		cron:   cron.New(cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)), cron.WithLogger(cl)),
		logger: logger,
	}
}

// Add registers job.
func (s *Scheduler) Add(job Job) error {
	if job.Run == nil {
		return fmt.Errorf("job %s: no run function", job.Name)
	}
	_, err := s.cron.AddFunc(job.Spec, func() { s.run(job) })
	if err != nil {
		return fmt.Errorf("job %s: invalid schedule %q: %w", job.Name, job.Spec, err)
	}
	s.jobs = append(s.jobs, job.Name)
	return nil
}

// Jobs lists registered job names.
func (s *Scheduler) Jobs() []string {
	return append([]string(nil), s.jobs...)
}

// RunNow executes job once, synchronously.
func (s *Scheduler) RunNow(job Job) {
	s.run(job)
}

// Start begins running jobs in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info().Strs("jobs", s.jobs).Msg("scheduler started")
}

// Stop halts scheduling and waits for running jobs or ctx, whichever ends
// first.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop()
	select {
	case <-done.Done():
	case <-ctx.Done():
		s.logger.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) run(job Job) {
	ctx := context.Background()
	if job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, job.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := job.Run(ctx); err != nil {
		s.logger.Warn().Err(err).Str("job", job.Name).Msg("scheduled job failed")
		return
	}
	s.logger.Debug().Str("job", job.Name).Dur("took", time.Since(start)).Msg("scheduled job done")
}

// cronLogger adapts zerolog to cron.Logger.
type cronLogger struct {
	logger zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
