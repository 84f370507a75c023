package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

type countingRefresher struct {
	calls atomic.Int32
	err   error
}

func (r *countingRefresher) Refresh(ctx context.Context) error {
	r.calls.Add(1)
	if _, ok := ctx.Deadline(); !ok {
		return errors.New("refresh called without deadline")
	}
	return r.err
}

type countingSweeper struct {
	calls atomic.Int32
}

func (s *countingSweeper) Clean() error {
	s.calls.Add(1)
	return nil
}

func TestAdd_InvalidSpec(t *testing.T) {
	s := New(zerolog.Nop())

	if err := s.Add(SweepJob("every tuesday-ish", &countingSweeper{})); err == nil {
		t.Error("expected error for invalid schedule")
	}
	if err := s.Add(Job{Name: "empty", Spec: "@every 1m"}); err == nil {
		t.Error("expected error for job without run function")
	}
	if len(s.Jobs()) != 0 {
		t.Errorf("jobs = %v, want none", s.Jobs())
	}
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())
	tokens := &countingRefresher{}
	sweeper := &countingSweeper{}

	s.RunNow(TokenJob("@every 30m", tokens))
	s.RunNow(SweepJob("@every 5m", sweeper))

	if tokens.calls.Load() != 1 || sweeper.calls.Load() != 1 {
		t.Errorf("calls = %d/%d, want 1/1", tokens.calls.Load(), sweeper.calls.Load())
	}

	// Failures are logged, not propagated.
	s.RunNow(TokenJob("@every 30m", &countingRefresher{err: errors.New("oauth down")}))
}

func TestScheduler_RunsJobs(t *testing.T) {
	s := New(zerolog.Nop())
	sweeper := &countingSweeper{}

	if err := s.Add(SweepJob("@every 1s", sweeper)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got := s.Jobs(); len(got) != 1 || got[0] != "cache-sweep" {
		t.Errorf("jobs = %v", got)
	}

	s.Start()
	deadline := time.Now().Add(3 * time.Second)
	for sweeper.calls.Load() == 0 && time.Now().Before(deadline) {
		time.Sleep(50 * time.Millisecond)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	s.Stop(ctx)

	if sweeper.calls.Load() == 0 {
		t.Error("sweep job never ran")
	}
}
