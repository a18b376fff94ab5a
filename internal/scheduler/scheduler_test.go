package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestEvery_RunsAndStops(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}

	var runs atomic.Int32
	cancelled := make(chan struct{}, 1)
	err = s.Every("sweep", 50*time.Millisecond, true, func(ctx context.Context) {
		if runs.Add(1) == 1 {
			return
		}
		// Block until the scheduler stops.
		<-ctx.Done()
		select {
		case cancelled <- struct{}{}:
		default:
		}
	})
	if err != nil {
		t.Fatalf("Every: %v", err)
	}
	if !s.HasJob("sweep") {
		t.Error("HasJob(sweep) = false")
	}

	s.Start()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("job ran %d times, want at least 2", runs.Load())
		case <-time.After(10 * time.Millisecond):
		}
	}

	if err := s.Stop(); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Error("task context was not cancelled on Stop")
	}
	if got := runs.Load(); got != 2 {
		t.Errorf("runs = %d, want 2 (no overlapping run while blocked)", got)
	}
}

func TestEvery_Validation(t *testing.T) {
	s, err := New(zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer s.Stop()

	task := func(context.Context) {}
	if err := s.Every("a", 0, false, task); err == nil {
		t.Error("expected error for zero interval")
	}
	if err := s.Every("a", time.Minute, false, task); err != nil {
		t.Fatalf("Every: %v", err)
	}
	if err := s.Every("a", time.Minute, false, task); err == nil {
		t.Error("expected error for duplicate job")
	}

	jobs := s.ListJobs()
	if len(jobs) != 1 || jobs[0].Name != "a" || jobs[0].Interval != "1m0s" {
		t.Errorf("ListJobs() = %+v", jobs)
	}
}
