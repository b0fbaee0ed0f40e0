package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func noopJob(ctx context.Context) error { return nil }

func TestSchedulerRegister(t *testing.T) {
	t.Parallel()

	s := NewScheduler(nil)
	if err := s.Register("cleanup", time.Hour, noopJob); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.Register("cleanup", time.Hour, noopJob); err == nil {
		t.Fatalf("expected error for duplicate job")
	}
	if err := s.Register("zero", 0, noopJob); err == nil {
		t.Fatalf("expected error for zero interval")
	}
	if err := s.Register("nil", time.Hour, nil); err == nil {
		t.Fatalf("expected error for nil job")
	}
	if err := s.Register("", time.Hour, noopJob); err == nil {
		t.Fatalf("expected error for empty name")
	}

	if !s.IsScheduled("cleanup") {
		t.Fatalf("cleanup should be scheduled")
	}
	if s.IsScheduled("health_check") {
		t.Fatalf("health_check should not be scheduled")
	}
}

func TestSchedulerRunsJobsUntilCancelled(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.ErrorLevel)
	s := NewScheduler(zap.New(core))

	var fast, failing atomic.Int32
	if err := s.Register("fast", 10*time.Millisecond, func(ctx context.Context) error {
		fast.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := s.Register("failing", time.Hour, func(ctx context.Context) error {
		failing.Add(1)
		return errors.New("boom")
	}); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	deadline := time.After(2 * time.Second)
	for fast.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("fast job ran %d times, want at least 3", fast.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start() error = %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not stop after cancel")
	}

	if failing.Load() != 1 {
		t.Fatalf("failing job ran %d times, want exactly the initial run", failing.Load())
	}
	if logs.FilterMessage("scheduled job failed").Len() != 1 {
		t.Fatalf("expected one failure log, got %d", logs.FilterMessage("scheduled job failed").Len())
	}
	if err := s.Register("late", time.Hour, noopJob); err == nil {
		t.Fatalf("expected error registering after start")
	}
}
