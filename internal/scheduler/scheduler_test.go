package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestAddAndFire(t *testing.T) {
	var fired atomic.Int32
	s := New(nil)

	if err := s.Add("export", "@every 1s", func(context.Context) error {
		fired.Add(1)
		return nil
	}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d", s.Len())
	}

	s.cron.Start()
	time.Sleep(1500 * time.Millisecond)
	s.cron.Stop()

	if fired.Load() == 0 {
		t.Error("expected at least one firing")
	}
}

func TestAddReplacesByName(t *testing.T) {
	s := New(nil)
	s.Add("export", "@every 1h", func(context.Context) error { return nil })
	s.Add("export", "@every 2h", func(context.Context) error { return nil })
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1 after replacement", s.Len())
	}
}

func TestAddInvalidSchedule(t *testing.T) {
	s := New(nil)
	if err := s.Add("export", "not-a-schedule", func(context.Context) error { return nil }); err == nil {
		t.Error("expected error for invalid schedule")
	}
}

func TestJobErrorDoesNotStopSchedule(t *testing.T) {
	var fired atomic.Int32
	s := New(nil)
	s.Add("flaky", "@every 1s", func(context.Context) error {
		fired.Add(1)
		return errors.New("disk full")
	})

	s.cron.Start()
	time.Sleep(2500 * time.Millisecond)
	s.cron.Stop()

	if fired.Load() < 2 {
		t.Errorf("expected repeated firings despite errors, got %d", fired.Load())
	}
}

func TestRemove(t *testing.T) {
	s := New(nil)
	s.Add("export", "@every 1h", func(context.Context) error { return nil })
	s.Add("cleanup", "@every 2h", func(context.Context) error { return nil })

	s.Remove("export")
	if s.Len() != 1 {
		t.Errorf("Len = %d after remove", s.Len())
	}
	s.Remove("missing")
	if s.Len() != 1 {
		t.Errorf("Len = %d after removing unknown name", s.Len())
	}
}

func TestStartStopsOnCancel(t *testing.T) {
	s := New(nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Start(ctx) }()

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Start returned %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Start did not return after cancel")
	}
}
