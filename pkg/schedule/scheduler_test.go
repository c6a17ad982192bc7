package schedule

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"mercator-hq/archivist/pkg/lifecycle"
)

func TestScheduler_Start(t *testing.T) {
	tests := []struct {
		name        string
		schedule    string
		wantRunning bool
		wantError   bool
	}{
		{
			name:        "valid daily schedule",
			schedule:    "0 3 * * *",
			wantRunning: true,
		},
		{
			name:        "descriptor",
			schedule:    "@every 1h",
			wantRunning: true,
		},
		{
			name:      "empty schedule",
			schedule:  "",
			wantError: true,
		},
		{
			name:      "invalid schedule",
			schedule:  "invalid cron",
			wantError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			scheduler := NewScheduler(tt.schedule, func(context.Context) error { return nil }, nil)

			ctx, cancel := context.WithCancel(context.Background())
			defer cancel()

			err := scheduler.Start(ctx)
			if (err != nil) != tt.wantError {
				t.Fatalf("Start() error = %v, wantError %v", err, tt.wantError)
			}
			if err != nil {
				var cfgErr *lifecycle.ConfigurationError
				if !errors.As(err, &cfgErr) {
					t.Errorf("Start() error = %T, want *lifecycle.ConfigurationError", err)
				}
			}

			if scheduler.IsRunning() != tt.wantRunning {
				t.Errorf("IsRunning() = %v, want %v", scheduler.IsRunning(), tt.wantRunning)
			}

			if tt.wantRunning {
				next := scheduler.NextRun()
				if next == nil {
					t.Error("NextRun() returned nil for running scheduler")
				} else if !next.After(time.Now()) {
					t.Errorf("NextRun() = %v, want a future time", next)
				}
			}

			scheduler.Stop()

			if scheduler.IsRunning() {
				t.Error("scheduler still running after Stop()")
			}
			if scheduler.NextRun() != nil {
				t.Error("NextRun() should be nil after Stop()")
			}
		})
	}
}

func TestScheduler_RunsJob(t *testing.T) {
	done := make(chan struct{}, 4)
	calls := atomic.Int32{}
	job := func(ctx context.Context) error {
		n := calls.Add(1)
		select {
		case done <- struct{}{}:
		default:
		}
		if n == 1 {
			return lifecycle.NewQueryError("http://solr", errors.New("boom"))
		}
		return nil
	}

	scheduler := NewScheduler("@every 1s", job, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	for i := 0; i < 2; i++ {
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Fatalf("job did not run %d times", i+1)
		}
	}
	scheduler.Stop()

	runs, failures, _ := scheduler.Stats()
	if runs < 2 {
		t.Errorf("runs = %d, want at least 2", runs)
	}
	if failures != 1 {
		t.Errorf("failures = %d, want 1", failures)
	}
}

func TestScheduler_SkipsOverlappingRuns(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{}, 8)
	var active, maxActive atomic.Int32

	job := func(ctx context.Context) error {
		n := active.Add(1)
		for {
			m := maxActive.Load()
			if n <= m || maxActive.CompareAndSwap(m, n) {
				break
			}
		}
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
		active.Add(-1)
		return nil
	}

	scheduler := NewScheduler("@every 1s", job, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("job never started")
	}

	// Let at least two more ticks pass while the first run is blocked.
	time.Sleep(2500 * time.Millisecond)
	close(release)
	scheduler.Stop()

	if got := maxActive.Load(); got != 1 {
		t.Errorf("max concurrent runs = %d, want 1", got)
	}
}

func TestScheduler_StopsOnContextCancel(t *testing.T) {
	scheduler := NewScheduler("0 3 * * *", func(context.Context) error { return nil }, nil)
	ctx, cancel := context.WithCancel(context.Background())

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	cancel()

	deadline := time.Now().Add(2 * time.Second)
	for scheduler.IsRunning() {
		if time.Now().After(deadline) {
			t.Fatal("scheduler still running after context cancel")
		}
		time.Sleep(10 * time.Millisecond)
	}
}

func TestScheduler_Reschedule(t *testing.T) {
	scheduler := NewScheduler("0 3 * * *", func(context.Context) error { return nil }, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer scheduler.Stop()

	if err := scheduler.Reschedule("not a schedule"); err == nil {
		t.Error("Reschedule() with invalid expression should fail")
	}

	if err := scheduler.Reschedule("@every 1m"); err != nil {
		t.Fatalf("Reschedule() failed: %v", err)
	}
	next := scheduler.NextRun()
	if next == nil {
		t.Fatal("NextRun() returned nil after Reschedule()")
	}
	if until := time.Until(*next); until > time.Minute+time.Second {
		t.Errorf("next run in %v, want within a minute", until)
	}
}

func TestScheduler_Check(t *testing.T) {
	fail := true
	job := func(ctx context.Context) error {
		if fail {
			return lifecycle.NewPurgeError("logs", "*:*", errors.New("solr down"))
		}
		return nil
	}
	scheduler := NewScheduler("0 3 * * *", job, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := scheduler.Check(ctx); err == nil {
		t.Error("Check() before Start() should fail")
	}
	if err := scheduler.Start(ctx); err != nil {
		t.Fatalf("Start() failed: %v", err)
	}
	defer scheduler.Stop()

	if err := scheduler.Check(ctx); err != nil {
		t.Errorf("Check() with no runs = %v", err)
	}

	scheduler.run(ctx)
	var purgeErr *lifecycle.PurgeError
	if err := scheduler.Check(ctx); !errors.As(err, &purgeErr) {
		t.Errorf("Check() after a failed run = %v, want the purge error", err)
	}

	fail = false
	scheduler.run(ctx)
	if err := scheduler.Check(ctx); err != nil {
		t.Errorf("Check() after a good run = %v", err)
	}
}
