package parallel

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestExecutor_AllSucceed(t *testing.T) {
	pe := NewExecutor(context.Background())

	var ran atomic.Int32
	for i := 0; i < 3; i++ {
		pe.Execute("task", func(ctx context.Context) error {
			ran.Add(1)
			return nil
		})
	}

	if err := pe.Wait(); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
	if got := ran.Load(); got != 3 {
		t.Errorf("ran = %d, want 3", got)
	}
}

func TestExecutor_FailureCancelsOthers(t *testing.T) {
	pe := NewExecutor(context.Background())
	boom := errors.New("boom")

	pe.Execute("watcher", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	pe.Execute("metrics", func(ctx context.Context) error {
		return boom
	})

	done := make(chan error, 1)
	go func() { done <- pe.Wait() }()

	select {
	case err := <-done:
		if !errors.Is(err, boom) {
			t.Errorf("Wait() = %v, want %v", err, boom)
		}
		if err.Error() != "metrics: boom" {
			t.Errorf("Wait() = %q, want %q", err.Error(), "metrics: boom")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("failure did not cancel the remaining task")
	}
}

func TestExecutor_CancelledBeforeStart(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	pe := NewExecutor(ctx)

	called := false
	pe.Execute("late", func(ctx context.Context) error {
		called = true
		return nil
	})
	pe.Wait()

	if called {
		t.Error("task ran after parent context was cancelled")
	}
}

func TestExecutor_ParentCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	pe := NewExecutor(ctx)

	pe.Execute("loop", func(ctx context.Context) error {
		<-ctx.Done()
		return nil
	})
	cancel()

	if err := pe.Wait(); err != nil {
		t.Errorf("Wait() = %v, want nil", err)
	}
	if pe.Context().Err() == nil {
		t.Error("executor context not cancelled")
	}
}
