// Package parallel runs long-lived tasks that share a lifetime.
package parallel

import (
	"context"
	"errors"
	"fmt"
	"sync"
)

// Executor runs named tasks concurrently. The first task to fail cancels
// the shared context so the remaining tasks wind down.
type Executor struct {
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	mu     sync.Mutex
	errors []error
}

// NewExecutor creates a new parallel executor with the given context
func NewExecutor(ctx context.Context) *Executor {
	execCtx, cancel := context.WithCancel(ctx)
	return &Executor{
		ctx:    execCtx,
		cancel: cancel,
		errors: make([]error, 0),
	}
}

// Execute runs fn in a goroutine. A non-nil error is recorded under name
// and cancels every other task.
func (pe *Executor) Execute(name string, fn func(context.Context) error) {
	pe.wg.Add(1)
	go func() {
		defer pe.wg.Done()

		select {
		case <-pe.ctx.Done():
			return
		default:
		}

		if err := fn(pe.ctx); err != nil {
			pe.mu.Lock()
			pe.errors = append(pe.errors, fmt.Errorf("%s: %w", name, err))
			pe.mu.Unlock()
			pe.cancel()
		}
	}()
}

// Wait waits for all goroutines to complete and returns their joined
// errors.
func (pe *Executor) Wait() error {
	pe.wg.Wait()
	pe.cancel()
	return errors.Join(pe.Errors()...)
}

func (pe *Executor) Cancel() {
	pe.cancel()
}

// Errors returns any errors that occurred during execution
func (pe *Executor) Errors() []error {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return append([]error(nil), pe.errors...)
}

// Context returns the executor's context for child operations
func (pe *Executor) Context() context.Context {
	return pe.ctx
}
