// Package libroutine provides a circuit breaker for operations against
// external dependencies, plus a keyed group of supervised loops.
package libroutine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

var ErrCircuitOpen = errors.New("libroutine: circuit open")

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Routine is a circuit breaker. After threshold consecutive failures it
// opens and rejects calls until resetTimeout has passed, then lets a single
// trial call through.
type Routine struct {
	mu           sync.Mutex
	state        State
	failures     int
	threshold    int
	resetTimeout time.Duration
	openedAt     time.Time
	trial        bool
}

func NewRoutine(threshold int, resetTimeout time.Duration) *Routine {
	if threshold < 1 {
		threshold = 1
	}
	return &Routine{threshold: threshold, resetTimeout: resetTimeout}
}

// Allow reports whether a call may proceed and moves an expired open
// circuit to half-open.
func (r *Routine) Allow() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.allowLocked()
}

func (r *Routine) allowLocked() bool {
	switch r.state {
	case Closed:
		return true
	case Open:
		if time.Since(r.openedAt) < r.resetTimeout {
			return false
		}
		r.state = HalfOpen
		r.trial = false
		fallthrough
	case HalfOpen:
		if r.trial {
			return false
		}
		r.trial = true
		return true
	}
	return false
}

func (r *Routine) record(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		r.state = Closed
		r.failures = 0
		r.trial = false
		return
	}
	r.failures++
	if r.state == HalfOpen || r.failures >= r.threshold {
		if r.state != Open {
			slog.Warn("circuit opened", "failures", r.failures, "error", err)
		}
		r.state = Open
		r.openedAt = time.Now()
		r.trial = false
	}
}

// Execute runs fn if the circuit allows it and records the outcome.
func (r *Routine) Execute(ctx context.Context, fn func(ctx context.Context) error) error {
	if !r.Allow() {
		return ErrCircuitOpen
	}
	err := fn(ctx)
	r.record(err)
	return err
}

// ExecuteWithRetry calls Execute up to attempts times, sleeping interval
// between attempts. An open circuit counts as a failed attempt.
func (r *Routine) ExecuteWithRetry(ctx context.Context, interval time.Duration, attempts int, fn func(ctx context.Context) error) error {
	var err error
	for i := 0; i < attempts; i++ {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		err = r.Execute(ctx, fn)
		if err == nil {
			return nil
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(interval):
		}
	}
	return fmt.Errorf("failed after %d attempts: %w", attempts, err)
}

func (r *Routine) GetState() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Routine) GetThreshold() int { return r.threshold }

func (r *Routine) GetResetTimeout() time.Duration { return r.resetTimeout }
