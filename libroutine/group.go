package libroutine

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// LoopConfig describes a supervised loop. Operation is invoked every
// Interval through a Routine built from Threshold and ResetTimeout.
type LoopConfig struct {
	Key          string
	Threshold    int
	ResetTimeout time.Duration
	Interval     time.Duration
	Operation    func(ctx context.Context) error
}

// Group runs at most one loop per key.
type Group struct {
	mu       sync.Mutex
	routines map[string]*Routine
	loops    map[string]*loop
}

type loop struct {
	cancel context.CancelFunc
}

var (
	defaultGroup     *Group
	defaultGroupOnce sync.Once
)

// GetGroup returns the process wide group.
func GetGroup() *Group {
	defaultGroupOnce.Do(func() {
		defaultGroup = NewGroup()
	})
	return defaultGroup
}

func NewGroup() *Group {
	return &Group{
		routines: make(map[string]*Routine),
		loops:    make(map[string]*loop),
	}
}

// StartLoop starts cfg.Operation in the background unless a loop for
// cfg.Key is already running. The loop ends when ctx is done or Stop is
// called for the key.
func (g *Group) StartLoop(ctx context.Context, cfg *LoopConfig) {
	g.mu.Lock()
	if _, running := g.loops[cfg.Key]; running {
		g.mu.Unlock()
		return
	}
	r, ok := g.routines[cfg.Key]
	if !ok {
		r = NewRoutine(cfg.Threshold, cfg.ResetTimeout)
		g.routines[cfg.Key] = r
	}
	loopCtx, cancel := context.WithCancel(ctx)
	l := &loop{cancel: cancel}
	g.loops[cfg.Key] = l
	g.mu.Unlock()

	go func() {
		defer g.finish(cfg.Key, l)
		ticker := time.NewTicker(cfg.Interval)
		defer ticker.Stop()
		for {
			if err := r.Execute(loopCtx, cfg.Operation); err != nil && err != ErrCircuitOpen && loopCtx.Err() == nil {
				slog.Error("loop iteration failed", "key", cfg.Key, "error", err)
			}
			select {
			case <-loopCtx.Done():
				return
			case <-ticker.C:
			}
		}
	}()
}

func (g *Group) finish(key string, l *loop) {
	l.cancel()
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.loops[key] == l {
		delete(g.loops, key)
	}
}

// Stop cancels the loop for key, if any.
func (g *Group) Stop(key string) {
	g.mu.Lock()
	l, ok := g.loops[key]
	if ok {
		delete(g.loops, key)
	}
	g.mu.Unlock()
	if ok {
		l.cancel()
	}
}

// IsLoopActive reports whether a loop for key is running.
func (g *Group) IsLoopActive(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, ok := g.loops[key]
	return ok
}

// GetRoutine returns the breaker backing key's loop.
func (g *Group) GetRoutine(key string) *Routine {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.routines[key]
}
