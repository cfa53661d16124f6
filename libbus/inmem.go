package libbus

import (
	"context"
	"fmt"
	"sync"
)

// InMem is a Messenger for single-process mode. Publish delivers to one
// member of each Queue group on the subject and does not wait for a busy
// member to drain its channel.
type InMem struct {
	mu     sync.Mutex
	closed bool
	done   chan struct{}
	groups map[string]map[string]*queueGroup
}

type queueGroup struct {
	members []*inmemSubscription
	next    int
}

// offer hands data to the first member, in round-robin order, whose channel
// has room.
func (g *queueGroup) offer(data []byte) bool {
	n := len(g.members)
	for i := range n {
		m := g.members[(g.next+i)%n]
		select {
		case m.ch <- data:
			g.next += i + 1
			return true
		default:
		}
	}
	return false
}

// NewInMem returns an empty in-memory Messenger.
func NewInMem() *InMem {
	return &InMem{
		done:   make(chan struct{}),
		groups: make(map[string]map[string]*queueGroup),
	}
}

func (p *InMem) Publish(ctx context.Context, subject string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject == "" {
		return ErrEmptySubject
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return ErrConnectionClosed
	}
	delivered := 0
	for _, g := range p.groups[subject] {
		if len(g.members) == 0 {
			continue
		}
		delivered++
		if g.offer(data) {
			continue
		}
		m := g.members[g.next%len(g.members)]
		g.next++
		// Waits until m reads, unsubscribes or the bus closes.
		go m.deliver(data, p.done)
	}
	if delivered == 0 {
		return fmt.Errorf("%w on %s", ErrNoSubscribers, subject)
	}
	return nil
}

func (p *InMem) Queue(ctx context.Context, subject, group string, ch chan<- []byte) (Subscription, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if subject == "" {
		return nil, ErrEmptySubject
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil, ErrConnectionClosed
	}
	if p.groups[subject] == nil {
		p.groups[subject] = make(map[string]*queueGroup)
	}
	g := p.groups[subject][group]
	if g == nil {
		g = &queueGroup{}
		p.groups[subject][group] = g
	}
	sub := &inmemSubscription{inmem: p, ch: ch, done: make(chan struct{})}
	sub.remove = func() {
		for i, m := range g.members {
			if m == sub {
				g.members = append(g.members[:i:i], g.members[i+1:]...)
				return
			}
		}
	}
	g.members = append(g.members, sub)
	p.mu.Unlock()

	go sub.cancelOn(ctx)
	return sub, nil
}

// Close marks the messenger closed and drops all registrations.
func (p *InMem) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	p.groups = make(map[string]map[string]*queueGroup)
	return nil
}

type inmemSubscription struct {
	inmem  *InMem
	ch     chan<- []byte
	once   sync.Once
	done   chan struct{}
	remove func()
}

func (s *inmemSubscription) deliver(data []byte, closed <-chan struct{}) {
	select {
	case s.ch <- data:
	case <-s.done:
	case <-closed:
	}
}

func (s *inmemSubscription) cancelOn(ctx context.Context) {
	select {
	case <-ctx.Done():
		_ = s.Unsubscribe()
	case <-s.done:
	}
}

func (s *inmemSubscription) Unsubscribe() error {
	s.once.Do(func() {
		close(s.done)
		s.inmem.mu.Lock()
		s.remove()
		s.inmem.mu.Unlock()
	})
	return nil
}

var _ Messenger = (*InMem)(nil)
