// Package libbus provides a small messaging abstraction with a NATS backed
// implementation and an in-process one for single-binary deployments.
package libbus

import (
	"context"
	"errors"
)

var (
	ErrConnectionClosed = errors.New("libbus: connection closed")
	ErrEmptySubject     = errors.New("libbus: subject is empty")
	// ErrNoSubscribers is returned by in-process Publish when nothing is
	// subscribed to the subject. NATS core publish cannot detect this.
	ErrNoSubscribers = errors.New("libbus: no subscribers")
)

// Subscription stops delivery for a Queue registration.
type Subscription interface {
	Unsubscribe() error
}

// Messenger is the bus surface used by the service.
//
// Publish is fire-and-forget. Queue delivers each message to exactly one
// member of the queue group.
type Messenger interface {
	Publish(ctx context.Context, subject string, data []byte) error
	Queue(ctx context.Context, subject, group string, ch chan<- []byte) (Subscription, error)
	Close() error
}

type Config struct {
	NATSURL      string
	NATSUser     string
	NATSPassword string
}
