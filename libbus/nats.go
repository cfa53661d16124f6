package libbus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

type ps struct {
	nc *nats.Conn
}

// NewPubSub connects to the NATS server described by cfg.
func NewPubSub(ctx context.Context, cfg *Config) (Messenger, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := []nats.Option{
		nats.Name("pkgbot"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				slog.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			slog.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if cfg.NATSUser != "" {
		opts = append(opts, nats.UserInfo(cfg.NATSUser, cfg.NATSPassword))
	}
	nc, err := nats.Connect(cfg.NATSURL, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &ps{nc: nc}, nil
}

func (p *ps) check(ctx context.Context, subject string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if subject == "" {
		return ErrEmptySubject
	}
	if p.nc.IsClosed() {
		return ErrConnectionClosed
	}
	return nil
}

func (p *ps) Publish(ctx context.Context, subject string, data []byte) error {
	if err := p.check(ctx, subject); err != nil {
		return err
	}
	if err := p.nc.Publish(subject, data); err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return ErrConnectionClosed
		}
		return fmt.Errorf("failed to publish on %s: %w", subject, err)
	}
	return nil
}

// Queue joins group on subject. Messages are pulled from the subscription
// one at a time, only once ch has taken the previous one.
func (p *ps) Queue(ctx context.Context, subject, group string, ch chan<- []byte) (Subscription, error) {
	if err := p.check(ctx, subject); err != nil {
		return nil, err
	}
	sub, err := p.nc.QueueSubscribeSync(subject, group)
	if err != nil {
		if errors.Is(err, nats.ErrConnectionClosed) {
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("failed to subscribe to %s: %w", subject, err)
	}
	s := &natsSubscription{sub: sub, done: make(chan struct{})}

	go func() {
		defer s.Unsubscribe()
		for {
			msg, err := sub.NextMsgWithContext(ctx)
			if errors.Is(err, nats.ErrSlowConsumer) {
				slog.Warn("nats queue subscriber dropped messages", "subject", subject, "group", group)
				continue
			}
			if err != nil {
				return
			}
			select {
			case ch <- msg.Data:
			case <-ctx.Done():
				return
			case <-s.done:
				return
			}
		}
	}()
	return s, nil
}

func (p *ps) Close() error {
	if p.nc.IsClosed() {
		return nil
	}
	p.nc.Close()
	return nil
}

type natsSubscription struct {
	sub  *nats.Subscription
	once sync.Once
	done chan struct{}
}

func (s *natsSubscription) Unsubscribe() error {
	var err error
	s.once.Do(func() {
		close(s.done)
		err = s.sub.Unsubscribe()
	})
	if errors.Is(err, nats.ErrConnectionClosed) || errors.Is(err, nats.ErrBadSubscription) {
		return nil
	}
	return err
}

var _ Messenger = (*ps)(nil)
