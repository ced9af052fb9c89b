package bus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"assetd/pkg/logger"
)

const (
	DefaultMaxDeliver = 5

	redeliveryBase = time.Second
	redeliveryMax  = 30 * time.Second
)

// Bus wraps a NATS JetStream connection for asset and work log events.
type Bus struct {
	conn       *nats.Conn
	js         nats.JetStreamContext
	log        *logger.Logger
	maxDeliver int
}

// Option configures a Bus.
type Option func(*Bus)

// WithLogger sets the logger used for connection and delivery events.
func WithLogger(log *logger.Logger) Option {
	return func(b *Bus) {
		if log != nil {
			b.log = log
		}
	}
}

// WithMaxDeliver bounds how often a failing event is delivered before it is
// terminated.
func WithMaxDeliver(n int) Option {
	return func(b *Bus) {
		if n > 0 {
			b.maxDeliver = n
		}
	}
}

func newBus(opts ...Option) *Bus {
	b := &Bus{log: logger.NewNop(), maxDeliver: DefaultMaxDeliver}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// New connects to the NATS endpoint at url. Reconnects are unbounded and
// logged.
func New(url string, opts ...Option) (*Bus, error) {
	b := newBus(opts...)

	nc, err := nats.Connect(url,
		nats.Name("assetd"),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				b.log.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			b.log.Info("nats reconnected", "url", nc.ConnectedUrlRedacted())
		}),
	)
	if err != nil {
		return nil, err
	}

	js, err := nc.JetStream()
	if err != nil {
		nc.Close()
		return nil, err
	}

	b.conn, b.js = nc, js
	return b, nil
}

// EnsureStream creates the named stream over subjects unless it already exists.
func (b *Bus) EnsureStream(name string, subjects ...string) error {
	if b == nil {
		return errors.New("nil bus")
	}
	if _, err := b.js.StreamInfo(name); err == nil {
		return nil
	} else if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("stream info %s: %w", name, err)
	}

	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     name,
		Subjects: subjects,
		Storage:  nats.FileStorage,
	})
	if err != nil && !errors.Is(err, nats.ErrStreamNameAlreadyInUse) {
		return fmt.Errorf("add stream %s: %w", name, err)
	}
	return nil
}

// Connected reports whether the underlying connection is usable.
func (b *Bus) Connected() bool {
	return b != nil && b.conn.IsConnected()
}

// Close shuts down the underlying NATS connection.
func (b *Bus) Close() {
	if b == nil {
		return
	}
	if err := b.conn.Drain(); err != nil {
		b.conn.Close()
	}
}

// Publish encodes v as JSON and publishes it to subj, waiting for the stream
// to acknowledge it.
func (b *Bus) Publish(ctx context.Context, subj string, v any) error {
	if b == nil {
		return errors.New("nil bus")
	}

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s event: %w", subj, err)
	}

	ack, err := b.js.Publish(subj, data, nats.Context(ctx))
	if err != nil {
		return fmt.Errorf("publish %s: %w", subj, err)
	}
	b.log.Debug("event published", "subject", subj, "stream", ack.Stream, "seq", ack.Sequence)
	return nil
}

type subscription struct {
	sub    *nats.Subscription
	mu     sync.Mutex
	closed bool
}

func (s *subscription) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.sub.Drain()
}

// Subscribe creates a durable consumer on subj and invokes fn for each event.
// Events are acked when fn returns nil. Failed events are redelivered with a
// growing delay until the delivery limit, then terminated.
func (b *Bus) Subscribe(ctx context.Context, subj, durable string, fn func(ctx context.Context, data []byte) error) (io.Closer, error) {
	if b == nil {
		return nil, errors.New("nil bus")
	}
	if fn == nil {
		return nil, errors.New("nil handler")
	}

	log := b.log.With("subject", subj, "durable", durable)
	handler := func(msg *nats.Msg) {
		handlerCtx, cancel := context.WithCancel(ctx)
		defer cancel()

		err := fn(handlerCtx, msg.Data)
		if err == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				log.Warn("event ack failed", "error", ackErr)
			}
			return
		}

		delivered := deliveries(msg)
		if delivered >= b.maxDeliver {
			log.Warn("event dropped", "deliveries", delivered, "error", err)
			_ = msg.Term()
			return
		}
		delay := redeliveryDelay(delivered)
		log.Debug("event redelivery scheduled", "deliveries", delivered, "delay", delay, "error", err)
		_ = msg.NakWithDelay(delay)
	}

	sub, err := b.js.Subscribe(subj, handler,
		nats.Durable(durable),
		nats.ManualAck(),
		nats.AckExplicit(),
		nats.MaxDeliver(b.maxDeliver),
	)
	if err != nil {
		return nil, fmt.Errorf("subscribe %s as %s: %w", subj, durable, err)
	}
	log.Debug("subscribed")

	s := &subscription{sub: sub}

	go func() {
		<-ctx.Done()
		_ = s.Close()
	}()

	return s, nil
}

// deliveries reports how often msg has been delivered, counting this one.
func deliveries(msg *nats.Msg) int {
	meta, err := msg.Metadata()
	if err != nil || meta == nil {
		return 1
	}
	return int(meta.NumDelivered)
}

// redeliveryDelay grows linearly with the delivery count up to redeliveryMax.
func redeliveryDelay(delivered int) time.Duration {
	if delivered < 1 {
		delivered = 1
	}
	d := time.Duration(delivered) * redeliveryBase
	if d > redeliveryMax {
		return redeliveryMax
	}
	return d
}
