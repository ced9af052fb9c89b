package assets

import (
	"context"
	"time"

	"assetd/pkg/logger"
)

// Option customises an Onboarder or Service.
type Option func(*options)

type options struct {
	events  Publisher
	log     *logger.Logger
	now     func() time.Time
	newCode func(prefix string) string
}

func defaultOptions() options {
	return options{
		log:     logger.NewNop(),
		now:     func() time.Time { return time.Now().UTC() },
		newCode: GenerateCode,
	}
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}
	return o
}

// WithPublisher publishes lifecycle events through p.
func WithPublisher(p Publisher) Option {
	return func(o *options) { o.events = p }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithCodeGenerator overrides human code generation.
func WithCodeGenerator(fn func(prefix string) string) Option {
	return func(o *options) {
		if fn != nil {
			o.newCode = fn
		}
	}
}

// publish is best effort: a failed publish is logged and never fails the caller.
func (o options) publish(ctx context.Context, subject string, v any) {
	if o.events == nil {
		return
	}
	if err := o.events.Publish(ctx, subject, v); err != nil {
		o.log.Warn("publish event failed", "subject", subject, "error", err)
	}
}
