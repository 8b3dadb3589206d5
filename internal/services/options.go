package services

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// EventPublisher sends domain events. *mq.MQ satisfies it.
type EventPublisher interface {
	PublishJSON(ctx context.Context, channel string, event any) (string, error)
}

// Option configures optional collaborators shared by the services.
type Option func(*options)

type options struct {
	events         EventPublisher
	logger         *zap.Logger
	now            func() time.Time
	strictProducts bool
}

// WithEventPublisher publishes domain events after successful writes.
func WithEventPublisher(events EventPublisher) Option {
	return func(o *options) {
		o.events = events
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithStrictProducts makes CreateCampaign reject product ids that the
// catalog cannot resolve. By default unknown ids are stored as submitted.
func WithStrictProducts(strict bool) Option {
	return func(o *options) {
		o.strictProducts = strict
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger: zap.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish sends event on channel when a publisher is configured. Failures
// are logged and never returned: the write the event describes has
// already been committed.
func (o options) publish(ctx context.Context, channel string, event any) {
	if o.events == nil {
		return
	}
	id, err := o.events.PublishJSON(ctx, channel, event)
	if err != nil {
		o.logger.Warn("publish event failed", zap.String("channel", channel), zap.Error(err))
		return
	}
	o.logger.Debug("event published", zap.String("channel", channel), zap.String("message_id", id))
}
