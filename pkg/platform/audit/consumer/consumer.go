package consumer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"
)

const (
	defaultGroup       = "aml-audit-materializer"
	defaultMaxAttempts = 5
	defaultBackoff     = 200 * time.Millisecond
)

// Consumer polls the audit topic as part of a consumer group and hands every
// record to a Handler. Offsets are committed only after the handler succeeds.
type Consumer struct {
	client      *kgo.Client
	handler     Handler
	logger      *slog.Logger
	maxAttempts int
	backoff     time.Duration
}

type Option func(*Consumer)

func WithLogger(logger *slog.Logger) Option {
	return func(c *Consumer) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithRetry sets how many times a failing handler is invoked before Run gives
// up, and the base delay between attempts.
func WithRetry(attempts int, backoff time.Duration) Option {
	return func(c *Consumer) {
		if attempts > 0 {
			c.maxAttempts = attempts
		}
		if backoff > 0 {
			c.backoff = backoff
		}
	}
}

// New joins group (a default group is used when empty) on the given topic.
// Extra client options are appended after the defaults.
func New(brokers []string, topic, group string, handler Handler, opts []Option, clientOpts ...kgo.Opt) (*Consumer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka brokers are required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	if handler == nil {
		return nil, errors.New("handler is required")
	}
	if group == "" {
		group = defaultGroup
	}
	base := []kgo.Opt{
		kgo.SeedBrokers(brokers...),
		kgo.ConsumerGroup(group),
		kgo.ConsumeTopics(topic),
		kgo.DisableAutoCommit(),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	}
	client, err := kgo.NewClient(append(base, clientOpts...)...)
	if err != nil {
		return nil, fmt.Errorf("create kafka consumer: %w", err)
	}

	c := &Consumer{
		client:      client,
		handler:     handler,
		logger:      slog.Default(),
		maxAttempts: defaultMaxAttempts,
		backoff:     defaultBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Run polls until ctx is cancelled. It returns nil on cancellation and an
// error when a record keeps failing after all retries; the record stays
// uncommitted so the next run picks it up again.
func (c *Consumer) Run(ctx context.Context) error {
	for {
		fetches := c.client.PollFetches(ctx)
		if fetches.IsClientClosed() || ctx.Err() != nil {
			return nil
		}
		for _, fe := range fetches.Errors() {
			c.logger.Warn("kafka fetch error",
				"topic", fe.Topic,
				"partition", fe.Partition,
				"error", fe.Err,
			)
		}

		var failed error
		fetches.EachRecord(func(r *kgo.Record) {
			if failed != nil {
				return
			}
			if err := c.handle(ctx, fromRecord(r)); err != nil {
				failed = err
				return
			}
			if err := c.client.CommitRecords(ctx, r); err != nil {
				c.logger.Warn("failed to commit audit record",
					"partition", r.Partition,
					"offset", r.Offset,
					"error", err,
				)
			}
		})
		if failed != nil {
			if ctx.Err() != nil {
				return nil
			}
			return failed
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg *Message) error {
	var err error
	delay := c.backoff
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if err = c.handler.Handle(ctx, msg); err == nil {
			return nil
		}
		c.logger.Warn("audit handler failed",
			"attempt", attempt,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"error", err,
		)
		if attempt == c.maxAttempts {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	return fmt.Errorf("handle record %d/%d after %d attempts: %w", msg.Partition, msg.Offset, c.maxAttempts, err)
}

// Ping checks broker connectivity.
func (c *Consumer) Ping(ctx context.Context) error {
	return c.client.Ping(ctx)
}

// Close leaves the group and closes the client.
func (c *Consumer) Close() {
	c.client.Close()
}
