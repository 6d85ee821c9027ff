package outbox

import (
	"context"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/redis/go-redis/v9"
)

const (
	DefaultDedupeTTL    = 7 * 24 * time.Hour
	DefaultDedupePrefix = "auth:outbox:seen:"
)

// Handler processes a delivered message.
type Handler func(ctx context.Context, msg Message) error

// IdempotentConsumer runs a handler at most once per message id. The id is
// reserved in Redis before the handler runs and released if it fails, so a
// redelivery after a failure is handled again.
type IdempotentConsumer struct {
	client  redis.Cmdable
	handler Handler
	ttl     time.Duration
	prefix  string
}

type ConsumerOption func(*IdempotentConsumer)

func WithDedupeTTL(ttl time.Duration) ConsumerOption {
	return func(c *IdempotentConsumer) {
		if ttl > 0 {
			c.ttl = ttl
		}
	}
}

func WithDedupePrefix(prefix string) ConsumerOption {
	return func(c *IdempotentConsumer) {
		if prefix != "" {
			c.prefix = prefix
		}
	}
}

func NewIdempotentConsumer(client redis.Cmdable, handler Handler, opts ...ConsumerOption) *IdempotentConsumer {
	c := &IdempotentConsumer{
		client:  client,
		handler: handler,
		ttl:     DefaultDedupeTTL,
		prefix:  DefaultDedupePrefix,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Handle returns handled=false when msg was already seen.
func (c *IdempotentConsumer) Handle(ctx context.Context, msg Message) (bool, error) {
	key := c.prefix + msg.ID.String()

	ok, err := c.client.SetNX(ctx, key, msg.Type, c.ttl).Result()
	if err != nil {
		return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to reserve outbox message").
			WithMetadata(map[string]any{"id": msg.ID.String(), "type": msg.Type})
	}
	if !ok {
		consumerDuplicates.WithLabelValues(msg.Type).Inc()
		return false, nil
	}

	if err := c.handler(ctx, msg); err != nil {
		if delErr := c.client.Del(ctx, key).Err(); delErr != nil {
			return false, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to handle outbox message").
				WithMetadata(map[string]any{
					"id":            msg.ID.String(),
					"type":          msg.Type,
					"release_error": delErr.Error(),
				})
		}
		return false, err
	}
	return true, nil
}

// Publisher adapts the consumer so it can sit directly behind a Processor.
func (c *IdempotentConsumer) Publisher() Publisher {
	return PublisherFunc(func(ctx context.Context, msg Message) error {
		_, err := c.Handle(ctx, msg)
		return err
	})
}
