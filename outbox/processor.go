package outbox

import (
	"context"
	"log"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const (
	DefaultInterval    = 5 * time.Second
	DefaultBatchSize   = 20
	DefaultMaxAttempts = 10
	DefaultLease       = time.Minute
)

// Logger is the printf style logger used by the processor.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// Processor sweeps the outbox table and hands messages to a Publisher.
type Processor struct {
	store       Store
	publisher   Publisher
	logger      Logger
	now         func() time.Time
	interval    time.Duration
	batchSize   int
	maxAttempts int
	lease       time.Duration
}

// ProcessorOption customizes the Processor.
type ProcessorOption func(*Processor)

func WithInterval(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.interval = d
		}
	}
}

func WithBatchSize(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithMaxAttempts sets how many times a message is tried before the
// processor stops picking it up.
func WithMaxAttempts(n int) ProcessorOption {
	return func(p *Processor) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithLease sets how long claimed messages stay reserved for this
// processor. It should be well above the publish timeout.
func WithLease(d time.Duration) ProcessorOption {
	return func(p *Processor) {
		if d > 0 {
			p.lease = d
		}
	}
}

func WithLogger(l Logger) ProcessorOption {
	return func(p *Processor) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithNow(now func() time.Time) ProcessorOption {
	return func(p *Processor) {
		if now != nil {
			p.now = now
		}
	}
}

func NewProcessor(store Store, publisher Publisher, opts ...ProcessorOption) *Processor {
	p := &Processor{
		store:       store,
		publisher:   publisher,
		logger:      stdLogger{},
		now:         func() time.Time { return time.Now().UTC() },
		interval:    DefaultInterval,
		batchSize:   DefaultBatchSize,
		maxAttempts: DefaultMaxAttempts,
		lease:       DefaultLease,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(p)
		}
	}
	return p
}

// Run processes the outbox on every tick until ctx is cancelled.
func (p *Processor) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("outbox processor started interval=%s batch_size=%d", p.interval, p.batchSize)

	for {
		if _, err := p.ProcessOnce(ctx); err != nil && ctx.Err() == nil {
			p.logger.Error("outbox iteration failed: %v", err)
		}

		select {
		case <-ctx.Done():
			p.logger.Info("outbox processor stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// ProcessOnce publishes one batch and returns how many messages were
// delivered. The first publish failure ends the batch so that later events
// of the same account are never delivered ahead of an earlier one. Messages
// left untried after a failed publish are released for the next run.
func (p *Processor) ProcessOnce(ctx context.Context) (int, error) {
	now := p.now()
	messages, err := p.store.Claim(ctx, ClaimRequest{
		Limit:       p.batchSize,
		MaxAttempts: p.maxAttempts,
		Now:         now,
		LeaseUntil:  now.Add(p.lease),
	})
	if err != nil {
		return 0, err
	}
	if len(messages) == 0 {
		return 0, nil
	}
	batchSize.Observe(float64(len(messages)))

	published := 0
	for i, msg := range messages {
		start := time.Now()
		if err := p.publisher.Publish(ctx, msg); err != nil {
			publishErrors.WithLabelValues(msg.Type).Inc()
			p.logger.Error("outbox publish failed id=%s type=%s attempts=%d: %v",
				msg.ID, msg.Type, msg.Attempts+1, err)

			if markErr := p.store.MarkFailed(ctx, msg.ID, err.Error()); markErr != nil {
				return published, goerrors.Wrap(markErr, goerrors.CategoryInternal, "failed to record outbox publish failure").
					WithMetadata(map[string]any{"id": msg.ID.String(), "type": msg.Type})
			}
			p.release(ctx, messages[i+1:])
			if msg.Attempts+1 >= p.maxAttempts {
				deadLettered.WithLabelValues(msg.Type).Inc()
				p.logger.Error("outbox message exhausted attempts id=%s type=%s", msg.ID, msg.Type)
			}
			return published, nil
		}
		publishDuration.WithLabelValues(msg.Type).Observe(time.Since(start).Seconds())

		// On failure the rest of the batch keeps its lease and expires
		// together with msg, which is then delivered again first.
		if err := p.store.MarkProcessed(ctx, msg.ID, p.now()); err != nil {
			return published, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to record published outbox message").
				WithMetadata(map[string]any{"id": msg.ID.String(), "type": msg.Type})
		}
		messagesPublished.WithLabelValues(msg.Type).Inc()
		published++
	}

	p.logger.Debug("outbox batch processed published=%d", published)
	return published, nil
}

// release hands untried messages back so the next run starts from the
// oldest one. A failed release only delays them until the lease runs out.
func (p *Processor) release(ctx context.Context, messages []Message) {
	if len(messages) == 0 {
		return
	}
	ids := make([]uuid.UUID, 0, len(messages))
	for _, msg := range messages {
		ids = append(ids, msg.ID)
	}
	if err := p.store.Release(ctx, ids); err != nil {
		p.logger.Error("outbox release failed count=%d: %v", len(ids), err)
	}
}

type stdLogger struct{}

func (stdLogger) Debug(format string, args ...any) {
	log.Printf("[DEBUG] "+format, args...)
}

func (stdLogger) Info(format string, args ...any) {
	log.Printf("[INFO] "+format, args...)
}

func (stdLogger) Error(format string, args ...any) {
	log.Printf("[ERROR] "+format, args...)
}
