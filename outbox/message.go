package outbox

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is a stored domain event handed to publishers. Consumers must be
// idempotent on ID since delivery is at least once.
type Message struct {
	ID        uuid.UUID `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Type      string    `json:"type"`
	Content   []byte    `json:"content"`
	Attempts  int       `json:"attempts"`
}

// Publisher delivers a message to external consumers.
type Publisher interface {
	Publish(ctx context.Context, msg Message) error
}

// PublisherFunc adapts a function to the Publisher interface.
type PublisherFunc func(ctx context.Context, msg Message) error

func (f PublisherFunc) Publish(ctx context.Context, msg Message) error {
	return f(ctx, msg)
}

// ClaimRequest selects the next messages to publish. Messages that have
// failed MaxAttempts times or are leased past Now are skipped. Claimed
// messages are leased until LeaseUntil.
type ClaimRequest struct {
	Limit       int
	MaxAttempts int
	Now         time.Time
	LeaseUntil  time.Time
}

// Store gives the processor access to unprocessed messages. Each call is a
// short transaction of its own and no transaction is open while a message
// is published. A lease that runs out makes its messages claimable again.
type Store interface {
	// Claim leases and returns at most req.Limit messages, oldest first.
	Claim(ctx context.Context, req ClaimRequest) ([]Message, error)
	MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkFailed counts a failed attempt and clears the lease.
	MarkFailed(ctx context.Context, id uuid.UUID, reason string) error
	// Release clears the lease of messages that were claimed but not tried.
	Release(ctx context.Context, ids []uuid.UUID) error
}
