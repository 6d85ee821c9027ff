package auth

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventLoginSuccess    ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure    ActivityEventType = "auth.login.failure"
	ActivityEventTokenRefreshed  ActivityEventType = "auth.token.refreshed"
	ActivityEventLogout          ActivityEventType = "auth.logout"
	ActivityEventPasswordChanged ActivityEventType = "auth.password.changed"
	ActivityEventStatusChanged   ActivityEventType = "user_account.status.changed"
	ActivityEventClaimsChanged   ActivityEventType = "user_account.claims.changed"
)

// ClaimOperation names the kind of claim change.
type ClaimOperation string

const (
	ClaimOperationAdd     ClaimOperation = "add"
	ClaimOperationRemove  ClaimOperation = "remove"
	ClaimOperationReplace ClaimOperation = "replace"
)

// ClaimChange describes a committed change to an account's claims.
// Replacement is only set for ClaimOperationReplace.
type ClaimChange struct {
	Operation   ClaimOperation
	Claim       Claim
	Replacement *Claim
}

// ActorRef identifies who triggered an operation.
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit information about authentication actions that
// are not domain events, such as failed logins.
type ActivityEvent struct {
	EventType     ActivityEventType
	Actor         ActorRef
	UserAccountID string
	Login         string
	FromStatus    UserAccountStatus
	ToStatus      UserAccountStatus
	ClaimChange   *ClaimChange
	Metadata      map[string]any
	OccurredAt    time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// recordActivity is best effort, sink failures are logged and dropped.
func recordActivity(ctx context.Context, sink ActivitySink, logger Logger, clock Clock, event ActivityEvent) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = clock.Now()
	}
	if err := sink.Record(ctx, event); err != nil {
		logger.Error("activity sink failed to record %s: %v", event.EventType, err)
	}
}
