package auth

import (
	"encoding/json"
	"reflect"
	"sort"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// Event type tags persisted in the outbox. They are part of the wire format
// and must not change once published.
const (
	EventTypeUserAccountCreated  = "user_account.created"
	EventTypeClaimAdded          = "user_account.claim_added"
	EventTypeClaimRemoved        = "user_account.claim_removed"
	EventTypeClaimUpdated        = "user_account.claim_updated"
	EventTypePasswordHashUpdated = "user_account.password_hash_updated"
	EventTypeUserAccountLocked   = "user_account.locked"
	EventTypeUserAccountUnlocked = "user_account.unlocked"
	EventTypeUserAccountDeleted  = "user_account.deleted"
)

// DomainEvent is a state change raised by a UserAccount. The set of
// implementations is closed to this package.
type DomainEvent interface {
	EventType() string
	GetEventID() uuid.UUID
	GetUserAccountID() UserAccountID
	domainEvent()
}

// EventHeader carries the fields shared by all domain events.
type EventHeader struct {
	EventID       uuid.UUID     `json:"event_id"`
	UserAccountID UserAccountID `json:"user_account_id"`
}

func newEventHeader(id UserAccountID) EventHeader {
	return EventHeader{
		EventID:       uuid.New(),
		UserAccountID: id,
	}
}

func (h EventHeader) GetEventID() uuid.UUID           { return h.EventID }
func (h EventHeader) GetUserAccountID() UserAccountID { return h.UserAccountID }
func (EventHeader) domainEvent()                      {}

type UserAccountCreated struct {
	EventHeader
	Login string `json:"login"`
}

func (UserAccountCreated) EventType() string { return EventTypeUserAccountCreated }

type ClaimAdded struct {
	EventHeader
	Claim Claim `json:"claim"`
}

func (ClaimAdded) EventType() string { return EventTypeClaimAdded }

type ClaimRemoved struct {
	EventHeader
	Claim Claim `json:"claim"`
}

func (ClaimRemoved) EventType() string { return EventTypeClaimRemoved }

type ClaimUpdated struct {
	EventHeader
	Previous Claim `json:"previous"`
	Current  Claim `json:"current"`
}

func (ClaimUpdated) EventType() string { return EventTypeClaimUpdated }

type PasswordHashUpdated struct {
	EventHeader
}

func (PasswordHashUpdated) EventType() string { return EventTypePasswordHashUpdated }

type UserAccountLocked struct {
	EventHeader
}

func (UserAccountLocked) EventType() string { return EventTypeUserAccountLocked }

type UserAccountUnlocked struct {
	EventHeader
}

func (UserAccountUnlocked) EventType() string { return EventTypeUserAccountUnlocked }

type UserAccountDeleted struct {
	EventHeader
}

func (UserAccountDeleted) EventType() string { return EventTypeUserAccountDeleted }

// EventRegistry maps event type tags to their payload types. Encoding and
// decoding go through the registry only, so the outbox format does not depend
// on Go type names.
type EventRegistry struct {
	factories map[string]func() DomainEvent
	tags      map[reflect.Type]string
}

// NewEventRegistry returns an empty registry.
func NewEventRegistry() *EventRegistry {
	return &EventRegistry{
		factories: make(map[string]func() DomainEvent),
		tags:      make(map[reflect.Type]string),
	}
}

// DefaultEventRegistry returns a registry holding every UserAccount event.
func DefaultEventRegistry() *EventRegistry {
	r := NewEventRegistry()
	r.Register(EventTypeUserAccountCreated, func() DomainEvent { return &UserAccountCreated{} })
	r.Register(EventTypeClaimAdded, func() DomainEvent { return &ClaimAdded{} })
	r.Register(EventTypeClaimRemoved, func() DomainEvent { return &ClaimRemoved{} })
	r.Register(EventTypeClaimUpdated, func() DomainEvent { return &ClaimUpdated{} })
	r.Register(EventTypePasswordHashUpdated, func() DomainEvent { return &PasswordHashUpdated{} })
	r.Register(EventTypeUserAccountLocked, func() DomainEvent { return &UserAccountLocked{} })
	r.Register(EventTypeUserAccountUnlocked, func() DomainEvent { return &UserAccountUnlocked{} })
	r.Register(EventTypeUserAccountDeleted, func() DomainEvent { return &UserAccountDeleted{} })
	return r
}

// Register binds tag to the event type returned by factory. The factory must
// return a pointer.
func (r *EventRegistry) Register(tag string, factory func() DomainEvent) {
	r.factories[tag] = factory
	r.tags[eventValueType(factory())] = tag
}

// Types lists the registered tags in lexical order.
func (r *EventRegistry) Types() []string {
	out := make([]string, 0, len(r.factories))
	for tag := range r.factories {
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}

// Encode returns the type tag and JSON payload for event.
func (r *EventRegistry) Encode(event DomainEvent) (string, []byte, error) {
	if event == nil {
		return "", nil, ErrUnknownEventType
	}

	tag, ok := r.tags[eventValueType(event)]
	if !ok {
		return "", nil, withMetadata(ErrUnknownEventType, map[string]any{
			"event": reflect.TypeOf(event).String(),
		})
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return "", nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to encode domain event").
			WithMetadata(map[string]any{"type": tag})
	}

	return tag, payload, nil
}

// Decode rebuilds the event stored under tag.
func (r *EventRegistry) Decode(tag string, payload []byte) (DomainEvent, error) {
	factory, ok := r.factories[tag]
	if !ok {
		return nil, withMetadata(ErrUnknownEventType, map[string]any{"type": tag})
	}

	event := factory()
	if err := json.Unmarshal(payload, event); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to decode domain event").
			WithMetadata(map[string]any{"type": tag})
	}

	return event, nil
}

// eventValueType strips the pointer so values and pointers share a tag.
func eventValueType(event DomainEvent) reflect.Type {
	t := reflect.TypeOf(event)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
