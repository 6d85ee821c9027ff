package activitymap

import (
	"strings"
	"time"

	auth "github.com/goliatone/go-auth-service"
)

// Verbs for session activity. Account changes reuse the domain event tags
// so audit records and outbox messages share one vocabulary.
const (
	VerbLoggedIn       = "user_account.logged_in"
	VerbLoginFailed    = "user_account.login_failed"
	VerbTokenRefreshed = "user_account.token_refreshed"
	VerbLoggedOut      = "user_account.logged_out"
	VerbStatusChanged  = "user_account.status_changed"
	VerbClaimsChanged  = "user_account.claims_changed"
)

const (
	ChannelSession = "session"
	ChannelAccount = "account"
)

// ObjectTypeLogin is used when a failed login matched no account.
const (
	ObjectTypeUserAccount = "user_account"
	ObjectTypeLogin       = "login"
)

const (
	ActorSystem    = "system"
	ActorAnonymous = "anonymous"
)

const (
	MetadataKeyActorType   = "actor_type"
	MetadataKeyFromStatus  = "from_status"
	MetadataKeyToStatus    = "to_status"
	MetadataKeyLogin       = "login"
	MetadataKeyClaim       = "claim"
	MetadataKeyReplacement = "replacement"
)

// Normalized is the audit record written for one account activity.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Normalize maps an account activity onto the verb and object it affected.
// Status changes become the matching lifecycle event, a password change
// becomes a password hash update and claim changes become claim events.
func Normalize(event auth.ActivityEvent) Normalized {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	out := Normalized{
		ActorID:    actorID(event),
		Verb:       verb(event),
		ObjectType: ObjectTypeUserAccount,
		ObjectID:   strings.TrimSpace(event.UserAccountID),
		Channel:    channel(event.EventType),
		Metadata:   metadata(event),
		OccurredAt: occurredAt.UTC(),
	}

	if out.ObjectID == "" && event.EventType == auth.ActivityEventLoginFailure {
		out.ObjectType = ObjectTypeLogin
		out.ObjectID = strings.TrimSpace(event.Login)
	}
	return out
}

func verb(event auth.ActivityEvent) string {
	switch event.EventType {
	case auth.ActivityEventLoginSuccess:
		return VerbLoggedIn
	case auth.ActivityEventLoginFailure:
		return VerbLoginFailed
	case auth.ActivityEventTokenRefreshed:
		return VerbTokenRefreshed
	case auth.ActivityEventLogout:
		return VerbLoggedOut
	case auth.ActivityEventPasswordChanged:
		return auth.EventTypePasswordHashUpdated
	case auth.ActivityEventStatusChanged:
		return statusVerb(event.FromStatus, event.ToStatus)
	case auth.ActivityEventClaimsChanged:
		return claimVerb(event.ClaimChange)
	}
	return string(event.EventType)
}

func statusVerb(from, to auth.UserAccountStatus) string {
	switch {
	case to == auth.UserAccountStatusLocked:
		return auth.EventTypeUserAccountLocked
	case to == auth.UserAccountStatusDeleted:
		return auth.EventTypeUserAccountDeleted
	case to == auth.UserAccountStatusActive && from == auth.UserAccountStatusLocked:
		return auth.EventTypeUserAccountUnlocked
	}
	return VerbStatusChanged
}

func claimVerb(change *auth.ClaimChange) string {
	if change == nil {
		return VerbClaimsChanged
	}
	switch change.Operation {
	case auth.ClaimOperationAdd:
		return auth.EventTypeClaimAdded
	case auth.ClaimOperationRemove:
		return auth.EventTypeClaimRemoved
	case auth.ClaimOperationReplace:
		return auth.EventTypeClaimUpdated
	}
	return VerbClaimsChanged
}

func channel(t auth.ActivityEventType) string {
	switch t {
	case auth.ActivityEventLoginSuccess, auth.ActivityEventLoginFailure,
		auth.ActivityEventTokenRefreshed, auth.ActivityEventLogout:
		return ChannelSession
	}
	return ChannelAccount
}

// actorID prefers the explicit actor. Without one, a failed login is
// attributed to an anonymous caller and anything else to the system.
func actorID(event auth.ActivityEvent) string {
	if id := strings.TrimSpace(event.Actor.ID); id != "" {
		return id
	}
	if event.EventType == auth.ActivityEventLoginFailure {
		return ActorAnonymous
	}
	return ActorSystem
}

func metadata(event auth.ActivityEvent) map[string]any {
	out := make(map[string]any, len(event.Metadata)+4)
	for key, value := range event.Metadata {
		out[key] = value
	}

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		out[MetadataKeyActorType] = actorType
	}
	if login := strings.TrimSpace(event.Login); login != "" {
		out[MetadataKeyLogin] = login
	}
	if event.FromStatus != "" {
		out[MetadataKeyFromStatus] = string(event.FromStatus)
	}
	if event.ToStatus != "" {
		out[MetadataKeyToStatus] = string(event.ToStatus)
	}
	if change := event.ClaimChange; change != nil {
		out[MetadataKeyClaim] = change.Claim.String()
		if change.Replacement != nil {
			out[MetadataKeyReplacement] = change.Replacement.String()
		}
	}

	if len(out) == 0 {
		return nil
	}
	return out
}
