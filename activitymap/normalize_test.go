package activitymap_test

import (
	"testing"
	"time"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/activitymap"
)

func TestNormalizeStatusTransitions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		from auth.UserAccountStatus
		to   auth.UserAccountStatus
		verb string
	}{
		{"lock", auth.UserAccountStatusActive, auth.UserAccountStatusLocked, auth.EventTypeUserAccountLocked},
		{"unlock", auth.UserAccountStatusLocked, auth.UserAccountStatusActive, auth.EventTypeUserAccountUnlocked},
		{"delete active", auth.UserAccountStatusActive, auth.UserAccountStatusDeleted, auth.EventTypeUserAccountDeleted},
		{"delete locked", auth.UserAccountStatusLocked, auth.UserAccountStatusDeleted, auth.EventTypeUserAccountDeleted},
		{"unknown transition", auth.UserAccountStatusDeleted, auth.UserAccountStatusActive, activitymap.VerbStatusChanged},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(auth.ActivityEvent{
				EventType:     auth.ActivityEventStatusChanged,
				Actor:         auth.ActorRef{ID: "admin-42", Type: "user_account"},
				UserAccountID: "account-100",
				FromStatus:    tc.from,
				ToStatus:      tc.to,
			})

			if out.Verb != tc.verb {
				t.Fatalf("expected verb %q, got %q", tc.verb, out.Verb)
			}
			if out.ActorID != "admin-42" {
				t.Fatalf("expected actor_id admin-42, got %q", out.ActorID)
			}
			if out.ObjectType != activitymap.ObjectTypeUserAccount || out.ObjectID != "account-100" {
				t.Fatalf("expected user_account/account-100, got %s/%s", out.ObjectType, out.ObjectID)
			}
			if out.Channel != activitymap.ChannelAccount {
				t.Fatalf("expected channel account, got %q", out.Channel)
			}
			if out.Metadata[activitymap.MetadataKeyFromStatus] != string(tc.from) {
				t.Fatalf("expected from_status %s, got %#v", tc.from, out.Metadata[activitymap.MetadataKeyFromStatus])
			}
			if out.Metadata[activitymap.MetadataKeyToStatus] != string(tc.to) {
				t.Fatalf("expected to_status %s, got %#v", tc.to, out.Metadata[activitymap.MetadataKeyToStatus])
			}
		})
	}
}

func TestNormalizeClaimChanges(t *testing.T) {
	t.Parallel()

	editor := auth.NewClaim("role", "editor")
	owner := auth.NewClaim("role", "owner")

	tests := []struct {
		name        string
		change      *auth.ClaimChange
		verb        string
		replacement any
	}{
		{"add", &auth.ClaimChange{Operation: auth.ClaimOperationAdd, Claim: editor}, auth.EventTypeClaimAdded, nil},
		{"remove", &auth.ClaimChange{Operation: auth.ClaimOperationRemove, Claim: editor}, auth.EventTypeClaimRemoved, nil},
		{
			"replace",
			&auth.ClaimChange{Operation: auth.ClaimOperationReplace, Claim: editor, Replacement: &owner},
			auth.EventTypeClaimUpdated,
			owner.String(),
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(auth.ActivityEvent{
				EventType:     auth.ActivityEventClaimsChanged,
				UserAccountID: "account-7",
				ClaimChange:   tc.change,
			})

			if out.Verb != tc.verb {
				t.Fatalf("expected verb %q, got %q", tc.verb, out.Verb)
			}
			if out.ObjectID != "account-7" {
				t.Fatalf("expected object_id account-7, got %q", out.ObjectID)
			}
			if out.ActorID != activitymap.ActorSystem {
				t.Fatalf("expected system actor, got %q", out.ActorID)
			}
			if out.Metadata[activitymap.MetadataKeyClaim] != editor.String() {
				t.Fatalf("expected claim %s, got %#v", editor, out.Metadata[activitymap.MetadataKeyClaim])
			}
			if got := out.Metadata[activitymap.MetadataKeyReplacement]; got != tc.replacement {
				t.Fatalf("expected replacement %#v, got %#v", tc.replacement, got)
			}
		})
	}
}

func TestNormalizeLoginOutcomes(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)

	success := activitymap.Normalize(auth.ActivityEvent{
		EventType:     auth.ActivityEventLoginSuccess,
		Actor:         auth.ActorRef{ID: "account-1", Type: "user_account"},
		UserAccountID: "account-1",
		Login:         "jane@example.com",
		OccurredAt:    ts,
	})
	if success.Verb != activitymap.VerbLoggedIn || success.Channel != activitymap.ChannelSession {
		t.Fatalf("unexpected success record %+v", success)
	}
	if success.ObjectType != activitymap.ObjectTypeUserAccount || success.ObjectID != "account-1" {
		t.Fatalf("expected the account as object, got %s/%s", success.ObjectType, success.ObjectID)
	}
	if !success.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, success.OccurredAt)
	}
	if success.Metadata[activitymap.MetadataKeyActorType] != "user_account" {
		t.Fatalf("expected actor_type user_account, got %#v", success.Metadata[activitymap.MetadataKeyActorType])
	}

	event := auth.ActivityEvent{
		EventType: auth.ActivityEventLoginFailure,
		Login:     "ghost@example.com",
		Metadata:  map[string]any{"error": "invalid credentials"},
	}
	failure := activitymap.Normalize(event)
	if failure.Verb != activitymap.VerbLoginFailed {
		t.Fatalf("expected verb %q, got %q", activitymap.VerbLoginFailed, failure.Verb)
	}
	if failure.ActorID != activitymap.ActorAnonymous {
		t.Fatalf("expected anonymous actor, got %q", failure.ActorID)
	}
	if failure.ObjectType != activitymap.ObjectTypeLogin || failure.ObjectID != "ghost@example.com" {
		t.Fatalf("expected login object, got %s/%s", failure.ObjectType, failure.ObjectID)
	}
	if failure.Metadata["error"] != "invalid credentials" || failure.Metadata[activitymap.MetadataKeyLogin] != "ghost@example.com" {
		t.Fatalf("unexpected metadata %+v", failure.Metadata)
	}
	if failure.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}

	failure.Metadata["extra"] = true
	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeAccountVerbs(t *testing.T) {
	t.Parallel()

	tests := []struct {
		eventType auth.ActivityEventType
		verb      string
		channel   string
	}{
		{auth.ActivityEventPasswordChanged, auth.EventTypePasswordHashUpdated, activitymap.ChannelAccount},
		{auth.ActivityEventTokenRefreshed, activitymap.VerbTokenRefreshed, activitymap.ChannelSession},
		{auth.ActivityEventLogout, activitymap.VerbLoggedOut, activitymap.ChannelSession},
	}

	for _, tc := range tests {
		out := activitymap.Normalize(auth.ActivityEvent{EventType: tc.eventType, UserAccountID: "account-3"})
		if out.Verb != tc.verb || out.Channel != tc.channel {
			t.Fatalf("%s: expected %s on %s, got %s on %s", tc.eventType, tc.verb, tc.channel, out.Verb, out.Channel)
		}
		if out.ObjectID != "account-3" {
			t.Fatalf("%s: expected object_id account-3, got %q", tc.eventType, out.ObjectID)
		}
		if out.Metadata != nil {
			t.Fatalf("%s: expected no metadata, got %+v", tc.eventType, out.Metadata)
		}
	}
}
