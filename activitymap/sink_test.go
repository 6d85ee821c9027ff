package activitymap_test

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-auth-service/activitymap"
)

type recordingLogger struct {
	infos []string
}

func (l *recordingLogger) Debug(string, ...any) {}
func (l *recordingLogger) Error(string, ...any) {}
func (l *recordingLogger) Info(format string, args ...any) {
	l.infos = append(l.infos, fmt.Sprintf(format, args...))
}

func TestNewSinkNormalizesEvents(t *testing.T) {
	var got []activitymap.Normalized
	sink := activitymap.NewSink(func(_ context.Context, record activitymap.Normalized) error {
		got = append(got, record)
		return nil
	})

	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType:     auth.ActivityEventLoginSuccess,
		Actor:         auth.ActorRef{ID: "account-1", Type: "user_account"},
		UserAccountID: "account-1",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(got) != 1 {
		t.Fatalf("expected one record, got %d", len(got))
	}
	if got[0].Verb != activitymap.VerbLoggedIn || got[0].ActorID != "account-1" {
		t.Fatalf("unexpected record %+v", got[0])
	}
}

func TestNewSinkPropagatesEmitterErrors(t *testing.T) {
	boom := errors.New("boom")
	sink := activitymap.NewSink(func(context.Context, activitymap.Normalized) error { return boom })

	if err := sink.Record(context.Background(), auth.ActivityEvent{}); !errors.Is(err, boom) {
		t.Fatalf("expected emitter error, got %v", err)
	}

	if err := activitymap.NewSink(nil).Record(context.Background(), auth.ActivityEvent{}); err != nil {
		t.Fatalf("expected nil emitter to be a no-op, got %v", err)
	}
}

func TestLogSinkWritesJSON(t *testing.T) {
	logger := &recordingLogger{}
	sink := activitymap.LogSink(logger)

	err := sink.Record(context.Background(), auth.ActivityEvent{
		EventType:     auth.ActivityEventLogout,
		UserAccountID: "account-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(logger.infos) != 1 {
		t.Fatalf("expected one log line, got %d", len(logger.infos))
	}
	line := logger.infos[0]
	if !strings.HasPrefix(line, "activity {") || !strings.Contains(line, `"verb":"user_account.logged_out"`) {
		t.Fatalf("unexpected log line %q", line)
	}
}
