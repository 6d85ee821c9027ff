package activitymap

import (
	"context"
	"encoding/json"

	auth "github.com/goliatone/go-auth-service"
)

// Emitter receives normalized activity records.
type Emitter func(ctx context.Context, record Normalized) error

// NewSink returns an auth.ActivitySink that normalizes every event before
// handing it to emit.
func NewSink(emit Emitter) auth.ActivitySink {
	return auth.ActivitySinkFunc(func(ctx context.Context, event auth.ActivityEvent) error {
		if emit == nil {
			return nil
		}
		return emit(ctx, Normalize(event))
	})
}

// LogSink writes normalized records as JSON lines to logger.
func LogSink(logger auth.Logger) auth.ActivitySink {
	return NewSink(func(_ context.Context, record Normalized) error {
		payload, err := json.Marshal(record)
		if err != nil {
			return err
		}
		logger.Info("activity %s", payload)
		return nil
	})
}
