package logging

import (
	"strings"

	goerrors "github.com/goliatone/go-errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger adapts a zap sugared logger to the printf style logger interfaces
// used by the auth, repository and outbox packages.
type Logger struct {
	SugaredLogger *zap.SugaredLogger
}

// New builds a zap logger. format is either "json" or "console", level is
// any level zap understands (debug, info, warn, error).
func New(format, level string) (*Logger, error) {
	var cfg zap.Config
	switch strings.ToLower(format) {
	case "console":
		cfg = zap.NewDevelopmentConfig()
	default:
		cfg = zap.NewProductionConfig()
	}

	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryValidation, "invalid log level").
			WithMetadata(map[string]any{"level": level})
	}
	cfg.Level = zap.NewAtomicLevelAt(lvl)

	zapLogger, err := cfg.Build()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build logger")
	}
	return &Logger{SugaredLogger: zapLogger.Sugar()}, nil
}

// FromZap wraps an existing zap logger.
func FromZap(l *zap.Logger) *Logger {
	return &Logger{SugaredLogger: l.Sugar()}
}

func (l *Logger) Sync() {
	_ = l.SugaredLogger.Sync()
}

func (l *Logger) Debug(format string, args ...any) {
	l.SugaredLogger.Debugf(format, args...)
}
func (l *Logger) Info(format string, args ...any) {
	l.SugaredLogger.Infof(format, args...)
}
func (l *Logger) Error(format string, args ...any) {
	l.SugaredLogger.Errorf(format, args...)
}

// Named returns a child logger scoped to a component.
func (l *Logger) Named(name string) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.Named(name)}
}

// With returns a child logger carrying structured fields.
func (l *Logger) With(keysAndValues ...any) *Logger {
	return &Logger{SugaredLogger: l.SugaredLogger.With(keysAndValues...)}
}
