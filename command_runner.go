package auth

import (
	"context"
	"errors"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

const (
	defaultCommandTimeout  = 10 * time.Second
	defaultConflictRetries = 3
)

// HandlerOption customizes command handlers.
type HandlerOption func(*handlerDeps)

// handlerDeps is shared by every command handler.
type handlerDeps struct {
	repo     RepositoryManager
	hasher   PasswordHasher
	tokens   TokenService
	clock    Clock
	policy   AdministrationPolicy
	activity ActivitySink
	logger   Logger
	timeout  time.Duration
	retries  int
}

// WithHandlerPasswordHasher sets the hasher.
func WithHandlerPasswordHasher(h PasswordHasher) HandlerOption {
	return func(d *handlerDeps) {
		if h != nil {
			d.hasher = h
		}
	}
}

// WithHandlerTokenService sets the token service.
func WithHandlerTokenService(ts TokenService) HandlerOption {
	return func(d *handlerDeps) { d.tokens = ts }
}

// WithHandlerClock injects a custom clock (useful for tests).
func WithHandlerClock(c Clock) HandlerOption {
	return func(d *handlerDeps) { d.clock = normalizeClock(c) }
}

// WithHandlerPolicy overrides the administration policy.
func WithHandlerPolicy(p AdministrationPolicy) HandlerOption {
	return func(d *handlerDeps) { d.policy = p }
}

// WithHandlerActivitySink sets the ActivitySink used to publish audit events.
func WithHandlerActivitySink(sink ActivitySink) HandlerOption {
	return func(d *handlerDeps) { d.activity = normalizeActivitySink(sink) }
}

// WithHandlerLogger overrides the logger.
func WithHandlerLogger(l Logger) HandlerOption {
	return func(d *handlerDeps) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithHandlerTimeout bounds the time spent in one command, retries included.
func WithHandlerTimeout(timeout time.Duration) HandlerOption {
	return func(d *handlerDeps) {
		if timeout > 0 {
			d.timeout = timeout
		}
	}
}

// WithConflictRetries sets how many times a command is replayed after
// ErrConcurrentAccess. Zero disables retries.
func WithConflictRetries(n int) HandlerOption {
	return func(d *handlerDeps) {
		if n >= 0 {
			d.retries = n
		}
	}
}

func newHandlerDeps(repo RepositoryManager, opts ...HandlerOption) handlerDeps {
	d := handlerDeps{
		repo:     repo,
		hasher:   NewBcryptHasher(0),
		clock:    SystemClock{},
		policy:   DefaultAdministrationPolicy(),
		activity: noopActivitySink{},
		logger:   defLogger{},
		timeout:  defaultCommandTimeout,
		retries:  defaultConflictRetries,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(&d)
		}
	}
	return d
}

// run executes fn against a fresh unit of work and commits it. On
// ErrConcurrentAccess the whole command is replayed with a new unit of work,
// so the aggregate is reloaded and its events raised again.
func (d handlerDeps) run(ctx context.Context, operation string, fn func(ctx context.Context, uow UnitOfWork) error) error {
	select {
	case <-ctx.Done():
		return goerrors.Wrap(
			ctx.Err(),
			goerrors.CategoryOperation,
			"context cancelled during "+operation,
		)
	default:
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	for attempt := 0; ; attempt++ {
		uow := d.repo.Begin()

		err := fn(ctx, uow)
		if err == nil {
			err = uow.Commit(ctx)
		}

		if err == nil {
			return nil
		}

		if errors.Is(err, ErrConcurrentAccess) && attempt < d.retries {
			d.logger.Info("%s: concurrent access detected, retrying (attempt %d)", operation, attempt+1)
			continue
		}

		return normalizeCommandError(err, operation)
	}
}

func normalizeCommandError(err error, operation string) error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return err
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, operation+" failed")
}

// loadAccount wraps lookups so a missing account carries its id.
func loadAccount(ctx context.Context, uow UnitOfWork, id UserAccountID) (*UserAccount, error) {
	account, err := uow.Accounts().GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, withMetadata(ErrNotFound, map[string]any{"user_account_id": id.String()})
		}
		return nil, err
	}
	return account, nil
}
