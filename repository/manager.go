package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"

	auth "github.com/goliatone/go-auth-service"
	"github.com/goliatone/go-repository-bun"
	"github.com/uptrace/bun"
)

// Manager implements auth.RepositoryManager on top of Bun.
type Manager struct {
	db       *bun.DB
	registry *auth.EventRegistry
	clock    auth.Clock
	outbox   OutboxWriter
	reader   *ReadService
	logger   auth.Logger
}

var (
	_ auth.RepositoryManager        = (*Manager)(nil)
	_ repository.TransactionManager = (*Manager)(nil)
	_ repository.Validator          = (*Manager)(nil)
)

// ManagerOption customizes the Manager.
type ManagerOption func(*Manager)

// WithEventRegistry overrides the registry used to encode outbox messages.
func WithEventRegistry(r *auth.EventRegistry) ManagerOption {
	return func(m *Manager) {
		if r != nil {
			m.registry = r
		}
	}
}

// WithClock injects the clock used for outbox timestamps and refresh token
// expiry checks.
func WithClock(c auth.Clock) ManagerOption {
	return func(m *Manager) {
		if c != nil {
			m.clock = c
		}
	}
}

// WithOutboxWriter replaces the writer used to insert outbox rows.
func WithOutboxWriter(w OutboxWriter) ManagerOption {
	return func(m *Manager) {
		if w != nil {
			m.outbox = w
		}
	}
}

// WithLogger overrides the logger.
func WithLogger(l auth.Logger) ManagerOption {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

func NewManager(db *bun.DB, opts ...ManagerOption) *Manager {
	m := &Manager{
		db:       db,
		registry: auth.DefaultEventRegistry(),
		clock:    auth.SystemClock{},
		logger:   auth.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(m)
		}
	}

	if m.outbox == nil {
		m.outbox = NewOutboxStore(db)
	}
	m.reader = NewReadService(db)

	return m
}

// Begin starts a new unit of work.
func (m *Manager) Begin() auth.UnitOfWork {
	return newUnitOfWork(m)
}

func (m *Manager) Reader() auth.ReadService {
	return m.reader
}

func (m *Manager) Validate() error {
	if m.db == nil {
		return errors.New("repository db should be initialized")
	}

	if m.registry == nil {
		return errors.New("repository event registry should be initialized")
	}

	if m.outbox == nil {
		return errors.New("repository outbox writer should be initialized")
	}

	return nil
}

func (m *Manager) MustValidate() {
	if err := m.Validate(); err != nil {
		log.Panic(err)
	}
}

func (m *Manager) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return m.db.RunInTx(ctx, opts, f)
	}
}
