package repository

import (
	"context"
	"database/sql"
	"errors"
	"slices"
	"time"

	auth "github.com/goliatone/go-auth-service"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// trackedAccount is an aggregate loaded or added through a unit of work.
// version is the row version read from storage, zero for new accounts.
type trackedAccount struct {
	account *auth.UserAccount
	loaded  auth.UserAccountSnapshot
	version int64
}

func (t *trackedAccount) isNew() bool {
	return t.version == 0
}

type unitOfWork struct {
	mgr     *Manager
	tracked []*trackedAccount
	byID    map[uuid.UUID]*trackedAccount
}

var (
	_ auth.UnitOfWork            = (*unitOfWork)(nil)
	_ auth.UserAccountRepository = (*unitOfWork)(nil)
)

func newUnitOfWork(mgr *Manager) *unitOfWork {
	return &unitOfWork{
		mgr:  mgr,
		byID: make(map[uuid.UUID]*trackedAccount),
	}
}

func (u *unitOfWork) Accounts() auth.UserAccountRepository {
	return u
}

// Add tracks a new account. It is inserted on Commit.
func (u *unitOfWork) Add(account *auth.UserAccount) {
	if account == nil {
		return
	}
	if _, ok := u.byID[account.ID()]; ok {
		return
	}
	u.track(&trackedAccount{account: account})
}

func (u *unitOfWork) GetByID(ctx context.Context, id auth.UserAccountID) (*auth.UserAccount, error) {
	if t, ok := u.byID[id]; ok {
		return t.account, nil
	}
	return u.load(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.id = ?", id)
	})
}

func (u *unitOfWork) GetByLogin(ctx context.Context, login string) (*auth.UserAccount, error) {
	return u.load(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.Where("?TableAlias.login = ?", login)
	})
}

func (u *unitOfWork) GetByActiveRefreshToken(ctx context.Context, value string) (*auth.UserAccount, error) {
	now := u.mgr.clock.Now().UTC()
	return u.load(ctx, func(q *bun.SelectQuery) *bun.SelectQuery {
		return q.
			Where("?TableAlias.refresh_token_value = ?", value).
			Where("?TableAlias.refresh_token_is_active = ?", true).
			Where("?TableAlias.refresh_token_expires_at > ?", now)
	})
}

// load reads one account. An account already tracked by this unit of work is
// returned as is so that every lookup sees the same instance.
func (u *unitOfWork) load(ctx context.Context, where func(*bun.SelectQuery) *bun.SelectQuery) (*auth.UserAccount, error) {
	model := &UserAccountModel{}
	q := u.mgr.db.NewSelect().
		Model(model).
		Relation("Claims")

	if err := where(q).Limit(1).Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load user account")
	}

	if t, ok := u.byID[model.ID]; ok {
		return t.account, nil
	}

	snapshot, err := model.snapshot()
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "invalid user account row").
			WithMetadata(map[string]any{"user_account_id": model.ID.String()})
	}

	account := auth.RestoreUserAccount(snapshot)
	u.track(&trackedAccount{
		account: account,
		loaded:  snapshot,
		version: model.Version,
	})
	return account, nil
}

func (u *unitOfWork) track(t *trackedAccount) {
	u.tracked = append(u.tracked, t)
	u.byID[t.account.ID()] = t
}

// Commit writes every tracked account and its pending events in one
// transaction. Pending events are cleared only once the transaction has
// committed; on failure the accounts keep their events.
func (u *unitOfWork) Commit(ctx context.Context) error {
	if len(u.tracked) == 0 {
		return nil
	}

	type written struct {
		t       *trackedAccount
		version int64
		state   auth.UserAccountSnapshot
	}
	var done []written

	err := u.mgr.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		done = done[:0]
		var messages []*OutboxMessage
		createdAt := u.mgr.clock.Now().UTC()

		for _, t := range u.tracked {
			state := t.account.Snapshot()
			events := t.account.PendingEvents()

			version := t.version
			if t.isNew() || len(events) > 0 || !sameState(t.loaded, state) {
				var err error
				if version, err = u.save(ctx, tx, t, state); err != nil {
					return err
				}
			}

			for _, event := range events {
				msg, err := u.outboxMessage(event, createdAt)
				if err != nil {
					return err
				}
				messages = append(messages, msg)
				createdAt = createdAt.Add(time.Microsecond)
			}

			done = append(done, written{t: t, version: version, state: state})
		}

		if len(messages) == 0 {
			return nil
		}
		return u.mgr.outbox.WriteTx(ctx, tx, messages)
	})

	if err != nil {
		return err
	}

	for _, w := range done {
		w.t.account.ClearPendingEvents()
		w.t.version = w.version
		w.t.loaded = w.state
	}

	return nil
}

func (u *unitOfWork) save(ctx context.Context, tx bun.Tx, t *trackedAccount, state auth.UserAccountSnapshot) (int64, error) {
	if t.isNew() {
		model := toUserAccountModel(state, 1)
		if _, err := tx.NewInsert().Model(model).Exec(ctx); err != nil {
			if isUniqueViolation(err, "login") {
				return 0, loginTaken(state.Login)
			}
			return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert user account")
		}
		return 1, u.saveClaims(ctx, tx, state)
	}

	next := t.version + 1
	model := toUserAccountModel(state, next)
	res, err := tx.NewUpdate().
		Model(model).
		Column("login", "password_hash", "status", "refresh_token_value",
			"refresh_token_expires_at", "refresh_token_is_active", "version").
		Where("id = ?", state.ID).
		Where("version = ?", t.version).
		Exec(ctx)
	if err != nil {
		if isUniqueViolation(err, "login") {
			return 0, loginTaken(state.Login)
		}
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update user account")
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read affected rows")
	}
	if affected == 0 {
		return 0, withMetadata(auth.ErrConcurrentAccess, map[string]any{
			"user_account_id":  state.ID.String(),
			"expected_version": t.version,
		})
	}

	if !slices.Equal(t.loaded.Claims, state.Claims) {
		if _, err := tx.NewDelete().
			Model((*ClaimModel)(nil)).
			Where("user_account_id = ?", state.ID).
			Exec(ctx); err != nil {
			return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to delete claims")
		}
		if err := u.saveClaims(ctx, tx, state); err != nil {
			return 0, err
		}
	}

	return next, nil
}

func (u *unitOfWork) saveClaims(ctx context.Context, tx bun.Tx, state auth.UserAccountSnapshot) error {
	models := toClaimModels(state.ID, state.Claims)
	if len(models) == 0 {
		return nil
	}
	if _, err := tx.NewInsert().Model(&models).Exec(ctx); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert claims")
	}
	return nil
}

func (u *unitOfWork) outboxMessage(event auth.DomainEvent, createdAt time.Time) (*OutboxMessage, error) {
	tag, payload, err := u.mgr.registry.Encode(event)
	if err != nil {
		return nil, err
	}
	return &OutboxMessage{
		ID:        event.GetEventID(),
		CreatedAt: createdAt,
		Type:      tag,
		Content:   string(payload),
	}, nil
}

func loginTaken(login string) error {
	return withMetadata(auth.ErrLoginAlreadyTaken, map[string]any{"login": login})
}

func sameState(a, b auth.UserAccountSnapshot) bool {
	return a.ID == b.ID &&
		a.Login == b.Login &&
		a.PasswordHash == b.PasswordHash &&
		a.Status == b.Status &&
		slices.Equal(a.Claims, b.Claims) &&
		sameRefreshToken(a.RefreshToken, b.RefreshToken)
}

func sameRefreshToken(a, b *auth.RefreshToken) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Value == b.Value && a.IsActive == b.IsActive && a.ExpiresAt.Equal(b.ExpiresAt)
}
