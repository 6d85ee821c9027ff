package repository

import (
	"context"
	"time"

	"github.com/goliatone/go-auth-service/outbox"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect"
)

// OutboxWriter inserts outbox rows inside the caller's transaction.
type OutboxWriter interface {
	WriteTx(ctx context.Context, tx bun.IDB, messages []*OutboxMessage) error
}

// OutboxStore persists outbox messages and implements outbox.Store.
type OutboxStore struct {
	repository.Repository[*OutboxMessage]
	db *bun.DB
}

var (
	_ OutboxWriter = (*OutboxStore)(nil)
	_ outbox.Store = (*OutboxStore)(nil)
)

func NewOutboxStore(db *bun.DB) *OutboxStore {
	repo := repository.NewRepository[*OutboxMessage](db, repository.ModelHandlers[*OutboxMessage]{
		NewRecord: func() *OutboxMessage { return &OutboxMessage{} },
		GetID: func(m *OutboxMessage) uuid.UUID {
			if m == nil {
				return uuid.Nil
			}
			return m.ID
		},
		SetID: func(m *OutboxMessage, id uuid.UUID) {
			if m != nil {
				m.ID = id
			}
		},
	})

	return &OutboxStore{
		Repository: repo,
		db:         db,
	}
}

// WriteTx inserts messages in order.
func (s *OutboxStore) WriteTx(ctx context.Context, tx bun.IDB, messages []*OutboxMessage) error {
	for _, msg := range messages {
		if _, err := s.Repository.CreateTx(ctx, tx, msg); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert outbox message").
				WithMetadata(map[string]any{"id": msg.ID.String(), "type": msg.Type})
		}
	}
	return nil
}

// Claim implements outbox.Store. The select and the lease update share one
// short transaction. On Postgres the selected rows are locked with SKIP
// LOCKED so concurrent sweepers never lease the same row.
func (s *OutboxStore) Claim(ctx context.Context, req outbox.ClaimRequest) ([]outbox.Message, error) {
	var rows []*OutboxMessage

	err := s.db.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		q := tx.NewSelect().
			Model(&rows).
			Where("?TableAlias.processed_at IS NULL").
			WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
				return q.Where("?TableAlias.claimed_until IS NULL").
					WhereOr("?TableAlias.claimed_until <= ?", req.Now.UTC())
			}).
			Order("created_at ASC", "id ASC").
			Limit(req.Limit)

		if req.MaxAttempts > 0 {
			q = q.Where("?TableAlias.attempts < ?", req.MaxAttempts)
		}

		if s.db.Dialect().Name() == dialect.PG {
			q = q.For("UPDATE SKIP LOCKED")
		}

		if err := q.Scan(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load outbox messages")
		}

		if len(rows) == 0 {
			return nil
		}

		_, err := tx.NewUpdate().
			Model((*OutboxMessage)(nil)).
			Set("claimed_until = ?", req.LeaseUntil.UTC()).
			Where("?TableAlias.id IN (?)", bun.In(rowIDs(rows))).
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to lease outbox messages").
				WithMetadata(map[string]any{"count": len(rows)})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	out := make([]outbox.Message, 0, len(rows))
	for _, row := range rows {
		out = append(out, outbox.Message{
			ID:        row.ID,
			CreatedAt: row.CreatedAt.UTC(),
			Type:      row.Type,
			Content:   []byte(row.Content),
			Attempts:  row.Attempts,
		})
	}
	return out, nil
}

// MarkProcessed implements outbox.Store.
func (s *OutboxStore) MarkProcessed(ctx context.Context, id uuid.UUID, at time.Time) error {
	q := s.db.NewUpdate().
		Model((*OutboxMessage)(nil)).
		Set("processed_at = ?", at.UTC()).
		Set("error = NULL").
		Set("claimed_until = NULL").
		Where("?TableAlias.id = ?", id.String())

	return s.execOne(ctx, q, id, "failed to mark outbox message processed")
}

// MarkFailed implements outbox.Store.
func (s *OutboxStore) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	q := s.db.NewUpdate().
		Model((*OutboxMessage)(nil)).
		Set("attempts = attempts + 1").
		Set("error = ?", reason).
		Set("claimed_until = NULL").
		Where("?TableAlias.id = ?", id.String())

	return s.execOne(ctx, q, id, "failed to mark outbox message failed")
}

// Release implements outbox.Store.
func (s *OutboxStore) Release(ctx context.Context, ids []uuid.UUID) error {
	if len(ids) == 0 {
		return nil
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, id.String())
	}

	_, err := s.db.NewUpdate().
		Model((*OutboxMessage)(nil)).
		Set("claimed_until = NULL").
		Where("?TableAlias.id IN (?)", bun.In(keys)).
		Where("?TableAlias.processed_at IS NULL").
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to release outbox messages").
			WithMetadata(map[string]any{"count": len(ids)})
	}
	return nil
}

// Pending returns the unprocessed messages, oldest first.
func (s *OutboxStore) Pending(ctx context.Context, limit int) ([]*OutboxMessage, error) {
	var rows []*OutboxMessage
	err := s.db.NewSelect().
		Model(&rows).
		Where("?TableAlias.processed_at IS NULL").
		Order("created_at ASC", "id ASC").
		Limit(limit).
		Scan(ctx)
	return rows, err
}

func (s *OutboxStore) execOne(ctx context.Context, q *bun.UpdateQuery, id uuid.UUID, msg string) error {
	res, err := q.Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, msg).
			WithMetadata(map[string]any{"id": id.String()})
	}

	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return goerrors.New("outbox message not found", goerrors.CategoryNotFound).
			WithCode(goerrors.CodeNotFound).
			WithMetadata(map[string]any{"id": id.String()})
	}
	return nil
}

func rowIDs(rows []*OutboxMessage) []string {
	ids := make([]string, 0, len(rows))
	for _, row := range rows {
		ids = append(ids, row.ID.String())
	}
	return ids
}
