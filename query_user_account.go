package auth

import (
	"context"
	"errors"
)

// UserAccountQueries serves the read side.
type UserAccountQueries struct {
	reader ReadService
}

func NewUserAccountQueries(reader ReadService) *UserAccountQueries {
	return &UserAccountQueries{reader: reader}
}

func (q *UserAccountQueries) Get(ctx context.Context, id UserAccountID) (*UserAccountView, error) {
	view, err := q.reader.GetUserAccount(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, withMetadata(ErrNotFound, map[string]any{"user_account_id": id.String()})
		}
		return nil, err
	}
	return view, nil
}

func (q *UserAccountQueries) List(ctx context.Context, opts ListOptions) (*UserAccountPage, error) {
	return q.reader.ListUserAccounts(ctx, opts.Normalize())
}

func (q *UserAccountQueries) Claims(ctx context.Context, id UserAccountID) ([]Claim, error) {
	view, err := q.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return view.Claims, nil
}

// Current returns the account of the authenticated caller.
func (q *UserAccountQueries) Current(ctx context.Context) (*UserAccountView, error) {
	id, ok := AccountIDFromContext(ctx)
	if !ok {
		return nil, ErrTokenMalformed
	}
	return q.Get(ctx, id)
}
