package repository

import (
	"context"
	"database/sql"
	"errors"

	auth "github.com/goliatone/go-auth-service"
	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// ReadService implements auth.ReadService with direct queries.
type ReadService struct {
	db *bun.DB
}

var _ auth.ReadService = (*ReadService)(nil)

func NewReadService(db *bun.DB) *ReadService {
	return &ReadService{db: db}
}

func (r *ReadService) ExistsByLogin(ctx context.Context, login string) (bool, error) {
	return r.db.NewSelect().
		Model((*UserAccountModel)(nil)).
		Where("?TableAlias.login = ?", login).
		Exists(ctx)
}

func (r *ReadService) GetUserAccount(ctx context.Context, id auth.UserAccountID) (*auth.UserAccountView, error) {
	model := &UserAccountModel{}
	err := r.db.NewSelect().
		Model(model).
		Relation("Claims").
		Where("?TableAlias.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to read user account")
	}
	return model.view()
}

func (r *ReadService) ListUserAccounts(ctx context.Context, opts auth.ListOptions) (*auth.UserAccountPage, error) {
	opts = opts.Normalize()

	var models []*UserAccountModel
	total, err := r.db.NewSelect().
		Model(&models).
		Relation("Claims").
		Order("login ASC").
		Limit(opts.PageSize).
		Offset(opts.Offset()).
		ScanAndCount(ctx)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list user accounts")
	}

	page := &auth.UserAccountPage{
		Items:    make([]auth.UserAccountView, 0, len(models)),
		Page:     opts.Page,
		PageSize: opts.PageSize,
		Total:    total,
	}
	for _, m := range models {
		view, err := m.view()
		if err != nil {
			return nil, err
		}
		page.Items = append(page.Items, *view)
	}
	return page, nil
}

// CountActiveClaimHolders counts active accounts holding claim.
func (r *ReadService) CountActiveClaimHolders(ctx context.Context, claim auth.Claim) (int, error) {
	count, err := r.db.NewSelect().
		Model((*UserAccountModel)(nil)).
		Join("JOIN user_account_claims AS uac ON uac.user_account_id = ua.id").
		Where("?TableAlias.status = ?", auth.UserAccountStatusActive.String()).
		Where("uac.type = ?", claim.Type).
		Where("uac.value = ?", claim.Value).
		Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count claim holders")
	}
	return count, nil
}
