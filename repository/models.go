package repository

import (
	"sort"
	"time"

	auth "github.com/goliatone/go-auth-service"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserAccountModel is the Bun model for the user account aggregate root.
type UserAccountModel struct {
	bun.BaseModel `bun:"table:user_accounts,alias:ua"`

	ID                    uuid.UUID     `bun:"id,pk,type:uuid"`
	Login                 string        `bun:"login,notnull,unique,type:varchar(128)"`
	PasswordHash          string        `bun:"password_hash,notnull,type:varchar(512)"`
	Status                string        `bun:"status,notnull,type:varchar(32)"`
	RefreshTokenValue     *string       `bun:"refresh_token_value,type:varchar(1024)"`
	RefreshTokenExpiresAt *time.Time    `bun:"refresh_token_expires_at"`
	RefreshTokenIsActive  *bool         `bun:"refresh_token_is_active"`
	Version               int64         `bun:"version,notnull"`
	Claims                []*ClaimModel `bun:"rel:has-many,join:id=user_account_id"`
}

// ClaimModel is the Bun model for claims owned by a user account.
type ClaimModel struct {
	bun.BaseModel `bun:"table:user_account_claims,alias:uac"`

	ID            uuid.UUID `bun:"id,pk,type:uuid"`
	UserAccountID uuid.UUID `bun:"user_account_id,notnull,type:uuid,unique:uq_user_account_claim"`
	Type          string    `bun:"type,notnull,type:varchar(128),unique:uq_user_account_claim"`
	Value         string    `bun:"value,notnull,type:varchar(512),unique:uq_user_account_claim"`
	Position      int       `bun:"position,notnull"`
}

// OutboxMessage is a domain event waiting for delivery.
type OutboxMessage struct {
	bun.BaseModel `bun:"table:outbox_messages,alias:om"`

	ID           uuid.UUID  `bun:"id,pk,type:uuid"`
	CreatedAt    time.Time  `bun:"created_at,notnull"`
	Type         string     `bun:"type,notnull,type:varchar(128)"`
	Content      string     `bun:"content,notnull"`
	ProcessedAt  *time.Time `bun:"processed_at"`
	Error        *string    `bun:"error"`
	Attempts     int        `bun:"attempts,notnull"`
	ClaimedUntil *time.Time `bun:"claimed_until"`
}

func toUserAccountModel(s auth.UserAccountSnapshot, version int64) *UserAccountModel {
	m := &UserAccountModel{
		ID:           s.ID,
		Login:        s.Login,
		PasswordHash: s.PasswordHash,
		Status:       s.Status.String(),
		Version:      version,
	}

	if t := s.RefreshToken; t != nil {
		value := t.Value
		expiresAt := t.ExpiresAt.UTC()
		active := t.IsActive
		m.RefreshTokenValue = &value
		m.RefreshTokenExpiresAt = &expiresAt
		m.RefreshTokenIsActive = &active
	}

	return m
}

func toClaimModels(id uuid.UUID, claims []auth.Claim) []*ClaimModel {
	out := make([]*ClaimModel, 0, len(claims))
	for i, c := range claims {
		out = append(out, &ClaimModel{
			ID:            uuid.New(),
			UserAccountID: id,
			Type:          c.Type,
			Value:         c.Value,
			Position:      i,
		})
	}
	return out
}

func (m *UserAccountModel) snapshot() (auth.UserAccountSnapshot, error) {
	status, err := auth.ParseUserAccountStatus(m.Status)
	if err != nil {
		return auth.UserAccountSnapshot{}, err
	}

	s := auth.UserAccountSnapshot{
		ID:           m.ID,
		Login:        m.Login,
		PasswordHash: m.PasswordHash,
		Status:       status,
		Claims:       m.claims(),
	}

	if m.RefreshTokenValue != nil {
		token := &auth.RefreshToken{Value: *m.RefreshTokenValue}
		if m.RefreshTokenExpiresAt != nil {
			token.ExpiresAt = m.RefreshTokenExpiresAt.UTC()
		}
		if m.RefreshTokenIsActive != nil {
			token.IsActive = *m.RefreshTokenIsActive
		}
		s.RefreshToken = token
	}

	return s, nil
}

func (m *UserAccountModel) claims() []auth.Claim {
	ordered := make([]*ClaimModel, len(m.Claims))
	copy(ordered, m.Claims)
	sortClaimModels(ordered)

	out := make([]auth.Claim, 0, len(ordered))
	for _, c := range ordered {
		out = append(out, auth.Claim{Type: c.Type, Value: c.Value})
	}
	return out
}

func (m *UserAccountModel) view() (*auth.UserAccountView, error) {
	status, err := auth.ParseUserAccountStatus(m.Status)
	if err != nil {
		return nil, err
	}
	return &auth.UserAccountView{
		ID:     m.ID,
		Login:  m.Login,
		Status: status,
		Claims: m.claims(),
	}, nil
}

func sortClaimModels(claims []*ClaimModel) {
	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].Position < claims[j].Position
	})
}
