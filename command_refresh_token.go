package auth

import (
	"context"
	"errors"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
)

type RefreshTokenMessage struct {
	RefreshToken string `json:"refresh_token"`
}

func (e RefreshTokenMessage) Type() string { return "auth.refresh_token" }

func (e RefreshTokenMessage) Validate() error {
	return validation.ValidateStruct(&e,
		validation.Field(&e.RefreshToken, validation.Required, validation.Length(1, MaxRefreshTokenLength)),
	)
}

type RefreshTokenHandler struct {
	handlerDeps
}

func NewRefreshTokenHandler(repo RepositoryManager, opts ...HandlerOption) *RefreshTokenHandler {
	h := &RefreshTokenHandler{handlerDeps: newHandlerDeps(repo, opts...)}
	if h.tokens == nil {
		panic("Missing TokenService in refresh token handler...")
	}
	return h
}

// Execute extends the refresh token's lifetime and issues a new access token.
// The refresh token value is kept.
func (h *RefreshTokenHandler) Execute(ctx context.Context, event RefreshTokenMessage) (*TokenPair, error) {
	event.RefreshToken = strings.TrimSpace(event.RefreshToken)
	if err := event.Validate(); err != nil {
		return nil, asValidationError(err)
	}

	var pair *TokenPair
	var accountID UserAccountID
	err := h.run(ctx, "token refresh", func(ctx context.Context, uow UnitOfWork) error {
		account, err := uow.Accounts().GetByActiveRefreshToken(ctx, event.RefreshToken)
		if err != nil {
			if errors.Is(err, ErrNotFound) {
				return withMetadata(ErrNotFound, map[string]any{"refresh_token": "inactive or unknown"})
			}
			return err
		}

		if err := account.SetNewRefreshToken(event.RefreshToken, h.clock.Now().Add(h.tokens.RefreshTokenLifetime())); err != nil {
			return err
		}

		access, err := h.tokens.GenerateAccessToken(account.ID(), account.Claims())
		if err != nil {
			return err
		}

		accountID = account.ID()
		pair = &TokenPair{AccessToken: access, RefreshToken: event.RefreshToken}
		return nil
	})
	if err != nil {
		return nil, err
	}

	recordActivity(ctx, h.activity, h.logger, h.clock, ActivityEvent{
		EventType:     ActivityEventTokenRefreshed,
		Actor:         ActorRef{ID: accountID.String(), Type: "user_account"},
		UserAccountID: accountID.String(),
	})

	return pair, nil
}
