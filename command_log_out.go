package auth

import (
	"context"
)

type LogOutMessage struct {
	UserAccountID UserAccountID `json:"user_account_id"`
}

func (e LogOutMessage) Type() string { return "auth.log_out" }

type LogOutHandler struct {
	handlerDeps
}

func NewLogOutHandler(repo RepositoryManager, opts ...HandlerOption) *LogOutHandler {
	return &LogOutHandler{handlerDeps: newHandlerDeps(repo, opts...)}
}

func (h *LogOutHandler) Execute(ctx context.Context, event LogOutMessage) error {
	err := h.run(ctx, "log out", func(ctx context.Context, uow UnitOfWork) error {
		account, err := loadAccount(ctx, uow, event.UserAccountID)
		if err != nil {
			return err
		}
		return account.RevokeRefreshToken()
	})
	if err != nil {
		return err
	}

	recordActivity(ctx, h.activity, h.logger, h.clock, ActivityEvent{
		EventType:     ActivityEventLogout,
		Actor:         ActorRef{ID: event.UserAccountID.String(), Type: "user_account"},
		UserAccountID: event.UserAccountID.String(),
	})
	return nil
}
