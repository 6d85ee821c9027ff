package auth

import (
	"context"
)

type LockUserAccountMessage struct {
	ActorID       UserAccountID `json:"actor_id"`
	UserAccountID UserAccountID `json:"user_account_id"`
}

func (e LockUserAccountMessage) Type() string { return "user_account.lock" }

type UnlockUserAccountMessage struct {
	ActorID       UserAccountID `json:"actor_id"`
	UserAccountID UserAccountID `json:"user_account_id"`
}

func (e UnlockUserAccountMessage) Type() string { return "user_account.unlock" }

type DeleteUserAccountMessage struct {
	ActorID       UserAccountID `json:"actor_id"`
	UserAccountID UserAccountID `json:"user_account_id"`
}

func (e DeleteUserAccountMessage) Type() string { return "user_account.delete" }

// StatusHandler moves accounts between statuses.
type StatusHandler struct {
	handlerDeps
}

func NewStatusHandler(repo RepositoryManager, opts ...HandlerOption) *StatusHandler {
	return &StatusHandler{handlerDeps: newHandlerDeps(repo, opts...)}
}

func (h *StatusHandler) Lock(ctx context.Context, event LockUserAccountMessage) error {
	if err := h.policy.CheckSelfOperation(event.ActorID, event.UserAccountID); err != nil {
		return err
	}

	return h.transition(ctx, "user account lock", event.ActorID, event.UserAccountID, func(a *UserAccount) error {
		return a.Lock()
	})
}

func (h *StatusHandler) Unlock(ctx context.Context, event UnlockUserAccountMessage) error {
	return h.transition(ctx, "user account unlock", event.ActorID, event.UserAccountID, func(a *UserAccount) error {
		return a.Unlock()
	})
}

func (h *StatusHandler) Delete(ctx context.Context, event DeleteUserAccountMessage) error {
	if err := h.policy.CheckSelfOperation(event.ActorID, event.UserAccountID); err != nil {
		return err
	}

	return h.transition(ctx, "user account deletion", event.ActorID, event.UserAccountID, func(a *UserAccount) error {
		a.Delete()
		return nil
	})
}

func (h *StatusHandler) transition(ctx context.Context, operation string, actor, target UserAccountID, apply func(*UserAccount) error) error {
	var from, to UserAccountStatus
	err := h.run(ctx, operation, func(ctx context.Context, uow UnitOfWork) error {
		account, err := loadAccount(ctx, uow, target)
		if err != nil {
			return err
		}

		from = account.Status()
		if err := apply(account); err != nil {
			return err
		}
		to = account.Status()
		return nil
	})
	if err != nil {
		return err
	}

	if from != to {
		recordActivity(ctx, h.activity, h.logger, h.clock, ActivityEvent{
			EventType:     ActivityEventStatusChanged,
			Actor:         ActorRef{ID: actor.String(), Type: "user_account"},
			UserAccountID: target.String(),
			FromStatus:    from,
			ToStatus:      to,
		})
	}
	return nil
}
