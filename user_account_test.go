package auth_test

import (
	"errors"
	"testing"
	"time"

	auth "github.com/goliatone/go-auth-service"
	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func newAccountWithToken(t *testing.T) *auth.UserAccount {
	t.Helper()
	account := auth.CreateUserAccount("a@b.com", "h")
	require.NoError(t, account.SetNewRefreshToken("token", testNow.Add(time.Hour)))
	account.ClearPendingEvents()
	return account
}

func eventTypes(events []auth.DomainEvent) []string {
	out := make([]string, 0, len(events))
	for _, e := range events {
		out = append(out, e.EventType())
	}
	return out
}

func TestCreateUserAccount(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")

	assert.NotEqual(t, auth.UserAccountID{}, account.ID())
	assert.Equal(t, "a@b.com", account.Login())
	assert.Equal(t, "h", account.PasswordHash())
	assert.Equal(t, auth.UserAccountStatusActive, account.Status())
	assert.Empty(t, account.Claims())
	assert.Nil(t, account.RefreshToken())

	events := account.PendingEvents()
	require.Len(t, events, 1)
	created, ok := events[0].(auth.UserAccountCreated)
	require.True(t, ok)
	assert.Equal(t, account.ID(), created.GetUserAccountID())
	assert.Equal(t, "a@b.com", created.Login)
	assert.NotEqual(t, auth.UserAccountID{}, created.GetEventID())
}

func TestLockDeactivatesRefreshToken(t *testing.T) {
	account := newAccountWithToken(t)

	require.NoError(t, account.Lock())

	assert.Equal(t, auth.UserAccountStatusLocked, account.Status())
	token := account.RefreshToken()
	require.NotNil(t, token)
	assert.False(t, token.IsActive)
	assert.Equal(t, "token", token.Value)
	assert.Equal(t, []string{auth.EventTypeUserAccountLocked}, eventTypes(account.PendingEvents()))
}

func TestDoubleLockFailsWithAccountID(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	require.NoError(t, account.Lock())

	err := account.Lock()
	require.Error(t, err)
	assert.ErrorIs(t, err, auth.ErrLockedAccountUpdateNotAllowed)

	var gerr *goerrors.Error
	require.True(t, errors.As(err, &gerr))
	assert.Equal(t, account.ID().String(), gerr.Metadata["user_account_id"])
	assert.Equal(t, auth.TextCodeLockedAccountUpdateNotAllowed, gerr.TextCode)

	assert.Len(t, account.PendingEvents(), 2)
}

func TestUnlockIsNoOpUnlessLocked(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	account.ClearPendingEvents()

	require.NoError(t, account.Unlock())
	assert.Equal(t, auth.UserAccountStatusActive, account.Status())
	assert.Empty(t, account.PendingEvents())

	require.NoError(t, account.Lock())
	require.NoError(t, account.Unlock())
	assert.Equal(t, auth.UserAccountStatusActive, account.Status())
	assert.Equal(t, []string{
		auth.EventTypeUserAccountLocked,
		auth.EventTypeUserAccountUnlocked,
	}, eventTypes(account.PendingEvents()))
}

func TestUnlockFailsOnDeletedAccount(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	account.Delete()
	account.ClearPendingEvents()

	err := account.Unlock()
	assert.ErrorIs(t, err, auth.ErrDeletedAccountUpdateNotAllowed)
	assert.Equal(t, auth.UserAccountStatusDeleted, account.Status())
	assert.Empty(t, account.PendingEvents())
}

func TestDeleteIsIdempotent(t *testing.T) {
	account := newAccountWithToken(t)

	account.Delete()
	assert.Equal(t, auth.UserAccountStatusDeleted, account.Status())
	assert.False(t, account.RefreshToken().IsActive)

	account.Delete()
	assert.Equal(t, auth.UserAccountStatusDeleted, account.Status())
	assert.Equal(t, []string{auth.EventTypeUserAccountDeleted}, eventTypes(account.PendingEvents()))
}

func TestDeleteAllowedOnLockedAccount(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	require.NoError(t, account.Lock())

	account.Delete()
	assert.Equal(t, auth.UserAccountStatusDeleted, account.Status())
	assert.True(t, account.Status().IsTerminal())
}

func TestGuardedMutatorsRejectInactiveAccounts(t *testing.T) {
	claim := auth.NewClaim("role", "editor")

	mutators := map[string]func(*auth.UserAccount) error{
		"AddClaim":           func(a *auth.UserAccount) error { return a.AddClaim(auth.NewClaim("role", "viewer")) },
		"RemoveClaim":        func(a *auth.UserAccount) error { return a.RemoveClaim(claim) },
		"ReplaceClaim":       func(a *auth.UserAccount) error { return a.ReplaceClaim(claim, auth.NewClaim("role", "owner")) },
		"SetNewRefreshToken": func(a *auth.UserAccount) error { return a.SetNewRefreshToken("new", testNow.Add(time.Hour)) },
		"RevokeRefreshToken": func(a *auth.UserAccount) error { return a.RevokeRefreshToken() },
		"UpdatePasswordHash": func(a *auth.UserAccount) error { return a.UpdatePasswordHash("h2") },
		"Lock":               func(a *auth.UserAccount) error { return a.Lock() },
	}

	states := []struct {
		name    string
		prepare func(*auth.UserAccount)
		want    error
	}{
		{
			name:    "locked",
			prepare: func(a *auth.UserAccount) { require.NoError(t, a.Lock()) },
			want:    auth.ErrLockedAccountUpdateNotAllowed,
		},
		{
			name:    "deleted",
			prepare: func(a *auth.UserAccount) { a.Delete() },
			want:    auth.ErrDeletedAccountUpdateNotAllowed,
		},
	}

	for _, state := range states {
		for name, mutate := range mutators {
			t.Run(state.name+"/"+name, func(t *testing.T) {
				account := newAccountWithToken(t)
				require.NoError(t, account.AddClaim(claim))
				state.prepare(account)

				before := account.Snapshot()
				pending := len(account.PendingEvents())

				err := mutate(account)
				require.Error(t, err)
				assert.ErrorIs(t, err, state.want)
				assert.True(t, auth.IsDomainError(err))
				assert.Equal(t, before, account.Snapshot())
				assert.Len(t, account.PendingEvents(), pending)
			})
		}
	}
}

func TestAddThenRemoveClaimRoundTrip(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	require.NoError(t, account.AddClaim(auth.NewClaim("role", "viewer")))
	account.ClearPendingEvents()
	before := account.Claims()

	claim := auth.NewClaim("role", "editor")
	require.NoError(t, account.AddClaim(claim))
	assert.True(t, account.HasClaim(claim))
	require.NoError(t, account.RemoveClaim(claim))

	assert.Equal(t, before, account.Claims())

	events := account.PendingEvents()
	require.Len(t, events, 2)
	added, ok := events[0].(auth.ClaimAdded)
	require.True(t, ok)
	assert.Equal(t, claim, added.Claim)
	removed, ok := events[1].(auth.ClaimRemoved)
	require.True(t, ok)
	assert.Equal(t, claim, removed.Claim)
	assert.NotEqual(t, added.GetEventID(), removed.GetEventID())
}

func TestAddClaimRejectsDuplicates(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	require.NoError(t, account.AddClaim(auth.NewClaim("role", "editor")))

	err := account.AddClaim(auth.NewClaim(" role ", "editor "))
	assert.ErrorIs(t, err, auth.ErrClaimAlreadyExists)
	assert.Len(t, account.Claims(), 1)

	require.NoError(t, account.AddClaim(auth.NewClaim("role", "")))
	assert.Len(t, account.Claims(), 2)
}

func TestRemoveClaimNotFound(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	account.ClearPendingEvents()

	err := account.RemoveClaim(auth.NewClaim("role", "editor"))
	assert.ErrorIs(t, err, auth.ErrClaimNotFound)
	assert.Empty(t, account.PendingEvents())
}

func TestReplaceClaim(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	first := auth.NewClaim("role", "viewer")
	second := auth.NewClaim("team", "blue")
	require.NoError(t, account.AddClaim(first))
	require.NoError(t, account.AddClaim(second))
	account.ClearPendingEvents()

	replacement := auth.NewClaim("role", "editor")
	require.NoError(t, account.ReplaceClaim(first, replacement))
	assert.Equal(t, []auth.Claim{replacement, second}, account.Claims())

	events := account.PendingEvents()
	require.Len(t, events, 1)
	updated, ok := events[0].(auth.ClaimUpdated)
	require.True(t, ok)
	assert.Equal(t, first, updated.Previous)
	assert.Equal(t, replacement, updated.Current)

	assert.ErrorIs(t, account.ReplaceClaim(first, replacement), auth.ErrClaimNotFound)
	assert.ErrorIs(t, account.ReplaceClaim(replacement, second), auth.ErrClaimAlreadyExists)
}

func TestRefreshTokenLifecycle(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	account.ClearPendingEvents()

	require.NoError(t, account.RevokeRefreshToken())
	assert.Nil(t, account.RefreshToken())

	expires := testNow.Add(time.Hour)
	require.NoError(t, account.SetNewRefreshToken("first", expires))
	require.NoError(t, account.SetNewRefreshToken("second", expires))
	assert.Empty(t, account.PendingEvents())

	token := account.RefreshToken()
	require.NotNil(t, token)
	assert.Equal(t, "second", token.Value)
	assert.True(t, token.IsActive)
	assert.True(t, token.IsUsable(testNow))
	assert.False(t, token.IsUsable(expires))

	require.NoError(t, account.RevokeRefreshToken())
	token = account.RefreshToken()
	assert.False(t, token.IsActive)
	assert.Equal(t, "second", token.Value)
	assert.Equal(t, expires, token.ExpiresAt)
	assert.False(t, token.IsUsable(testNow))
}

func TestRefreshTokenAccessorReturnsCopy(t *testing.T) {
	account := newAccountWithToken(t)

	token := account.RefreshToken()
	token.IsActive = false

	assert.True(t, account.RefreshToken().IsActive)
}

func TestUpdatePasswordHash(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")
	account.ClearPendingEvents()

	require.NoError(t, account.UpdatePasswordHash("h2"))
	assert.Equal(t, "h2", account.PasswordHash())
	assert.Equal(t, []string{auth.EventTypePasswordHashUpdated}, eventTypes(account.PendingEvents()))
}

func TestRestoreUserAccountRaisesNoEvents(t *testing.T) {
	original := newAccountWithToken(t)
	require.NoError(t, original.AddClaim(auth.NewClaim("role", "editor")))

	restored := auth.RestoreUserAccount(original.Snapshot())

	assert.Equal(t, original.Snapshot(), restored.Snapshot())
	assert.Empty(t, restored.PendingEvents())
}

func TestParseUserAccountID(t *testing.T) {
	account := auth.CreateUserAccount("a@b.com", "h")

	id, err := auth.ParseUserAccountID(account.ID().String())
	require.NoError(t, err)
	assert.Equal(t, account.ID(), id)

	_, err = auth.ParseUserAccountID("not-a-uuid")
	assert.ErrorIs(t, err, auth.ErrValidation)
}
