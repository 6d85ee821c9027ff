package auth

import (
	"time"

	"github.com/google/uuid"
)

// UserAccountID identifies a user account.
type UserAccountID = uuid.UUID

// ParseUserAccountID parses the canonical string form of an account id.
func ParseUserAccountID(raw string) (UserAccountID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, withMetadata(ErrValidation, map[string]any{
			"user_account_id": raw,
		})
	}
	return id, nil
}

// UserAccount is the aggregate root for authentication. All state changes go
// through its methods, and each durable change appends a DomainEvent to the
// pending buffer drained by the unit of work on commit.
type UserAccount struct {
	id            UserAccountID
	login         string
	passwordHash  string
	status        UserAccountStatus
	claims        []Claim
	refreshToken  *RefreshToken
	pendingEvents []DomainEvent
}

// CreateUserAccount allocates a new active account with no claims and no
// refresh token. Login uniqueness and password policy are checked by callers.
func CreateUserAccount(login, passwordHash string) *UserAccount {
	a := &UserAccount{
		id:           uuid.New(),
		login:        login,
		passwordHash: passwordHash,
		status:       UserAccountStatusActive,
		claims:       []Claim{},
	}
	a.raise(UserAccountCreated{
		EventHeader: newEventHeader(a.id),
		Login:       login,
	})
	return a
}

func (a *UserAccount) ID() UserAccountID            { return a.id }
func (a *UserAccount) Login() string                { return a.login }
func (a *UserAccount) PasswordHash() string         { return a.passwordHash }
func (a *UserAccount) Status() UserAccountStatus    { return a.status }
func (a *UserAccount) IsActive() bool               { return a.status == UserAccountStatusActive }
func (a *UserAccount) RefreshToken() *RefreshToken  { return cloneRefreshToken(a.refreshToken) }
func (a *UserAccount) HasClaim(claim Claim) bool    { return indexOfClaim(a.claims, claim) >= 0 }
func (a *UserAccount) Claims() []Claim              { return append([]Claim(nil), a.claims...) }
func (a *UserAccount) PendingEvents() []DomainEvent { return append([]DomainEvent(nil), a.pendingEvents...) }

// ClearPendingEvents empties the pending event buffer. Only the persistence
// layer calls it, after a successful commit.
func (a *UserAccount) ClearPendingEvents() {
	a.pendingEvents = nil
}

// CheckIfUpdatesAllowed rejects changes to locked or deleted accounts.
func (a *UserAccount) CheckIfUpdatesAllowed() error {
	return checkIfUpdatesAllowed(a.id, a.status)
}

func (a *UserAccount) AddClaim(claim Claim) error {
	if err := a.CheckIfUpdatesAllowed(); err != nil {
		return err
	}

	if a.HasClaim(claim) {
		return withMetadata(ErrClaimAlreadyExists, map[string]any{
			"user_account_id": a.id.String(),
			"claim":           claim.String(),
		})
	}

	a.claims = append(a.claims, claim)
	a.raise(ClaimAdded{EventHeader: newEventHeader(a.id), Claim: claim})
	return nil
}

func (a *UserAccount) RemoveClaim(claim Claim) error {
	if err := a.CheckIfUpdatesAllowed(); err != nil {
		return err
	}

	idx := indexOfClaim(a.claims, claim)
	if idx < 0 {
		return withMetadata(ErrClaimNotFound, map[string]any{
			"user_account_id": a.id.String(),
			"claim":           claim.String(),
		})
	}

	a.claims = append(a.claims[:idx], a.claims[idx+1:]...)
	a.raise(ClaimRemoved{EventHeader: newEventHeader(a.id), Claim: claim})
	return nil
}

// ReplaceClaim swaps current for replacement in place.
func (a *UserAccount) ReplaceClaim(current, replacement Claim) error {
	if err := a.CheckIfUpdatesAllowed(); err != nil {
		return err
	}

	idx := indexOfClaim(a.claims, current)
	if idx < 0 {
		return withMetadata(ErrClaimNotFound, map[string]any{
			"user_account_id": a.id.String(),
			"claim":           current.String(),
		})
	}

	if a.HasClaim(replacement) {
		return withMetadata(ErrClaimAlreadyExists, map[string]any{
			"user_account_id": a.id.String(),
			"claim":           replacement.String(),
		})
	}

	a.claims[idx] = replacement
	a.raise(ClaimUpdated{
		EventHeader: newEventHeader(a.id),
		Previous:    current,
		Current:     replacement,
	})
	return nil
}

// SetNewRefreshToken replaces the refresh token. Token issuance raises no event.
func (a *UserAccount) SetNewRefreshToken(value string, expiresAt time.Time) error {
	if err := a.CheckIfUpdatesAllowed(); err != nil {
		return err
	}

	a.refreshToken = newRefreshToken(value, expiresAt)
	return nil
}

func (a *UserAccount) RevokeRefreshToken() error {
	if err := a.CheckIfUpdatesAllowed(); err != nil {
		return err
	}

	a.refreshToken.deactivate()
	return nil
}

func (a *UserAccount) Lock() error {
	if err := a.CheckIfUpdatesAllowed(); err != nil {
		return err
	}

	a.refreshToken.deactivate()
	a.status = UserAccountStatusLocked
	a.raise(UserAccountLocked{EventHeader: newEventHeader(a.id)})
	return nil
}

// Unlock reactivates a locked account. It does nothing for active accounts
// and fails for deleted ones.
func (a *UserAccount) Unlock() error {
	if a.status == UserAccountStatusDeleted {
		return checkIfUpdatesAllowed(a.id, a.status)
	}

	if a.status != UserAccountStatusLocked {
		return nil
	}

	a.status = UserAccountStatusActive
	a.raise(UserAccountUnlocked{EventHeader: newEventHeader(a.id)})
	return nil
}

func (a *UserAccount) UpdatePasswordHash(passwordHash string) error {
	if err := a.CheckIfUpdatesAllowed(); err != nil {
		return err
	}

	a.passwordHash = passwordHash
	a.raise(PasswordHashUpdated{EventHeader: newEventHeader(a.id)})
	return nil
}

// Delete soft deletes the account. It is allowed from any status and repeated
// calls do nothing.
func (a *UserAccount) Delete() {
	if a.status == UserAccountStatusDeleted {
		return
	}

	a.refreshToken.deactivate()
	a.status = UserAccountStatusDeleted
	a.raise(UserAccountDeleted{EventHeader: newEventHeader(a.id)})
}

func (a *UserAccount) raise(event DomainEvent) {
	a.pendingEvents = append(a.pendingEvents, event)
}

// UserAccountSnapshot is the persisted form of a UserAccount.
type UserAccountSnapshot struct {
	ID           UserAccountID
	Login        string
	PasswordHash string
	Status       UserAccountStatus
	Claims       []Claim
	RefreshToken *RefreshToken
}

// RestoreUserAccount rebuilds an account from storage without raising events.
func RestoreUserAccount(s UserAccountSnapshot) *UserAccount {
	status := s.Status
	if status == "" {
		status = UserAccountStatusActive
	}
	return &UserAccount{
		id:           s.ID,
		login:        s.Login,
		passwordHash: s.PasswordHash,
		status:       status,
		claims:       append([]Claim{}, s.Claims...),
		refreshToken: cloneRefreshToken(s.RefreshToken),
	}
}

// Snapshot exports the account state for persistence.
func (a *UserAccount) Snapshot() UserAccountSnapshot {
	return UserAccountSnapshot{
		ID:           a.id,
		Login:        a.login,
		PasswordHash: a.passwordHash,
		Status:       a.status,
		Claims:       a.Claims(),
		RefreshToken: cloneRefreshToken(a.refreshToken),
	}
}

func cloneRefreshToken(t *RefreshToken) *RefreshToken {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
