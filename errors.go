package auth

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotFound                         = "NOT_FOUND"
	TextCodeValidation                       = "VALIDATION_ERROR"
	TextCodeBusinessLogic                    = "BUSINESS_LOGIC_ERROR"
	TextCodeLockedAccountUpdateNotAllowed    = "LOCKED_ACCOUNT_UPDATE_NOT_ALLOWED"
	TextCodeDeletedAccountUpdateNotAllowed   = "DELETED_ACCOUNT_UPDATE_NOT_ALLOWED"
	TextCodeClaimNotFound                    = "CLAIM_NOT_FOUND"
	TextCodeClaimAlreadyExists               = "CLAIM_ALREADY_EXISTS"
	TextCodeSelfOperationNotAllowed          = "SELF_OPERATION_NOT_ALLOWED"
	TextCodeLastAdministratorRemovalNotAllow = "LAST_ADMINISTRATOR_REMOVAL_NOT_ALLOWED"
	TextCodeIncorrectPassword                = "INCORRECT_PASSWORD"
	TextCodeInvalidCredentials               = "INVALID_CREDENTIALS"
	TextCodeLoginAlreadyTaken                = "LOGIN_ALREADY_TAKEN"
	TextCodeConcurrentAccess                 = "CONCURRENT_ACCESS"
	TextCodeTokenExpired                     = "TOKEN_EXPIRED"
	TextCodeTokenMalformed                   = "TOKEN_MALFORMED"
	TextCodeUnknownEventType                 = "UNKNOWN_EVENT_TYPE"
	TextCodeServerError                      = "SERVER_ERROR"
)

// ErrNotFound is returned when the referenced account does not exist.
var ErrNotFound = goerrors.New("user account not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrValidation wraps malformed command input.
var ErrValidation = goerrors.New("invalid input", goerrors.CategoryValidation).
	WithTextCode(TextCodeValidation).
	WithCode(goerrors.CodeBadRequest)

// ErrLockedAccountUpdateNotAllowed is raised by guarded mutators on a locked account.
var ErrLockedAccountUpdateNotAllowed = goerrors.New("locked user account cannot be updated", goerrors.CategoryBadInput).
	WithTextCode(TextCodeLockedAccountUpdateNotAllowed).
	WithCode(goerrors.CodeBadRequest)

// ErrDeletedAccountUpdateNotAllowed is raised by any mutator other than Delete on a deleted account.
var ErrDeletedAccountUpdateNotAllowed = goerrors.New("deleted user account cannot be updated", goerrors.CategoryBadInput).
	WithTextCode(TextCodeDeletedAccountUpdateNotAllowed).
	WithCode(goerrors.CodeBadRequest)

// ErrClaimNotFound is raised when removing or replacing a claim the account does not hold.
var ErrClaimNotFound = goerrors.New("claim not found", goerrors.CategoryBadInput).
	WithTextCode(TextCodeClaimNotFound).
	WithCode(goerrors.CodeBadRequest)

// ErrClaimAlreadyExists is raised when adding a claim the account already holds.
var ErrClaimAlreadyExists = goerrors.New("claim already exists", goerrors.CategoryBadInput).
	WithTextCode(TextCodeClaimAlreadyExists).
	WithCode(goerrors.CodeBadRequest)

// ErrSelfOperationNotAllowed is returned when an administrator targets their own account.
var ErrSelfOperationNotAllowed = goerrors.New("operation on own account is not allowed", goerrors.CategoryBadInput).
	WithTextCode(TextCodeSelfOperationNotAllowed).
	WithCode(goerrors.CodeBadRequest)

// ErrLastAdministratorRemovalNotAllowed protects the last active administrator.
var ErrLastAdministratorRemovalNotAllowed = goerrors.New("last administrator cannot be removed", goerrors.CategoryBadInput).
	WithTextCode(TextCodeLastAdministratorRemovalNotAllow).
	WithCode(goerrors.CodeBadRequest)

// ErrIncorrectPassword is returned when the current password does not match.
var ErrIncorrectPassword = goerrors.New("incorrect password", goerrors.CategoryBadInput).
	WithTextCode(TextCodeIncorrectPassword).
	WithCode(goerrors.CodeBadRequest)

// ErrInvalidCredentials is returned on login for both unknown logins and wrong passwords.
var ErrInvalidCredentials = goerrors.New("user account not found or given password is incorrect", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrLoginAlreadyTaken is returned when the login is held by another account.
var ErrLoginAlreadyTaken = goerrors.New("login already taken", goerrors.CategoryConflict).
	WithTextCode(TextCodeLoginAlreadyTaken).
	WithCode(goerrors.CodeBadRequest)

// ErrConcurrentAccess is returned by a commit that lost an optimistic concurrency race.
var ErrConcurrentAccess = goerrors.New("user account was modified concurrently", goerrors.CategoryConflict).
	WithTextCode(TextCodeConcurrentAccess).
	WithCode(goerrors.CodeConflict)

// ErrTokenExpired is returned by the token service for expired access tokens.
var ErrTokenExpired = goerrors.New("token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenMalformed is returned by the token service for unparsable tokens.
var ErrTokenMalformed = goerrors.New("token malformed", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(goerrors.CodeUnauthorized)

// ErrUnknownEventType is returned by the event registry for unregistered events.
var ErrUnknownEventType = goerrors.New("unknown domain event type", goerrors.CategoryInternal).
	WithTextCode(TextCodeUnknownEventType)

// IsDomainError reports whether err was raised by the UserAccount aggregate.
func IsDomainError(err error) bool {
	if err == nil {
		return false
	}
	for _, target := range []error{
		ErrLockedAccountUpdateNotAllowed,
		ErrDeletedAccountUpdateNotAllowed,
		ErrClaimNotFound,
		ErrClaimAlreadyExists,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

// withMetadata returns a copy of base carrying metadata. The copy keeps base as
// its source so errors.Is still matches the sentinel.
func withMetadata(base *goerrors.Error, metadata map[string]any) error {
	clone := base.Clone()
	if clone == nil {
		return base
	}
	clone.Source = base
	return clone.WithMetadata(metadata)
}
