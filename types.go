package auth

import (
	"context"
	"fmt"
	"time"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// UserAccountRepository loads and tracks UserAccount aggregates. Every lookup
// returns ErrNotFound when nothing matches.
type UserAccountRepository interface {
	Add(account *UserAccount)
	GetByID(ctx context.Context, id UserAccountID) (*UserAccount, error)
	GetByLogin(ctx context.Context, login string) (*UserAccount, error)
	// GetByActiveRefreshToken only matches tokens that are active and expire
	// after the current clock time.
	GetByActiveRefreshToken(ctx context.Context, value string) (*UserAccount, error)
}

// UnitOfWork persists every tracked aggregate and drains its pending events
// into the outbox in a single transaction. Commit returns ErrConcurrentAccess
// when another writer changed a tracked account first.
type UnitOfWork interface {
	Accounts() UserAccountRepository
	Commit(ctx context.Context) error
}

// RepositoryManager hands out units of work and the read side.
type RepositoryManager interface {
	Begin() UnitOfWork
	Reader() ReadService
	Validate() error
}

// PasswordHasher hashes and verifies passwords.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) (bool, error)
}

// Clock provides the current UTC time.
type Clock interface {
	Now() time.Time
}

// ReadService answers queries that do not need the aggregate.
type ReadService interface {
	ExistsByLogin(ctx context.Context, login string) (bool, error)
	GetUserAccount(ctx context.Context, id UserAccountID) (*UserAccountView, error)
	ListUserAccounts(ctx context.Context, opts ListOptions) (*UserAccountPage, error)
	CountActiveClaimHolders(ctx context.Context, claim Claim) (int, error)
}

// TokenService issues and validates access tokens and generates refresh
// token values.
type TokenService interface {
	GenerateAccessToken(id UserAccountID, claims []Claim) (string, error)
	GenerateRefreshToken() (string, error)
	RefreshTokenLifetime() time.Duration
	Validate(tokenString string) (*AccessClaims, error)
}

// Config holds the settings consumed by the token service and handlers.
type Config interface {
	GetSigningMethod() string
	GetSigningKey() string
	GetIssuer() string
	GetAudience() []string
	GetAccessTokenLifetime() time.Duration
	GetRefreshTokenLifetime() time.Duration
	GetRefreshTokenBytes() int
}

// UserAccountView is the read model of an account.
type UserAccountView struct {
	ID     UserAccountID     `json:"id"`
	Login  string            `json:"login"`
	Status UserAccountStatus `json:"status"`
	Claims []Claim           `json:"claims"`
}

// ListOptions selects a page of accounts. Page is 1 based.
type ListOptions struct {
	Page     int
	PageSize int
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Normalize clamps the options to valid values.
func (o ListOptions) Normalize() ListOptions {
	if o.Page < 1 {
		o.Page = 1
	}
	if o.PageSize < 1 {
		o.PageSize = DefaultPageSize
	}
	if o.PageSize > MaxPageSize {
		o.PageSize = MaxPageSize
	}
	return o
}

// Offset returns the number of rows to skip.
func (o ListOptions) Offset() int {
	o = o.Normalize()
	return (o.Page - 1) * o.PageSize
}

// UserAccountPage is one page of accounts.
type UserAccountPage struct {
	Items    []UserAccountView `json:"items"`
	Page     int               `json:"page"`
	PageSize int               `json:"page_size"`
	Total    int               `json:"total"`
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] AUTH "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] AUTH "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] AUTH "+newline(format), args...)
}

// DefaultLogger returns the stdout logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
