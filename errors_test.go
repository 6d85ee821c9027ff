package auth

import (
	"errors"
	"fmt"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDomainError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "locked account", err: ErrLockedAccountUpdateNotAllowed, expected: true},
		{name: "deleted account", err: ErrDeletedAccountUpdateNotAllowed, expected: true},
		{name: "claim not found", err: ErrClaimNotFound, expected: true},
		{
			name:     "claim already exists with metadata",
			err:      withMetadata(ErrClaimAlreadyExists, map[string]any{"claim": "a:b"}),
			expected: true,
		},
		{
			name:     "wrapped domain error",
			err:      fmt.Errorf("command failed: %w", ErrLockedAccountUpdateNotAllowed),
			expected: true,
		},
		{name: "policy error", err: ErrSelfOperationNotAllowed, expected: false},
		{name: "not found", err: ErrNotFound, expected: false},
		{name: "plain error", err: errors.New("boom"), expected: false},
		{name: "nil", err: nil, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsDomainError(tt.err))
		})
	}
}

func TestWithMetadataKeepsSentinelIdentity(t *testing.T) {
	err := withMetadata(ErrLockedAccountUpdateNotAllowed, map[string]any{"user_account_id": "abc"})

	assert.True(t, errors.Is(err, ErrLockedAccountUpdateNotAllowed))
	assert.False(t, errors.Is(err, ErrDeletedAccountUpdateNotAllowed))

	var richErr *goerrors.Error
	require.True(t, errors.As(err, &richErr))
	assert.Equal(t, "abc", richErr.Metadata["user_account_id"])
	assert.Equal(t, TextCodeLockedAccountUpdateNotAllowed, richErr.TextCode)

	assert.Empty(t, ErrLockedAccountUpdateNotAllowed.Metadata, "sentinel must not be mutated")
}

func TestStructuredErrorProperties(t *testing.T) {
	tests := []struct {
		err      *goerrors.Error
		category goerrors.Category
		textCode string
	}{
		{ErrNotFound, goerrors.CategoryNotFound, TextCodeNotFound},
		{ErrValidation, goerrors.CategoryValidation, TextCodeValidation},
		{ErrLockedAccountUpdateNotAllowed, goerrors.CategoryBadInput, TextCodeLockedAccountUpdateNotAllowed},
		{ErrDeletedAccountUpdateNotAllowed, goerrors.CategoryBadInput, TextCodeDeletedAccountUpdateNotAllowed},
		{ErrClaimNotFound, goerrors.CategoryBadInput, TextCodeClaimNotFound},
		{ErrClaimAlreadyExists, goerrors.CategoryBadInput, TextCodeClaimAlreadyExists},
		{ErrSelfOperationNotAllowed, goerrors.CategoryBadInput, TextCodeSelfOperationNotAllowed},
		{ErrLastAdministratorRemovalNotAllowed, goerrors.CategoryBadInput, TextCodeLastAdministratorRemovalNotAllow},
		{ErrIncorrectPassword, goerrors.CategoryBadInput, TextCodeIncorrectPassword},
		{ErrInvalidCredentials, goerrors.CategoryAuth, TextCodeInvalidCredentials},
		{ErrLoginAlreadyTaken, goerrors.CategoryConflict, TextCodeLoginAlreadyTaken},
		{ErrConcurrentAccess, goerrors.CategoryConflict, TextCodeConcurrentAccess},
		{ErrTokenExpired, goerrors.CategoryAuth, TextCodeTokenExpired},
		{ErrTokenMalformed, goerrors.CategoryAuth, TextCodeTokenMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.textCode, func(t *testing.T) {
			assert.Equal(t, tt.category, tt.err.Category)
			assert.Equal(t, tt.textCode, tt.err.TextCode)
		})
	}
}
