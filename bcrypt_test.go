package auth_test

import (
	"testing"

	auth "github.com/goliatone/go-auth-service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasherHash(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)

	tests := []struct {
		name     string
		password string
		wantErr  bool
	}{
		{
			name:     "Valid password",
			password: "securePassword123!",
		},
		{
			name:     "Empty password",
			password: "",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			hash, err := hasher.Hash(tt.password)

			if tt.wantErr {
				assert.ErrorIs(t, err, auth.ErrEmptyPassword)
				return
			}

			require.NoError(t, err)
			assert.NotEmpty(t, hash)

			ok, err := hasher.Verify(tt.password, hash)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestBcryptHasherVerify(t *testing.T) {
	hasher := auth.NewBcryptHasher(bcrypt.MinCost)
	hash, err := hasher.Hash("testPassword123!")
	require.NoError(t, err)

	t.Run("mismatch is not an error", func(t *testing.T) {
		ok, err := hasher.Verify("wrong", hash)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("invalid hash", func(t *testing.T) {
		ok, err := hasher.Verify("testPassword123!", "not-a-hash")
		assert.Error(t, err)
		assert.False(t, ok)
	})
}

func TestNewBcryptHasherClampsCost(t *testing.T) {
	hasher := auth.NewBcryptHasher(99)
	hash, err := hasher.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(hash))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.DefaultCost, cost)
}
