package auth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

// Reference vector from the SHA-crypt description.
const sha512Hello = "$6$saltstring$svn8UoSVapNtMuq1ukKS4tPQd8iKwSMHWjl/O817G3uBnIFNjnQJuesI68u4OTLiBFdcbYEdFCoEOfaS35inz1"

func TestCredential_Verify(t *testing.T) {
	bhash, err := bcrypt.GenerateFromPassword([]byte("hunter2"), bcrypt.MinCost)
	require.NoError(t, err)

	tests := []struct {
		name  string
		hash  string
		good  string
		wrong string
	}{
		{"bcrypt", string(bhash), "hunter2", "hunter3"},
		{"sha512-crypt", sha512Hello, "Hello world!", "Hello world"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cred, err := NewCredential([]byte(tt.hash))
			require.NoError(t, err)

			assert.True(t, cred.Verify([]byte(tt.good)))
			assert.False(t, cred.Verify([]byte(tt.wrong)))
			assert.False(t, cred.Verify(nil))
			assert.True(t, cred.Verify([]byte(tt.good)), "verification has no side effects")

			require.NoError(t, cred.Close())
			assert.False(t, cred.Verify([]byte(tt.good)), "closed credential rejects everything")
		})
	}
}

func TestNewCredential_WipesInput(t *testing.T) {
	hash := []byte(sha512Hello)
	_, err := NewCredential(hash)
	require.NoError(t, err)
	assert.Equal(t, make([]byte, len(hash)), hash)
}

func TestNewCredential_Rejects(t *testing.T) {
	tests := []struct {
		name string
		hash string
		want error
	}{
		{"empty", "", ErrNoPassword},
		{"locked", "!$6$abc$def", ErrNoPassword},
		{"disabled", "*", ErrNoPassword},
		{"yescrypt", "$y$j9T$salt$hash", ErrUnsupportedHash},
		{"garbage", "plaintext", ErrUnsupportedHash},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewCredential([]byte(tt.hash))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
