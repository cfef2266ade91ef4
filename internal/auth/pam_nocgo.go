//go:build !cgo

package auth

import (
	"log/slog"
)

// PAMVerifier is unavailable without cgo.
type PAMVerifier struct{}

// NewPAMVerifier always fails in builds without cgo.
func NewPAMVerifier(string, Identity, string, *slog.Logger) (*PAMVerifier, error) {
	return nil, ErrPAMUnavailable
}

// Verify always fails.
func (*PAMVerifier) Verify([]byte) bool { return false }
