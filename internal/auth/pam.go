//go:build cgo

package auth

import (
	"fmt"
	"log/slog"

	"github.com/msteinert/pam"
)

// PAMVerifier checks passwords through a PAM service. Each attempt runs its
// own transaction.
type PAMVerifier struct {
	service string
	user    string
	tty     string
	log     *slog.Logger
}

// NewPAMVerifier returns a verifier for id using the named service
// (for example "login"). tty may be empty.
func NewPAMVerifier(service string, id Identity, tty string, log *slog.Logger) (*PAMVerifier, error) {
	if service == "" {
		return nil, fmt.Errorf("pam: empty service name")
	}
	if log == nil {
		log = slog.Default()
	}
	return &PAMVerifier{service: service, user: id.Name, tty: tty, log: log}, nil
}

// Verify runs one authentication with candidate as the answer to every
// hidden prompt.
func (p *PAMVerifier) Verify(candidate []byte) bool {
	tx, err := pam.StartFunc(p.service, p.user, func(style pam.Style, msg string) (string, error) {
		switch style {
		case pam.PromptEchoOff:
			return string(candidate), nil
		case pam.PromptEchoOn:
			return p.user, nil
		case pam.ErrorMsg:
			p.log.Debug("pam error message", "message", msg)
			return "", nil
		case pam.TextInfo:
			p.log.Debug("pam info", "message", msg)
			return "", nil
		}
		return "", fmt.Errorf("unexpected style: %v", style)
	})
	if err != nil {
		p.log.Error("failed to start pam", "service", p.service, "error", err)
		return false
	}

	if p.tty != "" {
		if err := tx.SetItem(pam.Tty, p.tty); err != nil {
			p.log.Debug("failed to set pam tty", "error", err)
		}
	}
	if err := tx.Authenticate(0); err != nil {
		p.log.Debug("pam authentication failed", "error", err)
		return false
	}
	return true
}
