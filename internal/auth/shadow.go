package auth

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/awnumar/memguard"
)

// Elevator runs fn with elevated privilege and lowers it again afterwards.
type Elevator interface {
	Do(fn func() error) error
	Drop() error
}

// ErrUnknownUser means the password database has no entry for the user.
var ErrUnknownUser = errors.New("user not found in password database")

// ShadowStore reads reference hashes from the local password database.
// Reading /etc/shadow needs privilege, so Fetch runs inside an elevated scope
// and lowers privilege once the hash is sealed.
type ShadowStore struct {
	elev   Elevator
	shadow string
	passwd string
}

// NewShadowStore returns a store reading the system databases.
func NewShadowStore(elev Elevator) *ShadowStore {
	return &ShadowStore{elev: elev, shadow: "/etc/shadow", passwd: "/etc/passwd"}
}

// Fetch reads and seals the hash of id. Privilege is lowered afterwards even
// when the lookup fails.
func (s *ShadowStore) Fetch(id Identity) (*Credential, error) {
	if s.elev == nil {
		return nil, errors.New("reading the password database requires elevated privilege")
	}

	var cred *Credential
	err := s.elev.Do(func() error {
		hash, err := s.lookup(id.Name)
		if err != nil {
			return err
		}
		cred, err = NewCredential(hash)
		return err
	})
	if derr := s.elev.Drop(); derr != nil {
		return nil, errors.Join(err, derr)
	}
	if err != nil {
		return nil, fmt.Errorf("fetching credential of %s: %w", id.Name, err)
	}
	return cred, nil
}

func (s *ShadowStore) lookup(name string) ([]byte, error) {
	hash, err := lookupFile(s.passwd, name)
	if err != nil {
		return nil, err
	}
	// "x" points at the shadow file.
	if !bytes.Equal(hash, []byte("x")) {
		return hash, nil
	}
	return lookupFile(s.shadow, name)
}

// lookupFile returns the second field of the colon-separated line whose first
// field is name. The returned slice is owned by the caller.
func lookupFile(path, name string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return lookupEntry(f, name, path)
}

func lookupEntry(r io.Reader, name, source string) ([]byte, error) {
	sc := bufio.NewScanner(r)
	prefix := []byte(name + ":")
	for sc.Scan() {
		line := sc.Bytes()
		if !bytes.HasPrefix(line, prefix) {
			continue
		}
		field := line[len(prefix):]
		if i := bytes.IndexByte(field, ':'); i >= 0 {
			field = field[:i]
		}
		hash := bytes.Clone(field)
		memguard.WipeBytes(line)
		return hash, nil
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("reading %s: %w", source, err)
	}
	return nil, fmt.Errorf("%w: %s in %s", ErrUnknownUser, name, source)
}
