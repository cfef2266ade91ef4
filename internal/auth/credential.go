package auth

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/GehirnInc/crypt"
	_ "github.com/GehirnInc/crypt/md5_crypt"
	_ "github.com/GehirnInc/crypt/sha256_crypt"
	_ "github.com/GehirnInc/crypt/sha512_crypt"
	"github.com/awnumar/memguard"
	"golang.org/x/crypto/bcrypt"
)

var (
	// ErrNoPassword means the account has an empty or locked password field.
	ErrNoPassword = errors.New("account has no usable password")

	// ErrUnsupportedHash means the hash scheme cannot be verified locally.
	ErrUnsupportedHash = errors.New("unsupported password hash scheme (try --auth pam)")
)

type scheme int

const (
	schemeBcrypt scheme = iota + 1
	schemeCrypt
)

// Credential is the reference password hash of one user, sealed in an
// encrypted memguard enclave. It is never displayed or logged.
type Credential struct {
	hash   *memguard.Enclave
	scheme scheme
}

// NewCredential seals hash. The hash slice is wiped.
func NewCredential(hash []byte) (*Credential, error) {
	defer memguard.WipeBytes(hash)

	s, err := detectScheme(hash)
	if err != nil {
		return nil, err
	}
	return &Credential{hash: memguard.NewEnclave(hash), scheme: s}, nil
}

func detectScheme(hash []byte) (scheme, error) {
	switch {
	case len(hash) == 0, hash[0] == '!', hash[0] == '*':
		return 0, ErrNoPassword
	case bytes.HasPrefix(hash, []byte("$2a$")),
		bytes.HasPrefix(hash, []byte("$2b$")),
		bytes.HasPrefix(hash, []byte("$2y$")):
		return schemeBcrypt, nil
	case crypt.IsHashSupported(string(hash)):
		return schemeCrypt, nil
	}
	if i := bytes.IndexByte(hash[1:], '$'); hash[0] == '$' && i > 0 {
		return 0, fmt.Errorf("%w: $%s$", ErrUnsupportedHash, hash[1:1+i])
	}
	return 0, ErrUnsupportedHash
}

// Verify reports whether candidate matches the credential. It has no side
// effects beyond the comparison.
func (c *Credential) Verify(candidate []byte) bool {
	if c.hash == nil {
		return false
	}
	lb, err := c.hash.Open()
	if err != nil {
		return false
	}
	defer lb.Destroy()

	switch c.scheme {
	case schemeBcrypt:
		return bcrypt.CompareHashAndPassword(lb.Bytes(), candidate) == nil
	case schemeCrypt:
		hashed := string(lb.Bytes())
		return crypt.NewFromHash(hashed).Verify(hashed, candidate) == nil
	}
	return false
}

// Close forgets the credential. Verify fails afterwards.
func (c *Credential) Close() error {
	c.hash = nil
	return nil
}
