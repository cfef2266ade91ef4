package auth

import "errors"

// ErrPAMUnavailable is returned when the binary was built without PAM support.
var ErrPAMUnavailable = errors.New("pam support not compiled in (built without cgo)")
