// Package auth resolves the invoking user and verifies their password, either
// against the system password database or through PAM.
package auth

import (
	"fmt"
	"os"
	"os/user"
	"strconv"
)

// Identity is the invoking user. It is resolved once and never changes.
type Identity struct {
	UID  int
	Name string
	Home string
}

// CurrentIdentity resolves the real (not effective) user of the process.
func CurrentIdentity() (Identity, error) {
	return lookupIdentity(os.Getuid())
}

func lookupIdentity(uid int) (Identity, error) {
	u, err := user.LookupId(strconv.Itoa(uid))
	if err != nil {
		return Identity{}, fmt.Errorf("looking up uid %d: %w", uid, err)
	}
	return Identity{UID: uid, Name: u.Username, Home: u.HomeDir}, nil
}
