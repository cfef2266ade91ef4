package privilege

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestDisableCoreDumps(t *testing.T) {
	require.NoError(t, DisableCoreDumps())

	var lim unix.Rlimit
	require.NoError(t, unix.Getrlimit(unix.RLIMIT_CORE, &lim))
	assert.Zero(t, lim.Cur)
	assert.Zero(t, lim.Max)
}
