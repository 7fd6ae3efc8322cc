//go:build linux

package conduit_test

import (
	"fmt"
	"os"
	"testing"

	"github.com/aretw0/ttystep/pkg/conduit"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestChannel_StdioRebind(t *testing.T) {
	var before unix.Stat_t
	require.NoError(t, unix.Fstat(1, &before))

	c, err := conduit.Open(conduit.WithStdioRebind(true))
	require.NoError(t, err)
	require.NotNil(t, c.OriginalStdout())

	// Raw descriptor writes reach the live stream but bypass the byte count,
	// so flush them through Close rather than Settle.
	_, err = fmt.Fprint(os.Stdout, "raw")
	require.NoError(t, err)

	require.NoError(t, c.Close())

	var after unix.Stat_t
	require.NoError(t, unix.Fstat(1, &after))
	assert.Equal(t, before.Ino, after.Ino, "stdout restored")
	assert.Equal(t, "raw", string(c.TakeObservation()))
}
