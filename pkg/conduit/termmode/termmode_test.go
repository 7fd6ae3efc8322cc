package termmode_test

import (
	"os"
	"testing"

	"github.com/aretw0/ttystep/pkg/conduit/termmode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapture_NonTerminalIsNoop(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	mode, err := termmode.Capture(int(r.Fd()))
	require.NoError(t, err)
	assert.False(t, mode.Active())
	assert.NoError(t, mode.Restore())
	assert.NoError(t, mode.Restore())
}

func TestRestore_NilMode(t *testing.T) {
	var mode *termmode.Mode
	assert.NoError(t, mode.Restore())
}
