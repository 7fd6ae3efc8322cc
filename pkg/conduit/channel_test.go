package conduit_test

import (
	"bytes"
	"io"
	"testing"

	"github.com/aretw0/ttystep/pkg/conduit"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChannel_ActionAndObservation(t *testing.T) {
	c, err := conduit.Open()
	require.NoError(t, err)
	defer c.Close()

	require.NoError(t, c.SendAction(domain.Action('y')))
	require.NoError(t, c.SendAction(domain.ActionReturn))
	assert.Equal(t, 2, c.Pending())

	buf := make([]byte, 8)
	n, err := c.Input().Read(buf)
	require.NoError(t, err)
	assert.Equal(t, []byte{'y', '\r'}, buf[:n])
	assert.Zero(t, c.Pending())

	_, err = io.WriteString(c.Output(), "You see here a scroll.")
	require.NoError(t, err)
	require.NoError(t, c.Settle())
	assert.Equal(t, "You see here a scroll.", string(c.TakeObservation()))
	assert.Empty(t, c.TakeObservation(), "observation is cleared on take")
}

func TestChannel_LargeOutputDoesNotBlock(t *testing.T) {
	c, err := conduit.Open()
	require.NoError(t, err)
	defer c.Close()

	// Well beyond the kernel pipe buffer; only the pump keeps this from blocking.
	big := bytes.Repeat([]byte("#"), 1<<20)
	n, err := c.Output().Write(big)
	require.NoError(t, err)
	assert.Equal(t, len(big), n)

	require.NoError(t, c.Settle())
	assert.Len(t, c.TakeObservation(), len(big))
}

func TestChannel_CloseIsIdempotent(t *testing.T) {
	c, err := conduit.Open()
	require.NoError(t, err)

	assert.NoError(t, c.Close())
	assert.NoError(t, c.Close())
	assert.ErrorIs(t, c.SendAction('x'), conduit.ErrClosed)
	assert.Nil(t, c.OriginalStdin())
	assert.Nil(t, c.OriginalStdout())
}
