package pty_test

import (
	"bytes"
	"context"
	"os"
	"runtime"
	"testing"
	"time"

	"github.com/aretw0/ttystep/pkg/adapters/process"
	"github.com/aretw0/ttystep/pkg/adapters/pty"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/aretw0/ttystep/pkg/ttyrec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var _ ports.Stepper = (*pty.Relay)(nil)

func shell(t *testing.T, script string) process.Image {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("pseudo-terminals are not available on windows")
	}
	if _, err := os.Stat("/bin/sh"); err != nil {
		t.Skip("/bin/sh not available")
	}
	return process.Image{Command: "/bin/sh", Args: []string{"-c", script}}
}

func TestRelay_StepUntilExit(t *testing.T) {
	img := shell(t, `printf 'ready> '; read x; printf 'got %s\n' "$x"`)
	ctx := context.Background()

	var rec bytes.Buffer
	relay := pty.New(img, &rec, pty.WithSettle(300*time.Millisecond), pty.WithRecordActions(true))
	defer relay.Close()

	done, err := relay.Start(ctx)
	require.NoError(t, err)
	require.False(t, done)
	assert.Contains(t, string(relay.Observation()), "ready>")

	_, err = relay.Step(ctx, 'h')
	require.NoError(t, err)

	var tail []byte
	for !relay.Done() {
		_, err = relay.Step(ctx, domain.ActionReturn)
		require.NoError(t, err)
		tail = append(tail, relay.Observation()...)
	}
	assert.Contains(t, string(tail), "got h")

	_, err = relay.Step(ctx, 'x')
	assert.ErrorIs(t, err, domain.ErrSessionDone)

	require.NoError(t, relay.Close())
	recs, err := ttyrec.ReadAll(&rec)
	require.NoError(t, err)
	assert.Contains(t, string(ttyrec.Output(recs)), "got h")
	assert.Equal(t, domain.Action('h'), ttyrec.Actions(recs)[0])
}

func TestRelay_Reset(t *testing.T) {
	img := shell(t, `printf 'ready> '; read x`)
	ctx := context.Background()

	relay := pty.New(img, &bytes.Buffer{}, pty.WithSettle(200*time.Millisecond))
	defer relay.Close()

	_, err := relay.Start(ctx)
	require.NoError(t, err)
	_, err = relay.Step(ctx, 'z')
	require.NoError(t, err)

	require.NoError(t, relay.Reset(ctx))
	assert.False(t, relay.Done())
	assert.Contains(t, string(relay.Observation()), "ready>")

	assert.NoError(t, relay.Close())
	assert.NoError(t, relay.Close())
	_, err = relay.Step(ctx, 'a')
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
}

func TestRelay_SpawnFailure(t *testing.T) {
	relay := pty.New(process.Image{Command: "/nonexistent/binary"}, &bytes.Buffer{})
	done, err := relay.Start(context.Background())
	assert.True(t, done)
	var setupErr *domain.SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "pty", setupErr.Resource)
}
