package process_test

import (
	"bytes"
	"context"
	"io"
	"os"
	"testing"

	"github.com/aretw0/ttystep/pkg/adapters/process"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/aretw0/ttystep/pkg/programs"
	"github.com/aretw0/ttystep/pkg/ttyrec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// crashProgram dies on its first read, taking the whole image with it.
type crashProgram struct{}

func (crashProgram) Main(tty ports.Terminal) error {
	tty.PutString("about to crash")
	tty.ReadByte()
	os.Exit(9)
	return nil
}

var _ ports.Stepper = (*process.Isolated)(nil)

func quiet() process.IsolatedOption {
	return process.WithStderr(io.Discard)
}

func TestIsolated_Demo(t *testing.T) {
	ctx := context.Background()
	var rec bytes.Buffer
	eng := process.NewIsolated(helperImage("demo"), &rec, quiet())
	defer eng.Close()

	done, err := eng.Start(ctx)
	require.NoError(t, err)
	require.False(t, done)
	assert.Contains(t, string(eng.Observation()), programs.StartPrompt)
	observed := append([]byte(nil), eng.Observation()...)

	for _, a := range []domain.Action{domain.ActionNewline, domain.ActionYes} {
		done, err = eng.Step(ctx, a)
		require.NoError(t, err)
		require.False(t, done)
		observed = append(observed, eng.Observation()...)
	}
	assert.Contains(t, string(eng.Observation()), "T:0")

	require.NoError(t, eng.Close())

	recs, err := ttyrec.ReadAll(&rec)
	require.NoError(t, err)
	assert.Equal(t, observed, ttyrec.Output(recs))
	for _, r := range recs {
		assert.NotEqual(t, domain.ChannelControl, r.Channel, "control frames never reach the recording")
	}
}

func TestIsolated_ResetDeterminism(t *testing.T) {
	ctx := context.Background()
	eng := process.NewIsolated(helperImage("demo"), io.Discard, quiet())
	defer eng.Close()

	script := []domain.Action{'y', 'y', 'l', 'l', 'j'}
	play := func() []string {
		var obs []string
		obs = append(obs, string(eng.Observation()))
		for _, a := range script {
			_, err := eng.Step(ctx, a)
			require.NoError(t, err)
			obs = append(obs, string(eng.Observation()))
		}
		return obs
	}

	_, err := eng.Start(ctx)
	require.NoError(t, err)
	first := play()

	require.NoError(t, eng.Reset(ctx))
	second := play()

	assert.Equal(t, first, second, "the global turn counter starts over in a fresh image")
}

func TestIsolated_ProgramExitIsDone(t *testing.T) {
	ctx := context.Background()
	eng := process.NewIsolated(helperImage("echo"), io.Discard, quiet())
	defer eng.Close()

	_, err := eng.Start(ctx)
	require.NoError(t, err)

	done, err := eng.Step(ctx, 0x04)
	require.NoError(t, err)
	assert.True(t, done)

	_, err = eng.Step(ctx, 'a')
	assert.ErrorIs(t, err, domain.ErrSessionDone)

	require.NoError(t, eng.Reset(ctx))
	assert.False(t, eng.Done())
	assert.Equal(t, programs.EchoPrompt, string(eng.Observation()))
}

func TestIsolated_BrokenWire(t *testing.T) {
	ctx := context.Background()
	eng := process.NewIsolated(helperImage("crash"), io.Discard, quiet())
	defer eng.Close()

	_, err := eng.Start(ctx)
	require.NoError(t, err)

	done, err := eng.Step(ctx, 'a')
	assert.True(t, done)
	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "image", ioErr.Resource)

	assert.Equal(t, err, eng.Reset(ctx), "a fatal session cannot be reset")
	assert.NoError(t, eng.Close())
}

func TestIsolated_SpawnFailure(t *testing.T) {
	img := process.Image{Command: "/nonexistent/ttystep-image"}
	eng := process.NewIsolated(img, io.Discard, quiet())

	done, err := eng.Start(context.Background())
	assert.True(t, done)
	var setupErr *domain.SetupError
	require.ErrorAs(t, err, &setupErr)
	assert.Equal(t, "image", setupErr.Resource)
	assert.NoError(t, eng.Close())
}

func TestIsolated_ImageExitsBeforeYield(t *testing.T) {
	eng := process.NewIsolated(helperImage("vanish"), io.Discard, quiet())
	defer eng.Close()

	done, err := eng.Start(context.Background())
	assert.True(t, done)
	assert.True(t, domain.IsFatal(err))
}
