package runtime_test

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/aretw0/ttystep/internal/runtime"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/aretw0/ttystep/pkg/programs"
	"github.com/aretw0/ttystep/pkg/ttyrec"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEngine_StartAndStep(t *testing.T) {
	ctx := context.Background()
	var rec bytes.Buffer
	eng := runtime.NewEngine(programs.Demo{}, &rec)
	defer eng.Close()

	done, err := eng.Start(ctx)
	require.NoError(t, err)
	require.False(t, done)

	var observed []byte
	observed = append(observed, eng.Observation()...)
	assert.Contains(t, string(eng.Observation()), programs.StartPrompt)

	done, err = eng.Step(ctx, domain.ActionNewline)
	require.NoError(t, err)
	require.False(t, done)
	observed = append(observed, eng.Observation()...)
	assert.Contains(t, string(eng.Observation()), "welcome to the dungeon")

	done, err = eng.Step(ctx, domain.ActionYes)
	require.NoError(t, err)
	require.False(t, done)
	observed = append(observed, eng.Observation()...)
	assert.Contains(t, string(eng.Observation()), "@")

	recs, err := ttyrec.ReadAll(bytes.NewReader(rec.Bytes()))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, len(recs), 2)
	for i := 1; i < len(recs); i++ {
		assert.False(t, recs[i].Before(recs[i-1]))
	}
	assert.Equal(t, observed, ttyrec.Output(recs), "recording reconstructs the observations")
}

func TestEngine_RecordActions(t *testing.T) {
	ctx := context.Background()
	var rec bytes.Buffer
	eng := runtime.NewEngine(programs.Echo{}, &rec, runtime.WithRecordActions(true))
	defer eng.Close()

	_, err := eng.Start(ctx)
	require.NoError(t, err)
	for _, a := range []domain.Action{'h', 'i'} {
		_, err := eng.Step(ctx, a)
		require.NoError(t, err)
	}

	recs, err := ttyrec.ReadAll(&rec)
	require.NoError(t, err)
	assert.Equal(t, []domain.Action{'h', 'i'}, ttyrec.Actions(recs))
	assert.Equal(t, programs.EchoPrompt+"hi", string(ttyrec.Output(recs)))
}

func TestEngine_InPlaceReset(t *testing.T) {
	ctx := context.Background()
	var rec bytes.Buffer
	eng := runtime.NewEngine(programs.Echo{}, &rec)
	defer eng.Close()

	_, err := eng.Start(ctx)
	require.NoError(t, err)
	initial := string(eng.Observation())

	for _, a := range []domain.Action{'a', '\r', 0x04} {
		_, err = eng.Step(ctx, a)
		require.NoError(t, err)
	}
	require.True(t, eng.Done())

	require.NoError(t, eng.Reset(ctx))
	assert.False(t, eng.Done())
	assert.Equal(t, initial, string(eng.Observation()))

	done, err := eng.Step(ctx, 'a')
	require.NoError(t, err)
	assert.False(t, done)
	assert.Equal(t, "a", string(eng.Observation()))
}

func TestEngine_InPlaceResetRequiresStackConfinement(t *testing.T) {
	ctx := context.Background()
	eng := runtime.NewEngine(programs.Demo{}, &bytes.Buffer{})
	defer eng.Close()

	_, err := eng.Start(ctx)
	require.NoError(t, err)
	assert.ErrorIs(t, eng.Reset(ctx), domain.ErrNotStackConfined)
}

func TestEngine_StepAfterDone(t *testing.T) {
	ctx := context.Background()
	eng := runtime.NewEngine(programs.Echo{}, &bytes.Buffer{})
	defer eng.Close()

	_, err := eng.Start(ctx)
	require.NoError(t, err)

	done, err := eng.Step(ctx, 0x04)
	require.NoError(t, err)
	require.True(t, done)
	assert.Contains(t, string(eng.Observation()), "0 lines")

	_, err = eng.Step(ctx, 'x')
	assert.ErrorIs(t, err, domain.ErrSessionDone)
}

func TestEngine_ProgramCrashIsContained(t *testing.T) {
	tests := []struct {
		name string
		main ports.ProgramFunc
	}{
		{"Panic", func(tty ports.Terminal) error {
			tty.ReadByte()
			panic("impossible")
		}},
		{"Exit", func(tty ports.Terminal) error {
			tty.ReadByte()
			tty.Exit(1)
			return nil
		}},
		{"Error", func(tty ports.Terminal) error {
			tty.ReadByte()
			return errors.New("no dungeon")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			eng := runtime.NewEngine(tt.main, &bytes.Buffer{})
			defer eng.Close()

			done, err := eng.Start(ctx)
			require.NoError(t, err)
			require.False(t, done)

			done, err = eng.Step(ctx, 'x')
			assert.NoError(t, err)
			assert.True(t, done)
		})
	}
}

type brokenSink struct{ budget int }

func (s *brokenSink) Write(p []byte) (int, error) {
	if s.budget <= 0 {
		return 0, errors.New("file already closed")
	}
	s.budget--
	return len(p), nil
}

func TestEngine_RecordingFailureIsFatal(t *testing.T) {
	ctx := context.Background()
	sink := &brokenSink{budget: 1}
	eng := runtime.NewEngine(programs.Echo{}, sink)

	_, err := eng.Start(ctx)
	require.NoError(t, err)

	done, err := eng.Step(ctx, 'a')
	assert.True(t, done)
	var ioErr *domain.IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "recording", ioErr.Resource)
	assert.True(t, domain.IsFatal(err))

	assert.NoError(t, eng.Close())
	assert.NoError(t, eng.Close())
}

func TestEngine_Cancellation(t *testing.T) {
	eng := runtime.NewEngine(programs.Echo{}, &bytes.Buffer{})
	defer eng.Close()

	_, err := eng.Start(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	done, err := eng.Step(ctx, 'a')
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, done)

	_, err = eng.Step(context.Background(), 'a')
	assert.NoError(t, err, "a cancelled step leaves the session usable")
}

func TestEngine_EndedSession(t *testing.T) {
	eng := runtime.NewEngine(programs.Echo{}, &bytes.Buffer{})
	_, err := eng.Start(context.Background())
	require.NoError(t, err)

	require.NoError(t, eng.Close())
	_, err = eng.Step(context.Background(), 'a')
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
	assert.ErrorIs(t, eng.Reset(context.Background()), domain.ErrSessionEnded)
}
