package ttystep

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/aretw0/ttystep/pkg/adapters/process"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// childImage re-executes the test binary as a program image. TestMain in the
// external test package serves the program named by the environment.
func childImage(program string) Option {
	return WithImage(process.Image{
		Command: os.Args[0],
		Args:    []string{"-test.run=^$"},
		Env:     []string{"TTYSTEP_HELPER_PROGRAM=" + program},
	})
}

func TestSession_SinkClosedMidSession(t *testing.T) {
	strategies := []struct {
		name   string
		opts   []Option
		action domain.Action
	}{
		{"InPlace", []Option{WithStrategy(domain.StrategyInPlace), WithProgram("echo")}, 'a'},
		{"Isolated", []Option{childImage("demo")}, 10},
	}

	for _, st := range strategies {
		t.Run(st.name, func(t *testing.T) {
			ctx := context.Background()
			var fatals int
			opts := append(st.opts,
				WithRecording(filepath.Join(t.TempDir(), "session.ttyrec")),
				WithLifecycleHooks(domain.LifecycleHooks{
					OnFatal: func(ctx context.Context, e *domain.SessionEvent) { fatals++ },
				}),
			)
			sess, err := Start(ctx, opts...)
			require.NoError(t, err)

			require.NoError(t, sess.file.Close())

			done, err := sess.Step(ctx, st.action)
			assert.True(t, done)
			var ioErr *domain.IOError
			require.ErrorAs(t, err, &ioErr)
			assert.ErrorIs(t, err, os.ErrClosed)

			info := sess.Info()
			assert.True(t, info.Ended, "resources are released on fatal failure")
			assert.NotEmpty(t, info.LastError)
			assert.Equal(t, 1, fatals)

			assert.NoError(t, sess.End())
			_, err = sess.Step(ctx, 'b')
			assert.ErrorIs(t, err, domain.ErrSessionEnded)
		})
	}
}
