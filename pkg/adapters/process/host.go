package process

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/ttystep/internal/runtime"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/aretw0/ttystep/pkg/ttyrec"
)

// Host serves program over the image wire: commands are read from in, output
// records and yield frames are written to out. It returns when the parent ends
// the session or closes in.
func Host(ctx context.Context, program ports.Program, in io.Reader, out io.Writer, opts ...runtime.EngineOption) error {
	eng := runtime.NewEngine(program, out, opts...)
	defer eng.Close()

	// Control frames share out with the engine's recorder. They are only written
	// while the program is parked, so the two never interleave.
	wire := ttyrec.NewRecorder(out)
	yield := func(done bool, err error) error {
		if err != nil && domain.IsFatal(err) {
			return err
		}
		payload := yieldRunning
		if done {
			payload = yieldDone
		}
		return wire.Control([]byte{payload})
	}

	if err := yield(eng.Start(ctx)); err != nil {
		return err
	}

	r := bufio.NewReader(in)
	for {
		cmd, err := r.ReadByte()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		switch cmd {
		case cmdEnd:
			return nil
		case cmdStep:
			a, err := r.ReadByte()
			if err != nil {
				return fmt.Errorf("truncated step command: %w", err)
			}
			done, err := eng.Step(ctx, domain.Action(a))
			if errors.Is(err, domain.ErrSessionDone) {
				done, err = true, nil
			}
			if err := yield(done, err); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown wire command %q", cmd)
		}
	}
}
