package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/domain"
)

// PlayOptions configures an interactive session.
type PlayOptions struct {
	In  io.Reader
	Out io.Writer
	// TerminalFD is put into raw input mode for the session; -1 leaves it alone.
	TerminalFD int
	Session    []ttystep.Option
	Logger     *slog.Logger
}

// Play feeds every byte read from In as one action and echoes each
// observation to Out, until the program is done, In is exhausted or ctx is
// cancelled.
func Play(ctx context.Context, opts PlayOptions) (domain.SessionInfo, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNop()
	}
	sessOpts := append([]ttystep.Option{ttystep.WithLogger(logger)}, opts.Session...)
	if opts.TerminalFD >= 0 {
		sessOpts = append(sessOpts, ttystep.WithTerminalMode(opts.TerminalFD))
	}

	sess, err := ttystep.Start(ctx, sessOpts...)
	if err != nil {
		return domain.SessionInfo{}, err
	}
	defer sess.End()

	if _, err := opts.Out.Write(sess.Observation()); err != nil {
		return sess.Info(), err
	}

	keys := readKeys(ctx, opts.In)
	for !sess.Done() {
		var key keyResult
		select {
		case <-ctx.Done():
			return sess.Info(), ctx.Err()
		case key = <-keys:
		}
		if key.err != nil {
			if errors.Is(key.err, io.EOF) {
				break
			}
			return sess.Info(), key.err
		}

		_, err := sess.Step(ctx, domain.Action(key.b))
		if _, werr := opts.Out.Write(sess.Observation()); werr != nil && err == nil {
			err = werr
		}
		if err != nil {
			return sess.Info(), err
		}
	}

	err = sess.End()
	return sess.Info(), err
}

type keyResult struct {
	b   byte
	err error
}

// readKeys delivers In one byte at a time. The reader goroutine exits after
// the first error or once ctx is done and its last key was not taken.
func readKeys(ctx context.Context, in io.Reader) <-chan keyResult {
	ch := make(chan keyResult)
	go func() {
		buf := make([]byte, 1)
		for {
			n, err := in.Read(buf)
			var res keyResult
			switch {
			case n == 1:
				res.b = buf[0]
			case err != nil:
				res.err = err
			default:
				continue
			}
			select {
			case ch <- res:
			case <-ctx.Done():
				return
			}
			if res.err != nil {
				return
			}
		}
	}()
	return ch
}
