// Package pty drives unmodified console binaries through a pseudo-terminal.
package pty

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/adapters/process"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ttyrec"
	"github.com/creack/pty"
)

// Relay is a stepper for binaries that cannot be linked against a Terminal.
// The program runs freely; a step ends when it has produced output (and, with
// a settle window, gone quiet) or exited.
type Relay struct {
	image         process.Image
	rec           *ttyrec.Recorder
	logger        *slog.Logger
	settle        time.Duration
	size          pty.Winsize
	recordActions bool

	cmd     *exec.Cmd
	ptmx    *os.File
	actions chan domain.Action
	written chan error
	stop    chan struct{}
	chunks  chan []byte
	exited  chan struct{}

	obs    []byte
	done   bool
	closed bool
	err    error
}

// Option configures a Relay.
type Option func(*Relay)

// WithSettle keeps collecting output for d after the first chunk of a step.
func WithSettle(d time.Duration) Option {
	return func(r *Relay) {
		r.settle = d
	}
}

// WithSize sets the terminal dimensions.
func WithSize(cols, rows int) Option {
	return func(r *Relay) {
		r.size = pty.Winsize{Cols: uint16(cols), Rows: uint16(rows)}
	}
}

// WithLogger sets the relay logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Relay) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRecordActions echoes every action into the recording on the input channel.
func WithRecordActions(enabled bool) Option {
	return func(r *Relay) {
		r.recordActions = enabled
	}
}

// New creates a relay for image recording to sink.
func New(image process.Image, sink io.Writer, opts ...Option) *Relay {
	r := &Relay{
		image:  image,
		rec:    ttyrec.NewRecorder(sink),
		logger: logging.NewNop(),
		size:   pty.Winsize{Cols: 80, Rows: 24},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start spawns the binary and waits for its first output.
func (r *Relay) Start(ctx context.Context) (bool, error) {
	if r.closed {
		return true, domain.ErrSessionEnded
	}
	if err := ctx.Err(); err != nil {
		return true, err
	}
	if err := r.spawn(); err != nil {
		r.fail(err)
		return true, err
	}
	return r.collect()
}

func (r *Relay) spawn() error {
	cmd := exec.Command(r.image.Command, r.image.Args...)
	cmd.Dir = r.image.Dir
	cmd.Env = append(os.Environ(), "TERM=xterm-256color")
	cmd.Env = append(cmd.Env, r.image.Env...)

	size := r.size
	ptmx, err := pty.StartWithSize(cmd, &size)
	if err != nil {
		return &domain.SetupError{Resource: "pty", Err: err}
	}

	r.cmd = cmd
	r.ptmx = ptmx
	r.actions = make(chan domain.Action)
	r.written = make(chan error)
	r.stop = make(chan struct{})
	r.chunks = make(chan []byte, 64)
	r.exited = make(chan struct{})
	r.done = false

	go r.relay(ptmx, r.actions, r.written, r.stop)
	go r.read(ptmx, r.chunks)
	go func(exited chan struct{}) {
		cmd.Wait()
		close(exited)
	}(r.exited)

	r.logger.Debug("Relay spawned", "image", r.image.String(), "pid", cmd.Process.Pid)
	return nil
}

// relay forwards driver actions into the terminal until stop is closed.
func (r *Relay) relay(ptmx *os.File, actions <-chan domain.Action, written chan<- error, stop <-chan struct{}) {
	for {
		select {
		case <-stop:
			return
		case a := <-actions:
			_, err := ptmx.Write([]byte{byte(a)})
			select {
			case written <- err:
			case <-stop:
				return
			}
		}
	}
}

// read publishes output chunks; the channel is closed once the binary is gone.
func (r *Relay) read(ptmx *os.File, chunks chan<- []byte) {
	defer close(chunks)
	buf := make([]byte, 4096)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			chunks <- append([]byte(nil), buf[:n]...)
		}
		if err != nil {
			return
		}
	}
}

// collect blocks for the first output chunk or exit, then drains whatever else
// arrives within the settle window.
func (r *Relay) collect() (bool, error) {
	r.obs = nil

	chunk, ok := <-r.chunks
	if !ok {
		return r.exit()
	}
	if err := r.record(chunk); err != nil {
		return true, err
	}

	var deadline <-chan time.Time
	if r.settle > 0 {
		timer := time.NewTimer(r.settle)
		defer timer.Stop()
		deadline = timer.C
	}
	for {
		if deadline == nil {
			select {
			case chunk, ok := <-r.chunks:
				if !ok {
					return r.exit()
				}
				if err := r.record(chunk); err != nil {
					return true, err
				}
				continue
			default:
				return false, nil
			}
		}
		select {
		case chunk, ok := <-r.chunks:
			if !ok {
				return r.exit()
			}
			if err := r.record(chunk); err != nil {
				return true, err
			}
		case <-deadline:
			return false, nil
		}
	}
}

func (r *Relay) record(chunk []byte) error {
	r.obs = append(r.obs, chunk...)
	if _, err := r.rec.Write(chunk); err != nil {
		r.fail(err)
		r.terminate()
		return err
	}
	return nil
}

// exit marks the binary's own termination.
func (r *Relay) exit() (bool, error) {
	r.done = true
	r.terminate()
	return true, nil
}

func (r *Relay) fail(err error) {
	if r.err == nil {
		r.err = err
	}
	r.done = true
}

// Step types one action into the terminal and collects the response.
func (r *Relay) Step(ctx context.Context, action domain.Action) (bool, error) {
	switch {
	case r.closed:
		return true, domain.ErrSessionEnded
	case r.done:
		return true, domain.ErrSessionDone
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if r.recordActions {
		if err := r.rec.RecordAction(action); err != nil {
			r.fail(err)
			r.terminate()
			return true, err
		}
	}

	r.actions <- action
	if err := <-r.written; err != nil {
		r.fail(&domain.IOError{Resource: "pty", Err: err})
		r.terminate()
		return true, r.err
	}
	return r.collect()
}

// Observation returns the bytes emitted during the last step.
func (r *Relay) Observation() []byte {
	return r.obs
}

// Reset kills the binary and starts it again on the same recording.
func (r *Relay) Reset(ctx context.Context) error {
	if r.closed {
		return domain.ErrSessionEnded
	}
	if r.err != nil {
		return r.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	r.terminate()
	if err := r.spawn(); err != nil {
		r.fail(err)
		return err
	}
	_, err := r.collect()
	return err
}

// terminate stops the relay, kills the binary and releases the terminal.
func (r *Relay) terminate() {
	if r.cmd == nil {
		return
	}
	close(r.stop)
	if err := r.cmd.Process.Kill(); err != nil && !errors.Is(err, os.ErrProcessDone) {
		r.logger.Warn("Failed to kill relay target", "err", err)
	}
	<-r.exited
	r.ptmx.Close()
	for range r.chunks {
	}
	r.cmd = nil
}

// Done reports whether the binary has exited.
func (r *Relay) Done() bool {
	return r.done
}

// Err returns the fatal error that ended the session, if any.
func (r *Relay) Err() error {
	return r.err
}

// Recorder exposes the recording counters.
func (r *Relay) Recorder() *ttyrec.Recorder {
	return r.rec
}

// Close stops the relay and kills the binary. It is idempotent.
func (r *Relay) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	r.done = true
	r.terminate()
	if r.rec.Err() != nil {
		return nil
	}
	return r.rec.Flush()
}
