package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"time"

	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ttyrec"
)

// DefaultEndTimeout bounds how long End waits for a child to exit on its own.
const DefaultEndTimeout = 2 * time.Second

// Isolated runs the program in a child process image, one image per episode.
// Reset tears the whole image down, so no global state survives it.
type Isolated struct {
	image         Image
	rec           *ttyrec.Recorder
	logger        *slog.Logger
	stderr        io.Writer
	endTimeout    time.Duration
	recordActions bool

	cmd    *exec.Cmd
	stdin  io.WriteCloser
	stdout *os.File
	reader *ttyrec.Reader
	exited chan struct{}

	obs    []byte
	done   bool
	closed bool
	err    error
}

// IsolatedOption configures an Isolated engine.
type IsolatedOption func(*Isolated)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) IsolatedOption {
	return func(e *Isolated) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithStderr forwards the child's standard error to w.
func WithStderr(w io.Writer) IsolatedOption {
	return func(e *Isolated) {
		e.stderr = w
	}
}

// WithEndTimeout bounds the wait for a child to exit before it is killed.
func WithEndTimeout(d time.Duration) IsolatedOption {
	return func(e *Isolated) {
		e.endTimeout = d
	}
}

// WithRecordActions echoes every action into the recording on the input channel.
func WithRecordActions(enabled bool) IsolatedOption {
	return func(e *Isolated) {
		e.recordActions = enabled
	}
}

// NewIsolated creates an isolated engine spawning image and recording to sink.
func NewIsolated(image Image, sink io.Writer, opts ...IsolatedOption) *Isolated {
	e := &Isolated{
		image:      image,
		rec:        ttyrec.NewRecorder(sink),
		logger:     logging.NewNop(),
		stderr:     os.Stderr,
		endTimeout: DefaultEndTimeout,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start spawns the image and waits for its first yield.
func (e *Isolated) Start(ctx context.Context) (bool, error) {
	if e.closed {
		return true, domain.ErrSessionEnded
	}
	if err := ctx.Err(); err != nil {
		return true, err
	}
	if err := e.spawn(); err != nil {
		e.fail(err)
		return true, err
	}
	return e.await()
}

func (e *Isolated) spawn() error {
	cmd := exec.Command(e.image.Command, e.image.Args...)
	cmd.Dir = e.image.Dir
	cmd.Env = append(os.Environ(), e.image.Env...)
	cmd.Stderr = e.stderr

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return &domain.SetupError{Resource: "image", Err: err}
	}
	// A plain pipe rather than StdoutPipe: Wait must not close the read end
	// while frames written before the child exited are still buffered.
	stdout, w, err := os.Pipe()
	if err != nil {
		stdin.Close()
		return &domain.SetupError{Resource: "image", Err: err}
	}
	cmd.Stdout = w
	if err := cmd.Start(); err != nil {
		stdin.Close()
		stdout.Close()
		w.Close()
		return &domain.SetupError{Resource: "image", Err: fmt.Errorf("%s: %w", e.image, err)}
	}
	w.Close()

	e.cmd = cmd
	e.stdin = stdin
	e.stdout = stdout
	e.reader = ttyrec.NewReader(stdout)
	e.exited = make(chan struct{})
	e.done = false
	exited := e.exited
	go func() {
		cmd.Wait()
		close(exited)
	}()

	e.logger.Debug("Image spawned", "image", e.image.String(), "pid", cmd.Process.Pid)
	return nil
}

// await forwards output records into the recording until the child yields.
func (e *Isolated) await() (bool, error) {
	e.obs = nil
	for {
		rec, err := e.reader.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				err = io.ErrUnexpectedEOF
			}
			e.fail(&domain.IOError{Resource: "image", Err: err})
			e.terminate()
			return true, e.err
		}

		switch rec.Channel {
		case domain.ChannelControl:
			e.done = len(rec.Payload) > 0 && rec.Payload[0] == yieldDone
			return e.done, nil
		case domain.ChannelOutput:
			e.obs = append(e.obs, rec.Payload...)
			if err := e.rec.WriteRecord(rec); err != nil {
				e.fail(err)
				e.terminate()
				return true, err
			}
		}
	}
}

func (e *Isolated) fail(err error) {
	if e.err == nil {
		e.err = err
	}
	e.done = true
}

// Step sends one action to the child and waits for the next yield.
func (e *Isolated) Step(ctx context.Context, action domain.Action) (bool, error) {
	switch {
	case e.closed:
		return true, domain.ErrSessionEnded
	case e.done:
		return true, domain.ErrSessionDone
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if e.recordActions {
		if err := e.rec.RecordAction(action); err != nil {
			e.fail(err)
			e.terminate()
			return true, err
		}
	}
	if _, err := e.stdin.Write([]byte{cmdStep, byte(action)}); err != nil {
		e.fail(&domain.IOError{Resource: "image", Err: err})
		e.terminate()
		return true, e.err
	}
	return e.await()
}

// Observation returns the bytes emitted during the last resumption.
func (e *Isolated) Observation() []byte {
	return e.obs
}

// Reset ends the current image and spawns a fresh one. The recording
// continues across episodes.
func (e *Isolated) Reset(ctx context.Context) error {
	if e.closed {
		return domain.ErrSessionEnded
	}
	if e.err != nil {
		return e.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.terminate()
	if err := e.spawn(); err != nil {
		e.fail(err)
		return err
	}
	_, err := e.await()
	return err
}

// terminate asks the child to end, waits a bounded time, then kills it.
func (e *Isolated) terminate() {
	if e.cmd == nil {
		return
	}
	cmd := e.cmd
	e.cmd = nil

	e.stdin.Write([]byte{cmdEnd})
	e.stdin.Close()

	timer := time.NewTimer(e.endTimeout)
	defer timer.Stop()
	select {
	case <-e.exited:
	case <-timer.C:
		e.logger.Warn("Image did not exit, killing it", "pid", cmd.Process.Pid)
		cmd.Process.Kill()
		<-e.exited
	}
	e.stdout.Close()
}

// Done reports whether the program reached its exit path.
func (e *Isolated) Done() bool {
	return e.done
}

// Err returns the fatal error that ended the session, if any.
func (e *Isolated) Err() error {
	return e.err
}

// Recorder exposes the recording counters.
func (e *Isolated) Recorder() *ttyrec.Recorder {
	return e.rec
}

// Close ends the child image. It is idempotent.
func (e *Isolated) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.done = true
	e.terminate()
	if e.rec.Err() != nil {
		return nil
	}
	return e.rec.Flush()
}
