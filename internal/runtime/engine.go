// Package runtime runs a program in-process as a coroutine behind a conduit.
package runtime

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/aretw0/ttystep/internal/coroutine"
	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/pkg/conduit"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/aretw0/ttystep/pkg/ttyrec"
)

// Engine is the in-process coroutine stepper.
type Engine struct {
	program ports.Program
	sink    io.Writer
	logger  *slog.Logger
	dir     string

	recordActions bool
	rebind        bool

	channel *conduit.Channel
	rec     *ttyrec.Recorder
	sched   *coroutine.Scheduler
	obs     []byte
	done    bool
	closed  bool
	err     error
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the engine logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithDir sets the directory reported to the program by Terminal.Dir.
func WithDir(dir string) EngineOption {
	return func(e *Engine) {
		e.dir = dir
	}
}

// WithRecordActions echoes every action into the recording on the input channel.
func WithRecordActions(enabled bool) EngineOption {
	return func(e *Engine) {
		e.recordActions = enabled
	}
}

// WithStdioRebind also points descriptors 0 and 1 at the conduits.
func WithStdioRebind(enabled bool) EngineOption {
	return func(e *Engine) {
		e.rebind = enabled
	}
}

// NewEngine creates an engine for program recording to sink.
func NewEngine(program ports.Program, sink io.Writer, opts ...EngineOption) *Engine {
	e := &Engine{
		program: program,
		sink:    sink,
		logger:  logging.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Start opens the conduits and runs the program up to its first yield.
func (e *Engine) Start(ctx context.Context) (bool, error) {
	if e.closed {
		return true, domain.ErrSessionEnded
	}
	if e.channel != nil {
		return e.done, errors.New("engine already started")
	}

	ch, err := conduit.Open(conduit.WithStdioRebind(e.rebind))
	if err != nil {
		return true, err
	}
	e.channel = ch
	e.rec = ttyrec.NewRecorder(e.sink, ttyrec.WithTee(ch.Output()))

	return e.launch()
}

func (e *Engine) launch() (bool, error) {
	e.sched = coroutine.New(e.entry)
	e.done = e.sched.Start()
	return e.settle()
}

func (e *Engine) entry(y *coroutine.Yielder) {
	tty := &terminal{
		y:       y,
		channel: e.channel,
		rec:     e.rec,
		dir:     e.dir,
	}
	if err := e.program.Main(tty); err != nil {
		y.Fail(&domain.ProgramExit{Status: 1, Err: err})
	}
}

// settle collects the observation of the transfer that just completed and
// classifies the program's termination, if any.
func (e *Engine) settle() (bool, error) {
	if err := e.channel.Settle(); err != nil {
		e.fail(err)
	}
	e.obs = e.channel.TakeObservation()

	if e.done && e.err == nil {
		if cause := e.sched.Err(); domain.IsFatal(cause) {
			e.fail(cause)
		} else {
			e.logger.Debug("Program terminated", "cause", cause)
		}
	}
	return e.done, e.err
}

func (e *Engine) fail(err error) {
	if e.err == nil {
		e.err = err
	}
	e.done = true
}

// Step delivers one action and resumes the program until it yields again.
func (e *Engine) Step(ctx context.Context, action domain.Action) (bool, error) {
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
			e.sched.Kill()
			return true, err
		}
	}
	if err := e.channel.SendAction(action); err != nil {
		e.fail(err)
		e.sched.Kill()
		return true, err
	}

	e.done = e.sched.Resume()
	return e.settle()
}

// Observation returns the bytes emitted during the last resumption.
func (e *Engine) Observation() []byte {
	return e.obs
}

// Reset discards the program context and re-runs the entry routine on the same
// conduits and recording. Only stack-confined programs can be reset this way.
func (e *Engine) Reset(ctx context.Context) error {
	if e.closed {
		return domain.ErrSessionEnded
	}
	if !ports.IsStackConfined(e.program) {
		return domain.ErrNotStackConfined
	}
	if e.err != nil {
		return e.err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	e.sched.Kill()
	if err := e.drain(); err != nil {
		e.fail(err)
		return err
	}

	e.done = false
	if _, err := e.launch(); err != nil {
		return err
	}
	return nil
}

// drain drops unread actions and any output left by the old context.
func (e *Engine) drain() error {
	if n := e.channel.Pending(); n > 0 {
		if _, err := io.CopyN(io.Discard, e.channel.Input(), int64(n)); err != nil {
			return &domain.IOError{Resource: "conduit", Err: err}
		}
	}
	if err := e.channel.Settle(); err != nil {
		return err
	}
	e.channel.TakeObservation()
	return nil
}

// Done reports whether the program reached its exit path.
func (e *Engine) Done() bool {
	return e.done
}

// Err returns the fatal error that ended the session, if any.
func (e *Engine) Err() error {
	return e.err
}

// Recorder exposes the recording counters.
func (e *Engine) Recorder() *ttyrec.Recorder {
	return e.rec
}

// Close kills the program context and closes the conduits. It is idempotent.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	e.done = true

	if e.sched != nil {
		e.sched.Kill()
	}
	var err error
	if e.channel != nil {
		err = e.channel.Close()
	}
	// A broken recording was already reported by the step that hit it.
	if e.rec != nil && e.rec.Err() == nil {
		err = errors.Join(err, e.rec.Flush())
	}
	return err
}
