package ttystep

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/aretw0/ttystep/internal/logging"
	"github.com/aretw0/ttystep/internal/runtime"
	"github.com/aretw0/ttystep/pkg/adapters/process"
	"github.com/aretw0/ttystep/pkg/adapters/pty"
	"github.com/aretw0/ttystep/pkg/conduit/termmode"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/aretw0/ttystep/pkg/programs"
	"github.com/aretw0/ttystep/pkg/registry"
	"github.com/aretw0/ttystep/pkg/ttyrec"
	"github.com/google/uuid"
)

// engine is what every strategy offers beyond ports.Stepper.
type engine interface {
	ports.Stepper
	Recorder() *ttyrec.Recorder
	Err() error
}

// Session is one wrapped program driven step by step.
// A Session has exactly one driver; only Info may be called concurrently.
type Session struct {
	opts   options
	engine engine
	file   *os.File
	mode   *termmode.Mode
	logger *slog.Logger

	endOnce sync.Once
	endErr  error

	mu   sync.RWMutex
	info domain.SessionInfo
}

// DefaultRegistry returns a registry holding the built-in programs.
func DefaultRegistry() *registry.Registry {
	reg := registry.NewRegistry()
	programs.Register(reg)
	return reg
}

// Start creates a session: it opens the recording, wires the engine for the
// selected strategy and runs the program up to its first yield.
func Start(ctx context.Context, opts ...Option) (*Session, error) {
	o := options{
		program:    DefaultProgram,
		strategy:   domain.StrategyIsolated,
		recording:  DefaultRecording,
		terminalFD: -1,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.id == "" {
		o.id = uuid.NewString()
	}
	if o.registry == nil {
		o.registry = DefaultRegistry()
	}
	if img, ok := o.images[o.program]; ok && o.image == nil {
		o.image = &img
	}
	if o.logger == nil {
		o.logger = logging.NewNop()
	}

	s := &Session{
		opts:   o,
		logger: o.logger.With("session_id", o.id, "program", o.program, "strategy", string(o.strategy)),
	}
	now := time.Now()
	s.info = domain.SessionInfo{
		ID:        o.id,
		Program:   o.program,
		Strategy:  o.strategy,
		Recording: o.recording,
		StartedAt: now,
		UpdatedAt: now,
	}

	if err := s.open(ctx); err != nil {
		s.release()
		return nil, err
	}

	s.logger.Info("Session started", "done", s.engine.Done())
	s.emit(ctx, s.opts.hooks.OnStart, domain.EventStart, 0, nil)
	return s, nil
}

func (s *Session) open(ctx context.Context) error {
	o := s.opts

	var program ports.Program
	if o.image == nil || o.strategy == domain.StrategyInPlace {
		p, err := o.registry.Lookup(o.program)
		if err != nil && o.strategy != domain.StrategyRelay {
			return err
		}
		program = p
	}

	switch o.strategy {
	case domain.StrategyIsolated, domain.StrategyRelay:
	case domain.StrategyInPlace:
		if !ports.IsStackConfined(program) {
			return fmt.Errorf("%w: %s", domain.ErrNotStackConfined, o.program)
		}
	default:
		return fmt.Errorf("%w: %q", domain.ErrUnknownStrategy, o.strategy)
	}

	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if o.appendMode {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}
	f, err := os.OpenFile(o.recording, flags, 0644)
	if err != nil {
		return &domain.SetupError{Resource: "recording", Err: err}
	}
	s.file = f

	if o.terminalFD >= 0 {
		mode, err := termmode.Capture(o.terminalFD)
		if err != nil {
			return &domain.SetupError{Resource: "terminal", Err: err}
		}
		s.mode = mode
	}

	eng, err := s.newEngine(program)
	if err != nil {
		return err
	}
	s.engine = eng

	done, err := eng.Start(ctx)
	if err != nil {
		return err
	}
	s.update(func(info *domain.SessionInfo) {
		info.Done = done
	})
	return nil
}

func (s *Session) newEngine(program ports.Program) (engine, error) {
	o := s.opts
	switch o.strategy {
	case domain.StrategyInPlace:
		return runtime.NewEngine(program, s.file,
			runtime.WithLogger(s.logger),
			runtime.WithDir(o.workDir),
			runtime.WithRecordActions(o.recordActions),
			runtime.WithStdioRebind(o.rebind),
		), nil

	case domain.StrategyRelay:
		if o.image == nil {
			return nil, &domain.SetupError{Resource: "image", Err: errors.New("relay strategy needs an image")}
		}
		img := *o.image
		if img.Dir == "" {
			img.Dir = o.workDir
		}
		return pty.New(img, s.file,
			pty.WithLogger(s.logger),
			pty.WithSettle(o.settle),
			pty.WithRecordActions(o.recordActions),
		), nil

	default:
		var img process.Image
		if o.image != nil {
			img = *o.image
		} else {
			self, err := process.SelfImage(o.program)
			if err != nil {
				return nil, &domain.SetupError{Resource: "image", Err: err}
			}
			img = self
		}
		if img.Dir == "" {
			img.Dir = o.workDir
		}
		return process.NewIsolated(img, s.file,
			process.WithLogger(s.logger),
			process.WithRecordActions(o.recordActions),
		), nil
	}
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.opts.id
}

// Step feeds one action and blocks until the program yields again. It returns
// true once the program has reached its exit path. A fatal failure also
// reports done, together with the error, and tears the session down.
func (s *Session) Step(ctx context.Context, action domain.Action) (bool, error) {
	if s.ended() {
		return true, domain.ErrSessionEnded
	}
	if s.engine.Done() {
		return true, domain.ErrSessionDone
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	start := time.Now()
	done, err := s.engine.Step(ctx, action)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return done, err
		}
		s.fatal(ctx, err)
		return true, err
	}

	s.update(func(info *domain.SessionInfo) {
		info.Steps++
		info.Done = done
	})
	evt := s.event(domain.EventStep, time.Since(start), nil)
	evt.Action = action
	if s.opts.hooks.OnStep != nil {
		s.opts.hooks.OnStep(ctx, evt)
	}
	return done, nil
}

// Observation returns the bytes the program emitted during the last transfer.
func (s *Session) Observation() []byte {
	if s.engine == nil {
		return nil
	}
	return s.engine.Observation()
}

// Done reports whether the program has reached its exit path.
func (s *Session) Done() bool {
	return s.ended() || s.engine.Done()
}

// Reset restores the program to its initial state and performs the first
// transfer; Observation then holds the initial screen. A failed reset is
// fatal: the session is torn down.
func (s *Session) Reset(ctx context.Context) error {
	if s.ended() {
		return domain.ErrSessionEnded
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	start := time.Now()
	if err := s.engine.Reset(ctx); err != nil {
		if errors.Is(err, domain.ErrNotStackConfined) {
			return err
		}
		s.fatal(ctx, err)
		return err
	}

	s.update(func(info *domain.SessionInfo) {
		info.Resets++
		info.Done = s.engine.Done()
	})
	s.logger.Info("Session reset")
	s.emit(ctx, s.opts.hooks.OnReset, domain.EventReset, time.Since(start), nil)
	return nil
}

// End terminates the engine, restores the terminal and closes the recording.
// It is idempotent and safe after a fatal failure.
func (s *Session) End() error {
	s.endOnce.Do(func() {
		s.endErr = s.release()
		s.update(func(info *domain.SessionInfo) {
			info.Ended = true
			info.Done = true
		})
		s.logger.Info("Session ended")
		s.emit(context.Background(), s.opts.hooks.OnEnd, domain.EventEnd, 0, nil)
	})
	return s.endErr
}

func (s *Session) fatal(ctx context.Context, err error) {
	s.logger.Error("Fatal session failure", "err", err)
	s.update(func(info *domain.SessionInfo) {
		info.Done = true
		info.LastError = err.Error()
	})
	s.emit(ctx, s.opts.hooks.OnFatal, domain.EventFatal, 0, err)
	s.End()
}

// release frees every resource in reverse acquisition order.
func (s *Session) release() error {
	var errs []error
	if s.engine != nil {
		errs = append(errs, s.engine.Close())
	}
	if s.mode != nil {
		errs = append(errs, s.mode.Restore())
	}
	if s.file != nil {
		err := s.file.Close()
		if errors.Is(err, os.ErrClosed) {
			err = nil
		}
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func (s *Session) ended() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info.Ended
}

func (s *Session) update(fn func(*domain.SessionInfo)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(&s.info)
	s.info.UpdatedAt = time.Now()
}

// Info returns a snapshot of the session's bookkeeping.
func (s *Session) Info() domain.SessionInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.info
}

// Records returns the number of records and payload bytes written so far.
func (s *Session) Records() (int, int64) {
	if s.engine == nil {
		return 0, 0
	}
	rec := s.engine.Recorder()
	return rec.Records(), rec.Bytes()
}

func (s *Session) event(typ domain.EventType, d time.Duration, err error) *domain.SessionEvent {
	records, bytes := s.Records()
	info := s.Info()
	return &domain.SessionEvent{
		EventBase: domain.EventBase{
			Timestamp: time.Now(),
			Type:      typ,
			SessionID: info.ID,
		},
		Program:  info.Program,
		Strategy: info.Strategy,
		Done:     info.Done,
		Output:   len(s.Observation()),
		Records:  records,
		Bytes:    bytes,
		Duration: d,
		Err:      err,
	}
}

func (s *Session) emit(ctx context.Context, hook func(context.Context, *domain.SessionEvent), typ domain.EventType, d time.Duration, err error) {
	if hook == nil {
		return
	}
	hook(ctx, s.event(typ, d, err))
}
