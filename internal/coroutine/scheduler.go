// Package coroutine runs a blocking routine on its own goroutine and hands
// control back and forth with its driver, one transfer pair at a time.
package coroutine

import (
	"runtime"
	"sync"

	"github.com/aretw0/ttystep/pkg/domain"
)

// Scheduler owns one program context.
//
// The driver and the program never run at the same time: control moves over
// unbuffered channels, so a send only completes once the other side is parked
// waiting for it.
type Scheduler struct {
	entry func(*Yielder)

	resumeCh   chan struct{}
	yieldCh    chan bool
	killCh     chan struct{}
	finishedCh chan struct{}

	mu       sync.Mutex
	started  bool
	done     bool
	err      error
	killOnce sync.Once
}

// Yielder is the program-side handle of a Scheduler.
type Yielder struct {
	s *Scheduler
}

// New prepares a scheduler for entry. Nothing runs until Start.
func New(entry func(*Yielder)) *Scheduler {
	return &Scheduler{
		entry:      entry,
		resumeCh:   make(chan struct{}),
		yieldCh:    make(chan bool),
		killCh:     make(chan struct{}),
		finishedCh: make(chan struct{}),
	}
}

// Start launches the entry routine and blocks until it first yields or
// terminates.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		panic("coroutine: already started")
	}
	s.started = true
	s.mu.Unlock()

	go s.run()
	return s.wait()
}

// Resume transfers control into the program context and blocks until it
// yields again. Resuming a finished context is a contract violation.
func (s *Scheduler) Resume() bool {
	s.mu.Lock()
	if !s.started || s.done {
		s.mu.Unlock()
		panic(domain.ErrSessionDone)
	}
	s.mu.Unlock()

	s.resumeCh <- struct{}{}
	return s.wait()
}

func (s *Scheduler) wait() bool {
	done := <-s.yieldCh
	if done {
		s.mu.Lock()
		s.done = true
		s.mu.Unlock()
	}
	return done
}

func (s *Scheduler) run() {
	defer close(s.finishedCh)
	defer func() {
		if r := recover(); r != nil {
			s.fail(&domain.ProgramPanic{Value: r})
		}
		// Final handoff. Nobody is listening once the context was killed.
		select {
		case s.yieldCh <- true:
		case <-s.killCh:
		}
	}()

	s.entry(&Yielder{s: s})
}

func (s *Scheduler) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err == nil {
		s.err = err
	}
}

// Done reports whether the program context has terminated.
func (s *Scheduler) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.done
}

// Err reports why the program context terminated: a *domain.ProgramExit, a
// *domain.ProgramPanic, the error passed to Fail, or nil for a plain return.
func (s *Scheduler) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Kill terminates a suspended program context and waits for its goroutine.
// It is safe to call at any time and more than once.
func (s *Scheduler) Kill() {
	s.killOnce.Do(func() {
		close(s.killCh)
	})

	s.mu.Lock()
	started := s.started
	s.done = true
	s.mu.Unlock()

	if started {
		<-s.finishedCh
	}
}

// Yield hands control to the driver and parks until resumed. A true done
// tells the driver the program has finished; such a context is never resumed.
// Yield returns true when the context was killed while parked; the caller must
// then unwind (see Unwind).
func (y *Yielder) Yield(done bool) (killed bool) {
	s := y.s
	select {
	case s.yieldCh <- done:
	case <-s.killCh:
		return true
	}

	if done {
		<-s.killCh
		return true
	}

	select {
	case <-s.resumeCh:
		return false
	case <-s.killCh:
		return true
	}
}

// Fail records err as the termination cause and unwinds the program context.
func (y *Yielder) Fail(err error) {
	y.s.fail(err)
	runtime.Goexit()
}

// Exit terminates the program context with the given status.
func (y *Yielder) Exit(status int) {
	y.Fail(&domain.ProgramExit{Status: status})
}

// Unwind terminates the program context without recording a cause. Hooks call
// it after Yield reports a kill.
func (y *Yielder) Unwind() {
	runtime.Goexit()
}
