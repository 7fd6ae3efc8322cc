package domain

import (
	"errors"
	"fmt"
)

// ErrSessionDone is returned when Step is called after the program reached its exit path.
var ErrSessionDone = errors.New("session is done; reset or end it")

// ErrSessionEnded is returned by any operation on a session that was already ended.
var ErrSessionEnded = errors.New("session ended")

// ErrSessionNotFound is returned when a session ID cannot be found in the store.
var ErrSessionNotFound = errors.New("session not found")

// ErrNotStackConfined is returned when in-place reset is requested for a program
// that keeps state outside its own call stack.
var ErrNotStackConfined = errors.New("program is not stack-confined; in-place reset is unsafe")

// ErrUnknownProgram is returned when a program name is not registered.
var ErrUnknownProgram = errors.New("unknown program")

// ErrUnknownStrategy is returned when a reset strategy name is not recognized.
var ErrUnknownStrategy = errors.New("unknown reset strategy")

// SetupError reports a resource that could not be acquired at start or reset.
type SetupError struct {
	Resource string
	Err      error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("setup %s: %v", e.Resource, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }

// IOError reports a mid-session I/O failure. It is fatal for the session.
type IOError struct {
	Resource string
	Err      error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s i/o: %v", e.Resource, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

// ProgramExit records that the wrapped program left through its exit path.
// Err is set when the entry routine returned an error of its own.
type ProgramExit struct {
	Status int
	Err    error
}

func (e *ProgramExit) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("program exited with status %d: %v", e.Status, e.Err)
	}
	return fmt.Sprintf("program exited with status %d", e.Status)
}

func (e *ProgramExit) Unwrap() error { return e.Err }

// ProgramPanic records that the wrapped program crashed.
type ProgramPanic struct {
	Value any
}

func (e *ProgramPanic) Error() string {
	return fmt.Sprintf("program panicked: %v", e.Value)
}

// IsFatal reports whether err is an engine failure, as opposed to the wrapped
// program's own termination, which is contained and surfaces only as done.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	var exit *ProgramExit
	var crash *ProgramPanic
	return !errors.As(err, &exit) && !errors.As(err, &crash)
}
