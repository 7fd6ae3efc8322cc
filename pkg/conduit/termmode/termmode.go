// Package termmode saves and restores the controlling terminal's line
// discipline around a session.
package termmode

import (
	"sync"

	"golang.org/x/term"
)

// Mode is a captured terminal state. The zero value is a no-op.
type Mode struct {
	fd    int
	state *term.State
	once  sync.Once
	err   error
}

// Capture saves the state of fd and switches it to non-canonical, non-echo
// input. A descriptor that is not a terminal yields a no-op Mode.
func Capture(fd int) (*Mode, error) {
	if !term.IsTerminal(fd) {
		return &Mode{fd: -1}, nil
	}
	state, err := term.GetState(fd)
	if err != nil {
		return nil, err
	}
	if err := disableCanonEcho(fd); err != nil {
		return nil, err
	}
	return &Mode{fd: fd, state: state}, nil
}

// Active reports whether the mode controls a real terminal.
func (m *Mode) Active() bool {
	return m != nil && m.state != nil
}

// Restore puts the terminal back the way Capture found it. Only the first call
// has an effect.
func (m *Mode) Restore() error {
	if !m.Active() {
		return nil
	}
	m.once.Do(func() {
		m.err = term.Restore(m.fd, m.state)
	})
	return m.err
}
