package ports

import "io"

// Terminal is the capability interface a wrapped program uses instead of the
// real terminal primitives. Every emission path ends up as one record.
type Terminal interface {
	io.Writer
	io.Reader
	io.ByteReader

	// PutChar emits a single character.
	PutChar(c byte) error
	// PutString emits a whole string as one unit.
	PutString(s string) error
	// Flush honors a flush request against the recording's own buffering.
	Flush() error
	// Exit terminates the program. It never returns.
	Exit(status int)
	// Dir is the working directory holding the program's resource files.
	Dir() string
}

// Program is an unmodified console program driven through a Terminal.
// Main is its entry routine; returning from it ends the session.
type Program interface {
	Main(tty Terminal) error
}

// ProgramFunc adapts a plain function to Program.
type ProgramFunc func(tty Terminal) error

// Main calls f(tty).
func (f ProgramFunc) Main(tty Terminal) error {
	return f(tty)
}

// StackConfined is implemented by programs whose whole state lives on the entry
// routine's stack, which makes in-place reset safe.
type StackConfined interface {
	StackConfined() bool
}

// IsStackConfined reports whether p declared itself stack-confined.
func IsStackConfined(p Program) bool {
	sc, ok := p.(StackConfined)
	return ok && sc.StackConfined()
}
