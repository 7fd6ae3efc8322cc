//go:build linux

package conduit

import (
	"errors"
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

type rebinding struct {
	stdin  *os.File
	stdout *os.File
}

func rebindStdio(in, out *os.File) (*rebinding, error) {
	origIn, err := unix.Dup(0)
	if err != nil {
		return nil, fmt.Errorf("dup stdin: %w", err)
	}
	origOut, err := unix.Dup(1)
	if err != nil {
		unix.Close(origIn)
		return nil, fmt.Errorf("dup stdout: %w", err)
	}
	unix.CloseOnExec(origIn)
	unix.CloseOnExec(origOut)

	if err := unix.Dup3(int(in.Fd()), 0, 0); err != nil {
		unix.Close(origIn)
		unix.Close(origOut)
		return nil, fmt.Errorf("rebind stdin: %w", err)
	}
	if err := unix.Dup3(int(out.Fd()), 1, 0); err != nil {
		unix.Dup3(origIn, 0, 0)
		unix.Close(origIn)
		unix.Close(origOut)
		return nil, fmt.Errorf("rebind stdout: %w", err)
	}

	return &rebinding{
		stdin:  os.NewFile(uintptr(origIn), "stdin"),
		stdout: os.NewFile(uintptr(origOut), "stdout"),
	}, nil
}

func (r *rebinding) restore() error {
	return errors.Join(
		unix.Dup3(int(r.stdin.Fd()), 0, 0),
		unix.Dup3(int(r.stdout.Fd()), 1, 0),
		r.stdin.Close(),
		r.stdout.Close(),
	)
}
