//go:build !linux && !darwin && !freebsd && !netbsd && !openbsd

package termmode

import "golang.org/x/term"

func disableCanonEcho(fd int) error {
	_, err := term.MakeRaw(fd)
	return err
}
