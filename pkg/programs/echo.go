package programs

import (
	"fmt"

	"github.com/aretw0/ttystep/pkg/ports"
)

// EchoPrompt precedes every line read by Echo.
const EchoPrompt = "echo> "

// Echo repeats each line it reads. All of its state lives in Main.
type Echo struct{}

// StackConfined marks Echo as safe for in-place reset.
func (Echo) StackConfined() bool { return true }

// Main echoes keystrokes until ^D, numbering the lines.
func (Echo) Main(tty ports.Terminal) error {
	lines := 0
	tty.PutString(EchoPrompt)
	for {
		c, err := tty.ReadByte()
		if err != nil {
			return err
		}
		switch c {
		case 0x04:
			fmt.Fprintf(tty, "\r\n%d lines\r\n", lines)
			return nil
		case '\r', '\n':
			lines++
			fmt.Fprintf(tty, "\r\n[%d]\r\n", lines)
			tty.PutString(EchoPrompt)
		default:
			tty.PutChar(c)
		}
	}
}
