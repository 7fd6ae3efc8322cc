package programs

import (
	"fmt"
	"strings"

	"github.com/aretw0/ttystep/pkg/ports"
)

// StartPrompt is the first screen of the demo.
const StartPrompt = "Shall I pick a character's race, role, gender and alignment for you? [ynaq] "

const (
	clearScreen = "\x1b[H\x1b[2J"
	home        = "\x1b[H"
	clearLine   = "\x1b[K"
	more        = "--More--"
)

var room = []string{
	"-----------",
	"|.........|",
	"|.........|",
	"|.......>.|",
	"-----------",
}

// turns counts moves for the lifetime of the process. It is deliberately not
// reset when Main starts over, so Demo cannot be reset in place.
var turns int

// Demo is a one-room dungeon crawl. Reaching the staircase ends the game.
type Demo struct{}

type position struct{ x, y int }

var moves = map[byte]position{
	'h': {-1, 0}, 'l': {1, 0}, 'k': {0, -1}, 'j': {0, 1},
	'y': {-1, -1}, 'u': {1, -1}, 'b': {-1, 1}, 'n': {1, 1},
}

// Main runs the game until the player escapes or quits.
func (Demo) Main(tty ports.Terminal) error {
	role, err := pickCharacter(tty)
	if err != nil {
		return err
	}

	fmt.Fprintf(tty, "%sHello Agent, welcome to the dungeon!  You are a neutral %s.%s", clearScreen, role, more)
	if err := tty.Flush(); err != nil {
		return err
	}
	if _, err := tty.ReadByte(); err != nil {
		return err
	}

	pos := position{3, 2}
	msg := ""
	for {
		draw(tty, pos, msg)
		msg = ""

		c, err := tty.ReadByte()
		if err != nil {
			return err
		}

		switch {
		case c == 'q':
			if confirm(tty, "Really quit? [yn] (n) ") {
				tty.PutString(clearScreen + "Goodbye Agent.\r\n")
				tty.Exit(0)
			}
		case c == '\r' || c == '\n':
		default:
			d, ok := moves[lower(c)]
			if !ok {
				msg = fmt.Sprintf("Unknown command '%s'.", printable(c))
				continue
			}
			run := c != lower(c)
			for {
				next := position{pos.x + d.x, pos.y + d.y}
				if room[next.y][next.x] == '|' || room[next.y][next.x] == '-' {
					if !run {
						msg = "You bump into a wall."
					}
					break
				}
				pos = next
				turns++
				if !run || room[pos.y][pos.x] == '>' {
					break
				}
			}
		}

		if room[pos.y][pos.x] == '>' {
			fmt.Fprintf(tty, "%sThere is a staircase down here.  You descend and escape the dungeon in %d turns.\r\n", home, turns)
			return tty.Flush()
		}
	}
}

func pickCharacter(tty ports.Terminal) (string, error) {
	tty.PutString(clearScreen)
	tty.PutString(StartPrompt)
	if err := tty.Flush(); err != nil {
		return "", err
	}

	for {
		c, err := tty.ReadByte()
		if err != nil {
			return "", err
		}
		switch c {
		case 'y', 'a', '\r', '\n':
			tty.PutChar('y')
			return "human Valkyrie", nil
		case 'n':
			tty.PutString("\r\nPick a role: [v] Valkyrie [w] Wizard ")
			for {
				c, err := tty.ReadByte()
				if err != nil {
					return "", err
				}
				switch c {
				case 'v':
					return "human Valkyrie", nil
				case 'w':
					return "elven Wizard", nil
				}
			}
		case 'q':
			tty.PutChar('q')
			tty.PutString("\r\n")
			tty.Exit(0)
		}
	}
}

func draw(tty ports.Terminal, pos position, msg string) {
	tty.PutString(home)
	tty.PutString(msg + clearLine + "\r\n")
	for y, row := range room {
		for x := 0; x < len(row); x++ {
			if x == pos.x && y == pos.y {
				tty.PutChar('@')
			} else {
				tty.PutChar(row[x])
			}
		}
		tty.PutString("\r\n")
	}
	fmt.Fprintf(tty, "Agent the Stripling  Dlvl:1 $:0 HP:14(14) T:%d%s", turns, clearLine)
	tty.Flush()
}

func confirm(tty ports.Terminal, prompt string) bool {
	tty.PutString(home + prompt + clearLine)
	c, err := tty.ReadByte()
	return err == nil && c == 'y'
}

func lower(c byte) byte {
	if c >= 'A' && c <= 'Z' {
		return c + 'a' - 'A'
	}
	return c
}

func printable(c byte) string {
	if c >= 0x20 && c < 0x7f {
		return string(c)
	}
	return strings.Trim(fmt.Sprintf("%q", c), "'")
}
