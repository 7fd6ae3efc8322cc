package domain

import (
	"fmt"
	"strconv"
)

// Action is a single discrete input unit (one key value) fed to the program per step.
type Action byte

// Common key actions.
const (
	ActionNewline Action = '\n'
	ActionReturn  Action = '\r'
	ActionEscape  Action = 0x1b
	ActionYes     Action = 'y'
	ActionNo      Action = 'n'
	ActionQuit    Action = 'q'
)

// MoreAndCompass is the fixed action set used for random play: MORE followed by
// the compass directions and their long forms.
var MoreAndCompass = []Action{
	13, 'k', 'l', 'j', 'h', 'u', 'n', 'b', 'y',
	'K', 'L', 'J', 'H', 'U', 'N', 'B', 'Y',
}

// String renders printable actions as themselves and the rest as escaped bytes.
func (a Action) String() string {
	if a >= 0x20 && a < 0x7f {
		return string(rune(a))
	}
	return strconv.QuoteRune(rune(a))
}

// ParseAction accepts a decimal key code ("121"), a single character ("y") or a
// quoted escape ("\n").
func ParseAction(s string) (Action, error) {
	if s == "" {
		return 0, fmt.Errorf("empty action")
	}
	if n, err := strconv.ParseUint(s, 10, 8); err == nil && len(s) > 1 {
		return Action(n), nil
	}
	if len(s) == 1 {
		return Action(s[0]), nil
	}
	unq, err := strconv.Unquote(`"` + s + `"`)
	if err != nil || len(unq) != 1 {
		return 0, fmt.Errorf("invalid action %q", s)
	}
	return Action(unq[0]), nil
}
