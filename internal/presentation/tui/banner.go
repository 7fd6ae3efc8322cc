package tui

import (
	"fmt"
	"io"

	"github.com/muesli/termenv"
)

// PrintBanner writes the ttystep banner followed by the version.
func PrintBanner(w io.Writer, version string) {
	p := termenv.EnvColorProfile()
	lines := []struct {
		text  string
		color string
	}{
		{"  _   _            _             ", "#818cf8"},
		{" | |_| |_ _  _ ___| |_ ___ _ __  ", "#a78bfa"},
		{" |  _|  _| || (_-<  _/ -_) '_ \\ ", "#c084fc"},
		{"  \\__|\\__|\\_, /__/\\__\\___| .__/ ", "#e879f9"},
		{"          |__/            |_|    ", "#f472b6"},
	}

	fmt.Fprintln(w)
	for _, l := range lines {
		fmt.Fprintln(w, termenv.String(l.text).Foreground(p.Color(l.color)))
	}
	fmt.Fprintln(w, termenv.String("  v"+version).Faint())
	fmt.Fprintln(w)
}

// Success renders s in green.
func Success(s string) string {
	return termenv.String(s).Foreground(termenv.EnvColorProfile().Color("#4ade80")).String()
}

// Warn renders s in amber.
func Warn(s string) string {
	return termenv.String(s).Foreground(termenv.EnvColorProfile().Color("#fbbf24")).String()
}

// Faint renders s dimmed.
func Faint(s string) string {
	return termenv.String(s).Faint().String()
}
