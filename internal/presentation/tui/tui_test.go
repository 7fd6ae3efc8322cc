package tui_test

import (
	"bytes"
	"testing"

	"github.com/aretw0/ttystep/internal/presentation/tui"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrintBanner(t *testing.T) {
	var buf bytes.Buffer
	tui.PrintBanner(&buf, "0.1.0")
	assert.Contains(t, buf.String(), "v0.1.0")
}

func TestRenderer(t *testing.T) {
	render := tui.NewRenderer()
	out, err := render("# Recording\n\n| records | 3 |\n|---|---|\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Recording")
}

func TestStyles(t *testing.T) {
	assert.Contains(t, tui.Success("ok"), "ok")
	assert.Contains(t, tui.Warn("careful"), "careful")
	assert.Contains(t, tui.Faint("quiet"), "quiet")
}
