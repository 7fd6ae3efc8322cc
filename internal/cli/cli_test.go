package cli_test

import (
	"bytes"
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/internal/cli"
	"github.com/aretw0/ttystep/pkg/adapters/memory"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/programs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoSession(t *testing.T, recording string, extra ...ttystep.Option) []ttystep.Option {
	t.Helper()
	return append([]ttystep.Option{
		ttystep.WithProgram("echo"),
		ttystep.WithStrategy(domain.StrategyInPlace),
		ttystep.WithRecording(recording),
	}, extra...)
}

func TestPlay_EchoUntilDone(t *testing.T) {
	rec := filepath.Join(t.TempDir(), "play.ttyrec")
	var out bytes.Buffer

	info, err := cli.Play(context.Background(), cli.PlayOptions{
		In:         strings.NewReader("hi\r\x04ignored"),
		Out:        &out,
		TerminalFD: -1,
		Session:    echoSession(t, rec),
	})
	require.NoError(t, err)
	assert.Equal(t, 4, info.Steps)
	assert.True(t, info.Done)
	assert.True(t, info.Ended)
	assert.Equal(t, programs.EchoPrompt+"hi\r\n[1]\r\n"+programs.EchoPrompt+"\r\n1 lines\r\n", out.String())
}

func TestPlay_InputExhausted(t *testing.T) {
	rec := filepath.Join(t.TempDir(), "play.ttyrec")
	var out bytes.Buffer

	info, err := cli.Play(context.Background(), cli.PlayOptions{
		In:         strings.NewReader("ab"),
		Out:        &out,
		TerminalFD: -1,
		Session:    echoSession(t, rec),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, info.Steps)
	assert.True(t, info.Ended)
	assert.Equal(t, programs.EchoPrompt+"ab", out.String())
}

func TestRandomPlay_Episodes(t *testing.T) {
	rec := filepath.Join(t.TempDir(), "rand.ttyrec")
	var out bytes.Buffer

	stats, err := cli.RandomPlay(context.Background(), cli.RandomOptions{
		Episodes: 3,
		MaxSteps: 20,
		Seed:     7,
		Out:      &out,
		Session:  echoSession(t, rec, ttystep.WithRecordActions(true)),
	})
	require.NoError(t, err)
	assert.Equal(t, 3, stats.Episodes)
	assert.Equal(t, 3*(len(cli.DefaultPrelude)+20), stats.Steps)
	assert.Equal(t, 2, stats.Session.Resets)
	assert.Greater(t, stats.StepsPerSecond(), 0.0)

	report, err := cli.Inspect(rec)
	require.NoError(t, err)
	assert.Equal(t, stats.Steps, report.ActionRecords)
	for _, a := range report.Actions[len(cli.DefaultPrelude):20] {
		assert.Contains(t, domain.MoreAndCompass, a)
	}
}

func TestRandomPlay_DemoIsolated(t *testing.T) {
	rec := filepath.Join(t.TempDir(), "demo.ttyrec")

	stats, err := cli.RandomPlay(context.Background(), cli.RandomOptions{
		Episodes: 2,
		MaxSteps: 50,
		Seed:     1,
		Session: []ttystep.Option{
			ttystep.WithRecording(rec),
			helperImage("demo"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Episodes)
	assert.Equal(t, 1, stats.Session.Resets)
	assert.LessOrEqual(t, stats.Steps, 2*(len(cli.DefaultPrelude)+50))

	var out bytes.Buffer
	require.NoError(t, cli.Replay(context.Background(), &out, rec, 0))
	assert.Contains(t, out.String(), "Hello Agent, welcome to the dungeon!")
}

func TestInspect_Report(t *testing.T) {
	rec := filepath.Join(t.TempDir(), "inspect.ttyrec")
	_, err := cli.Play(context.Background(), cli.PlayOptions{
		In:         strings.NewReader("ok"),
		Out:        &bytes.Buffer{},
		TerminalFD: -1,
		Session:    echoSession(t, rec, ttystep.WithRecordActions(true)),
	})
	require.NoError(t, err)

	report, err := cli.Inspect(rec)
	require.NoError(t, err)
	assert.Equal(t, 5, report.Records)
	assert.Equal(t, 3, report.OutputRecords)
	assert.Equal(t, 2, report.ActionRecords)
	assert.Equal(t, int64(len(programs.EchoPrompt)+2), report.OutputBytes)
	assert.False(t, report.Truncated)

	var text bytes.Buffer
	report.WriteText(&text)
	assert.Contains(t, text.String(), "Records:    5 (3 output, 2 actions)")
	assert.Contains(t, report.Markdown(), "| Action records | 2 |")
	assert.Contains(t, report.Markdown(), "ok")
}

func TestSessionCommands(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Save(ctx, &domain.SessionInfo{ID: "abc", Program: "demo", Strategy: domain.StrategyIsolated, Steps: 3}))

	var out bytes.Buffer
	require.NoError(t, cli.ListSessions(ctx, &out, store))
	assert.Contains(t, out.String(), "abc")
	assert.Contains(t, out.String(), "live")

	out.Reset()
	require.NoError(t, cli.InspectSession(ctx, &out, store, "abc"))
	assert.Contains(t, out.String(), "Steps:      3")

	require.NoError(t, cli.RemoveSession(ctx, store, "abc"))
	assert.ErrorIs(t, cli.RemoveSession(ctx, store, "abc"), domain.ErrSessionNotFound)

	out.Reset()
	require.NoError(t, cli.ListSessions(ctx, &out, store))
	assert.Equal(t, "No sessions.\n", out.String())
}
