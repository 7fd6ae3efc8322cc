package mcp

import (
	"context"
	"testing"

	"github.com/aretw0/ttystep"
	"github.com/aretw0/ttystep/pkg/adapters/memory"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/programs"
	"github.com/aretw0/ttystep/pkg/session"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()
	mgr := session.NewManager(memory.NewStore(),
		session.WithRecordingDir(t.TempDir()),
		session.WithDefaults(ttystep.WithStrategy(domain.StrategyInPlace)),
	)
	t.Cleanup(func() { _ = mgr.Close(context.Background()) })
	return NewServer(mgr)
}

func TestServer_Tools(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()
	req := mcp.CallToolRequest{}

	started, err := s.handleStart(ctx, req, StartArgs{Program: "echo"})
	require.NoError(t, err)
	assert.Equal(t, programs.EchoPrompt, started.Observation)
	assert.False(t, started.Done)

	stepped, err := s.handleStep(ctx, req, StepArgs{SessionID: started.SessionID, Action: "k"})
	require.NoError(t, err)
	assert.Equal(t, "k", stepped.Observation)
	assert.Equal(t, 1, stepped.Steps)
	assert.Equal(t, []byte("k"), stepped.ObservationRaw)

	high, err := s.handleStep(ctx, req, StepArgs{SessionID: started.SessionID, Action: "233"})
	require.NoError(t, err)
	assert.Equal(t, []byte{0xe9}, high.ObservationRaw)

	_, err = s.handleStep(ctx, req, StepArgs{SessionID: started.SessionID, Action: ""})
	assert.Error(t, err)

	reset, err := s.handleReset(ctx, req, SessionArgs{SessionID: started.SessionID})
	require.NoError(t, err)
	assert.Equal(t, programs.EchoPrompt, reset.Observation)
	assert.Equal(t, 1, reset.Resets)

	list, err := s.handleList(ctx, req, struct{}{})
	require.NoError(t, err)
	require.Len(t, list.Sessions, 1)

	info, err := s.handleEnd(ctx, req, SessionArgs{SessionID: started.SessionID})
	require.NoError(t, err)
	assert.True(t, info.Ended)

	info, err = s.handleEnd(ctx, req, SessionArgs{SessionID: started.SessionID})
	require.NoError(t, err, "ending twice is harmless")
	assert.True(t, info.Ended)

	_, err = s.handleStep(ctx, req, StepArgs{SessionID: started.SessionID, Action: "k"})
	assert.ErrorIs(t, err, domain.ErrSessionEnded)
}

func TestServer_StartRejectsUnsafeReset(t *testing.T) {
	s := newTestServer(t)
	ctx := context.Background()

	_, err := s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{Program: "demo"})
	assert.ErrorIs(t, err, domain.ErrNotStackConfined)

	_, err = s.handleStart(ctx, mcp.CallToolRequest{}, StartArgs{Program: "echo", Strategy: "clone"})
	assert.ErrorIs(t, err, domain.ErrUnknownStrategy)
}
