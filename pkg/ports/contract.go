package ports

import (
	"context"
	"testing"
	"time"

	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunSessionStoreContract runs a suite of tests to verify that a SessionStore
// implementation adheres to the defined interface contract.
func RunSessionStoreContract(t *testing.T, store SessionStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	newInfo := func(id string) *domain.SessionInfo {
		now := time.Now().UTC().Truncate(time.Second)
		return &domain.SessionInfo{
			ID:        id,
			Program:   "demo",
			Strategy:  domain.StrategyIsolated,
			Recording: id + ".ttyrec",
			StartedAt: now,
			UpdatedAt: now,
		}
	}

	t.Run("Save and Load", func(t *testing.T) {
		info := newInfo(sessionID)
		info.Steps = 42
		info.Done = true

		err := store.Save(ctx, info)
		require.NoError(t, err, "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, info.Program, loaded.Program)
		assert.Equal(t, 42, loaded.Steps)
		assert.True(t, loaded.Done)
		assert.True(t, info.StartedAt.Equal(loaded.StartedAt))
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		err := store.Save(ctx, newInfo(sessionID))
		require.NoError(t, err)

		err = store.Delete(ctx, sessionID)
		require.NoError(t, err, "Delete should not return error")

		_, err = store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, newInfo(id1))
		_ = store.Save(ctx, newInfo(id2))

		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}
