package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/ttystep/pkg/adapters/memory"
	"github.com/aretw0/ttystep/pkg/domain"
	"github.com/aretw0/ttystep/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunSessionStoreContract(t, store)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	info := &domain.SessionInfo{ID: "s1", Steps: 1}
	require.NoError(t, store.Save(ctx, info))
	info.Steps = 99

	loaded, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, loaded.Steps)

	loaded.Steps = 7
	again, err := store.Load(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, again.Steps)
}
