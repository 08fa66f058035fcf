package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

func TestStorage_Now(t *testing.T) {
	client := setupTestRedis(t)
	defer client.Close()

	storage, err := New(client, DefaultConfig())
	require.NoError(t, err)

	ctx := context.Background()

	t.Run("get server time", func(t *testing.T) {
		serverTime, err := storage.Now(ctx)
		require.NoError(t, err)

		// Should be within a few seconds of local time
		diff := time.Since(serverTime)
		if diff < 0 {
			diff = -diff
		}
		assert.Less(t, diff, 5*time.Second, "Server time should be close to local time")
	})

	t.Run("server time is UTC", func(t *testing.T) {
		serverTime, err := storage.Now(ctx)
		require.NoError(t, err)
		assert.Equal(t, time.UTC, serverTime.Location())
	})

	t.Run("manager takes today from redis", func(t *testing.T) {
		mgr, err := renewal.NewManager(storage, nil)
		require.NoError(t, err)

		serverTime, err := storage.Now(ctx)
		require.NoError(t, err)
		assert.Equal(t, renewal.DateOf(serverTime), mgr.Today(ctx))
	})
}

func TestStorage_Now_Unavailable(t *testing.T) {
	client := setupTestRedis(t)
	storage, err := New(client, DefaultConfig())
	require.NoError(t, err)
	require.NoError(t, storage.Close())

	_, err = storage.Now(context.Background())
	assert.Error(t, err)
}
