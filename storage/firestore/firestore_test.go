//go:build integration
// +build integration

package firestore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mihaimyh/gorenew/pkg/renewal"
)

const (
	testProjectID = "test-project"
	emulatorHost  = "localhost:8080"
)

func setupFirestoreClient(t *testing.T) *firestore.Client {
	t.Helper()

	// Set emulator environment variable
	if os.Getenv("FIRESTORE_EMULATOR_HOST") == "" {
		os.Setenv("FIRESTORE_EMULATOR_HOST", emulatorHost)
	}

	ctx := context.Background()
	client, err := firestore.NewClient(ctx, testProjectID)
	if err != nil {
		t.Skipf("Firestore emulator not available: %v", err)
	}

	return client
}

// setupTestStorage uses a unique collection per test run
func setupTestStorage(t *testing.T, client *firestore.Client) *Storage {
	t.Helper()
	storage, err := New(client, Config{
		SubscriptionsCollection: fmt.Sprintf("test_subs_%s_%d", t.Name(), time.Now().UnixNano()),
		ClockCollection:         "test_clock",
	})
	require.NoError(t, err)
	return storage
}

func testSubscription(id, owner, name string) *renewal.Subscription {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &renewal.Subscription{
		ID:        id,
		OwnerID:   owner,
		Name:      name,
		Cost:      decimal.RequireFromString("9.99"),
		Currency:  "EUR",
		StartDate: renewal.Date(2023, time.January, 31),
		Period:    renewal.Quarterly,
		Status:    renewal.CancelledOn(renewal.Date(2024, time.January, 31)),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil, Config{})
	assert.Error(t, err)
}

func TestStorage_GetPutSubscription(t *testing.T) {
	client := setupFirestoreClient(t)
	defer client.Close()
	storage := setupTestStorage(t, client)
	ctx := context.Background()

	_, err := storage.GetSubscription(ctx, "missing")
	assert.True(t, errors.Is(err, renewal.ErrSubscriptionNotFound), "got %v", err)

	sub := testSubscription("sub1", "user1", "Netflix")
	require.NoError(t, storage.PutSubscription(ctx, sub))

	retrieved, err := storage.GetSubscription(ctx, "sub1")
	require.NoError(t, err)
	assert.Equal(t, sub.Name, retrieved.Name)
	assert.Equal(t, sub.Period, retrieved.Period)
	assert.Equal(t, sub.Status, retrieved.Status)
	assert.True(t, sub.StartDate.Equal(retrieved.StartDate))
	assert.True(t, sub.Cost.Equal(retrieved.Cost))
}

func TestStorage_ListAndDelete(t *testing.T) {
	client := setupFirestoreClient(t)
	defer client.Close()
	storage := setupTestStorage(t, client)
	ctx := context.Background()

	require.NoError(t, storage.PutSubscription(ctx, testSubscription("a", "user1", "Spotify")))
	require.NoError(t, storage.PutSubscription(ctx, testSubscription("b", "user1", "Netflix")))
	require.NoError(t, storage.PutSubscription(ctx, testSubscription("c", "user2", "Gym")))

	subs, err := storage.ListSubscriptions(ctx, "user1")
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "Netflix", subs[0].Name)
	assert.Equal(t, "Spotify", subs[1].Name)

	require.NoError(t, storage.DeleteSubscription(ctx, "a"))
	assert.ErrorIs(t, storage.DeleteSubscription(ctx, "a"), renewal.ErrSubscriptionNotFound)

	subs, err = storage.ListSubscriptions(ctx, "user1")
	require.NoError(t, err)
	assert.Len(t, subs, 1)
}

func TestStorage_Now(t *testing.T) {
	client := setupFirestoreClient(t)
	defer client.Close()
	storage := setupTestStorage(t, client)

	serverTime, err := storage.Now(context.Background())
	require.NoError(t, err)

	// Should be within a few seconds of local time
	diff := time.Since(serverTime)
	if diff < 0 {
		diff = -diff
	}
	assert.Less(t, diff, 5*time.Second, "Server time should be close to local time")
	assert.Equal(t, time.UTC, serverTime.Location())
}
