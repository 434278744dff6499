package session

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/coverline/engine/internal/agent/model"
	errx "github.com/coverline/engine/internal/core/error"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupStore(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, *RedisSessionStore) {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewRedisSessionStore(rdb, ttl)
}

func TestCreateAndGet(t *testing.T) {
	_, store := setupStore(t, time.Minute)
	ctx := context.Background()

	created, err := store.Create(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, model.StageIntroduction, created.Stage)
	assert.Equal(t, model.InterestNone, created.InterestLevel)

	got, err := store.Get(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, "s-1", got.SessionID)
	assert.Equal(t, model.StageIntroduction, got.Stage)
}

func TestGet_NotFoundIsDistinctOutcome(t *testing.T) {
	_, store := setupStore(t, time.Minute)

	_, err := store.Get(context.Background(), "never-created")
	require.Error(t, err)
	assert.ErrorIs(t, err, errx.ErrSessionNotFound)
}

func TestSave_RoundTripsAllFields(t *testing.T) {
	_, store := setupStore(t, time.Minute)
	ctx := context.Background()

	state := model.NewSessionState("s-2")
	state.Stage = model.StageInformationCollection
	state.InterestLevel = model.InterestHigh
	state.Profile.Age = 34
	state.Profile.Purpose = "protect my family"
	state.Collected.FullName = "Jane Doe"
	state.Collected.PhoneNumber = "+15550001234"
	state.AwaitingConfirmation = true
	state.ConfirmationAttempts = 2
	state.MessageCount = 7
	state.ContextSummary = "discussed term life"

	require.NoError(t, store.Save(ctx, state))

	got, err := store.Get(ctx, "s-2")
	require.NoError(t, err)
	assert.Equal(t, model.StageInformationCollection, got.Stage)
	assert.Equal(t, model.InterestHigh, got.InterestLevel)
	assert.Equal(t, 34, got.Profile.Age)
	assert.Equal(t, "Jane Doe", got.Collected.FullName)
	assert.True(t, got.AwaitingConfirmation)
	assert.Equal(t, 2, got.ConfirmationAttempts)
	assert.Equal(t, 7, got.MessageCount)
	assert.Equal(t, "discussed term life", got.ContextSummary)
}

func TestSave_ResetsTTL(t *testing.T) {
	mr, store := setupStore(t, time.Minute)
	ctx := context.Background()

	state, err := store.Create(ctx, "s-3")
	require.NoError(t, err)

	mr.FastForward(45 * time.Second)
	require.NoError(t, store.Save(ctx, state))
	mr.FastForward(45 * time.Second)

	// 90s total elapsed but the second save reset the 60s TTL.
	_, err = store.Get(ctx, "s-3")
	assert.NoError(t, err)
}

func TestExpiredSessionBecomesNotFound(t *testing.T) {
	mr, store := setupStore(t, time.Minute)
	ctx := context.Background()

	_, err := store.Create(ctx, "s-4")
	require.NoError(t, err)

	mr.FastForward(2 * time.Minute)

	_, err = store.Get(ctx, "s-4")
	assert.ErrorIs(t, err, errx.ErrSessionNotFound)
}

func TestDelete(t *testing.T) {
	_, store := setupStore(t, time.Minute)
	ctx := context.Background()

	_, err := store.Create(ctx, "s-5")
	require.NoError(t, err)
	require.NoError(t, store.Delete(ctx, "s-5"))

	_, err = store.Get(ctx, "s-5")
	assert.ErrorIs(t, err, errx.ErrSessionNotFound)
}
