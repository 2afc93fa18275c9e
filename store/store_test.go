package store_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanda-protocol/tanda-collector/store"
	"github.com/tanda-protocol/tanda-collector/types"
)

var logger = log.NewLogger(os.Stdout, log.LevelOption(zerolog.ErrorLevel))

func setupStore(t *testing.T) *store.Store {
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })
	return st
}

func TestAppendAndQueryRecords(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()

	key, err := store.DeriveKey("secret-credential", "alice")
	require.NoError(t, err)

	for i, amount := range []uint64{100_000, 250_000} {
		encrypted, err := store.EncryptAmount(key, amount)
		require.NoError(t, err)

		err = st.AppendRecord(ctx, types.PaymentRecord{
			ID:              string(rune('a' + i)),
			Contributor:     "alice",
			CircleID:        "circle-7",
			Round:           uint64(i + 1),
			EncryptedAmount: encrypted,
			PaymentHash:     store.PaymentHash("commit:alice", "circle-7", uint64(i+1)),
			AnonymityScore:  40 + i,
			CreatedAt:       time.Now().Add(time.Duration(i) * time.Second),
		})
		require.NoError(t, err)
	}

	// another contributor's record must not leak into alice's history
	require.NoError(t, st.AppendRecord(ctx, types.PaymentRecord{
		ID: "z", Contributor: "bob", CircleID: "circle-7", Round: 1,
		EncryptedAmount: "x", PaymentHash: "y", CreatedAt: time.Now(),
	}))

	records, err := st.QueryRecords(ctx, "alice")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "a", records[0].ID)
	assert.Equal(t, "b", records[1].ID)

	amount, err := store.DecryptAmount(key, records[0].EncryptedAmount)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), amount)
}

func TestDecryptWithWrongKey(t *testing.T) {
	key, err := store.DeriveKey("correct-credential", "alice")
	require.NoError(t, err)

	encrypted, err := store.EncryptAmount(key, 123_456)
	require.NoError(t, err)

	wrongKey, err := store.DeriveKey("wrong-credential", "alice")
	require.NoError(t, err)

	_, err = store.DecryptAmount(wrongKey, encrypted)
	require.ErrorIs(t, err, types.ErrDecryption)

	// same credential, different contributor, still a different key
	otherKey, err := store.DeriveKey("correct-credential", "bob")
	require.NoError(t, err)

	_, err = store.DecryptAmount(otherKey, encrypted)
	require.ErrorIs(t, err, types.ErrDecryption)
}

func TestPaymentHash(t *testing.T) {
	first := store.PaymentHash("commit:alice", "circle-7", 3)
	second := store.PaymentHash("commit:alice", "circle-7", 3)
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	assert.NotEqual(t, first, store.PaymentHash("commit:alice", "circle-7", 4))
	assert.NotEqual(t, first, store.PaymentHash("commit:bob", "circle-7", 3))
}

func TestRetryQueueScheduling(t *testing.T) {
	st := setupStore(t)
	ctx := context.Background()
	now := time.Now()

	entry := types.RetryEntry{
		Request: types.CollectionRequest{
			ID:             "req-1",
			Contributor:    "alice",
			CircleID:       "circle-7",
			Round:          1,
			RequiredAmount: 100_000,
			Priority:       types.PrioritySpeed,
			MaxRetries:     3,
		},
		Attempts:      1,
		NextAttemptAt: now.Add(time.Hour),
		BaseDelay:     time.Minute,
		Multiplier:    2,
		MaxDelay:      time.Hour,
	}
	require.NoError(t, st.EnqueueRetry(ctx, entry))

	// not eligible before its scheduled time
	due, err := st.DueRetries(ctx, now)
	require.NoError(t, err)
	assert.Empty(t, due)

	due, err = st.DueRetries(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, "req-1", due[0].Request.ID)
	assert.Equal(t, 1, due[0].Attempts)
	assert.Equal(t, time.Minute, due[0].BaseDelay)
	assert.Equal(t, uint64(100_000), due[0].Request.RequiredAmount)

	// re-enqueueing the same request replaces the entry
	entry.Attempts = 2
	require.NoError(t, st.EnqueueRetry(ctx, entry))

	depth, err := st.RetryQueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, depth)

	due, err = st.DueRetries(ctx, now.Add(2*time.Hour))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].Attempts)

	require.NoError(t, st.DeleteRetry(ctx, "req-1"))
	depth, err = st.RetryQueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestNextRoundSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	st, err := store.Open(path, logger)
	require.NoError(t, err)

	round, err := st.NextRound(ctx, "circle-7")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), round)

	round, err = st.NextRound(ctx, "circle-7")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), round)

	// independent counter per circle
	round, err = st.NextRound(ctx, "circle-8")
	require.NoError(t, err)
	assert.Equal(t, uint64(1), round)

	require.NoError(t, st.Close())

	st, err = store.Open(path, logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	round, err = st.NextRound(ctx, "circle-7")
	require.NoError(t, err)
	assert.Equal(t, uint64(3), round)
}

func TestBackoffDelay(t *testing.T) {
	base := time.Minute

	assert.Equal(t, time.Minute, types.BackoffDelay(base, 2, time.Hour, 0))
	assert.Equal(t, 2*time.Minute, types.BackoffDelay(base, 2, time.Hour, 1))
	assert.Equal(t, 4*time.Minute, types.BackoffDelay(base, 2, time.Hour, 2))

	// capped at the maximum delay
	assert.Equal(t, time.Hour, types.BackoffDelay(base, 2, time.Hour, 10))
}
