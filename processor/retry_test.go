package processor_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanda-protocol/tanda-collector/types"
)

// a retry entry for a contributor who connects wallets later succeeds on
// replay and leaves the queue
func TestRetryRecoversAfterWalletInit(t *testing.T) {
	f := setupTest(t)
	ctx := context.Background()

	result, err := f.proc.CollectPayment(ctx, request("alice", 1*token, false))
	require.NoError(t, err)
	require.True(t, result.RetryScheduled)

	fundContributor(t, f, "alice", "cred")

	// base delay is 10ms; wait until the entry is due
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.proc.ProcessRetryQueue(ctx))

	depth, err := f.store.RetryQueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)

	history, err := f.proc.GetPaymentHistory(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, history.Records, 1)
}

// a persistently failing request is re-enqueued with incremented attempts
// until MaxRetries, then dropped
func TestRetryExhaustion(t *testing.T) {
	f := setupTest(t)
	ctx := context.Background()

	req := request("ghost", 1*token, false)
	req.MaxRetries = 2

	result, err := f.proc.CollectPayment(ctx, req)
	require.NoError(t, err)
	require.True(t, result.RetryScheduled)

	// first replay fails again and re-enqueues (attempts 1 -> 2)
	time.Sleep(20 * time.Millisecond)
	require.NoError(t, f.proc.ProcessRetryQueue(ctx))

	due, err := f.store.DueRetries(ctx, time.Now().Add(time.Minute))
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, 2, due[0].Attempts)

	// second replay exhausts the budget and the entry is removed
	time.Sleep(30 * time.Millisecond)
	require.NoError(t, f.proc.ProcessRetryQueue(ctx))

	depth, err := f.store.RetryQueueDepth(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, depth)
}

func TestPaymentHistorySummary(t *testing.T) {
	f := setupTest(t)
	ctx := context.Background()
	fundContributor(t, f, "alice", "cred")

	req := request("alice", 1*token, true)
	_, err := f.proc.CollectPayment(ctx, req)
	require.NoError(t, err)

	req.ID = "req-alice-2"
	req.Round = 2
	req.RequiredAmount = 2 * token
	_, err = f.proc.CollectPayment(ctx, req)
	require.NoError(t, err)

	// without a credential the records stay opaque
	history, err := f.proc.GetPaymentHistory(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, history.Records, 2)
	assert.Nil(t, history.Summary)
	for _, rec := range history.Records {
		assert.NotEmpty(t, rec.EncryptedAmount)
		assert.Len(t, rec.PaymentHash, 64)
	}

	// the initialization credential decrypts the amounts
	history, err = f.proc.GetPaymentHistory(ctx, "alice", "cred")
	require.NoError(t, err)
	require.NotNil(t, history.Summary)
	assert.Equal(t, 2, history.Summary.Count)
	assert.Equal(t, uint64(3*token), history.Summary.TotalAmount)
	assert.Greater(t, history.Summary.AverageAnonymity, 0.0)

	_, err = f.proc.GetPaymentHistory(ctx, "alice", "wrong")
	require.ErrorIs(t, err, types.ErrDecryption)

	history, err = f.proc.GetPaymentHistory(ctx, "nobody", "")
	require.NoError(t, err)
	assert.Empty(t, history.Records)
}
