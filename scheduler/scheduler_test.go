package scheduler_test

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

	"github.com/tanda-protocol/tanda-collector/oracle"
	"github.com/tanda-protocol/tanda-collector/processor"
	"github.com/tanda-protocol/tanda-collector/router"
	"github.com/tanda-protocol/tanda-collector/scheduler"
	"github.com/tanda-protocol/tanda-collector/store"
	"github.com/tanda-protocol/tanda-collector/types"
	"github.com/tanda-protocol/tanda-collector/wallet"
)

const token = 1_000_000

var logger = log.NewLogger(os.Stdout, log.LevelOption(zerolog.ErrorLevel))

type fixture struct {
	sched *scheduler.Scheduler
	proc  *processor.Processor
	store *store.Store
	mock  *oracle.Mock
}

func setupTest(t *testing.T, circles []types.CircleSpec) *fixture {
	chains := []types.ChainSpec{
		{Name: "ethereum", PrivacyRating: 45, Connections: []types.ChainID{"midnight"}},
		{Name: "midnight", PrivacyRating: 95},
	}
	graph, err := router.NewGraph(chains, []types.FeeSpec{{From: "ethereum", To: "midnight", Fee: 5000}})
	require.NoError(t, err)

	rtr := router.New(logger, graph, types.RouterConfig{
		MaxIntermediateHops: 2,
		PerHopConfirmation:  types.Duration(30 * time.Second),
		PrivacyBaseScore:    50,
		PrivacyHopWeight:    15,
	}, 1)

	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	mock := oracle.NewMock()

	proc := processor.New(logger, types.ProcessorConfig{
		WorkerCount:        2,
		CallTimeout:        types.Duration(5 * time.Second),
		SettlementChain:    "midnight",
		PartialGracePeriod: types.Duration(72 * time.Hour),
		RetryBaseDelay:     types.Duration(10 * time.Millisecond),
		RetryMultiplier:    2,
		RetryMaxDelay:      types.Duration(time.Second),
		DefaultMaxRetries:  3,
	}, rtr, wallet.NewRegistry(), mock, st, nil)

	cfg := types.SchedulerConfig{
		RetrySweepInterval: types.Duration(50 * time.Millisecond),
		Circles:            circles,
	}
	return &fixture{
		sched: scheduler.New(logger, cfg, 2, 3, proc, st),
		proc:  proc,
		store: st,
		mock:  mock,
	}
}

func TestEnqueueRoundGeneratesRequests(t *testing.T) {
	circle := types.CircleSpec{
		ID:             "savings",
		RoundInterval:  types.Duration(time.Hour),
		RequiredAmount: 1 * token,
		Priority:       types.PrioritySpeed,
		Members:        []string{"alice", "bob"},
	}
	f := setupTest(t, []types.CircleSpec{circle})
	ctx := context.Background()

	jobs := make(chan types.CollectionRequest, 16)
	requests, err := f.sched.EnqueueRound(ctx, circle, jobs)
	require.NoError(t, err)
	require.Len(t, requests, 2)

	assert.Equal(t, "savings-1-alice", requests[0].ID)
	assert.Equal(t, uint64(1), requests[0].Round)
	assert.Equal(t, "circle:savings:round:1", requests[0].RecipientCommitment)
	assert.Equal(t, uint64(1*token), requests[0].RequiredAmount)
	assert.Equal(t, 3, requests[0].MaxRetries)
	assert.Equal(t, "bob", requests[1].Contributor)

	// rounds are monotonic per circle
	requests, err = f.sched.EnqueueRound(ctx, circle, jobs)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), requests[0].Round)
	assert.Equal(t, "savings-2-alice", requests[0].ID)
}

// round counters survive a restart: a fresh scheduler over the same store
// continues the sequence instead of regenerating earlier request ids
func TestRoundCounterDurable(t *testing.T) {
	circle := types.CircleSpec{
		ID:             "savings",
		RoundInterval:  types.Duration(time.Hour),
		RequiredAmount: 1 * token,
		Priority:       types.PrioritySpeed,
		Members:        []string{"alice"},
	}
	f := setupTest(t, []types.CircleSpec{circle})
	ctx := context.Background()

	jobs := make(chan types.CollectionRequest, 16)
	requests, err := f.sched.EnqueueRound(ctx, circle, jobs)
	require.NoError(t, err)
	require.Equal(t, uint64(1), requests[0].Round)

	restarted := scheduler.New(logger, types.SchedulerConfig{Circles: []types.CircleSpec{circle}}, 2, 3, f.proc, f.store)
	requests, err = restarted.EnqueueRound(ctx, circle, jobs)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), requests[0].Round)
	assert.Equal(t, "savings-2-alice", requests[0].ID)
}

func TestSchedulerRunsRounds(t *testing.T) {
	circle := types.CircleSpec{
		ID:             "savings",
		RoundInterval:  types.Duration(50 * time.Millisecond),
		RequiredAmount: 1 * token,
		Priority:       types.PriorityPrivacy,
		AllowPartial:   true,
		Members:        []string{"alice"},
	}
	f := setupTest(t, []types.CircleSpec{circle})

	proofs := []oracle.WalletProof{f.mock.Fund("alice", "midnight", 5*token)}
	_, err := f.proc.InitializeWalletConnections(context.Background(), "alice", "cred", proofs)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 300*time.Millisecond)
	defer cancel()
	f.sched.Start(ctx)

	result, ok := f.sched.Results.Load("savings-1-alice")
	require.True(t, ok)
	assert.True(t, result.Success)
	assert.Equal(t, uint64(1*token), result.TotalCollected)

	history, err := f.proc.GetPaymentHistory(context.Background(), "alice", "")
	require.NoError(t, err)
	assert.NotEmpty(t, history.Records)
}

// shutting down while a round ticker is firing must never send on the closed
// job channel; repeated tight start/stop cycles keep the race reachable
func TestStartShutdownWhileRoundsFire(t *testing.T) {
	circle := types.CircleSpec{
		ID:             "savings",
		RoundInterval:  types.Duration(time.Millisecond),
		RequiredAmount: 1 * token,
		Priority:       types.PrioritySpeed,
		AllowPartial:   true,
		Members:        []string{"alice", "bob"},
	}
	f := setupTest(t, []types.CircleSpec{circle})

	for i := 0; i < 100; i++ {
		ctx, cancel := context.WithTimeout(context.Background(), 3*time.Millisecond)
		f.sched.Start(ctx)
		cancel()
	}
}
