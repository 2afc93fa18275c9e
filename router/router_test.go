package router_test

import (
	"os"
	"testing"
	"time"

	"cosmossdk.io/log"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tanda-protocol/tanda-collector/router"
	"github.com/tanda-protocol/tanda-collector/types"
)

var logger = log.NewLogger(os.Stdout, log.LevelOption(zerolog.ErrorLevel))

func testChains() []types.ChainSpec {
	return []types.ChainSpec{
		{Name: "ethereum", PrivacyRating: 45, Connections: []types.ChainID{"polygon", "solana", "midnight"}},
		{Name: "polygon", PrivacyRating: 60, Connections: []types.ChainID{"solana", "midnight"}},
		{Name: "solana", PrivacyRating: 55},
		{Name: "midnight", PrivacyRating: 95},
	}
}

func testFees() []types.FeeSpec {
	return []types.FeeSpec{
		{From: "ethereum", To: "polygon", Fee: 3000},
		{From: "ethereum", To: "solana", Fee: 4000},
		{From: "ethereum", To: "midnight", Fee: 5000},
		{From: "polygon", To: "solana", Fee: 2000},
		{From: "polygon", To: "midnight", Fee: 2500},
	}
}

func testRouter(t *testing.T) *router.Router {
	graph, err := router.NewGraph(testChains(), testFees())
	require.NoError(t, err)

	cfg := types.RouterConfig{
		MaxIntermediateHops: 2,
		PerHopConfirmation:  types.Duration(30 * time.Second),
		PrivacyBaseScore:    50,
		PrivacyHopWeight:    15,
	}
	return router.New(logger, graph, cfg, 1)
}

// every hop of a returned route is a direct connection and the hop count
// stays within the bound
func TestFindRouteHopsAreConnected(t *testing.T) {
	r := testRouter(t)
	graph := r.Graph()

	chains := graph.Chains()
	for _, source := range chains {
		for _, target := range chains {
			if source == target {
				continue
			}

			route, err := r.FindOptimalRoute(source, target, 1_000_000)
			require.NoError(t, err, "no route from %s to %s", source, target)

			path := route.Chains()
			for i := 0; i < len(path)-1; i++ {
				assert.True(t, graph.Connected(path[i], path[i+1]),
					"hop %s -> %s is not a direct connection", path[i], path[i+1])
			}
			assert.LessOrEqual(t, route.Hops, 3)
			assert.Equal(t, len(route.Intermediates)+1, route.Hops)
			assert.GreaterOrEqual(t, route.PrivacyScore, 0)
			assert.LessOrEqual(t, route.PrivacyScore, 100)
		}
	}
}

// identical lookups return the identical cached route
func TestFindRouteCached(t *testing.T) {
	r := testRouter(t)

	first, err := r.FindOptimalRoute("ethereum", "midnight", 500_000)
	require.NoError(t, err)

	second, err := r.FindOptimalRoute("ethereum", "midnight", 500_000)
	require.NoError(t, err)

	require.Same(t, first, second)
}

// under the speed priority a direct route always wins over one with
// intermediates
func TestSpeedPriorityPrefersDirect(t *testing.T) {
	r := testRouter(t)

	route, err := r.FindRoute("ethereum", "midnight", 1_000_000, types.PrioritySpeed)
	require.NoError(t, err)

	assert.Equal(t, 1, route.Hops)
	assert.Empty(t, route.Intermediates)
}

func TestFindRouteSameChain(t *testing.T) {
	r := testRouter(t)

	_, err := r.FindRoute("ethereum", "ethereum", 1_000_000, types.PrioritySpeed)
	require.ErrorIs(t, err, types.ErrNoRoute)
}

func TestFindRouteUnknownChain(t *testing.T) {
	r := testRouter(t)

	_, err := r.FindRoute("dogecoin", "midnight", 1_000_000, types.PrioritySpeed)
	require.ErrorIs(t, err, types.ErrUnknownChain)
}

func TestFindRouteNoPath(t *testing.T) {
	chains := []types.ChainSpec{
		{Name: "ethereum", PrivacyRating: 45},
		{Name: "midnight", PrivacyRating: 95},
	}
	graph, err := router.NewGraph(chains, nil)
	require.NoError(t, err)

	r := router.New(logger, graph, types.RouterConfig{
		MaxIntermediateHops: 2,
		PerHopConfirmation:  types.Duration(30 * time.Second),
	}, 1)

	_, err = r.FindRoute("ethereum", "midnight", 1_000_000, types.PrioritySpeed)
	require.ErrorIs(t, err, types.ErrNoRoute)
}

func TestEstimateRouteCost(t *testing.T) {
	r := testRouter(t)

	route, err := r.FindRoute("ethereum", "polygon", 1_000_000, types.PrioritySpeed)
	require.NoError(t, err)
	require.Equal(t, 1, route.Hops)

	cost := r.EstimateRouteCost(route, 1_000_000)
	require.Len(t, cost.Hops, 1)

	// configured bridge fee plus the 0.1% ad-valorem surcharge
	assert.Equal(t, uint64(3000), cost.Hops[0].BridgeFee)
	assert.Equal(t, uint64(1000), cost.Hops[0].Surcharge)
	assert.Equal(t, uint64(4000), cost.Total)
}

func TestFindMultipleRoutes(t *testing.T) {
	r := testRouter(t)

	set, err := r.FindMultipleRoutes("ethereum", "midnight", 1_000_000)
	require.NoError(t, err)

	require.NotNil(t, set.Fastest)
	require.NotNil(t, set.Cheapest)
	require.NotNil(t, set.MostPrivate)
	assert.LessOrEqual(t, len(set.Alternatives), 3)

	// the speed pick is direct, the privacy pick favors mixing depth
	assert.Equal(t, 1, set.Fastest.Hops)
	assert.GreaterOrEqual(t, set.MostPrivate.Hops, set.Fastest.Hops)

	graph := r.Graph()
	for _, alt := range set.Alternatives {
		path := alt.Chains()
		for i := 0; i < len(path)-1; i++ {
			assert.True(t, graph.Connected(path[i], path[i+1]))
		}
	}
}

func TestGraphRejectsUndeclaredChains(t *testing.T) {
	chains := []types.ChainSpec{
		{Name: "ethereum", Connections: []types.ChainID{"atlantis"}},
	}
	_, err := router.NewGraph(chains, nil)
	require.Error(t, err)

	_, err = router.NewGraph(testChains(), []types.FeeSpec{{From: "ethereum", To: "atlantis", Fee: 1}})
	require.Error(t, err)
}
