package router

import (
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/tanda-protocol/tanda-collector/types"
)

const (
	// hard cap on intermediates regardless of config, for cost control
	maxIntermediates = 2

	// bound on the random liquidity factor added to privacy scores
	liquidityFactorBound = 10

	// bound on the alternatives returned by FindMultipleRoutes
	maxAlternatives = 3
)

// Router discovers and scores multi-hop paths between chains. Route lookups
// are safe for unlimited concurrency; resolved routes are cached for the
// process lifetime keyed by (priority, source, target, amount).
type Router struct {
	logger log.Logger
	graph  *Graph
	cfg    types.RouterConfig

	cache sync.Map // cache key -> *types.Route

	rngMu sync.Mutex
	rng   *rand.Rand
}

func New(logger log.Logger, graph *Graph, cfg types.RouterConfig, seed int64) *Router {
	maxHops := cfg.MaxIntermediateHops
	if maxHops > maxIntermediates {
		maxHops = maxIntermediates
	}
	cfg.MaxIntermediateHops = maxHops

	return &Router{
		logger: logger.With("component", "router"),
		graph:  graph,
		cfg:    cfg,
		rng:    rand.New(rand.NewSource(seed)),
	}
}

// Graph returns the chain connectivity table the router operates on.
func (r *Router) Graph() *Graph {
	return r.graph
}

// FindRoute returns the best route from source to target under the given
// priority. Unknown chains fail fast; an unreachable target within the hop
// bound returns types.ErrNoRoute.
func (r *Router) FindRoute(source, target types.ChainID, amount uint64, priority types.RoutePriority) (*types.Route, error) {
	if !r.graph.Supported(source) {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownChain, source)
	}
	if !r.graph.Supported(target) {
		return nil, fmt.Errorf("%w: %s", types.ErrUnknownChain, target)
	}
	if source == target {
		return nil, fmt.Errorf("%w: source and target are both %s", types.ErrNoRoute, source)
	}
	if !types.ValidPriority(priority) {
		return nil, fmt.Errorf("unsupported route priority: %s", priority)
	}

	key := cacheKey(priority, source, target, amount)
	if cached, ok := r.cache.Load(key); ok {
		return cached.(*types.Route), nil
	}

	candidates := r.enumerate(source, target)
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w: %s -> %s", types.ErrNoRoute, source, target)
	}

	best := candidates[0]
	bestScore := r.score(best, amount, priority)
	for _, c := range candidates[1:] {
		// strict comparison keeps the first-enumerated route on ties
		if s := r.score(c, amount, priority); s > bestScore {
			best, bestScore = c, s
		}
	}

	r.logger.Debug("route resolved",
		"source", source, "target", target,
		"priority", priority, "hops", best.Hops, "score", bestScore)

	// concurrent identical lookups converge on one cached value
	actual, _ := r.cache.LoadOrStore(key, best)
	return actual.(*types.Route), nil
}

// FindOptimalRoute returns the fastest route between two chains.
func (r *Router) FindOptimalRoute(source, target types.ChainID, amount uint64) (*types.Route, error) {
	return r.FindRoute(source, target, amount, types.PrioritySpeed)
}

// FindOptimalPrivacyRoute returns the most private route between two chains.
func (r *Router) FindOptimalPrivacyRoute(source, target types.ChainID, amount uint64) (*types.Route, error) {
	return r.FindRoute(source, target, amount, types.PriorityPrivacy)
}

// FindMultipleRoutes returns the best route under each priority plus a
// bounded set of unselected alternatives, so callers can present
// speed/cost/privacy trade-offs.
func (r *Router) FindMultipleRoutes(source, target types.ChainID, amount uint64) (*types.RouteSet, error) {
	fastest, err := r.FindRoute(source, target, amount, types.PrioritySpeed)
	if err != nil {
		return nil, err
	}
	cheapest, err := r.FindRoute(source, target, amount, types.PriorityCost)
	if err != nil {
		return nil, err
	}
	private, err := r.FindRoute(source, target, amount, types.PriorityPrivacy)
	if err != nil {
		return nil, err
	}

	selected := map[string]bool{
		pathSignature(fastest):  true,
		pathSignature(cheapest): true,
		pathSignature(private):  true,
	}

	var alternatives []*types.Route
	for _, c := range r.enumerate(source, target) {
		if selected[pathSignature(c)] {
			continue
		}
		selected[pathSignature(c)] = true
		alternatives = append(alternatives, c)
		if len(alternatives) == maxAlternatives {
			break
		}
	}

	return &types.RouteSet{
		Fastest:      fastest,
		Cheapest:     cheapest,
		MostPrivate:  private,
		Alternatives: alternatives,
	}, nil
}

// enumerate generates candidate routes in deterministic order: the direct
// route first, then single intermediates in config chain order, then
// two-intermediate paths via bounded depth-first search.
func (r *Router) enumerate(source, target types.ChainID) []*types.Route {
	var candidates []*types.Route

	if r.graph.Connected(source, target) {
		candidates = append(candidates, r.newRoute(source, nil, target))
	}

	if r.cfg.MaxIntermediateHops >= 1 {
		for _, mid := range r.graph.Chains() {
			if mid == source || mid == target {
				continue
			}
			if r.graph.Connected(source, mid) && r.graph.Connected(mid, target) {
				candidates = append(candidates, r.newRoute(source, []types.ChainID{mid}, target))
			}
		}
	}

	if r.cfg.MaxIntermediateHops >= 2 {
		for _, first := range r.graph.Chains() {
			if first == source || first == target || !r.graph.Connected(source, first) {
				continue
			}
			for _, second := range r.graph.Chains() {
				if second == source || second == target || second == first {
					continue
				}
				if r.graph.Connected(first, second) && r.graph.Connected(second, target) {
					candidates = append(candidates, r.newRoute(source, []types.ChainID{first, second}, target))
				}
			}
		}
	}

	return candidates
}

func (r *Router) newRoute(source types.ChainID, intermediates []types.ChainID, target types.ChainID) *types.Route {
	hops := len(intermediates) + 1

	privacy := r.cfg.PrivacyBaseScore + len(intermediates)*r.cfg.PrivacyHopWeight + r.liquidityFactor()
	if privacy > 100 {
		privacy = 100
	}
	if privacy < 0 {
		privacy = 0
	}

	return &types.Route{
		ID:            uuid.NewString(),
		Source:        source,
		Intermediates: intermediates,
		Target:        target,
		Hops:          hops,
		EstimatedTime: time.Duration(hops) * r.cfg.PerHopConfirmation.Std(),
		PrivacyScore:  privacy,
	}
}

func (r *Router) liquidityFactor() int {
	r.rngMu.Lock()
	defer r.rngMu.Unlock()
	return r.rng.Intn(liquidityFactorBound)
}

// score rates a candidate under the given priority. Higher is better.
func (r *Router) score(route *types.Route, amount uint64, priority types.RoutePriority) float64 {
	switch priority {
	case types.PrioritySpeed:
		baseline := r.cfg.PerHopConfirmation.Std().Seconds()
		excess := route.EstimatedTime.Seconds() - baseline
		if excess < 0 {
			excess = 0
		}
		return 100 - 20*float64(route.Hops) - excess/10

	case types.PriorityCost:
		if amount == 0 {
			return 0
		}
		fee := r.estimateFee(route, amount)
		return 100 - float64(fee)*1000/float64(amount)

	case types.PriorityPrivacy:
		bonus := len(route.Intermediates) * 5
		if bonus > 15 {
			bonus = 15
		}
		return float64(route.PrivacyScore + bonus)
	}
	return 0
}

func cacheKey(priority types.RoutePriority, source, target types.ChainID, amount uint64) string {
	return fmt.Sprintf("%s|%s|%s|%d", priority, source, target, amount)
}

func pathSignature(route *types.Route) string {
	chains := route.Chains()
	parts := make([]string, len(chains))
	for i, c := range chains {
		parts[i] = string(c)
	}
	return strings.Join(parts, "->")
}
