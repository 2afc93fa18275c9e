package processor

import (
	"github.com/tanda-protocol/tanda-collector/types"
)

// anonymityScore rates how well a collection resists linkage back to the
// contributor: more distinct chains, more private routes, and deeper mixing
// all raise the score. Bounded to [0, 100].
func anonymityScore(breakdown map[types.ChainID]uint64, routes []*types.Route) int {
	chainComponent := len(breakdown) * 25
	if chainComponent > 50 {
		chainComponent = 50
	}

	routeComponent := 0
	if len(routes) > 0 {
		sum := 0
		for _, r := range routes {
			sum += r.PrivacyScore
		}
		routeComponent = (sum / len(routes)) * 40 / 100
	}

	mixingDepth := 0
	for _, r := range routes {
		mixingDepth += len(r.Intermediates)
	}
	mixingComponent := mixingDepth * 5
	if mixingComponent > 10 {
		mixingComponent = 10
	}

	score := chainComponent + routeComponent + mixingComponent
	if score > 100 {
		score = 100
	}
	if score < 0 {
		score = 0
	}
	return score
}
