package router

import (
	"cosmossdk.io/math"

	"github.com/tanda-protocol/tanda-collector/types"
)

// surchargeRate is the 0.1% ad-valorem portion charged per bridge hop on top
// of the configured bridge fee.
var surchargeRate = math.LegacyNewDecWithPrec(1, 3)

// EstimateRouteCost returns the total fee and per-hop breakdown for moving
// amount along a route. Used for acceptance checks and display, not for
// route discovery.
func (r *Router) EstimateRouteCost(route *types.Route, amount uint64) types.RouteCost {
	surcharge := surchargeRate.MulInt(math.NewIntFromUint64(amount)).TruncateInt().Uint64()

	chains := route.Chains()
	cost := types.RouteCost{
		Hops: make([]types.HopCost, 0, len(chains)-1),
	}
	for i := 0; i < len(chains)-1; i++ {
		hop := types.HopCost{
			From:      chains[i],
			To:        chains[i+1],
			BridgeFee: r.graph.Fee(chains[i], chains[i+1]),
			Surcharge: surcharge,
		}
		cost.Hops = append(cost.Hops, hop)
		cost.Total += hop.BridgeFee + hop.Surcharge
	}
	return cost
}

// estimateFee sums bridge fees plus the ad-valorem surcharge across all hops.
func (r *Router) estimateFee(route *types.Route, amount uint64) uint64 {
	return r.EstimateRouteCost(route, amount).Total
}
