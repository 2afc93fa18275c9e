package types

import "time"

// Route is a validated path from a source chain to a target chain through
// zero or more intermediate bridges. Every consecutive pair of chains along
// the path is a direct connection in the chain graph.
type Route struct {
	ID            string        `json:"id"`
	Source        ChainID       `json:"source"`
	Intermediates []ChainID     `json:"intermediates"`
	Target        ChainID       `json:"target"`
	Hops          int           `json:"hops"`
	EstimatedTime time.Duration `json:"estimated_time"`
	PrivacyScore  int           `json:"privacy_score"` // 0-100
}

// Chains returns the full ordered path including source and target.
func (r *Route) Chains() []ChainID {
	path := make([]ChainID, 0, len(r.Intermediates)+2)
	path = append(path, r.Source)
	path = append(path, r.Intermediates...)
	path = append(path, r.Target)
	return path
}

// RouteSet is the result of a multi-priority route query: the best route
// under each priority plus a bounded set of unselected alternatives.
type RouteSet struct {
	Fastest      *Route   `json:"fastest"`
	Cheapest     *Route   `json:"cheapest"`
	MostPrivate  *Route   `json:"most_private"`
	Alternatives []*Route `json:"alternatives"`
}

// HopCost is the fee charged for a single bridge hop.
type HopCost struct {
	From      ChainID `json:"from"`
	To        ChainID `json:"to"`
	BridgeFee uint64  `json:"bridge_fee"`
	Surcharge uint64  `json:"surcharge"` // ad-valorem portion
}

// RouteCost is a per-hop fee breakdown for moving amount along a route.
type RouteCost struct {
	Total uint64    `json:"total"`
	Hops  []HopCost `json:"hops"`
}
