package router

import (
	"fmt"

	"github.com/tanda-protocol/tanda-collector/types"
)

// Graph is the static chain connectivity table: which chains bridge
// directly, each chain's privacy rating, and the per-pair bridge fee.
// Loaded from config at startup, never mutated afterwards.
type Graph struct {
	order    []types.ChainID
	adjacent map[types.ChainID]map[types.ChainID]bool
	privacy  map[types.ChainID]int
	fees     map[string]uint64
}

// NewGraph builds the chain graph from config, validating that every
// connection and fee pair references a declared chain.
func NewGraph(chains []types.ChainSpec, fees []types.FeeSpec) (*Graph, error) {
	g := &Graph{
		adjacent: make(map[types.ChainID]map[types.ChainID]bool),
		privacy:  make(map[types.ChainID]int),
		fees:     make(map[string]uint64),
	}

	for _, c := range chains {
		if c.Name == "" {
			return nil, fmt.Errorf("chain name must be set in the config")
		}
		if _, ok := g.adjacent[c.Name]; ok {
			return nil, fmt.Errorf("duplicate chain in config (chain: %s)", c.Name)
		}
		g.order = append(g.order, c.Name)
		g.adjacent[c.Name] = make(map[types.ChainID]bool)
		g.privacy[c.Name] = c.PrivacyRating
	}

	for _, c := range chains {
		for _, peer := range c.Connections {
			if _, ok := g.adjacent[peer]; !ok {
				return nil, fmt.Errorf("connection references undeclared chain (chain: %s, peer: %s)", c.Name, peer)
			}
			// connections are bidirectional bridges
			g.adjacent[c.Name][peer] = true
			g.adjacent[peer][c.Name] = true
		}
	}

	for _, f := range fees {
		if _, ok := g.adjacent[f.From]; !ok {
			return nil, fmt.Errorf("fee references undeclared chain (chain: %s)", f.From)
		}
		if _, ok := g.adjacent[f.To]; !ok {
			return nil, fmt.Errorf("fee references undeclared chain (chain: %s)", f.To)
		}
		g.fees[feeKey(f.From, f.To)] = f.Fee
	}

	return g, nil
}

func feeKey(from, to types.ChainID) string {
	return string(from) + "|" + string(to)
}

// Supported returns true if the chain is a member of the supported set.
func (g *Graph) Supported(chain types.ChainID) bool {
	_, ok := g.adjacent[chain]
	return ok
}

// Connected returns true if a direct bridge exists between the two chains.
func (g *Graph) Connected(from, to types.ChainID) bool {
	return g.adjacent[from][to]
}

// Fee returns the configured bridge fee for a chain pair, checking the
// reverse direction when only one direction is configured.
func (g *Graph) Fee(from, to types.ChainID) uint64 {
	if fee, ok := g.fees[feeKey(from, to)]; ok {
		return fee
	}
	return g.fees[feeKey(to, from)]
}

// PrivacyRating returns the configured privacy rating for a chain.
func (g *Graph) PrivacyRating(chain types.ChainID) int {
	return g.privacy[chain]
}

// Chains returns all supported chains in config order.
func (g *Graph) Chains() []types.ChainID {
	out := make([]types.ChainID, len(g.order))
	copy(out, g.order)
	return out
}
