// Package wallet holds verified per-chain balance commitments for each
// contributor. Connections never store a plaintext balance, only the
// commitment the proof oracle derived plus a freshness timestamp.
package wallet

import (
	"sync"
	"time"

	"github.com/tanda-protocol/tanda-collector/types"
)

// Connection is one contributor's verified wallet on one chain.
type Connection struct {
	Contributor string        `json:"contributor"`
	Chain       types.ChainID `json:"chain"`
	Commitment  string        `json:"commitment"`
	VerifiedAt  time.Time     `json:"verified_at"`
}

// Registry maps contributor -> chain -> Connection. Writes replace the whole
// entry for a chain; reads return copies so callers never observe a write in
// progress.
type Registry struct {
	mu          sync.RWMutex
	connections map[string]map[types.ChainID]Connection
	credentials map[string][]byte // contributor -> record encryption key
}

func NewRegistry() *Registry {
	return &Registry{
		connections: map[string]map[types.ChainID]Connection{},
		credentials: map[string][]byte{},
	}
}

// Put creates or refreshes a contributor's connection for a chain.
func (r *Registry) Put(conn Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	chains, ok := r.connections[conn.Contributor]
	if !ok {
		chains = map[types.ChainID]Connection{}
		r.connections[conn.Contributor] = chains
	}
	chains[conn.Chain] = conn
}

// Connections returns all active connections for a contributor.
func (r *Registry) Connections(contributor string) []Connection {
	r.mu.RLock()
	defer r.mu.RUnlock()

	chains := r.connections[contributor]
	out := make([]Connection, 0, len(chains))
	for _, conn := range chains {
		out = append(out, conn)
	}
	return out
}

// SetRecordKey stores the contributor's derived record encryption key,
// registered when the contributor initializes their wallets.
func (r *Registry) SetRecordKey(contributor string, key []byte) {
	r.mu.Lock()
	defer r.mu.Unlock()

	k := make([]byte, len(key))
	copy(k, key)
	r.credentials[contributor] = k
}

// RecordKey returns the contributor's record encryption key, if registered.
func (r *Registry) RecordKey(contributor string) ([]byte, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.credentials[contributor]
	return key, ok
}
