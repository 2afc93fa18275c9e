// Package oracle defines the boundary to the external zero-knowledge proof
// service. Proofs and commitments are opaque to the collection engine; the
// oracle is authoritative and side-effect-free.
package oracle

import (
	"context"

	"github.com/tanda-protocol/tanda-collector/types"
)

// WalletProof is a contributor-supplied proof of wallet ownership and
// balance on one chain. The proof bytes are opaque to this engine.
type WalletProof struct {
	Chain types.ChainID `json:"chain"`
	Proof string        `json:"proof"`
}

// WalletVerification is the oracle's answer to a wallet proof: whether it is
// valid and, if so, the balance commitment derived from it.
type WalletVerification struct {
	Valid      bool   `json:"valid"`
	Commitment string `json:"commitment"`
}

// Sufficiency is the oracle's answer to a range/sufficiency query: whether
// the committed balance covers the required amount, and how much the chain
// can contribute without revealing the exact balance.
type Sufficiency struct {
	Sufficient   bool   `json:"sufficient"`
	Contribution uint64 `json:"contribution"`
}

// Oracle verifies wallet, balance, and payment proofs. Implementations must
// honor context cancellation; a hung chain oracle must not block the queue.
type Oracle interface {
	// VerifyWalletProof checks a wallet ownership proof and derives its
	// balance commitment.
	VerifyWalletProof(ctx context.Context, proof WalletProof) (WalletVerification, error)

	// VerifyBalanceSufficiency checks how much of the required amount the
	// committed balance can contribute.
	VerifyBalanceSufficiency(ctx context.Context, commitment string, requiredAmount uint64) (Sufficiency, error)

	// VerifyPaymentProof checks a completed payment proof.
	VerifyPaymentProof(ctx context.Context, proof string) (bool, error)
}
