package oracle

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tanda-protocol/tanda-collector/types"
)

var _ Oracle = (*Mock)(nil)

// Mock is a deterministic in-memory oracle used in tests and local
// development. Balances are registered per contributor and chain; proofs and
// commitments are derived strings rather than real cryptographic material.
type Mock struct {
	mu       sync.Mutex
	balances map[string]uint64 // commitment -> balance
	invalid  map[string]bool
	failing  bool
}

func NewMock() *Mock {
	return &Mock{
		balances: map[string]uint64{},
		invalid:  map[string]bool{},
	}
}

// Fund registers a balance for a contributor on a chain and returns the
// wallet proof a contributor would supply for it.
func (m *Mock) Fund(contributor string, chain types.ChainID, balance uint64) WalletProof {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.balances[mockCommitment(contributor, chain)] = balance
	return WalletProof{
		Chain: chain,
		Proof: fmt.Sprintf("proof:%s:%s", contributor, chain),
	}
}

// Invalidate marks a proof as failing verification.
func (m *Mock) Invalidate(proof WalletProof) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.invalid[proof.Proof] = true
}

// SetFailing makes every oracle call return a transport error, simulating an
// unreachable proving service.
func (m *Mock) SetFailing(failing bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failing = failing
}

func (m *Mock) VerifyWalletProof(ctx context.Context, proof WalletProof) (WalletVerification, error) {
	if err := m.checkUp(ctx); err != nil {
		return WalletVerification{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.invalid[proof.Proof] || !strings.HasPrefix(proof.Proof, "proof:") {
		return WalletVerification{Valid: false}, nil
	}

	commitment := "commit:" + strings.TrimPrefix(proof.Proof, "proof:")
	if _, ok := m.balances[commitment]; !ok {
		return WalletVerification{Valid: false}, nil
	}
	return WalletVerification{Valid: true, Commitment: commitment}, nil
}

func (m *Mock) VerifyBalanceSufficiency(ctx context.Context, commitment string, requiredAmount uint64) (Sufficiency, error) {
	if err := m.checkUp(ctx); err != nil {
		return Sufficiency{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	balance, ok := m.balances[commitment]
	if !ok {
		return Sufficiency{}, errors.New("unknown commitment")
	}

	contribution := balance
	if contribution > requiredAmount {
		contribution = requiredAmount
	}
	return Sufficiency{
		Sufficient:   balance >= requiredAmount,
		Contribution: contribution,
	}, nil
}

func (m *Mock) VerifyPaymentProof(ctx context.Context, proof string) (bool, error) {
	if err := m.checkUp(ctx); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	return !m.invalid[proof], nil
}

func (m *Mock) checkUp(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failing {
		return errors.New("oracle unreachable")
	}
	return nil
}

func mockCommitment(contributor string, chain types.ChainID) string {
	return fmt.Sprintf("commit:%s:%s", contributor, chain)
}
