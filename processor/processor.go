// Package processor implements the payment collection engine: it gathers a
// required amount from a contributor's chain balances using the router, and
// tracks partial fulfillment and retries.
package processor

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"cosmossdk.io/log"
	"github.com/google/uuid"

	"github.com/tanda-protocol/tanda-collector/collector"
	"github.com/tanda-protocol/tanda-collector/oracle"
	"github.com/tanda-protocol/tanda-collector/router"
	"github.com/tanda-protocol/tanda-collector/store"
	"github.com/tanda-protocol/tanda-collector/types"
	"github.com/tanda-protocol/tanda-collector/wallet"
)

// Processor owns the wallet connection registry and every collection result
// it produces. Collections for different contributors run concurrently;
// operations on a single contributor are serialized.
type Processor struct {
	logger   log.Logger
	cfg      types.ProcessorConfig
	router   *router.Router
	registry *wallet.Registry
	oracle   oracle.Oracle
	store    *store.Store
	metrics  *collector.PromMetrics

	locks *types.KeyedMutex
}

func New(
	logger log.Logger,
	cfg types.ProcessorConfig,
	rtr *router.Router,
	registry *wallet.Registry,
	orc oracle.Oracle,
	st *store.Store,
	metrics *collector.PromMetrics,
) *Processor {
	return &Processor{
		logger:   logger.With("component", "processor"),
		cfg:      cfg,
		router:   rtr,
		registry: registry,
		oracle:   orc,
		store:    st,
		metrics:  metrics,
		locks:    types.NewKeyedMutex(),
	}
}

// InitializeWalletConnections verifies the supplied per-chain wallet proofs
// and (re)writes the contributor's registry entries. A chain with an invalid
// proof is omitted; the call fails only if zero connections resulted. The
// credential is used to derive the contributor's record encryption key.
func (p *Processor) InitializeWalletConnections(
	ctx context.Context,
	contributor string,
	credential string,
	proofs []oracle.WalletProof,
) ([]wallet.Connection, error) {
	if contributor == "" {
		return nil, fmt.Errorf("%w: contributor must be set", types.ErrMalformedRequest)
	}

	p.locks.Lock(contributor)
	defer p.locks.Unlock(contributor)

	var connections []wallet.Connection
	for _, proof := range proofs {
		callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
		verification, err := p.oracle.VerifyWalletProof(callCtx, proof)
		cancel()
		if err != nil {
			p.logger.Debug("wallet proof verification failed", "contributor", contributor, "chain", proof.Chain, "err", err)
			continue
		}
		if !verification.Valid {
			p.logger.Debug("invalid wallet proof omitted", "contributor", contributor, "chain", proof.Chain)
			continue
		}

		conn := wallet.Connection{
			Contributor: contributor,
			Chain:       proof.Chain,
			Commitment:  verification.Commitment,
			VerifiedAt:  time.Now(),
		}
		p.registry.Put(conn)
		connections = append(connections, conn)
	}

	if len(connections) == 0 {
		return nil, types.ErrNoValidWallets
	}

	key, err := store.DeriveKey(credential, contributor)
	if err != nil {
		return nil, err
	}
	p.registry.SetRecordKey(contributor, key)

	p.logger.Info("wallet connections initialized", "contributor", contributor, "chains", len(connections))
	return connections, nil
}

// CollectPayment gathers the required round payment from the contributor's
// connected chains. Business-logic failures are reported inside the result;
// the returned error is reserved for malformed requests and unknown chains.
func (p *Processor) CollectPayment(ctx context.Context, req types.CollectionRequest) (types.CollectionResult, error) {
	if err := validateRequest(req); err != nil {
		return types.CollectionResult{}, err
	}

	p.locks.Lock(req.Contributor)
	defer p.locks.Unlock(req.Contributor)

	return p.collect(ctx, req, 0)
}

func validateRequest(req types.CollectionRequest) error {
	if req.ID == "" || req.Contributor == "" || req.CircleID == "" {
		return fmt.Errorf("%w: id, contributor and circle id must be set", types.ErrMalformedRequest)
	}
	if req.RequiredAmount == 0 {
		return fmt.Errorf("%w: required amount must be greater than zero", types.ErrMalformedRequest)
	}
	if req.MaxRetries < 0 {
		return fmt.Errorf("%w: max retries must not be negative", types.ErrMalformedRequest)
	}
	if !types.ValidPriority(req.Priority) {
		return fmt.Errorf("%w: unsupported priority %q", types.ErrMalformedRequest, req.Priority)
	}
	return nil
}

// collect runs one collection attempt. The caller must hold the
// contributor's lock. attempt is the number of attempts already made, so
// retries remain while attempt < req.MaxRetries.
func (p *Processor) collect(ctx context.Context, req types.CollectionRequest, attempt int) (types.CollectionResult, error) {
	start := time.Now()

	connections := p.registry.Connections(req.Contributor)
	if len(connections) == 0 {
		// Missing wallets are presumed transient: the contributor may simply
		// not have connected yet. Partial-tolerant requests skip the retry.
		result := p.failure(ctx, req, attempt, start, types.ErrContributorNotFound, !req.AllowPartial)
		return result, nil
	}

	p.orderConnections(connections)

	var (
		remaining          = req.RequiredAmount
		breakdown          = map[types.ChainID]uint64{}
		routes             []*types.Route
		verificationErrors int
	)

	for _, conn := range connections {
		if remaining == 0 {
			break
		}
		if err := ctx.Err(); err != nil {
			// a cancelled attempt never writes a record; collected funds are
			// discarded and the contributor is retried from zero
			return p.cancelled(req, start, err), nil
		}

		var route *types.Route
		if conn.Chain != p.cfg.SettlementChain {
			var err error
			route, err = p.router.FindRoute(conn.Chain, p.cfg.SettlementChain, remaining, req.Priority)
			if errors.Is(err, types.ErrUnknownChain) {
				return types.CollectionResult{}, err
			}
			if err != nil {
				p.logger.Debug("no route for chain contribution", "chain", conn.Chain, "err", err)
				continue
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
		sufficiency, err := p.oracle.VerifyBalanceSufficiency(callCtx, conn.Commitment, remaining)
		cancel()
		if err != nil {
			verificationErrors++
			p.logger.Debug("balance sufficiency check failed", "contributor", req.Contributor, "chain", conn.Chain, "err", err)
			continue
		}

		contribution := sufficiency.Contribution
		if contribution > remaining {
			contribution = remaining
		}
		if contribution == 0 {
			continue
		}

		breakdown[conn.Chain] += contribution
		remaining -= contribution
		if route != nil {
			routes = append(routes, route)
		}
	}

	collected := req.RequiredAmount - remaining

	switch {
	case remaining == 0:
		return p.complete(ctx, req, attempt, start, breakdown, routes, 0)

	case req.AllowPartial && collected > 0:
		return p.complete(ctx, req, attempt, start, breakdown, routes, remaining)

	default:
		cause := types.ErrInsufficientFunds
		if collected == 0 && verificationErrors > 0 {
			cause = types.ErrProofVerification
		}
		result := p.failure(ctx, req, attempt, start, cause, true)
		return result, nil
	}
}

// complete finalizes a full or partial collection: verifies the payment
// proof, persists the record, and builds the result. shortfall is zero for a
// fully satisfied collection.
func (p *Processor) complete(
	ctx context.Context,
	req types.CollectionRequest,
	attempt int,
	start time.Time,
	breakdown map[types.ChainID]uint64,
	routes []*types.Route,
	shortfall uint64,
) (types.CollectionResult, error) {
	if err := ctx.Err(); err != nil {
		return p.cancelled(req, start, err), nil
	}

	collected := req.RequiredAmount - shortfall
	paymentHash := store.PaymentHash(req.RecipientCommitment, req.CircleID, req.Round)

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
	valid, err := p.oracle.VerifyPaymentProof(callCtx, paymentHash)
	cancel()
	if err != nil || !valid {
		p.logger.Error("payment proof rejected", "request", req.ID, "err", err)
		result := p.failure(ctx, req, attempt, start, types.ErrProofVerification, true)
		return result, nil
	}

	score := anonymityScore(breakdown, routes)

	if err := p.persistRecord(ctx, req, collected, score); err != nil {
		p.logger.Error("unable to persist payment record", "request", req.ID, "err", err)
		result := p.failure(ctx, req, attempt, start, err, true)
		return result, nil
	}

	result := types.CollectionResult{
		RequestID:      req.ID,
		Status:         types.Success,
		Success:        true,
		TotalCollected: collected,
		Breakdown:      breakdown,
		AnonymityScore: score,
		Duration:       time.Since(start),
	}
	if shortfall > 0 {
		result.Status = types.PartialSuccess
		result.PartialPayment = true
		result.Shortfall = shortfall
		result.NextPaymentDue = time.Now().Add(p.cfg.PartialGracePeriod.Std())
	}

	if p.metrics != nil {
		p.metrics.IncCollections(req.CircleID, result.Status)
		p.metrics.ObserveAnonymityScore(score)
	}

	p.logger.Info("collection complete",
		"request", req.ID, "contributor", req.Contributor,
		"status", result.Status, "collected", collected, "shortfall", shortfall,
		"chains", len(breakdown), "anonymity", score)

	return result, nil
}

func (p *Processor) persistRecord(ctx context.Context, req types.CollectionRequest, amount uint64, score int) error {
	key, ok := p.registry.RecordKey(req.Contributor)
	if !ok {
		return fmt.Errorf("no record key registered for contributor %s", req.Contributor)
	}

	encrypted, err := store.EncryptAmount(key, amount)
	if err != nil {
		return err
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
	defer cancel()

	return p.store.AppendRecord(callCtx, types.PaymentRecord{
		ID:              uuid.NewString(),
		Contributor:     req.Contributor,
		CircleID:        req.CircleID,
		Round:           req.Round,
		EncryptedAmount: encrypted,
		PaymentHash:     store.PaymentHash(req.RecipientCommitment, req.CircleID, req.Round),
		AnonymityScore:  score,
		CreatedAt:       time.Now(),
	})
}

// failure builds a failed result and, when eligible is true and retries
// remain, schedules a retry entry with exponential backoff.
func (p *Processor) failure(
	ctx context.Context,
	req types.CollectionRequest,
	attempt int,
	start time.Time,
	cause error,
	eligible bool,
) types.CollectionResult {
	result := types.CollectionResult{
		RequestID: req.ID,
		Status:    types.FailedTerminal,
		Breakdown: map[types.ChainID]uint64{},
		Duration:  time.Since(start),
		Error:     cause.Error(),
	}

	if eligible && attempt < req.MaxRetries {
		delay := types.BackoffDelay(p.cfg.RetryBaseDelay.Std(), p.cfg.RetryMultiplier, p.cfg.RetryMaxDelay.Std(), attempt)
		entry := types.RetryEntry{
			Request:       req,
			Attempts:      attempt + 1,
			NextAttemptAt: time.Now().Add(delay),
			BaseDelay:     p.cfg.RetryBaseDelay.Std(),
			Multiplier:    p.cfg.RetryMultiplier,
			MaxDelay:      p.cfg.RetryMaxDelay.Std(),
		}

		callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
		err := p.store.EnqueueRetry(callCtx, entry)
		cancel()
		if err != nil {
			p.logger.Error("unable to schedule retry", "request", req.ID, "err", err)
		} else {
			result.Status = types.FailedRetryScheduled
			result.RetryScheduled = true
			p.logger.Info("retry scheduled",
				"request", req.ID, "attempt", entry.Attempts,
				"max", req.MaxRetries, "delay", delay, "err", cause)
		}
	}

	if p.metrics != nil {
		p.metrics.IncCollections(req.CircleID, result.Status)
		p.updateQueueDepth(ctx)
	}

	return result
}

func (p *Processor) cancelled(req types.CollectionRequest, start time.Time, cause error) types.CollectionResult {
	p.logger.Info("collection cancelled", "request", req.ID, "err", cause)
	return types.CollectionResult{
		RequestID: req.ID,
		Status:    types.FailedTerminal,
		Breakdown: map[types.ChainID]uint64{},
		Duration:  time.Since(start),
		Error:     cause.Error(),
	}
}

// orderConnections sorts by chain privacy rating, then freshness, then chain
// name for a stable order.
func (p *Processor) orderConnections(connections []wallet.Connection) {
	graph := p.router.Graph()
	sort.SliceStable(connections, func(i, j int) bool {
		pi, pj := graph.PrivacyRating(connections[i].Chain), graph.PrivacyRating(connections[j].Chain)
		if pi != pj {
			return pi > pj
		}
		if !connections[i].VerifiedAt.Equal(connections[j].VerifiedAt) {
			return connections[i].VerifiedAt.After(connections[j].VerifiedAt)
		}
		return connections[i].Chain < connections[j].Chain
	})
}

func (p *Processor) updateQueueDepth(ctx context.Context) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
	defer cancel()

	depth, err := p.store.RetryQueueDepth(callCtx)
	if err != nil {
		return
	}
	p.metrics.SetRetryQueueDepth(depth)
}
