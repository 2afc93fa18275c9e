// Package scheduler drives recurring per-circle collection rounds and the
// retry queue sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"cosmossdk.io/log"

	"github.com/tanda-protocol/tanda-collector/processor"
	"github.com/tanda-protocol/tanda-collector/store"
	"github.com/tanda-protocol/tanda-collector/types"
)

const jobQueueSize = 1024

// Scheduler enqueues one collection request per circle member each round and
// runs them through a worker pool. Per-contributor serialization lives in
// the processor, so a slow contributor never blocks the pool. Round counters
// are persisted so request ids stay unique across restarts.
type Scheduler struct {
	logger    log.Logger
	cfg       types.SchedulerConfig
	processor *processor.Processor
	store     *store.Store
	workers   int
	maxRetry  int

	// Results holds the latest collection result per request id, for the
	// status API.
	Results *types.ResultMap
}

func New(logger log.Logger, cfg types.SchedulerConfig, workers, defaultMaxRetries int, proc *processor.Processor, st *store.Store) *Scheduler {
	return &Scheduler{
		logger:    logger.With("component", "scheduler"),
		cfg:       cfg,
		processor: proc,
		store:     st,
		workers:   workers,
		maxRetry:  defaultMaxRetries,
		Results:   types.NewResultMap(),
	}
}

// Start runs the scheduler until the context is cancelled: one ticker per
// circle, a worker pool consuming the job queue, and a retry sweep ticker.
func (s *Scheduler) Start(ctx context.Context) {
	jobs := make(chan types.CollectionRequest, jobQueueSize)

	var workers sync.WaitGroup
	for i := 0; i < s.workers; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			s.worker(ctx, jobs)
		}()
	}

	var producers sync.WaitGroup
	for _, circle := range s.cfg.Circles {
		producers.Add(1)
		go func(circle types.CircleSpec) {
			defer producers.Done()
			s.runCircle(ctx, circle, jobs)
		}(circle)
	}

	producers.Add(1)
	go func() {
		defer producers.Done()
		s.runRetrySweep(ctx)
	}()

	<-ctx.Done()
	// every producer must be gone before the job channel closes
	producers.Wait()
	close(jobs)
	workers.Wait()
}

// EnqueueRound advances the circle's durable round counter and submits one
// collection request per member, returning the requests it generated. Used
// by the tickers and exposed for manual triggering.
func (s *Scheduler) EnqueueRound(ctx context.Context, circle types.CircleSpec, jobs chan<- types.CollectionRequest) ([]types.CollectionRequest, error) {
	round, err := s.store.NextRound(ctx, circle.ID)
	if err != nil {
		return nil, fmt.Errorf("unable to advance round counter: %w", err)
	}

	requests := make([]types.CollectionRequest, 0, len(circle.Members))
	for _, member := range circle.Members {
		req := types.CollectionRequest{
			ID:                  fmt.Sprintf("%s-%d-%s", circle.ID, round, member),
			Contributor:         member,
			CircleID:            circle.ID,
			Round:               round,
			RequiredAmount:      circle.RequiredAmount,
			RecipientCommitment: fmt.Sprintf("circle:%s:round:%d", circle.ID, round),
			AllowPartial:        circle.AllowPartial,
			Priority:            circle.Priority,
			MaxRetries:          s.maxRetry,
		}
		requests = append(requests, req)
		select {
		case jobs <- req:
		case <-ctx.Done():
			return requests, ctx.Err()
		}
	}

	s.logger.Info("round scheduled", "circle", circle.ID, "round", round, "members", len(requests))
	return requests, nil
}

func (s *Scheduler) runCircle(ctx context.Context, circle types.CircleSpec, jobs chan<- types.CollectionRequest) {
	ticker := time.NewTicker(circle.RoundInterval.Std())
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.EnqueueRound(ctx, circle, jobs); err != nil {
				s.logger.Error("unable to schedule round", "circle", circle.ID, "err", err)
			}
		}
	}
}

func (s *Scheduler) worker(ctx context.Context, jobs <-chan types.CollectionRequest) {
	for req := range jobs {
		if ctx.Err() != nil {
			return
		}

		result, err := s.processor.CollectPayment(ctx, req)
		if err != nil {
			s.logger.Error("unprocessable collection request", "request", req.ID, "err", err)
			continue
		}
		s.Results.Store(req.ID, &result)
	}
}

func (s *Scheduler) runRetrySweep(ctx context.Context) {
	interval := s.cfg.RetrySweepInterval.Std()
	if interval <= 0 {
		interval = time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.processor.ProcessRetryQueue(ctx); err != nil {
				s.logger.Error("retry sweep failed", "err", err)
			}
		}
	}
}
