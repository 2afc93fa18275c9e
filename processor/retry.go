package processor

import (
	"context"
	"time"
)

// ProcessRetryQueue replays every retry entry whose next-eligible time has
// passed. Entries are removed on success or terminal exhaustion; a failed
// replay with attempts remaining re-schedules itself with a longer backoff.
func (p *Processor) ProcessRetryQueue(ctx context.Context) error {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
	due, err := p.store.DueRetries(callCtx, time.Now())
	cancel()
	if err != nil {
		return err
	}

	for _, entry := range due {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		req := entry.Request
		p.logger.Info("replaying collection", "request", req.ID, "attempt", entry.Attempts, "max", req.MaxRetries)

		p.locks.Lock(req.Contributor)
		result, err := p.collect(ctx, req, entry.Attempts)
		p.locks.Unlock(req.Contributor)
		if err != nil {
			// configuration errors are not retriable
			p.logger.Error("dropping unprocessable retry entry", "request", req.ID, "err", err)
			p.removeRetry(ctx, req.ID)
			continue
		}

		// a failed replay with retries remaining has already re-enqueued
		// itself; anything else leaves the queue
		if !result.RetryScheduled {
			p.removeRetry(ctx, req.ID)
		}
	}

	if p.metrics != nil {
		p.updateQueueDepth(ctx)
	}
	return nil
}

func (p *Processor) removeRetry(ctx context.Context, requestID string) {
	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
	defer cancel()

	if err := p.store.DeleteRetry(callCtx, requestID); err != nil {
		p.logger.Error("unable to remove retry entry", "request", requestID, "err", err)
	}
}
