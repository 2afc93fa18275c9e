package processor

import (
	"context"
	"fmt"

	"github.com/tanda-protocol/tanda-collector/store"
	"github.com/tanda-protocol/tanda-collector/types"
)

// GetPaymentHistory returns all payment records for a contributor. When a
// decryption credential is supplied the result additionally carries a
// decrypted summary; a wrong credential fails with types.ErrDecryption
// rather than returning silently wrong totals.
func (p *Processor) GetPaymentHistory(ctx context.Context, contributor, credential string) (*types.PaymentHistory, error) {
	if contributor == "" {
		return nil, fmt.Errorf("%w: contributor must be set", types.ErrMalformedRequest)
	}

	callCtx, cancel := context.WithTimeout(ctx, p.cfg.CallTimeout.Std())
	records, err := p.store.QueryRecords(callCtx, contributor)
	cancel()
	if err != nil {
		return nil, err
	}

	history := &types.PaymentHistory{Records: records}
	if credential == "" {
		return history, nil
	}

	key, err := store.DeriveKey(credential, contributor)
	if err != nil {
		return nil, err
	}

	var (
		total        uint64
		anonymitySum int
	)
	for _, rec := range records {
		amount, err := store.DecryptAmount(key, rec.EncryptedAmount)
		if err != nil {
			return nil, fmt.Errorf("%w: record %s", types.ErrDecryption, rec.ID)
		}
		total += amount
		anonymitySum += rec.AnonymityScore
	}

	summary := &types.HistorySummary{
		Count:       len(records),
		TotalAmount: total,
	}
	if len(records) > 0 {
		summary.AverageAnonymity = float64(anonymitySum) / float64(len(records))
	}
	history.Summary = summary

	return history, nil
}
