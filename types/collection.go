package types

import "time"

// Collection request lifecycle states.
const (
	Submitted            string = "submitted"
	Collecting           string = "collecting"
	Success              string = "success"
	PartialSuccess       string = "partial-success"
	FailedRetryScheduled string = "failed-retry-scheduled"
	FailedTerminal       string = "failed-terminal"
)

// CollectionRequest identifies a single collection attempt for one
// contributor's round payment. Immutable once submitted.
type CollectionRequest struct {
	ID                  string        `json:"id" yaml:"id"`
	Contributor         string        `json:"contributor" yaml:"contributor"`
	CircleID            string        `json:"circle_id" yaml:"circle-id"`
	Round               uint64        `json:"round" yaml:"round"`
	RequiredAmount      uint64        `json:"required_amount" yaml:"required-amount"` // smallest units
	RecipientCommitment string        `json:"recipient_commitment" yaml:"recipient-commitment"`
	AllowPartial        bool          `json:"allow_partial" yaml:"allow-partial"`
	Priority            RoutePriority `json:"priority" yaml:"priority"`
	MaxRetries          int           `json:"max_retries" yaml:"max-retries"`
}

// CollectionResult is the structured outcome of a collection attempt.
// Business-logic failures are reported here, never as returned errors.
type CollectionResult struct {
	RequestID      string             `json:"request_id"`
	Status         string             `json:"status"`
	Success        bool               `json:"success"`
	TotalCollected uint64             `json:"total_collected"`
	Breakdown      map[ChainID]uint64 `json:"breakdown"`
	PartialPayment bool               `json:"partial_payment"`
	Shortfall      uint64             `json:"shortfall,omitempty"`
	NextPaymentDue time.Time          `json:"next_payment_due,omitempty"`
	AnonymityScore int                `json:"anonymity_score"`
	Duration       time.Duration      `json:"duration"`
	Error          string             `json:"error,omitempty"`
	RetryScheduled bool               `json:"retry_scheduled"`
}
