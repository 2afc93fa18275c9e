package types

import (
	"math"
	"time"
)

// RetryEntry is a durable record of a failed collection attempt awaiting
// replay. Entries are immutable once written; only queue membership changes.
type RetryEntry struct {
	Request       CollectionRequest `json:"request"`
	Attempts      int               `json:"attempts"`
	NextAttemptAt time.Time         `json:"next_attempt_at"`
	BaseDelay     time.Duration     `json:"base_delay"`
	Multiplier    float64           `json:"multiplier"`
	MaxDelay      time.Duration     `json:"max_delay"`
}

// BackoffDelay returns the delay before the given attempt number,
// base × multiplier^attempt capped at the configured maximum.
func BackoffDelay(base time.Duration, multiplier float64, maxDelay time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	d := time.Duration(float64(base) * math.Pow(multiplier, float64(attempt)))
	if d > maxDelay || d < 0 {
		return maxDelay
	}
	return d
}
