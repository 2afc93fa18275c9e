package types

import "time"

// PaymentRecord is one append-only entry in the encrypted payment ledger.
// The amount is encrypted with the owning contributor's key; the payment
// hash is commitment-derived and usable for matching without decryption.
type PaymentRecord struct {
	ID              string    `json:"id"`
	Contributor     string    `json:"contributor"`
	CircleID        string    `json:"circle_id"`
	Round           uint64    `json:"round"`
	EncryptedAmount string    `json:"encrypted_amount"`
	PaymentHash     string    `json:"payment_hash"`
	AnonymityScore  int       `json:"anonymity_score"`
	CreatedAt       time.Time `json:"created_at"`
}

// HistorySummary is the decrypted aggregate view of a contributor's records.
// Only available when the caller supplies the contributor's credential.
type HistorySummary struct {
	Count            int     `json:"count"`
	TotalAmount      uint64  `json:"total_amount"`
	AverageAnonymity float64 `json:"average_anonymity"`
}

// PaymentHistory is the result of a history query. Summary is nil when no
// decryption credential was supplied.
type PaymentHistory struct {
	Records []PaymentRecord `json:"records"`
	Summary *HistorySummary `json:"summary,omitempty"`
}
