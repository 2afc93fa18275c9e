// Package store provides the durable persistence layer: the append-only
// encrypted payment ledger and the retry queue, backed by a single sqlite
// database file.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"cosmossdk.io/log"
	_ "modernc.org/sqlite"

	"github.com/tanda-protocol/tanda-collector/types"
)

const schema = `
CREATE TABLE IF NOT EXISTS payment_records (
	id              TEXT PRIMARY KEY,
	contributor     TEXT NOT NULL,
	circle_id       TEXT NOT NULL,
	round           INTEGER NOT NULL,
	encrypted_amount TEXT NOT NULL,
	payment_hash    TEXT NOT NULL,
	anonymity_score INTEGER NOT NULL,
	created_at      TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_payment_records_contributor ON payment_records(contributor);

CREATE TABLE IF NOT EXISTS retry_queue (
	request_id      TEXT PRIMARY KEY,
	contributor     TEXT NOT NULL,
	request_json    TEXT NOT NULL,
	attempts        INTEGER NOT NULL,
	next_attempt_at TIMESTAMP NOT NULL,
	base_delay_ms   INTEGER NOT NULL,
	multiplier      REAL NOT NULL,
	max_delay_ms    INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_retry_queue_next_attempt ON retry_queue(next_attempt_at);

CREATE TABLE IF NOT EXISTS circle_rounds (
	circle_id TEXT PRIMARY KEY,
	round     INTEGER NOT NULL
);
`

// Store is the sqlite-backed persistence layer. Record appends are committed
// before returning, giving at-least-once durability.
type Store struct {
	db     *sql.DB
	logger log.Logger
}

// Open opens (creating if necessary) the sqlite database and bootstraps the
// schema.
func Open(path string, logger log.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite store: %w", err)
	}
	// sqlite permits one writer; funneling through a single connection avoids
	// busy errors under concurrent workers
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("unable to init store schema: %w", err)
	}
	return &Store{
		db:     db,
		logger: logger.With("component", "store"),
	}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// AppendRecord appends one payment record to the ledger. Records are never
// mutated after this returns.
func (s *Store) AppendRecord(ctx context.Context, rec types.PaymentRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO payment_records
		(id, contributor, circle_id, round, encrypted_amount, payment_hash, anonymity_score, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Contributor, rec.CircleID, rec.Round,
		rec.EncryptedAmount, rec.PaymentHash, rec.AnonymityScore, rec.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("unable to append payment record: %w", err)
	}
	return nil
}

// QueryRecords returns all payment records for a contributor, oldest first.
func (s *Store) QueryRecords(ctx context.Context, contributor string) ([]types.PaymentRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, contributor, circle_id, round, encrypted_amount, payment_hash, anonymity_score, created_at
		FROM payment_records WHERE contributor = ? ORDER BY created_at ASC`,
		contributor)
	if err != nil {
		return nil, fmt.Errorf("unable to query payment records: %w", err)
	}
	defer rows.Close()

	var records []types.PaymentRecord
	for rows.Next() {
		var rec types.PaymentRecord
		if err := rows.Scan(&rec.ID, &rec.Contributor, &rec.CircleID, &rec.Round,
			&rec.EncryptedAmount, &rec.PaymentHash, &rec.AnonymityScore, &rec.CreatedAt); err != nil {
			return nil, fmt.Errorf("unable to scan payment record: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// EnqueueRetry inserts or replaces the retry entry for a request.
func (s *Store) EnqueueRetry(ctx context.Context, entry types.RetryEntry) error {
	reqBz, err := json.Marshal(entry.Request)
	if err != nil {
		return fmt.Errorf("unable to marshal retry request: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO retry_queue
		(request_id, contributor, request_json, attempts, next_attempt_at, base_delay_ms, multiplier, max_delay_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.Request.ID, entry.Request.Contributor, string(reqBz),
		entry.Attempts, entry.NextAttemptAt.UTC(),
		entry.BaseDelay.Milliseconds(), entry.Multiplier, entry.MaxDelay.Milliseconds())
	if err != nil {
		return fmt.Errorf("unable to enqueue retry entry: %w", err)
	}
	return nil
}

// DueRetries returns all retry entries whose next-eligible time has passed.
func (s *Store) DueRetries(ctx context.Context, now time.Time) ([]types.RetryEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT request_json, attempts, next_attempt_at, base_delay_ms, multiplier, max_delay_ms
		FROM retry_queue WHERE next_attempt_at <= ? ORDER BY next_attempt_at ASC`,
		now.UTC())
	if err != nil {
		return nil, fmt.Errorf("unable to query retry queue: %w", err)
	}
	defer rows.Close()

	var entries []types.RetryEntry
	for rows.Next() {
		var (
			reqJSON     string
			baseDelayMs int64
			maxDelayMs  int64
			entry       types.RetryEntry
		)
		if err := rows.Scan(&reqJSON, &entry.Attempts, &entry.NextAttemptAt,
			&baseDelayMs, &entry.Multiplier, &maxDelayMs); err != nil {
			return nil, fmt.Errorf("unable to scan retry entry: %w", err)
		}
		if err := json.Unmarshal([]byte(reqJSON), &entry.Request); err != nil {
			return nil, fmt.Errorf("unable to unmarshal retry request: %w", err)
		}
		entry.BaseDelay = time.Duration(baseDelayMs) * time.Millisecond
		entry.MaxDelay = time.Duration(maxDelayMs) * time.Millisecond
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// DeleteRetry removes a retry entry, either because the retry succeeded or
// because attempts are exhausted.
func (s *Store) DeleteRetry(ctx context.Context, requestID string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM retry_queue WHERE request_id = ?`, requestID)
	if err != nil {
		return fmt.Errorf("unable to delete retry entry: %w", err)
	}
	return nil
}

// NextRound atomically advances and returns the round counter for a circle.
// Counters are durable so request ids stay unique across restarts.
func (s *Store) NextRound(ctx context.Context, circleID string) (uint64, error) {
	var round uint64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO circle_rounds (circle_id, round) VALUES (?, 1)
		ON CONFLICT(circle_id) DO UPDATE SET round = round + 1
		RETURNING round`,
		circleID).Scan(&round)
	if err != nil {
		return 0, fmt.Errorf("unable to advance circle round: %w", err)
	}
	return round, nil
}

// RetryQueueDepth returns the number of pending retry entries.
func (s *Store) RetryQueueDepth(ctx context.Context) (int, error) {
	var depth int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM retry_queue`).Scan(&depth)
	if err != nil {
		return 0, fmt.Errorf("unable to count retry queue: %w", err)
	}
	return depth, nil
}
