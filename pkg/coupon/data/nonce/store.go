package nonce

import (
	"context"
	"errors"
	"time"
)

var (
	ErrAlreadyClaimed = errors.New("redemption proof already claimed")
)

// Store is the replay ledger for redemption proofs.
type Store interface {
	// Claim atomically consumes the proof identified by the record. It returns
	// ErrAlreadyClaimed when an unexpired claim for the same key exists.
	Claim(ctx context.Context, record *Record) error

	// PruneExpired deletes claims that expired before the provided time and
	// returns how many were removed. Stores that expire keys natively may
	// return zero.
	PruneExpired(ctx context.Context, before time.Time) (uint64, error)
}
