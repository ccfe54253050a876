package nonce

import (
	"errors"
	"fmt"
	"time"
)

// Record marks a redemption proof as consumed. A proof is identified by the
// coupon mint, the owner that signed it and its millisecond timestamp, which
// together are exactly what the owner signed.
type Record struct {
	Mint      string
	Owner     string
	Timestamp int64

	Signature string

	// After ExpiresAt the proof is stale anyway, so the record can be pruned
	// and the key claimed again.
	ExpiresAt time.Time
}

func (r *Record) Key() string {
	return fmt.Sprintf("%s:%s:%d", r.Mint, r.Owner, r.Timestamp)
}

func (r *Record) Validate() error {
	if len(r.Mint) == 0 {
		return errors.New("mint is required")
	}

	if len(r.Owner) == 0 {
		return errors.New("owner is required")
	}

	if r.Timestamp <= 0 {
		return errors.New("timestamp must be positive")
	}

	if len(r.Signature) == 0 {
		return errors.New("signature is required")
	}

	if r.ExpiresAt.IsZero() {
		return errors.New("expiry is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Mint:      r.Mint,
		Owner:     r.Owner,
		Timestamp: r.Timestamp,
		Signature: r.Signature,
		ExpiresAt: r.ExpiresAt,
	}
}
