package event

import (
	"context"
	"errors"

	"github.com/code-payments/coupon-server/pkg/database/query"
)

var (
	ErrEventNotFound = errors.New("event record not found")
	ErrEventExists   = errors.New("event record already exists")
)

type Store interface {
	// Put saves a new event record. A record sharing the event ID, or the
	// signature and type, of an existing one returns ErrEventExists.
	Put(ctx context.Context, record *Record) error

	// Get gets an event record by its event ID
	Get(ctx context.Context, id string) (*Record, error)

	// GetAllByMint returns a page of event records for a coupon mint, ordered by
	// insertion.
	GetAllByMint(ctx context.Context, mint string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*Record, error)
}
