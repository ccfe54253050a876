package resale

import (
	"context"
	"errors"
)

var (
	ErrListingNotFound = errors.New("resale listing not found")
	ErrListingExists   = errors.New("resale listing already exists")
)

type Store interface {
	// Put creates a new active listing. ErrListingExists is returned when the
	// listing ID is taken, or when the mint already has an active listing.
	Put(ctx context.Context, record *Record) error

	// Get gets a listing by its listing ID, active or not
	Get(ctx context.Context, listingId string) (*Record, error)

	// GetActiveByMint gets the active listing for a coupon mint
	GetActiveByMint(ctx context.Context, mint string) (*Record, error)

	// Deactivate marks an active listing as consumed. ErrListingNotFound is
	// returned when there is no active listing with the ID, so a listing can
	// be deactivated at most once.
	Deactivate(ctx context.Context, listingId string) error
}
