package resale

import (
	"errors"
	"time"
)

// Record is the off-chain view of a resale listing. The listed unit itself
// sits in the on-chain resale escrow; this row carries the asking price and
// whether the listing can still be bought.
type Record struct {
	Id uint64

	ListingId string

	Mint   string
	Seller string
	Price  uint64

	IsActive bool

	// Signature of the list_for_resale transaction
	Signature string

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.ListingId) == 0 {
		return errors.New("listing id is required")
	}

	if len(r.Mint) == 0 {
		return errors.New("mint is required")
	}

	if len(r.Seller) == 0 {
		return errors.New("seller is required")
	}

	if r.Price == 0 {
		return errors.New("price must be positive")
	}

	if len(r.Signature) == 0 {
		return errors.New("signature is required")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		ListingId: r.ListingId,

		Mint:   r.Mint,
		Seller: r.Seller,
		Price:  r.Price,

		IsActive: r.IsActive,

		Signature: r.Signature,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.ListingId = r.ListingId

	dst.Mint = r.Mint
	dst.Seller = r.Seller
	dst.Price = r.Price

	dst.IsActive = r.IsActive

	dst.Signature = r.Signature

	dst.CreatedAt = r.CreatedAt
}
