package event

import (
	"errors"
	"time"

	"github.com/code-payments/coupon-server/pkg/pointer"
)

type Type uint32

const (
	UnknownEvent Type = iota
	Claim
	Purchase
	ResalePurchase
	Redemption
	ResaleListing
)

func (t Type) String() string {
	switch t {
	case Claim:
		return "claim"
	case Purchase:
		return "purchase"
	case ResalePurchase:
		return "resale_purchase"
	case Redemption:
		return "redemption"
	case ResaleListing:
		return "resale_listing"
	}
	return "unknown"
}

// Record is off-chain bookkeeping for a confirmed coupon transaction. The
// ledger stays authoritative; these rows only feed history views.
type Record struct {
	Id uint64

	EventId string
	Type    Type

	Mint string

	// The wallet acting in the event (claimant, buyer, seller or redeemer)
	Wallet string

	// The merchant authority or seller on the other side, when there is one
	Counterparty *string

	Signature string

	// Lamports paid, and the platform's share of it
	Amount uint64
	Fee    uint64

	CreatedAt time.Time
}

func (r *Record) Validate() error {
	if len(r.EventId) == 0 {
		return errors.New("event id is required")
	}

	if r.Type == UnknownEvent || r.Type > ResaleListing {
		return errors.New("invalid event type")
	}

	if len(r.Mint) == 0 {
		return errors.New("mint is required")
	}

	if len(r.Wallet) == 0 {
		return errors.New("wallet is required")
	}

	if r.Counterparty != nil && len(*r.Counterparty) == 0 {
		return errors.New("counterparty is required when set")
	}

	if len(r.Signature) == 0 {
		return errors.New("signature is required")
	}

	if r.Fee > r.Amount {
		return errors.New("fee exceeds amount")
	}

	return nil
}

func (r *Record) Clone() Record {
	return Record{
		Id: r.Id,

		EventId: r.EventId,
		Type:    r.Type,

		Mint:         r.Mint,
		Wallet:       r.Wallet,
		Counterparty: pointer.StringCopy(r.Counterparty),

		Signature: r.Signature,

		Amount: r.Amount,
		Fee:    r.Fee,

		CreatedAt: r.CreatedAt,
	}
}

func (r *Record) CopyTo(dst *Record) {
	dst.Id = r.Id

	dst.EventId = r.EventId
	dst.Type = r.Type

	dst.Mint = r.Mint
	dst.Wallet = r.Wallet
	dst.Counterparty = pointer.StringCopy(r.Counterparty)

	dst.Signature = r.Signature

	dst.Amount = r.Amount
	dst.Fee = r.Fee

	dst.CreatedAt = r.CreatedAt
}
