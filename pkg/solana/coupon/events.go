package coupon

import (
	"bytes"
	"crypto/ed25519"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"

	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

const programDataLogPrefix = "Program data: "

var ErrEventNotFound = errors.New("event not found in program logs")

const (
	RedemptionEventSize = (8 + // discriminator
		32 + // nft_mint
		32 + // merchant
		32 + // user
		1 + // redemptions_remaining
		8) // timestamp
)

var RedemptionEventDiscriminator = []byte{72, 165, 70, 6, 179, 67, 82, 183}

// RedemptionEvent is emitted by redeem_coupon after the counter is
// decremented.
type RedemptionEvent struct {
	Mint                 ed25519.PublicKey
	Merchant             ed25519.PublicKey
	User                 ed25519.PublicKey
	RedemptionsRemaining uint8
	Timestamp            int64
}

func (obj *RedemptionEvent) Unmarshal(data []byte) error {
	if len(data) < RedemptionEventSize {
		return ErrInvalidAccountData
	}

	var offset int

	var discriminator []byte
	getDiscriminator(data, &discriminator, &offset)
	if !bytes.Equal(discriminator, RedemptionEventDiscriminator) {
		return ErrInvalidAccountData
	}

	binary.GetKey(data, &obj.Mint, &offset)
	binary.GetKey(data, &obj.Merchant, &offset)
	binary.GetKey(data, &obj.User, &offset)
	binary.GetUint8(data, &obj.RedemptionsRemaining, &offset)
	binary.GetInt64(data, &obj.Timestamp, &offset)

	return nil
}

func (obj *RedemptionEvent) Marshal() []byte {
	data := make([]byte, RedemptionEventSize)

	var offset int

	putDiscriminator(data, RedemptionEventDiscriminator, &offset)
	binary.PutKey(data, obj.Mint, &offset)
	binary.PutKey(data, obj.Merchant, &offset)
	binary.PutKey(data, obj.User, &offset)
	binary.PutUint8(data, obj.RedemptionsRemaining, &offset)
	binary.PutInt64(data, obj.Timestamp, &offset)

	return data
}

// ToLog renders the event the way the runtime logs emitted events.
func (obj *RedemptionEvent) ToLog() string {
	return programDataLogPrefix + base64.StdEncoding.EncodeToString(obj.Marshal())
}

func (obj *RedemptionEvent) String() string {
	return fmt.Sprintf(
		"RedemptionEvent{mint=%s,merchant=%s,user=%s,remaining=%d,timestamp=%d}",
		base58.Encode(obj.Mint),
		base58.Encode(obj.Merchant),
		base58.Encode(obj.User),
		obj.RedemptionsRemaining,
		obj.Timestamp,
	)
}

// RedemptionEventFromLogs finds the first RedemptionEvent in a transaction's
// log messages. Logs from other programs and other events are skipped.
func RedemptionEventFromLogs(logs []string) (*RedemptionEvent, error) {
	for _, log := range logs {
		if !strings.HasPrefix(log, programDataLogPrefix) {
			continue
		}

		raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(log, programDataLogPrefix))
		if err != nil {
			continue
		}

		var event RedemptionEvent
		if err := event.Unmarshal(raw); err != nil {
			continue
		}
		return &event, nil
	}

	return nil, ErrEventNotFound
}

// WasBurned reports whether the redemption that produced the event burned the
// NFT, given the coupon's max redemptions.
func (obj *RedemptionEvent) WasBurned(maxRedemptions uint8) bool {
	return maxRedemptions == 1 || obj.RedemptionsRemaining == 0
}
