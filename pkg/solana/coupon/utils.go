package coupon

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"

	"github.com/code-payments/coupon-server/pkg/solana/binary"
)

func putDiscriminator(dst []byte, src []byte, offset *int) {
	copy(dst[*offset:], src)
	*offset += 8
}
func getDiscriminator(src []byte, dst *[]byte, offset *int) {
	*dst = make([]byte, 8)
	copy(*dst, src[*offset:])
	*offset += 8
}

// Borsh strings are a u32 little endian length followed by the raw bytes.
func stringSize(v string) int {
	return 4 + len(v)
}
func putString(dst []byte, v string, maxLength int, offset *int) error {
	if len(v) > maxLength {
		return errors.Wrapf(ErrStringTooLong, "%d > %d", len(v), maxLength)
	}
	binary.PutUint32(dst, uint32(len(v)), offset)
	copy(dst[*offset:], v)
	*offset += len(v)
	return nil
}
func getString(src []byte, dst *string, offset *int) error {
	if len(src) < *offset+4 {
		return ErrInvalidInstructionData
	}

	var length uint32
	binary.GetUint32(src, &length, offset)
	if uint64(len(src)) < uint64(*offset)+uint64(length) {
		return ErrInvalidInstructionData
	}

	*dst = string(src[*offset : *offset+int(length)])
	*offset += int(length)
	return nil
}

func mustBase58Decode(value string) []byte {
	decoded, err := base58.Decode(value)
	if err != nil {
		panic(err)
	}
	return decoded
}
