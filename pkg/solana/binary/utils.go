// Package binary holds the fixed width little endian encoders shared by the
// program account and instruction codecs. Every helper reads or writes at
// *offset and advances it past the value.
package binary

import (
	"crypto/ed25519"
	"encoding/binary"
)

func PutKey(dst []byte, v ed25519.PublicKey, offset *int) {
	copy(dst[*offset:*offset+ed25519.PublicKeySize], v)
	*offset += ed25519.PublicKeySize
}
func GetKey(src []byte, dst *ed25519.PublicKey, offset *int) {
	*dst = make([]byte, ed25519.PublicKeySize)
	copy(*dst, src[*offset:])
	*offset += ed25519.PublicKeySize
}

// PutOptionalKey writes a C style option: a tag of optionSize bytes that is
// non-zero when the key is present, followed by the key slot.
func PutOptionalKey(dst []byte, v ed25519.PublicKey, offset *int, optionSize int) {
	if len(v) > 0 {
		dst[*offset] = 1
		copy(dst[*offset+optionSize:], v)
	}
	*offset += optionSize + ed25519.PublicKeySize
}
func GetOptionalKey(src []byte, dst *ed25519.PublicKey, offset *int, optionSize int) {
	if src[*offset] != 0 {
		*dst = make([]byte, ed25519.PublicKeySize)
		copy(*dst, src[*offset+optionSize:])
	}
	*offset += optionSize + ed25519.PublicKeySize
}

func PutBool(dst []byte, v bool, offset *int) {
	if v {
		PutUint8(dst, 1, offset)
	} else {
		PutUint8(dst, 0, offset)
	}
}
func GetBool(src []byte, dst *bool, offset *int) {
	*dst = src[*offset] != 0
	*offset += 1
}

func PutUint8(dst []byte, v uint8, offset *int) {
	dst[*offset] = v
	*offset += 1
}
func GetUint8(src []byte, dst *uint8, offset *int) {
	*dst = src[*offset]
	*offset += 1
}

func PutUint32(dst []byte, v uint32, offset *int) {
	binary.LittleEndian.PutUint32(dst[*offset:], v)
	*offset += 4
}
func GetUint32(src []byte, dst *uint32, offset *int) {
	*dst = binary.LittleEndian.Uint32(src[*offset:])
	*offset += 4
}

func PutUint64(dst []byte, v uint64, offset *int) {
	binary.LittleEndian.PutUint64(dst[*offset:], v)
	*offset += 8
}
func GetUint64(src []byte, dst *uint64, offset *int) {
	*dst = binary.LittleEndian.Uint64(src[*offset:])
	*offset += 8
}

func PutOptionalUint64(dst []byte, v *uint64, offset *int, optionSize int) {
	if v != nil {
		dst[*offset] = 1
		binary.LittleEndian.PutUint64(dst[*offset+optionSize:], *v)
	}
	*offset += optionSize + 8
}
func GetOptionalUint64(src []byte, dst **uint64, offset *int, optionSize int) {
	if src[*offset] != 0 {
		v := binary.LittleEndian.Uint64(src[*offset+optionSize:])
		*dst = &v
	}
	*offset += optionSize + 8
}

// Signed values are stored as their two's complement bit pattern.
func PutInt64(dst []byte, v int64, offset *int) {
	PutUint64(dst, uint64(v), offset)
}
func GetInt64(src []byte, dst *int64, offset *int) {
	var v uint64
	GetUint64(src, &v, offset)
	*dst = int64(v)
}
