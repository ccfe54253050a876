// Package shortvec implements the compact-u16 length prefix of the Solana
// wire format: little endian base 128, at most three bytes.
package shortvec

import (
	"encoding/binary"
	"io"
	"math"

	"github.com/pkg/errors"
)

var ErrInvalidLength = errors.New("invalid compact-u16 length")

// EncodeLen writes length to w, returning the number of bytes written.
func EncodeLen(w io.Writer, length int) (int, error) {
	if length < 0 || length > math.MaxUint16 {
		return 0, errors.Errorf("length %d exceeds %d", length, math.MaxUint16)
	}

	var buf [binary.MaxVarintLen16]byte
	n := binary.PutUvarint(buf[:], uint64(length))
	return w.Write(buf[:n])
}

// DecodeLen reads a length written by EncodeLen from r.
func DecodeLen(r io.Reader) (int, error) {
	var b [1]byte
	var val int
	for i := 0; i < binary.MaxVarintLen16; i++ {
		if _, err := io.ReadFull(r, b[:]); err != nil {
			return 0, err
		}

		val |= int(b[0]&0x7f) << (7 * i)
		if b[0]&0x80 == 0 {
			if val > math.MaxUint16 {
				return 0, ErrInvalidLength
			}
			return val, nil
		}
	}
	return 0, ErrInvalidLength
}
