package query

import (
	"encoding/binary"
	"errors"

	"github.com/mr-tron/base58"
)

type Cursor []byte

var (
	EmptyCursor Cursor = Cursor([]byte{})

	ErrInvalidCursor = errors.New("invalid cursor")
)

func ToCursor(val uint64) Cursor {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, val)
	return b
}

func FromCursor(val []byte) uint64 {
	return binary.BigEndian.Uint64(val)
}

func (c Cursor) ToUint64() uint64 {
	return binary.BigEndian.Uint64(c)
}

func (c Cursor) ToBase58() string {
	return base58.Encode(c)
}

// CursorFromBase58 parses a cursor previously rendered with ToBase58.
func CursorFromBase58(val string) (Cursor, error) {
	if val == "" {
		return EmptyCursor, nil
	}

	decoded, err := base58.Decode(val)
	if err != nil {
		return nil, err
	}
	if len(decoded) != 8 {
		return nil, ErrInvalidCursor
	}
	return decoded, nil
}
