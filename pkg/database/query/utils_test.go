package query

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPaginateQuery(t *testing.T) {
	base := "SELECT id FROM events WHERE (mint = $1)"

	q, opts := PaginateQuery(base, []interface{}{"mint"}, nil, 0, Ascending)
	assert.Equal(t, base+" ORDER BY id ASC", q)
	assert.Len(t, opts, 1)

	q, opts = PaginateQuery(base, []interface{}{"mint"}, ToCursor(42), 10, Descending)
	assert.Equal(t, base+" AND id < $2 ORDER BY id DESC LIMIT $3", q)
	require.Len(t, opts, 3)
	assert.EqualValues(t, 42, opts[1])
	assert.EqualValues(t, 10, opts[2])
}

func TestDefaultPaginationHandler(t *testing.T) {
	req, err := DefaultPaginationHandler()
	require.NoError(t, err)
	assert.EqualValues(t, defaultPagingLimit, req.Limit)
	assert.Equal(t, Ascending, req.SortBy)

	req, err = DefaultPaginationHandler(WithLimit(5), WithDirection(Descending), WithCursor(ToCursor(7)))
	require.NoError(t, err)
	assert.EqualValues(t, 5, req.Limit)
	assert.Equal(t, Descending, req.SortBy)
	assert.EqualValues(t, 7, req.Cursor.ToUint64())

	_, err = DefaultPaginationHandler(WithLimit(defaultPagingLimit + 1))
	assert.Equal(t, ErrQueryNotSupported, err)
}

func TestCursorFromBase58(t *testing.T) {
	cursor, err := CursorFromBase58(ToCursor(1234).ToBase58())
	require.NoError(t, err)
	assert.EqualValues(t, 1234, cursor.ToUint64())

	cursor, err = CursorFromBase58("")
	require.NoError(t, err)
	assert.Empty(t, cursor)

	_, err = CursorFromBase58("2g")
	assert.Equal(t, ErrInvalidCursor, err)
}

func TestToOrdering(t *testing.T) {
	for _, tc := range []struct {
		value    string
		expected Ordering
	}{
		{"asc", Ascending},
		{"DESC", Descending},
	} {
		actual, err := ToOrdering(tc.value)
		require.NoError(t, err)
		assert.Equal(t, tc.expected, actual)
		assert.Equal(t, strings.ToLower(tc.value), actual.String())
	}

	_, err := ToOrdering("sideways")
	assert.Error(t, err)
}

func TestQueryOptions_Unsupported(t *testing.T) {
	req := &QueryOptions{Supported: CanLimitResults}
	require.NoError(t, req.Apply(WithLimit(3)))
	assert.EqualValues(t, 3, req.Limit)

	assert.Equal(t, ErrQueryNotSupported, req.Apply(WithCursor(ToCursor(1))))
	assert.Equal(t, ErrQueryNotSupported, req.Apply(WithDirection(Descending)))
	assert.Empty(t, req.Cursor)
}
