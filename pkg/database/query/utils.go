package query

import "strconv"

const (
	defaultPagingLimit = 1000
)

// PaginateQuery appends the id cursor, ordering and limit clauses to query.
// The query must end with a bracketed WHERE clause, since the cursor clause
// is joined with AND:
//
//	"SELECT ... FROM events WHERE (mint = $1)"
//
// becomes
//
//	"SELECT ... FROM events WHERE (mint = $1) AND id > $2 ORDER BY id ASC LIMIT $3"
func PaginateQuery(query string, opts []interface{},
	cursor Cursor, limit uint64, direction Ordering) (string, []interface{}) {

	if len(cursor) > 0 {
		v := strconv.Itoa(len(opts) + 1)

		if direction == Ascending {
			query += " AND id > $" + v
		} else {
			query += " AND id < $" + v
		}

		opts = append(opts, cursor.ToUint64())
	}

	if direction == Ascending {
		query += " ORDER BY id ASC"
	} else {
		query += " ORDER BY id DESC"
	}

	if limit > 0 {
		v := strconv.Itoa(len(opts) + 1)

		query += " LIMIT $" + v

		opts = append(opts, limit)
	}

	return query, opts
}

// DefaultPaginationHandler applies opts over an ascending query of up to
// defaultPagingLimit records.
func DefaultPaginationHandler(opts ...Option) (*QueryOptions, error) {
	req := QueryOptions{
		Limit:     defaultPagingLimit,
		SortBy:    Ascending,
		Supported: CanLimitResults | CanSortBy | CanQueryByCursor,
	}
	if err := req.Apply(opts...); err != nil {
		return nil, ErrQueryNotSupported
	}

	if req.Limit > defaultPagingLimit {
		return nil, ErrQueryNotSupported
	}

	return &req, nil
}
