package query

import (
	"strings"

	"github.com/pkg/errors"
)

// Ordering is the direction records are returned in, by their sequential id.
type Ordering uint

const (
	Ascending Ordering = iota
	Descending
)

// ToOrdering parses "asc" or "desc", ignoring case.
func ToOrdering(val string) (Ordering, error) {
	switch strings.ToLower(val) {
	case "asc":
		return Ascending, nil
	case "desc":
		return Descending, nil
	default:
		return 0, errors.Errorf("unexpected ordering: %v", val)
	}
}

func (o Ordering) String() string {
	switch o {
	case Ascending:
		return "asc"
	case Descending:
		return "desc"
	default:
		return "unknown"
	}
}
