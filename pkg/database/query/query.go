package query

import (
	"errors"
)

var ErrQueryNotSupported = errors.New("the requested query option is not supported")

// SupportedOptions is a bit set of the options a paged query accepts.
type SupportedOptions byte

const (
	CanLimitResults SupportedOptions = 1 << iota
	CanSortBy
	CanQueryByCursor
)

// QueryOptions is a paged query request after its Options are applied.
type QueryOptions struct {
	Supported SupportedOptions

	SortBy Ordering
	Limit  uint64
	Cursor Cursor
}

type Option func(*QueryOptions) error

// Apply runs opts in order and stops at the first unsupported one.
func (qo *QueryOptions) Apply(opts ...Option) error {
	for _, opt := range opts {
		if err := opt(qo); err != nil {
			return err
		}
	}
	return nil
}

func (qo *QueryOptions) require(option SupportedOptions) error {
	if qo.Supported&option != option {
		return ErrQueryNotSupported
	}
	return nil
}

func WithDirection(val Ordering) Option {
	return func(qo *QueryOptions) error {
		if err := qo.require(CanSortBy); err != nil {
			return err
		}
		qo.SortBy = val
		return nil
	}
}

func WithLimit(val uint64) Option {
	return func(qo *QueryOptions) error {
		if err := qo.require(CanLimitResults); err != nil {
			return err
		}
		qo.Limit = val
		return nil
	}
}

func WithCursor(val []byte) Option {
	return func(qo *QueryOptions) error {
		if err := qo.require(CanQueryByCursor); err != nil {
			return err
		}
		qo.Cursor = val
		return nil
	}
}
