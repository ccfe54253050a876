package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/code-payments/coupon-server/pkg/coupon/data/event"
	"github.com/code-payments/coupon-server/pkg/database/query"
)

type ById []*event.Record

func (a ById) Len() int           { return len(a) }
func (a ById) Swap(i, j int)      { a[i], a[j] = a[j], a[i] }
func (a ById) Less(i, j int) bool { return a[i].Id < a[j].Id }

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*event.Record
}

// New returns a new in memory event.Store
func New() event.Store {
	return &store{}
}

// Put implements event.Store.Put
func (s *store) Put(_ context.Context, data *event.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.EventId == data.EventId {
			return event.ErrEventExists
		}
		if item.Signature == data.Signature && item.Type == data.Type {
			return event.ErrEventExists
		}
	}

	s.last++
	data.Id = s.last
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	cloned := data.Clone()
	s.records = append(s.records, &cloned)
	return nil
}

// Get implements event.Store.Get
func (s *store) Get(_ context.Context, id string) (*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.EventId == id {
			cloned := item.Clone()
			return &cloned, nil
		}
	}
	return nil, event.ErrEventNotFound
}

// GetAllByMint implements event.Store.GetAllByMint
func (s *store) GetAllByMint(_ context.Context, mint string, cursor query.Cursor, limit uint64, direction query.Ordering) ([]*event.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var items []*event.Record
	for _, item := range s.records {
		if item.Mint == mint {
			items = append(items, item)
		}
	}

	res := s.filter(items, cursor, limit, direction)
	if len(res) == 0 {
		return nil, event.ErrEventNotFound
	}

	cloned := make([]*event.Record, len(res))
	for i, item := range res {
		copied := item.Clone()
		cloned[i] = &copied
	}
	return cloned, nil
}

func (s *store) filter(items []*event.Record, cursor query.Cursor, limit uint64, direction query.Ordering) []*event.Record {
	var start uint64
	if direction == query.Descending {
		start = s.last + 1
	}
	if len(cursor) > 0 {
		start = cursor.ToUint64()
	}

	var res []*event.Record
	for _, item := range items {
		if item.Id > start && direction == query.Ascending {
			res = append(res, item)
		}
		if item.Id < start && direction == query.Descending {
			res = append(res, item)
		}
	}

	if direction == query.Descending {
		sort.Sort(sort.Reverse(ById(res)))
	}

	if limit > 0 && len(res) > int(limit) {
		return res[:limit]
	}
	return res
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = 0
	s.records = nil
}
