package memory

import (
	"context"
	"sync"
	"time"

	"github.com/code-payments/coupon-server/pkg/coupon/data/nonce"
)

type store struct {
	mu      sync.Mutex
	now     func() time.Time
	records map[string]*nonce.Record
}

// New returns a new in memory nonce.Store
func New() nonce.Store {
	return newStore(time.Now)
}

func newStore(now func() time.Time) *store {
	return &store{
		now:     now,
		records: make(map[string]*nonce.Record),
	}
}

// Claim implements nonce.Store.Claim
func (s *store) Claim(_ context.Context, data *nonce.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	key := data.Key()
	if existing, ok := s.records[key]; ok && existing.ExpiresAt.After(s.now()) {
		return nonce.ErrAlreadyClaimed
	}

	cloned := data.Clone()
	s.records[key] = &cloned
	return nil
}

// PruneExpired implements nonce.Store.PruneExpired
func (s *store) PruneExpired(_ context.Context, before time.Time) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var pruned uint64
	for key, record := range s.records {
		if record.ExpiresAt.Before(before) {
			delete(s.records, key)
			pruned++
		}
	}
	return pruned, nil
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = make(map[string]*nonce.Record)
}
