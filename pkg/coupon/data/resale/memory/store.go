package memory

import (
	"context"
	"sync"
	"time"

	"github.com/code-payments/coupon-server/pkg/coupon/data/resale"
)

type store struct {
	mu      sync.Mutex
	last    uint64
	records []*resale.Record
}

// New returns a new in memory resale.Store
func New() resale.Store {
	return &store{}
}

// Put implements resale.Store.Put
func (s *store) Put(_ context.Context, data *resale.Record) error {
	if err := data.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.ListingId == data.ListingId {
			return resale.ErrListingExists
		}
		if item.Mint == data.Mint && item.IsActive {
			return resale.ErrListingExists
		}
	}

	s.last++
	data.Id = s.last
	data.IsActive = true
	if data.CreatedAt.IsZero() {
		data.CreatedAt = time.Now()
	}

	cloned := data.Clone()
	s.records = append(s.records, &cloned)
	return nil
}

// Get implements resale.Store.Get
func (s *store) Get(_ context.Context, listingId string) (*resale.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.ListingId == listingId {
			cloned := item.Clone()
			return &cloned, nil
		}
	}
	return nil, resale.ErrListingNotFound
}

// GetActiveByMint implements resale.Store.GetActiveByMint
func (s *store) GetActiveByMint(_ context.Context, mint string) (*resale.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.Mint == mint && item.IsActive {
			cloned := item.Clone()
			return &cloned, nil
		}
	}
	return nil, resale.ErrListingNotFound
}

// Deactivate implements resale.Store.Deactivate
func (s *store) Deactivate(_ context.Context, listingId string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, item := range s.records {
		if item.ListingId == listingId && item.IsActive {
			item.IsActive = false
			return nil
		}
	}
	return resale.ErrListingNotFound
}

func (s *store) reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = 0
	s.records = nil
}
