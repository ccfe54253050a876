package cache

import (
	"context"
	"time"

	"golang.org/x/sync/singleflight"
)

const defaultLoadTimeout = 10 * time.Second

// Loader fetches the value for a key on a cache miss.
type Loader func(ctx context.Context, key string) (interface{}, error)

// ReadThrough serves reads from a TTL cache and collapses concurrent misses for
// the same key into a single call to the loader. Failed loads are not cached.
type ReadThrough struct {
	cache       Cache
	group       singleflight.Group
	loader      Loader
	loadTimeout time.Duration
}

// NewReadThrough returns a ReadThrough holding up to size entries for ttl.
func NewReadThrough(size int, ttl time.Duration, loader Loader) *ReadThrough {
	return &ReadThrough{
		cache:       NewCache(size, ttl),
		loader:      loader,
		loadTimeout: defaultLoadTimeout,
	}
}

// WithLoadTimeout bounds each call to the loader.
func (r *ReadThrough) WithLoadTimeout(timeout time.Duration) *ReadThrough {
	r.loadTimeout = timeout
	return r
}

// Get returns the cached value for key, loading it when absent or expired.
func (r *ReadThrough) Get(ctx context.Context, key string) (interface{}, error) {
	if value, ok := r.cache.Retrieve(key); ok {
		return value, nil
	}

	// The load is shared by every caller waiting on key, so it must outlive
	// the caller that started it.
	ch := r.group.DoChan(key, func() (interface{}, error) {
		loadCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.loadTimeout)
		defer cancel()

		value, err := r.loader(loadCtx, key)
		if err != nil {
			return nil, err
		}

		r.cache.Upsert(key, value, 1)
		return value, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		return res.Val, res.Err
	}
}

// Invalidate drops the cached value for key so the next Get reloads it.
func (r *ReadThrough) Invalidate(key string) {
	r.cache.Delete(key)
}
