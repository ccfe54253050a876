package sync

import (
	"fmt"
	base "sync"
)

const (
	hashEntriesPerLock = 200
)

// StripedLock consistently maps a key space onto a fixed set of locks, so
// operations on the same key are serialized without a lock per key.
type StripedLock struct {
	locks    []base.RWMutex
	hashRing *ring
}

// NewStripedLock returns a new StripedLock with a static number of stripes.
func NewStripedLock(stripes uint) *StripedLock {
	ringEntries := make(map[string]interface{})
	for i := 0; i < int(stripes); i++ {
		ringEntries[fmt.Sprintf("lock%d", i)] = i
	}

	return &StripedLock{
		locks:    make([]base.RWMutex, stripes),
		hashRing: newRing(ringEntries, hashEntriesPerLock),
	}
}

// Get gets the lock for a key
func (l *StripedLock) Get(key []byte) *base.RWMutex {
	sharded := l.hashRing.shard(key).(int)
	return &l.locks[sharded]
}

// Lock acquires the exclusive lock for key and returns its release func.
func (l *StripedLock) Lock(key []byte) func() {
	mu := l.Get(key)
	mu.Lock()
	return mu.Unlock
}
