package sync

import (
	"encoding/binary"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"
	"github.com/spaolacci/murmur3"
)

// ring is a consistent hash ring over murmur3
type ring struct {
	hashRing *treemap.Map

	// Cached since treemap.Map.Min() is O(log n)
	minEntryValue interface{}
}

// newRing returns a consistent hash ring where every entry is placed
// replicationFactor times.
func newRing(entries map[string]interface{}, replicationFactor uint) *ring {
	hashRing := treemap.NewWith(utils.Int64Comparator)
	for k, v := range entries {
		keyHash, _ := murmur3.Sum128([]byte(k))
		keyHashBytes := make([]byte, 8)
		binary.LittleEndian.PutUint64(keyHashBytes, keyHash)

		for i := 0; i < int(replicationFactor); i++ {
			indexBytes := make([]byte, 4)
			binary.LittleEndian.PutUint32(indexBytes, uint32(i))
			hashRing.Put(hash(keyHashBytes, indexBytes), v)
		}
	}

	_, minEntryValue := hashRing.Min()

	return &ring{
		hashRing:      hashRing,
		minEntryValue: minEntryValue,
	}
}

// shard consistently hashes the key and returns the sharded entry value
func (r *ring) shard(key []byte) interface{} {
	_, shard := r.hashRing.Ceiling(hash(key))
	if shard != nil {
		return shard
	}
	return r.minEntryValue
}

func hash(parts ...[]byte) int64 {
	hasher := murmur3.New128()
	for _, part := range parts {
		hasher.Write(part)
	}
	raw, _ := hasher.Sum128()
	return int64(raw)
}
