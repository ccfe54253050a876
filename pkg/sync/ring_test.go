package sync

import (
	"fmt"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRing(stripes int) *ring {
	entries := make(map[string]interface{}, stripes)
	for i := 0; i < stripes; i++ {
		entries[fmt.Sprintf("stripe-%d", i)] = i
	}
	return newRing(entries, 1000)
}

func TestRing_SameKeySameShard(t *testing.T) {
	r := newTestRing(64)
	rebuilt := newTestRing(64)

	for i := 0; i < 256; i++ {
		mint := []byte(fmt.Sprintf("mint-%d", i))

		expected := r.shard(mint)
		require.NotNil(t, expected)
		for j := 0; j < 16; j++ {
			assert.Equal(t, expected, r.shard(mint))
		}
		assert.Equal(t, expected, rebuilt.shard(mint))
	}
}

func TestRing_EvenSpread(t *testing.T) {
	const (
		stripes   = 5
		keys      = 250000
		tolerance = 0.1
	)
	expected := float64(keys / stripes)

	r := newTestRing(stripes)

	hits := make(map[int]int)
	for i := 0; i < keys; i++ {
		hits[r.shard([]byte(fmt.Sprintf("mint-%d", i))).(int)]++
	}

	require.Len(t, hits, stripes)
	for stripe, count := range hits {
		assert.LessOrEqual(t, math.Abs(float64(count)-expected), tolerance*expected, "stripe %d", stripe)
	}
}
