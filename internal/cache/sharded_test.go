package cache

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	apperrors "cachekit/pkg/errors"
)

func TestSharded_Basic(t *testing.T) {
	s, err := NewSharded(Config{Capacity: 16, HashSeed: 1}, 4)
	assert.NoError(t, err)
	defer s.Close()

	s.Put("key1", "value1")
	value, ok := s.Get("key1")
	assert.True(t, ok)
	assert.Equal(t, "value1", value)

	assert.True(t, s.Remove("key1"))
	_, ok = s.Get("key1")
	assert.False(t, ok)
}

func TestSharded_InvalidConfig(t *testing.T) {
	_, err := NewSharded(Config{Capacity: 16}, 0)
	assert.ErrorIs(t, err, apperrors.ErrInvalidShardCount)

	_, err = NewSharded(Config{Capacity: -1}, 2)
	assert.ErrorIs(t, err, apperrors.ErrInvalidCapacity)
}

func TestSharded_CapacitySplit(t *testing.T) {
	s, err := NewSharded(Config{Capacity: 10, HashSeed: 1}, 4)
	assert.NoError(t, err)
	defer s.Close()

	// 10 across 4 shards: first two shards get 3, the rest 2.
	assert.Equal(t, 3, s.shards[0].capacity)
	assert.Equal(t, 3, s.shards[1].capacity)
	assert.Equal(t, 2, s.shards[2].capacity)
	assert.Equal(t, 2, s.shards[3].capacity)

	// Total never exceeds the configured capacity.
	for i := 0; i < 200; i++ {
		s.Put(fmt.Sprintf("key%d", i), i)
	}
	assert.LessOrEqual(t, s.Len(), 10)
}

func TestSharded_CapacityBelowShardCount(t *testing.T) {
	s, err := NewSharded(Config{Capacity: 2, HashSeed: 1}, 4)
	assert.NoError(t, err)
	defer s.Close()

	// Trailing shards end up with capacity 0 and act disabled.
	assert.Equal(t, 1, s.shards[0].capacity)
	assert.Equal(t, 1, s.shards[1].capacity)
	assert.Equal(t, 0, s.shards[2].capacity)
	assert.Equal(t, 0, s.shards[3].capacity)

	for i := 0; i < 32; i++ {
		s.Put(fmt.Sprintf("key%d", i), i)
	}
	assert.LessOrEqual(t, s.Len(), 2)
}

func TestSharded_SameKeySameShard(t *testing.T) {
	s, err := NewSharded(Config{Capacity: 16, HashSeed: 1}, 4)
	assert.NoError(t, err)
	defer s.Close()

	for i := 0; i < 10; i++ {
		assert.Same(t, s.shardFor("stable-key"), s.shardFor("stable-key"))
	}
}

func TestSharded_CleanupAndStats(t *testing.T) {
	// Every shard gets room for all 12 keys, so no skewed hash split
	// can trigger an eviction and eat into the cleanup count.
	s, err := NewSharded(Config{Capacity: 48, HashSeed: 1}, 4)
	assert.NoError(t, err)
	defer s.Close()

	for i := 0; i < 8; i++ {
		s.PutWithTTL(fmt.Sprintf("stale%d", i), i, -time.Second)
	}
	for i := 0; i < 4; i++ {
		s.Put(fmt.Sprintf("live%d", i), i)
	}

	assert.Equal(t, 8, s.Cleanup())
	assert.Equal(t, 4, s.Len())

	s.Get("live0")
	s.Get("missing")
	stats := s.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestSharded_Concurrent(t *testing.T) {
	s, err := NewSharded(Config{Capacity: 128, HashSeed: 1}, 8)
	assert.NoError(t, err)
	defer s.Close()

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 500; i++ {
				key := fmt.Sprintf("key%d", i%64)
				s.Put(key, g)
				s.Get(key)
				if i%23 == 0 {
					s.Remove(key)
				}
			}
		}(g)
	}
	wg.Wait()

	assert.LessOrEqual(t, s.Len(), 128)
}
