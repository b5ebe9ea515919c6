package cache

import (
	"time"

	"github.com/twmb/murmur3"

	apperrors "cachekit/pkg/errors"
)

// Sharded splits the key space across independently locked caches so
// writers on different shards never contend. Each shard is a full
// engine enforcing its own critical section; LRU ordering and capacity
// are therefore per shard, which approximates global LRU well when
// keys spread evenly.
type Sharded struct {
	shards []*Cache
	seed   uint64
}

// NewSharded builds n sub-caches. cfg.Capacity is the total across all
// shards; the remainder of an uneven split goes to the first shards.
// With a total capacity below n, the trailing shards get capacity 0 and
// are therefore disabled: keys hashing to them are never cached. Size
// capacity to at least the shard count unless that is acceptable.
func NewSharded(cfg Config, n int) (*Sharded, error) {
	if n <= 0 {
		return nil, apperrors.ErrInvalidShardCount
	}
	if cfg.Capacity < 0 {
		return nil, apperrors.ErrInvalidCapacity
	}

	seed := cfg.HashSeed
	if seed == 0 {
		seed = randomSeed()
	}

	s := &Sharded{
		shards: make([]*Cache, n),
		seed:   seed,
	}

	base := cfg.Capacity / n
	extra := cfg.Capacity % n
	for i := range s.shards {
		shardCfg := cfg
		shardCfg.HashSeed = seed + uint64(i)
		shardCfg.Capacity = base
		if i < extra {
			shardCfg.Capacity++
		}
		shard, err := New(shardCfg)
		if err != nil {
			return nil, err
		}
		s.shards[i] = shard
	}
	return s, nil
}

func (s *Sharded) shardFor(key string) *Cache {
	h := murmur3.SeedStringSum64(s.seed, key)
	return s.shards[h%uint64(len(s.shards))]
}

func (s *Sharded) Get(key string) (interface{}, bool) {
	return s.shardFor(key).Get(key)
}

func (s *Sharded) Put(key string, value interface{}) {
	s.shardFor(key).Put(key, value)
}

func (s *Sharded) PutWithTTL(key string, value interface{}, ttl time.Duration) {
	s.shardFor(key).PutWithTTL(key, value, ttl)
}

func (s *Sharded) Remove(key string) bool {
	return s.shardFor(key).Remove(key)
}

// Cleanup sweeps every shard and returns the total removed.
func (s *Sharded) Cleanup() int {
	removed := 0
	for _, shard := range s.shards {
		removed += shard.Cleanup()
	}
	return removed
}

func (s *Sharded) Len() int {
	n := 0
	for _, shard := range s.shards {
		n += shard.Len()
	}
	return n
}

// Keys returns the keys of every shard. Ordering is most to least
// recently used within a shard only.
func (s *Sharded) Keys() []string {
	out := make([]string, 0, s.Len())
	for _, shard := range s.shards {
		out = append(out, shard.Keys()...)
	}
	return out
}

// Stats aggregates the counters of all shards.
func (s *Sharded) Stats() Stats {
	var total Stats
	for _, shard := range s.shards {
		total = total.add(shard.Stats())
	}
	return total
}

func (s *Sharded) Close() {
	for _, shard := range s.shards {
		shard.Close()
	}
}
