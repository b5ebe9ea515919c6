package cache

// Stats is a point-in-time snapshot of cache effectiveness counters.
// Counters are maintained under the engine lock; Stats() returns a
// copy, so readers never observe a torn update.
type Stats struct {
	Hits        uint64 `json:"hits"`
	Misses      uint64 `json:"misses"`
	Evictions   uint64 `json:"evictions"`   // removed to make room
	Expirations uint64 `json:"expirations"` // removed because the TTL passed
}

// HitRate returns hits / (hits + misses), or 0 before any lookup.
func (s Stats) HitRate() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

func (s Stats) add(other Stats) Stats {
	return Stats{
		Hits:        s.Hits + other.Hits,
		Misses:      s.Misses + other.Misses,
		Evictions:   s.Evictions + other.Evictions,
		Expirations: s.Expirations + other.Expirations,
	}
}
