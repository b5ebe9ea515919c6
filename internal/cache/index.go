package cache

import (
	"crypto/rand"
	"encoding/binary"

	"github.com/twmb/murmur3"
)

// index maps keys to arena handles with open addressing and linear
// probing. Hashing is seeded murmur3, so callers feeding externally
// influenced keys cannot construct a set that degrades probing to
// O(n). The table doubles once live slots plus tombstones pass a 7/8
// load factor; rehashing drops the tombstones.
type index struct {
	seed  uint64
	slots []indexSlot
	live  int // slots holding an entry
	used  int // live + tombstones
}

type indexSlot struct {
	key  string
	h    handle
	full bool
	dead bool // tombstone left behind by remove
}

const (
	minTableSize = 16
	maxLoadNum   = 7
	maxLoadDen   = 8
)

func newIndex(seed uint64) *index {
	if seed == 0 {
		seed = randomSeed()
	}
	return &index{
		seed:  seed,
		slots: make([]indexSlot, minTableSize),
	}
}

func randomSeed() uint64 {
	var b [8]byte
	if _, err := rand.Read(b[:]); err != nil {
		// crypto/rand failing means the platform is broken; fall back
		// to a fixed odd constant so the cache keeps working.
		return 0x9e3779b97f4a7c15
	}
	return binary.LittleEndian.Uint64(b[:])
}

func (ix *index) hash(key string) uint64 {
	return murmur3.SeedStringSum64(ix.seed, key)
}

// lookup returns the handle stored for key.
func (ix *index) lookup(key string) (handle, bool) {
	mask := uint64(len(ix.slots) - 1)
	for i := ix.hash(key) & mask; ; i = (i + 1) & mask {
		s := &ix.slots[i]
		if !s.full {
			if s.dead {
				continue
			}
			return nilHandle, false
		}
		if s.key == key {
			return s.h, true
		}
	}
}

// insert stores key -> h, replacing the handle if key is present.
func (ix *index) insert(key string, h handle) {
	if (ix.used+1)*maxLoadDen > len(ix.slots)*maxLoadNum {
		ix.rehash(len(ix.slots) * 2)
	}

	mask := uint64(len(ix.slots) - 1)
	grave := -1
	for i := ix.hash(key) & mask; ; i = (i + 1) & mask {
		s := &ix.slots[i]
		if s.full {
			if s.key == key {
				s.h = h
				return
			}
			continue
		}
		if s.dead {
			// Remember the first tombstone; the key may still appear
			// further down the probe chain.
			if grave < 0 {
				grave = int(i)
			}
			continue
		}
		if grave >= 0 {
			ix.slots[grave] = indexSlot{key: key, h: h, full: true}
			ix.live++
			return
		}
		ix.slots[i] = indexSlot{key: key, h: h, full: true}
		ix.live++
		ix.used++
		return
	}
}

// remove deletes key, leaving a tombstone so probe chains stay intact.
func (ix *index) remove(key string) bool {
	mask := uint64(len(ix.slots) - 1)
	for i := ix.hash(key) & mask; ; i = (i + 1) & mask {
		s := &ix.slots[i]
		if !s.full {
			if s.dead {
				continue
			}
			return false
		}
		if s.key == key {
			*s = indexSlot{dead: true}
			ix.live--
			return true
		}
	}
}

func (ix *index) len() int {
	return ix.live
}

func (ix *index) rehash(size int) {
	if size < minTableSize {
		size = minTableSize
	}
	old := ix.slots
	ix.slots = make([]indexSlot, size)
	ix.live, ix.used = 0, 0

	mask := uint64(size - 1)
	for i := range old {
		if !old[i].full {
			continue
		}
		for j := ix.hash(old[i].key) & mask; ; j = (j + 1) & mask {
			if !ix.slots[j].full {
				ix.slots[j] = indexSlot{key: old[i].key, h: old[i].h, full: true}
				ix.live++
				ix.used++
				break
			}
		}
	}
}
