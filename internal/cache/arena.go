package cache

// handle addresses an entry slot in the arena. Slot 0 is reserved for
// the recency list sentinel, so 0 doubles as the "no entry" value.
type handle int32

const nilHandle handle = 0

// entry is one cached key/value association plus its recency links.
// prev and next are arena slots rather than pointers, so the list can
// be re-linked without any aliasing between the index, the list and
// the store.
type entry struct {
	key       string
	value     interface{}
	expiresAt int64 // UnixNano; 0 means no expiration
	prev      handle
	next      handle
}

func (e *entry) expired(now int64) bool {
	return e.expiresAt != 0 && now > e.expiresAt
}

// arena owns all entry storage. Freed slots are recycled through a
// free list; a handle stays valid until its slot is released.
type arena struct {
	slots []entry
	free  []handle
}

func newArena(capacityHint int) *arena {
	if capacityHint < 0 {
		capacityHint = 0
	}
	// slot 0 is the sentinel
	return &arena{slots: make([]entry, 1, capacityHint+1)}
}

// alloc returns a slot for a new entry, reusing a freed one if any.
func (a *arena) alloc() handle {
	if n := len(a.free); n > 0 {
		h := a.free[n-1]
		a.free = a.free[:n-1]
		return h
	}
	a.slots = append(a.slots, entry{})
	return handle(len(a.slots) - 1)
}

func (a *arena) at(h handle) *entry {
	return &a.slots[h]
}

// release clears the slot so the value can be collected, then puts it
// on the free list.
func (a *arena) release(h handle) {
	a.slots[h] = entry{}
	a.free = append(a.free, h)
}

// len is the number of live entries.
func (a *arena) len() int {
	return len(a.slots) - 1 - len(a.free)
}
