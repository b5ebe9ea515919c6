package cache

// recencyList keeps live entries ordered from most to least recently
// used. It is intrusive: the links live inside the arena entries, and
// arena slot 0 acts as the sentinel closing the ring. Front and back
// operations never traverse and never touch nil.
//
// sentinel.next is the head (most recently used), sentinel.prev is the
// tail (least recently used). An empty list has both pointing back at
// the sentinel.
type recencyList struct {
	a *arena
}

func newRecencyList(a *arena) *recencyList {
	s := a.at(nilHandle)
	s.prev, s.next = nilHandle, nilHandle
	return &recencyList{a: a}
}

// pushFront inserts h as the most recently used entry.
func (l *recencyList) pushFront(h handle) {
	s := l.a.at(nilHandle)
	e := l.a.at(h)
	e.prev = nilHandle
	e.next = s.next
	l.a.at(s.next).prev = h
	s.next = h
}

// remove unlinks h from the ring.
func (l *recencyList) remove(h handle) {
	e := l.a.at(h)
	l.a.at(e.prev).next = e.next
	l.a.at(e.next).prev = e.prev
	e.prev, e.next = nilHandle, nilHandle
}

// moveToFront marks h as most recently used.
func (l *recencyList) moveToFront(h handle) {
	if l.a.at(nilHandle).next == h {
		return
	}
	l.remove(h)
	l.pushFront(h)
}

// back returns the least recently used entry, or nilHandle when the
// list is empty.
func (l *recencyList) back() handle {
	return l.a.at(nilHandle).prev
}

// front returns the most recently used entry, or nilHandle when the
// list is empty.
func (l *recencyList) front() handle {
	return l.a.at(nilHandle).next
}
