package midi

// Iterator walks the events of an EventBuffer in timestamp order.
//
// It borrows the buffer: adding, removing, moving or sorting events while
// iterating invalidates it. Changing an event through the pointer returned
// by GetNextEventPointer (for example to ignore it) is allowed.
type Iterator struct {
	buffer *EventBuffer
	index  int
}

// NewIterator returns an iterator positioned at the first event of b.
func NewIterator(b *EventBuffer) Iterator {
	return Iterator{buffer: b}
}

// Reset moves the iterator back to the first event.
func (it *Iterator) Reset() {
	it.index = 0
}

// skip advances past the events matching the skip flags and reports
// whether an event remains.
func (it *Iterator) skip(skipIgnored, skipArtificial bool) bool {
	b := it.buffer
	for it.index < b.numUsed {
		e := &b.buffer[it.index]
		if (skipIgnored && e.IsIgnored()) || (skipArtificial && e.IsArtificial()) {
			it.index++
			continue
		}
		return true
	}
	return false
}

// GetNextEvent copies the next event into e and its timestamp into
// samplePosition. It returns false, leaving both untouched, when no event
// is left.
func (it *Iterator) GetNextEvent(e *Event, samplePosition *int, skipIgnored, skipArtificial bool) bool {
	if !it.skip(skipIgnored, skipArtificial) {
		return false
	}
	*e = it.buffer.buffer[it.index]
	*samplePosition = e.Timestamp()
	it.index++
	return true
}

// GetNextEventPointer returns the next event in place, or nil at the end.
func (it *Iterator) GetNextEventPointer(skipIgnored, skipArtificial bool) *Event {
	if !it.skip(skipIgnored, skipArtificial) {
		return nil
	}
	e := &it.buffer.buffer[it.index]
	it.index++
	return e
}

// GetNextConstEvent is the read-only traversal: it returns a copy of the
// next event, or false at the end.
func (it *Iterator) GetNextConstEvent(skipIgnored, skipArtificial bool) (Event, bool) {
	if !it.skip(skipIgnored, skipArtificial) {
		return Event{}, false
	}
	e := it.buffer.buffer[it.index]
	it.index++
	return e, true
}
