package midi

import (
	"cmp"
	"errors"
	"slices"
)

// BufferSize is the number of event slots of every EventBuffer. Events
// beyond this count within one block are dropped.
const BufferSize = 256

var (
	// ErrBufferFull is returned when an event is dropped because the
	// buffer has no free slot.
	ErrBufferFull = errors.New("midi: event buffer full")

	// ErrUnsupportedMessage is returned when a wire message has no Event
	// representation.
	ErrUnsupportedMessage = errors.New("midi: unsupported message")
)

// EventBuffer is a fixed-capacity list of events sorted by timestamp.
//
// The in-use events occupy slots [0, Len()) in ascending timestamp order;
// events with equal timestamps keep their insertion order. All other slots
// are empty. No method allocates, blocks or panics (unless built with the
// rteventsdebug tag), so a buffer can be used from the audio callback.
// The zero value is an empty buffer ready to use.
type EventBuffer struct {
	buffer  [BufferSize]Event
	numUsed int
	dropped int
}

// NewEventBuffer returns an empty buffer.
func NewEventBuffer() *EventBuffer {
	return &EventBuffer{}
}

// Clear removes all events. Only the previously used slots are zeroed.
func (b *EventBuffer) Clear() {
	if b.numUsed != 0 {
		clear(b.buffer[:b.numUsed])
		b.numUsed = 0
	}
}

func (b *EventBuffer) Len() int      { return b.numUsed }
func (b *EventBuffer) IsEmpty() bool { return b.numUsed == 0 }
func (b *EventBuffer) Capacity() int { return BufferSize }

// Dropped returns the number of events rejected for lack of space since the
// last ResetDropped.
func (b *EventBuffer) Dropped() int  { return b.dropped }
func (b *EventBuffer) ResetDropped() { b.dropped = 0 }

// Events returns the in-use events. Elements may be modified in place but
// the timestamps must keep their order.
func (b *EventBuffer) Events() []Event {
	return b.buffer[:b.numUsed:b.numUsed]
}

// AddEvent inserts e after every event with a timestamp less than or equal
// to its own. When the buffer is full the event is dropped and
// ErrBufferFull is returned.
func (b *EventBuffer) AddEvent(e Event) error {
	if b.numUsed >= BufferSize {
		debugAssert(false, "event buffer full")
		b.dropped++
		return ErrBufferFull
	}

	ts := e.Timestamp()
	for i := 0; i < b.numUsed; i++ {
		if b.buffer[i].Timestamp() > ts {
			b.insertEventAt(e, i)
			return nil
		}
	}

	b.insertEventAt(e, b.numUsed)
	return nil
}

// insertEventAt shifts [pos, numUsed) one slot to the right. The caller
// guarantees a free slot.
func (b *EventBuffer) insertEventAt(e Event, pos int) {
	if pos < b.numUsed {
		copy(b.buffer[pos+1:b.numUsed+1], b.buffer[pos:b.numUsed])
	}
	b.buffer[pos] = e
	b.numUsed++
}

// AddMessage converts a wire message and inserts it at sampleOffset.
// Messages without an Event representation are not inserted.
func (b *EventBuffer) AddMessage(msg Message, sampleOffset int) error {
	e := FromMessage(msg)
	if e.IsEmpty() {
		debugAssert(false, "unsupported message type")
		return ErrUnsupportedMessage
	}
	e.SetTimestamp(sampleOffset)
	return b.AddEvent(e)
}

// AddMessages replaces the content with the messages of src.
//
// Messages are written in the order src yields them, without sorting, so
// src must already be chronological. Unsupported messages and aftertouch
// are skipped. It returns the number of convertible messages dropped
// because the buffer filled up.
func (b *EventBuffer) AddMessages(src MessageSource) int {
	b.Clear()

	dropped := 0
	n := src.Len()
	for i := 0; i < n; i++ {
		msg, pos := src.At(i)
		e := FromMessage(msg)
		if e.IsEmpty() || e.IsAftertouch() {
			continue
		}
		if b.numUsed >= BufferSize {
			dropped++
			continue
		}
		e.SetTimestamp(pos)
		b.buffer[b.numUsed] = e
		b.numUsed++
	}

	debugAssert(dropped == 0, "event buffer full")
	debugAssert(b.TimestampsAreSorted(), "message source not chronological")
	b.dropped += dropped
	return dropped
}

// AddEvents merges the events of other into b, keeping the order. It
// returns the number of events dropped because b filled up.
func (b *EventBuffer) AddEvents(other *EventBuffer) int {
	if other == b {
		debugAssert(false, "merging a buffer into itself")
		return 0
	}

	dropped := 0
	for i := 0; i < other.numUsed; i++ {
		if err := b.AddEvent(other.buffer[i]); err != nil {
			dropped++
		}
	}
	return dropped
}

// GetEvent returns the event in slot index, or an empty event when index
// is outside the buffer.
func (b *EventBuffer) GetEvent(index int) Event {
	if index >= 0 && index < BufferSize {
		return b.buffer[index]
	}
	return Event{}
}

// PopEvent removes the event at index and returns it. Out of range indices
// return an empty event.
func (b *EventBuffer) PopEvent(index int) Event {
	if index < 0 || index >= b.numUsed {
		return Event{}
	}
	e := b.buffer[index]
	copy(b.buffer[index:b.numUsed-1], b.buffer[index+1:b.numUsed])
	b.buffer[b.numUsed-1] = Event{}
	b.numUsed--
	return e
}

// SubtractFromTimestamps moves every event delta samples earlier. Results
// below zero are clamped to zero, which keeps the order.
func (b *EventBuffer) SubtractFromTimestamps(delta int) {
	if b.numUsed == 0 {
		return
	}
	debugAssert(b.MinTimestamp() >= delta, "timestamp rebased below zero")

	for i := 0; i < b.numUsed; i++ {
		b.buffer[i].AddToTimestamp(-delta)
	}
}

// MoveEventsBelow moves the events with a timestamp below highestTimestamp
// into target and shifts the remaining events to the front.
func (b *EventBuffer) MoveEventsBelow(target *EventBuffer, highestTimestamp int) {
	if target == b {
		debugAssert(false, "moving a buffer into itself")
		return
	}
	if b.numUsed == 0 {
		return
	}

	numCopied := 0
	for numCopied < b.numUsed && b.buffer[numCopied].Timestamp() < highestTimestamp {
		target.AddEvent(b.buffer[numCopied])
		numCopied++
	}
	if numCopied == 0 {
		return
	}

	numRemaining := b.numUsed - numCopied
	copy(b.buffer[:numRemaining], b.buffer[numCopied:b.numUsed])
	clear(b.buffer[numRemaining:b.numUsed])
	b.numUsed = numRemaining
}

// MoveEventsAbove moves the events with a timestamp at or above
// lowestTimestamp into target and truncates b to the remaining prefix.
func (b *EventBuffer) MoveEventsAbove(target *EventBuffer, lowestTimestamp int) {
	if target == b {
		debugAssert(false, "moving a buffer into itself")
		return
	}
	if b.numUsed == 0 || b.buffer[b.numUsed-1].Timestamp() < lowestTimestamp {
		return
	}

	first := 0
	for first < b.numUsed && b.buffer[first].Timestamp() < lowestTimestamp {
		first++
	}

	for i := first; i < b.numUsed; i++ {
		target.AddEvent(b.buffer[i])
	}
	clear(b.buffer[first:b.numUsed])
	b.numUsed = first
}

// CopyFrom makes b an exact copy of other's events.
func (b *EventBuffer) CopyFrom(other *EventBuffer) {
	if other == b {
		return
	}
	n := other.numUsed
	copy(b.buffer[:n], other.buffer[:n])
	if b.numUsed > n {
		clear(b.buffer[n:b.numUsed])
	}
	b.numUsed = n
}

// SortTimestamps restores the order after the unsorted bulk paths. Equal
// timestamps keep their relative order.
func (b *EventBuffer) SortTimestamps() {
	if b.numUsed < 2 {
		return
	}
	slices.SortStableFunc(b.buffer[:b.numUsed], func(x, y Event) int {
		return cmp.Compare(x.Timestamp(), y.Timestamp())
	})
}

func (b *EventBuffer) MultiplyTimestamps(factor int) {
	for i := 0; i < b.numUsed; i++ {
		b.buffer[i].SetTimestamp(b.buffer[i].Timestamp() * factor)
	}
}

// AlignEventsToRaster snaps every timestamp to the raster. See
// Event.AlignToRaster.
func (b *EventBuffer) AlignEventsToRaster(raster, maxTimestamp int) {
	for i := 0; i < b.numUsed; i++ {
		b.buffer[i].AlignToRaster(raster, maxTimestamp)
	}
}

func (b *EventBuffer) TimestampsAreSorted() bool {
	last := 0
	for i := 0; i < b.numUsed; i++ {
		ts := b.buffer[i].Timestamp()
		if ts < last {
			return false
		}
		last = ts
	}
	return true
}

// MinTimestamp returns the first timestamp, or 0 for an empty buffer.
func (b *EventBuffer) MinTimestamp() int {
	if b.numUsed == 0 {
		return 0
	}
	return b.buffer[0].Timestamp()
}

// MaxTimestamp returns the last timestamp, or 0 for an empty buffer.
func (b *EventBuffer) MaxTimestamp() int {
	if b.numUsed == 0 {
		return 0
	}
	return b.buffer[b.numUsed-1].Timestamp()
}

// Equal reports whether both buffers hold bit-identical events.
func (b *EventBuffer) Equal(other *EventBuffer) bool {
	if b.numUsed != other.numUsed {
		return false
	}
	for i := 0; i < b.numUsed; i++ {
		if b.buffer[i] != other.buffer[i] {
			return false
		}
	}
	return true
}
