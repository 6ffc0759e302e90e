package midi

// EventStackSize is the number of slots of an EventStack.
const EventStackSize = 16

// EventStack is a small fixed LIFO of events, used to remember held notes.
// Pushing onto a full stack overwrites the top slot.
type EventStack struct {
	data [EventStackSize]Event
	size int
}

func (s *EventStack) Push(e Event) {
	s.size = min(EventStackSize, s.size+1)
	s.data[s.size-1] = e
}

// Pop removes and returns the top event, or an empty event.
func (s *EventStack) Pop() Event {
	if s.size == 0 {
		return Event{}
	}
	e := s.data[s.size-1]
	s.data[s.size-1] = Event{}
	s.size--
	return e
}

// Peek returns the top event in place, or nil.
func (s *EventStack) Peek() *Event {
	if s.size == 0 {
		return nil
	}
	return &s.data[s.size-1]
}

func (s *EventStack) PeekNoteOnForEventID(id uint16) (Event, bool) {
	for i := 0; i < s.size; i++ {
		if s.data[i].EventID() == id {
			return s.data[i], true
		}
	}
	return Event{}, false
}

// PopNoteOnForEventID removes the event with the given ID from anywhere in
// the stack.
func (s *EventStack) PopNoteOnForEventID(id uint16) (Event, bool) {
	for i := 0; i < s.size; i++ {
		if s.data[i].EventID() != id {
			continue
		}
		e := s.data[i]
		copy(s.data[i:s.size-1], s.data[i+1:s.size])
		s.data[s.size-1] = Event{}
		s.size--
		return e, true
	}
	return Event{}, false
}

func (s *EventStack) Clear() {
	clear(s.data[:])
	s.size = 0
}

func (s *EventStack) Len() int { return s.size }
