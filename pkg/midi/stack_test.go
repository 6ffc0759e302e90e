package midi

import "testing"

func noteWithID(note uint8, id uint16) Event {
	e := NewEvent(EventTypeNoteOn, note, 100, 1)
	e.SetEventID(id)
	return e
}

func TestEventStackPushPop(t *testing.T) {
	var s EventStack

	if s.Peek() != nil || !s.Pop().IsEmpty() {
		t.Fatal("Expected an empty stack")
	}

	s.Push(noteWithID(60, 1))
	s.Push(noteWithID(62, 2))
	if s.Len() != 2 {
		t.Errorf("Expected 2 events, got %d", s.Len())
	}
	if s.Peek().EventID() != 2 {
		t.Errorf("Expected top id 2, got %d", s.Peek().EventID())
	}

	if e := s.Pop(); e.EventID() != 2 {
		t.Errorf("Expected id 2, got %d", e.EventID())
	}
	if e := s.Pop(); e.EventID() != 1 {
		t.Errorf("Expected id 1, got %d", e.EventID())
	}
	if s.Len() != 0 {
		t.Errorf("Expected empty stack, got %d", s.Len())
	}
}

func TestEventStackSaturation(t *testing.T) {
	var s EventStack
	for i := 0; i < EventStackSize+4; i++ {
		s.Push(noteWithID(uint8(i), uint16(i+1)))
	}

	if s.Len() != EventStackSize {
		t.Errorf("Expected %d events, got %d", EventStackSize, s.Len())
	}
	if s.Peek().EventID() != EventStackSize+4 {
		t.Errorf("Expected the newest event on top, got id %d", s.Peek().EventID())
	}
}

func TestEventStackByID(t *testing.T) {
	var s EventStack
	s.Push(noteWithID(60, 10))
	s.Push(noteWithID(62, 11))
	s.Push(noteWithID(64, 12))

	if e, ok := s.PeekNoteOnForEventID(11); !ok || e.NoteNumber() != 62 {
		t.Errorf("Expected to peek note 62, got %v %v", e, ok)
	}
	if s.Len() != 3 {
		t.Errorf("Peek changed the stack size to %d", s.Len())
	}

	if e, ok := s.PopNoteOnForEventID(11); !ok || e.NoteNumber() != 62 {
		t.Errorf("Expected to pop note 62, got %v %v", e, ok)
	}
	if s.Len() != 2 || s.Peek().EventID() != 12 {
		t.Errorf("Unexpected stack after pop: len %d", s.Len())
	}
	if _, ok := s.PopNoteOnForEventID(99); ok {
		t.Error("Expected unknown id not to be found")
	}

	s.Clear()
	if s.Len() != 0 || s.Peek() != nil {
		t.Error("Expected cleared stack")
	}
}
