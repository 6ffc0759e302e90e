package midi

import (
	gomidi "gitlab.com/gomidi/midi/v2"
)

// Message is a raw MIDI wire message.
type Message = gomidi.Message

// FromMessage converts a wire message into an Event with a zero timestamp.
//
// Wire channels 0-15 become Event channels 1-16. Note-on with velocity 0
// becomes NoteOff, CC 120 and 123 become AllNotesOff, and both channel and
// polyphonic pressure become Aftertouch. Anything else (system messages,
// SysEx) yields an empty event.
func FromMessage(msg Message) Event {
	if len(msg) == 0 {
		return Event{}
	}

	var ch, key, vel, cc, val uint8

	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return NewEvent(EventTypeNoteOn, key, vel, ch+1)

	case msg.GetNoteOff(&ch, &key, &vel):
		return NewEvent(EventTypeNoteOff, key, vel, ch+1)

	case msg.GetNoteEnd(&ch, &key):
		// note-on with zero velocity
		return NewEvent(EventTypeNoteOff, key, 0, ch+1)

	case msg.GetControlChange(&ch, &cc, &val):
		if cc == CCAllNotesOff || cc == CCAllSoundOff {
			return NewEvent(EventTypeAllNotesOff, cc, val, ch+1)
		}
		return NewEvent(EventTypeController, cc, val, ch+1)
	}

	var rel int16
	var abs uint16
	if msg.GetPitchBend(&ch, &rel, &abs) {
		return NewEvent(EventTypePitchBend, uint8(abs&127), uint8((abs>>7)&127), ch+1)
	}

	var pressure uint8
	if msg.GetAfterTouch(&ch, &pressure) {
		return NewEvent(EventTypeAftertouch, pressure, pressure, ch+1)
	}
	if msg.GetPolyAfterTouch(&ch, &key, &pressure) {
		return NewEvent(EventTypeAftertouch, key, pressure, ch+1)
	}

	var program uint8
	if msg.GetProgramChange(&ch, &program) {
		return NewEvent(EventTypeProgramChange, program, 0, ch+1)
	}

	return Event{}
}

// Message converts the event back to a wire message. The conversion is
// lossy: event IDs, flags, gain and detune are not representable, and the
// transpose amount is applied to note numbers. Types without a MIDI
// equivalent return nil.
func (e Event) Message() Message {
	ch := wireChannel(e.channel)

	switch e.typ {
	case EventTypeNoteOn:
		return gomidi.NoteOn(ch, clampNote(e.NoteNumberIncludingTranspose()), e.value)
	case EventTypeNoteOff:
		return gomidi.NoteOffVelocity(ch, clampNote(e.NoteNumberIncludingTranspose()), e.value)
	case EventTypeController:
		return gomidi.ControlChange(ch, e.number, e.value)
	case EventTypePitchBend:
		return gomidi.Pitchbend(ch, int16(e.PitchWheelValue()-8192))
	case EventTypeAftertouch:
		return gomidi.PolyAfterTouch(ch, e.number, e.value)
	case EventTypeProgramChange:
		return gomidi.ProgramChange(ch, e.number)
	case EventTypeAllNotesOff:
		return gomidi.ControlChange(ch, CCAllNotesOff, 0)
	}

	debugAssert(false, "event type has no MIDI representation")
	return nil
}

func wireChannel(ch uint8) uint8 {
	if ch == 0 {
		return 0
	}
	return (ch - 1) & 0x0F
}

func clampNote(n int) uint8 {
	if n < 0 {
		return 0
	}
	if n > 127 {
		return 127
	}
	return uint8(n)
}
