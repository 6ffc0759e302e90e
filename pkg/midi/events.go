// Package midi provides the fixed-size event record and the allocation-free,
// time-ordered event buffer used on the audio thread.
package midi

import (
	"fmt"
	"math"
	"strings"
)

// EventType is the kind of an Event. The zero value is EventTypeEmpty.
type EventType uint8

const (
	EventTypeEmpty EventType = iota
	EventTypeNoteOn
	EventTypeNoteOff
	EventTypeController
	EventTypePitchBend
	EventTypeAftertouch
	EventTypeAllNotesOff
	EventTypeSongPosition
	EventTypeMidiStart
	EventTypeMidiStop
	EventTypeVolumeFade
	EventTypePitchFade
	EventTypeTimerEvent
	EventTypeProgramChange
	numEventTypes
)

var eventTypeNames = [numEventTypes]string{
	"Empty",
	"NoteOn",
	"NoteOff",
	"Controller",
	"PitchBend",
	"Aftertouch",
	"AllNotesOff",
	"SongPosition",
	"MidiStart",
	"MidiStop",
	"VolumeFade",
	"PitchFade",
	"TimerEvent",
	"ProgramChange",
}

// String returns the name of the event type.
func (t EventType) String() string {
	if t < numEventTypes {
		return eventTypeNames[t]
	}
	return "Undefined"
}

// Controller numbers reported for the types that carry a continuous value
// but are not MIDI CC messages.
const (
	PitchWheelCCNumber = 128
	AfterTouchCCNumber = 129
)

const (
	CCModWheel       uint8 = 1
	CCBreath         uint8 = 2
	CCFoot           uint8 = 4
	CCPortamentoTime uint8 = 5
	CCVolume         uint8 = 7
	CCBalance        uint8 = 8
	CCPan            uint8 = 10
	CCExpression     uint8 = 11
	CCSustain        uint8 = 64
	CCPortamento     uint8 = 65
	CCSostenuto      uint8 = 66
	CCSoft           uint8 = 67
	CCLegato         uint8 = 68
	CCHold2          uint8 = 69
	CCAllSoundOff    uint8 = 120
	CCResetAll       uint8 = 121
	CCLocalControl   uint8 = 122
	CCAllNotesOff    uint8 = 123
)

// The timestamp word keeps the sample position in the low 30 bits and the
// two flags in the top bits, so an Event stays 16 bytes.
const (
	timestampMask  uint32 = 0x3FFFFFFF
	ignoredFlag    uint32 = 0x40000000
	artificialFlag uint32 = 0x80000000

	// MaxTimestamp is the largest sample position an Event can hold.
	MaxTimestamp = int(timestampMask)
)

const (
	minGain = -100
	maxGain = 36
)

// Event is one timestamped control message inside a processing block.
//
// It is a plain value: copying it copies everything, and the zero value is
// an empty event. Two events are bit-identical when == reports true.
type Event struct {
	typ         EventType
	channel     uint8
	number      uint8
	value       uint8
	transpose   int8
	gain        int8
	semitones   int8
	cents       int8
	eventID     uint16
	startOffset uint16
	timestamp   uint32
}

// NewEvent creates an event with the given data. Channels are 1-based.
func NewEvent(t EventType, number, value, channel uint8) Event {
	return Event{
		typ:     t,
		number:  number,
		value:   value,
		channel: channel,
	}
}

// NewVolumeFade creates an artificial fade of the voices started by eventID
// towards targetGain decibels.
func NewVolumeFade(eventID uint16, fadeTimeMilliseconds int, targetGain int8) Event {
	e := NewEvent(EventTypeVolumeFade, 0, 0, 1)
	e.SetEventID(eventID)
	e.SetGain(int(targetGain))
	e.SetPitchWheelValue(fadeTimeMilliseconds)
	e.SetArtificial()
	return e
}

// NewPitchFade creates an artificial pitch fade of the voices started by eventID.
func NewPitchFade(eventID uint16, fadeTimeMilliseconds int, coarse, fine int8) Event {
	e := NewEvent(EventTypePitchFade, 0, 0, 1)
	e.SetEventID(eventID)
	e.SetCoarseDetune(int(coarse))
	e.SetFineDetune(int(fine))
	e.SetPitchWheelValue(fadeTimeMilliseconds)
	e.SetArtificial()
	return e
}

// NewTimerEvent creates an artificial timer event for the given timer slot.
func NewTimerEvent(timerIndex uint8, offset int) Event {
	e := NewEvent(EventTypeTimerEvent, 0, 0, timerIndex)
	e.SetArtificial()
	e.SetTimestamp(offset)
	return e
}

// Clear resets the event to the empty state.
func (e *Event) Clear() {
	*e = Event{}
}

// Type returns the event type.
func (e Event) Type() EventType { return e.typ }

// SetType changes the type without touching the data bytes.
func (e *Event) SetType(t EventType) { e.typ = t }

// IsEmpty reports whether the event carries no message.
func (e Event) IsEmpty() bool { return e.typ == EventTypeEmpty }

func (e Event) Channel() int             { return int(e.channel) }
func (e *Event) SetChannel(channel int)  { e.channel = uint8(channel) }
func (e Event) EventID() uint16          { return e.eventID }
func (e *Event) SetEventID(id uint16)    { e.eventID = id }
func (e Event) StartOffset() uint16      { return e.startOffset }
func (e *Event) SetStartOffset(o uint16) { e.startOffset = o }

// Timestamp returns the sample offset of the event within the current block.
func (e Event) Timestamp() int {
	return int(e.timestamp & timestampMask)
}

// SetTimestamp sets the sample offset, clamped to [0, MaxTimestamp]. The
// artificial and ignored flags are preserved.
func (e *Event) SetTimestamp(ts int) {
	if ts < 0 {
		ts = 0
	} else if ts > MaxTimestamp {
		ts = MaxTimestamp
	}
	e.timestamp = (e.timestamp &^ timestampMask) | uint32(ts)
}

// AddToTimestamp shifts the timestamp by delta, never below zero.
func (e *Event) AddToTimestamp(delta int) {
	e.SetTimestamp(e.Timestamp() + delta)
}

// AlignToRaster rounds the timestamp to the nearest multiple of raster
// (halves round down) and pulls it back one raster step when the result
// would reach maxTimestamp.
func (e *Event) AlignToRaster(raster, maxTimestamp int) {
	if raster <= 1 {
		return
	}
	ts := e.Timestamp()
	odd := ts % raster
	if odd > raster/2 {
		ts += raster - odd
	} else {
		ts -= odd
	}
	if ts >= maxTimestamp {
		ts -= raster
	}
	e.SetTimestamp(ts)
}

func (e Event) IsIgnored() bool { return e.timestamp&ignoredFlag != 0 }

// Ignore marks the event so that iterators asked to skip ignored events
// pass over it. The event stays in its buffer.
func (e *Event) Ignore(ignored bool) {
	if ignored {
		e.timestamp |= ignoredFlag
	} else {
		e.timestamp &^= ignoredFlag
	}
}

// IsArtificial reports whether the event was generated internally rather
// than received from a controller.
func (e Event) IsArtificial() bool { return e.timestamp&artificialFlag != 0 }

func (e *Event) SetArtificial() { e.timestamp |= artificialFlag }

func (e Event) IsNoteOn() bool        { return e.typ == EventTypeNoteOn }
func (e Event) IsNoteOff() bool       { return e.typ == EventTypeNoteOff }
func (e Event) IsNoteOnOrOff() bool   { return e.typ == EventTypeNoteOn || e.typ == EventTypeNoteOff }
func (e Event) IsController() bool    { return e.typ == EventTypeController }
func (e Event) IsPitchWheel() bool    { return e.typ == EventTypePitchBend }
func (e Event) IsAftertouch() bool    { return e.typ == EventTypeAftertouch }
func (e Event) IsAllNotesOff() bool   { return e.typ == EventTypeAllNotesOff }
func (e Event) IsProgramChange() bool { return e.typ == EventTypeProgramChange }
func (e Event) IsVolumeFade() bool    { return e.typ == EventTypeVolumeFade }
func (e Event) IsPitchFade() bool     { return e.typ == EventTypePitchFade }
func (e Event) IsTimerEvent() bool    { return e.typ == EventTypeTimerEvent }
func (e Event) IsMidiStart() bool     { return e.typ == EventTypeMidiStart }
func (e Event) IsMidiStop() bool      { return e.typ == EventTypeMidiStop }
func (e Event) IsSongPosition() bool  { return e.typ == EventTypeSongPosition }

func (e Event) IsControllerOfType(cc int) bool {
	return e.typ == EventTypeController && int(e.number) == cc
}

// Number returns the raw number byte (note, controller or program).
func (e Event) Number() int { return int(e.number) }

// Value returns the raw value byte (velocity, controller value, pressure).
func (e Event) Value() int { return int(e.value) }

func (e Event) NoteNumber() int { return int(e.number) }

// SetNoteNumber sets the note number, clamped to 127.
func (e *Event) SetNoteNumber(note int) {
	debugAssert(e.IsNoteOnOrOff(), "SetNoteNumber on a non-note event")
	if note > 127 {
		note = 127
	} else if note < 0 {
		note = 0
	}
	e.number = uint8(note)
}

// NoteNumberIncludingTranspose returns the note that actually sounds.
func (e Event) NoteNumberIncludingTranspose() int {
	return int(e.number) + int(e.transpose)
}

func (e Event) Velocity() uint8           { return e.value }
func (e *Event) SetVelocity(v uint8)      { e.value = v }
func (e Event) FloatVelocity() float32    { return float32(e.value) / 127.0 }
func (e Event) TransposeAmount() int      { return int(e.transpose) }
func (e *Event) SetTransposeAmount(t int) { e.transpose = int8(t) }
func (e Event) CoarseDetune() int         { return int(e.semitones) }
func (e *Event) SetCoarseDetune(s int)    { e.semitones = int8(s) }
func (e Event) FineDetune() int           { return int(e.cents) }
func (e *Event) SetFineDetune(c int)      { e.cents = int8(c) }
func (e Event) Gain() int                 { return int(e.gain) }

// SetGain sets the note gain in decibels, clamped to [-100, 36].
func (e *Event) SetGain(db int) {
	if db < minGain {
		db = minGain
	} else if db > maxGain {
		db = maxGain
	}
	e.gain = int8(db)
}

// GainFactor converts the gain to a linear factor.
func (e Event) GainFactor() float32 {
	if e.gain <= minGain {
		return 0
	}
	return float32(math.Pow(10, float64(e.gain)/20))
}

// ControllerNumber returns the CC number, or the pseudo numbers for pitch
// bend and aftertouch.
func (e Event) ControllerNumber() int {
	switch e.typ {
	case EventTypePitchBend:
		return PitchWheelCCNumber
	case EventTypeAftertouch:
		return AfterTouchCCNumber
	}
	return int(e.number)
}

func (e Event) ControllerValue() int        { return int(e.value) }
func (e *Event) SetControllerNumber(cc int) { e.number = uint8(cc) }
func (e *Event) SetControllerValue(v int)   { e.value = uint8(v) }
func (e Event) ProgramChangeNumber() int    { return int(e.number) }
func (e Event) ChannelPressureValue() int   { return int(e.value) }
func (e Event) AfterTouchValue() int        { return int(e.value) }

// SetAfterTouchValue sets the note and pressure of a poly aftertouch event.
func (e *Event) SetAfterTouchValue(note, amount int) {
	e.number = uint8(note)
	e.value = uint8(amount)
}

// PitchWheelValue returns the 14-bit value (0..16383, centre 8192).
func (e Event) PitchWheelValue() int {
	return int(e.number) | int(e.value)<<7
}

func (e *Event) SetPitchWheelValue(position int) {
	e.number = uint8(position & 127)
	e.value = uint8((position >> 7) & 127)
}

// FadeTime returns the fade length in milliseconds of volume and pitch fades.
func (e Event) FadeTime() int       { return e.PitchWheelValue() }
func (e *Event) SetFadeTime(ms int) { e.SetPitchWheelValue(ms) }

// TimerIndex returns the timer slot of a timer event.
func (e Event) TimerIndex() int { return int(e.channel) }

func (e Event) SongPositionMidiBeat() int {
	return int(e.number) | int(e.value)<<7
}

func (e *Event) SetSongPositionValue(beats int) {
	e.number = uint8(beats & 127)
	e.value = uint8((beats >> 7) & 127)
}

// PitchFactor returns the frequency ratio of the coarse and fine detune.
func (e Event) PitchFactor() float64 {
	if e.semitones == 0 && e.cents == 0 {
		return 1.0
	}
	detune := float64(e.semitones) + float64(e.cents)/100.0
	return math.Exp2(detune / 12.0)
}

// Frequency returns the sounding frequency in Hz using the note, transpose
// and detune values.
func (e Event) Frequency() float64 {
	return NoteToFrequency(e.NoteNumberIncludingTranspose(), 440.0) * e.PitchFactor()
}

// MatchesMidiData compares type, sounding note and value, ignoring the
// timestamp and event ID.
func (e Event) MatchesMidiData(other Event) bool {
	return e.typ == other.typ &&
		e.NoteNumberIncludingTranspose() == other.NoteNumberIncludingTranspose() &&
		e.value == other.value
}

func (e Event) String() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%s{ch:%d, num:%d, val:%d, ts:%d, id:%d",
		e.typ, e.channel, e.number, e.value, e.Timestamp(), e.eventID)
	if e.IsArtificial() {
		sb.WriteString(", artificial")
	}
	if e.IsIgnored() {
		sb.WriteString(", ignored")
	}
	sb.WriteByte('}')
	return sb.String()
}

// NoteToFrequency converts a note number to Hz. A zero tuning uses 440 Hz.
func NoteToFrequency(note int, tuningA4 float64) float64 {
	if tuningA4 == 0 {
		tuningA4 = 440.0
	}
	return tuningA4 * math.Exp2((float64(note)-69.0)/12.0)
}

var noteNames = [12]string{"C", "C#", "D", "D#", "E", "F", "F#", "G", "G#", "A", "A#", "B"}

func NoteNumberToName(note uint8) string {
	octave := int(note/12) - 1
	return fmt.Sprintf("%s%d", noteNames[note%12], octave)
}
