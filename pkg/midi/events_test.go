package midi

import (
	"math"
	"testing"
	"unsafe"
)

func TestEventSize(t *testing.T) {
	if size := unsafe.Sizeof(Event{}); size != 16 {
		t.Errorf("Expected event size 16, got %d", size)
	}
}

func TestEmptyEvent(t *testing.T) {
	var e Event
	if !e.IsEmpty() {
		t.Error("Expected zero event to be empty")
	}
	if e.Type() != EventTypeEmpty {
		t.Errorf("Expected type %v, got %v", EventTypeEmpty, e.Type())
	}

	e = NewEvent(EventTypeNoteOn, 60, 100, 1)
	e.SetTimestamp(40)
	e.Ignore(true)
	e.Clear()
	if e != (Event{}) {
		t.Errorf("Expected cleared event to be zero, got %v", e)
	}
}

func TestNoteOnEvent(t *testing.T) {
	e := NewEvent(EventTypeNoteOn, 60, 64, 1)
	e.SetTimestamp(100)

	if !e.IsNoteOn() || e.IsNoteOff() {
		t.Errorf("Expected note on, got %v", e.Type())
	}
	if e.Channel() != 1 {
		t.Errorf("Expected channel 1, got %d", e.Channel())
	}
	if e.NoteNumber() != 60 {
		t.Errorf("Expected note 60, got %d", e.NoteNumber())
	}
	if e.Velocity() != 64 {
		t.Errorf("Expected velocity 64, got %d", e.Velocity())
	}
	if e.Timestamp() != 100 {
		t.Errorf("Expected timestamp 100, got %d", e.Timestamp())
	}

	expected := "NoteOn{ch:1, num:60, val:64, ts:100, id:0}"
	if e.String() != expected {
		t.Errorf("Expected string %s, got %s", expected, e.String())
	}
}

func TestEventTypeString(t *testing.T) {
	tests := []struct {
		t    EventType
		name string
	}{
		{EventTypeEmpty, "Empty"},
		{EventTypeNoteOff, "NoteOff"},
		{EventTypeAllNotesOff, "AllNotesOff"},
		{EventTypeTimerEvent, "TimerEvent"},
		{EventTypeProgramChange, "ProgramChange"},
		{EventType(200), "Undefined"},
	}

	for _, tt := range tests {
		if tt.t.String() != tt.name {
			t.Errorf("Expected %s, got %s", tt.name, tt.t.String())
		}
	}
}

func TestTimestampFlags(t *testing.T) {
	e := NewEvent(EventTypeController, CCModWheel, 10, 1)
	e.SetTimestamp(1234)
	e.SetArtificial()
	e.Ignore(true)

	if e.Timestamp() != 1234 {
		t.Errorf("Flags leaked into timestamp: %d", e.Timestamp())
	}
	if !e.IsArtificial() || !e.IsIgnored() {
		t.Error("Expected artificial and ignored flags")
	}

	e.SetTimestamp(99)
	if !e.IsArtificial() || !e.IsIgnored() {
		t.Error("SetTimestamp cleared the flags")
	}

	e.Ignore(false)
	if e.IsIgnored() {
		t.Error("Expected ignored flag to be cleared")
	}
	if e.Timestamp() != 99 {
		t.Errorf("Expected timestamp 99, got %d", e.Timestamp())
	}
}

func TestTimestampClamping(t *testing.T) {
	var e Event
	e.SetTimestamp(-5)
	if e.Timestamp() != 0 {
		t.Errorf("Expected negative timestamp clamped to 0, got %d", e.Timestamp())
	}

	e.SetTimestamp(MaxTimestamp + 10)
	if e.Timestamp() != MaxTimestamp {
		t.Errorf("Expected timestamp clamped to %d, got %d", MaxTimestamp, e.Timestamp())
	}
	if e.IsIgnored() || e.IsArtificial() {
		t.Error("Clamped timestamp overflowed into the flags")
	}

	e.SetTimestamp(10)
	e.AddToTimestamp(-20)
	if e.Timestamp() != 0 {
		t.Errorf("Expected AddToTimestamp to stop at 0, got %d", e.Timestamp())
	}
}

func TestAlignToRaster(t *testing.T) {
	tests := []struct {
		ts       int
		raster   int
		max      int
		expected int
	}{
		{0, 8, 512, 0},
		{3, 8, 512, 0},
		{4, 8, 512, 0},
		{5, 8, 512, 8},
		{17, 8, 512, 16},
		{510, 8, 512, 504},
		{100, 1, 512, 100},
	}

	for _, tt := range tests {
		var e Event
		e.SetTimestamp(tt.ts)
		e.AlignToRaster(tt.raster, tt.max)
		if e.Timestamp() != tt.expected {
			t.Errorf("Align %d to %d: expected %d, got %d", tt.ts, tt.raster, tt.expected, e.Timestamp())
		}
	}
}

func TestPitchFactor(t *testing.T) {
	var e Event
	if e.PitchFactor() != 1.0 {
		t.Errorf("Expected factor 1.0 without detune, got %f", e.PitchFactor())
	}

	e.SetCoarseDetune(12)
	if math.Abs(e.PitchFactor()-2.0) > 1e-9 {
		t.Errorf("Expected factor 2.0 for an octave, got %f", e.PitchFactor())
	}

	e.SetCoarseDetune(-12)
	if math.Abs(e.PitchFactor()-0.5) > 1e-9 {
		t.Errorf("Expected factor 0.5 for an octave down, got %f", e.PitchFactor())
	}

	e.SetCoarseDetune(0)
	e.SetFineDetune(100)
	expected := math.Exp2(1.0 / 12.0)
	if math.Abs(e.PitchFactor()-expected) > 1e-9 {
		t.Errorf("Expected factor %f for 100 cents, got %f", expected, e.PitchFactor())
	}
}

func TestFrequency(t *testing.T) {
	e := NewEvent(EventTypeNoteOn, 69, 100, 1)
	if math.Abs(e.Frequency()-440.0) > 1e-9 {
		t.Errorf("Expected 440 Hz, got %f", e.Frequency())
	}

	e.SetTransposeAmount(12)
	if math.Abs(e.Frequency()-880.0) > 1e-9 {
		t.Errorf("Expected 880 Hz with transpose, got %f", e.Frequency())
	}
	if e.NoteNumber() != 69 {
		t.Errorf("Transpose changed the note number: %d", e.NoteNumber())
	}
}

func TestPitchWheelValue(t *testing.T) {
	var e Event
	e.SetType(EventTypePitchBend)
	for _, v := range []int{0, 1, 127, 128, 8192, 16383} {
		e.SetPitchWheelValue(v)
		if e.PitchWheelValue() != v {
			t.Errorf("Expected pitch wheel %d, got %d", v, e.PitchWheelValue())
		}
	}
	if e.ControllerNumber() != PitchWheelCCNumber {
		t.Errorf("Expected controller number %d, got %d", PitchWheelCCNumber, e.ControllerNumber())
	}
}

func TestGain(t *testing.T) {
	var e Event
	e.SetGain(100)
	if e.Gain() != 36 {
		t.Errorf("Expected gain clamped to 36, got %d", e.Gain())
	}
	e.SetGain(-200)
	if e.Gain() != -100 {
		t.Errorf("Expected gain clamped to -100, got %d", e.Gain())
	}
	if e.GainFactor() != 0 {
		t.Errorf("Expected silent gain factor, got %f", e.GainFactor())
	}
	e.SetGain(0)
	if e.GainFactor() != 1 {
		t.Errorf("Expected unity gain factor, got %f", e.GainFactor())
	}
}

func TestFadeAndTimerEvents(t *testing.T) {
	vf := NewVolumeFade(42, 500, -12)
	if !vf.IsVolumeFade() || !vf.IsArtificial() {
		t.Errorf("Unexpected volume fade %v", vf)
	}
	if vf.EventID() != 42 || vf.FadeTime() != 500 || vf.Gain() != -12 {
		t.Errorf("Unexpected volume fade data: id %d, time %d, gain %d", vf.EventID(), vf.FadeTime(), vf.Gain())
	}

	pf := NewPitchFade(7, 250, 2, -30)
	if !pf.IsPitchFade() || pf.CoarseDetune() != 2 || pf.FineDetune() != -30 || pf.FadeTime() != 250 {
		t.Errorf("Unexpected pitch fade %v", pf)
	}

	te := NewTimerEvent(3, 64)
	if !te.IsTimerEvent() || te.TimerIndex() != 3 || te.Timestamp() != 64 || !te.IsArtificial() {
		t.Errorf("Unexpected timer event %v", te)
	}
}

func TestMatchesMidiData(t *testing.T) {
	a := NewEvent(EventTypeNoteOn, 60, 100, 1)
	b := NewEvent(EventTypeNoteOn, 58, 100, 1)
	b.SetTransposeAmount(2)
	b.SetEventID(9)
	b.SetTimestamp(30)

	if !a.MatchesMidiData(b) {
		t.Error("Expected sounding notes to match")
	}
	if a == b {
		t.Error("Expected events not to be bit-identical")
	}
}

func TestNoteToFrequency(t *testing.T) {
	tests := []struct {
		note int
		freq float64
	}{
		{69, 440.0},
		{60, 261.6256},
		{57, 220.0},
		{81, 880.0},
	}

	for _, tt := range tests {
		freq := NoteToFrequency(tt.note, 440.0)
		if math.Abs(freq-tt.freq) > 0.01 {
			t.Errorf("For note %d, expected frequency %f, got %f", tt.note, tt.freq, freq)
		}
	}
}

func TestNoteNumberToName(t *testing.T) {
	tests := []struct {
		note uint8
		name string
	}{
		{60, "C4"},
		{69, "A4"},
		{0, "C-1"},
		{127, "G9"},
		{61, "C#4"},
		{70, "A#4"},
	}

	for _, tt := range tests {
		name := NoteNumberToName(tt.note)
		if name != tt.name {
			t.Errorf("For note %d, expected name %s, got %s", tt.note, tt.name, name)
		}
	}
}
