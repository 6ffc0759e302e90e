package voice

import (
	"testing"

	"github.com/justyntemme/rtevents/pkg/midi"
)

// TestVoice is a simple voice implementation for testing
type TestVoice struct {
	active    bool
	note      uint8
	event     midi.Event
	amplitude float64
	age       int64
	glides    int
}

func (v *TestVoice) IsActive() bool        { return v.active }
func (v *TestVoice) GetNote() uint8        { return v.note }
func (v *TestVoice) GetAmplitude() float64 { return v.amplitude }
func (v *TestVoice) GetAge() int64         { return v.age }
func (v *TestVoice) StartNote(e midi.Event) {
	v.active = true
	v.event = e
	v.note = uint8(e.NoteNumber())
	v.age = 0
	v.amplitude = float64(e.FloatVelocity())
}
func (v *TestVoice) ReleaseNote() { v.active = false }
func (v *TestVoice) Stop()        { v.active = false; v.note = 0 }
func (v *TestVoice) GlideTo(e midi.Event, seconds float64) {
	v.event = e
	v.note = uint8(e.NoteNumber())
	v.glides++
}

// Process advances the voice by one block
func (v *TestVoice) Process(output []float32) {
	v.age++
	// Simulate amplitude decay
	if v.amplitude > 0.01 {
		v.amplitude *= 0.999
	}
}

func createTestVoices(count int) []Voice {
	voices := make([]Voice, count)
	for i := range voices {
		voices[i] = &TestVoice{}
	}
	return voices
}

func noteOn(note, velocity uint8, id uint16) midi.Event {
	e := midi.NewEvent(midi.EventTypeNoteOn, note, velocity, 1)
	e.SetEventID(id)
	return e
}

func noteOff(note uint8, id uint16) midi.Event {
	e := midi.NewEvent(midi.EventTypeNoteOff, note, 0, 1)
	e.SetEventID(id)
	return e
}

func TestAllocatorPolyMode(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)
	allocator.SetMode(ModePoly)

	// Test basic note allocation
	allocator.NoteOn(noteOn(60, 100, 1))
	allocator.NoteOn(noteOn(64, 100, 2))
	allocator.NoteOn(noteOn(67, 100, 3))

	activeCount := allocator.GetActiveVoiceCount()
	if activeCount != 3 {
		t.Errorf("Expected 3 active voices, got %d", activeCount)
	}

	// Test note off
	allocator.NoteOff(noteOff(64, 2))
	activeCount = allocator.GetActiveVoiceCount()
	if activeCount != 2 {
		t.Errorf("Expected 2 active voices after note off, got %d", activeCount)
	}

	// A note off with an unknown event ID releases nothing
	allocator.NoteOff(noteOff(60, 99))
	if allocator.GetActiveVoiceCount() != 2 {
		t.Errorf("Expected unknown event ID to be ignored, got %d active voices", allocator.GetActiveVoiceCount())
	}
}

func TestAllocatorSameKeyTwice(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)

	allocator.NoteOn(noteOn(60, 100, 1))
	allocator.NoteOn(noteOn(60, 80, 2))

	if allocator.GetActiveVoiceCount() != 2 {
		t.Fatalf("Expected 2 voices for repeated key, got %d", allocator.GetActiveVoiceCount())
	}

	// Releasing the first note on keeps the second one playing
	allocator.NoteOff(noteOff(60, 1))
	if allocator.VoicesForEventID(1) != 0 {
		t.Error("Expected voice of event 1 to be released")
	}
	if allocator.VoicesForEventID(2) != 1 {
		t.Error("Expected voice of event 2 to keep playing")
	}
}

func TestAllocatorMonoMode(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)
	allocator.SetMode(ModeMono)

	allocator.NoteOn(noteOn(60, 100, 1))
	allocator.NoteOn(noteOn(64, 100, 2))

	if allocator.GetActiveVoiceCount() != 1 {
		t.Errorf("Expected 1 active voice in mono mode, got %d", allocator.GetActiveVoiceCount())
	}

	tv := voices[0].(*TestVoice)
	if tv.GetNote() != 64 {
		t.Errorf("Expected voice to play note 64, got %d", tv.GetNote())
	}

	// Releasing the newest note returns to the held one
	allocator.NoteOff(noteOff(64, 2))
	if !tv.IsActive() || tv.GetNote() != 60 {
		t.Errorf("Expected voice to return to note 60, got active=%v note=%d", tv.IsActive(), tv.GetNote())
	}
	if tv.event.EventID() != 1 {
		t.Errorf("Expected voice to carry event ID 1, got %d", tv.event.EventID())
	}

	allocator.NoteOff(noteOff(60, 1))
	if tv.IsActive() {
		t.Error("Expected voice to be released after last note off")
	}
}

func TestAllocatorMonoReleaseHeldNote(t *testing.T) {
	voices := createTestVoices(2)
	allocator := NewAllocator(voices)
	allocator.SetMode(ModeMono)

	allocator.NoteOn(noteOn(60, 100, 1))
	allocator.NoteOn(noteOn(64, 100, 2))

	// Releasing a note that is held but not sounding does not touch the voice
	allocator.NoteOff(noteOff(60, 1))
	tv := voices[0].(*TestVoice)
	if !tv.IsActive() || tv.GetNote() != 64 {
		t.Errorf("Expected note 64 to keep playing, got active=%v note=%d", tv.IsActive(), tv.GetNote())
	}

	allocator.NoteOff(noteOff(64, 2))
	if tv.IsActive() {
		t.Error("Expected voice to be released")
	}
}

func TestAllocatorLegatoMode(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)
	allocator.SetMode(ModeLegato)
	allocator.SetGlideTime(0.05)

	allocator.NoteOn(noteOn(60, 100, 1))
	tv := voices[0].(*TestVoice)
	if allocator.IsGliding() {
		t.Error("Expected no glide on the first note")
	}

	allocator.NoteOn(noteOn(64, 100, 2))
	if !allocator.IsGliding() {
		t.Error("Expected glide on overlapping note")
	}
	if tv.glides != 1 || tv.GetNote() != 64 {
		t.Errorf("Expected one glide to note 64, got %d glides note %d", tv.glides, tv.GetNote())
	}
	if allocator.GetActiveVoiceCount() != 1 {
		t.Errorf("Expected 1 active voice in legato mode, got %d", allocator.GetActiveVoiceCount())
	}

	allocator.NoteOff(noteOff(64, 2))
	if tv.glides != 2 || tv.GetNote() != 60 {
		t.Errorf("Expected glide back to note 60, got %d glides note %d", tv.glides, tv.GetNote())
	}

	allocator.NoteOff(noteOff(60, 1))
	if tv.IsActive() || allocator.IsGliding() {
		t.Error("Expected legato voice to be released")
	}
}

func TestAllocatorUnisonMode(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)
	allocator.SetMode(ModeUnison)
	allocator.SetUnisonDetune(20)

	allocator.NoteOn(noteOn(60, 100, 5))

	if allocator.GetActiveVoiceCount() != 4 {
		t.Errorf("Expected 4 active voices in unison mode, got %d", allocator.GetActiveVoiceCount())
	}

	first := voices[0].(*TestVoice).event.FineDetune()
	last := voices[3].(*TestVoice).event.FineDetune()
	if first != -10 || last != 10 {
		t.Errorf("Expected detune spread -10..10, got %d..%d", first, last)
	}

	allocator.NoteOff(noteOff(60, 5))
	if allocator.GetActiveVoiceCount() != 0 {
		t.Errorf("Expected all unison voices released, got %d", allocator.GetActiveVoiceCount())
	}
}

func TestVoiceStealing(t *testing.T) {
	tests := []struct {
		name     string
		mode     StealingMode
		expected uint8 // note that should be stolen
	}{
		{"Oldest", StealOldest, 60},
		{"Quietest", StealQuietest, 64},
		{"Highest", StealHighest, 67},
		{"Lowest", StealLowest, 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			voices := createTestVoices(3)
			allocator := NewAllocator(voices)
			allocator.SetStealingMode(tt.mode)

			allocator.NoteOn(noteOn(60, 100, 1))
			allocator.NoteOn(noteOn(64, 20, 2))
			allocator.NoteOn(noteOn(67, 100, 3))

			// Age the voices in the order they were started
			for _, v := range voices {
				tv := v.(*TestVoice)
				tv.age = int64(100 - int(tv.note))
			}

			allocator.NoteOn(noteOn(72, 100, 4))

			for _, v := range voices {
				if v.GetNote() == tt.expected {
					t.Errorf("Expected note %d to be stolen", tt.expected)
				}
			}
			if allocator.VoicesForEventID(4) != 1 {
				t.Error("Expected new note to get a voice")
			}
		})
	}
}

func TestStealNone(t *testing.T) {
	voices := createTestVoices(2)
	allocator := NewAllocator(voices)
	allocator.SetStealingMode(StealNone)

	allocator.NoteOn(noteOn(60, 100, 1))
	allocator.NoteOn(noteOn(64, 100, 2))
	allocator.NoteOn(noteOn(67, 100, 3))

	if allocator.VoicesForEventID(3) != 0 {
		t.Error("Expected third note to be dropped without stealing")
	}
}

func TestSustainPedal(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)

	allocator.NoteOn(noteOn(60, 100, 1))
	allocator.SetSustainPedal(true)
	allocator.NoteOff(noteOff(60, 1))

	if allocator.GetActiveVoiceCount() != 1 {
		t.Errorf("Expected sustained voice to keep playing, got %d", allocator.GetActiveVoiceCount())
	}
	if !allocator.sustained[voiceIndexOf(allocator, 1)] {
		t.Error("Expected voice to be marked sustained")
	}

	allocator.SetSustainPedal(false)
	if allocator.GetActiveVoiceCount() != 0 {
		t.Errorf("Expected voice released on pedal up, got %d", allocator.GetActiveVoiceCount())
	}
}

func voiceIndexOf(a *Allocator, id uint16) int {
	for i, vid := range a.voiceIDs {
		if vid == id {
			return i
		}
	}
	return -1
}

func TestProcessEvent(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)

	if !allocator.ProcessEvent(noteOn(60, 100, 1)) {
		t.Error("Expected note on to be consumed")
	}

	sustain := midi.NewEvent(midi.EventTypeController, midi.CCSustain, 127, 1)
	if !allocator.ProcessEvent(sustain) || !allocator.sustainPedal {
		t.Error("Expected sustain controller to engage the pedal")
	}

	mod := midi.NewEvent(midi.EventTypeController, midi.CCModWheel, 64, 1)
	if allocator.ProcessEvent(mod) {
		t.Error("Expected mod wheel not to be consumed")
	}

	allocator.ProcessEvent(noteOff(60, 1))
	if allocator.GetActiveVoiceCount() != 1 {
		t.Error("Expected sustained note to keep playing")
	}

	allocator.ProcessEvent(midi.NewEvent(midi.EventTypeController, midi.CCSustain, 0, 1))
	if allocator.GetActiveVoiceCount() != 0 {
		t.Error("Expected note released on pedal up")
	}
}

func TestAllNotesOff(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)

	allocator.NoteOn(noteOn(60, 100, 1))
	allocator.NoteOn(noteOn(64, 100, 2))
	allocator.ProcessEvent(midi.NewEvent(midi.EventTypeAllNotesOff, midi.CCAllNotesOff, 0, 1))

	if allocator.GetActiveVoiceCount() != 0 {
		t.Errorf("Expected all notes released, got %d", allocator.GetActiveVoiceCount())
	}
}

func TestProcessBuffer(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)

	b := midi.NewEventBuffer()
	on := noteOn(60, 100, 1)
	on.SetTimestamp(0)
	mod := midi.NewEvent(midi.EventTypeController, midi.CCModWheel, 10, 1)
	mod.SetTimestamp(8)
	off := noteOff(60, 1)
	off.SetTimestamp(16)
	for _, e := range []midi.Event{on, mod, off} {
		if err := b.AddEvent(e); err != nil {
			t.Fatalf("AddEvent failed: %v", err)
		}
	}

	consumed := allocator.ProcessBuffer(b)
	if consumed != 2 {
		t.Errorf("Expected 2 consumed events, got %d", consumed)
	}
	if !b.GetEvent(0).IsIgnored() || !b.GetEvent(2).IsIgnored() {
		t.Error("Expected note events to be marked ignored")
	}
	if b.GetEvent(1).IsIgnored() {
		t.Error("Expected controller to stay visible")
	}

	// A second pass finds nothing left to consume
	if consumed := allocator.ProcessBuffer(b); consumed != 0 {
		t.Errorf("Expected no events on second pass, got %d", consumed)
	}
}

func TestMaxVoices(t *testing.T) {
	voices := createTestVoices(8)
	allocator := NewAllocator(voices)
	allocator.SetMaxVoices(4)
	allocator.SetStealingMode(StealNone)

	for i := uint16(0); i < 8; i++ {
		allocator.NoteOn(noteOn(uint8(60+i), 100, i+1))
	}

	if allocator.GetActiveVoiceCount() != 4 {
		t.Errorf("Expected 4 active voices with max voices 4, got %d", allocator.GetActiveVoiceCount())
	}

	allocator.SetMaxVoices(100)
	if allocator.maxVoices != 8 {
		t.Errorf("Expected max voices clamped to 8, got %d", allocator.maxVoices)
	}
}

func TestReset(t *testing.T) {
	voices := createTestVoices(4)
	allocator := NewAllocator(voices)

	allocator.NoteOn(noteOn(60, 100, 1))
	allocator.NoteOn(noteOn(64, 100, 2))
	allocator.SetSustainPedal(true)

	allocator.Reset()

	if allocator.GetActiveVoiceCount() != 0 {
		t.Errorf("Expected 0 active voices after reset, got %d", allocator.GetActiveVoiceCount())
	}
	if allocator.sustainPedal {
		t.Error("Expected sustain pedal to be cleared after reset")
	}
	if voiceIndexOf(allocator, 1) != -1 {
		t.Error("Expected voice allocations to be cleared after reset")
	}
}
