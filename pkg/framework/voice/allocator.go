package voice

import (
	"github.com/justyntemme/rtevents/pkg/midi"
)

// AllocationMode defines how voices are allocated
type AllocationMode int

const (
	// Poly mode - each note gets its own voice
	ModePoly AllocationMode = iota
	// Mono mode - only one voice active at a time
	ModeMono
	// Legato mode - mono with no retriggering on overlapping notes
	ModeLegato
	// Unison mode - all voices play the same note
	ModeUnison
)

// StealingMode defines how voices are stolen when all are in use
type StealingMode int

const (
	// StealOldest steals the oldest playing voice
	StealOldest StealingMode = iota
	// StealQuietest steals the voice with lowest amplitude
	StealQuietest
	// StealHighest steals the highest pitched voice
	StealHighest
	// StealLowest steals the lowest pitched voice
	StealLowest
	// StealNone doesn't steal - new notes are ignored when full
	StealNone
)

// Voice represents a single voice in the synthesizer
type Voice interface {
	// IsActive returns true if the voice is currently playing
	IsActive() bool
	// GetNote returns the MIDI note number this voice is playing
	GetNote() uint8
	// GetAmplitude returns the current amplitude (for steal quietest)
	GetAmplitude() float64
	// GetAge returns how long this voice has been playing (in samples)
	GetAge() int64
	// StartNote starts playing the note-on event
	StartNote(e midi.Event)
	// ReleaseNote releases the note
	ReleaseNote()
	// Stop immediately stops the voice
	Stop()
}

// GlideVoice is implemented by voices that can change pitch without
// retriggering, used in legato mode.
type GlideVoice interface {
	Voice
	GlideTo(e midi.Event, seconds float64)
}

// Allocator maps note events to voices. Voices are tracked by the event ID
// of the note-on that started them, so a note-off releases exactly those
// voices even when the same key is played twice. Handling an event does not
// allocate.
type Allocator struct {
	voices        []Voice
	voiceIDs      []uint16 // event ID per voice, 0 when free
	sustained     []bool
	mode          AllocationMode
	stealingMode  StealingMode
	maxVoices     int
	lastTriggered int
	sustainPedal  bool

	// Unison mode settings
	unisonDetune float64

	// Mono/Legato mode state
	held        midi.EventStack
	glideTime   float64
	glideActive bool
}

// NewAllocator creates a new voice allocator
func NewAllocator(voices []Voice) *Allocator {
	return &Allocator{
		voices:       voices,
		voiceIDs:     make([]uint16, len(voices)),
		sustained:    make([]bool, len(voices)),
		mode:         ModePoly,
		stealingMode: StealOldest,
		maxVoices:    len(voices),
	}
}

// SetMode sets the allocation mode
func (a *Allocator) SetMode(mode AllocationMode) {
	a.mode = mode
	// Reset all voices when changing mode
	a.Reset()
}

// SetStealingMode sets the voice stealing mode
func (a *Allocator) SetStealingMode(mode StealingMode) {
	a.stealingMode = mode
}

// SetMaxVoices sets the maximum number of active voices
func (a *Allocator) SetMaxVoices(max int) {
	if max > len(a.voices) {
		max = len(a.voices)
	}
	if max < 1 {
		max = 1
	}
	a.maxVoices = max
}

// SetUnisonDetune sets the total detune spread for unison mode (in cents)
func (a *Allocator) SetUnisonDetune(cents float64) {
	a.unisonDetune = cents
}

// SetGlideTime sets the glide time for legato mode (in seconds)
func (a *Allocator) SetGlideTime(seconds float64) {
	a.glideTime = seconds
}

// ProcessEvent handles a single event. It reports whether the event was
// consumed.
func (a *Allocator) ProcessEvent(e midi.Event) bool {
	switch e.Type() {
	case midi.EventTypeNoteOn:
		a.NoteOn(e)
	case midi.EventTypeNoteOff:
		a.NoteOff(e)
	case midi.EventTypeAllNotesOff:
		a.ReleaseAll()
	case midi.EventTypeController:
		if !e.IsControllerOfType(int(midi.CCSustain)) {
			return false
		}
		a.SetSustainPedal(e.ControllerValue() >= 64)
	default:
		return false
	}
	return true
}

// ProcessBuffer feeds every event of b that is not yet ignored to the
// allocator and marks the consumed ones ignored. It returns the number of
// consumed events.
func (a *Allocator) ProcessBuffer(b *midi.EventBuffer) int {
	consumed := 0
	it := midi.NewIterator(b)
	for e := it.GetNextEventPointer(true, false); e != nil; e = it.GetNextEventPointer(true, false) {
		if a.ProcessEvent(*e) {
			e.Ignore(true)
			consumed++
		}
	}
	return consumed
}

// NoteOn handles a note on event
func (a *Allocator) NoteOn(e midi.Event) {
	switch a.mode {
	case ModePoly:
		a.noteOnPoly(e)
	case ModeMono:
		a.noteOnMono(e)
	case ModeLegato:
		a.noteOnLegato(e)
	case ModeUnison:
		a.noteOnUnison(e)
	}
}

// NoteOff handles a note off event
func (a *Allocator) NoteOff(e midi.Event) {
	switch a.mode {
	case ModePoly, ModeUnison:
		a.releaseEventID(e.EventID())
	case ModeMono, ModeLegato:
		a.noteOffMono(e)
	}
}

// ReleaseAll releases every playing voice, honouring the sustain pedal.
func (a *Allocator) ReleaseAll() {
	a.held.Clear()
	for i := 0; i < a.maxVoices; i++ {
		if a.voiceIDs[i] != 0 {
			a.releaseVoice(i)
		}
	}
	a.glideActive = false
}

// SetSustainPedal sets the sustain pedal state
func (a *Allocator) SetSustainPedal(on bool) {
	a.sustainPedal = on
	if on {
		return
	}
	// Release all sustained voices
	for i, s := range a.sustained {
		if s {
			a.sustained[i] = false
			a.voices[i].ReleaseNote()
			a.voiceIDs[i] = 0
		}
	}
}

// Reset stops all voices and clears allocations
func (a *Allocator) Reset() {
	for i, voice := range a.voices {
		voice.Stop()
		a.voiceIDs[i] = 0
		a.sustained[i] = false
	}
	a.held.Clear()
	a.sustainPedal = false
	a.glideActive = false
}

// GetActiveVoiceCount returns the number of active voices
func (a *Allocator) GetActiveVoiceCount() int {
	count := 0
	for _, voice := range a.voices[:a.maxVoices] {
		if voice.IsActive() {
			count++
		}
	}
	return count
}

// IsGliding reports whether the legato voice is gliding to a new note.
func (a *Allocator) IsGliding() bool { return a.glideActive }

// VoicesForEventID returns how many active voices were started by the
// note-on with the given event ID.
func (a *Allocator) VoicesForEventID(id uint16) int {
	count := 0
	for i := 0; i < a.maxVoices; i++ {
		if a.voiceIDs[i] == id && a.voices[i].IsActive() {
			count++
		}
	}
	return count
}

func (a *Allocator) startVoice(idx int, e midi.Event) {
	a.voices[idx].StartNote(e)
	a.voiceIDs[idx] = e.EventID()
	a.sustained[idx] = false
}

func (a *Allocator) releaseVoice(idx int) {
	if a.sustainPedal {
		a.sustained[idx] = true
		return
	}
	a.voices[idx].ReleaseNote()
	a.voiceIDs[idx] = 0
}

func (a *Allocator) releaseEventID(id uint16) {
	for i := 0; i < a.maxVoices; i++ {
		if a.voiceIDs[i] == id && a.voices[i].IsActive() {
			a.releaseVoice(i)
		}
	}
}

// noteOnPoly handles poly mode note on
func (a *Allocator) noteOnPoly(e midi.Event) {
	voiceIdx := a.findFreeVoice()
	if voiceIdx == -1 {
		// No free voice, try stealing
		voiceIdx = a.stealVoice()
		if voiceIdx == -1 {
			return
		}
	}
	a.startVoice(voiceIdx, e)
}

// noteOnMono handles mono mode note on: last note priority, the held notes
// are remembered so releasing the newest returns to the previous one.
func (a *Allocator) noteOnMono(e midi.Event) {
	a.held.Push(e)
	if a.voices[0].IsActive() {
		a.voices[0].Stop()
	}
	a.startVoice(0, e)
}

// noteOnLegato handles legato mode note on
func (a *Allocator) noteOnLegato(e midi.Event) {
	if a.held.Len() == 0 || !a.voices[0].IsActive() {
		// First note, trigger normally
		a.held.Clear()
		a.noteOnMono(e)
		return
	}

	a.held.Push(e)
	a.glideTo(e)
}

func (a *Allocator) glideTo(e midi.Event) {
	a.voiceIDs[0] = e.EventID()
	a.glideActive = true
	if gv, ok := a.voices[0].(GlideVoice); ok {
		gv.GlideTo(e, a.glideTime)
	}
}

// noteOffMono handles mono/legato mode note off
func (a *Allocator) noteOffMono(e midi.Event) {
	id := e.EventID()
	a.held.PopNoteOnForEventID(id)
	if a.voiceIDs[0] != id {
		return
	}

	if prev := a.held.Peek(); prev != nil {
		if a.mode == ModeLegato {
			a.glideTo(*prev)
		} else {
			a.startVoice(0, *prev)
		}
		return
	}

	a.releaseVoice(0)
	a.glideActive = false
}

// noteOnUnison handles unison mode note on; the voices are spread
// symmetrically over the unison detune.
func (a *Allocator) noteOnUnison(e midi.Event) {
	n := a.maxVoices
	for i := 0; i < n; i++ {
		v := e
		if n > 1 && a.unisonDetune != 0 {
			spread := (float64(i)/float64(n-1))*2 - 1
			v.SetFineDetune(e.FineDetune() + int(spread*a.unisonDetune/2))
		}
		a.startVoice(i, v)
	}
}

// findFreeVoice finds an inactive voice
func (a *Allocator) findFreeVoice() int {
	// Use round-robin to distribute voices evenly
	start := a.lastTriggered
	for i := 0; i < a.maxVoices; i++ {
		idx := (start + i + 1) % a.maxVoices
		if !a.voices[idx].IsActive() {
			a.lastTriggered = idx
			return idx
		}
	}
	return -1
}

// stealVoice steals a voice based on the stealing mode
func (a *Allocator) stealVoice() int {
	if a.stealingMode == StealNone {
		return -1
	}

	var bestIdx = -1
	var bestValue float64

	for i := 0; i < a.maxVoices; i++ {
		if !a.voices[i].IsActive() {
			continue
		}

		switch a.stealingMode {
		case StealOldest:
			age := float64(a.voices[i].GetAge())
			if bestIdx == -1 || age > bestValue {
				bestIdx = i
				bestValue = age
			}
		case StealQuietest:
			amp := a.voices[i].GetAmplitude()
			if bestIdx == -1 || amp < bestValue {
				bestIdx = i
				bestValue = amp
			}
		case StealHighest:
			note := float64(a.voices[i].GetNote())
			if bestIdx == -1 || note > bestValue {
				bestIdx = i
				bestValue = note
			}
		case StealLowest:
			note := float64(a.voices[i].GetNote())
			if bestIdx == -1 || note < bestValue {
				bestIdx = i
				bestValue = note
			}
		}
	}

	if bestIdx != -1 {
		a.voices[bestIdx].Stop()
		a.voiceIDs[bestIdx] = 0
		a.sustained[bestIdx] = false
	}

	return bestIdx
}
