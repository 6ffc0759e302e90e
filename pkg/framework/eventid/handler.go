// Package eventid assigns event IDs to the notes of a master event buffer
// and correlates each note-off with the note-on it ends.
package eventid

import (
	"github.com/justyntemme/rtevents/pkg/midi"
)

const (
	// ArtificialSlots is the number of artificial note-ons that can be
	// tracked at once. Slots are addressed by event ID modulo this size.
	ArtificialSlots = 16384

	// MaxOverlapping is the number of overlapping note-ons (same channel
	// and key held more than once) that can be tracked.
	MaxOverlapping = 256

	numChannels = 16
	numNotes    = 128
)

// ChokeListener is notified when another listener of the same choke group
// starts a note. A zero group disables choking.
type ChokeListener interface {
	ChokeGroup() int
	ChokeMessageSent()
}

// Handler owns the event ID counter of one processing chain. It is not safe
// for concurrent use; call it from the audio thread only.
type Handler struct {
	master *midi.EventBuffer

	currentID uint16

	realNoteOns       [numChannels][numNotes]midi.Event
	lastArtificialIDs [numChannels][numNotes]uint16
	artificial        [ArtificialSlots]midi.Event

	overlapping    [MaxOverlapping]midi.Event
	numOverlapping int
	lostNoteOns    int

	chokeListeners []ChokeListener
}

// NewHandler creates a handler bound to the given master buffer.
func NewHandler(master *midi.EventBuffer) *Handler {
	return &Handler{
		master:    master,
		currentID: 1,
	}
}

// Master returns the buffer the handler assigns IDs in.
func (h *Handler) Master() *midi.EventBuffer { return h.master }

// LostNoteOns returns how many overlapping note-ons could not be tracked
// because the overlap list was full.
func (h *Handler) LostNoteOns() int { return h.lostNoteOns }

func (h *Handler) nextID() uint16 {
	id := h.currentID
	h.currentID++
	if h.currentID == 0 {
		h.currentID = 1
	}
	return id
}

func channelIndex(e *midi.Event) int {
	return min(numChannels-1, max(0, e.Channel()-1))
}

// noteSlot returns the per-key entry of table for e, or nil when the note
// number is outside the MIDI key range.
func noteSlot[T any](table *[numChannels][numNotes]T, channel int, e *midi.Event) *T {
	n := e.NoteNumber()
	if n < 0 || n >= numNotes {
		return nil
	}
	return &table[channel][n]
}

// HandleEventIDs walks the master buffer and assigns IDs. Each note-on gets
// a fresh ID, each note-off takes the ID and transpose amount of the note-on
// it ends. A note-off without a matching note-on gets a fresh ID and is
// marked ignored.
func (h *Handler) HandleEventIDs() {
	it := midi.NewIterator(h.master)
	for m := it.GetNextEventPointer(false, false); m != nil; m = it.GetNextEventPointer(false, false) {
		if m.IsArtificial() {
			continue
		}

		switch {
		case m.IsAllNotesOff():
			// Held notes stay resolvable by later note-offs.
			for c := range h.realNoteOns {
				for n := range h.realNoteOns[c] {
					if e := &h.realNoteOns[c][n]; !e.IsEmpty() {
						h.pushOverlapping(*e)
						e.Clear()
					}
				}
			}

		case m.IsNoteOn():
			m.SetEventID(h.nextID())
			slot := noteSlot(&h.realNoteOns, channelIndex(m), m)
			if slot == nil {
				continue
			}
			if slot.IsEmpty() {
				*slot = *m
			} else {
				h.pushOverlapping(*m)
			}

		case m.IsNoteOff():
			slot := noteSlot(&h.realNoteOns, channelIndex(m), m)
			if slot != nil && !slot.IsEmpty() {
				m.SetEventID(slot.EventID())
				m.SetTransposeAmount(slot.TransposeAmount())
				slot.Clear()
				continue
			}

			if on, ok := h.popOverlapping(m); ok {
				m.SetEventID(on.EventID())
				m.SetTransposeAmount(on.TransposeAmount())
				continue
			}

			m.SetEventID(h.nextID())
			m.Ignore(true)
		}
	}
}

func (h *Handler) pushOverlapping(e midi.Event) {
	if h.numOverlapping == MaxOverlapping {
		h.lostNoteOns++
		return
	}
	h.overlapping[h.numOverlapping] = e
	h.numOverlapping++
}

func (h *Handler) findOverlapping(off *midi.Event) int {
	for i := 0; i < h.numOverlapping; i++ {
		on := &h.overlapping[i]
		if on.NoteNumber() == off.NoteNumber() && on.Channel() == off.Channel() {
			return i
		}
	}
	return -1
}

func (h *Handler) popOverlapping(off *midi.Event) (midi.Event, bool) {
	i := h.findOverlapping(off)
	if i < 0 {
		return midi.Event{}, false
	}
	on := h.overlapping[i]
	copy(h.overlapping[i:h.numOverlapping-1], h.overlapping[i+1:h.numOverlapping])
	h.numOverlapping--
	h.overlapping[h.numOverlapping] = midi.Event{}
	return on, true
}

// EventIDForNoteOff looks up the ID of the note-on a note-off would end,
// without consuming it. Artificial note-offs carry their own ID, or fall
// back to the last artificial note-on on the same channel and key. It
// returns 0 when nothing matches.
func (h *Handler) EventIDForNoteOff(off midi.Event) uint16 {
	if !off.IsNoteOff() {
		return 0
	}

	if off.IsArtificial() {
		if id := off.EventID(); id != 0 {
			return id
		}
		if last := noteSlot(&h.lastArtificialIDs, off.Channel()%numChannels, &off); last != nil {
			return *last
		}
		return 0
	}

	if on := noteSlot(&h.realNoteOns, channelIndex(&off), &off); on != nil && !on.IsEmpty() {
		return on.EventID()
	}
	if i := h.findOverlapping(&off); i >= 0 {
		return h.overlapping[i].EventID()
	}
	return 0
}

// PushArtificialNoteOn assigns a fresh ID to a generated note-on and keeps
// a copy so the matching note-off can be created later.
func (h *Handler) PushArtificialNoteOn(on *midi.Event) {
	if !on.IsNoteOn() {
		return
	}
	on.SetArtificial()
	id := h.nextID()
	on.SetEventID(id)
	h.artificial[int(id)%ArtificialSlots] = *on
	if last := noteSlot(&h.lastArtificialIDs, on.Channel()%numChannels, on); last != nil {
		*last = id
	}
}

// ReinsertArtificialNoteOn stores an artificial note-on again under the ID
// it already carries.
func (h *Handler) ReinsertArtificialNoteOn(on midi.Event) {
	if !on.IsNoteOn() || !on.IsArtificial() {
		return
	}
	h.artificial[int(on.EventID())%ArtificialSlots] = on
	if last := noteSlot(&h.lastArtificialIDs, on.Channel()%numChannels, &on); last != nil {
		*last = on.EventID()
	}
}

// PopNoteOnFromEventID removes and returns the artificial note-on stored
// under id. The result is empty when the slot is free.
func (h *Handler) PopNoteOnFromEventID(id uint16) midi.Event {
	slot := &h.artificial[int(id)%ArtificialSlots]
	e := *slot
	slot.Clear()
	return e
}

// IsArtificialEventID reports whether id belongs to a stored artificial
// note-on.
func (h *Handler) IsArtificialEventID(id uint16) bool {
	return !h.artificial[int(id)%ArtificialSlots].IsEmpty()
}

// AddChokeListener registers l once. Registration allocates, so do it
// during setup.
func (h *Handler) AddChokeListener(l ChokeListener) {
	for _, existing := range h.chokeListeners {
		if existing == l {
			return
		}
	}
	h.chokeListeners = append(h.chokeListeners, l)
}

func (h *Handler) RemoveChokeListener(l ChokeListener) {
	kept := h.chokeListeners[:0]
	for _, existing := range h.chokeListeners {
		if existing != l {
			kept = append(kept, existing)
		}
	}
	clear(h.chokeListeners[len(kept):])
	h.chokeListeners = kept
}

// SendChokeMessage notifies every other listener in the source's choke
// group. It does nothing when the source has no group.
func (h *Handler) SendChokeMessage(source ChokeListener, e midi.Event) {
	group := source.ChokeGroup()
	if group == 0 {
		return
	}
	for _, l := range h.chokeListeners {
		if l == nil || l == source || l.ChokeGroup() != group {
			continue
		}
		l.ChokeMessageSent()
	}
}
