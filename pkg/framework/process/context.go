// Package process provides the per-block event context for real-time processing.
package process

import (
	"slices"

	"github.com/justyntemme/rtevents/pkg/framework/eventid"
	"github.com/justyntemme/rtevents/pkg/midi"
)

// EventProcessor consumes events. ProcessEvent reports whether the event
// was handled; handled events are marked ignored so later processors skip
// them.
type EventProcessor interface {
	ProcessEvent(e midi.Event) bool
}

// Context provides a clean API for block processing with zero allocations.
//
// A block starts with BeginBlock and ends with EndBlock. In between, the
// input buffer holds the block's events in timestamp order with event IDs
// assigned. Events scheduled past the end of the block are carried over in
// the future buffer and delivered, rebased, in a later block.
type Context struct {
	SampleRate float64

	maxBlockSize int
	numSamples   int

	input  midi.EventBuffer
	output midi.EventBuffer
	future midi.EventBuffer

	// Sub-block splitting works on a copy so the input stays intact.
	scratch  midi.EventBuffer
	subBlock midi.EventBuffer

	ids *eventid.Handler
}

// NewContext creates a new process context with pre-allocated buffers
func NewContext(sampleRate float64, maxBlockSize int) *Context {
	c := &Context{
		SampleRate:   sampleRate,
		maxBlockSize: maxBlockSize,
	}
	c.ids = eventid.NewHandler(&c.input)
	return c
}

// NumSamples returns the number of samples of the current block
func (c *Context) NumSamples() int {
	return c.numSamples
}

// MaxBlockSize returns the largest block the context was set up for
func (c *Context) MaxBlockSize() int {
	return c.maxBlockSize
}

// IDs returns the event ID handler bound to the input buffer
func (c *Context) IDs() *eventid.Handler {
	return c.ids
}

// Input returns the input buffer of the current block
func (c *Context) Input() *midi.EventBuffer { return &c.input }

// Output returns the output buffer of the current block
func (c *Context) Output() *midi.EventBuffer { return &c.output }

// Future returns the events carried over to later blocks
func (c *Context) Future() *midi.EventBuffer { return &c.future }

// BeginBlock loads the messages of the next block. Messages are converted
// into the input buffer, given event IDs, and merged with the events
// carried over from earlier blocks. Events at or after numSamples move to
// the future buffer. Blocks larger than the configured maximum are
// truncated.
func (c *Context) BeginBlock(messages midi.MessageSource, numSamples int) {
	if c.maxBlockSize > 0 && numSamples > c.maxBlockSize {
		numSamples = c.maxBlockSize
	}
	c.numSamples = numSamples

	c.output.Clear()
	c.input.AddMessages(messages)
	c.ids.HandleEventIDs()

	c.future.MoveEventsBelow(&c.input, numSamples)
	c.input.MoveEventsAbove(&c.future, numSamples)
}

// EndBlock rebases the carried events onto the next block.
func (c *Context) EndBlock() {
	c.future.SubtractFromTimestamps(c.numSamples)
}

// ProcessSubBlocks splits the block at multiples of raster and calls fn for
// each piece with its offset, its length and its events. Timestamps passed
// to fn are relative to the start of the piece. The input buffer is left
// unchanged.
func (c *Context) ProcessSubBlocks(raster int, fn func(offset, numSamples int, events *midi.EventBuffer)) {
	if raster <= 0 {
		raster = c.numSamples
	}

	c.scratch.CopyFrom(&c.input)
	for offset := 0; offset < c.numSamples; offset += raster {
		n := min(raster, c.numSamples-offset)

		c.subBlock.Clear()
		c.scratch.MoveEventsBelow(&c.subBlock, offset+n)
		c.subBlock.SubtractFromTimestamps(offset)

		fn(offset, n, &c.subBlock)
	}
	c.subBlock.Clear()
	c.scratch.Clear()
}

// AddInputEvent adds an event to the input buffer
func (c *Context) AddInputEvent(e midi.Event) error {
	return c.input.AddEvent(e)
}

// GetInputEvents returns the input events in the sample range [start, end).
// The result aliases the input buffer.
func (c *Context) GetInputEvents(start, end int) []midi.Event {
	events := c.input.Events()
	lo := searchTimestamp(events, start)
	hi := searchTimestamp(events, end)
	return events[lo:hi]
}

func searchTimestamp(events []midi.Event, ts int) int {
	i, _ := slices.BinarySearchFunc(events, ts, func(e midi.Event, ts int) int {
		if e.Timestamp() < ts {
			return -1
		}
		return 1
	})
	return i
}

// HasInputEvents returns true if there are input events
func (c *Context) HasInputEvents() bool {
	return !c.input.IsEmpty()
}

// GetAllInputEvents returns all input events of the block
func (c *Context) GetAllInputEvents() []midi.Event {
	return c.input.Events()
}

// ProcessEvents passes the input events in [start, end) that are not yet
// ignored to p and marks the handled ones ignored. It returns the number
// of handled events.
func (c *Context) ProcessEvents(p EventProcessor, start, end int) int {
	handled := 0
	it := midi.NewIterator(&c.input)
	for e := it.GetNextEventPointer(true, false); e != nil; e = it.GetNextEventPointer(true, false) {
		ts := e.Timestamp()
		if ts < start {
			continue
		}
		if ts >= end {
			break
		}
		if p.ProcessEvent(*e) {
			e.Ignore(true)
			handled++
		}
	}
	return handled
}

// AddOutputEvent adds an event to the output buffer
func (c *Context) AddOutputEvent(e midi.Event) error {
	return c.output.AddEvent(e)
}

// GetOutputEvents returns the output events of the block
func (c *Context) GetOutputEvents() []midi.Event {
	return c.output.Events()
}

// ClearInputEvents clears the input buffer
func (c *Context) ClearInputEvents() {
	c.input.Clear()
}

// ClearOutputEvents clears the output buffer
func (c *Context) ClearOutputEvents() {
	c.output.Clear()
}

// ClearAllEvents clears input, output and carried events
func (c *Context) ClearAllEvents() {
	c.input.Clear()
	c.output.Clear()
	c.future.Clear()
}

// Dropped returns how many events were lost for lack of buffer space since
// the last ResetDropped.
func (c *Context) Dropped() int {
	return c.input.Dropped() + c.output.Dropped() + c.future.Dropped() + c.subBlock.Dropped()
}

// ResetDropped clears the drop counters of all buffers
func (c *Context) ResetDropped() {
	c.input.ResetDropped()
	c.output.ResetDropped()
	c.future.ResetDropped()
	c.subBlock.ResetDropped()
}
