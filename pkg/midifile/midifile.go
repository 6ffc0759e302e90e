// Package midifile reads Standard MIDI Files and slices them into the
// per-block message buffers a processing context consumes.
package midifile

import (
	"errors"
	"fmt"
	"io"
	"math"
	"time"

	"gitlab.com/gomidi/midi/v2/smf"

	"github.com/justyntemme/rtevents/pkg/midi"
)

// DefaultBPM is the tempo assumed until the first tempo meta event.
const DefaultBPM = 120.0

// AllTracks selects every track of a file.
const AllTracks = -1

var (
	// ErrTimeFormat is returned for files that do not use metric ticks.
	ErrTimeFormat = errors.New("midifile: only metric time formats are supported")

	// ErrBlockSize is returned for a block size below one sample.
	ErrBlockSize = errors.New("midifile: block size must be positive")
)

// Options control how a file is converted.
type Options struct {
	// SampleRate converts ticks to sample positions.
	SampleRate float64
	// Track limits the conversion to one track; AllTracks merges them.
	Track int
}

// DefaultOptions returns 44.1 kHz over all tracks.
func DefaultOptions() Options {
	return Options{SampleRate: 44100, Track: AllTracks}
}

// File is a MIDI file converted to sample positions.
type File struct {
	// Messages holds the channel messages of the selected tracks in
	// chronological order, positioned in samples from the start.
	Messages []midi.TimedMessage

	TicksPerQuarter uint16
	NumTracks       int
	TempoChanges    int
	SampleRate      float64

	// Length is the sample position of the last event, meta events
	// included.
	Length int
}

// Open reads and converts the file at path.
func Open(path string, opts Options) (*File, error) {
	mid, err := smf.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("midifile: read %s: %w", path, err)
	}
	f, err := FromSMF(mid, opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return f, nil
}

// Read reads and converts a file from r.
func Read(r io.Reader, opts Options) (*File, error) {
	mid, err := smf.ReadFrom(r)
	if err != nil {
		return nil, fmt.Errorf("midifile: read: %w", err)
	}
	return FromSMF(mid, opts)
}

// FromSMF converts a parsed file. Tempo changes of every track apply, even
// when a single track is selected.
func FromSMF(mid *smf.SMF, opts Options) (*File, error) {
	if opts.SampleRate <= 0 {
		return nil, fmt.Errorf("midifile: invalid sample rate %v", opts.SampleRate)
	}
	if opts.Track != AllTracks && (opts.Track < 0 || opts.Track >= len(mid.Tracks)) {
		return nil, fmt.Errorf("midifile: track %d out of range [0, %d)", opts.Track, len(mid.Tracks))
	}

	ticks, ok := mid.TimeFormat.(smf.MetricTicks)
	if !ok {
		return nil, ErrTimeFormat
	}

	f := &File{
		TicksPerQuarter: uint16(ticks),
		NumTracks:       len(mid.Tracks),
		SampleRate:      opts.SampleRate,
	}

	clock := newTempoClock(ticks.Ticks4th(), opts.SampleRate)

	err := forEachEventWithTime(mid, func(absTicks int64, track int, msg smf.Message) error {
		pos := clock.samplesAt(absTicks)
		f.Length = max(f.Length, pos)

		var bpm float64
		if msg.GetMetaTempo(&bpm) {
			clock.setTempo(absTicks, bpm)
			f.TempoChanges++
			return nil
		}
		if msg.IsMeta() {
			return nil
		}
		if opts.Track != AllTracks && track != opts.Track {
			return nil
		}

		f.Messages = append(f.Messages, midi.TimedMessage{
			Message:        midi.Message(msg),
			SamplePosition: pos,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}

	return f, nil
}

// Duration returns the length of the file in wall time.
func (f *File) Duration() time.Duration {
	return time.Duration(float64(f.Length) / f.SampleRate * float64(time.Second))
}

// NumBlocks returns the number of blocks of blockSize samples covering the
// whole file.
func (f *File) NumBlocks(blockSize int) int {
	if blockSize <= 0 {
		return 0
	}
	return f.Length/blockSize + 1
}

// Blocks slices the file into consecutive blocks of blockSize samples. Each
// buffer holds the messages of its block positioned relative to the block
// start; blocks without messages are empty buffers.
func (f *File) Blocks(blockSize int) ([]*midi.MessageBuffer, error) {
	if blockSize <= 0 {
		return nil, ErrBlockSize
	}

	blocks := make([]*midi.MessageBuffer, f.NumBlocks(blockSize))
	for i := range blocks {
		blocks[i] = midi.NewMessageBuffer(0)
	}
	for _, m := range f.Messages {
		blocks[m.SamplePosition/blockSize].Add(m.Message, m.SamplePosition%blockSize)
	}
	return blocks, nil
}

// tempoClock converts absolute ticks to sample positions across tempo
// changes.
type tempoClock struct {
	ticksPerQuarter float64
	sampleRate      float64

	bpm        float64
	anchorTick int64
	anchorSecs float64
}

func newTempoClock(ticksPerQuarter uint32, sampleRate float64) *tempoClock {
	return &tempoClock{
		ticksPerQuarter: float64(ticksPerQuarter),
		sampleRate:      sampleRate,
		bpm:             DefaultBPM,
	}
}

func (c *tempoClock) secondsAt(absTicks int64) float64 {
	beats := float64(absTicks-c.anchorTick) / c.ticksPerQuarter
	return c.anchorSecs + beats*60/c.bpm
}

func (c *tempoClock) samplesAt(absTicks int64) int {
	return int(math.Round(c.secondsAt(absTicks) * c.sampleRate))
}

func (c *tempoClock) setTempo(absTicks int64, bpm float64) {
	if bpm <= 0 {
		return
	}
	c.anchorSecs = c.secondsAt(absTicks)
	c.anchorTick = absTicks
	c.bpm = bpm
}

// forEachEventWithTime merges the tracks of mid by absolute tick and calls
// yield for every event but the end of track markers. Events at the same
// tick keep track order.
func forEachEventWithTime(mid *smf.SMF, yield func(absTicks int64, track int, msg smf.Message) error) error {
	// trackPos is the index of the next event of each track.
	trackPos := make([]int, len(mid.Tracks))
	// trackTime is the time of the last event of each track.
	trackTime := make([]int64, len(mid.Tracks))
	for {
		earliestTrack := -1
		var earliestTime int64
		for i, tr := range mid.Tracks {
			p := trackPos[i]
			if p >= len(tr) {
				continue
			}
			t := trackTime[i] + int64(tr[p].Delta)
			if earliestTrack < 0 || t < earliestTime {
				earliestTime = t
				earliestTrack = i
			}
		}
		if earliestTrack < 0 {
			return nil
		}

		msg := mid.Tracks[earliestTrack][trackPos[earliestTrack]].Message
		if !msg.Is(smf.MetaEndOfTrackMsg) {
			if err := yield(earliestTime, earliestTrack, msg); err != nil {
				return err
			}
		}
		trackPos[earliestTrack]++
		trackTime[earliestTrack] = earliestTime
	}
}
