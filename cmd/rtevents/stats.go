package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/justyntemme/rtevents/pkg/framework/debug"
	"github.com/justyntemme/rtevents/pkg/framework/process"
	"github.com/justyntemme/rtevents/pkg/framework/voice"
	"github.com/justyntemme/rtevents/pkg/midi"
)

func newStatsCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "stats FILE",
		Short: "Summarise the events of a MIDI file and time their processing",
		Long: `Plays a Standard MIDI File through the block pipeline and a voice
allocator, then prints event counts per type, dropped events, voice usage
and the time spent per block.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStats(cmd, *cfg, args[0])
		},
	}
}

// stats collects the numbers printed by the stats command.
type stats struct {
	blocks     int
	events     int
	byType     [midi.EventTypeProgramChange + 1]int
	consumed   int
	peakVoices int
}

func runStats(cmd *cobra.Command, cfg Config, path string) error {
	log := cfg.NewLogger(cmd.ErrOrStderr())
	p, err := newPlayer(cfg, path, log)
	if err != nil {
		return err
	}

	counters := make([]countingVoice, cfg.Voices)
	voices := make([]voice.Voice, cfg.Voices)
	for i := range voices {
		voices[i] = &counters[i]
	}
	alloc := voice.NewAllocator(voices)
	profiler := debug.NewBlockProfiler(cfg.SampleRate, cfg.BlockSize)

	var s stats
	p.run(func(block int, ctx *process.Context) {
		s.blocks++

		stop := profiler.Start(debug.BlockSection)
		s.consumed += alloc.ProcessBuffer(ctx.Input())
		stop()

		for _, e := range ctx.GetAllInputEvents() {
			s.events++
			if int(e.Type()) < len(s.byType) {
				s.byType[e.Type()]++
			}
		}
		s.peakVoices = max(s.peakVoices, alloc.GetActiveVoiceCount())

		for i := range counters {
			counters[i].advance(ctx.NumSamples())
		}
	})
	profiler.UpdateLoad()

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "file:        %s\n", path)
	fmt.Fprintf(out, "duration:    %v\n", p.file.Duration())
	fmt.Fprintf(out, "blocks:      %d x %d samples\n", s.blocks, cfg.BlockSize)
	fmt.Fprintf(out, "events:      %d\n", s.events)
	for t, n := range s.byType {
		if n > 0 {
			fmt.Fprintf(out, "  %-13s %d\n", midi.EventType(t), n)
		}
	}
	fmt.Fprintf(out, "dropped:     %d\n", p.dropped)
	fmt.Fprintf(out, "consumed:    %d\n", s.consumed)
	fmt.Fprintf(out, "peak voices: %d of %d\n", s.peakVoices, cfg.Voices)
	fmt.Fprintln(out)
	fmt.Fprint(out, profiler.BlockReport())

	return nil
}

// countingVoice is a silent voice; the allocator only needs its state.
type countingVoice struct {
	active bool
	note   uint8
	age    int64
}

func (v *countingVoice) IsActive() bool        { return v.active }
func (v *countingVoice) GetNote() uint8        { return v.note }
func (v *countingVoice) GetAmplitude() float64 { return 1 }
func (v *countingVoice) GetAge() int64         { return v.age }
func (v *countingVoice) StartNote(e midi.Event) {
	v.active = true
	v.note = uint8(e.NoteNumber())
	v.age = 0
}
func (v *countingVoice) ReleaseNote() { v.active = false }
func (v *countingVoice) Stop()        { v.active = false }

func (v *countingVoice) advance(numSamples int) {
	if v.active {
		v.age += int64(numSamples)
	}
}
