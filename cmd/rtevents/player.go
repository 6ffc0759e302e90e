package main

import (
	"fmt"

	"github.com/justyntemme/rtevents/pkg/framework/debug"
	"github.com/justyntemme/rtevents/pkg/framework/process"
	"github.com/justyntemme/rtevents/pkg/midi"
	"github.com/justyntemme/rtevents/pkg/midifile"
)

// player feeds a MIDI file through a process context one block at a time,
// the way a host would call the audio callback.
type player struct {
	cfg     Config
	file    *midifile.File
	blocks  []*midi.MessageBuffer
	ctx     *process.Context
	log     *debug.Logger
	dropped int
}

func newPlayer(cfg Config, path string, log *debug.Logger) (*player, error) {
	f, err := midifile.Open(path, cfg.FileOptions())
	if err != nil {
		return nil, err
	}

	blocks, err := f.Blocks(cfg.BlockSize)
	if err != nil {
		return nil, fmt.Errorf("slice %s: %w", path, err)
	}

	log.Debug("read %s: %d messages in %d blocks, %d tempo changes", path, len(f.Messages), len(blocks), f.TempoChanges)

	return &player{
		cfg:    cfg,
		file:   f,
		blocks: blocks,
		ctx:    process.NewContext(cfg.SampleRate, cfg.BlockSize),
		log:    log,
	}, nil
}

// run calls visit for every block between BeginBlock and EndBlock. Drops
// are logged after the block.
func (p *player) run(visit func(block int, ctx *process.Context)) {
	for i, b := range p.blocks {
		p.ctx.BeginBlock(b, p.cfg.BlockSize)
		visit(i, p.ctx)
		p.ctx.EndBlock()

		if n := p.ctx.Dropped(); n > 0 {
			p.log.WithLevel(debug.LogLevelWarn).
				Int("block", i).
				Int("dropped", n).
				Msg("event buffer overflow")
			p.dropped += n
			p.ctx.ResetDropped()
		}
	}

	if n := p.ctx.Future().Len(); n > 0 {
		p.log.Warn("%d events scheduled past the end of the file", n)
	}
}

// visible iterates the events of b that pass the skip flags.
func (p *player) visible(b *midi.EventBuffer, fn func(e midi.Event)) {
	it := midi.NewIterator(b)
	for {
		e, ok := it.GetNextConstEvent(p.cfg.SkipIgnored, p.cfg.SkipArtificial)
		if !ok {
			return
		}
		fn(e)
	}
}
