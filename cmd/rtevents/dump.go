package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/justyntemme/rtevents/pkg/framework/process"
	"github.com/justyntemme/rtevents/pkg/midi"
)

func newDumpCmd(cfg *Config) *cobra.Command {
	return &cobra.Command{
		Use:   "dump FILE",
		Short: "Print the events of every block of a MIDI file",
		Long: `Reads a Standard MIDI File, slices it into processing blocks and prints
the events each block delivers after event IDs are assigned.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDump(cmd, *cfg, args[0])
		},
	}
}

func runDump(cmd *cobra.Command, cfg Config, path string) error {
	log := cfg.NewLogger(cmd.ErrOrStderr())
	p, err := newPlayer(cfg, path, log)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	p.run(func(block int, ctx *process.Context) {
		if ctx.Input().IsEmpty() {
			return
		}
		fmt.Fprintf(out, "block %d @%d\n", block, block*cfg.BlockSize)

		if cfg.SubBlock <= 0 {
			p.visible(ctx.Input(), func(e midi.Event) { writeEvent(out, "  ", e) })
			return
		}

		ctx.ProcessSubBlocks(cfg.SubBlock, func(offset, numSamples int, events *midi.EventBuffer) {
			if events.IsEmpty() {
				return
			}
			fmt.Fprintf(out, "  sub-block +%d (%d samples)\n", offset, numSamples)
			p.visible(events, func(e midi.Event) { writeEvent(out, "    ", e) })
		})
	})

	return nil
}

func writeEvent(w io.Writer, indent string, e midi.Event) {
	var flags []string
	if e.IsArtificial() {
		flags = append(flags, "artificial")
	}
	if e.IsIgnored() {
		flags = append(flags, "ignored")
	}

	fmt.Fprintf(w, "%s%6d  %-13s ch %2d  num %3d  val %3d  id %5d",
		indent, e.Timestamp(), e.Type(), e.Channel(), e.Number(), e.Value(), e.EventID())
	if len(flags) > 0 {
		fmt.Fprintf(w, "  [%s]", strings.Join(flags, ","))
	}
	fmt.Fprintln(w)
}
