package main

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/pflag"

	"github.com/justyntemme/rtevents/pkg/framework/debug"
	"github.com/justyntemme/rtevents/pkg/midi"
	"github.com/justyntemme/rtevents/pkg/midifile"
)

// Config holds the settings shared by all subcommands.
type Config struct {
	SampleRate     float64
	BlockSize      int
	SubBlock       int
	SkipIgnored    bool
	SkipArtificial bool
	Track          int
	Voices         int
	LogLevel       string
	LogJSON        bool
}

// DefaultConfig returns the settings used when no flag is given.
func DefaultConfig() Config {
	return Config{
		SampleRate: 44100,
		BlockSize:  512,
		Track:      midifile.AllTracks,
		Voices:     16,
		LogLevel:   "warn",
	}
}

// BindFlags registers the config fields on fs, using the current values
// as defaults.
func (c *Config) BindFlags(fs *pflag.FlagSet) {
	fs.Float64Var(&c.SampleRate, "sample-rate", c.SampleRate, "Sample rate used to place events")
	fs.IntVarP(&c.BlockSize, "block-size", "b", c.BlockSize, "Samples per processing block")
	fs.IntVar(&c.SubBlock, "sub-block", c.SubBlock, "Split blocks at this raster (0 = no splitting)")
	fs.BoolVar(&c.SkipIgnored, "skip-ignored", c.SkipIgnored, "Hide events marked as ignored")
	fs.BoolVar(&c.SkipArtificial, "skip-artificial", c.SkipArtificial, "Hide generated events")
	fs.IntVarP(&c.Track, "track", "t", c.Track, "Only read this track (-1 = all tracks)")
	fs.IntVar(&c.Voices, "voices", c.Voices, "Voices of the allocator used by stats")
	fs.StringVar(&c.LogLevel, "log-level", c.LogLevel, "Log level: debug, info, warn, error or off")
	fs.BoolVar(&c.LogJSON, "log-json", c.LogJSON, "Write logs as JSON")
}

// Validate checks the settings.
func (c Config) Validate() error {
	var errs []error

	if c.SampleRate <= 0 {
		errs = append(errs, fmt.Errorf("sample rate must be positive, got %v", c.SampleRate))
	}
	if c.BlockSize <= 0 {
		errs = append(errs, fmt.Errorf("block size must be positive, got %d", c.BlockSize))
	} else if c.BlockSize > midi.MaxTimestamp {
		errs = append(errs, fmt.Errorf("block size %d exceeds the largest timestamp", c.BlockSize))
	}
	if c.SubBlock < 0 {
		errs = append(errs, fmt.Errorf("sub-block raster must not be negative, got %d", c.SubBlock))
	}
	if c.Track < midifile.AllTracks {
		errs = append(errs, fmt.Errorf("invalid track %d", c.Track))
	}
	if c.Voices <= 0 {
		errs = append(errs, fmt.Errorf("voices must be positive, got %d", c.Voices))
	}
	if _, err := debug.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// FileOptions returns the options for reading a MIDI file.
func (c Config) FileOptions() midifile.Options {
	return midifile.Options{SampleRate: c.SampleRate, Track: c.Track}
}

// NewLogger creates the logger selected by the log flags.
func (c Config) NewLogger(out io.Writer) *debug.Logger {
	flags := debug.FlagLevel | debug.FlagPrefix
	if c.LogJSON {
		flags |= debug.FlagJSON | debug.FlagTime
	}
	logger := debug.New(out, "rtevents", flags)

	level, err := debug.ParseLevel(c.LogLevel)
	if err != nil {
		level = debug.LogLevelWarn
	}
	logger.SetLevel(level)
	return logger
}
