package cli

import (
	"fmt"

	"github.com/spf13/afero"

	"github.com/user-none/opn2/emu"
	"github.com/user-none/opn2/log"
	"github.com/user-none/opn2/script"
	"github.com/user-none/opn2/vgm"
)

// Source produces native-rate chip output for the runner.
type Source interface {
	// Chip returns the chip being driven.
	Chip() *emu.OPN2
	// Render returns up to n stereo frames, interleaved. Fewer are
	// returned only once the source runs out. The slice is reused by the
	// next call.
	Render(n int) []int16
	// Done reports whether all output has been returned.
	Done() bool
	// Length is the expected output in native frames, 0 if unknown.
	Length() uint64
	Close()
}

// OpenSource loads the input named by cfg and prepares a chip for it.
func OpenSource(fs afero.Fs, cfg Config, logger log.Logger) (Source, error) {
	variant, err := cfg.Variant()
	if err != nil {
		return nil, err
	}

	switch InputKind(cfg.Input) {
	case "vgm":
		data, err := afero.ReadFile(fs, cfg.Input)
		if err != nil {
			return nil, fmt.Errorf("failed to read input: %w", err)
		}
		f, err := vgm.Parse(data)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", cfg.Input, err)
		}
		clock := cfg.Clock
		if clock == 0 {
			clock = int(f.Header.YM2612Clock)
		}
		if clock == 0 {
			logger.Errorf("%s has no OPN2 clock, using %d Hz", cfg.Input, emu.DefaultClockHz)
			clock = emu.DefaultClockHz
		}
		if f.Tags.Track != "" || f.Tags.Game != "" {
			logger.Infof("%s - %s", f.Tags.Game, f.Tags.Track)
		}
		logger.Debugf("VGM %x: %d events, %d PCM bytes, %d other-chip commands, clock %d Hz",
			f.Header.Version, len(f.Events), len(f.PCM), f.Skipped, clock)

		chip := emu.NewOPN2(variant, clock)
		player := vgm.NewPlayer(chip, f, vgm.WithLogger(logger), vgm.WithLoops(cfg.Loops))
		return &vgmSource{chip: chip, player: player}, nil

	case "lua":
		clock := cfg.Clock
		if clock == 0 {
			clock = emu.DefaultClockHz
		}
		chip := emu.NewOPN2(variant, clock)
		r := script.NewRunner(chip, script.WithLogger(logger))
		defer r.Close()
		if err := r.RunFile(fs, cfg.Input); err != nil {
			return nil, err
		}
		logger.Debugf("script rendered %d samples", r.Rendered())
		return &scriptSource{chip: chip, samples: r.TakeSamples()}, nil
	}
	return nil, fmt.Errorf("unsupported input %q", cfg.Input)
}

// vgmSource renders a VGM stream on demand.
type vgmSource struct {
	chip    *emu.OPN2
	player  *vgm.Player
	pending []int16
	out     []int16
}

func (s *vgmSource) Chip() *emu.OPN2 {
	return s.chip
}

func (s *vgmSource) Render(n int) []int16 {
	rate := s.chip.SampleRate()
	for len(s.pending) < 2*n && !s.player.Done() {
		need := n - len(s.pending)/2
		// ceil(need * 44100 / rate) VGM samples covers at least need frames
		step := (need*vgm.SampleRate + rate - 1) / rate
		if step < 1 {
			step = 1
		}
		s.player.Advance(uint32(step))
		s.pending = append(s.pending, s.chip.GetBuffer()...)
	}

	k := 2 * n
	if k > len(s.pending) {
		k = len(s.pending)
	}
	s.out = append(s.out[:0], s.pending[:k]...)
	s.pending = s.pending[:copy(s.pending, s.pending[k:])]
	return s.out
}

func (s *vgmSource) Done() bool {
	return s.player.Done() && len(s.pending) == 0
}

func (s *vgmSource) Length() uint64 {
	return s.player.Duration() * uint64(s.chip.SampleRate()) / vgm.SampleRate
}

func (s *vgmSource) Close() {}

// scriptSource serves audio a Lua script rendered up front.
type scriptSource struct {
	chip    *emu.OPN2
	samples []int16
	pos     int
}

func (s *scriptSource) Chip() *emu.OPN2 {
	return s.chip
}

func (s *scriptSource) Render(n int) []int16 {
	end := s.pos + 2*n
	if end > len(s.samples) {
		end = len(s.samples)
	}
	out := s.samples[s.pos:end]
	s.pos = end
	return out
}

func (s *scriptSource) Done() bool {
	return s.pos >= len(s.samples)
}

func (s *scriptSource) Length() uint64 {
	return uint64(len(s.samples) / 2)
}

func (s *scriptSource) Close() {}
