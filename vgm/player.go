package vgm

import (
	"github.com/user-none/opn2/emu"
	"github.com/user-none/opn2/log"
)

// Player feeds a parsed VGM stream into an OPN2 host driver. Waits in the
// 44100 Hz VGM timebase are converted to master clocks with an exact
// remainder so long files do not drift.
type Player struct {
	chip *emu.OPN2
	file *File
	log  log.Logger

	pos    int
	pcmPos int
	wait   uint32

	loops       int
	loopsPlayed int
	// waited records whether any time passed since the last loop point.
	waited bool

	clockRem uint64
	elapsed  uint64
	done     bool
}

// Option configures a Player.
type Option func(*Player)

// WithLogger sets the logger used for playback diagnostics.
func WithLogger(l log.Logger) Option {
	return func(p *Player) {
		p.log = l
	}
}

// WithLoops sets how many times the loop section is repeated after the
// first pass. Files without a loop point ignore it.
func WithLoops(n int) Option {
	return func(p *Player) {
		if n < 0 {
			n = 0
		}
		p.loops = n
	}
}

// NewPlayer creates a player for f driving chip.
func NewPlayer(chip *emu.OPN2, f *File, opts ...Option) *Player {
	p := &Player{
		chip: chip,
		file: f,
		log:  log.NewNullLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Done reports whether the stream has ended.
func (p *Player) Done() bool {
	return p.done
}

// Elapsed returns the number of VGM samples played.
func (p *Player) Elapsed() uint64 {
	return p.elapsed
}

// Loops returns the number of completed loop repeats.
func (p *Player) Loops() int {
	return p.loopsPlayed
}

// Duration returns the total play length in VGM samples for the configured
// loop count.
func (p *Player) Duration() uint64 {
	h := p.file.Header
	d := uint64(h.TotalSamples)
	if p.file.LoopIndex >= 0 {
		d += uint64(h.LoopSamples) * uint64(p.loops)
	}
	return d
}

// Advance plays n VGM samples, executing commands as their waits expire.
// It stops early once the stream is done.
func (p *Player) Advance(n uint32) {
	for n > 0 && !p.done {
		if p.wait == 0 {
			p.execute()
			continue
		}
		step := p.wait
		if step > n {
			step = n
		}
		p.runSamples(step)
		p.wait -= step
		n -= step
	}
}

// execute runs commands until one introduces a wait or the stream ends.
func (p *Player) execute() {
	events := p.file.Events
	for p.wait == 0 && !p.done {
		if p.pos >= len(events) {
			p.loopOrEnd()
			continue
		}
		ev := events[p.pos]
		p.pos++

		switch ev.Kind {
		case EventWrite:
			p.chip.WriteRegister(ev.Part, ev.Addr, ev.Val)
		case EventWait:
			p.wait = ev.Samples
		case EventDAC:
			if p.pcmPos < len(p.file.PCM) {
				p.chip.WriteRegister(0, 0x2A, p.file.PCM[p.pcmPos])
				p.pcmPos++
			}
			p.wait = ev.Samples
		case EventSeek:
			p.pcmPos = int(ev.Offset)
			if p.pcmPos > len(p.file.PCM) {
				p.log.Errorf("PCM seek 0x%X past data bank of %d bytes", ev.Offset, len(p.file.PCM))
			}
		case EventEnd:
			p.loopOrEnd()
		}
		if p.wait > 0 {
			p.waited = true
		}
	}
}

func (p *Player) loopOrEnd() {
	if p.file.LoopIndex < 0 || p.loopsPlayed >= p.loops {
		p.done = true
		return
	}
	if !p.waited {
		p.log.Errorf("loop section has no waits, stopping")
		p.done = true
		return
	}
	p.loopsPlayed++
	p.pos = p.file.LoopIndex
	p.waited = false
	p.log.Debugf("loop %d of %d", p.loopsPlayed, p.loops)
}

// runSamples clocks the chip for n VGM samples.
func (p *Player) runSamples(n uint32) {
	total := p.clockRem + uint64(n)*uint64(p.chip.ClockHz())
	clocks := total / SampleRate
	p.clockRem = total % SampleRate
	p.chip.GenerateSamples(int(clocks))
	p.elapsed += uint64(n)
}
