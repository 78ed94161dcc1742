// Package cli provides the command-line runner for the chip.
// It pulls audio from a Source and either plays it live or renders it.
package cli

import (
	"fmt"
	"time"

	"github.com/user-none/opn2/emu"
	"github.com/user-none/opn2/log"
	"github.com/user-none/opn2/ui"
)

// blocksPerSecond sets the render block size for live playback pacing.
const blocksPerSecond = 60

// drainTimeout bounds the wait for queued audio after the source ends.
const drainTimeout = 2 * time.Second

// Runner renders a Source through the output stage (resampler, filter and
// volume) into live playback or a captured buffer.
// In play mode the chip runs on a dedicated goroutine with audio-driven
// timing.
type Runner struct {
	src       Source
	log       log.Logger
	resampler *emu.Resampler
	volume    float64
	outRate   int

	limit    uint64 // native frames, 0 for no limit
	rendered uint64

	capture  bool
	captured []int16

	audioPlayer *ui.AudioPlayer
	emuControl  *ui.EmuControl
	level       *ui.SharedLevel
	emuDone     chan struct{}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(l log.Logger) RunnerOption {
	return func(r *Runner) {
		r.log = l
	}
}

// WithCapture keeps a copy of everything played so it can be written out
// afterwards.
func WithCapture(capture bool) RunnerOption {
	return func(r *Runner) {
		r.capture = capture
	}
}

// NewRunner creates a runner for src using the output settings in cfg.
func NewRunner(src Source, cfg Config, opts ...RunnerOption) *Runner {
	native := src.Chip().SampleRate()
	r := &Runner{
		src:        src,
		log:        log.NewNullLogger(),
		volume:     cfg.Volume,
		outRate:    native,
		emuControl: ui.NewEmuControl(),
		level:      &ui.SharedLevel{},
	}
	for _, opt := range opts {
		opt(r)
	}

	if cfg.Rate != 0 {
		r.outRate = cfg.Rate
	}
	if cfg.Rate != 0 || cfg.Filter > 0 {
		r.resampler = emu.NewResampler(native, r.outRate, cfg.Filter)
	}
	if cfg.Seconds > 0 {
		r.limit = uint64(cfg.Seconds * float64(native))
	}
	return r
}

// OutputRate returns the rate of the produced audio.
func (r *Runner) OutputRate() int {
	return r.outRate
}

// TotalFrames returns the expected length in output frames, 0 if unknown.
func (r *Runner) TotalFrames() uint64 {
	n := r.src.Length()
	if r.limit > 0 && (n == 0 || r.limit < n) {
		n = r.limit
	}
	return n * uint64(r.outRate) / uint64(r.src.Chip().SampleRate())
}

// Level returns the output meter shared with the progress display.
func (r *Runner) Level() *ui.SharedLevel {
	return r.level
}

// Output returns the captured output at OutputRate.
func (r *Runner) Output() []int16 {
	return r.captured
}

// blockFrames is the number of native frames rendered per block.
func (r *Runner) blockFrames() int {
	n := r.src.Chip().SampleRate() / blocksPerSecond
	if n < 1 {
		n = 1
	}
	return n
}

// next renders one block through the output stage. more is false once the
// source or the time limit is exhausted.
func (r *Runner) next() (out []int16, more bool) {
	frames := r.blockFrames()
	if r.limit > 0 {
		if r.rendered >= r.limit {
			return nil, false
		}
		if remain := r.limit - r.rendered; uint64(frames) > remain {
			frames = int(remain)
		}
	}

	native := r.src.Render(frames)
	r.rendered += uint64(len(native) / 2)

	out = native
	if r.resampler != nil {
		out = r.resampler.Process(native)
	}
	emu.ScaleVolume(out, r.volume)
	r.level.Update(out)
	if r.capture {
		r.captured = append(r.captured, out...)
	}

	more = !r.src.Done() && (r.limit == 0 || r.rendered < r.limit)
	return out, more
}

// Render runs the source to completion as fast as possible, capturing the
// output. onBlock, if set, is called after every block.
func (r *Runner) Render(onBlock func()) []int16 {
	r.capture = true
	for {
		_, more := r.next()
		if onBlock != nil {
			onBlock()
		}
		if !more {
			break
		}
	}
	return r.captured
}

// Start opens the audio device and starts playback on its own goroutine.
func (r *Runner) Start() error {
	player, err := ui.NewAudioPlayer(r.outRate, 1.0)
	if err != nil {
		return fmt.Errorf("audio initialization failed: %w", err)
	}
	r.audioPlayer = player
	r.emuDone = make(chan struct{})

	go r.emulationLoop()
	return nil
}

// Done is closed when playback has finished.
func (r *Runner) Done() <-chan struct{} {
	return r.emuDone
}

// Pause and Resume suspend and continue live playback.
func (r *Runner) Pause() {
	r.emuControl.RequestPause()
}

func (r *Runner) Resume() {
	r.emuControl.RequestResume()
}

// Close cleans up the runner's resources.
func (r *Runner) Close() {
	// Stop emulation goroutine
	if r.emuDone != nil {
		r.emuControl.Stop()
		<-r.emuDone
	}

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
	r.src.Close()
}

// emulationLoop runs on a dedicated goroutine with audio-driven timing:
// block sleeps shrink when the device buffer runs low and grow when it
// runs high.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)

	blockTime := time.Duration(float64(time.Second) / blocksPerSecond)
	maxBuffer := ui.AudioTargetBytes(r.outRate)
	minBuffer := maxBuffer / 2
	lastBlockTime := time.Now()

	for {
		if !r.emuControl.CheckPause() {
			return
		}

		out, more := r.next()
		r.audioPlayer.QueueSamples(out)
		if !more {
			break
		}

		elapsed := time.Since(lastBlockTime)
		sleepTime := blockTime - elapsed

		bufferLevel := r.audioPlayer.GetBufferLevel()
		if bufferLevel < minBuffer {
			sleepTime = time.Duration(float64(sleepTime) * 0.9)
		} else if bufferLevel > maxBuffer {
			sleepTime = time.Duration(float64(sleepTime) * 1.1)
		}

		if sleepTime > time.Millisecond {
			time.Sleep(sleepTime)
		}

		lastBlockTime = time.Now()
	}

	// Let the device play out what is queued.
	deadline := time.Now().Add(drainTimeout)
	for r.audioPlayer.GetBufferLevel() > 0 && time.Now().Before(deadline) {
		if !r.emuControl.ShouldRun() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	if d := r.audioPlayer.Dropped(); d > 0 {
		r.log.Debugf("audio overflow dropped %d frames", d)
	}
}
