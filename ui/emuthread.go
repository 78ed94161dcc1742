package ui

import (
	"sync"
	"time"

	"github.com/tevino/abool"
)

// SharedLevel holds the output meter written by the render goroutine and
// read by the progress display.
type SharedLevel struct {
	mu      sync.Mutex
	peakL   int16
	peakR   int16
	samples uint64
}

// Update folds a block of interleaved stereo samples into the meter.
func (sl *SharedLevel) Update(samples []int16) {
	var l, r int16
	for i := 0; i+1 < len(samples); i += 2 {
		l = maxAbs16(l, samples[i])
		r = maxAbs16(r, samples[i+1])
	}
	sl.mu.Lock()
	sl.peakL = l
	sl.peakR = r
	sl.samples += uint64(len(samples) / 2)
	sl.mu.Unlock()
}

// Read returns the last block's peaks and the total frame count.
func (sl *SharedLevel) Read() (peakL, peakR int16, samples uint64) {
	sl.mu.Lock()
	peakL = sl.peakL
	peakR = sl.peakR
	samples = sl.samples
	sl.mu.Unlock()
	return
}

func maxAbs16(cur, s int16) int16 {
	if s == -32768 {
		return 32767
	}
	if s < 0 {
		s = -s
	}
	if s > cur {
		return s
	}
	return cur
}

// EmuControl manages pause/resume/stop coordination between the caller
// and the render goroutine.
type EmuControl struct {
	pauseReq *abool.AtomicBool
	paused   *abool.AtomicBool
	stopReq  *abool.AtomicBool
	ackCh    chan struct{}
}

// NewEmuControl creates a new emulation control.
func NewEmuControl() *EmuControl {
	return &EmuControl{
		pauseReq: abool.New(),
		paused:   abool.New(),
		stopReq:  abool.New(),
		ackCh:    make(chan struct{}, 1),
	}
}

// RequestPause asks the render goroutine to pause and blocks until it
// acknowledges the pause or is stopped.
func (ec *EmuControl) RequestPause() {
	if ec.stopReq.IsSet() || ec.paused.IsSet() {
		return
	}
	if !ec.pauseReq.SetToIf(false, true) {
		return
	}
	<-ec.ackCh
}

// RequestResume tells the render goroutine to resume.
func (ec *EmuControl) RequestResume() {
	ec.pauseReq.UnSet()
	ec.paused.UnSet()
}

// CheckPause is called by the render goroutine between blocks.
// If a pause has been requested, it sends an acknowledgment and
// spins until resumed or stopped. Returns false if the goroutine
// should exit.
func (ec *EmuControl) CheckPause() bool {
	if ec.stopReq.IsSet() {
		return false
	}
	if !ec.pauseReq.IsSet() {
		return true
	}

	ec.paused.Set()
	ec.ack()

	for {
		if ec.stopReq.IsSet() {
			return false
		}
		if !ec.pauseReq.IsSet() {
			ec.paused.UnSet()
			return true
		}
		time.Sleep(10 * time.Millisecond)
	}
}

// ack is a non-blocking send on the buffered acknowledgment channel.
func (ec *EmuControl) ack() {
	select {
	case ec.ackCh <- struct{}{}:
	default:
	}
}

// Stop signals the render goroutine to exit. A caller blocked in
// RequestPause is released.
func (ec *EmuControl) Stop() {
	ec.stopReq.Set()
	if ec.pauseReq.SetToIf(true, false) && !ec.paused.IsSet() {
		ec.ack()
	}
}

// ShouldRun returns true if the goroutine should continue running.
func (ec *EmuControl) ShouldRun() bool {
	return !ec.stopReq.IsSet()
}

// IsPaused returns true if the render goroutine is currently paused.
func (ec *EmuControl) IsPaused() bool {
	return ec.paused.IsSet()
}
