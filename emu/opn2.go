package emu

const (
	// ClocksPerSample is the number of master clocks in one FM cycle: 24
	// operator slots of six master clocks each.
	ClocksPerSample = 144

	// ResetCycles is how long Reset holds IC low, in master clocks. It
	// covers the IC debounce and eight full passes of the register rings.
	ResetCycles = 8 * ClocksPerSample

	// NTSC Mega Drive master clock divided by 7.
	DefaultClockHz = 7670453

	// writeStrobeCycles is how long CS/WR are held for one port write.
	writeStrobeCycles = 1
	// writeSettleCycles gives the bus front end two phi periods to sync
	// the strobe before anything else is driven onto the pins.
	writeSettleCycles = 24
)

// write sequencer states
const (
	seqIdle int32 = iota
	seqStrobe
	seqSettle
)

// portWrite is one queued host bus write.
type portWrite struct {
	Port uint8
	Val  uint8
}

// OPN2 drives a pin-level Chip from a register-write interface. Writes are
// queued and presented on the pins one at a time, pacing data writes on the
// chip's busy flag. Audio is produced at the native rate, one stereo pair
// per FM cycle.
type OPN2 struct {
	chip    *Chip
	clockHz int

	queue    []portWrite
	seqState int32
	seqCount int32

	// per-sample accumulation (YM3438) over ClocksPerSample master clocks
	sampleCycle int32
	accL        int32
	accR        int32

	buffer            []int16
	nativeSampleCount uint64
}

// NewOPN2 creates a host driver for a chip of the given variant clocked at
// clockHz and resets it.
func NewOPN2(v Variant, clockHz int) *OPN2 {
	if clockHz <= 0 {
		clockHz = DefaultClockHz
	}
	o := &OPN2{
		chip:    New(v),
		clockHz: clockHz,
		buffer:  make([]int16, 0, 2048),
	}
	o.Reset()
	return o
}

// Chip returns the underlying pin-level chip.
func (o *OPN2) Chip() *Chip {
	return o.chip
}

// Variant returns the chip revision.
func (o *OPN2) Variant() Variant {
	return o.chip.Variant()
}

// ClockHz returns the master clock frequency.
func (o *OPN2) ClockHz() int {
	return o.clockHz
}

// SampleRate returns the native output rate in Hz.
func (o *OPN2) SampleRate() int {
	return o.clockHz / ClocksPerSample
}

// Reset holds IC for ResetCycles master clocks, then releases it. Pending
// writes and buffered audio are discarded. IC is asserted at the start of
// an FM cycle, so the chip leaves reset in the same state whatever ran
// before.
func (o *OPN2) Reset() {
	o.queue = o.queue[:0]
	o.seqState = seqIdle
	o.seqCount = 0

	o.chip.SetPins(Pins{})
	o.tick(ClocksPerSample)
	for i := 0; i < ClocksPerSample && !o.chip.atCycleStart(); i++ {
		o.tick(1)
	}

	o.chip.SetPins(Pins{IC: true})
	o.tick(ResetCycles)
	// Two more FM cycles let the register scan realign with the sequencer.
	o.chip.SetPins(Pins{})
	o.tick(2 * ClocksPerSample)
	o.chip.regs.rebase()

	o.sampleCycle = 0
	o.accL = 0
	o.accR = 0
	o.buffer = o.buffer[:0]
}

// tick runs n master clocks with the pins unchanged.
func (o *OPN2) tick(n int) {
	for i := 0; i < n; i++ {
		o.chip.Clock(false)
		o.chip.Clock(true)
	}
}

// WritePort queues a write to an OPN2 port (0-3).
// Port 0: address latch for Part I
// Port 1: data write for Part I
// Port 2: address latch for Part II
// Port 3: data write for Part II
func (o *OPN2) WritePort(port uint8, val uint8) {
	o.queue = append(o.queue, portWrite{Port: port & 3, Val: val})
}

// WriteRegister queues an address/data pair.
// part: 0 = Part I (channels 0-2), 1 = Part II (channels 3-5)
func (o *OPN2) WriteRegister(part, addr, val uint8) {
	p := (part & 1) << 1
	o.WritePort(p, addr)
	o.WritePort(p|1, val)
}

// Pending returns the number of queued port writes not yet presented to
// the chip.
func (o *OPN2) Pending() int {
	return len(o.queue)
}

// ReadPort reads an OPN2 port (0-3) by presenting CS and RD on the pins.
// Only port 0 returns the status byte; the other ports read as 0.
func (o *OPN2) ReadPort(port uint8) uint8 {
	saved := o.chip.Pins()
	p := saved
	p.CS = true
	p.RD = true
	p.WR = false
	p.Address = port & 3
	o.chip.SetPins(p)
	status := o.chip.ReadStatus()
	o.chip.SetPins(saved)
	return status
}

// sequence advances the write sequencer by one master clock.
func (o *OPN2) sequence() {
	switch o.seqState {
	case seqIdle:
		if len(o.queue) == 0 || o.chip.io.Busy.get() {
			return
		}
		w := o.queue[0]
		o.queue = o.queue[1:]
		o.chip.SetPins(Pins{CS: true, WR: true, Address: w.Port, Data: w.Val})
		o.seqState = seqStrobe
		o.seqCount = writeStrobeCycles
	case seqStrobe:
		o.seqCount--
		if o.seqCount == 0 {
			p := o.chip.Pins()
			o.chip.SetPins(Pins{Address: p.Address, Data: p.Data})
			o.seqState = seqSettle
			o.seqCount = writeSettleCycles
		}
	case seqSettle:
		o.seqCount--
		if o.seqCount == 0 {
			o.seqState = seqIdle
		}
	}
}

// GenerateSamples runs the chip for the given number of master clocks.
func (o *OPN2) GenerateSamples(cycles int) {
	serial := o.chip.cfg.serialDAC
	for i := 0; i < cycles; i++ {
		o.sequence()
		o.chip.Clock(false)
		o.chip.Clock(true)

		if !serial {
			l, r := o.chip.Output()
			o.accL += int32(l)
			o.accR += int32(r)
		}

		o.sampleCycle++
		if o.sampleCycle < ClocksPerSample {
			continue
		}
		o.sampleCycle = 0
		o.nativeSampleCount++

		var left, right int32
		if serial {
			l, r := o.chip.DACWords()
			left, right = int32(l), int32(r)
		} else {
			// A full-scale 9-bit value held for all 144 clocks sums to
			// 36864; 7/8 keeps that inside int16.
			left = clampInt32(o.accL*7/8, -32768, 32767)
			right = clampInt32(o.accR*7/8, -32768, 32767)
			o.accL = 0
			o.accR = 0
		}
		o.buffer = append(o.buffer, int16(left), int16(right))
	}
}

// GetBuffer returns accumulated samples and resets the buffer. Samples are
// interleaved stereo at SampleRate.
func (o *OPN2) GetBuffer() []int16 {
	out := o.buffer
	o.buffer = o.buffer[:0]
	return out
}

// SampleCount returns the number of native samples produced since creation
// or the last state load.
func (o *OPN2) SampleCount() uint64 {
	return o.nativeSampleCount
}

// clampInt32 clamps v to [min, max].
func clampInt32(v, min, max int32) int32 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
