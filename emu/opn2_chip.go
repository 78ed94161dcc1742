package emu

// Variant selects the chip revision being modelled.
type Variant int

const (
	// VariantYM3438 is the CMOS OPN2 with a 9-bit time-multiplexed DAC output.
	VariantYM3438 Variant = iota
	// VariantYMF276 is the OPN2 with a 14-bit accumulator and a serial DAC interface.
	VariantYMF276
)

func (v Variant) String() string {
	switch v {
	case VariantYM3438:
		return "YM3438"
	case VariantYMF276:
		return "YMF276"
	}
	return "unknown"
}

// Pins is the host-driven input pin state.
type Pins struct {
	CS      bool  // chip select
	RD      bool  // read strobe
	WR      bool  // write strobe
	Address uint8 // A1:A0
	Data    uint8 // D7:D0
	IC      bool  // initial clear (reset), level sensitive
	Test    bool  // TEST pin
}

// SerialPins is the YMF276 serial DAC interface.
type SerialPins struct {
	BCO bool // bit clock
	WCO bool // word clock
	LRO bool // left/right clock
	SO  bool // serial data
}

// latch is one modelled flip-flop. Phase 1 logic computes Next from the
// committed values of every latch; phase 2 makes Next visible as Cur.
// Fields are exported for encoding/binary.
type latch[T any] struct {
	Next T
	Cur  T
}

func (l *latch[T]) set(v T) { l.Next = v }
func (l *latch[T]) get() T  { return l.Cur }
func (l *latch[T]) commit() { l.Cur = l.Next }

// input is the combined pin and phase state. Any change to it re-evaluates
// the FM logic.
type input struct {
	Pins
	Phase    int32
	FSMReset bool
}

// clockInput is the prescaler input.
type clockInput struct {
	Phi bool
	IC  bool
}

type outputs struct {
	DACVal int32
	Left   int32
	Right  int32
}

// Chip is the gate-level state of one OPN2. It is driven exclusively by
// SetPins and Clock.
type Chip struct {
	cfg *variantConfig

	in, inOld   input
	pin, pinOld clockInput
	phase1      bool
	phase2      bool

	clk  prescaler
	io   busState
	regs registerFile
	fsm  sequencer
	lfo  lfoState
	pg   phaseGen
	eg   envelopeGen
	op   operatorNet
	acc  accumulator
	dac  serialDAC
	tmr  timers
	out  outputs
}

// New creates a chip of the given variant in its power-on state.
func New(v Variant) *Chip {
	return &Chip{cfg: configFor(v)}
}

// Variant returns the chip revision.
func (c *Chip) Variant() Variant {
	return c.cfg.variant
}

// SetPins updates the host-driven pins. The change takes effect on the next
// call to Clock.
func (c *Chip) SetPins(p Pins) {
	p.Address &= 3
	c.in.Pins = p
	c.pin.IC = p.IC
}

// Pins returns the current host-driven pins.
func (c *Chip) Pins() Pins {
	return c.in.Pins
}

// Clock drives the oscillator input to level. One master clock cycle is
// Clock(false) followed by Clock(true).
func (c *Chip) Clock(level bool) {
	c.pin.Phi = level
	if c.pin != c.pinOld {
		c.prescale()
		c.pinOld = c.pin
		c.in.FSMReset = c.clk.FSMReset
		if c.clk.Phi1.get() {
			c.in.Phase = 1
		}
		if c.clk.Phi2.get() {
			c.in.Phase = 2
		}
		c.phase1 = c.clk.Phi1.get()
		c.phase2 = c.clk.Phi2.get()
	}
	if c.in != c.inOld {
		c.clockFM()
		c.inOld = c.in
	}
	if c.cfg.serialDAC {
		c.serialDACStep()
	}
}

// atCycleStart reports whether the divider and the sequencer both sit at
// the first clock of an FM cycle.
func (c *Chip) atCycleStart() bool {
	return c.clk.Count.get() == 1 && c.fsm.Cnt1.get() == 0 && c.fsm.Cnt2.get() == 0
}

func (c *Chip) clockFM() {
	c.handleIO()
	if c.phase1 {
		c.clockPhase1()
	}
	if c.phase2 {
		c.clockPhase2()
	}
}

// clockPhase1 computes every Next value from committed state.
func (c *Chip) clockPhase1() {
	c.regs.rotate()
	c.handleIO1()
	c.registers1()
	c.fsm1()
	c.scan1()
	c.lfo1()
	c.phaseGen1()
	c.envelope1()
	c.operator1()
	c.cfg.accumulate1(c)
	c.timers1()
}

// clockPhase2 commits every Next value.
func (c *Chip) clockPhase2() {
	c.regs.commitRings()
	c.handleIO2()
	c.registers2()
	c.fsm2()
	c.scan2()
	c.lfo2()
	c.phaseGen2()
	c.envelope2()
	c.operator2()
	c.cfg.accumulate2(c)
	c.timers2()
}

// Output returns the current analog-side output. For the YM3438 this is the
// signed 9-bit MOL/MOR pin value of the channel slot being driven; for the
// YMF276 it is the last pair of words loaded into the serial DAC shifter.
func (c *Chip) Output() (left, right int) {
	if c.cfg.serialDAC {
		return int(c.dac.WordL), int(c.dac.WordR)
	}
	return int(c.out.Left), int(c.out.Right)
}

// SerialOutput returns the YMF276 serial DAC pins. It is zero for the YM3438.
func (c *Chip) SerialOutput() SerialPins {
	return SerialPins{BCO: c.dac.BCO, WCO: c.dac.WCOPin, LRO: c.dac.LROPin, SO: c.dac.SO}
}

func b2i(b bool) int32 {
	if b {
		return 1
	}
	return 0
}
