package emu

// lfoCycles is the divider mask for each LFO frequency setting.
var lfoCycles = [8]int32{108, 77, 71, 67, 62, 44, 8, 5}

type lfoState struct {
	Cnt1     latch[int32]
	Cnt2     latch[int32]
	IncLatch latch[bool]
	Load     bool
	// Out is the 7-bit LFO value sampled once per FM cycle.
	Out int32
}

func (c *Chip) lfo1() {
	l := &c.lfo
	m := c.regs.Mode.get()
	inc := b2i(m.Test21&2 != 0 || c.fsm.Pulse.Sel23)
	cyc := lfoCycles[m.LFOFreq]
	of := l.Cnt1.get()&cyc == cyc

	cnt1 := l.Cnt1.get() + inc
	if c.in.IC || of {
		cnt1 = 0
	}
	l.Cnt1.set(cnt1 & 127)

	cnt2 := l.Cnt2.get() + b2i(of)
	if !m.LFOEn {
		cnt2 = 0
	}
	l.Cnt2.set(cnt2 & 127)

	l.IncLatch.set(c.fsm.Pulse.Sel23)
	l.Load = l.IncLatch.get()
}

func (c *Chip) lfo2() {
	l := &c.lfo
	l.Cnt1.commit()
	l.Cnt2.commit()
	l.IncLatch.commit()
	if l.IncLatch.get() && !l.Load {
		l.Out = l.Cnt2.get()
	}
}
