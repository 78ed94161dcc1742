package emu

// fsmPulses are the control signals decoded from the 5-bit sequencer
// position.
type fsmPulses struct {
	ClockEG      bool
	Op1Sel       bool
	Op2Sel       bool
	Op3Sel       bool
	Op4Sel       bool
	Sel1         bool
	Sel2         bool
	Sel23        bool
	CH3Sel       bool
	DACLoad      bool
	DACOutSel    bool
	DACCh6       bool
	ClockTimers  bool
	ClockTimers1 bool
	WCO          bool
	LRO          bool
}

func (p fsmPulses) or(q fsmPulses) fsmPulses {
	return fsmPulses{
		ClockEG:      p.ClockEG || q.ClockEG,
		Op1Sel:       p.Op1Sel || q.Op1Sel,
		Op2Sel:       p.Op2Sel || q.Op2Sel,
		Op3Sel:       p.Op3Sel || q.Op3Sel,
		Op4Sel:       p.Op4Sel || q.Op4Sel,
		Sel1:         p.Sel1 || q.Sel1,
		Sel2:         p.Sel2 || q.Sel2,
		Sel23:        p.Sel23 || q.Sel23,
		CH3Sel:       p.CH3Sel || q.CH3Sel,
		DACLoad:      p.DACLoad || q.DACLoad,
		DACOutSel:    p.DACOutSel || q.DACOutSel,
		DACCh6:       p.DACCh6 || q.DACCh6,
		ClockTimers:  p.ClockTimers || q.ClockTimers,
		ClockTimers1: p.ClockTimers1 || q.ClockTimers1,
		WCO:          p.WCO || q.WCO,
		LRO:          p.LRO || q.LRO,
	}
}

// algRoute is the modulation routing for the operator being computed.
type algRoute struct {
	ModOp1First  bool
	ModOp1Second bool
	ModOp2       bool
	ModPrev0     bool
	ModPrev1     bool
	Output       bool
}

type sequencer struct {
	Cnt1    latch[int32]
	Cnt2    latch[int32]
	Latched fsmPulses
	Pulse   fsmPulses
	Alg     algRoute
	WCO     latch[int32]
	LRO     latch[int32]
}

// algorithm rows, indexed by connect: op1 first stage, op1 second stage,
// op2, previous operator, operator before that, and output.
var fmAlgorithm = [4][6][8]bool{
	{
		{true, true, true, true, true, true, true, true},
		{true, true, true, true, true, true, true, true},
		{},
		{},
		{},
		{false, false, false, false, false, false, false, true},
	},
	{
		{false, true, false, false, false, true, false, false},
		{},
		{true, true, true, false, false, false, false, false},
		{},
		{},
		{false, false, false, false, false, true, true, true},
	},
	{
		{},
		{},
		{},
		{true, false, false, true, true, true, true, false},
		{},
		{false, false, false, false, true, true, true, true},
	},
	{
		{false, false, true, false, false, true, false, false},
		{},
		{false, false, false, true, false, false, false, false},
		{true, true, false, true, true, false, false, false},
		{false, false, true, false, false, false, false, false},
		{true, true, true, true, true, true, true, true},
	},
}

func (a *algRoute) add(group, out, connect int32) {
	a.ModOp1First = a.ModOp1First || fmAlgorithm[group][0][connect]
	a.ModOp1Second = a.ModOp1Second || fmAlgorithm[group][1][connect]
	a.ModOp2 = a.ModOp2 || fmAlgorithm[group][2][connect]
	a.ModPrev0 = a.ModPrev0 || fmAlgorithm[group][3][connect]
	a.ModPrev1 = a.ModPrev1 || fmAlgorithm[group][4][connect]
	a.Output = a.Output || fmAlgorithm[out][5][connect]
}

func (c *Chip) fsm1() {
	f := &c.fsm
	reset := c.in.FSMReset
	cnt1 := f.Cnt1.get() + 1
	if reset || f.Cnt1.get()&2 != 0 {
		cnt1 = 0
	}
	cnt2 := f.Cnt2.get()
	if f.Cnt1.get()&2 != 0 {
		cnt2++
	}
	if reset {
		cnt2 = 0
	}
	f.Cnt1.set(cnt1 & 3)
	f.Cnt2.set(cnt2 & 7)

	f.Latched = c.cfg.delayed[f.Cnt2.get()<<2|f.Cnt1.get()]
	if c.cfg.serialDAC {
		f.WCO.set(f.WCO.get()<<1&0x3f | b2i(f.Latched.WCO))
		f.LRO.set(f.LRO.get()<<1&0x3f | b2i(f.Latched.LRO))
	}
}

func (c *Chip) fsm2() {
	f := &c.fsm
	f.Cnt1.commit()
	f.Cnt2.commit()
	f.Pulse = c.cfg.direct[f.Cnt2.get()<<2|f.Cnt1.get()].or(f.Latched)
	if c.cfg.serialDAC {
		f.WCO.commit()
		f.LRO.commit()
	}

	connect := c.regs.channel(&c.regs.Connect, 5)
	f.Alg = algRoute{}
	if f.Pulse.Op2Sel {
		f.Alg.add(0, 2, connect)
	}
	if f.Pulse.Op4Sel {
		f.Alg.add(1, 3, connect)
	}
	if f.Pulse.Op1Sel {
		f.Alg.add(2, 0, connect)
	}
	if f.Pulse.Op3Sel {
		f.Alg.add(3, 1, connect)
	}
}
