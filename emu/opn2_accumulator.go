package emu

// accumulator sums carrier outputs per channel and hands the channel result
// to the output stage. Accm and ChOut are 6-stage bit planes.
type accumulator struct {
	Accm     [14]latch[int32]
	ChOut    [9]latch[int32]
	OutDelay int32
	PanDelay int32
	DACLoad  bool
	Debug    latch[int32]

	// YMF276 only
	Op1SelL2    latch[int32]
	Op1SelL3    latch[bool]
	ShifterCtrl latch[int32]
	AccL        latch[int32]
	AccR        latch[int32]
	OscOut      int32
}

func (a *accumulator) accmWord(bits int) int32 {
	var v int32
	for i := 0; i < bits; i++ {
		v |= ((a.Accm[i].get() >> 5) & 1) << i
	}
	return v
}

// latchChannel captures the channel word for the DAC on a load edge.
func (c *Chip) latchChannel(testDAC bool) {
	a := &c.acc
	p := c.fsm.Pulse
	if (p.DACLoad && !a.DACLoad) || testDAC {
		var stage uint = 4
		if p.DACOutSel || testDAC {
			stage = 5
		}
		a.OutDelay = 0
		for i := range a.ChOut {
			a.OutDelay |= ((a.ChOut[i].get() >> stage) & 1) << i
		}
	}
}

func (c *Chip) accumulate1YM3438() {
	a := &c.acc
	m := c.regs.Mode.get()
	testDAC := m.Test2C&32 != 0
	load := testDAC || c.fsm.Pulse.Op1Sel
	clearAcc := load && !testDAC

	var inp, acc int32
	if c.fsm.Alg.Output && !testDAC {
		inp = (c.op.Output.get() >> 5) & 511
	}
	if !clearAcc {
		acc = a.accmWord(9)
	}
	sum := (b2i(testDAC) + inp + acc) & 511
	switch {
	case inp&256 != 0 && acc&256 != 0 && sum&256 == 0:
		sum = 256
	case inp&256 == 0 && acc&256 == 0 && sum&256 != 0:
		sum = 255
	}

	for i := 0; i < 9; i++ {
		a.Accm[i].set((a.Accm[i].get()<<1 | (sum>>i)&1) & 0x3f)
	}
	for i := range a.ChOut {
		o := a.ChOut[i].get()
		bit := (o >> 5) & 1
		if load {
			bit = (a.Accm[i].get() >> 5) & 1
		}
		a.ChOut[i].set((o<<1 | bit) & 0x3f)
	}

	a.DACLoad = c.fsm.Pulse.DACLoad
	a.Debug.set(a.OutDelay)
}

func (c *Chip) accumulate2YM3438() {
	a := &c.acc
	r := &c.regs
	m := r.Mode.get()
	p := c.fsm.Pulse
	testDAC := m.Test2C&32 != 0

	for i := 0; i < 9; i++ {
		a.Accm[i].commit()
		a.ChOut[i].commit()
	}
	c.latchChannel(testDAC)

	if (p.DACCh6 && m.DACEn) || testDAC {
		c.out.DACVal = m.DACData<<1 | b2i(m.Test2C&8 != 0)
	} else {
		c.out.DACVal = a.OutDelay
	}

	if p.DACLoad && !a.DACLoad {
		var stage int32 = 4
		if p.DACOutSel {
			stage = 5
		}
		a.PanDelay = r.channel(&r.Pan, stage) ^ 3
	}

	doOut := testDAC || !p.DACLoad
	c.out.Left = 0
	c.out.Right = 0
	if doOut && a.PanDelay&2 != 0 {
		c.out.Left = c.out.DACVal
	}
	if doOut && a.PanDelay&1 != 0 {
		c.out.Right = c.out.DACVal
	}
	if c.out.Left&256 != 0 {
		c.out.Left |= ^0x1ff
	}
	if c.out.Right&256 != 0 {
		c.out.Right |= ^0x1ff
	}

	a.Debug.commit()
}

func (c *Chip) accumulate1YMF276() {
	a := &c.acc
	r := &c.regs
	m := r.Mode.get()
	op1Sel := c.fsm.Pulse.Op1Sel
	testDAC := m.Test2C&32 != 0
	testDAC2 := m.Test2C&8 != 0
	load := testDAC || op1Sel
	clearAcc := load && !testDAC
	selDAC := a.Op1SelL2.get()&16 != 0 && op1Sel && m.DACEn
	selFM := op1Sel && !selDAC

	accm := a.accmWord(14)
	var inp, acc int32
	if c.fsm.Alg.Output && !testDAC {
		inp = c.op.Output.get() & 0x3fff
	}
	if testDAC2 {
		inp = 0x3fff
	}
	if !clearAcc {
		acc = accm
	}

	// 5-bit low adder with a 9-bit high adder on top
	sum1 := acc&31 + inp&31 + b2i(testDAC && !testDAC2)
	carry := b2i((sum1&32 != 0 || testDAC) && !testDAC2)
	sum2 := acc>>5 + inp>>5 + carry
	sum := (sum2&511)<<5 | sum1&31
	switch {
	case inp&0x2000 != 0 && acc&0x2000 != 0 && sum&0x2000 == 0:
		sum = 0x2000
	case inp&0x2000 == 0 && acc&0x2000 == 0 && sum&0x2000 != 0:
		sum = 0x1fff
	}

	for i := range a.Accm {
		a.Accm[i].set((a.Accm[i].get()<<1 | (sum>>i)&1) & 0x3f)
	}
	for i := range a.ChOut {
		o := a.ChOut[i].get()
		bit := (o >> 5) & 1
		if load {
			bit = (a.Accm[i+5].get() >> 5) & 1
		}
		a.ChOut[i].set((o<<1 | bit) & 0x3f)
	}

	a.DACLoad = c.fsm.Pulse.DACLoad
	a.Debug.set(a.OutDelay)

	a.Op1SelL2.set((a.Op1SelL2.get()<<1 | b2i(op1Sel)) & 0x1f)
	a.Op1SelL3.set(op1Sel)

	a.OscOut = 0
	if selDAC {
		a.OscOut |= m.DACData << 6
	}
	if selFM {
		a.OscOut |= accm
	}
	if a.OscOut&0x2000 != 0 {
		a.OscOut |= 0x1c000
	}

	pan := r.channel(&r.Pan, 5) ^ 3

	ctrl := a.ShifterCtrl.get() << 1
	var accL, accR int32
	if op1Sel && !a.Op1SelL3.get() {
		ctrl |= 1
	} else {
		accL = a.AccL.get()
		accR = a.AccR.get()
	}
	a.ShifterCtrl.set(ctrl & 0x3ffff)
	if pan&2 != 0 {
		accL += a.OscOut
	}
	if pan&1 != 0 {
		accR += a.OscOut
	}
	a.AccL.set(accL)
	a.AccR.set(accR)
}

func (c *Chip) accumulate2YMF276() {
	a := &c.acc
	testDAC := c.regs.Mode.get().Test2C&32 != 0
	for i := range a.Accm {
		a.Accm[i].commit()
	}
	for i := range a.ChOut {
		a.ChOut[i].commit()
	}
	c.latchChannel(testDAC)
	a.Debug.commit()
	a.Op1SelL2.commit()
	a.Op1SelL3.commit()
	a.AccL.commit()
	a.AccR.commit()
	a.ShifterCtrl.commit()
}

// serialDAC is the YMF276 output shifter. It runs from its own pair of
// clocks derived from the prescaler, not from the FM phases.
type serialDAC struct {
	Shifter latch[int32]
	LRO     latch[int32]
	WCO     latch[int32]
	SOLine  latch[int32]
	LoadL   bool
	LoadR   bool
	WordL   int16
	WordR   int16
	Loads   uint32

	BCO    bool
	WCOPin bool
	LROPin bool
	SO     bool
}

func (c *Chip) serialDACStep() {
	d := &c.dac
	ctrl := c.acc.ShifterCtrl.get()
	d.LoadL = ctrl&0x20 != 0 && c.phase2
	d.LoadR = ctrl&0x20000 != 0 && c.phase2

	if c.clk.DClk1 {
		v := d.Shifter.get() << 1
		if d.LoadL {
			w := (c.acc.AccL.get() >> 1) & 0xffff
			v |= w
			d.WordL = int16(uint16(w))
			d.Loads++
		}
		if d.LoadR {
			w := (c.acc.AccR.get() >> 1) & 0xffff
			v |= w
			d.WordR = int16(uint16(w))
			d.Loads++
		}
		d.Shifter.set(v & 0xffff)
	}
	if c.clk.DClk2 {
		d.Shifter.commit()
	}

	if !c.pin.Phi {
		d.LRO.set((d.LRO.get()<<1 | (c.fsm.LRO.get()>>1)&1) & 0x3f)
		d.WCO.set((d.WCO.get()<<1 | (c.fsm.WCO.get()>>1)&1) & 0x3f)
		d.SOLine.set((d.SOLine.get()<<1 | (d.Shifter.get()>>15)&1) & 7)
	} else {
		d.LRO.commit()
		d.WCO.commit()
		d.SOLine.commit()
	}

	d.BCO = c.clk.DPhi1Hold || c.clk.DPhi1Out
	d.WCOPin = d.WCO.get()&32 != 0
	d.LROPin = d.LRO.get()&32 != 0
	d.SO = d.SOLine.get()&4 != 0
}
