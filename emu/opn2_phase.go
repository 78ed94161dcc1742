package emu

var fnNote = [16]int32{0, 0, 0, 0, 0, 0, 0, 1, 2, 3, 3, 3, 3, 3, 3, 3}

// vibrato shift amounts, indexed by PMS and LFO step
var pgLFOShift1 = [8][8]int32{
	{7, 7, 7, 7, 7, 7, 7, 7},
	{7, 7, 7, 7, 7, 7, 7, 7},
	{7, 7, 7, 7, 7, 7, 1, 1},
	{7, 7, 7, 7, 1, 1, 1, 1},
	{7, 7, 7, 1, 1, 1, 1, 0},
	{7, 7, 1, 1, 0, 0, 0, 0},
	{7, 7, 1, 1, 0, 0, 0, 0},
	{7, 7, 1, 1, 0, 0, 0, 0},
}

var pgLFOShift2 = [8][8]int32{
	{7, 7, 7, 7, 7, 7, 7, 7},
	{7, 7, 7, 7, 2, 2, 2, 2},
	{7, 7, 7, 2, 2, 2, 7, 7},
	{7, 7, 2, 2, 7, 7, 2, 2},
	{7, 7, 2, 7, 7, 7, 2, 7},
	{7, 7, 7, 2, 7, 7, 2, 1},
	{7, 7, 7, 2, 7, 7, 2, 1},
	{7, 7, 7, 2, 7, 7, 2, 1},
}

var (
	pgDetuneAdd = [4]int32{0, 8, 10, 11}
	pgDetune    = [8]int32{16, 17, 19, 20, 22, 24, 27, 29}
)

// phaseGen is the phase generator pipeline. Phase is a 20-bit accumulator
// stored as 20 bit planes of the 24-slot rotation.
type phaseGen struct {
	KCode [2]latch[int32]
	FNum  [2]latch[int32]
	Multi [2]latch[int32]
	DT    latch[int32]
	Det   latch[int32]

	FNumLFO1 int32
	FNumLFO2 int32
	LFOShift int32
	LFOSign  bool
	LFO      int32
	Freq1    int32
	Freq2    int32
	Freq3    int32
	Freq4    int32
	Block    int32
	Multi2   int32

	Inc        latch[int32]
	IncMask    latch[int32]
	ResetLatch latch[bool]
	// Reset is driven by the envelope generator key-on logic.
	Reset latch[int32]
	Phase [20]latch[int32]
	Debug latch[int32]
}

func (c *Chip) phaseGen1() {
	pg := &c.pg
	r := &c.regs
	m := r.Mode.get()
	cnt1, cnt2 := r.Cnt1.get(), r.Cnt2.get()
	ch3 := cnt1 == 1 && cnt2&1 == 0 && m.CH3 != 0
	opSel := cnt2 >> 1
	bank := (cnt2 >> 2) & 1

	var fnum, block int32
	switch {
	case ch3 && opSel == 0:
		fnum, block = r.channel(&r.FNum3, 5), r.channel(&r.Block3, 5)
	case ch3 && opSel == 1:
		fnum, block = r.channel(&r.FNum3, 0), r.channel(&r.Block3, 0)
	case ch3 && opSel == 2:
		fnum, block = r.channel(&r.FNum3, 4), r.channel(&r.Block3, 4)
	default:
		fnum, block = r.channel(&r.FNum, 4), r.channel(&r.Block, 4)
	}
	pms := r.channel(&r.PMS, 5)
	dt := r.slot(&r.DT, bank)
	multi := r.slot(&r.Multi, bank)

	kcode := block<<2 | fnNote[fnum>>7]
	pg.KCode[0].set(kcode)
	pg.KCode[1].set(pg.KCode[0].get())
	pg.FNum[0].set(fnum)
	pg.FNum[1].set(pg.FNum[0].get())

	lfo := (c.lfo.Out >> 2) & 7
	if c.lfo.Out&32 != 0 {
		lfo ^= 7
	}
	fnumH := pg.FNum[0].get() >> 4
	pg.FNumLFO1 = fnumH >> pgLFOShift1[pms][lfo]
	pg.FNumLFO2 = fnumH >> pgLFOShift2[pms][lfo]
	pg.LFOShift = 2
	if pms > 5 {
		pg.LFOShift = 7 - pms
	}
	pg.LFOSign = c.lfo.Out&0x40 != 0

	pg.Freq1 = ((pg.FNum[1].get() << 1) + pg.LFO) & 0xfff
	pg.Block = pg.KCode[1].get() >> 2
	pg.DT.set(dt)

	dtL := pg.DT.get() & 3
	kc := pg.KCode[1].get()
	if kc > 28 {
		kc = 28
	}
	sum := kc + ((pgDetuneAdd[dtL] + 1) << 2)
	var det int32
	if dtL != 0 {
		det = pgDetune[sum&7] >> (9 - sum>>3)
	}
	if pg.DT.get()&4 != 0 {
		det = -det
	}
	pg.Det.set(det)

	pg.Freq3 = (pg.Freq2 + pg.Det.get()) & 0x1ffff

	pg.Multi[0].set(multi)
	pg.Multi[1].set(pg.Multi[0].get())
	pg.Multi2 = pg.Multi[1].get()
	pg.Inc.set(pg.Freq4)

	if pg.Reset.get()&2 != 0 {
		pg.IncMask.set(0)
	} else {
		pg.IncMask.set(pg.Inc.get())
	}
	pg.ResetLatch.set(pg.Reset.get()&2 != 0)

	inc := pg.IncMask.get()
	reset := pg.ResetLatch.get() || m.Test21&8 != 0
	var carry int32
	for i := range pg.Phase {
		p := pg.Phase[i].get()
		if !reset {
			carry += (p >> 23) & 1
		}
		carry += inc & 1
		pg.Phase[i].set(p<<1&0xffffff | carry&1)
		inc >>= 1
		carry >>= 1
	}

	dbg := pg.Debug.get() >> 1
	if c.fsm.Pulse.Sel2 {
		for i := 0; i < 10; i++ {
			dbg |= ((pg.Phase[i].get() >> 23) & 1) << i
		}
	}
	pg.Debug.set(dbg)
}

func (c *Chip) phaseGen2() {
	pg := &c.pg
	pg.FNum[0].commit()
	pg.FNum[1].commit()
	pg.KCode[0].commit()
	pg.KCode[1].commit()
	pg.LFO = (pg.FNumLFO1 + pg.FNumLFO2) >> pg.LFOShift
	if pg.LFOSign {
		pg.LFO = -pg.LFO
	}
	pg.Freq2 = (pg.Freq1 << pg.Block) >> 2
	pg.DT.commit()
	pg.Det.commit()
	pg.Multi[0].commit()
	pg.Multi[1].commit()
	if pg.Multi2 == 0 {
		pg.Freq4 = pg.Freq3 >> 1
	} else {
		pg.Freq4 = pg.Freq3 * pg.Multi2
	}
	pg.Inc.commit()
	pg.IncMask.commit()
	pg.ResetLatch.commit()
	for i := range pg.Phase {
		pg.Phase[i].commit()
	}
	pg.Debug.commit()
}
