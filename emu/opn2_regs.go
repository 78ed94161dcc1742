package emu

const (
	slotCells = 12 // per bank; two banks cover the 24 operator slots
	chanCells = 6
)

// slotRing is one per-operator register field. The cells rotate past the bus
// write point once per FM cycle. Front holds the value that becomes the new
// head cell on commit.
type slotRing struct {
	Cells [2][slotCells]uint8
	Front [2]uint8
}

// chanRing is one per-channel register field.
type chanRing struct {
	Cells [chanCells]uint16
	Front uint16
}

// modeRegs are the global registers 0x21-0x2C.
type modeRegs struct {
	Test21       int32
	LFOEn        bool
	LFOFreq      int32
	TimerA       int32
	TimerB       int32
	CH3          int32
	TimerALoad   bool
	TimerAEnable bool
	TimerAReset  bool
	TimerBLoad   bool
	TimerBEnable bool
	TimerBReset  bool
	KonOp        int32
	KonCh        int32
	DACData      int32
	DACEn        bool
	Test2C       int32
}

type registerFile struct {
	WriteFMAddr latch[bool]
	FMAddr      latch[int32]
	WriteFMData latch[bool]
	FMData      latch[int32]
	ModeSel     latch[int32]
	Mode        latch[modeRegs]
	A4          latch[int32]
	AC          latch[int32]
	Kon         [4]latch[int32]

	// Rot is the head cell of the slot rings. Channel rings use Rot mod 6.
	Rot latch[int32]

	Multi slotRing
	DT    slotRing
	TL    slotRing
	AR    slotRing
	KS    slotRing
	DR    slotRing
	AM    slotRing
	SR    slotRing
	RR    slotRing
	SL    slotRing
	SSGEG slotRing

	FNum    chanRing
	FNum3   chanRing
	Block   chanRing
	Block3  chanRing
	Connect chanRing
	FB      chanRing
	PMS     chanRing
	AMS     chanRing
	Pan     chanRing

	// scan position of the register write window
	Cnt1 latch[int32]
	Cnt2 latch[int32]
}

func (r *registerFile) slotRings() [11]*slotRing {
	return [11]*slotRing{&r.Multi, &r.DT, &r.TL, &r.AR, &r.KS, &r.DR, &r.AM, &r.SR, &r.RR, &r.SL, &r.SSGEG}
}

func (r *registerFile) chanRings() [9]*chanRing {
	return [9]*chanRing{&r.FNum, &r.FNum3, &r.Block, &r.Block3, &r.Connect, &r.FB, &r.PMS, &r.AMS, &r.Pan}
}

// rotate loads every Front with the cell leaving the far end of its ring.
func (r *registerFile) rotate() {
	next := (r.Rot.get() + slotCells - 1) % slotCells
	r.Rot.set(next)
	for _, f := range r.slotRings() {
		f.Front[0] = f.Cells[0][next]
		f.Front[1] = f.Cells[1][next]
	}
	cn := next % chanCells
	for _, f := range r.chanRings() {
		f.Front = f.Cells[cn]
	}
}

func (r *registerFile) commitRings() {
	r.Rot.commit()
	head := r.Rot.get()
	for _, f := range r.slotRings() {
		f.Cells[0][head] = f.Front[0]
		f.Cells[1][head] = f.Front[1]
	}
	cn := head % chanCells
	for _, f := range r.chanRings() {
		f.Cells[cn] = f.Front
	}
}

// rebase renumbers the rings so the head cell is cell 0. Every tap reads
// relative to Rot, so the stored fields and their scan order are kept.
func (r *registerFile) rebase() {
	base := r.Rot.get()
	if base == 0 {
		return
	}
	for _, f := range r.slotRings() {
		old := f.Cells
		for i := int32(0); i < slotCells; i++ {
			f.Cells[0][i] = old[0][(i+base)%slotCells]
			f.Cells[1][i] = old[1][(i+base)%slotCells]
		}
	}
	for _, f := range r.chanRings() {
		old := f.Cells
		for i := int32(0); i < chanCells; i++ {
			f.Cells[i] = old[(i+base)%chanCells]
		}
	}
	r.Rot.Next = (r.Rot.Next - base + slotCells) % slotCells
	r.Rot.Cur = 0
}

// slot reads the operator field at the processing tap, stage 11.
func (r *registerFile) slot(f *slotRing, bank int32) int32 {
	return int32(f.Cells[bank][(r.Rot.get()+slotCells-1)%slotCells])
}

// channel reads the channel field at the given stage.
func (r *registerFile) channel(f *chanRing, stage int32) int32 {
	return int32(f.Cells[(r.Rot.get()+stage)%chanCells])
}

func (c *Chip) registers1() {
	r := &c.regs
	dataEn := c.writeDataEn()
	addrEn := c.writeAddrEn()
	bus := c.bus()
	address := bus | b2i(c.io.BankLatch)<<8
	fmWrite := bus&0xf0 != 0
	ic := c.in.IC

	if addrEn {
		r.WriteFMAddr.set(fmWrite)
	} else {
		r.WriteFMAddr.set(r.WriteFMAddr.get())
	}

	switch {
	case ic:
		r.FMAddr.set(0)
	case fmWrite && addrEn:
		r.FMAddr.set(address)
	default:
		r.FMAddr.set(r.FMAddr.get())
	}

	r.WriteFMData.set((r.WriteFMAddr.get() && dataEn) || (r.WriteFMData.get() && !addrEn))

	switch {
	case ic:
		r.FMData.set(0)
	case r.WriteFMAddr.get() && dataEn:
		r.FMData.set(bus)
	default:
		r.FMData.set(r.FMData.get())
	}

	if addrEn {
		r.ModeSel.set(address)
	} else {
		r.ModeSel.set(r.ModeSel.get())
	}

	if ic {
		r.Mode.set(modeRegs{})
		for _, f := range r.slotRings() {
			f.Front = [2]uint8{}
		}
		for _, f := range r.chanRings() {
			f.Front = 0
		}
		r.A4.set(0)
		r.AC.set(0)
	} else {
		r.Mode.set(c.writeMode(dataEn && !c.io.BankLatch, bus))
		r.A4.set(r.A4.get())
		r.AC.set(r.AC.get())
	}

	addr := r.FMAddr.get()
	data := r.FMData.get()
	cnt1, cnt2 := r.Cnt1.get(), r.Cnt2.get()
	inWindow := r.WriteFMData.get() && addr&3 == cnt1 && (addr>>8)&1 == cnt2&1

	if inWindow && (addr>>2)&1 == (cnt2>>1)&1 {
		bank := (addr >> 3) & 1
		switch addr & 0xf0 {
		case 0x30:
			r.Multi.Front[bank] = uint8(data & 0x0f)
			r.DT.Front[bank] = uint8(data >> 4 & 0x07)
		case 0x40:
			r.TL.Front[bank] = uint8(data & 0x7f)
		case 0x50:
			r.AR.Front[bank] = uint8(data & 0x1f)
			r.KS.Front[bank] = uint8(data >> 6 & 0x03)
		case 0x60:
			r.DR.Front[bank] = uint8(data & 0x1f)
			r.AM.Front[bank] = uint8(data >> 7 & 0x01)
		case 0x70:
			r.SR.Front[bank] = uint8(data & 0x1f)
		case 0x80:
			r.RR.Front[bank] = uint8(data & 0x0f)
			r.SL.Front[bank] = uint8(data >> 4 & 0x0f)
		case 0x90:
			r.SSGEG.Front[bank] = uint8(data & 0x0f)
		}
	}

	if inWindow {
		switch addr & 0xfc {
		case 0xa0:
			r.FNum.Front = uint16(data&0xff | (r.A4.get()&0x07)<<8)
			r.Block.Front = uint16(r.A4.get() >> 3 & 0x07)
		case 0xa4:
			r.A4.set(data & 0x3f)
		case 0xa8:
			r.FNum3.Front = uint16(data&0xff | (r.AC.get()&0x07)<<8)
			r.Block3.Front = uint16(r.AC.get() >> 3 & 0x07)
		case 0xac:
			r.AC.set(data & 0x3f)
		case 0xb0:
			r.Connect.Front = uint16(data & 0x07)
			r.FB.Front = uint16(data >> 3 & 0x07)
		case 0xb4:
			r.PMS.Front = uint16(data & 0x07)
			r.AMS.Front = uint16(data >> 4 & 0x03)
			r.Pan.Front = uint16(^data >> 6 & 0x03)
		}
	}

	c.keyOnChain()
}

// writeMode applies a data write to the mode register selected by the last
// address write.
func (c *Chip) writeMode(en bool, bus int32) modeRegs {
	r := &c.regs
	m := r.Mode.get()
	m.TimerAReset = false
	m.TimerBReset = false
	if !en {
		return m
	}
	switch r.ModeSel.get() {
	case 0x21:
		m.Test21 = bus & 0xff
	case 0x22:
		m.LFOEn = bus&0x08 != 0
		m.LFOFreq = bus & 7
	case 0x24:
		m.TimerA = (bus&0xff)<<2 | m.TimerA&3
	case 0x25:
		m.TimerA = m.TimerA&0x3fc | bus&3
	case 0x26:
		m.TimerB = bus & 0xff
	case 0x27:
		m.CH3 = bus >> 6 & 3
		m.TimerALoad = bus&0x01 != 0
		m.TimerBLoad = bus&0x02 != 0
		m.TimerAEnable = bus&0x04 != 0
		m.TimerBEnable = bus&0x08 != 0
		m.TimerAReset = bus&0x10 != 0
		m.TimerBReset = bus&0x20 != 0
	case 0x28:
		m.KonOp = bus >> 4 & 15
		m.KonCh = bus & 15
	case 0x2a:
		m.DACData = bus&0xff ^ 0x80
	case 0x2b:
		m.DACEn = bus&0x80 != 0
	case 0x2c:
		m.Test2C = bus & 0xf8
	}
	return m
}

// keyOnChain circulates the key-on bits of all 24 slots through four 6-stage
// lines, inserting a 0x28 write when the scan reaches its channel.
func (c *Chip) keyOnChain() {
	r := &c.regs
	var k [4]int32
	for i := range k {
		k[i] = r.Kon[i].get() << 1 & 0x3f
	}
	m := r.Mode.get()
	if r.Cnt2.get() == (m.KonCh>>2)&1 && r.Cnt1.get() == m.KonCh&3 {
		k[0] |= m.KonOp & 1
		k[1] |= m.KonOp >> 3 & 1
		k[2] |= m.KonOp >> 1 & 1
		k[3] |= m.KonOp >> 2 & 1
	} else {
		if !c.in.IC {
			k[0] |= r.Kon[3].get() >> 5 & 1
		}
		k[1] |= r.Kon[0].get() >> 5 & 1
		k[2] |= r.Kon[1].get() >> 5 & 1
		k[3] |= r.Kon[2].get() >> 5 & 1
	}
	for i := range k {
		r.Kon[i].set(k[i])
	}
}

func (c *Chip) registers2() {
	r := &c.regs
	r.WriteFMAddr.commit()
	r.WriteFMData.commit()
	r.FMAddr.commit()
	r.FMData.commit()
	r.ModeSel.commit()
	r.Mode.commit()
	r.A4.commit()
	r.AC.commit()
	for i := range r.Kon {
		r.Kon[i].commit()
	}
}

// scan1 advances the register write window. It restarts at the end of every
// FM cycle.
func (c *Chip) scan1() {
	r := &c.regs
	cnt1 := r.Cnt1.get() + 1
	cnt2 := r.Cnt2.get()
	if r.Cnt1.get()&2 != 0 {
		cnt1 = 0
		cnt2++
	}
	if c.fsm.Pulse.Sel23 || c.in.IC {
		cnt1 = 0
		cnt2 = 0
	}
	r.Cnt1.set(cnt1 & 3)
	r.Cnt2.set(cnt2 & 7)
}

func (c *Chip) scan2() {
	c.regs.Cnt1.commit()
	c.regs.Cnt2.commit()
}
