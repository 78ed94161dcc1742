package emu

// operatorOrder maps register slot bits to operator index.
// Register order is S1(0), S3(1), S2(2), S4(3) but we store as 0,1,2,3 = S1,S2,S3,S4.
var operatorOrder = [4]int{0, 2, 1, 3}

// OperatorRegisters is the decoded per-operator register set ($30-$9F).
type OperatorRegisters struct {
	DT    uint8
	Multi uint8
	TL    uint8
	KS    uint8
	AR    uint8
	AM    bool
	DR    uint8
	SR    uint8
	SL    uint8
	RR    uint8
	SSGEG uint8
}

// ChannelRegisters is the decoded per-channel register set ($A0-$B6).
type ChannelRegisters struct {
	FNum      uint16
	Block     uint8
	Algorithm uint8
	Feedback  uint8
	PMS       uint8
	AMS       uint8
	PanL      bool
	PanR      bool
	// Op is indexed by operator number minus one.
	Op [4]OperatorRegisters
}

// RegisterFile is a logical view of the chip's registers, decoded from the
// rotating register rings at their current position.
type RegisterFile struct {
	Test21       uint8
	LFOEnable    bool
	LFOFreq      uint8
	TimerA       uint16
	TimerB       uint8
	CH3Mode      uint8
	TimerALoad   bool
	TimerAEnable bool
	TimerBLoad   bool
	TimerBEnable bool
	KeyOnOp      uint8
	KeyOnCh      uint8
	DACData      uint8
	DACEnable    bool
	Test2C       uint8

	// Channel 3 supplementary frequencies ($A8-$AE), in register order.
	CH3FNum  [3]uint16
	CH3Block [3]uint8

	Channels [6]ChannelRegisters
}

// scanPos returns the 24-step register scan position.
func (r *registerFile) scanPos() int32 {
	return r.Cnt2.get()*3 + r.Cnt1.get()
}

// slotCell returns the ring cell holding the operator written at scan
// position q (0-11).
func (r *registerFile) slotCell(q int32) int32 {
	d := (r.scanPos() - 1 - q) % slotCells
	if d < 0 {
		d += slotCells
	}
	return (r.Rot.get() + d) % slotCells
}

// chanCell returns the ring cell holding the channel written at scan
// position q (0-5).
func (r *registerFile) chanCell(q int32) int32 {
	d := (r.scanPos() - 1 - q) % chanCells
	if d < 0 {
		d += chanCells
	}
	return (r.Rot.get()%chanCells + d) % chanCells
}

// Registers decodes the register file.
func (c *Chip) Registers() RegisterFile {
	r := &c.regs
	m := r.Mode.get()
	rf := RegisterFile{
		Test21:       uint8(m.Test21),
		LFOEnable:    m.LFOEn,
		LFOFreq:      uint8(m.LFOFreq),
		TimerA:       uint16(m.TimerA),
		TimerB:       uint8(m.TimerB),
		CH3Mode:      uint8(m.CH3),
		TimerALoad:   m.TimerALoad,
		TimerAEnable: m.TimerAEnable,
		TimerBLoad:   m.TimerBLoad,
		TimerBEnable: m.TimerBEnable,
		KeyOnOp:      uint8(m.KonOp),
		KeyOnCh:      uint8(m.KonCh),
		DACData:      uint8(m.DACData ^ 0x80),
		DACEnable:    m.DACEn,
		Test2C:       uint8(m.Test2C),
	}

	for ch := int32(0); ch < 6; ch++ {
		part, idx := ch/3, ch%3
		cell := r.chanCell(part*3 + idx)
		cr := &rf.Channels[ch]
		cr.FNum = r.FNum.Cells[cell]
		cr.Block = uint8(r.Block.Cells[cell])
		cr.Algorithm = uint8(r.Connect.Cells[cell])
		cr.Feedback = uint8(r.FB.Cells[cell])
		cr.PMS = uint8(r.PMS.Cells[cell])
		cr.AMS = uint8(r.AMS.Cells[cell])
		pan := r.Pan.Cells[cell] ^ 3
		cr.PanL = pan&2 != 0
		cr.PanR = pan&1 != 0
		if part == 0 {
			rf.CH3FNum[idx] = r.FNum3.Cells[cell]
			rf.CH3Block[idx] = uint8(r.Block3.Cells[cell])
		}

		for slot := int32(0); slot < 4; slot++ {
			bank, o1 := slot>>1, slot&1
			cell := r.slotCell((o1<<1|part)*3 + idx)
			op := &cr.Op[operatorOrder[slot]]
			op.DT = r.DT.Cells[bank][cell]
			op.Multi = r.Multi.Cells[bank][cell]
			op.TL = r.TL.Cells[bank][cell]
			op.KS = r.KS.Cells[bank][cell]
			op.AR = r.AR.Cells[bank][cell]
			op.AM = r.AM.Cells[bank][cell] != 0
			op.DR = r.DR.Cells[bank][cell]
			op.SR = r.SR.Cells[bank][cell]
			op.SL = r.SL.Cells[bank][cell]
			op.RR = r.RR.Cells[bank][cell]
			op.SSGEG = r.SSGEG.Cells[bank][cell]
		}
	}
	return rf
}

// SlotState is the envelope generator state of one operator.
type SlotState struct {
	Channel  int
	Operator int // 1-4
	Key      bool
	State    EnvelopeState
	// Level is the 10-bit attenuation, 0 is loudest.
	Level uint16
}

// Snapshot is a point-in-time view of the chip's sequencing state.
type Snapshot struct {
	Variant Variant
	// FSMPosition is the 5-bit sequencer position, cycle counter in the
	// low two bits.
	FSMPosition int
	ScanPos     int
	LFO         uint8
	TimerA      uint16
	TimerB      uint8
	StatusA     bool
	StatusB     bool
	Busy        bool
	// Slots is indexed by channel*4 + operator-1.
	Slots [24]SlotState
}

// Snapshot returns the chip's sequencing and envelope state.
func (c *Chip) Snapshot() Snapshot {
	r := &c.regs
	eg := &c.eg
	s := Snapshot{
		Variant:     c.cfg.variant,
		FSMPosition: int(c.fsm.Cnt2.get()<<2 | c.fsm.Cnt1.get()),
		ScanPos:     int(r.scanPos()),
		LFO:         uint8(c.lfo.Out),
		TimerA:      uint16(c.tmr.ACnt.get()),
		TimerB:      uint8(c.tmr.BCnt.get()),
		StatusA:     c.tmr.AStatus.get(),
		StatusB:     c.tmr.BStatus.get(),
		Busy:        c.io.Busy.get(),
	}

	now := r.scanPos()
	for q := int32(0); q < 24; q++ {
		cnt2, cnt1 := q/3, q%3
		part := cnt2 & 1
		slot := cnt2 >> 1
		ch := int(part*3 + cnt1)
		opIdx := operatorOrder[slot]

		// The level update for a slot runs two scan steps after its
		// registers are read; the result lands in bit 0 one step later.
		stage := (now - 3 - q) % 24
		if stage < 0 {
			stage += 24
		}
		var level int32
		if stage == 0 {
			level = eg.LevelIn & 0x3ff
		} else {
			for i := range eg.Level {
				level |= ((eg.Level[i].get() >> (stage - 1)) & 1) << i
			}
		}
		s.Slots[ch*4+opIdx] = SlotState{
			Channel:  ch,
			Operator: opIdx + 1,
			Key:      (eg.Key.get()>>stage)&1 != 0,
			State:    EnvelopeState(eg.stateAt(uint(stage))),
			Level:    uint16(level),
		}
	}
	return s
}

// DACWords returns the last pair of words loaded into the YMF276 serial
// shifter. It is zero for the YM3438.
func (c *Chip) DACWords() (left, right int) {
	return int(c.dac.WordL), int(c.dac.WordR)
}
