package emu

// busState is the host bus front end: edge-triggered write strobes, the busy
// counter and the status read latches.
type busState struct {
	DataLatch uint8
	BankLatch bool

	AddrTrig     bool
	AddrTrigSync bool
	AddrDelay    bool
	AddrSR       latch[bool]
	DataTrig     bool
	DataTrigSync bool
	DataDelay    bool
	DataSR       latch[bool]

	BusyCnt latch[int32]
	Busy    latch[bool]
	IC      latch[bool]

	StatusA bool
	StatusB bool
}

func (c *Chip) ioDir() bool {
	return c.in.CS && c.in.RD && !c.in.IC
}

// handleIO runs on every evaluation, independent of the FM phases.
func (c *Chip) handleIO() {
	io := &c.io
	writeData := c.in.CS && c.in.WR && c.in.Address&1 == 1 && !c.in.IC
	writeAddr := (c.in.CS && c.in.WR && c.in.Address&1 == 0) || c.in.IC
	readEnable := c.ioDir()

	if c.in.CS && c.in.WR {
		io.DataLatch = c.in.Data
		io.BankLatch = c.in.Address&2 != 0
	}

	if writeAddr {
		io.AddrTrig = true
	}
	if writeData {
		io.DataTrig = true
	}

	if !readEnable {
		io.StatusA = c.tmr.AStatus.get()
		io.StatusB = c.tmr.BStatus.get()
	}
}

func (c *Chip) writeAddrEn() bool {
	return !c.io.AddrSR.get() && c.io.AddrDelay
}

func (c *Chip) writeDataEn() bool {
	return !c.io.DataSR.get() && c.io.DataDelay
}

// bus returns the value on the internal data bus.
func (c *Chip) bus() int32 {
	var data int32
	if !c.ioDir() && !c.in.IC {
		data = int32(c.io.DataLatch)
	}
	if c.io.IC.get() {
		data = 0
	}
	return data
}

func (c *Chip) handleIO1() {
	io := &c.io
	dataEn := c.writeDataEn()
	busyCnt := io.BusyCnt.get() + b2i(io.Busy.get())
	busyOF := busyCnt&0x20 != 0

	io.AddrTrigSync = io.AddrTrig
	io.DataTrigSync = io.DataTrig
	io.AddrSR.set(io.AddrDelay)
	io.DataSR.set(io.DataDelay)

	io.Busy.set(dataEn || (io.Busy.get() && !(c.in.IC || busyOF)))
	if c.in.IC {
		busyCnt = 0
	}
	io.BusyCnt.set(busyCnt & 31)
	io.IC.set(c.in.IC)
}

func (c *Chip) handleIO2() {
	io := &c.io
	io.AddrDelay = io.AddrTrigSync
	if io.AddrDelay {
		io.AddrTrig = false
	}
	io.DataDelay = io.DataTrigSync
	if io.DataDelay {
		io.DataTrig = false
	}
	io.AddrSR.commit()
	io.DataSR.commit()
	io.BusyCnt.commit()
	io.Busy.commit()
	io.IC.commit()
}

// Bus returns the value the chip currently drives on D7:D0.
func (c *Chip) Bus() uint8 {
	return c.ReadStatus()
}

// ReadStatus returns the status byte for the current pin state. It is zero
// unless CS and RD are asserted with A1:A0 == 0.
func (c *Chip) ReadStatus() uint8 {
	if !c.ioDir() || c.in.Address&3 != 0 {
		return 0
	}
	m := c.regs.Mode.get()
	if m.Test21&0x40 == 0 {
		return uint8(b2i(c.io.Busy.get())<<7 | b2i(c.io.StatusB)<<1 | b2i(c.io.StatusA))
	}

	var test int32
	test |= (c.pg.Debug.get() & 1) << 15
	if m.Test21&0x01 != 0 {
		test |= ((c.eg.Debug.get() >> 9) & 1) << 14
	} else {
		test |= b2i(c.eg.IncshNonzero.get()) << 14
	}
	if m.Test2C&0x10 != 0 {
		test |= c.acc.Debug.get() & 0x1ff
	} else {
		test |= c.op.Output.get() & 0x3fff
	}
	if m.Test21&0x80 != 0 {
		return uint8(test & 0xff)
	}
	return uint8(test >> 8)
}

// ReadTest returns the TEST pin output. With test register 0x2C bit 7 set the
// pin shows the end-of-cycle pulse.
func (c *Chip) ReadTest() bool {
	if c.regs.Mode.get().Test2C&0x80 != 0 {
		return c.fsm.Pulse.Sel23
	}
	return false
}
