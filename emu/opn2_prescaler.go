package emu

// prescaler divides the oscillator into the two FM phases and debounces IC.
type prescaler struct {
	ICLatch   latch[int32] // 12-stage IC history
	ICCheck   latch[int32] // 5-stage debounce
	Count     latch[int32] // 6-stage one-hot divider
	Phi1      latch[bool]
	Phi2      latch[bool]
	FSMReset  bool
	DPhi1     latch[bool]
	DPhi1Hold bool
	DPhi1Out  bool
	DPhi2     latch[bool]
	DPhi2Hold bool
	DClk1     bool
	DClk2     bool
}

func (c *Chip) prescale() {
	p := &c.clk
	if !c.pin.Phi {
		icCheck := p.ICLatch.get()&0x800 == 0 && c.pin.IC

		p.ICLatch.set((p.ICLatch.get()<<1 | b2i(c.pin.IC)) & 0xfff)
		p.Count.set((p.Count.get()<<1 | b2i(!icCheck && p.Count.get()&0x1f == 0)) & 0x3f)
		p.ICCheck.set((p.ICCheck.get()<<1 | b2i(icCheck)) & 0x1f)

		p.Phi1.set(p.Count.get()&0x21 != 0)
		p.Phi2.set(p.Count.get()&0x0c != 0)

		if c.cfg.serialDAC {
			p.DPhi1.set(p.Count.get()&0x09 != 0)
			p.DPhi2.set(p.Count.get()&0x24 != 0)
			p.DPhi1Hold = p.DPhi1.get()
			p.DPhi2Hold = p.DPhi2.get()
		}
	} else {
		p.ICLatch.commit()
		p.ICCheck.commit()
		p.Count.commit()
		p.Phi1.commit()
		p.Phi2.commit()

		if c.cfg.serialDAC {
			p.DPhi1.commit()
			p.DPhi2.commit()
			p.DPhi1Out = p.DPhi1Hold
		}
	}

	p.FSMReset = p.ICCheck.get()&0x10 != 0

	if c.cfg.serialDAC {
		p.DClk1 = p.DPhi1.get() && !p.DPhi1Hold
		p.DClk2 = p.DPhi2.get() && !p.DPhi2Hold
	}
}
