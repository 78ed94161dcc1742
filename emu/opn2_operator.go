package emu

// Quarter-wave log-sine and exponent tables, 128 entries each with a delta
// for the odd half-step.

var opLogSin = [128]int32{
	0x6c3, 0x58b, 0x4e4, 0x471, 0x41a, 0x3d3, 0x398, 0x365, 0x339, 0x311, 0x2ed, 0x2cd, 0x2af, 0x293, 0x279, 0x261,
	0x24b, 0x236, 0x222, 0x20f, 0x1fd, 0x1ec, 0x1dc, 0x1cd, 0x1be, 0x1b0, 0x1a2, 0x195, 0x188, 0x17c, 0x171, 0x166,
	0x15b, 0x150, 0x146, 0x13c, 0x133, 0x129, 0x121, 0x118, 0x10f, 0x107, 0x0ff, 0x0f8, 0x0f0, 0x0e9, 0x0e2, 0x0db,
	0x0d4, 0x0cd, 0x0c7, 0x0c1, 0x0bb, 0x0b5, 0x0af, 0x0a9, 0x0a4, 0x09f, 0x099, 0x094, 0x08f, 0x08a, 0x086, 0x081,
	0x07d, 0x078, 0x074, 0x070, 0x06c, 0x068, 0x064, 0x060, 0x05c, 0x059, 0x055, 0x052, 0x04e, 0x04b, 0x048, 0x045,
	0x042, 0x03f, 0x03c, 0x039, 0x037, 0x034, 0x031, 0x02f, 0x02d, 0x02a, 0x028, 0x026, 0x024, 0x022, 0x020, 0x01e,
	0x01c, 0x01a, 0x018, 0x017, 0x015, 0x014, 0x012, 0x011, 0x00f, 0x00e, 0x00d, 0x00c, 0x00a, 0x009, 0x008, 0x007,
	0x007, 0x006, 0x005, 0x004, 0x004, 0x003, 0x002, 0x002, 0x001, 0x001, 0x001, 0x001, 0x000, 0x000, 0x000, 0x000,
}

var opLogSinDelta = [128]int32{
	0x196, 0x07c, 0x04a, 0x035, 0x029, 0x022, 0x01d, 0x019, 0x015, 0x013, 0x012, 0x00f, 0x00e, 0x00d, 0x00d, 0x00c,
	0x00b, 0x00a, 0x00a, 0x009, 0x009, 0x009, 0x008, 0x007, 0x007, 0x007, 0x007, 0x006, 0x007, 0x006, 0x006, 0x005,
	0x005, 0x005, 0x005, 0x005, 0x004, 0x005, 0x004, 0x004, 0x005, 0x004, 0x004, 0x003, 0x004, 0x003, 0x003, 0x003,
	0x003, 0x004, 0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x002, 0x003, 0x003, 0x003, 0x003, 0x002, 0x002,
	0x002, 0x002, 0x002, 0x002, 0x002, 0x002, 0x002, 0x002, 0x002, 0x002, 0x002, 0x001, 0x002, 0x002, 0x002, 0x001,
	0x001, 0x001, 0x002, 0x002, 0x001, 0x001, 0x002, 0x001, 0x001, 0x001, 0x001, 0x001, 0x001, 0x001, 0x001, 0x001,
	0x001, 0x001, 0x001, 0x000, 0x001, 0x000, 0x001, 0x000, 0x001, 0x001, 0x000, 0x000, 0x001, 0x001, 0x001, 0x001,
	0x000, 0x000, 0x000, 0x001, 0x000, 0x000, 0x001, 0x000, 0x001, 0x000, 0x000, 0x000, 0x000, 0x000, 0x000, 0x000,
}

var opPow = [128]int32{
	0x3f5, 0x3ea, 0x3df, 0x3d4, 0x3c9, 0x3bf, 0x3b4, 0x3a9, 0x39f, 0x394, 0x38a, 0x37f, 0x375, 0x36a, 0x360, 0x356,
	0x34c, 0x342, 0x338, 0x32e, 0x324, 0x31a, 0x310, 0x306, 0x2fd, 0x2f3, 0x2e9, 0x2e0, 0x2d6, 0x2cd, 0x2c4, 0x2ba,
	0x2b1, 0x2a8, 0x29e, 0x295, 0x28c, 0x283, 0x27a, 0x271, 0x268, 0x25f, 0x257, 0x24e, 0x245, 0x23c, 0x234, 0x22b,
	0x223, 0x21a, 0x212, 0x209, 0x201, 0x1f9, 0x1f0, 0x1e8, 0x1e0, 0x1d8, 0x1d0, 0x1c8, 0x1c0, 0x1b8, 0x1b0, 0x1a8,
	0x1a0, 0x199, 0x191, 0x189, 0x181, 0x17a, 0x172, 0x16b, 0x163, 0x15c, 0x154, 0x14d, 0x146, 0x13e, 0x137, 0x130,
	0x129, 0x122, 0x11b, 0x114, 0x10c, 0x106, 0x0ff, 0x0f8, 0x0f1, 0x0ea, 0x0e3, 0x0dc, 0x0d6, 0x0cf, 0x0c8, 0x0c2,
	0x0bb, 0x0b5, 0x0ae, 0x0a8, 0x0a1, 0x09b, 0x094, 0x08e, 0x088, 0x082, 0x07b, 0x075, 0x06f, 0x069, 0x063, 0x05d,
	0x057, 0x051, 0x04b, 0x045, 0x03f, 0x039, 0x033, 0x02d, 0x028, 0x022, 0x01c, 0x016, 0x011, 0x00b, 0x006, 0x000,
}

var opPowDelta = [128]int32{
	0x005, 0x005, 0x005, 0x006, 0x006, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x006, 0x005, 0x005,
	0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x004, 0x005,
	0x004, 0x004, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x005, 0x004, 0x004, 0x004, 0x005, 0x004, 0x005,
	0x004, 0x004, 0x004, 0x005, 0x004, 0x004, 0x005, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004,
	0x004, 0x003, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004, 0x004, 0x003, 0x004, 0x004, 0x004,
	0x003, 0x003, 0x003, 0x003, 0x004, 0x003, 0x003, 0x003, 0x003, 0x003, 0x004, 0x004, 0x003, 0x003, 0x004, 0x003,
	0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x004, 0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x003,
	0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x003, 0x002, 0x003, 0x003, 0x003, 0x003, 0x003, 0x002, 0x003,
}

// operatorNet computes one operator output per FM cycle: phase modulation,
// log-sine lookup, attenuation and exponent conversion.
type operatorNet struct {
	Mod         [10]latch[int32]
	Phase       latch[int32]
	Sign        latch[int32]
	LogAddDelta latch[bool]
	LogBase     latch[int32]
	LogDelta    latch[int32]
	Env         latch[int32]
	Atten       latch[int32]
	PowAddDelta latch[bool]
	PowBase     latch[int32]
	PowDelta    latch[int32]
	Shift       latch[int32]
	Output      latch[int32]
	Op1         [2][14]latch[int32]
	Op2         [14]latch[int32]
	ModSum      latch[int32]
	DoFeedback  latch[bool]
}

func (c *Chip) operator1() {
	op := &c.op
	alg := c.fsm.Alg

	var phase, carry int32
	for i := 0; i < 10; i++ {
		carry += (op.Mod[i].get() >> 5) & 1
		carry += (c.pg.Phase[10+i].get() >> 19) & 1
		phase += (carry & 1) << i
		carry >>= 1
	}
	op.Phase.set(phase)
	op.Sign.set((op.Sign.get()<<1 | (op.Phase.get()>>9)&1) & 7)

	quarter := op.Phase.get() & 255
	if op.Phase.get()&256 != 0 {
		quarter ^= 255
	}
	op.LogAddDelta.set(quarter&1 == 0)
	op.LogBase.set(opLogSin[quarter>>1])
	op.LogDelta.set(opLogSinDelta[quarter>>1])
	op.Env.set(c.eg.OutTotal)

	atten := op.LogBase.get()
	if op.LogAddDelta.get() {
		atten += op.LogDelta.get()
	}
	atten += op.Env.get() << 2
	op.Atten.set(atten)

	atten = op.Atten.get()
	if atten&4096 != 0 {
		atten = 4095
	}
	index := atten & 255
	op.Shift.set(atten >> 8)
	op.PowAddDelta.set(index&1 == 0)
	op.PowBase.set(opPow[index>>1])
	op.PowDelta.set(opPowDelta[index>>1])

	output := op.PowBase.get()
	if op.PowAddDelta.get() {
		output += op.PowDelta.get()
	}
	output |= 0x400
	output = (output << 2) >> op.Shift.get()
	if c.regs.Mode.get().Test21&16 != 0 {
		output ^= 1 << 13
	}
	if op.Sign.get()&4 != 0 {
		output ^= 0x3fff
		output++
	}
	op.Output.set(output)

	// 6-stage delay lines holding the previous outputs of op1 and op2
	out := op.Output.get()
	for i := 0; i < 14; i++ {
		a := op.Op1[0][i].get()
		b := op.Op1[1][i].get()
		d := op.Op2[i].get()
		if c.fsm.Pulse.Op1Sel {
			op.Op1[0][i].set((a<<1 | (out>>i)&1) & 0x3f)
			op.Op1[1][i].set((b<<1 | (a>>5)&1) & 0x3f)
		} else {
			op.Op1[0][i].set((a<<1 | (a>>5)&1) & 0x3f)
			op.Op1[1][i].set((b<<1 | (b>>5)&1) & 0x3f)
		}
		if c.fsm.Pulse.Op2Sel {
			op.Op2[i].set((d<<1 | (out>>i)&1) & 0x3f)
		} else {
			op.Op2[i].set((d<<1 | (d>>5)&1) & 0x3f)
		}
	}

	var mod1, mod2 int32
	if alg.ModOp1First {
		mod2 |= op.delayed(&op.Op1[0])
	}
	if alg.ModOp1Second {
		mod1 |= op.delayed(&op.Op1[1])
	}
	if alg.ModOp2 {
		mod1 |= op.delayed(&op.Op2)
	}
	if alg.ModPrev0 {
		mod2 |= out & 0x3fff
	}
	if alg.ModPrev1 {
		mod1 |= out & 0x3fff
	}
	if mod1&(1<<13) != 0 {
		mod1 |= 1 << 14
	}
	if mod2&(1<<13) != 0 {
		mod2 |= 1 << 14
	}
	mod := ((mod1 + mod2) >> 1) & 0x3fff
	op.ModSum.set(mod)
	op.DoFeedback.set(c.fsm.Pulse.Op2Sel)

	if op.DoFeedback.get() {
		fb := c.regs.channel(&c.regs.FB, 0)
		if fb == 0 {
			mod = 0
		} else {
			mod = op.ModSum.get()
			if mod&(1<<13) != 0 {
				mod |= ^0x3fff
			}
			mod >>= 9 - fb
		}
	} else {
		mod = op.ModSum.get()
	}

	for i := range op.Mod {
		op.Mod[i].set((op.Mod[i].get()<<1 | mod&1) & 0x3f)
		mod >>= 1
	}
}

// delayed reads a 14-bit word from the far end of a delay line.
func (op *operatorNet) delayed(line *[14]latch[int32]) int32 {
	var v int32
	for i := range line {
		v |= ((line[i].get() >> 5) & 1) << i
	}
	return v
}

func (c *Chip) operator2() {
	op := &c.op
	for i := range op.Mod {
		op.Mod[i].commit()
	}
	for i := 0; i < 14; i++ {
		op.Op1[0][i].commit()
		op.Op1[1][i].commit()
		op.Op2[i].commit()
	}
	op.Phase.commit()
	op.Sign.commit()
	op.LogAddDelta.commit()
	op.LogBase.commit()
	op.LogDelta.commit()
	op.Env.commit()
	op.Atten.commit()
	op.PowAddDelta.commit()
	op.PowBase.commit()
	op.PowDelta.commit()
	op.Shift.commit()
	op.Output.commit()
	op.ModSum.commit()
	op.DoFeedback.commit()
}
