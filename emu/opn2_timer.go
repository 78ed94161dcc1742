package emu

// timers holds timer A (10-bit), timer B (8-bit with a /16 prescaler) and
// the CSM key-on pulse derived from timer A.
type timers struct {
	ACnt       latch[int32]
	ALoadLatch latch[bool]
	ALoadOld   latch[bool]
	AOF        latch[bool]
	AStatus    latch[bool]
	ALoad      bool

	BSubcnt    latch[int32]
	BSubOF     latch[bool]
	BCnt       latch[int32]
	BLoadLatch latch[bool]
	BLoadOld   latch[bool]
	BOF        latch[bool]
	BStatus    latch[bool]
	BLoad      bool

	ClockDelay bool
	CSMKey     bool
}

func (c *Chip) timers1() {
	t := &c.tmr
	m := c.regs.Mode.get()
	ic := c.in.IC
	test := m.Test21&4 != 0
	clock1 := c.fsm.Pulse.ClockTimers1

	// timer A
	time := t.ACnt.get()
	if t.ALoadLatch.get() {
		time = m.TimerA
	}
	if (t.ALoad && clock1) || test {
		time++
	}
	if m.TimerAReset || ic {
		t.AStatus.set(false)
	} else {
		t.AStatus.set(t.AStatus.get() || (t.AOF.get() && m.TimerAEnable))
	}
	t.ALoadOld.set(t.ALoad)
	t.ALoadLatch.set((!t.ALoadOld.get() && t.ALoad) || t.AOF.get())
	if t.ALoad {
		t.ACnt.set(time & 1023)
	} else {
		t.ACnt.set(0)
	}
	t.AOF.set(time&1024 != 0)

	// timer B prescaler
	sub := t.BSubcnt.get()
	if clock1 {
		sub++
	}
	if ic {
		t.BSubcnt.set(0)
	} else {
		t.BSubcnt.set(sub & 15)
	}
	t.BSubOF.set(sub&16 != 0)

	// timer B
	time = t.BCnt.get()
	if t.BLoadLatch.get() {
		time = m.TimerB
	}
	if (t.BLoad && t.BSubOF.get()) || test {
		time++
	}
	if m.TimerBReset || ic {
		t.BStatus.set(false)
	} else {
		t.BStatus.set(t.BStatus.get() || (t.BOF.get() && m.TimerBEnable))
	}
	t.BLoadOld.set(t.BLoad)
	t.BLoadLatch.set((!t.BLoadOld.get() && t.BLoad) || t.BOF.get())
	if t.BLoad {
		t.BCnt.set(time & 255)
	} else {
		t.BCnt.set(0)
	}
	t.BOF.set(time&256 != 0)

	t.ClockDelay = c.fsm.Pulse.ClockTimers
}

func (c *Chip) timers2() {
	t := &c.tmr
	t.ALoadLatch.commit()
	t.ALoadOld.commit()
	t.ACnt.commit()
	t.AOF.commit()
	t.AStatus.commit()
	t.BSubcnt.commit()
	t.BSubOF.commit()
	t.BLoadLatch.commit()
	t.BLoadOld.commit()
	t.BCnt.commit()
	t.BOF.commit()
	t.BStatus.commit()

	if !t.ClockDelay && c.fsm.Pulse.ClockTimers {
		m := c.regs.Mode.get()
		t.ALoad = m.TimerALoad
		t.BLoad = m.TimerBLoad
		t.CSMKey = m.CH3 == 2 && ((!t.ALoadOld.get() && t.ALoad) || t.AOF.get())
	}
	if !c.ioDir() {
		c.io.StatusA = t.AStatus.get()
		c.io.StatusB = t.BStatus.get()
	}
}
