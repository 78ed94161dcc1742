package emu

import "testing"

func TestStatus_TimerAOverflow(t *testing.T) {
	o := newTestOPN2(VariantYM3438)

	// Period 1023: overflow on the first tick after load.
	writeRegs(o, 0,
		0x24, 0xFF,
		0x25, 0x03,
		0x27, 0x05, // load + enable A
	)
	flush(o)
	runSamples(o, 8)

	status := o.ReadPort(0)
	if status&0x01 == 0 {
		t.Fatalf("expected timer A flag, status 0x%02X", status)
	}
	if status&0x02 != 0 {
		t.Errorf("timer B flag set without timer B running, status 0x%02X", status)
	}

	// Reset flag A, stop the timer.
	writeRegs(o, 0, 0x27, 0x10)
	flush(o)
	if status := o.ReadPort(0); status&0x01 != 0 {
		t.Errorf("expected timer A flag cleared, status 0x%02X", status)
	}
}

func TestStatus_TimerAEnableGatesFlag(t *testing.T) {
	o := newTestOPN2(VariantYM3438)

	// Load without enable: the counter runs but the flag stays clear.
	writeRegs(o, 0,
		0x24, 0xFF,
		0x25, 0x03,
		0x27, 0x01,
	)
	flush(o)
	runSamples(o, 8)
	if status := o.ReadPort(0); status&0x01 != 0 {
		t.Errorf("expected no timer A flag without enable, status 0x%02X", status)
	}
}

func TestStatus_TimerAPeriod(t *testing.T) {
	o := newTestOPN2(VariantYM3438)

	// Period 1024-1000 = 24 FM cycles.
	writeRegs(o, 0,
		0x24, 0xFA, // 1000 >> 2
		0x25, 0x00,
	)
	flush(o)
	writeRegs(o, 0, 0x27, 0x05)

	first := -1
	for i := 0; i < 200; i++ {
		o.GenerateSamples(ClocksPerSample)
		if o.ReadPort(0)&0x01 != 0 {
			first = i
			break
		}
	}
	if first < 0 {
		t.Fatal("timer A never overflowed")
	}
	// The write itself takes a couple of FM cycles to land.
	if first < 20 || first > 30 {
		t.Errorf("timer A first overflow after %d samples, want about 24", first)
	}
}

func TestStatus_TimerARepeats(t *testing.T) {
	o := newTestOPN2(VariantYM3438)

	// Period 1024-1000 = 24 FM cycles, one per native sample.
	writeRegs(o, 0,
		0x24, 0xFA,
		0x25, 0x00,
	)
	flush(o)
	writeRegs(o, 0, 0x27, 0x05)

	sample := 0
	flagged := func() bool {
		o.GenerateSamples(ClocksPerSample)
		sample++
		return o.ReadPort(0)&0x01 != 0
	}
	waitFlag := func() int {
		for i := 0; i < 200; i++ {
			if flagged() {
				return sample
			}
		}
		t.Fatalf("timer A flag not set within 200 samples of sample %d", sample)
		return 0
	}

	last := waitFlag()
	for n := 0; n < 4; n++ {
		// Reset the flag and keep the timer loaded and enabled.
		writeRegs(o, 0, 0x27, 0x15)
		cleared := false
		for i := 0; i < 10 && !cleared; i++ {
			cleared = !flagged()
		}
		if !cleared {
			t.Fatalf("overflow %d: flag not cleared by the reset write", n)
		}
		next := waitFlag()
		if next-last != 24 {
			t.Fatalf("overflow %d: %d samples after the previous one, want 24", n+1, next-last)
		}
		last = next
	}

	// Without a reset write the flag holds across later overflows.
	for i := 0; i < 3*24; i++ {
		if !flagged() {
			t.Fatalf("timer A flag dropped %d samples after overflow", i+1)
		}
	}
	writeRegs(o, 0, 0x27, 0x15)
	flush(o)
	if status := o.ReadPort(0); status&0x01 != 0 {
		t.Errorf("expected timer A flag cleared, status 0x%02X", status)
	}
}

func TestStatus_TimerBOverflow(t *testing.T) {
	o := newTestOPN2(VariantYM3438)

	// Period 256-255 = 1 tick of 16 FM cycles.
	writeRegs(o, 0,
		0x26, 0xFF,
		0x27, 0x0A, // load + enable B
	)
	flush(o)
	runSamples(o, 40)

	status := o.ReadPort(0)
	if status&0x02 == 0 {
		t.Fatalf("expected timer B flag, status 0x%02X", status)
	}
	if status&0x01 != 0 {
		t.Errorf("timer A flag set without timer A running, status 0x%02X", status)
	}

	writeRegs(o, 0, 0x27, 0x20)
	flush(o)
	if status := o.ReadPort(0); status&0x02 != 0 {
		t.Errorf("expected timer B flag cleared, status 0x%02X", status)
	}
}

func TestStatus_Busy(t *testing.T) {
	o := newTestOPN2(VariantYM3438)

	o.WriteRegister(0, 0x30, 0x01)
	// address strobe + settle, data strobe + settle
	o.GenerateSamples(2 * (writeStrobeCycles + writeSettleCycles + 1))
	if status := o.ReadPort(0); status&0x80 == 0 {
		t.Fatalf("expected busy after data write, status 0x%02X", status)
	}

	// Busy lasts 32 phi cycles of six master clocks.
	o.GenerateSamples(32*6 + 12)
	if status := o.ReadPort(0); status&0x80 != 0 {
		t.Errorf("expected busy cleared, status 0x%02X", status)
	}
}

func TestStatus_BusyPacesQueue(t *testing.T) {
	o := newTestOPN2(VariantYM3438)

	o.WriteRegister(0, 0x30, 0x01)
	o.WriteRegister(0, 0x31, 0x02)
	if o.Pending() != 4 {
		t.Fatalf("pending: got %d, want 4", o.Pending())
	}

	// The second address write waits for busy to clear.
	o.GenerateSamples(120)
	if o.Pending() != 2 {
		t.Errorf("pending during busy: got %d, want 2", o.Pending())
	}
	flush(o)
	if o.Pending() != 0 {
		t.Errorf("pending after flush: got %d, want 0", o.Pending())
	}
}

func TestStatus_OnlyPortZero(t *testing.T) {
	o := newTestOPN2(VariantYM3438)
	writeRegs(o, 0, 0x24, 0xFF, 0x25, 0x03, 0x27, 0x05)
	flush(o)
	runSamples(o, 8)

	if o.ReadPort(0)&0x01 == 0 {
		t.Fatal("expected timer A flag on port 0")
	}
	for port := uint8(1); port < 4; port++ {
		if v := o.ReadPort(port); v != 0 {
			t.Errorf("port %d: got 0x%02X, want 0", port, v)
		}
	}
}

func TestStatus_ReadRestoresPins(t *testing.T) {
	o := newTestOPN2(VariantYM3438)
	before := o.Chip().Pins()
	o.ReadPort(0)
	if after := o.Chip().Pins(); after != before {
		t.Errorf("pins changed by read: %+v -> %+v", before, after)
	}
}

func TestStatus_ICClearsFlags(t *testing.T) {
	o := newTestOPN2(VariantYM3438)
	writeRegs(o, 0, 0x24, 0xFF, 0x25, 0x03, 0x27, 0x05)
	flush(o)
	runSamples(o, 8)
	if o.ReadPort(0)&0x01 == 0 {
		t.Fatal("expected timer A flag")
	}

	o.Reset()
	if status := o.ReadPort(0); status != 0 {
		t.Errorf("expected status 0 after reset, got 0x%02X", status)
	}
	if o.Pending() != 0 {
		t.Errorf("expected empty queue after reset, got %d", o.Pending())
	}
}

func TestStatus_TestPin(t *testing.T) {
	o := newTestOPN2(VariantYM3438)
	c := o.Chip()
	if c.ReadTest() {
		t.Fatal("TEST pin output without test register")
	}

	writeRegs(o, 0, 0x2C, 0x80)
	flush(o)

	// The end-of-cycle pulse shows once per FM cycle.
	high := 0
	for i := 0; i < ClocksPerSample; i += 6 {
		o.GenerateSamples(6)
		if c.ReadTest() {
			high++
		}
	}
	if high == 0 || high > 2 {
		t.Errorf("TEST pin high for %d of 24 phi cycles, want 1", high)
	}
}
