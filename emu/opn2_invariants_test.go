package emu

import "testing"

func TestLatch_CommitDiscipline(t *testing.T) {
	var l latch[int32]
	l.set(5)
	if l.get() != 0 {
		t.Fatalf("set visible before commit: got %d", l.get())
	}
	l.commit()
	if l.get() != 5 {
		t.Fatalf("after commit: got %d, want 5", l.get())
	}
	l.set(9)
	l.set(7)
	if l.get() != 5 {
		t.Fatalf("second set visible before commit: got %d", l.get())
	}
	l.commit()
	if l.get() != 7 {
		t.Fatalf("after second commit: got %d, want 7", l.get())
	}
}

// Stepping the two phases by hand: phase 1 must leave every committed
// value alone and compute Next from it, phase 2 must make Next visible.
func TestChip_PhaseCommitOrder(t *testing.T) {
	o := newTestOPN2(VariantYM3438)
	c := o.Chip()
	ticks := 0

	for i := 0; i < 3*24; i++ {
		cnt1, cnt2 := c.fsm.Cnt1.get(), c.fsm.Cnt2.get()
		rot := c.regs.Rot.get()
		sub := c.tmr.BSubcnt.get()
		if c.fsm.Pulse.ClockTimers1 {
			ticks++
		}

		wantCnt1, wantCnt2 := cnt1+1, cnt2
		if cnt1 == 2 {
			wantCnt1, wantCnt2 = 0, (cnt2+1)&7
		}
		wantRot := (rot + slotCells - 1) % slotCells
		wantSub := (sub + b2i(c.fsm.Pulse.ClockTimers1)) & 15

		c.clockPhase1()
		if c.fsm.Cnt1.get() != cnt1 || c.fsm.Cnt2.get() != cnt2 {
			t.Fatalf("step %d: phase 1 changed the committed sequencer %d/%d -> %d/%d",
				i, cnt2, cnt1, c.fsm.Cnt2.get(), c.fsm.Cnt1.get())
		}
		if c.regs.Rot.get() != rot {
			t.Fatalf("step %d: phase 1 moved the ring head %d -> %d", i, rot, c.regs.Rot.get())
		}
		if c.tmr.BSubcnt.get() != sub {
			t.Fatalf("step %d: phase 1 changed the timer B prescaler %d -> %d", i, sub, c.tmr.BSubcnt.get())
		}
		if c.fsm.Cnt1.Next != wantCnt1 || c.fsm.Cnt2.Next != wantCnt2 {
			t.Fatalf("step %d: sequencer next %d/%d, want %d/%d",
				i, c.fsm.Cnt2.Next, c.fsm.Cnt1.Next, wantCnt2, wantCnt1)
		}
		if c.regs.Rot.Next != wantRot {
			t.Fatalf("step %d: ring head next %d, want %d", i, c.regs.Rot.Next, wantRot)
		}
		if c.tmr.BSubcnt.Next != wantSub {
			t.Fatalf("step %d: timer B prescaler next %d, want %d", i, c.tmr.BSubcnt.Next, wantSub)
		}

		c.clockPhase2()
		if c.fsm.Cnt1.get() != wantCnt1 || c.fsm.Cnt2.get() != wantCnt2 {
			t.Fatalf("step %d: sequencer after commit %d/%d, want %d/%d",
				i, c.fsm.Cnt2.get(), c.fsm.Cnt1.get(), wantCnt2, wantCnt1)
		}
		if c.regs.Rot.get() != wantRot {
			t.Fatalf("step %d: ring head after commit %d, want %d", i, c.regs.Rot.get(), wantRot)
		}
		if c.tmr.BSubcnt.get() != wantSub {
			t.Fatalf("step %d: timer B prescaler after commit %d, want %d", i, c.tmr.BSubcnt.get(), wantSub)
		}
	}
	if ticks == 0 {
		t.Fatal("timer clock pulse never seen over three FM cycles")
	}
}

// renderPanPair plays the same sine on ch0 and ch1 in one render, keying
// ch1 a little later so the two voices are out of phase.
func renderPanPair(pan0, pan1 uint8) []int16 {
	o := newTestOPN2(VariantYM3438)
	setupSine(o)
	writeRegs(o, 0, 0xB4, pan0)
	flush(o)
	runSamples(o, 50)

	writeRegs(o, 0,
		0xB1, 0x07,
		0x31, 0x01,
		0x41, 0x00,
		0x51, 0x1F,
		0x81, 0x0F,
		0x39, 0x01, 0x35, 0x01, 0x3D, 0x01,
		0x49, 0x7F, 0x45, 0x7F, 0x4D, 0x7F,
		0xB5, pan1,
		0xA5, 0x22,
		0xA1, 0x69,
		0x28, 0x11,
	)
	flush(o)
	return runSamples(o, 300)
}

func TestOPN2_PanSumsToCentre(t *testing.T) {
	split := renderPanPair(0x80, 0x40)
	centre := renderPanPair(0xC0, 0xC0)

	differ := false
	for i := 0; i < len(split); i += 2 {
		l, r := int(split[i]), int(split[i+1])
		if l != r {
			differ = true
		}
		// Both sides of the centred render carry ch0+ch1; 7/8 scaling
		// truncates each side separately.
		for side, c := range []int{int(centre[i]), int(centre[i+1])} {
			if d := l + r - c; d < -1 || d > 1 {
				t.Fatalf("frame %d side %d: L %d + R %d does not match centre %d", i/2, side, l, r, c)
			}
		}
	}
	if !differ {
		t.Fatal("left-only ch0 and right-only ch1 produced identical sides")
	}
	if maxAbs(split) < 500 {
		t.Fatalf("expected audible output, peak %d", maxAbs(split))
	}
}

// envTrace keys ch0 OP1 with moderate rates, samples its envelope once per
// output sample and keys it off half way.
func envTrace(t *testing.T, v Variant, samples int) []SlotState {
	t.Helper()
	o := newTestOPN2(v)
	writeRegs(o, 0,
		0x40, 0x00,
		0x50, 0x18, // AR=24
		0x60, 0x14, // DR=20
		0x70, 0x00, // SR=0
		0x80, 0x4F, // SL=4 RR=15
		0x28, 0x10,
	)
	flush(o)

	trace := make([]SlotState, 0, samples)
	for i := 0; i < samples; i++ {
		if i == samples/2 {
			writeRegs(o, 0, 0x28, 0x00)
		}
		o.GenerateSamples(ClocksPerSample)
		trace = append(trace, o.Chip().Snapshot().Slots[0])
	}
	return trace
}

func TestEG_StateOrder(t *testing.T) {
	for _, v := range []Variant{VariantYM3438, VariantYMF276} {
		trace := envTrace(t, v, 6000)

		var order []EnvelopeState
		for _, s := range trace {
			if len(order) == 0 || order[len(order)-1] != s.State {
				order = append(order, s.State)
			}
		}
		want := []EnvelopeState{EnvAttack, EnvDecay, EnvSustain, EnvRelease}
		// Anything before the first attack is the idle release.
		for len(order) > 0 && order[0] != EnvAttack {
			order = order[1:]
		}
		if len(order) != len(want) {
			t.Fatalf("%s: state order %v, want %v", v, order, want)
		}
		for i := range want {
			if order[i] != want[i] {
				t.Fatalf("%s: state order %v, want %v", v, order, want)
			}
		}

		if last := trace[len(trace)-1]; last.Level != 0x3FF {
			t.Errorf("%s: expected silence at the end, level 0x%03X", v, last.Level)
		}
	}
}

func TestEG_Monotonic(t *testing.T) {
	trace := envTrace(t, VariantYM3438, 6000)
	for i := 2; i < len(trace); i++ {
		a, b, c := trace[i-2], trace[i-1], trace[i]
		if a.State != b.State || b.State != c.State {
			continue
		}
		switch c.State {
		case EnvAttack:
			if c.Level > b.Level {
				t.Fatalf("sample %d: attack level rose 0x%03X -> 0x%03X", i, b.Level, c.Level)
			}
		default:
			if c.Level < b.Level {
				t.Fatalf("sample %d: %s level fell 0x%03X -> 0x%03X", i, c.State, b.Level, c.Level)
			}
		}
	}
}
