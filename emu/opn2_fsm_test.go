package emu

import "testing"

func TestFSM_DecodeTables(t *testing.T) {
	for _, v := range []Variant{VariantYM3438, VariantYMF276} {
		cfg := configFor(v)
		var op1, op2, op3, op4, ch3, sel23, dacLoad int
		for pos := 0; pos < 32; pos++ {
			p := cfg.direct[pos].or(cfg.delayed[pos])
			if pos&3 == 3 {
				continue
			}
			op1 += int(b2i(p.Op1Sel))
			op2 += int(b2i(p.Op2Sel))
			op3 += int(b2i(p.Op3Sel))
			op4 += int(b2i(p.Op4Sel))
			ch3 += int(b2i(p.CH3Sel))
			sel23 += int(b2i(p.Sel23))
			dacLoad += int(b2i(p.DACLoad))
		}
		for name, n := range map[string]int{"OP1": op1, "OP2": op2, "OP3": op3, "OP4": op4} {
			if n != 6 {
				t.Errorf("%s: %s selected at %d positions, want 6", v, name, n)
			}
		}
		if ch3 != 4 {
			t.Errorf("%s: CH3 selected at %d positions, want 4", v, ch3)
		}
		if sel23 != 1 {
			t.Errorf("%s: end of cycle at %d positions, want 1", v, sel23)
		}
		if dacLoad == 0 {
			t.Errorf("%s: no DAC load positions", v)
		}
	}
}

func TestFSM_Periodic(t *testing.T) {
	for _, v := range []Variant{VariantYM3438, VariantYMF276} {
		o := newTestOPN2(v)
		c := o.Chip()

		start := c.Snapshot()
		o.GenerateSamples(6)
		if c.Snapshot().FSMPosition == start.FSMPosition {
			t.Errorf("%s: sequencer did not advance in one slot", v)
		}
		o.GenerateSamples(ClocksPerSample - 6)
		end := c.Snapshot()
		if end.FSMPosition != start.FSMPosition {
			t.Errorf("%s: position after one FM cycle: got %d, want %d", v, end.FSMPosition, start.FSMPosition)
		}
		if end.ScanPos != start.ScanPos {
			t.Errorf("%s: scan position after one FM cycle: got %d, want %d", v, end.ScanPos, start.ScanPos)
		}
	}
}

func TestFSM_VisitsEveryPosition(t *testing.T) {
	o := newTestOPN2(VariantYM3438)
	c := o.Chip()
	seen := map[int]bool{}
	for i := 0; i < ClocksPerSample; i++ {
		o.GenerateSamples(1)
		seen[c.Snapshot().FSMPosition] = true
	}
	if len(seen) != 24 {
		t.Errorf("visited %d positions in one FM cycle, want 24", len(seen))
	}
	for pos := range seen {
		if pos&3 == 3 {
			t.Errorf("visited unreachable position %d", pos)
		}
	}
}
