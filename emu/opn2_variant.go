package emu

// variantConfig holds everything that differs between chip revisions: the
// sequencer decode tables and the accumulator/DAC stage.
type variantConfig struct {
	variant Variant
	// direct is decoded from the new sequencer position in phase 2.
	direct [32]fsmPulses
	// delayed is decoded from the old position in phase 1 and applied in
	// the following phase 2.
	delayed     [32]fsmPulses
	serialDAC   bool
	accumulate1 func(*Chip)
	accumulate2 func(*Chip)
}

var (
	ym3438Config = newYM3438Config()
	ymf276Config = newYMF276Config()
)

func configFor(v Variant) *variantConfig {
	if v == VariantYMF276 {
		return ymf276Config
	}
	return ym3438Config
}

func oneOf(pos int, set ...int) bool {
	for _, s := range set {
		if pos == s {
			return true
		}
	}
	return false
}

// operatorSlots marks the six positions of each operator group.
func operatorSlots(pos int, p *fsmPulses) {
	p.Op4Sel = oneOf(pos, 0, 1, 2, 4, 5, 6)
	p.Op3Sel = oneOf(pos, 16, 17, 18, 20, 21, 22)
	p.Op2Sel = oneOf(pos, 24, 25, 26, 28, 29, 30)
}

func newYM3438Config() *variantConfig {
	cfg := &variantConfig{
		variant:     VariantYM3438,
		accumulate1: (*Chip).accumulate1YM3438,
		accumulate2: (*Chip).accumulate2YM3438,
	}
	for pos := 0; pos < 32; pos++ {
		p := &cfg.direct[pos]
		operatorSlots(pos, p)
		p.ClockEG = pos == 0
		p.Op1Sel = oneOf(pos, 8, 9, 10, 12, 13, 14)
		p.Sel2 = pos == 2
		p.Sel23 = pos == 30
		p.CH3Sel = oneOf(pos, 2, 10, 18, 26)
		p.DACLoad = oneOf(pos, 0, 5, 10, 16, 21, 26)
		p.DACOutSel = oneOf(pos, 16, 17, 18, 20, 21, 22, 24, 25, 26, 28, 29, 30)
		p.DACCh6 = oneOf(pos, 5, 6, 8, 9)
		p.ClockTimers = pos == 2
		p.ClockTimers1 = pos == 1
	}
	return cfg
}

func newYMF276Config() *variantConfig {
	cfg := &variantConfig{
		variant:     VariantYMF276,
		serialDAC:   true,
		accumulate1: (*Chip).accumulate1YMF276,
		accumulate2: (*Chip).accumulate2YMF276,
	}
	for pos := 0; pos < 32; pos++ {
		operatorSlots(pos, &cfg.direct[pos])

		p := &cfg.delayed[pos]
		p.ClockEG = pos == 30
		p.Op1Sel = oneOf(pos, 6, 8, 9, 10, 12, 13)
		p.Sel1 = pos == 0
		p.Sel2 = pos == 1
		p.Sel23 = pos == 29
		p.CH3Sel = oneOf(pos, 1, 9, 17, 25)
		p.DACLoad = oneOf(pos, 30, 4, 9, 14, 20)
		p.DACOutSel = oneOf(pos, 14, 16, 17, 18, 20, 21, 22, 24, 25, 26, 28, 29)
		p.DACCh6 = oneOf(pos, 4, 5, 6, 8)
		p.ClockTimers = p.Sel2
		p.ClockTimers1 = p.Sel1
		p.WCO = pos&8 == 0
		p.LRO = (pos>>3^pos>>4)&1 != 0
	}
	return cfg
}
