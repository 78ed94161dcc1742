package emu

// EnvelopeState is the phase of an operator's envelope.
type EnvelopeState int32

const (
	EnvAttack EnvelopeState = iota
	EnvDecay
	EnvSustain
	EnvRelease
)

func (s EnvelopeState) String() string {
	switch s {
	case EnvAttack:
		return "attack"
	case EnvDecay:
		return "decay"
	case EnvSustain:
		return "sustain"
	case EnvRelease:
		return "release"
	}
	return "unknown"
}

var egStepHi = [4][4]int32{
	{0, 0, 0, 0},
	{1, 0, 0, 0},
	{1, 0, 1, 0},
	{1, 1, 1, 0},
}

var egAMShift = [4]int32{7, 3, 1, 0}

// envelopeGen is the envelope generator. Level and state are kept as bit
// planes of the 24-slot rotation, 10 and 2 planes respectively.
type envelopeGen struct {
	Prescaler      latch[int32]
	PrescalerClock latch[bool]
	PrescalerL     bool
	ClockDelay     latch[int32]
	Step           latch[bool]
	TimerLoad      bool
	Timer          latch[int32]
	TimerCarry     latch[int32]
	TimerMask      latch[bool]
	TimerMasked    latch[int32]
	TimerLowLock   int32
	ShiftLock      int32

	Level      [10]latch[int32]
	LevelLatch latch[int32]
	LevelInv   int32
	LevelSSG   latch[int32]
	State      [2]latch[int32]
	Key        latch[int32]
	KonLatch   latch[int32]
	KonCSM     latch[int32]

	SSGDir      latch[int32]
	SSGInv      latch[bool]
	SSGHoldup   latch[int32]
	SSGEnable   latch[int32]
	SSGPGReset  latch[int32]
	SSGPGRepeat latch[int32]

	SL [2]latch[int32]
	TL [2]latch[int32]

	Rate         int32
	Rate2        int32
	KSV          int32
	RateNonzero  latch[bool]
	Inc1         bool
	Inc2         int32
	Rate12       bool
	Rate13       bool
	Rate14       bool
	Rate15       bool
	MaxRate      latch[bool]
	Incsh        [4]bool
	IncshNonzero latch[bool]
	IncTotal     int32
	NextLevel    latch[int32]
	// LevelIn is the next level plus its increment, written into the level
	// planes one cycle later.
	LevelIn      int32

	AMS      int32
	LFO      latch[int32]
	Tremolo  int32
	CH3Latch latch[bool]
	Out      int32
	OutTL    int32
	OutTotal int32
	Debug    latch[int32]
}

func (c *Chip) envelope1() {
	eg := &c.eg
	r := &c.regs
	m := r.Mode.get()
	ic := c.in.IC
	bank := (r.Cnt2.get() >> 2) & 1
	clockEG := c.fsm.Pulse.ClockEG

	// global rate prescaler and 12-bit serial timer
	eg.PrescalerClock.set(clockEG)
	pre := eg.Prescaler.get() + b2i(clockEG)
	if (eg.Prescaler.get()&2 != 0 && clockEG) || ic {
		pre = 0
	}
	eg.Prescaler.set(pre & 3)
	eg.Step.set(eg.Prescaler.get()>>1 != 0)
	eg.ClockDelay.set((eg.ClockDelay.get()<<1 | b2i(clockEG)) & 0xfff)
	eg.TimerLoad = eg.Step.get() && eg.PrescalerClock.get()

	sum := (eg.Timer.get() >> 11) & 1
	add := eg.TimerCarry.get()
	if eg.Prescaler.get()&2 != 0 && eg.PrescalerClock.get() {
		add = 1
	}
	sum += add
	eg.TimerCarry.set(sum >> 1)
	sum &= 1
	if ic || m.Test21&32 != 0 {
		sum = 0
	}
	eg.Timer.set((eg.Timer.get()<<1 | sum) & 0xfff)

	timerBit := sum
	if m.Test2C&64 != 0 {
		if m.Test2C&128 != 0 {
			timerBit |= b2i(c.ReadTest())
		} else {
			timerBit |= b2i(c.in.Test)
		}
	}
	mask := timerBit != 0 || eg.TimerMask.get()
	if clockEG || eg.ClockDelay.get()&0x800 != 0 || ic {
		mask = false
	}
	eg.TimerMask.set(mask)
	masked := timerBit
	if eg.TimerMask.get() {
		masked = 0
	}
	eg.TimerMasked.set((eg.TimerMasked.get()<<1 | masked) & 0xfff)

	// key on and SSG-EG
	var level2 int32
	for i := range eg.Level {
		level2 |= ((eg.Level[i].get() >> 20) & 1) << i
	}
	eg.LevelLatch.set(level2)

	csmKon := b2i(c.fsm.Pulse.CH3Sel && c.tmr.CSMKey)
	kon2 := (r.Kon[3].get()>>5)&1 | csmKon
	eg.KonLatch.set((eg.KonLatch.get()<<1 | kon2) & 0xf)
	eg.KonCSM.set((eg.KonCSM.get()<<1 | csmKon) & 0xf)

	kon := (eg.KonLatch.get() >> 1) & 1
	okon := (eg.Key.get() >> 23) & 1
	pgReset := (kon != 0 && okon == 0) || eg.SSGPGReset.get()&2 != 0
	konEvent := (kon != 0 && okon == 0) || (okon != 0 && eg.SSGPGRepeat.get()&2 != 0)
	pr := c.pg.Reset.get()<<1 | b2i(pgReset)
	if eg.SSGPGReset.get()&2 != 0 {
		pr |= 1
	}
	c.pg.Reset.set(pr & 0xf)
	eg.Key.set((eg.Key.get()<<1 | kon) & 0xffffff)

	okon2 := (eg.Key.get() >> 21) & 1

	ssg := r.slot(&r.SSGEG, bank)
	ssgEnable := ssg&8 != 0
	ssgInvE := ssgEnable && ssg&4 != 0
	var ssgDir, ssgHoldup, ssgPGReset, ssgPGRepeat int32
	if ssgEnable {
		if okon2 != 0 {
			ssgDir = (eg.SSGDir.get() >> 23) & 1
			if level2&512 != 0 {
				if ssg&3 == 2 {
					ssgDir ^= 1
				}
				if ssg&3 == 3 {
					ssgDir = 1
				}
			}
		}
		if kon2 != 0 {
			ssgHoldup = b2i(ssg&7 == 3 || ssg&7 == 5)
		}
		if level2&512 != 0 {
			ssgPGReset = b2i(ssg&3 == 0)
			ssgPGRepeat = b2i(ssg&1 == 0)
		}
	}
	ssgInv := okon2 != 0 && ((eg.SSGDir.get()>>23)&1 != 0) != ssgInvE
	eg.SSGDir.set((eg.SSGDir.get()<<1 | ssgDir) & 0xffffff)
	eg.SSGInv.set(ssgInv)
	eg.SSGHoldup.set((eg.SSGHoldup.get()<<1 | ssgHoldup) & 0xf)
	eg.SSGEnable.set((eg.SSGEnable.get()<<1 | b2i(ssgEnable)) & 0xf)
	eg.SSGPGReset.set((eg.SSGPGReset.get()<<1 | ssgPGReset) & 0xf)
	eg.SSGPGRepeat.set((eg.SSGPGRepeat.get()<<1 | ssgPGRepeat) & 0xf)

	output := eg.LevelLatch.get()
	if eg.SSGInv.get() {
		output = eg.LevelInv
	}
	eg.LevelSSG.set(output)
	if m.Test21&32 != 0 {
		output = 0
	}

	sl := r.slot(&r.SL, bank)
	if sl == 15 {
		sl |= 16
	}
	eg.SL[0].set(sl)
	eg.SL[1].set(eg.SL[0].get())
	eg.TL[0].set(r.slot(&r.TL, bank))
	eg.TL[1].set(eg.TL[0].get())

	// rate selection
	rateSel := EnvelopeState(eg.stateAt(21))
	if okon2 != 0 {
		if ssgPGRepeat != 0 {
			rateSel = EnvAttack
		}
	} else if kon2 != 0 {
		rateSel = EnvAttack
	}
	var rate int32
	switch rateSel {
	case EnvAttack:
		rate = r.slot(&r.AR, bank)
	case EnvDecay:
		rate = r.slot(&r.DR, bank)
	case EnvSustain:
		rate = r.slot(&r.SR, bank)
	case EnvRelease:
		rate = 1 | r.slot(&r.RR, bank)<<1
	}
	eg.RateNonzero.set(rate != 0)
	eg.Rate = rate
	ks := r.slot(&r.KS, bank)
	eg.KSV = c.pg.KCode[0].get() >> (ks ^ 3)

	rate = eg.Rate2
	if rate&64 != 0 {
		rate = 63
	}
	sum = (rate >> 2) + eg.ShiftLock
	inc1 := false
	if rate < 48 && eg.RateNonzero.get() {
		switch sum & 15 {
		case 12:
			inc1 = rate != 0
		case 13:
			inc1 = (rate>>1)&1 != 0
		case 14:
			inc1 = rate&1 != 0
		}
	}
	eg.Inc1 = inc1
	eg.Inc2 = egStepHi[rate&3][eg.TimerLowLock]
	eg.Rate12 = rate&60 == 48
	eg.Rate13 = rate&60 == 52
	eg.Rate14 = rate&60 == 56
	eg.Rate15 = rate&60 == 60
	eg.MaxRate.set(rate&62 == 62)
	eg.PrescalerL = eg.Prescaler.get()&2 != 0
	eg.IncshNonzero.set(eg.Incsh[0] || eg.Incsh[1] || eg.Incsh[2] || eg.Incsh[3])

	// level update
	var level int32
	if okon != 0 && kon == 0 {
		level = eg.LevelSSG.get()
	} else {
		for i := range eg.Level {
			level |= ((eg.Level[i].get() >> 22) & 1) << i
		}
	}
	state := EnvelopeState(eg.stateAt(23))

	exp := kon != 0 && state == EnvAttack && !eg.MaxRate.get() && level != 0

	var off bool
	if eg.SSGEnable.get()&2 != 0 {
		off = level&512 != 0
	} else {
		off = level&0x3f0 == 0x3f0
	}
	slReach := level>>4 == eg.SL[1].get()<<1

	linear := !konEvent && !off && (state == EnvSustain || state == EnvRelease)
	linear = linear || (!konEvent && !off && !slReach && state == EnvDecay)

	var incTotal int32
	if exp {
		for i, on := range eg.Incsh {
			if on {
				incTotal |= ^level >> (4 - i)
			}
		}
	}
	if linear {
		step := int32(1)
		if eg.SSGEnable.get()&2 != 0 {
			step = 4
		}
		for i, on := range eg.Incsh {
			if on {
				incTotal |= step << i
			}
		}
	}
	eg.IncTotal = incTotal

	instant := eg.MaxRate.get() && konEvent

	var nextLevel int32
	var nextState EnvelopeState
	if !instant {
		nextLevel |= level
	}
	if eg.KonCSM.get()&2 != 0 {
		nextLevel |= eg.TL[1].get() << 3
	}
	if (!konEvent && off && eg.SSGHoldup.get()&2 == 0 && state != EnvAttack) || ic {
		nextLevel = 0x3ff
		nextState |= EnvRelease
	}
	if !konEvent && state == EnvSustain {
		nextState |= EnvSustain
	}
	if !konEvent && state == EnvDecay && !slReach {
		nextState |= EnvDecay
	}
	if !konEvent && state == EnvDecay && slReach {
		nextState |= EnvSustain
	}
	if kon == 0 && !konEvent {
		nextState |= EnvRelease
	}
	if !konEvent && state == EnvRelease {
		nextState |= EnvRelease
	}
	if !konEvent && state == EnvAttack && level == 0 {
		nextState |= EnvDecay
	}
	if ic {
		nextState |= EnvRelease
	}

	eg.NextLevel.set(nextLevel)
	eg.State[0].set((eg.State[0].get()<<1 | int32(nextState)&1) & 0xffffff)
	eg.State[1].set((eg.State[1].get()<<1 | int32(nextState)>>1&1) & 0xffffff)

	nl := eg.LevelIn
	for i := range eg.Level {
		eg.Level[i].set((eg.Level[i].get()<<1 | nl&1) & 0xffffff)
		nl >>= 1
	}

	// output attenuation
	var ams int32
	if r.slot(&r.AM, bank) != 0 {
		ams = r.channel(&r.AMS, 5)
	}
	eg.AMS = ams
	if c.lfo.Out&64 != 0 {
		eg.LFO.set(c.lfo.Out & 63)
	} else {
		eg.LFO.set(c.lfo.Out ^ 63)
	}
	eg.CH3Latch.set(c.fsm.Pulse.CH3Sel)

	eg.OutTL = eg.TL[0].get()
	if eg.CH3Latch.get() && m.CH3 == 2 {
		eg.OutTL = 0
	}
	eg.Out = output + eg.Tremolo

	dbg := eg.Debug.get() << 1
	if c.fsm.Pulse.Sel2 {
		dbg |= eg.OutTotal
	}
	eg.Debug.set(dbg & 0x3ff)
}

// stateAt returns the 2-bit state held at the given plane stage.
func (eg *envelopeGen) stateAt(stage uint) int32 {
	return (eg.State[1].get()>>stage&1)<<1 | eg.State[0].get()>>stage&1
}

func (c *Chip) envelope2() {
	eg := &c.eg
	eg.PrescalerClock.commit()
	eg.Prescaler.commit()
	eg.Step.commit()
	eg.Timer.commit()
	eg.ClockDelay.commit()
	eg.TimerCarry.commit()
	eg.TimerMask.commit()
	eg.TimerMasked.commit()

	if !eg.TimerLoad && eg.Step.get() && eg.PrescalerClock.get() {
		t := eg.Timer.get()
		eg.TimerLowLock = (t>>10&1)<<1 | t>>11&1
		tm := eg.TimerMasked.get()
		eg.ShiftLock = b2i(tm&0x1f != 0)<<3 | b2i(tm&0x1e1 != 0)<<2 | b2i(tm&0x666 != 0)<<1 | b2i(tm&0xaaa != 0)
	}

	eg.RateNonzero.commit()
	eg.Rate2 = eg.Rate<<1 + eg.KSV
	eg.MaxRate.commit()

	eg.Incsh = [4]bool{}
	if eg.PrescalerL {
		eg.Incsh[0] = eg.Inc1
		eg.Incsh[3] = eg.Rate15
		if eg.Inc2 == 0 {
			eg.Incsh[0] = eg.Incsh[0] || eg.Rate12
			eg.Incsh[1] = eg.Rate13
			eg.Incsh[2] = eg.Rate14
		} else {
			eg.Incsh[1] = eg.Rate12
			eg.Incsh[2] = eg.Rate13
			eg.Incsh[3] = eg.Incsh[3] || eg.Rate14
		}
	}

	eg.IncshNonzero.commit()
	eg.KonLatch.commit()
	eg.LevelSSG.commit()
	c.pg.Reset.commit()
	eg.SSGDir.commit()
	eg.SSGInv.commit()
	eg.SSGHoldup.commit()
	eg.SSGEnable.commit()
	eg.SSGPGReset.commit()
	eg.SSGPGRepeat.commit()
	eg.LevelLatch.commit()
	eg.LevelInv = (512 - eg.LevelLatch.get()) & 0x3ff
	eg.SL[0].commit()
	eg.SL[1].commit()
	eg.TL[0].commit()
	eg.TL[1].commit()
	eg.NextLevel.commit()
	eg.LevelIn = eg.NextLevel.get() + eg.IncTotal
	eg.KonCSM.commit()
	for i := range eg.Level {
		eg.Level[i].commit()
	}
	eg.State[0].commit()
	eg.State[1].commit()
	eg.LFO.commit()
	eg.Tremolo = (eg.LFO.get() << 1) >> egAMShift[eg.AMS]
	eg.CH3Latch.commit()

	eg.OutTotal = (eg.Out & 1023) + (eg.OutTL << 3)
	if eg.Out&1024 != 0 || eg.OutTotal&1024 != 0 {
		eg.OutTotal = 1023
	}

	eg.Debug.commit()
	eg.Key.commit()
}
