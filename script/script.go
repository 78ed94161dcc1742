// Package script drives an OPN2 from Lua register-write scripts.
package script

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/spf13/afero"
	lua "github.com/yuin/gopher-lua"

	"github.com/user-none/opn2/emu"
	"github.com/user-none/opn2/log"
)

// DefaultSampleLimit caps how much audio one script may render: ten minutes
// at the NTSC native rate.
const DefaultSampleLimit = 10 * 60 * 53267

var ErrSampleLimit = errors.New("script sample limit exceeded")

// Runner executes scripts against a chip and collects the rendered
// interleaved stereo samples.
type Runner struct {
	L    *lua.LState
	chip *emu.OPN2
	log  log.Logger

	samples     []int16
	rendered    int
	sampleLimit int
}

// Option configures a Runner.
type Option func(*Runner)

// WithLogger routes script print output and diagnostics to l.
func WithLogger(l log.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

// WithSampleLimit sets the maximum number of native samples a script may
// wait for in total.
func WithSampleLimit(n int) Option {
	return func(r *Runner) {
		r.sampleLimit = n
	}
}

// NewRunner creates a Lua state bound to chip. Only the base, table, string
// and math libraries are opened.
func NewRunner(chip *emu.OPN2, opts ...Option) *Runner {
	r := &Runner{
		L:           lua.NewState(lua.Options{SkipOpenLibs: true}),
		chip:        chip,
		log:         log.NewNullLogger(),
		sampleLimit: DefaultSampleLimit,
	}
	for _, opt := range opts {
		opt(r)
	}

	for _, pair := range []struct {
		n string
		f lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		if err := r.L.CallByParam(lua.P{
			Fn:      r.L.NewFunction(pair.f),
			NRet:    0,
			Protect: true,
		}, lua.LString(pair.n)); err != nil {
			panic(err)
		}
	}

	for name, fn := range map[string]lua.LGFunction{
		"write":  r.luaWrite,
		"reg":    r.luaReg,
		"keyon":  r.luaKeyOn,
		"wait":   r.luaWait,
		"status": r.luaStatus,
		"reset":  r.luaReset,
		"chip":   r.luaChip,
		"rate":   r.luaRate,
		"print":  r.luaPrint,
	} {
		r.L.SetGlobal(name, r.L.NewFunction(fn))
	}
	return r
}

// Close releases the Lua state.
func (r *Runner) Close() {
	r.L.Close()
}

// Run executes a script given as source text.
func (r *Runner) Run(src string) error {
	if err := r.L.DoString(src); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// RunFile loads and executes a script from fs.
func (r *Runner) RunFile(fs afero.Fs, path string) error {
	src, err := afero.ReadFile(fs, path)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	fn, err := r.L.Load(bytes.NewReader(src), path)
	if err != nil {
		return fmt.Errorf("script: %w", err)
	}
	r.L.Push(fn)
	if err := r.L.PCall(0, lua.MultRet, nil); err != nil {
		return fmt.Errorf("script: %w", err)
	}
	return nil
}

// Samples returns everything rendered so far.
func (r *Runner) Samples() []int16 {
	return r.samples
}

// TakeSamples returns everything rendered since the last call and clears
// the collection.
func (r *Runner) TakeSamples() []int16 {
	out := r.samples
	r.samples = nil
	return out
}

// Rendered returns the number of native samples waited for so far.
func (r *Runner) Rendered() int {
	return r.rendered
}

func checkRange(L *lua.LState, n int, what string, max int) uint8 {
	v := L.CheckInt(n)
	if v < 0 || v > max {
		L.ArgError(n, fmt.Sprintf("%s must be 0-%d, got %d", what, max, v))
	}
	return uint8(v)
}

// write(port, value)
func (r *Runner) luaWrite(L *lua.LState) int {
	port := checkRange(L, 1, "port", 3)
	val := checkRange(L, 2, "value", 255)
	r.chip.WritePort(port, val)
	return 0
}

// reg(part, addr, value)
func (r *Runner) luaReg(L *lua.LState) int {
	part := checkRange(L, 1, "part", 1)
	addr := checkRange(L, 2, "address", 255)
	val := checkRange(L, 3, "value", 255)
	r.chip.WriteRegister(part, addr, val)
	return 0
}

// keyon(channel, mask) writes register 0x28 for channel 0-5 with the
// operator mask in the low four bits (bit 0 is OP1).
func (r *Runner) luaKeyOn(L *lua.LState) int {
	ch := checkRange(L, 1, "channel", 5)
	mask := checkRange(L, 2, "mask", 15)
	if ch >= 3 {
		ch++
	}
	r.chip.WriteRegister(0, 0x28, mask<<4|ch)
	return 0
}

// wait(samples) runs the chip for a number of native samples.
func (r *Runner) luaWait(L *lua.LState) int {
	n := L.CheckInt(1)
	if n < 0 {
		L.ArgError(1, "samples must not be negative")
	}
	if r.rendered+n > r.sampleLimit {
		L.RaiseError("%v: %d + %d > %d", ErrSampleLimit, r.rendered, n, r.sampleLimit)
	}
	r.chip.GenerateSamples(n * emu.ClocksPerSample)
	r.samples = append(r.samples, r.chip.GetBuffer()...)
	r.rendered += n
	return 0
}

// status() returns the status byte.
func (r *Runner) luaStatus(L *lua.LState) int {
	L.Push(lua.LNumber(r.chip.ReadPort(0)))
	return 1
}

// reset() pulses IC.
func (r *Runner) luaReset(L *lua.LState) int {
	r.chip.Reset()
	return 0
}

// chip() returns the variant name.
func (r *Runner) luaChip(L *lua.LState) int {
	L.Push(lua.LString(r.chip.Variant().String()))
	return 1
}

// rate() returns the native sample rate.
func (r *Runner) luaRate(L *lua.LState) int {
	L.Push(lua.LNumber(r.chip.SampleRate()))
	return 1
}

func (r *Runner) luaPrint(L *lua.LState) int {
	top := L.GetTop()
	msg := ""
	for i := 1; i <= top; i++ {
		if i > 1 {
			msg += "\t"
		}
		msg += L.ToStringMeta(L.Get(i)).String()
	}
	r.log.Infof("%s", msg)
	return 0
}
