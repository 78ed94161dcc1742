package cli

import (
	"bytes"
	"encoding/binary"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user-none/opn2/emu"
	"github.com/user-none/opn2/log"
	"github.com/user-none/opn2/ui"
)

// testVGM is a one second VGM: a sine on ch0 keyed for half a second.
func testVGM() []byte {
	cmds := []byte{
		0x52, 0xB0, 0x07, // alg 7
		0x52, 0xB4, 0xC0,
		0x52, 0x30, 0x01, // OP1 MUL=1
		0x52, 0x40, 0x00, // OP1 TL=0
		0x52, 0x44, 0x7F,
		0x52, 0x48, 0x7F,
		0x52, 0x4C, 0x7F,
		0x52, 0x50, 0x1F, // AR=31
		0x52, 0x80, 0x0F, // RR=15
		0x52, 0xA4, 0x22,
		0x52, 0xA0, 0x69,
		0x52, 0x28, 0x10,
		0x61, 0x22, 0x56, // 22050
		0x52, 0x28, 0x00,
		0x61, 0x22, 0x56,
		0x66,
	}
	hdr := make([]byte, 0x40)
	copy(hdr, "Vgm ")
	binary.LittleEndian.PutUint32(hdr[0x08:], 0x150)
	binary.LittleEndian.PutUint32(hdr[0x18:], 44100)
	binary.LittleEndian.PutUint32(hdr[0x2C:], emu.DefaultClockHz)
	binary.LittleEndian.PutUint32(hdr[0x34:], 0x40-0x34)
	data := append(hdr, cmds...)
	binary.LittleEndian.PutUint32(data[0x04:], uint32(len(data)-4))
	return data
}

func newTestFs(t *testing.T) afero.Fs {
	t.Helper()
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/song.vgm", testVGM(), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/tone.lua", []byte(`
		reg(0, 0xB0, 7)
		reg(0, 0xB4, 0xC0)
		reg(0, 0x40, 0)
		reg(0, 0x44, 127) reg(0, 0x48, 127) reg(0, 0x4C, 127)
		reg(0, 0x50, 31)
		reg(0, 0x80, 15)
		reg(0, 0xA4, 0x22) reg(0, 0xA0, 0x69)
		keyon(0, 1)
		wait(rate() / 10)
		keyon(0, 0)
		wait(rate() / 10)
	`), 0o644))
	return fs
}

// --- Config ---

func TestParseArgs_Defaults(t *testing.T) {
	cfg, err := ParseArgs(afero.NewMemMapFs(), []string{"song.vgm"})
	require.NoError(t, err)
	assert.Equal(t, "song.vgm", cfg.Input)
	assert.Equal(t, "ym3438", cfg.Chip)
	assert.Equal(t, ModePlay, cfg.Mode)
	assert.Equal(t, 1, cfg.Loops)
	assert.Equal(t, 1.0, cfg.Volume)
	assert.Equal(t, 0, cfg.Clock)
	assert.Equal(t, emu.DefaultOutputRate, cfg.Rate)
	assert.NoError(t, cfg.Validate())
}

func TestParseArgs_Flags(t *testing.T) {
	cfg, err := ParseArgs(afero.NewMemMapFs(), []string{
		"-i", "a.vgz", "-c", "ymf276", "-o", "out.wav", "-s", "2.5",
		"--loops", "3", "--volume", "0.5", "--rate", "0", "--plot", "w.png", "--dump",
	})
	require.NoError(t, err)
	assert.Equal(t, "a.vgz", cfg.Input)
	assert.Equal(t, ModeRender, cfg.Mode, "an output file implies render")
	assert.Equal(t, 2.5, cfg.Seconds)
	assert.Equal(t, 3, cfg.Loops)
	assert.Equal(t, 0.5, cfg.Volume)
	assert.Equal(t, 0, cfg.Rate)
	assert.True(t, cfg.Dump)
	v, err := cfg.Variant()
	require.NoError(t, err)
	assert.Equal(t, emu.VariantYMF276, v)
	assert.NoError(t, cfg.Validate())
}

func TestParseArgs_ProfileAndOverride(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/p.yaml", []byte(`
input: /song.vgm
chip: ymf276
mode: render
out: /p.wav
loops: 4
volume: 0.8
filter: 0
`), 0o644))

	cfg, err := ParseArgs(fs, []string{"--config", "/p.yaml", "--loops", "2"})
	require.NoError(t, err)
	assert.Equal(t, "/song.vgm", cfg.Input)
	assert.Equal(t, "ymf276", cfg.Chip)
	assert.Equal(t, ModeRender, cfg.Mode)
	assert.Equal(t, "/p.wav", cfg.Out)
	assert.Equal(t, 2, cfg.Loops, "flag overrides profile")
	assert.Equal(t, 0.8, cfg.Volume)
	assert.Equal(t, 0.0, cfg.Filter)
	assert.Equal(t, emu.DefaultOutputRate, cfg.Rate, "unset profile keys keep defaults")
}

func TestParseArgs_Errors(t *testing.T) {
	_, err := ParseArgs(afero.NewMemMapFs(), []string{"--nope"})
	assert.Error(t, err)

	_, err = ParseArgs(afero.NewMemMapFs(), []string{"--config", "/missing.yaml"})
	assert.ErrorContains(t, err, "config")

	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/bad.yaml", []byte("loops: [1"), 0o644))
	_, err = ParseArgs(fs, []string{"--config", "/bad.yaml"})
	assert.ErrorContains(t, err, "/bad.yaml")

	_, err = ParseArgs(afero.NewMemMapFs(), []string{"--help"})
	assert.ErrorIs(t, err, ErrHelp)
}

func TestValidate_CollectsAll(t *testing.T) {
	cfg := Config{
		Input:   "song.mp3",
		Chip:    "ym2612",
		Mode:    "stream",
		Seconds: -1,
		Loops:   -1,
		Volume:  9,
		Rate:    100,
	}
	err := cfg.Validate()
	require.Error(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 7)
	assert.Contains(t, err.Error(), "unsupported input")
	assert.Contains(t, err.Error(), "invalid chip")
	assert.Contains(t, err.Error(), "invalid mode")
}

func TestValidate_RenderNeedsSink(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Input = "a.lua"
	cfg.Mode = ModeRender
	assert.ErrorContains(t, cfg.Validate(), "render mode needs")

	cfg.Fingerprint = true
	assert.NoError(t, cfg.Validate())
}

func TestInputKind(t *testing.T) {
	assert.Equal(t, "vgm", InputKind("a.VGM"))
	assert.Equal(t, "vgm", InputKind("dir/b.vgz"))
	assert.Equal(t, "lua", InputKind("c.lua"))
	assert.Equal(t, "", InputKind("d.wav"))
}

// --- Sources and runner ---

func renderConfig(input string) Config {
	cfg := DefaultConfig()
	cfg.Input = input
	cfg.Mode = ModeRender
	cfg.Rate = 0
	cfg.Filter = 0
	cfg.Fingerprint = true
	return cfg
}

func TestVGMSource_Render(t *testing.T) {
	fs := newTestFs(t)
	src, err := OpenSource(fs, renderConfig("/song.vgm"), log.NewNullLogger())
	require.NoError(t, err)
	defer src.Close()

	rate := src.Chip().SampleRate()
	assert.Equal(t, uint64(rate), src.Length())

	total := 0
	for !src.Done() {
		out := src.Render(1000)
		require.LessOrEqual(t, len(out), 2000)
		total += len(out) / 2
	}
	// One second of VGM time, give or take a block of rounding.
	assert.InDelta(t, rate, total, 2)
}

func TestVGMSource_ClockFromHeader(t *testing.T) {
	fs := newTestFs(t)
	cfg := renderConfig("/song.vgm")
	src, err := OpenSource(fs, cfg, log.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, emu.DefaultClockHz, src.Chip().ClockHz())

	cfg.Clock = 7600489
	src, err = OpenSource(fs, cfg, log.NewNullLogger())
	require.NoError(t, err)
	assert.Equal(t, 7600489, src.Chip().ClockHz())
}

func TestOpenSource_Errors(t *testing.T) {
	fs := newTestFs(t)
	require.NoError(t, afero.WriteFile(fs, "/junk.vgm", []byte("not a vgm file at all, just some text padding it out past sixty four bytes"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "/bad.lua", []byte("error('boom')"), 0o644))

	_, err := OpenSource(fs, renderConfig("/missing.vgm"), log.NewNullLogger())
	assert.ErrorContains(t, err, "failed to read input")
	_, err = OpenSource(fs, renderConfig("/junk.vgm"), log.NewNullLogger())
	assert.ErrorContains(t, err, "failed to parse")
	_, err = OpenSource(fs, renderConfig("/bad.lua"), log.NewNullLogger())
	assert.ErrorContains(t, err, "boom")
	_, err = OpenSource(fs, renderConfig("/x.wav"), log.NewNullLogger())
	assert.ErrorContains(t, err, "unsupported input")
}

func TestRunner_RenderScript(t *testing.T) {
	fs := newTestFs(t)
	cfg := renderConfig("/tone.lua")
	src, err := OpenSource(fs, cfg, log.NewNullLogger())
	require.NoError(t, err)

	r := NewRunner(src, cfg)
	defer r.Close()
	rate := src.Chip().SampleRate()
	assert.Equal(t, rate, r.OutputRate())

	out := r.Render(nil)
	assert.Len(t, out, 2*2*(rate/10))
	assert.Equal(t, uint64(2*(rate/10)), r.TotalFrames())

	peak := 0
	for _, s := range out[:len(out)/2] {
		if v := int(s); v > peak {
			peak = v
		} else if -v > peak {
			peak = -v
		}
	}
	assert.Greater(t, peak, 500, "keyed half should be audible")
}

func TestRunner_SecondsLimitAndResample(t *testing.T) {
	fs := newTestFs(t)
	cfg := renderConfig("/song.vgm")
	cfg.Seconds = 0.25
	cfg.Rate = 48000

	src, err := OpenSource(fs, cfg, log.NewNullLogger())
	require.NoError(t, err)
	r := NewRunner(src, cfg)
	defer r.Close()

	blocks := 0
	out := r.Render(func() { blocks++ })
	assert.Greater(t, blocks, 1)
	assert.InDelta(t, 2*12000, len(out), 4)
	assert.InDelta(t, 12000, r.TotalFrames(), 2)

	_, _, frames := r.Level().Read()
	assert.Equal(t, uint64(len(out)/2), frames)
}

func TestRunner_Deterministic(t *testing.T) {
	render := func(variant string) uint64 {
		fs := newTestFs(t)
		cfg := renderConfig("/song.vgm")
		cfg.Chip = variant
		cfg.Seconds = 0.1
		src, err := OpenSource(fs, cfg, log.NewNullLogger())
		require.NoError(t, err)
		r := NewRunner(src, cfg)
		defer r.Close()
		return Fingerprint(r.Render(nil))
	}
	assert.Equal(t, render("ym3438"), render("ym3438"))
	assert.Equal(t, render("ymf276"), render("ymf276"))
	assert.NotEqual(t, render("ym3438"), render("ymf276"))
}

// --- Sinks ---

func TestWriteWAV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteWAV(&buf, []int16{1, -1, 0x1234, 0}, 44100))

	b := buf.Bytes()
	require.Len(t, b, 44+8)
	assert.Equal(t, "RIFF", string(b[0:4]))
	assert.Equal(t, uint32(36+8), binary.LittleEndian.Uint32(b[4:]))
	assert.Equal(t, "WAVEfmt ", string(b[8:16]))
	assert.Equal(t, uint16(1), binary.LittleEndian.Uint16(b[20:]))
	assert.Equal(t, uint16(2), binary.LittleEndian.Uint16(b[22:]))
	assert.Equal(t, uint32(44100), binary.LittleEndian.Uint32(b[24:]))
	assert.Equal(t, uint32(44100*4), binary.LittleEndian.Uint32(b[28:]))
	assert.Equal(t, uint16(4), binary.LittleEndian.Uint16(b[32:]))
	assert.Equal(t, uint16(16), binary.LittleEndian.Uint16(b[34:]))
	assert.Equal(t, "data", string(b[36:40]))
	assert.Equal(t, uint32(8), binary.LittleEndian.Uint32(b[40:]))
	assert.Equal(t, []byte{0x01, 0x00, 0xFF, 0xFF, 0x34, 0x12, 0x00, 0x00}, b[44:])
}

func TestSaveWAV(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, SaveWAV(fs, "/out.wav", []int16{0, 0}, 48000))
	info, err := fs.Stat("/out.wav")
	require.NoError(t, err)
	assert.Equal(t, int64(48), info.Size())
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]int16{1, 2, 3, 4})
	assert.Equal(t, a, Fingerprint([]int16{1, 2, 3, 4}))
	assert.NotEqual(t, a, Fingerprint([]int16{1, 2, 3, 5}))
	assert.NotEqual(t, a, Fingerprint([]int16{2, 1, 3, 4}))
}

func TestPlot(t *testing.T) {
	fs := afero.NewMemMapFs()
	samples := make([]int16, 2*10000)
	for i := range samples {
		samples[i] = int16((i * 37) % 2000)
	}
	require.NoError(t, Plot(fs, "/wave.png", samples, 48000, "test"))

	data, err := afero.ReadFile(fs, "/wave.png")
	require.NoError(t, err)
	require.Greater(t, len(data), 8)
	assert.Equal(t, []byte{0x89, 'P', 'N', 'G'}, data[:4])

	assert.Error(t, Plot(fs, "/empty.png", nil, 48000, "empty"))
}

func TestDump(t *testing.T) {
	o := emu.NewOPN2(emu.VariantYM3438, emu.DefaultClockHz)
	o.WriteRegister(0, 0x30, 0x71)
	o.GenerateSamples(4 * emu.ClocksPerSample)

	var buf bytes.Buffer
	Dump(&buf, o.Chip())
	out := buf.String()
	assert.Contains(t, out, "YM3438 registers:")
	assert.Contains(t, out, "YM3438 snapshot:")
	assert.Contains(t, out, "Multi: (uint8) 1")
	assert.Contains(t, out, "Slots:")
}

func TestProgress(t *testing.T) {
	var level ui.SharedLevel
	level.Update(make([]int16, 2*48000))

	var buf bytes.Buffer
	p := newProgress(&buf, true, 48000, 96000)
	p.Update(&level)
	assert.Contains(t, buf.String(), "1.0s / 2.0s")
	assert.Contains(t, buf.String(), "-inf dBFS")

	buf.Reset()
	p.Update(&level)
	assert.Empty(t, buf.String(), "throttled")

	p.Finish(&level)
	assert.True(t, strings.HasSuffix(buf.String(), "\n"))

	var quiet bytes.Buffer
	q := newProgress(&quiet, false, 48000, 0)
	q.Update(&level)
	q.Finish(&level)
	assert.Empty(t, quiet.String())
}

func TestDBFS(t *testing.T) {
	assert.Equal(t, " -20.0 dBFS", dBFS(3277))
	assert.Equal(t, "  -6.0 dBFS", dBFS(16384))
	assert.Equal(t, "  -inf dBFS", dBFS(0))
}
