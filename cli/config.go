package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/user-none/opn2/emu"
)

// Output modes.
const (
	ModePlay   = "play"
	ModeRender = "render"
)

// ErrHelp is returned when --help was requested.
var ErrHelp = pflag.ErrHelp

// Config is the command-line configuration. It can be loaded from a YAML
// profile; flags given on the command line override the profile.
type Config struct {
	Input   string  `yaml:"input"`
	Chip    string  `yaml:"chip"`
	Mode    string  `yaml:"mode"`
	Out     string  `yaml:"out"`
	Seconds float64 `yaml:"seconds"`
	Loops   int     `yaml:"loops"`
	Volume  float64 `yaml:"volume"`
	Clock   int     `yaml:"clock"`
	// Rate is the output rate; 0 keeps the chip's native rate.
	Rate int `yaml:"rate"`
	// Filter is the output low-pass corner in Hz; 0 disables it.
	Filter      float64 `yaml:"filter"`
	Plot        string  `yaml:"plot"`
	Dump        bool    `yaml:"dump"`
	Fingerprint bool    `yaml:"fingerprint"`
	Verbose     bool    `yaml:"verbose"`
}

// DefaultConfig returns the defaults used when neither a profile nor a flag
// sets a value.
func DefaultConfig() Config {
	return Config{
		Chip:    "ym3438",
		Mode:    ModePlay,
		Seconds: 0,
		Loops:   1,
		Volume:  1.0,
		Rate:    emu.DefaultOutputRate,
		Filter:  emu.Model1CutoffHz,
	}
}

// LoadConfig reads a YAML profile from fs over the defaults.
func LoadConfig(fs afero.Fs, path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("config %s: %w", path, err)
	}
	return cfg, nil
}

// ParseArgs builds a Config from command-line arguments (without the
// program name). A positional argument is taken as the input when --input
// is not given.
func ParseArgs(fs afero.Fs, args []string) (Config, error) {
	def := DefaultConfig()
	var cfg Config
	var configPath string

	flags := pflag.NewFlagSet("opn2", pflag.ContinueOnError)
	flags.StringVarP(&cfg.Input, "input", "i", "", "VGM/VGZ file or Lua script")
	flags.StringVarP(&cfg.Chip, "chip", "c", def.Chip, "chip variant: ym3438 or ymf276")
	flags.StringVarP(&cfg.Mode, "mode", "m", def.Mode, "output mode: play or render")
	flags.StringVarP(&cfg.Out, "out", "o", "", "WAV file to render to")
	flags.Float64VarP(&cfg.Seconds, "seconds", "s", def.Seconds, "stop after this many seconds (0 plays to the end)")
	flags.IntVar(&cfg.Loops, "loops", def.Loops, "number of times to repeat the VGM loop section")
	flags.Float64Var(&cfg.Volume, "volume", def.Volume, "output volume multiplier")
	flags.IntVar(&cfg.Clock, "clock", def.Clock, "master clock in Hz (0 uses the VGM header, else the NTSC clock)")
	flags.IntVar(&cfg.Rate, "rate", def.Rate, "output sample rate (0 keeps the native rate)")
	flags.Float64Var(&cfg.Filter, "filter", def.Filter, "output low-pass corner in Hz (0 disables)")
	flags.StringVar(&cfg.Plot, "plot", "", "write a waveform PNG of the rendered output")
	flags.BoolVar(&cfg.Dump, "dump", false, "print the decoded register file and chip snapshot at the end")
	flags.BoolVar(&cfg.Fingerprint, "fingerprint", false, "print an xxhash of the rendered output")
	flags.BoolVarP(&cfg.Verbose, "verbose", "v", false, "debug logging")
	flags.StringVar(&configPath, "config", "", "YAML profile")

	if err := flags.Parse(args); err != nil {
		return cfg, err
	}

	base := def
	if configPath != "" {
		var err error
		base, err = LoadConfig(fs, configPath)
		if err != nil {
			return cfg, err
		}
	}

	// Profile values apply wherever the flag was not given.
	if !flags.Changed("input") {
		cfg.Input = base.Input
	}
	if !flags.Changed("chip") {
		cfg.Chip = base.Chip
	}
	if !flags.Changed("mode") {
		cfg.Mode = base.Mode
	}
	if !flags.Changed("out") {
		cfg.Out = base.Out
	}
	if !flags.Changed("seconds") {
		cfg.Seconds = base.Seconds
	}
	if !flags.Changed("loops") {
		cfg.Loops = base.Loops
	}
	if !flags.Changed("volume") {
		cfg.Volume = base.Volume
	}
	if !flags.Changed("clock") {
		cfg.Clock = base.Clock
	}
	if !flags.Changed("rate") {
		cfg.Rate = base.Rate
	}
	if !flags.Changed("filter") {
		cfg.Filter = base.Filter
	}
	if !flags.Changed("plot") {
		cfg.Plot = base.Plot
	}
	if !flags.Changed("dump") {
		cfg.Dump = base.Dump
	}
	if !flags.Changed("fingerprint") {
		cfg.Fingerprint = base.Fingerprint
	}
	if !flags.Changed("verbose") {
		cfg.Verbose = base.Verbose
	}

	if cfg.Input == "" && flags.NArg() > 0 {
		cfg.Input = flags.Arg(0)
	}
	// Giving an output file implies rendering.
	if cfg.Out != "" && !flags.Changed("mode") && base.Mode == def.Mode {
		cfg.Mode = ModeRender
	}
	return cfg, nil
}

// Variant returns the chip variant named by Chip.
func (c Config) Variant() (emu.Variant, error) {
	switch strings.ToLower(c.Chip) {
	case "ym3438", "3438", "opn2c":
		return emu.VariantYM3438, nil
	case "ymf276", "276":
		return emu.VariantYMF276, nil
	}
	return emu.VariantYM3438, fmt.Errorf("invalid chip %q (use ym3438 or ymf276)", c.Chip)
}

// Validate reports every problem with the configuration.
func (c Config) Validate() error {
	var result *multierror.Error

	if c.Input == "" {
		result = multierror.Append(result, errors.New("an input file is required"))
	} else if kind := InputKind(c.Input); kind == "" {
		result = multierror.Append(result, fmt.Errorf("unsupported input %q (use .vgm, .vgz or .lua)", c.Input))
	}
	if _, err := c.Variant(); err != nil {
		result = multierror.Append(result, err)
	}
	switch c.Mode {
	case ModePlay:
	case ModeRender:
		if c.Out == "" && c.Plot == "" && !c.Fingerprint && !c.Dump {
			result = multierror.Append(result, errors.New("render mode needs --out, --plot, --fingerprint or --dump"))
		}
	default:
		result = multierror.Append(result, fmt.Errorf("invalid mode %q (use play or render)", c.Mode))
	}
	if c.Seconds < 0 {
		result = multierror.Append(result, fmt.Errorf("seconds must not be negative, got %g", c.Seconds))
	}
	if c.Loops < 0 {
		result = multierror.Append(result, fmt.Errorf("loops must not be negative, got %d", c.Loops))
	}
	if c.Volume < 0 || c.Volume > 4 {
		result = multierror.Append(result, fmt.Errorf("volume must be within 0-4, got %g", c.Volume))
	}
	if c.Clock < 0 {
		result = multierror.Append(result, fmt.Errorf("clock must not be negative, got %d", c.Clock))
	}
	if c.Rate != 0 && (c.Rate < 8000 || c.Rate > 192000) {
		result = multierror.Append(result, fmt.Errorf("rate must be 0 or within 8000-192000, got %d", c.Rate))
	}
	if c.Filter < 0 {
		result = multierror.Append(result, fmt.Errorf("filter must not be negative, got %g", c.Filter))
	}

	return result.ErrorOrNil()
}

// InputKind classifies an input path by extension: "vgm", "lua", or "".
func InputKind(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".vgm", ".vgz":
		return "vgm"
	case ".lua":
		return "lua"
	}
	return ""
}
