package main

import (
	"errors"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/spf13/afero"

	"github.com/user-none/opn2/cli"
	opn2log "github.com/user-none/opn2/log"
)

func main() {
	fs := afero.NewOsFs()

	cfg, err := cli.ParseArgs(fs, os.Args[1:])
	if errors.Is(err, cli.ErrHelp) {
		os.Exit(0)
	}
	if err != nil {
		log.Fatal(err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}

	logger := opn2log.New(os.Stderr, cfg.Verbose)

	src, err := cli.OpenSource(fs, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to open %s: %v", cfg.Input, err)
	}
	logger.Infof("%s at %d Hz (%d Hz native)", src.Chip().Variant(), src.Chip().ClockHz(), src.Chip().SampleRate())

	capture := cfg.Out != "" || cfg.Plot != "" || cfg.Fingerprint
	runner := cli.NewRunner(src, cfg, cli.WithLogger(logger), cli.WithCapture(capture))
	progress := cli.NewProgress(os.Stderr, runner.OutputRate(), runner.TotalFrames())

	switch cfg.Mode {
	case cli.ModeRender:
		runner.Render(func() { progress.Update(runner.Level()) })
	case cli.ModePlay:
		if err := runner.Start(); err != nil {
			log.Fatal(err)
		}
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, os.Interrupt)
		ticker := time.NewTicker(50 * time.Millisecond)
	play:
		for {
			select {
			case <-runner.Done():
				break play
			case <-interrupt:
				break play
			case <-ticker.C:
				progress.Update(runner.Level())
			}
		}
		ticker.Stop()
		signal.Stop(interrupt)
	}

	// Stop playback before touching the captured output.
	runner.Close()
	progress.Finish(runner.Level())

	out := runner.Output()
	if cfg.Out != "" {
		if err := cli.SaveWAV(fs, cfg.Out, out, runner.OutputRate()); err != nil {
			log.Fatalf("Failed to write %s: %v", cfg.Out, err)
		}
		logger.Infof("wrote %s", cfg.Out)
	}
	if cfg.Plot != "" {
		if err := cli.Plot(fs, cfg.Plot, out, runner.OutputRate(), filepath.Base(cfg.Input)); err != nil {
			log.Fatalf("Failed to plot %s: %v", cfg.Plot, err)
		}
		logger.Infof("wrote %s", cfg.Plot)
	}
	if cfg.Fingerprint {
		fmt.Printf("%016x  %s\n", cli.Fingerprint(out), cfg.Input)
	}
	if cfg.Dump {
		cli.Dump(os.Stdout, src.Chip().Chip())
	}
}
