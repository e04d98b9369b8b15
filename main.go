package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/retroenv/retrogolib/log"

	"github.com/dcrofts/go-chip8/emulator"
	"github.com/dcrofts/go-chip8/platform"
)

func main() {
	scale := flag.Int("scale", 10, "window scale factor for the 64x32 display")
	steps := flag.Int("steps", 10, "instruction steps per 60Hz frame")
	debug := flag.Bool("debug", false, "enable debug logging")
	flag.Parse()

	logger := createLogger(*debug)

	if flag.NArg() != 1 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] <ROM file>\n", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
		os.Exit(1)
	}

	if err := run(logger, flag.Arg(0), int32(*scale), *steps); err != nil {
		logger.Fatal("emulation failed", log.Err(err))
	}
}

func createLogger(debug bool) *log.Logger {
	cfg := log.DefaultConfig()
	if debug {
		cfg.Level = log.DebugLevel
	}
	return log.NewWithConfig(cfg)
}

func run(logger *log.Logger, romPath string, scale int32, stepsPerFrame int) error {
	image, err := os.ReadFile(romPath)
	if err != nil {
		return errors.Wrap(err, "reading ROM")
	}

	c8 := emulator.New()
	if err := c8.LoadProgram(image); err != nil {
		return errors.Wrap(err, "loading ROM")
	}

	logger.Info("ROM loaded", log.String("file", romPath))

	p, err := platform.New(filepath.Base(romPath), scale, logger)
	if err != nil {
		return errors.Wrap(err, "initialising SDL")
	}
	defer p.Destroy()

	return p.Run(c8, stepsPerFrame)
}
