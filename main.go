//go:build !js

package main

import (
	"errors"
	"flag"
	"fmt"
	"math/rand/v2"
	"os"

	"github.com/sirupsen/logrus"

	"gochip8/pkg/cpu"
	"gochip8/pkg/disasm"
	"gochip8/pkg/rom"
	"gochip8/pkg/utils"
)

// runOptions controls a headless run.
type runOptions struct {
	cycles     int
	ticksEvery int
	seed       uint64
	trace      bool
}

func main() {
	inPath := flag.String("in", "", "assembly source (.asm) or program image to load")
	outPath := flag.String("out", "", "output image path for assembled sources (default: input with .ch8 extension)")
	showListing := flag.Bool("disasm", false, "print a disassembly listing of the program")
	runProgram := flag.Bool("run", false, "run the program headless and print the final display and registers")
	cycles := flag.Int("cycles", 1000, "maximum number of instructions to execute with -run")
	ticksEvery := flag.Int("ticks-every", 10, "instructions per timer tick with -run (0 disables timers)")
	screenshot := flag.String("screenshot", "", "write a PNG of the display after the run")
	scale := flag.Int("scale", 10, "pixel scale for -screenshot")
	debug := flag.Bool("debug", false, "enable debug logging")
	trace := flag.Bool("trace", false, "log every executed instruction")
	seed := flag.Uint64("seed", 0, "seed for RND (0 uses a random seed)")
	flag.Parse()

	log := logrus.New()
	switch {
	case *trace:
		log.SetLevel(logrus.TraceLevel)
	case *debug:
		log.SetLevel(logrus.DebugLevel)
	}

	if *inPath == "" {
		fmt.Fprintln(os.Stderr, "nothing to do: provide -in with a source file or program image")
		flag.Usage()
		os.Exit(2)
	}

	program, err := utils.ReadProgram(*inPath)
	if err != nil {
		log.WithError(err).Fatal("failed to load program")
	}
	log.WithFields(logrus.Fields{
		"path":        *inPath,
		"bytes":       len(program),
		"fingerprint": fmt.Sprintf("%016x", rom.Fingerprint(program)),
	}).Debug("program loaded")

	if utils.IsSource(*inPath) {
		output := *outPath
		if output == "" {
			output = utils.OutputPath(*inPath)
		}
		if err := os.WriteFile(output, program, 0o644); err != nil {
			log.WithError(err).Fatalf("failed to write image %q", output)
		}
		fmt.Printf("assembled %d bytes -> %s\n", len(program), output)
	}

	if *showListing {
		fmt.Print(disasm.Format(disasm.Listing(program, cpu.ProgramStart)))
	}

	if !*runProgram && *screenshot == "" {
		return
	}

	vm, err := runHeadless(program, runOptions{
		cycles:     *cycles,
		ticksEvery: *ticksEvery,
		seed:       *seed,
		trace:      *trace,
	}, log)

	fmt.Print(vm.Display.String())
	fmt.Println(vm.Snapshot())

	if *screenshot != "" {
		if err := vm.Display.SaveScreenshot(*screenshot, *scale); err != nil {
			log.WithError(err).Fatal("failed to save screenshot")
		}
	}

	if err != nil {
		var fault *cpu.Fault
		if errors.As(err, &fault) {
			log.WithFields(fault.Fields()).Error("program faulted")
		} else {
			log.WithError(err).Error("run failed")
		}
		os.Exit(1)
	}
}

// runHeadless executes up to opts.cycles instructions, ticking the timers
// every opts.ticksEvery instructions. It stops early on a fault or when the
// program waits for a key, since no input is available.
func runHeadless(program []byte, opts runOptions, log logrus.FieldLogger) (*cpu.CPU, error) {
	cfg := cpu.Config{Log: log, Trace: opts.trace}
	if opts.seed != 0 {
		rng := rand.New(rand.NewPCG(opts.seed, opts.seed))
		cfg.Random = func() byte { return byte(rng.UintN(256)) }
	}

	vm := cpu.New(cfg)
	if err := vm.LoadProgram(program); err != nil {
		return vm, err
	}

	for i := 0; i < opts.cycles; i++ {
		if err := vm.Step(); err != nil {
			return vm, err
		}
		if vm.WaitingForKey {
			log.WithField("register", fmt.Sprintf("V%X", vm.KeyRegister)).Info("program is waiting for a key; stopping")
			break
		}
		if opts.ticksEvery > 0 && (i+1)%opts.ticksEvery == 0 {
			vm.TickTimers()
		}
	}

	return vm, nil
}
