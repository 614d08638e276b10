// Package main provides the entry point for mipsim, an architectural
// simulator for the MIPS-I instruction set.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/harness"
	"github.com/sarchlab/mipsim/insts"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/core"
)

var (
	format       = flag.String("format", "", "Program format: elf, bin, vmh or asm (default: from the file extension)")
	base         = flag.Uint("base", 0, "Load address of bin and asm programs")
	maxCycles    = flag.Uint64("max-cycles", 10_000_000, "Maximum number of instructions to execute (0 = unlimited)")
	timingConfig = flag.String("timing-config", "", "Path to timing configuration JSON file")
	caches       = flag.Bool("caches", false, "Add L1 instruction and data caches to the cycle model")
	strict       = flag.Bool("strict", true, "Raise address errors on misaligned halfword and word accesses")
	delaySlots   = flag.Bool("delay-slots", true, "Execute the instruction after a branch or jump")
	hostCalls    = flag.Bool("host-calls", true, "Service syscall on the host with SPIM conventions")
	memorySize   = flag.Uint("memory", emu.DefaultMemorySize, "Memory size in bytes")
	passFlag     = flag.String("pass", "", "Pass address or symbol (default: the \"pass\" symbol, if any)")
	failFlag     = flag.String("fail", "", "Fail address or symbol (default: the \"fail\" symbol, if any)")
	trace        = flag.Bool("trace", false, "Trace executed instructions to stderr")
	verbose      = flag.Bool("v", false, "Verbose output")
	selfTest     = flag.String("selftest", "", "Run built-in self-test suites (\"all\" or a suite name) instead of a program")
	reportFormat = flag.String("report", "text", "Self-test report format: text, csv or json")
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("mipsim: ")

	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)

	var status int
	if *selfTest != "" {
		status = runSelfTest(ctx, os.Stdout)
	} else {
		if flag.NArg() < 1 {
			fmt.Fprintf(os.Stderr, "Usage: mipsim [options] <program>\n")
			fmt.Fprintf(os.Stderr, "\nOptions:\n")
			flag.PrintDefaults()
			os.Exit(1)
		}
		status = runProgram(ctx, flag.Arg(0), os.Stdout)
	}

	stop()
	os.Exit(status)
}

// runProgram loads and runs one program and returns the process exit status.
func runProgram(ctx context.Context, path string, stdout io.Writer) int {
	prog, err := loadProgram(path, *format, uint32(*base))
	if err != nil {
		log.Fatalf("loading program: %v", err)
	}

	model, err := newCycleModel(*timingConfig, *caches)
	if err != nil {
		log.Fatalf("timing configuration: %v", err)
	}

	opts, err := emulatorOptions(prog)
	if err != nil {
		log.Fatalf("%v", err)
	}
	opts = append(opts, emu.WithCycleModel(model), emu.WithStdout(stdout))

	e := emu.NewEmulator(opts...)
	if err := prog.LoadInto(e); err != nil {
		log.Fatalf("loading program: %v", err)
	}

	if *verbose {
		fmt.Fprintf(stdout, "Loaded: %s\n", path)
		fmt.Fprintf(stdout, "Entry point: 0x%08X\n", prog.EntryPoint)
		fmt.Fprintf(stdout, "Segments: %d\n", len(prog.Segments))
	}

	outcome, err := e.Run(ctx, *maxCycles)
	if err != nil {
		log.Fatalf("%v", err)
	}

	if *verbose {
		printReport(stdout, path, outcome, e, model)
	}

	return exitStatus(outcome)
}

// emulatorOptions translates the command line into emulator options.
func emulatorOptions(prog *loader.Program) ([]emu.EmulatorOption, error) {
	opts := []emu.EmulatorOption{
		emu.WithMemorySize(uint32(*memorySize)),
		emu.WithDelaySlots(*delaySlots),
		emu.WithHostCalls(*hostCalls),
		emu.WithStderr(os.Stderr),
		emu.WithStdin(os.Stdin),
	}

	if *strict {
		opts = append(opts, emu.WithAlignment(emu.AlignStrict))
	} else {
		opts = append(opts, emu.WithAlignment(emu.AlignPermissive))
	}

	pass, ok, err := resolveAddress(prog, *passFlag, loader.PassSymbol)
	if err != nil {
		return nil, fmt.Errorf("-pass: %w", err)
	}
	if ok {
		opts = append(opts, emu.WithPassAddress(pass))
	}

	fail, ok, err := resolveAddress(prog, *failFlag, loader.FailSymbol)
	if err != nil {
		return nil, fmt.Errorf("-fail: %w", err)
	}
	if ok {
		// A program with a fail label stops there instead of looping in
		// the exception vector.
		opts = append(opts, emu.WithFailAddress(fail), emu.WithHaltOnException(true))
	}

	if *trace {
		opts = append(opts, emu.WithTrace(os.Stderr))
	}

	return opts, nil
}

// printReport prints the run statistics.
func printReport(w io.Writer, path string, outcome emu.Outcome, e *emu.Emulator, model *core.Model) {
	stats := model.Stats()

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "Program: %s\n", path)
	fmt.Fprintf(w, "Outcome: %s\n", outcome)
	fmt.Fprintf(w, "Final PC: 0x%08X\n", e.ReadPC())
	fmt.Fprintf(w, "Instructions executed: %d\n", e.InstructionCount())
	fmt.Fprintf(w, "Cycles: %d\n",
		uint64(e.ReadCoprocessor0(insts.CP0RegCycleHi))<<32|uint64(e.ReadCoprocessor0(insts.CP0RegCycleLo)))
	fmt.Fprintf(w, "CPI: %.2f\n", stats.CPI())

	if ic := model.ICache(); ic != nil {
		s := ic.Stats()
		fmt.Fprintf(w, "I-Cache: %d hits, %d misses (%.1f%%)\n", s.Hits, s.Misses, 100*s.HitRate())
	}
	if dc := model.DCache(); dc != nil {
		s := dc.Stats()
		fmt.Fprintf(w, "D-Cache: %d hits, %d misses, %d writebacks (%.1f%%)\n",
			s.Hits, s.Misses, s.Writebacks, 100*s.HitRate())
	}
}

// runSelfTest runs the built-in harness suites.
func runSelfTest(ctx context.Context, stdout io.Writer) int {
	config := harness.DefaultConfig()
	config.Output = stdout
	config.MaxCycles = *maxCycles
	config.EnableICache = *caches
	config.EnableDCache = *caches
	config.Verbose = *trace

	if *timingConfig != "" {
		tc, err := loadTimingConfig(*timingConfig)
		if err != nil {
			log.Fatalf("timing configuration: %v", err)
		}
		config.Timing = tc
	}

	suites, err := selectSuites(*selfTest)
	if err != nil {
		log.Fatalf("%v", err)
	}

	h := harness.NewHarness(config)
	h.AddSuites(suites)

	results, err := h.RunAll(ctx)
	if err != nil {
		log.Fatalf("%v", err)
	}

	switch *reportFormat {
	case "csv":
		h.PrintCSV(results)
	case "json":
		if err := h.PrintJSON(results); err != nil {
			log.Fatalf("writing report: %v", err)
		}
	default:
		h.PrintResults(results)
	}

	for _, r := range results {
		if !r.Passed {
			return 1
		}
	}
	return 0
}
