package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/sarchlab/mipsim/asm"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/harness"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/latency"
)

// Program formats.
const (
	formatELF = "elf"
	formatBin = "bin"
	formatVMH = "vmh"
	formatAsm = "asm"
)

// detectFormat returns the explicit format, or guesses one from the file
// extension. Unknown extensions are treated as ELF.
func detectFormat(path, explicit string) (string, error) {
	if explicit != "" {
		switch explicit {
		case formatELF, formatBin, formatVMH, formatAsm:
			return explicit, nil
		default:
			return "", fmt.Errorf("unknown program format %q", explicit)
		}
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".bin":
		return formatBin, nil
	case ".vmh":
		return formatVMH, nil
	case ".s", ".asm":
		return formatAsm, nil
	default:
		return formatELF, nil
	}
}

// loadProgram reads a program in any supported format. base is the load
// address of raw binaries and assembler sources.
func loadProgram(path, explicit string, base uint32) (*loader.Program, error) {
	f, err := detectFormat(path, explicit)
	if err != nil {
		return nil, err
	}

	if f == formatELF {
		return loader.Load(path)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open program: %w", err)
	}
	defer func() { _ = file.Close() }()

	switch f {
	case formatBin:
		return loader.LoadBinary(file, base)
	case formatVMH:
		return loader.LoadVMH(file)
	default:
		src, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("failed to read program: %w", err)
		}

		prog, err := new(asm.Assembler).Assemble(string(src), base)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}

		return loader.FromWords(prog.Origin, prog.Words, prog.Labels), nil
	}
}

// resolveAddress interprets spec as a number or a program symbol. An empty
// spec falls back to the symbol def when the program defines it.
func resolveAddress(prog *loader.Program, spec, def string) (uint32, bool, error) {
	if spec == "" {
		addr, ok := prog.Symbol(def)
		return addr, ok, nil
	}

	if v, err := strconv.ParseUint(spec, 0, 32); err == nil {
		return uint32(v), true, nil
	}

	addr, ok := prog.Symbol(spec)
	if !ok {
		return 0, false, fmt.Errorf("symbol %q not found", spec)
	}

	return addr, true, nil
}

func loadTimingConfig(path string) (*latency.TimingConfig, error) {
	config, err := latency.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// newCycleModel builds the cycle model from an optional timing
// configuration file.
func newCycleModel(configPath string, withCaches bool) (*core.Model, error) {
	config := latency.DefaultTimingConfig()
	if configPath != "" {
		var err error
		config, err = loadTimingConfig(configPath)
		if err != nil {
			return nil, err
		}
	}

	opts := []core.ModelOption{core.WithLatencyTable(latency.NewTableWithConfig(config))}
	if withCaches {
		opts = append(opts,
			core.WithICache(cache.DefaultL1IConfig()),
			core.WithDCache(cache.DefaultL1DConfig()),
		)
	}

	return core.NewModel(opts...), nil
}

// selectSuites picks the self-test suites named by spec.
func selectSuites(spec string) ([]harness.Suite, error) {
	if spec == "all" {
		return harness.Suites(), nil
	}

	var suites []harness.Suite
	for _, name := range strings.Split(spec, ",") {
		s, ok := harness.Lookup(strings.TrimSpace(name))
		if !ok {
			return nil, fmt.Errorf("unknown self-test suite %q", name)
		}
		suites = append(suites, s)
	}

	return suites, nil
}

// Exit statuses for runs that did not complete.
const (
	exitFail       = 1
	exitException  = 2
	exitCycleLimit = 3
	exitCancelled  = 130
)

// exitStatus maps a run outcome to a process exit status. A completed run
// exits with the program's own exit code.
func exitStatus(o emu.Outcome) int {
	switch o.Kind {
	case emu.Completed:
		return int(o.ExitCode)
	case emu.CycleLimitExceeded:
		return exitCycleLimit
	}

	switch o.Reason {
	case emu.HaltException:
		return exitException
	case emu.HaltCancelled:
		return exitCancelled
	default:
		return exitFail
	}
}
