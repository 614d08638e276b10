// Package harness runs self-checking MIPS test programs.
//
// A Suite is a list of Tests built with the helpers in this package (ImmOp,
// RROp, LdOp, BR2OpTaken, ...). The harness assembles them between a short
// prologue and the pass/fail labels, runs the program on a fresh emulator
// and reports which test, if any, failed. A failing test leaves its number
// in $30 and the expected value in $29.
package harness

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/sarchlab/mipsim/asm"
	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/timing/cache"
	"github.com/sarchlab/mipsim/timing/core"
	"github.com/sarchlab/mipsim/timing/latency"
)

const (
	// DefaultOrigin is the load address of test programs, above the
	// exception vector.
	DefaultOrigin uint32 = 0x100

	// DefaultMaxCycles bounds a test program run.
	DefaultMaxCycles uint64 = 1_000_000

	// PassLabel and FailLabel name the addresses that end a run.
	PassLabel = "pass"
	FailLabel = "fail"
)

// Suite is a self-checking program.
type Suite struct {
	// Name identifies the suite in reports.
	Name string

	// Tests run in order.
	Tests []Test

	// Data is assembler source placed after the fail label, typically
	// labelled .word tables for the load and store tests.
	Data string
}

// Source returns the complete assembler source of the suite.
func (s Suite) Source() string {
	var sb strings.Builder

	sb.WriteString("\t.set noreorder\n")
	sb.WriteString("\tmove $29, $0\n")
	sb.WriteString("\tmove $30, $0\n")

	for _, t := range s.Tests {
		sb.WriteString(t.Source)
	}

	fmt.Fprintf(&sb, "%s:\n\tnop\n", PassLabel)
	fmt.Fprintf(&sb, "%s:\n\tnop\n", FailLabel)

	if s.Data != "" {
		sb.WriteString(s.Data)
		if !strings.HasSuffix(s.Data, "\n") {
			sb.WriteString("\n")
		}
	}

	return sb.String()
}

// Result is the outcome of one suite.
type Result struct {
	Name string `json:"name"`

	// Passed is set when execution reached the pass label.
	Passed bool `json:"passed"`

	// TestNum is $30 at the end of the run: the failing test when Passed
	// is false, the last test otherwise.
	TestNum uint32 `json:"test_num"`

	// Expected is $29, the value the failing test wanted.
	Expected uint32 `json:"expected"`

	Outcome emu.Outcome `json:"-"`
	Status  string      `json:"status"`

	Cycles       uint64  `json:"cycles"`
	Instructions uint64  `json:"instructions"`
	CPI          float64 `json:"cpi"`

	ICacheHits   uint64 `json:"icache_hits,omitempty"`
	ICacheMisses uint64 `json:"icache_misses,omitempty"`
	DCacheHits   uint64 `json:"dcache_hits,omitempty"`
	DCacheMisses uint64 `json:"dcache_misses,omitempty"`

	WallTime time.Duration `json:"wall_time_ns"`
}

// Config configures the harness.
type Config struct {
	// Origin is where programs are assembled and loaded.
	Origin uint32

	// MaxCycles bounds each run; zero means unbounded.
	MaxCycles uint64

	// Timing is the latency table configuration; nil means defaults.
	Timing *latency.TimingConfig

	// EnableICache and EnableDCache add the default L1 caches to the
	// cycle model.
	EnableICache bool
	EnableDCache bool

	// Output receives reports and, when Verbose, instruction traces.
	Output io.Writer

	// Verbose traces every executed instruction to Output.
	Verbose bool
}

// DefaultConfig returns a default harness configuration.
func DefaultConfig() Config {
	return Config{
		Origin:    DefaultOrigin,
		MaxCycles: DefaultMaxCycles,
		Output:    os.Stdout,
	}
}

// Harness runs suites and reports results.
type Harness struct {
	config Config
	suites []Suite
}

// NewHarness creates a harness.
func NewHarness(config Config) *Harness {
	if config.Output == nil {
		config.Output = os.Stdout
	}
	return &Harness{config: config}
}

// AddSuite adds a suite to the harness.
func (h *Harness) AddSuite(s Suite) {
	h.suites = append(h.suites, s)
}

// AddSuites adds multiple suites to the harness.
func (h *Harness) AddSuites(suites []Suite) {
	h.suites = append(h.suites, suites...)
}

// Run assembles the tests with the default configuration, runs them and
// reports the result.
func Run(ctx context.Context, tests []Test, data string) (Result, error) {
	h := NewHarness(DefaultConfig())
	return h.Run(ctx, Suite{Tests: tests, Data: data})
}

// RunAll runs every added suite in order. It stops at the first suite that
// cannot be assembled or loaded.
func (h *Harness) RunAll(ctx context.Context) ([]Result, error) {
	results := make([]Result, 0, len(h.suites))

	for _, s := range h.suites {
		r, err := h.Run(ctx, s)
		if err != nil {
			return results, err
		}
		results = append(results, r)
	}

	return results, nil
}

func (h *Harness) cycleModel() *core.Model {
	table := latency.NewTable()
	if h.config.Timing != nil {
		table = latency.NewTableWithConfig(h.config.Timing)
	}

	opts := []core.ModelOption{core.WithLatencyTable(table)}
	if h.config.EnableICache {
		opts = append(opts, core.WithICache(cache.DefaultL1IConfig()))
	}
	if h.config.EnableDCache {
		opts = append(opts, core.WithDCache(cache.DefaultL1DConfig()))
	}

	return core.NewModel(opts...)
}

// Run assembles and runs one suite. Test failures are reported in the
// Result; the error is for programs that cannot be assembled or run.
func (h *Harness) Run(ctx context.Context, s Suite) (Result, error) {
	prog, err := new(asm.Assembler).Assemble(s.Source(), h.config.Origin)
	if err != nil {
		return Result{}, fmt.Errorf("suite %q: %w", s.Name, err)
	}

	model := h.cycleModel()

	opts := []emu.EmulatorOption{
		emu.WithResetVector(prog.Origin),
		emu.WithPassAddress(prog.Labels[PassLabel]),
		emu.WithFailAddress(prog.Labels[FailLabel]),
		emu.WithHaltOnException(true),
		emu.WithCycleModel(model),
		emu.WithStdout(h.config.Output),
	}
	if h.config.Verbose {
		opts = append(opts, emu.WithTrace(h.config.Output))
	}

	e := emu.NewEmulator(opts...)
	if err := e.LoadWords(prog.Origin, prog.Words); err != nil {
		return Result{}, fmt.Errorf("suite %q: %w", s.Name, err)
	}

	start := time.Now()
	outcome, err := e.Run(ctx, h.config.MaxCycles)
	wallTime := time.Since(start)

	if err != nil {
		return Result{}, fmt.Errorf("suite %q: %w", s.Name, err)
	}

	stats := model.Stats()

	return Result{
		Name:         s.Name,
		Passed:       outcome.Kind == emu.Completed,
		TestNum:      e.ReadRegister(30),
		Expected:     e.ReadRegister(29),
		Outcome:      outcome,
		Status:       outcome.String(),
		Cycles:       stats.Cycles,
		Instructions: stats.Instructions,
		CPI:          stats.CPI(),
		ICacheHits:   stats.ICache.Hits,
		ICacheMisses: stats.ICache.Misses,
		DCacheHits:   stats.DCache.Hits,
		DCacheMisses: stats.DCache.Misses,
		WallTime:     wallTime,
	}, nil
}

// PrintResults outputs results in a human-readable format.
func (h *Harness) PrintResults(results []Result) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out, "=== mipsim self-test results ===")
	_, _ = fmt.Fprintln(out, "")

	for _, r := range results {
		verdict := "PASS"
		if !r.Passed {
			verdict = fmt.Sprintf("FAIL (test %d, expected 0x%08x)", r.TestNum, r.Expected)
		}

		_, _ = fmt.Fprintf(out, "Suite: %s  %s\n", r.Name, verdict)
		_, _ = fmt.Fprintf(out, "  Status:       %s\n", r.Status)
		_, _ = fmt.Fprintf(out, "  Cycles:       %d\n", r.Cycles)
		_, _ = fmt.Fprintf(out, "  Instructions: %d\n", r.Instructions)
		_, _ = fmt.Fprintf(out, "  CPI:          %.3f\n", r.CPI)

		if r.ICacheHits > 0 || r.ICacheMisses > 0 {
			_, _ = fmt.Fprintf(out, "  I-Cache:      %d hits, %d misses\n", r.ICacheHits, r.ICacheMisses)
		}
		if r.DCacheHits > 0 || r.DCacheMisses > 0 {
			_, _ = fmt.Fprintf(out, "  D-Cache:      %d hits, %d misses\n", r.DCacheHits, r.DCacheMisses)
		}
	}
}

// PrintCSV outputs results in CSV format.
func (h *Harness) PrintCSV(results []Result) {
	out := h.config.Output

	_, _ = fmt.Fprintln(out,
		"name,passed,test_num,cycles,instructions,cpi,icache_hits,icache_misses,dcache_hits,dcache_misses")

	for _, r := range results {
		_, _ = fmt.Fprintf(out, "%s,%t,%d,%d,%d,%.3f,%d,%d,%d,%d\n",
			r.Name,
			r.Passed,
			r.TestNum,
			r.Cycles,
			r.Instructions,
			r.CPI,
			r.ICacheHits,
			r.ICacheMisses,
			r.DCacheHits,
			r.DCacheMisses,
		)
	}
}

// Report is the JSON form of a harness run.
type Report struct {
	Timestamp string   `json:"timestamp"`
	ICache    bool     `json:"icache_enabled"`
	DCache    bool     `json:"dcache_enabled"`
	Results   []Result `json:"results"`
	Passed    int      `json:"passed"`
	Failed    int      `json:"failed"`
}

// PrintJSON outputs results as a JSON Report.
func (h *Harness) PrintJSON(results []Result) error {
	report := Report{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		ICache:    h.config.EnableICache,
		DCache:    h.config.EnableDCache,
		Results:   results,
	}

	for _, r := range results {
		if r.Passed {
			report.Passed++
		} else {
			report.Failed++
		}
	}

	encoder := json.NewEncoder(h.config.Output)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}
