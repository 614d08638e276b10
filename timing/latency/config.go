package latency

import (
	"encoding/json"
	"fmt"
	"os"
)

// TimingConfig holds latency values for different instruction classes.
// Values are based on the R3000 implementation of MIPS-I.
type TimingConfig struct {
	// ALULatency is the execution latency for adder, comparator, boolean
	// and shifter operations. Default: 1 cycle.
	ALULatency uint64 `json:"alu_latency"`

	// BranchLatency is the latency of conditional branches. Default: 1 cycle.
	BranchLatency uint64 `json:"branch_latency"`

	// JumpLatency is the latency of j, jal, jr and jalr. Default: 1 cycle.
	JumpLatency uint64 `json:"jump_latency"`

	// LoadLatency is the latency for load operations, including the load
	// delay cycle the interlock hides. Default: 2 cycles.
	LoadLatency uint64 `json:"load_latency"`

	// StoreLatency is the latency for store operations (write buffer).
	// Default: 1 cycle.
	StoreLatency uint64 `json:"store_latency"`

	// MultiplyLatency is the latency for mult and multu. Default: 12 cycles.
	MultiplyLatency uint64 `json:"multiply_latency"`

	// DivideLatency is the latency for div and divu. Default: 35 cycles.
	DivideLatency uint64 `json:"divide_latency"`

	// MoveHILOLatency is the latency for mfhi, mflo, mthi and mtlo.
	// Default: 1 cycle.
	MoveHILOLatency uint64 `json:"move_hilo_latency"`

	// SyscallLatency is the latency for syscall and break, excluding the
	// handler. Default: 1 cycle.
	SyscallLatency uint64 `json:"syscall_latency"`

	// Cop0Latency is the latency for mfc0, mtc0 and rfe. Default: 1 cycle.
	Cop0Latency uint64 `json:"cop0_latency"`

	// ExceptionLatency is the latency charged to reserved instructions,
	// which only enter the exception vector. Default: 1 cycle.
	ExceptionLatency uint64 `json:"exception_latency"`
}

// DefaultTimingConfig returns a TimingConfig with R3000-based default values.
func DefaultTimingConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:       1,
		BranchLatency:    1,
		JumpLatency:      1,
		LoadLatency:      2,
		StoreLatency:     1,
		MultiplyLatency:  12,
		DivideLatency:    35,
		MoveHILOLatency:  1,
		SyscallLatency:   1,
		Cop0Latency:      1,
		ExceptionLatency: 1,
	}
}

// SingleCycleConfig returns a TimingConfig that charges one cycle to every
// instruction.
func SingleCycleConfig() *TimingConfig {
	return &TimingConfig{
		ALULatency:       1,
		BranchLatency:    1,
		JumpLatency:      1,
		LoadLatency:      1,
		StoreLatency:     1,
		MultiplyLatency:  1,
		DivideLatency:    1,
		MoveHILOLatency:  1,
		SyscallLatency:   1,
		Cop0Latency:      1,
		ExceptionLatency: 1,
	}
}

// LoadConfig loads a TimingConfig from a JSON file. Fields missing from
// the file keep their default values.
func LoadConfig(path string) (*TimingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read timing config file: %w", err)
	}

	config := DefaultTimingConfig()
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse timing config: %w", err)
	}

	return config, nil
}

// SaveConfig writes a TimingConfig to a JSON file.
func (c *TimingConfig) SaveConfig(path string) error {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize timing config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write timing config file: %w", err)
	}

	return nil
}

// Validate checks that all latency values are valid (> 0).
func (c *TimingConfig) Validate() error {
	fields := []struct {
		name  string
		value uint64
	}{
		{"alu_latency", c.ALULatency},
		{"branch_latency", c.BranchLatency},
		{"jump_latency", c.JumpLatency},
		{"load_latency", c.LoadLatency},
		{"store_latency", c.StoreLatency},
		{"multiply_latency", c.MultiplyLatency},
		{"divide_latency", c.DivideLatency},
		{"move_hilo_latency", c.MoveHILOLatency},
		{"syscall_latency", c.SyscallLatency},
		{"cop0_latency", c.Cop0Latency},
		{"exception_latency", c.ExceptionLatency},
	}

	for _, f := range fields {
		if f.value == 0 {
			return fmt.Errorf("%s must be > 0", f.name)
		}
	}

	return nil
}

// Clone returns a deep copy of the TimingConfig.
func (c *TimingConfig) Clone() *TimingConfig {
	clone := *c
	return &clone
}
