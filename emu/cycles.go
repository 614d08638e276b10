package emu

import "github.com/sarchlab/mipsim/insts"

// CycleModel charges cycles to instructions. The charge is accounting only:
// it advances the coprocessor 0 cycle counter and never changes
// architectural results.
type CycleModel interface {
	// Cycles returns the cost of executing inst at pc. dataAddr is the
	// effective address of a load or store and zero otherwise.
	Cycles(pc uint32, inst *insts.Instruction, ctrl insts.ControlSignals, dataAddr uint32) uint64
}

// SingleCycleModel charges one cycle per instruction.
type SingleCycleModel struct{}

// Cycles always returns 1.
func (SingleCycleModel) Cycles(uint32, *insts.Instruction, insts.ControlSignals, uint32) uint64 {
	return 1
}
