// Package latency provides instruction timing models for the cycle counter.
//
// The latency values are based on R3000 estimates and can be configured via
// TimingConfig.
package latency

import (
	"github.com/sarchlab/mipsim/insts"
)

// Class is the timing class of an instruction.
type Class uint8

// Timing classes.
const (
	ClassALU Class = iota
	ClassBranch
	ClassJump
	ClassLoad
	ClassStore
	ClassMultiply
	ClassDivide
	ClassMoveHILO
	ClassSyscall
	ClassCop0
	ClassException
)

// Table provides instruction latency lookups.
type Table struct {
	config *TimingConfig
}

// NewTable creates a new latency table with default timing values.
func NewTable() *Table {
	return &Table{
		config: DefaultTimingConfig(),
	}
}

// NewTableWithConfig creates a new latency table with custom timing configuration.
func NewTableWithConfig(config *TimingConfig) *Table {
	return &Table{
		config: config,
	}
}

// Classify returns the timing class of a decoded instruction.
func Classify(inst *insts.Instruction) Class {
	if inst == nil || inst.Op.Spec() == nil {
		return ClassException
	}

	ctrl := inst.Op.Spec().Control

	switch {
	case ctrl.Exc == insts.ExcSyscall || ctrl.Exc == insts.ExcBreak:
		return ClassSyscall
	case ctrl.PC == insts.PCBranch:
		return ClassBranch
	case ctrl.PC == insts.PCJump || ctrl.PC == insts.PCJumpReg:
		return ClassJump
	case ctrl.Mem == insts.MemRead:
		return ClassLoad
	case ctrl.Mem == insts.MemWrite:
		return ClassStore
	case ctrl.MulDiv == insts.MulDivMult || ctrl.MulDiv == insts.MulDivMultU:
		return ClassMultiply
	case ctrl.MulDiv == insts.MulDivDiv || ctrl.MulDiv == insts.MulDivDivU:
		return ClassDivide
	case ctrl.MulDiv != insts.MulDivNone:
		return ClassMoveHILO
	case ctrl.WB == insts.WBCoproc && ctrl.CPSel != insts.CPSelCP0:
		return ClassMoveHILO
	case ctrl.CP0 != insts.CP0None || ctrl.CPSel == insts.CPSelCP0:
		return ClassCop0
	default:
		return ClassALU
	}
}

// GetLatency returns the execution latency in cycles for the given instruction.
func (t *Table) GetLatency(inst *insts.Instruction) uint64 {
	return t.ClassLatency(Classify(inst))
}

// ClassLatency returns the configured latency of a timing class.
func (t *Table) ClassLatency(class Class) uint64 {
	c := t.config

	switch class {
	case ClassALU:
		return c.ALULatency
	case ClassBranch:
		return c.BranchLatency
	case ClassJump:
		return c.JumpLatency
	case ClassLoad:
		return c.LoadLatency
	case ClassStore:
		return c.StoreLatency
	case ClassMultiply:
		return c.MultiplyLatency
	case ClassDivide:
		return c.DivideLatency
	case ClassMoveHILO:
		return c.MoveHILOLatency
	case ClassSyscall:
		return c.SyscallLatency
	case ClassCop0:
		return c.Cop0Latency
	case ClassException:
		return c.ExceptionLatency
	default:
		return 1
	}
}

// IsMemoryOp returns true if the instruction accesses memory.
func (t *Table) IsMemoryOp(inst *insts.Instruction) bool {
	return t.IsLoadOp(inst) || t.IsStoreOp(inst)
}

// IsLoadOp returns true if the instruction is a load operation.
func (t *Table) IsLoadOp(inst *insts.Instruction) bool {
	return Classify(inst) == ClassLoad
}

// IsStoreOp returns true if the instruction is a store operation.
func (t *Table) IsStoreOp(inst *insts.Instruction) bool {
	return Classify(inst) == ClassStore
}

// IsBranchOp returns true if the instruction is a branch or jump.
func (t *Table) IsBranchOp(inst *insts.Instruction) bool {
	class := Classify(inst)
	return class == ClassBranch || class == ClassJump
}

// Config returns the current timing configuration.
func (t *Table) Config() *TimingConfig {
	return t.config
}
