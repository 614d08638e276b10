// Package emu provides functional MIPS emulation.
package emu

import "github.com/sarchlab/mipsim/insts"

// ALUResult is the output of one ALU evaluation.
type ALUResult struct {
	Value uint32

	// Overflow is set only when the instruction requested an overflow check
	// and the signed result does not fit in 32 bits.
	Overflow bool
}

// ALU implements the MIPS adder, comparator, boolean unit and shifter.
type ALU struct{}

// NewALU creates a new ALU.
func NewALU() *ALU {
	return &ALU{}
}

// Evaluate computes the unit selected by ctrl on operands a and b.
// For the shifter, a carries the shift amount and b the shifted value.
func (u *ALU) Evaluate(ctrl insts.ControlSignals, a, b uint32) ALUResult {
	switch ctrl.Unit {
	case insts.UnitAddSub:
		return u.addSub(ctrl, a, b)
	case insts.UnitSLT:
		return ALUResult{Value: setLess(ctrl.SLT, a, b)}
	case insts.UnitBoolean:
		return ALUResult{Value: boolean(ctrl.Bool, a, b)}
	case insts.UnitShifter:
		return ALUResult{Value: shift(ctrl.Shift, a, b)}
	default:
		return ALUResult{}
	}
}

func (u *ALU) addSub(ctrl insts.ControlSignals, a, b uint32) ALUResult {
	var result uint32
	var overflow bool

	if ctrl.AddSub == insts.AddSubSub {
		result = a - b
		// Operands of different sign, result sign differs from a.
		overflow = ((a^b)&(a^result))>>31 != 0
	} else {
		result = a + b
		// Operands of the same sign, result sign differs from both.
		overflow = ((a^result)&(b^result))>>31 != 0
	}

	return ALUResult{
		Value:    result,
		Overflow: overflow && ctrl.CheckOverflow == insts.CheckYes,
	}
}

func setLess(op insts.SLTOp, a, b uint32) uint32 {
	var less bool
	if op == insts.SLTUnsigned {
		less = a < b
	} else {
		less = int32(a) < int32(b)
	}

	if less {
		return 1
	}
	return 0
}

func boolean(op insts.BoolOp, a, b uint32) uint32 {
	switch op {
	case insts.BoolAnd:
		return a & b
	case insts.BoolOr:
		return a | b
	case insts.BoolXor:
		return a ^ b
	case insts.BoolNor:
		return ^(a | b)
	default:
		return 0
	}
}

func shift(op insts.ShiftOp, amount, value uint32) uint32 {
	amount &= 31

	switch op {
	case insts.ShiftLL:
		return value << amount
	case insts.ShiftLR:
		return value >> amount
	case insts.ShiftAR:
		return uint32(int32(value) >> amount)
	default:
		return 0
	}
}
