package emu

import "github.com/sarchlab/mipsim/insts"

// BranchUnit is the branch comparator.
type BranchUnit struct{}

// NewBranchUnit creates a new BranchUnit.
func NewBranchUnit() *BranchUnit {
	return &BranchUnit{}
}

// Decide reports whether a conditional branch is taken. a is the rs value
// and b the rt value; the single-operand conditions ignore b.
func (u *BranchUnit) Decide(cond insts.BranchCond, a, b uint32) bool {
	switch cond {
	case insts.BranchEQ:
		return a == b
	case insts.BranchNE:
		return a != b
	case insts.BranchLEZ:
		return int32(a) <= 0
	case insts.BranchGTZ:
		return int32(a) > 0
	case insts.BranchLTZ:
		return a&0x80000000 != 0
	case insts.BranchGEZ:
		return a&0x80000000 == 0
	default:
		return false
	}
}
