package emu

import "github.com/sarchlab/mipsim/insts"

// MulDivUnit implements the multiply/divide unit. Every operation completes
// atomically and latches its result into HI and LO.
type MulDivUnit struct {
	regFile *RegFile
}

// NewMulDivUnit creates a new MulDivUnit connected to the given register file.
func NewMulDivUnit(regFile *RegFile) *MulDivUnit {
	return &MulDivUnit{regFile: regFile}
}

// Issue executes op with the rs and rt operand values.
func (u *MulDivUnit) Issue(op insts.MulDivOp, rs, rt uint32) {
	rf := u.regFile

	switch op {
	case insts.MulDivMTLO:
		rf.LO = rs
	case insts.MulDivMTHI:
		rf.HI = rs
	case insts.MulDivMult:
		product := int64(int32(rs)) * int64(int32(rt))
		rf.HI = uint32(uint64(product) >> 32)
		rf.LO = uint32(product)
	case insts.MulDivMultU:
		product := uint64(rs) * uint64(rt)
		rf.HI = uint32(product >> 32)
		rf.LO = uint32(product)
	case insts.MulDivDiv:
		rf.HI, rf.LO = divSigned(int32(rs), int32(rt))
	case insts.MulDivDivU:
		rf.HI, rf.LO = divUnsigned(rs, rt)
	}
}

// divSigned returns (remainder, quotient). Division by zero leaves the
// dividend in HI and -1 or +1 in LO depending on the dividend's sign, the
// result R3000 hardware produces.
func divSigned(n, d int32) (hi, lo uint32) {
	switch {
	case d == 0:
		if n >= 0 {
			return uint32(n), 0xFFFFFFFF
		}
		return uint32(n), 1
	case uint32(n) == 0x80000000 && d == -1:
		return 0, 0x80000000
	default:
		return uint32(n % d), uint32(n / d)
	}
}

func divUnsigned(n, d uint32) (hi, lo uint32) {
	if d == 0 {
		return n, 0xFFFFFFFF
	}
	return n % d, n / d
}
