package insts

import "fmt"

// The selectors below are the software form of the processor's control
// signal tables. Where the hardware table allows a don't-care value the Go
// type has an explicit Unspecified variant, always the zero value, so a
// zero ControlSignals means "nothing selected".

// PCSel selects the source of the next program counter.
type PCSel uint8

// PC select values.
const (
	PCUnspecified PCSel = iota
	PCInc               // PC + 4
	PCBranch            // conditional PC-relative branch
	PCJump              // 26-bit region jump
	PCJumpReg           // jump to register
	PCReset             // reset vector
	PCException         // exception vector
)

var pcSelNames = [...]string{"x", "inc", "br", "jump", "jr", "reset", "exception"}

func (s PCSel) String() string { return enumName(pcSelNames[:], uint8(s)) }

// BranchCond is the comparator decision for conditional branches.
type BranchCond uint8

// Branch decision values.
const (
	BranchUnspecified BranchCond = iota
	BranchEQ                     // rs == rt
	BranchNE                     // rs != rt
	BranchLEZ                    // rs <= 0
	BranchGTZ                    // rs > 0
	BranchLTZ                    // rs < 0
	BranchGEZ                    // rs >= 0
)

var branchNames = [...]string{"x", "beq", "bneq", "blez", "bgtz", "bltz", "bgez"}

func (c BranchCond) String() string { return enumName(branchNames[:], uint8(c)) }

// ExcCode is an exception cause code. The numeric values are architecturally
// visible: they are written into the status register on exception entry.
type ExcCode uint8

// Exception codes.
const (
	ExcNone     ExcCode = 0
	ExcReserved ExcCode = 1 // illegal instruction
	ExcOverflow ExcCode = 2 // checked arithmetic overflow
	ExcSyscall  ExcCode = 3
	ExcBreak    ExcCode = 4
	ExcAddress  ExcCode = 5 // misaligned access or jump target
)

var excNames = [...]string{"none", "reserved", "overflow", "syscall", "break", "address"}

func (c ExcCode) String() string { return enumName(excNames[:], uint8(c)) }

// ASel selects ALU operand A.
type ASel uint8

// A operand select values.
const (
	AUnspecified ASel = iota
	ARs               // register rs
	A16               // constant 16 (lui shift amount)
	AShamt            // shift-amount field
)

var aSelNames = [...]string{"x", "rs", "16", "shamt"}

func (s ASel) String() string { return enumName(aSelNames[:], uint8(s)) }

// BSel selects ALU operand B.
type BSel uint8

// B operand select values.
const (
	BUnspecified BSel = iota
	BRt               // register rt
	BImm              // zero-extended immediate
	BSxtImm           // sign-extended immediate
)

var bSelNames = [...]string{"x", "rt", "imm", "sxtimm"}

func (s BSel) String() string { return enumName(bSelNames[:], uint8(s)) }

// Unit selects the functional unit inside the ALU.
type Unit uint8

// ALU unit select values.
const (
	UnitUnspecified Unit = iota
	UnitAddSub
	UnitSLT
	UnitBoolean
	UnitShifter
)

var unitNames = [...]string{"x", "addsub", "slt", "boolean", "shifter"}

func (u Unit) String() string { return enumName(unitNames[:], uint8(u)) }

// AddSubOp controls the adder.
type AddSubOp uint8

// Adder control values.
const (
	AddSubUnspecified AddSubOp = iota
	AddSubAdd
	AddSubSub
)

var addSubNames = [...]string{"x", "add", "sub"}

func (o AddSubOp) String() string { return enumName(addSubNames[:], uint8(o)) }

// SLTOp controls the set-less-than comparator.
type SLTOp uint8

// SLT control values.
const (
	SLTUnspecified SLTOp = iota
	SLTSigned
	SLTUnsigned
)

var sltNames = [...]string{"x", "slt", "sltu"}

func (o SLTOp) String() string { return enumName(sltNames[:], uint8(o)) }

// BoolOp controls the boolean unit.
type BoolOp uint8

// Boolean control values.
const (
	BoolUnspecified BoolOp = iota
	BoolAnd
	BoolOr
	BoolXor
	BoolNor
)

var boolNames = [...]string{"x", "and", "or", "xor", "nor"}

func (o BoolOp) String() string { return enumName(boolNames[:], uint8(o)) }

// ShiftOp controls the shifter.
type ShiftOp uint8

// Shifter control values.
const (
	ShiftUnspecified ShiftOp = iota
	ShiftLL                  // logical left
	ShiftLR                  // logical right
	ShiftAR                  // arithmetic right
)

var shiftNames = [...]string{"x", "ll", "lr", "ar"}

func (o ShiftOp) String() string { return enumName(shiftNames[:], uint8(o)) }

// CheckV requests a trap on signed arithmetic overflow.
type CheckV uint8

// Overflow check values.
const (
	CheckUnspecified CheckV = iota
	CheckNo
	CheckYes
)

var checkNames = [...]string{"x", "no", "yes"}

func (c CheckV) String() string { return enumName(checkNames[:], uint8(c)) }

// MulDivOp controls the multiply/divide unit.
type MulDivOp uint8

// Multiply/divide control values.
const (
	MulDivNone MulDivOp = iota
	MulDivMTLO
	MulDivMTHI
	MulDivMult
	MulDivMultU
	MulDivDiv
	MulDivDivU
)

var mulDivNames = [...]string{"none", "mtlo", "mthi", "mult", "multu", "div", "divu"}

func (o MulDivOp) String() string { return enumName(mulDivNames[:], uint8(o)) }

// WASel selects the writeback register address.
type WASel uint8

// Writeback address values. WANone is the hardware's "write register 0".
const (
	WAUnspecified WASel = iota
	WARt
	WARd
	WA31
	WANone
)

var waNames = [...]string{"x", "rt", "rd", "31", "0"}

func (s WASel) String() string { return enumName(waNames[:], uint8(s)) }

// WBSel selects the writeback data source.
type WBSel uint8

// Writeback data values.
const (
	WBUnspecified WBSel = iota
	WBPCInc             // return address
	WBALU               // ALU result
	WBMemory            // memory load data
	WBCoproc            // HI, LO or a coprocessor 0 register, see CPSel
)

var wbNames = [...]string{"x", "pcinc", "alu", "mdin", "cpin"}

func (s WBSel) String() string { return enumName(wbNames[:], uint8(s)) }

// CPSel selects which coprocessor-side value WBCoproc writes back.
type CPSel uint8

// Coprocessor data select values.
const (
	CPSelUnspecified CPSel = iota
	CPSelLO
	CPSelHI
	CPSelCP0
)

var cpSelNames = [...]string{"x", "lo", "hi", "cpin"}

func (s CPSel) String() string { return enumName(cpSelNames[:], uint8(s)) }

// CP0Op is the coprocessor 0 operation.
type CP0Op uint8

// Coprocessor 0 operations.
const (
	CP0None CP0Op = iota
	CP0MTC0
	CP0RFE
)

var cp0OpNames = [...]string{"none", "mtc0", "rfe"}

func (o CP0Op) String() string { return enumName(cp0OpNames[:], uint8(o)) }

// CP0Reg is a coprocessor 0 register number.
type CP0Reg uint8

// Coprocessor 0 register numbers.
const (
	CP0RegStatus   CP0Reg = 0
	CP0RegEPC      CP0Reg = 1
	CP0RegCycleLo  CP0Reg = 2
	CP0RegCycleHi  CP0Reg = 3
	CP0RegBadVAddr CP0Reg = 8
)

func (r CP0Reg) String() string {
	switch r {
	case CP0RegStatus:
		return "status"
	case CP0RegEPC:
		return "epc"
	case CP0RegCycleLo:
		return "cyclelo"
	case CP0RegCycleHi:
		return "cyclehi"
	case CP0RegBadVAddr:
		return "badvaddr"
	default:
		return fmt.Sprintf("cp0r%d", uint8(r))
	}
}

// MemOp is the data memory operation.
type MemOp uint8

// Memory operations.
const (
	MemNone MemOp = iota
	MemRead
	MemWrite
)

var memOpNames = [...]string{"none", "read", "write"}

func (o MemOp) String() string { return enumName(memOpNames[:], uint8(o)) }

// MemSize is the data memory access size.
type MemSize uint8

// Memory data sizes. MemSizePartial is used by lwl/lwr/swl/swr.
const (
	MemSizeUnspecified MemSize = iota
	MemSizeByte
	MemSizeHalf
	MemSizeWord
	MemSizePartial
)

var memSizeNames = [...]string{"x", "b", "h", "w", "lwx"}

func (s MemSize) String() string { return enumName(memSizeNames[:], uint8(s)) }

// Bytes returns the access width in bytes, 4 for partial-word accesses.
func (s MemSize) Bytes() uint32 {
	switch s {
	case MemSizeByte:
		return 1
	case MemSizeHalf:
		return 2
	case MemSizeWord, MemSizePartial:
		return 4
	default:
		return 0
	}
}

// MemSign selects load sign extension.
type MemSign uint8

// Memory sign extension values.
const (
	MemSignUnspecified MemSign = iota
	MemUnsigned
	MemSigned
)

var memSignNames = [...]string{"x", "unsigned", "signed"}

func (s MemSign) String() string { return enumName(memSignNames[:], uint8(s)) }

// MemLeft selects the left or right variant of a partial-word access.
type MemLeft uint8

// Partial-word direction values.
const (
	MemLeftUnspecified MemLeft = iota
	MemRight
	MemLeftSide
)

var memLeftNames = [...]string{"x", "right", "left"}

func (l MemLeft) String() string { return enumName(memLeftNames[:], uint8(l)) }

// ControlSignals is the full set of datapath selectors for one instruction.
type ControlSignals struct {
	PC     PCSel
	Branch BranchCond

	A      ASel
	B      BSel
	Unit   Unit
	AddSub AddSubOp
	SLT    SLTOp
	Bool   BoolOp
	Shift  ShiftOp

	CheckOverflow CheckV
	MulDiv        MulDivOp

	WA    WASel
	WB    WBSel
	CPSel CPSel
	CP0   CP0Op

	Mem     MemOp
	MemSize MemSize
	MemSign MemSign
	MemLeft MemLeft

	Exc ExcCode
}

// WritesRegister reports whether the signals commit a general register.
func (c ControlSignals) WritesRegister() bool {
	return c.WA == WARt || c.WA == WARd || c.WA == WA31
}

// IsControlTransfer reports whether the instruction can redirect the PC.
func (c ControlSignals) IsControlTransfer() bool {
	return c.PC == PCBranch || c.PC == PCJump || c.PC == PCJumpReg
}

func enumName(names []string, v uint8) string {
	if int(v) < len(names) {
		return names[v]
	}
	return fmt.Sprintf("?(%d)", v)
}
