package insts

// Op represents a MIPS operation.
type Op uint8

// MIPS operations.
const (
	OpReserved Op = iota

	// R-type
	OpSLL
	OpSRL
	OpSRA
	OpSLLV
	OpSRLV
	OpSRAV
	OpJR
	OpJALR
	OpSYSCALL
	OpBREAK
	OpMFHI
	OpMTHI
	OpMFLO
	OpMTLO
	OpMULT
	OpMULTU
	OpDIV
	OpDIVU
	OpADD
	OpADDU
	OpSUB
	OpSUBU
	OpAND
	OpOR
	OpXOR
	OpNOR
	OpSLT
	OpSLTU

	// REGIMM
	OpBLTZ
	OpBGEZ
	OpBLTZAL
	OpBGEZAL

	// J-type
	OpJ
	OpJAL

	// I-type
	OpBEQ
	OpBNE
	OpBLEZ
	OpBGTZ
	OpADDI
	OpADDIU
	OpSLTI
	OpSLTIU
	OpANDI
	OpORI
	OpXORI
	OpLUI
	OpLB
	OpLH
	OpLWL
	OpLW
	OpLBU
	OpLHU
	OpLWR
	OpSB
	OpSH
	OpSWL
	OpSW
	OpSWR

	// COP0
	OpMFC0
	OpMTC0
	OpRFE

	numOps
)

// Format represents an instruction encoding class.
type Format uint8

// Instruction formats.
const (
	FormatUnknown Format = iota
	FormatR              // opcode 0, keyed on funct
	FormatI              // immediate
	FormatJ              // 26-bit jump target
	FormatRegImm         // opcode 1, keyed on rt
	FormatCop0           // opcode 16, keyed on rs
)

// Syntax describes the assembly operand shape of an operation.
type Syntax uint8

// Operand shapes.
const (
	SyntaxNone       Syntax = iota // syscall, break, rfe
	SyntaxRdRsRt                   // addu $rd, $rs, $rt
	SyntaxRdRtShamt                // sll $rd, $rt, shamt
	SyntaxRdRtRs                   // sllv $rd, $rt, $rs
	SyntaxRs                       // jr $rs
	SyntaxRdRs                     // jalr $rd, $rs
	SyntaxRd                       // mfhi $rd
	SyntaxRsRt                     // mult $rs, $rt
	SyntaxRtRsImm                  // addiu $rt, $rs, imm
	SyntaxRtImm                    // lui $rt, imm
	SyntaxRsRtOffset               // beq $rs, $rt, label
	SyntaxRsOffset                 // bgez $rs, label
	SyntaxTarget                   // j label
	SyntaxRtMem                    // lw $rt, offset($rs)
	SyntaxRtRdCP0                  // mtc0 $rt, $rd
)

// Primary opcode values with special decoding.
const (
	OpcodeSpecial = 0x00
	OpcodeRegImm  = 0x01
	OpcodeCop0    = 0x10
)

// COP0 rs-field values.
const (
	Cop0MF = 0x00
	Cop0MT = 0x04
	Cop0CO = 0x10
)

// OpSpec is the encoding and control record of one operation.
type OpSpec struct {
	Op     Op
	Name   string
	Format Format
	Opcode uint8 // bits 31:26
	Funct  uint8 // bits 5:0 for FormatR and rfe
	RegImm uint8 // rt field for FormatRegImm
	CopRs  uint8 // rs field for FormatCop0
	Syntax Syntax

	Control ControlSignals
}

var opSpecs = [...]OpSpec{
	{Op: OpSLL, Name: "sll", Format: FormatR, Funct: 0x00, Syntax: SyntaxRdRtShamt, Control: shifter(AShamt, BRt, WARd, ShiftLL)},
	{Op: OpSRL, Name: "srl", Format: FormatR, Funct: 0x02, Syntax: SyntaxRdRtShamt, Control: shifter(AShamt, BRt, WARd, ShiftLR)},
	{Op: OpSRA, Name: "sra", Format: FormatR, Funct: 0x03, Syntax: SyntaxRdRtShamt, Control: shifter(AShamt, BRt, WARd, ShiftAR)},
	{Op: OpSLLV, Name: "sllv", Format: FormatR, Funct: 0x04, Syntax: SyntaxRdRtRs, Control: shifter(ARs, BRt, WARd, ShiftLL)},
	{Op: OpSRLV, Name: "srlv", Format: FormatR, Funct: 0x06, Syntax: SyntaxRdRtRs, Control: shifter(ARs, BRt, WARd, ShiftLR)},
	{Op: OpSRAV, Name: "srav", Format: FormatR, Funct: 0x07, Syntax: SyntaxRdRtRs, Control: shifter(ARs, BRt, WARd, ShiftAR)},
	{Op: OpJR, Name: "jr", Format: FormatR, Funct: 0x08, Syntax: SyntaxRs, Control: jumpReg(WANone)},
	{Op: OpJALR, Name: "jalr", Format: FormatR, Funct: 0x09, Syntax: SyntaxRdRs, Control: jumpReg(WARd)},
	{Op: OpSYSCALL, Name: "syscall", Format: FormatR, Funct: 0x0C, Syntax: SyntaxNone, Control: trap(ExcSyscall)},
	{Op: OpBREAK, Name: "break", Format: FormatR, Funct: 0x0D, Syntax: SyntaxNone, Control: trap(ExcBreak)},
	{Op: OpMFHI, Name: "mfhi", Format: FormatR, Funct: 0x10, Syntax: SyntaxRd, Control: moveFrom(WARd, CPSelHI)},
	{Op: OpMTHI, Name: "mthi", Format: FormatR, Funct: 0x11, Syntax: SyntaxRs, Control: mulDiv(MulDivMTHI)},
	{Op: OpMFLO, Name: "mflo", Format: FormatR, Funct: 0x12, Syntax: SyntaxRd, Control: moveFrom(WARd, CPSelLO)},
	{Op: OpMTLO, Name: "mtlo", Format: FormatR, Funct: 0x13, Syntax: SyntaxRs, Control: mulDiv(MulDivMTLO)},
	{Op: OpMULT, Name: "mult", Format: FormatR, Funct: 0x18, Syntax: SyntaxRsRt, Control: mulDiv(MulDivMult)},
	{Op: OpMULTU, Name: "multu", Format: FormatR, Funct: 0x19, Syntax: SyntaxRsRt, Control: mulDiv(MulDivMultU)},
	{Op: OpDIV, Name: "div", Format: FormatR, Funct: 0x1A, Syntax: SyntaxRsRt, Control: mulDiv(MulDivDiv)},
	{Op: OpDIVU, Name: "divu", Format: FormatR, Funct: 0x1B, Syntax: SyntaxRsRt, Control: mulDiv(MulDivDivU)},
	{Op: OpADD, Name: "add", Format: FormatR, Funct: 0x20, Syntax: SyntaxRdRsRt, Control: addSub(BRt, WARd, AddSubAdd, CheckYes)},
	{Op: OpADDU, Name: "addu", Format: FormatR, Funct: 0x21, Syntax: SyntaxRdRsRt, Control: addSub(BRt, WARd, AddSubAdd, CheckNo)},
	{Op: OpSUB, Name: "sub", Format: FormatR, Funct: 0x22, Syntax: SyntaxRdRsRt, Control: addSub(BRt, WARd, AddSubSub, CheckYes)},
	{Op: OpSUBU, Name: "subu", Format: FormatR, Funct: 0x23, Syntax: SyntaxRdRsRt, Control: addSub(BRt, WARd, AddSubSub, CheckNo)},
	{Op: OpAND, Name: "and", Format: FormatR, Funct: 0x24, Syntax: SyntaxRdRsRt, Control: boolean(BRt, WARd, BoolAnd)},
	{Op: OpOR, Name: "or", Format: FormatR, Funct: 0x25, Syntax: SyntaxRdRsRt, Control: boolean(BRt, WARd, BoolOr)},
	{Op: OpXOR, Name: "xor", Format: FormatR, Funct: 0x26, Syntax: SyntaxRdRsRt, Control: boolean(BRt, WARd, BoolXor)},
	{Op: OpNOR, Name: "nor", Format: FormatR, Funct: 0x27, Syntax: SyntaxRdRsRt, Control: boolean(BRt, WARd, BoolNor)},
	{Op: OpSLT, Name: "slt", Format: FormatR, Funct: 0x2A, Syntax: SyntaxRdRsRt, Control: setLess(BRt, WARd, SLTSigned)},
	{Op: OpSLTU, Name: "sltu", Format: FormatR, Funct: 0x2B, Syntax: SyntaxRdRsRt, Control: setLess(BRt, WARd, SLTUnsigned)},

	{Op: OpBLTZ, Name: "bltz", Format: FormatRegImm, Opcode: OpcodeRegImm, RegImm: 0x00, Syntax: SyntaxRsOffset, Control: branch(BranchLTZ, WANone)},
	{Op: OpBGEZ, Name: "bgez", Format: FormatRegImm, Opcode: OpcodeRegImm, RegImm: 0x01, Syntax: SyntaxRsOffset, Control: branch(BranchGEZ, WANone)},
	{Op: OpBLTZAL, Name: "bltzal", Format: FormatRegImm, Opcode: OpcodeRegImm, RegImm: 0x10, Syntax: SyntaxRsOffset, Control: branch(BranchLTZ, WA31)},
	{Op: OpBGEZAL, Name: "bgezal", Format: FormatRegImm, Opcode: OpcodeRegImm, RegImm: 0x11, Syntax: SyntaxRsOffset, Control: branch(BranchGEZ, WA31)},

	{Op: OpJ, Name: "j", Format: FormatJ, Opcode: 0x02, Syntax: SyntaxTarget, Control: jump(WANone)},
	{Op: OpJAL, Name: "jal", Format: FormatJ, Opcode: 0x03, Syntax: SyntaxTarget, Control: jump(WA31)},

	{Op: OpBEQ, Name: "beq", Format: FormatI, Opcode: 0x04, Syntax: SyntaxRsRtOffset, Control: branch(BranchEQ, WANone)},
	{Op: OpBNE, Name: "bne", Format: FormatI, Opcode: 0x05, Syntax: SyntaxRsRtOffset, Control: branch(BranchNE, WANone)},
	{Op: OpBLEZ, Name: "blez", Format: FormatI, Opcode: 0x06, Syntax: SyntaxRsOffset, Control: branch(BranchLEZ, WANone)},
	{Op: OpBGTZ, Name: "bgtz", Format: FormatI, Opcode: 0x07, Syntax: SyntaxRsOffset, Control: branch(BranchGTZ, WANone)},
	{Op: OpADDI, Name: "addi", Format: FormatI, Opcode: 0x08, Syntax: SyntaxRtRsImm, Control: addSub(BSxtImm, WARt, AddSubAdd, CheckYes)},
	{Op: OpADDIU, Name: "addiu", Format: FormatI, Opcode: 0x09, Syntax: SyntaxRtRsImm, Control: addSub(BSxtImm, WARt, AddSubAdd, CheckNo)},
	{Op: OpSLTI, Name: "slti", Format: FormatI, Opcode: 0x0A, Syntax: SyntaxRtRsImm, Control: setLess(BSxtImm, WARt, SLTSigned)},
	{Op: OpSLTIU, Name: "sltiu", Format: FormatI, Opcode: 0x0B, Syntax: SyntaxRtRsImm, Control: setLess(BSxtImm, WARt, SLTUnsigned)},
	{Op: OpANDI, Name: "andi", Format: FormatI, Opcode: 0x0C, Syntax: SyntaxRtRsImm, Control: boolean(BImm, WARt, BoolAnd)},
	{Op: OpORI, Name: "ori", Format: FormatI, Opcode: 0x0D, Syntax: SyntaxRtRsImm, Control: boolean(BImm, WARt, BoolOr)},
	{Op: OpXORI, Name: "xori", Format: FormatI, Opcode: 0x0E, Syntax: SyntaxRtRsImm, Control: boolean(BImm, WARt, BoolXor)},
	{Op: OpLUI, Name: "lui", Format: FormatI, Opcode: 0x0F, Syntax: SyntaxRtImm, Control: shifter(A16, BImm, WARt, ShiftLL)},

	{Op: OpLB, Name: "lb", Format: FormatI, Opcode: 0x20, Syntax: SyntaxRtMem, Control: load(MemSizeByte, MemSigned)},
	{Op: OpLH, Name: "lh", Format: FormatI, Opcode: 0x21, Syntax: SyntaxRtMem, Control: load(MemSizeHalf, MemSigned)},
	{Op: OpLWL, Name: "lwl", Format: FormatI, Opcode: 0x22, Syntax: SyntaxRtMem, Control: loadPartial(MemLeftSide)},
	{Op: OpLW, Name: "lw", Format: FormatI, Opcode: 0x23, Syntax: SyntaxRtMem, Control: load(MemSizeWord, MemSigned)},
	{Op: OpLBU, Name: "lbu", Format: FormatI, Opcode: 0x24, Syntax: SyntaxRtMem, Control: load(MemSizeByte, MemUnsigned)},
	{Op: OpLHU, Name: "lhu", Format: FormatI, Opcode: 0x25, Syntax: SyntaxRtMem, Control: load(MemSizeHalf, MemUnsigned)},
	{Op: OpLWR, Name: "lwr", Format: FormatI, Opcode: 0x26, Syntax: SyntaxRtMem, Control: loadPartial(MemRight)},
	{Op: OpSB, Name: "sb", Format: FormatI, Opcode: 0x28, Syntax: SyntaxRtMem, Control: store(MemSizeByte, MemLeftUnspecified)},
	{Op: OpSH, Name: "sh", Format: FormatI, Opcode: 0x29, Syntax: SyntaxRtMem, Control: store(MemSizeHalf, MemLeftUnspecified)},
	{Op: OpSWL, Name: "swl", Format: FormatI, Opcode: 0x2A, Syntax: SyntaxRtMem, Control: store(MemSizePartial, MemLeftSide)},
	{Op: OpSW, Name: "sw", Format: FormatI, Opcode: 0x2B, Syntax: SyntaxRtMem, Control: store(MemSizeWord, MemLeftUnspecified)},
	{Op: OpSWR, Name: "swr", Format: FormatI, Opcode: 0x2E, Syntax: SyntaxRtMem, Control: store(MemSizePartial, MemRight)},

	{Op: OpMFC0, Name: "mfc0", Format: FormatCop0, Opcode: OpcodeCop0, CopRs: Cop0MF, Syntax: SyntaxRtRdCP0, Control: moveFrom(WARt, CPSelCP0)},
	{Op: OpMTC0, Name: "mtc0", Format: FormatCop0, Opcode: OpcodeCop0, CopRs: Cop0MT, Syntax: SyntaxRtRdCP0, Control: ControlSignals{PC: PCInc, B: BRt, WA: WANone, CP0: CP0MTC0}},
	{Op: OpRFE, Name: "rfe", Format: FormatCop0, Opcode: OpcodeCop0, CopRs: Cop0CO, Funct: 0x10, Syntax: SyntaxNone, Control: ControlSignals{PC: PCInc, WA: WANone, CP0: CP0RFE}},
}

// reservedControl is the outcome of an unrecognized instruction word.
var reservedControl = ControlSignals{PC: PCException, Exc: ExcReserved}

var (
	specByOp   [numOps]*OpSpec
	specByName = make(map[string]*OpSpec, len(opSpecs))
)

func init() {
	for i := range opSpecs {
		s := &opSpecs[i]
		specByOp[s.Op] = s
		specByName[s.Name] = s
	}
	buildDecodeTables()
}

// Spec returns the encoding record of an operation, or nil for OpReserved.
func (op Op) Spec() *OpSpec {
	if op >= numOps {
		return nil
	}
	return specByOp[op]
}

// String returns the assembler mnemonic of the operation.
func (op Op) String() string {
	if s := op.Spec(); s != nil {
		return s.Name
	}
	return "reserved"
}

// Lookup finds an operation by mnemonic.
func Lookup(name string) (*OpSpec, bool) {
	s, ok := specByName[name]
	return s, ok
}

// Ops returns every defined operation in table order.
func Ops() []Op {
	ops := make([]Op, 0, len(opSpecs))
	for i := range opSpecs {
		ops = append(ops, opSpecs[i].Op)
	}
	return ops
}

func addSub(b BSel, wa WASel, op AddSubOp, check CheckV) ControlSignals {
	return ControlSignals{
		PC: PCInc, A: ARs, B: b, Unit: UnitAddSub, AddSub: op,
		CheckOverflow: check, WA: wa, WB: WBALU,
	}
}

func setLess(b BSel, wa WASel, op SLTOp) ControlSignals {
	return ControlSignals{PC: PCInc, A: ARs, B: b, Unit: UnitSLT, SLT: op, WA: wa, WB: WBALU}
}

func boolean(b BSel, wa WASel, op BoolOp) ControlSignals {
	return ControlSignals{PC: PCInc, A: ARs, B: b, Unit: UnitBoolean, Bool: op, WA: wa, WB: WBALU}
}

func shifter(a ASel, b BSel, wa WASel, op ShiftOp) ControlSignals {
	return ControlSignals{PC: PCInc, A: a, B: b, Unit: UnitShifter, Shift: op, WA: wa, WB: WBALU}
}

// Memory address generation goes through the adder without overflow checks.
func address(c ControlSignals) ControlSignals {
	c.PC = PCInc
	c.A = ARs
	c.B = BSxtImm
	c.Unit = UnitAddSub
	c.AddSub = AddSubAdd
	c.CheckOverflow = CheckNo
	return c
}

func load(size MemSize, sign MemSign) ControlSignals {
	return address(ControlSignals{WA: WARt, WB: WBMemory, Mem: MemRead, MemSize: size, MemSign: sign})
}

func loadPartial(left MemLeft) ControlSignals {
	return address(ControlSignals{WA: WARt, WB: WBMemory, Mem: MemRead, MemSize: MemSizePartial, MemLeft: left})
}

func store(size MemSize, left MemLeft) ControlSignals {
	return address(ControlSignals{WA: WANone, Mem: MemWrite, MemSize: size, MemLeft: left})
}

func branch(cond BranchCond, wa WASel) ControlSignals {
	c := ControlSignals{PC: PCBranch, Branch: cond, A: ARs, B: BRt, WA: wa}
	if wa == WA31 {
		c.WB = WBPCInc
	}
	return c
}

func jump(wa WASel) ControlSignals {
	c := ControlSignals{PC: PCJump, WA: wa}
	if wa == WA31 {
		c.WB = WBPCInc
	}
	return c
}

func jumpReg(wa WASel) ControlSignals {
	c := ControlSignals{PC: PCJumpReg, A: ARs, WA: wa}
	if wa == WARd {
		c.WB = WBPCInc
	}
	return c
}

func mulDiv(op MulDivOp) ControlSignals {
	return ControlSignals{PC: PCInc, A: ARs, B: BRt, MulDiv: op, WA: WANone}
}

func moveFrom(wa WASel, sel CPSel) ControlSignals {
	return ControlSignals{PC: PCInc, WA: wa, WB: WBCoproc, CPSel: sel}
}

func trap(exc ExcCode) ControlSignals {
	return ControlSignals{PC: PCException, WA: WANone, Exc: exc}
}
