package insts

// Instruction represents a decoded MIPS instruction.
type Instruction struct {
	Op     Op     // Operation
	Format Format // Encoding class

	Word uint32 // Raw instruction word

	Rs    uint8 // bits 25:21
	Rt    uint8 // bits 20:16
	Rd    uint8 // bits 15:11
	Shamt uint8 // bits 10:6
	Funct uint8 // bits 5:0

	Imm    uint16 // bits 15:0, not extended
	Target uint32 // bits 25:0
}

// SignExtImm returns the immediate sign-extended to 32 bits.
func (i *Instruction) SignExtImm() uint32 {
	return uint32(int32(int16(i.Imm)))
}

// ZeroExtImm returns the immediate zero-extended to 32 bits.
func (i *Instruction) ZeroExtImm() uint32 {
	return uint32(i.Imm)
}

// BranchOffset returns the signed byte offset of a conditional branch,
// relative to the address of the delay slot.
func (i *Instruction) BranchOffset() int32 {
	return int32(int16(i.Imm)) << 2
}

// JumpTarget returns the destination of a j/jal located at pc. The upper four
// bits come from the address of the delay slot.
func (i *Instruction) JumpTarget(pc uint32) uint32 {
	return ((pc + 4) & 0xF0000000) | (i.Target << 2)
}

// Decode lookup tables, indexed by the field that selects the operation
// within each encoding class.
var (
	primaryTable [64]Op
	specialTable [64]Op
	regImmTable  [32]Op
)

func buildDecodeTables() {
	for i := range opSpecs {
		s := &opSpecs[i]
		switch s.Format {
		case FormatR:
			specialTable[s.Funct] = s.Op
		case FormatRegImm:
			regImmTable[s.RegImm] = s.Op
		case FormatI, FormatJ:
			primaryTable[s.Opcode] = s.Op
		}
	}
}

// Decoder decodes MIPS machine code into instructions and control signals.
type Decoder struct{}

// NewDecoder creates a new MIPS instruction decoder.
func NewDecoder() *Decoder {
	return &Decoder{}
}

// Decode decodes a 32-bit instruction word. Unknown encodings decode to
// OpReserved with control signals that request an illegal-instruction
// exception.
func (d *Decoder) Decode(word uint32) (*Instruction, ControlSignals) {
	inst := &Instruction{
		Word:   word,
		Rs:     uint8((word >> 21) & 0x1F),
		Rt:     uint8((word >> 16) & 0x1F),
		Rd:     uint8((word >> 11) & 0x1F),
		Shamt:  uint8((word >> 6) & 0x1F),
		Funct:  uint8(word & 0x3F),
		Imm:    uint16(word & 0xFFFF),
		Target: word & 0x03FFFFFF,
	}

	opcode := word >> 26

	switch opcode {
	case OpcodeSpecial:
		inst.Format = FormatR
		inst.Op = specialTable[inst.Funct]
	case OpcodeRegImm:
		inst.Format = FormatRegImm
		inst.Op = regImmTable[inst.Rt]
	case OpcodeCop0:
		inst.Format = FormatCop0
		inst.Op = d.decodeCop0(inst)
	default:
		inst.Op = primaryTable[opcode]
		if inst.Op != OpReserved {
			inst.Format = inst.Op.Spec().Format
		}
	}

	if inst.Op == OpReserved {
		inst.Format = FormatUnknown
		return inst, reservedControl
	}

	return inst, inst.Op.Spec().Control
}

// decodeCop0 selects the coprocessor 0 operation from the rs field.
func (d *Decoder) decodeCop0(inst *Instruction) Op {
	switch inst.Rs {
	case Cop0MF:
		return OpMFC0
	case Cop0MT:
		return OpMTC0
	case Cop0CO:
		if inst.Funct == 0x10 {
			return OpRFE
		}
	}
	return OpReserved
}
