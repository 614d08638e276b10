package insts

import "fmt"

// String disassembles the instruction in GNU assembler syntax. Branch
// offsets are printed in bytes relative to the delay slot, jump targets as
// the 28-bit region offset.
func (i *Instruction) String() string {
	if i.Word == 0 {
		return "nop"
	}

	spec := i.Op.Spec()
	if spec == nil {
		return fmt.Sprintf(".word 0x%08x", i.Word)
	}

	name := spec.Name

	switch spec.Syntax {
	case SyntaxNone:
		return name
	case SyntaxRdRsRt:
		return fmt.Sprintf("%s $%d, $%d, $%d", name, i.Rd, i.Rs, i.Rt)
	case SyntaxRdRtShamt:
		return fmt.Sprintf("%s $%d, $%d, %d", name, i.Rd, i.Rt, i.Shamt)
	case SyntaxRdRtRs:
		return fmt.Sprintf("%s $%d, $%d, $%d", name, i.Rd, i.Rt, i.Rs)
	case SyntaxRs:
		return fmt.Sprintf("%s $%d", name, i.Rs)
	case SyntaxRdRs:
		return fmt.Sprintf("%s $%d, $%d", name, i.Rd, i.Rs)
	case SyntaxRd:
		return fmt.Sprintf("%s $%d", name, i.Rd)
	case SyntaxRsRt:
		return fmt.Sprintf("%s $%d, $%d", name, i.Rs, i.Rt)
	case SyntaxRtRsImm:
		if spec.Control.B == BImm {
			return fmt.Sprintf("%s $%d, $%d, 0x%x", name, i.Rt, i.Rs, i.Imm)
		}
		return fmt.Sprintf("%s $%d, $%d, %d", name, i.Rt, i.Rs, int16(i.Imm))
	case SyntaxRtImm:
		return fmt.Sprintf("%s $%d, 0x%x", name, i.Rt, i.Imm)
	case SyntaxRsRtOffset:
		return fmt.Sprintf("%s $%d, $%d, %+d", name, i.Rs, i.Rt, i.BranchOffset())
	case SyntaxRsOffset:
		return fmt.Sprintf("%s $%d, %+d", name, i.Rs, i.BranchOffset())
	case SyntaxTarget:
		return fmt.Sprintf("%s 0x%x", name, i.Target<<2)
	case SyntaxRtMem:
		return fmt.Sprintf("%s $%d, %d($%d)", name, i.Rt, int16(i.Imm), i.Rs)
	case SyntaxRtRdCP0:
		return fmt.Sprintf("%s $%d, $%d", name, i.Rt, i.Rd)
	default:
		return fmt.Sprintf(".word 0x%08x", i.Word)
	}
}
