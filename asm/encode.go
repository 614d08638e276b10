package asm

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/sarchlab/mipsim/insts"
)

var memRe = regexp.MustCompile(`^(.*)\(\s*(\$[A-Za-z0-9]+)\s*\)$`)

// encode assembles one instruction statement, expanding pseudo-instructions.
func (s *assembly) encode(st *statement) ([]uint32, error) {
	args := st.args

	switch st.op {
	case "nop":
		if len(args) != 0 {
			return nil, ErrOperandCount
		}
		return []uint32{0}, nil
	case "move":
		if len(args) != 2 {
			return nil, ErrOperandCount
		}
		return s.encodeAs("addu", st, args[0], args[1], "$0")
	case "b":
		if len(args) != 1 {
			return nil, ErrOperandCount
		}
		return s.encodeAs("beq", st, "$0", "$0", args[0])
	case "beqz":
		if len(args) != 2 {
			return nil, ErrOperandCount
		}
		return s.encodeAs("beq", st, args[0], "$0", args[1])
	case "bnez":
		if len(args) != 2 {
			return nil, ErrOperandCount
		}
		return s.encodeAs("bne", st, args[0], "$0", args[1])
	case "li":
		return s.encodeLoadImmediate(st)
	case "la":
		return s.encodeLoadAddress(st)
	}

	spec, ok := insts.Lookup(st.op)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMnemonicUnknown, st.op)
	}

	w, err := s.encodeOp(spec, st, args)
	if err != nil {
		return nil, err
	}

	return []uint32{w}, nil
}

func (s *assembly) encodeAs(op string, st *statement, args ...string) ([]uint32, error) {
	spec, _ := insts.Lookup(op)

	w, err := s.encodeOp(spec, st, args)
	if err != nil {
		return nil, err
	}

	return []uint32{w}, nil
}

// encodeLoadImmediate expands li into one instruction when the first pass
// sized it so, otherwise into lui/ori.
func (s *assembly) encodeLoadImmediate(st *statement) ([]uint32, error) {
	if len(st.args) != 2 {
		return nil, ErrOperandCount
	}

	rt := st.args[0]
	v, err := s.value(st.args[1], st)
	if err != nil {
		return nil, err
	}

	if v < -0x80000000 || v > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: %d", ErrValueRange, v)
	}

	if st.size == 4 {
		switch {
		case fitsSigned16(v):
			return s.encodeAs("addiu", st, rt, "$0", fmt.Sprint(v))
		case v >= 0 && v <= 0xFFFF:
			return s.encodeAs("ori", st, rt, "$0", fmt.Sprint(v))
		default:
			return s.encodeAs("lui", st, rt, fmt.Sprint(uint32(v)>>16))
		}
	}

	return s.upperLower(st, rt, uint32(v))
}

func (s *assembly) encodeLoadAddress(st *statement) ([]uint32, error) {
	if len(st.args) != 2 {
		return nil, ErrOperandCount
	}

	v, err := s.value(st.args[1], st)
	if err != nil {
		return nil, err
	}

	if v < 0 || v > 0xFFFFFFFF {
		return nil, fmt.Errorf("%w: %d", ErrValueRange, v)
	}

	return s.upperLower(st, st.args[0], uint32(v))
}

func (s *assembly) upperLower(st *statement, rt string, v uint32) ([]uint32, error) {
	hi, err := s.encodeAs("lui", st, rt, fmt.Sprint(v>>16))
	if err != nil {
		return nil, err
	}

	lo, err := s.encodeAs("ori", st, rt, rt, fmt.Sprint(v&0xFFFF))
	if err != nil {
		return nil, err
	}

	return append(hi, lo...), nil
}

// opcodeBits returns the fixed fields of an operation.
func opcodeBits(spec *insts.OpSpec) uint32 {
	switch spec.Format {
	case insts.FormatR:
		return uint32(spec.Funct)
	case insts.FormatRegImm:
		return insts.OpcodeRegImm<<26 | uint32(spec.RegImm)<<16
	case insts.FormatCop0:
		return insts.OpcodeCop0<<26 | uint32(spec.CopRs)<<21 | uint32(spec.Funct)
	default:
		return uint32(spec.Opcode) << 26
	}
}

// operands collects parsed operand fields for encodeOp.
type operands struct {
	s    *assembly
	st   *statement
	args []string
	err  error
}

func (o *operands) reg(i int) uint32 {
	if o.err != nil {
		return 0
	}
	r, err := register(o.args[i])
	o.err = err
	return r
}

func (o *operands) value(i int) int64 {
	if o.err != nil {
		return 0
	}
	v, err := o.s.value(o.args[i], o.st)
	o.err = err
	return v
}

// imm16 range-checks an immediate by how the operation extends it: signed
// for sign-extended immediates, unsigned for zero-extended ones and lui.
func (o *operands) imm16(i int, signed bool) uint32 {
	v := o.value(i)
	if o.err != nil {
		return 0
	}

	if signed && !fitsSigned16(v) || !signed && (v < 0 || v > 0xFFFF) {
		o.err = fmt.Errorf("%w: %d", ErrImmediateRange, v)
		return 0
	}

	return uint32(v) & 0xFFFF
}

func (o *operands) shamt(i int) uint32 {
	v := o.value(i)
	if o.err == nil && (v < 0 || v > 31) {
		o.err = fmt.Errorf("%w: %d", ErrShiftRange, v)
	}
	return uint32(v) & 0x1F
}

// cp0Reg accepts "$n" or a plain register number.
func (o *operands) cp0Reg(i int) uint32 {
	if strings.HasPrefix(o.args[i], "$") && !strings.HasPrefix(o.args[i], "$(") {
		return o.reg(i)
	}
	v := o.value(i)
	if o.err == nil && (v < 0 || v > 31) {
		o.err = fmt.Errorf("%w: %d", ErrRegisterInvalid, v)
	}
	return uint32(v) & 0x1F
}

// branch returns the 16-bit word offset from the delay slot to the target.
func (o *operands) branch(i int) uint32 {
	v := o.value(i)
	if o.err != nil {
		return 0
	}

	if v&3 != 0 {
		o.err = fmt.Errorf("%w: 0x%x", ErrMisaligned, v)
		return 0
	}

	off := (v - int64(o.st.addr) - 4) >> 2
	if !fitsSigned16(off) {
		o.err = fmt.Errorf("%w: 0x%x", ErrBranchRange, v)
		return 0
	}

	return uint32(off) & 0xFFFF
}

func (o *operands) target(i int) uint32 {
	v := o.value(i)
	if o.err != nil {
		return 0
	}

	if v < 0 || v > 0xFFFFFFFF || v&3 != 0 {
		o.err = fmt.Errorf("%w: 0x%x", ErrMisaligned, v)
		return 0
	}

	region := (o.st.addr + 4) & 0xF0000000
	if uint32(v)&0xF0000000 != region {
		o.err = fmt.Errorf("%w: 0x%x", ErrJumpRange, v)
		return 0
	}

	return uint32(v) >> 2 & 0x3FFFFFF
}

// mem parses "offset($base)" into base and the 16-bit offset.
func (o *operands) mem(i int) (base, offset uint32) {
	m := memRe.FindStringSubmatch(o.args[i])
	if m == nil {
		o.err = fmt.Errorf("%w: %q", ErrMemoryOperand, o.args[i])
		return 0, 0
	}

	base, o.err = register(m[2])
	if o.err != nil {
		return 0, 0
	}

	if strings.TrimSpace(m[1]) == "" {
		return base, 0
	}

	v, err := o.s.value(m[1], o.st)
	if err != nil {
		o.err = err
		return 0, 0
	}
	if !fitsSigned16(v) {
		o.err = fmt.Errorf("%w: %d", ErrImmediateRange, v)
		return 0, 0
	}

	return base, uint32(v) & 0xFFFF
}

// operandCount is the fixed operand count of each syntax. jalr takes one or
// two.
var operandCount = map[insts.Syntax]int{
	insts.SyntaxNone:       0,
	insts.SyntaxRdRsRt:     3,
	insts.SyntaxRdRtShamt:  3,
	insts.SyntaxRdRtRs:     3,
	insts.SyntaxRs:         1,
	insts.SyntaxRd:         1,
	insts.SyntaxRsRt:       2,
	insts.SyntaxRtRsImm:    3,
	insts.SyntaxRtImm:      2,
	insts.SyntaxRsRtOffset: 3,
	insts.SyntaxRsOffset:   2,
	insts.SyntaxTarget:     1,
	insts.SyntaxRtMem:      2,
	insts.SyntaxRtRdCP0:    2,
}

func (s *assembly) encodeOp(spec *insts.OpSpec, st *statement, args []string) (uint32, error) {
	if n, ok := operandCount[spec.Syntax]; ok && len(args) != n {
		return 0, fmt.Errorf("%w: %s wants %d", ErrOperandCount, spec.Name, n)
	}

	o := &operands{s: s, st: st, args: args}
	w := opcodeBits(spec)

	switch spec.Syntax {
	case insts.SyntaxNone:
	case insts.SyntaxRdRsRt:
		w |= o.reg(0)<<11 | o.reg(1)<<21 | o.reg(2)<<16
	case insts.SyntaxRdRtShamt:
		w |= o.reg(0)<<11 | o.reg(1)<<16 | o.shamt(2)<<6
	case insts.SyntaxRdRtRs:
		w |= o.reg(0)<<11 | o.reg(1)<<16 | o.reg(2)<<21
	case insts.SyntaxRs:
		w |= o.reg(0) << 21
	case insts.SyntaxRdRs:
		switch len(args) {
		case 1:
			w |= 31<<11 | o.reg(0)<<21
		case 2:
			w |= o.reg(0)<<11 | o.reg(1)<<21
		default:
			return 0, fmt.Errorf("%w: %s wants 1 or 2", ErrOperandCount, spec.Name)
		}
	case insts.SyntaxRd:
		w |= o.reg(0) << 11
	case insts.SyntaxRsRt:
		w |= o.reg(0)<<21 | o.reg(1)<<16
	case insts.SyntaxRtRsImm:
		w |= o.reg(0)<<16 | o.reg(1)<<21 | o.imm16(2, spec.Control.B == insts.BSxtImm)
	case insts.SyntaxRtImm:
		w |= o.reg(0)<<16 | o.imm16(1, false)
	case insts.SyntaxRsRtOffset:
		w |= o.reg(0)<<21 | o.reg(1)<<16 | o.branch(2)
	case insts.SyntaxRsOffset:
		w |= o.reg(0)<<21 | o.branch(1)
	case insts.SyntaxTarget:
		w |= o.target(0)
	case insts.SyntaxRtMem:
		rt := o.reg(0)
		base, off := o.mem(1)
		w |= rt<<16 | base<<21 | off
	case insts.SyntaxRtRdCP0:
		w |= o.reg(0)<<16 | o.cp0Reg(1)<<11
	}

	if o.err != nil {
		return 0, o.err
	}

	return w, nil
}
