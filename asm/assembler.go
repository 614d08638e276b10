// Package asm is a two-pass assembler for the MIPS-I instruction set.
//
// Source is line oriented. "#" starts a comment and ";" separates statements
// on one line. A statement is any number of labels followed by an
// instruction or directive:
//
//	loop:   addiu $t0, $t0, -1
//	        bnez  $t0, loop; nop
//	1:      b 1b
//
// Numeric labels may be defined many times and are referenced as "1b" (the
// closest definition at or before the statement) or "1f" (the next one
// after it). Values are numbers, character literals, labels, .equ names or
// $(...) expressions evaluated with Starlark, which see every label and
// equate as a predeclared integer.
//
// Directives: .org, .word, .space, .equ. The assembler never fills branch
// delay slots.
package asm

import (
	"fmt"
	"maps"
	"regexp"
	"strings"
)

// Program is the output of the assembler.
type Program struct {
	// Origin is the address of Words[0].
	Origin uint32
	// Words is the assembled image.
	Words []uint32
	// Labels maps every named label to its address.
	Labels map[string]uint32
}

// Assembler holds predefined equates. The zero value is ready to use.
type Assembler struct {
	predefine map[string]int64
}

// Predefine defines an equate visible to every program this assembler
// builds.
func (a *Assembler) Predefine(name string, value int64) {
	if a.predefine == nil {
		a.predefine = make(map[string]int64)
	}
	a.predefine[name] = value
}

// Assemble assembles src with its first word at origin.
func Assemble(src string, origin uint32) ([]uint32, map[string]uint32, error) {
	prog, err := new(Assembler).Assemble(src, origin)
	if err != nil {
		return nil, nil, err
	}
	return prog.Words, prog.Labels, nil
}

// MustAssemble is like Assemble but panics on error. It is meant for
// programs embedded in Go source.
func MustAssemble(src string, origin uint32) []uint32 {
	words, _, err := Assemble(src, origin)
	if err != nil {
		panic(err)
	}
	return words
}

// Assemble assembles src with its first word at origin.
func (a *Assembler) Assemble(src string, origin uint32) (*Program, error) {
	if origin&3 != 0 {
		return nil, fmt.Errorf("origin 0x%08x: %w", origin, ErrMisaligned)
	}

	stmts := parse(src)

	s := &assembly{
		origin:  origin,
		equates: maps.Clone(a.predefine),
		labels:  make(map[string]uint32),
		locals:  make(map[string][]uint32),
	}
	if s.equates == nil {
		s.equates = make(map[string]int64)
	}

	if err := s.layout(stmts); err != nil {
		return nil, err
	}

	s.final = true

	words, err := s.emit(stmts)
	if err != nil {
		return nil, err
	}

	return &Program{Origin: origin, Words: words, Labels: s.labels}, nil
}

// statement is one label/instruction unit of the source.
type statement struct {
	lineNo int
	text   string
	labels []string
	op     string
	args   []string

	addr uint32
	size uint32

	// localSeen counts the numeric label definitions at or before this
	// statement, including its own labels.
	localSeen map[string]int
}

var labelRe = regexp.MustCompile(`^([A-Za-z_.][A-Za-z0-9_.]*|[0-9]+):\s*`)

func parse(src string) []*statement {
	var stmts []*statement

	for i, line := range strings.Split(src, "\n") {
		for _, text := range splitStatements(line) {
			st := &statement{lineNo: i + 1, text: text}

			rest := text
			for {
				m := labelRe.FindStringSubmatch(rest)
				if m == nil {
					break
				}
				st.labels = append(st.labels, m[1])
				rest = rest[len(m[0]):]
			}

			rest = strings.TrimSpace(rest)
			if rest != "" {
				op, args := rest, ""
				if j := strings.IndexAny(rest, " \t"); j >= 0 {
					op, args = rest[:j], rest[j+1:]
				}
				st.op = strings.ToLower(op)
				st.args = splitOperands(args)
			}

			if st.op == "" && len(st.labels) == 0 {
				continue
			}

			stmts = append(stmts, st)
		}
	}

	return stmts
}

// splitStatements drops the comment and splits line on ";" outside quotes
// and parentheses.
func splitStatements(line string) []string {
	var (
		out   []string
		depth int
		quote bool
		start int
	)

	push := func(end int) {
		if s := strings.TrimSpace(line[start:end]); s != "" {
			out = append(out, s)
		}
	}

	for i := 0; i < len(line); i++ {
		c := line[i]
		switch {
		case quote:
			if c == '\\' {
				i++
			} else if c == '\'' {
				quote = false
			}
		case c == '\'':
			quote = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == '#' && depth <= 0:
			push(i)
			return out
		case c == ';' && depth <= 0:
			push(i)
			start = i + 1
		}
	}

	push(len(line))
	return out
}

// splitOperands splits on commas outside quotes and parentheses.
func splitOperands(s string) []string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	var (
		out   []string
		depth int
		quote bool
		start int
	)

	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case quote:
			if c == '\\' {
				i++
			} else if c == '\'' {
				quote = false
			}
		case c == '\'':
			quote = true
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			out = append(out, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}

	return append(out, strings.TrimSpace(s[start:]))
}

// assembly is the state shared by both passes.
type assembly struct {
	origin  uint32
	equates map[string]int64
	labels  map[string]uint32
	locals  map[string][]uint32

	// final is set for the second pass, when every label is known.
	final bool
}

func wrap(st *statement, err error) error {
	return &SyntaxError{Line: st.lineNo, Text: st.text, Err: err}
}

// layout is the first pass: it assigns addresses and sizes, defines labels
// and evaluates equates.
func (s *assembly) layout(stmts []*statement) error {
	loc := s.origin
	seen := make(map[string]int)

	for _, st := range stmts {
		st.addr = loc

		for _, l := range st.labels {
			if isNumeric(l) {
				s.locals[l] = append(s.locals[l], loc)
				seen[l]++
				continue
			}

			if _, dup := s.labels[l]; dup {
				return wrap(st, fmt.Errorf("%w: %s", ErrLabelDuplicate, l))
			}
			if _, dup := s.equates[l]; dup {
				return wrap(st, fmt.Errorf("%w: %s", ErrLabelDuplicate, l))
			}
			s.labels[l] = loc
		}

		st.localSeen = maps.Clone(seen)

		size, err := s.sizeOf(st)
		if err != nil {
			return wrap(st, err)
		}

		st.size = size
		loc += size
	}

	return nil
}

func (s *assembly) sizeOf(st *statement) (uint32, error) {
	switch st.op {
	case "":
		return 0, nil
	case ".org":
		if len(st.args) != 1 {
			return 0, ErrOperandCount
		}
		v, err := s.value(st.args[0], st)
		if err != nil {
			return 0, err
		}
		if v&3 != 0 {
			return 0, ErrMisaligned
		}
		if v < int64(st.addr) || v > 0xFFFFFFFF {
			return 0, ErrOrgBackwards
		}
		return uint32(v) - st.addr, nil
	case ".space":
		if len(st.args) != 1 {
			return 0, ErrOperandCount
		}
		v, err := s.value(st.args[0], st)
		if err != nil {
			return 0, err
		}
		if v < 0 || v > 0x10000000 {
			return 0, ErrValueRange
		}
		return (uint32(v) + 3) &^ 3, nil
	case ".word":
		if len(st.args) == 0 {
			return 0, ErrOperandCount
		}
		return 4 * uint32(len(st.args)), nil
	case ".equ":
		return 0, s.defineEquate(st)
	case ".set", ".text", ".globl", ".global":
		return 0, nil
	case "la":
		return 8, nil
	case "li":
		if len(st.args) != 2 {
			return 0, ErrOperandCount
		}
		// Forward references cost two words.
		if v, err := s.value(st.args[1], st); err == nil && liSingle(v) {
			return 4, nil
		}
		return 8, nil
	}

	if strings.HasPrefix(st.op, ".") {
		return 0, fmt.Errorf("%w: %s", ErrDirectiveUnknown, st.op)
	}

	if strings.HasSuffix(st.op, ":") {
		return 0, fmt.Errorf("%w: %s", ErrLabelInvalid, st.op)
	}

	return 4, nil
}

func (s *assembly) defineEquate(st *statement) error {
	args := st.args
	if len(args) == 1 {
		// ".equ NAME VALUE" without a comma
		name, val, ok := strings.Cut(args[0], " ")
		if !ok {
			return ErrEquateSyntax
		}
		args = []string{name, strings.TrimSpace(val)}
	}

	if len(args) != 2 || !identRe.MatchString(args[0]) {
		return ErrEquateSyntax
	}

	name := args[0]
	if _, dup := s.equates[name]; dup {
		return fmt.Errorf("%w: %s", ErrEquateDuplicate, name)
	}
	if _, dup := s.labels[name]; dup {
		return fmt.Errorf("%w: %s", ErrEquateDuplicate, name)
	}

	v, err := s.value(args[1], st)
	if err != nil {
		return err
	}

	s.equates[name] = v
	return nil
}

// emit is the second pass.
func (s *assembly) emit(stmts []*statement) ([]uint32, error) {
	var words []uint32

	for _, st := range stmts {
		var (
			out []uint32
			err error
		)

		switch st.op {
		case "", ".equ", ".set", ".text", ".globl", ".global":
		case ".org", ".space":
			out = make([]uint32, st.size/4)
		case ".word":
			out, err = s.emitWords(st)
		default:
			out, err = s.encode(st)
		}

		if err != nil {
			return nil, wrap(st, err)
		}

		if uint32(len(out))*4 != st.size {
			return nil, wrap(st, fmt.Errorf("internal size mismatch: %d != %d", len(out)*4, st.size))
		}

		words = append(words, out...)
	}

	return words, nil
}

func (s *assembly) emitWords(st *statement) ([]uint32, error) {
	out := make([]uint32, 0, len(st.args))
	for _, arg := range st.args {
		v, err := s.value(arg, st)
		if err != nil {
			return nil, err
		}
		if v < -0x80000000 || v > 0xFFFFFFFF {
			return nil, fmt.Errorf("%w: %s", ErrValueRange, arg)
		}
		out = append(out, uint32(v))
	}
	return out, nil
}

func isNumeric(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return s != ""
}

// liSingle reports whether li can load v with one instruction.
func liSingle(v int64) bool {
	return fitsSigned16(v) || (v >= 0 && v <= 0xFFFF) ||
		(v >= -0x80000000 && v <= 0xFFFFFFFF && v&0xFFFF == 0)
}

func fitsSigned16(v int64) bool {
	return v >= -0x8000 && v <= 0x7FFF
}
