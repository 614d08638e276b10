package asm

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

var (
	identRe    = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)
	symbolRe   = regexp.MustCompile(`^[A-Za-z_.][A-Za-z0-9_.]*$`)
	localRefRe = regexp.MustCompile(`^([0-9]+)([bf])$`)
)

// value evaluates one operand to an integer.
func (s *assembly) value(text string, st *statement) (int64, error) {
	text = strings.TrimSpace(text)

	if text == "" {
		return 0, ErrValueMissing
	}

	if inner, ok := parenthesized(text); ok {
		return s.eval(inner)
	}

	if v, err := strconv.ParseInt(text, 0, 64); err == nil {
		return v, nil
	}

	if v, ok := charLiteral(text); ok {
		return v, nil
	}

	if m := localRefRe.FindStringSubmatch(text); m != nil {
		addr, err := s.localRef(m[1], m[2] == "f", st)
		return int64(addr), err
	}

	if v, ok := s.equates[text]; ok {
		return v, nil
	}

	if v, ok := s.labels[text]; ok {
		return int64(v), nil
	}

	if symbolRe.MatchString(text) {
		return 0, UndefinedSymbolError(text)
	}

	return s.eval(text)
}

// parenthesized returns the inside of "$(...)" when the whole text is one
// such expression.
func parenthesized(text string) (string, bool) {
	if !strings.HasPrefix(text, "$(") || !strings.HasSuffix(text, ")") {
		return "", false
	}

	depth := 0
	for i := 1; i < len(text); i++ {
		switch text[i] {
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 && i != len(text)-1 {
				return "", false
			}
		}
	}

	return text[2 : len(text)-1], true
}

func charLiteral(text string) (int64, bool) {
	if len(text) < 3 || text[0] != '\'' || text[len(text)-1] != '\'' {
		return 0, false
	}

	r, _, tail, err := strconv.UnquoteChar(text[1:len(text)-1], '\'')
	if err != nil || tail != "" {
		return 0, false
	}

	return int64(r), true
}

// localRef resolves "Nb" or "Nf" relative to st.
func (s *assembly) localRef(name string, forward bool, st *statement) (uint32, error) {
	defs := s.locals[name]
	i := st.localSeen[name] - 1
	if forward {
		i++
	}

	if i < 0 || i >= len(defs) {
		dir := "b"
		if forward {
			dir = "f"
		}
		return 0, fmt.Errorf("%w: %s%s", ErrLocalLabel, name, dir)
	}

	return defs[i], nil
}

// eval evaluates a Starlark expression with every equate and label
// predeclared.
func (s *assembly) eval(expr string) (int64, error) {
	env := make(starlark.StringDict, len(s.equates)+len(s.labels))
	for name, v := range s.labels {
		if identRe.MatchString(name) {
			env[name] = starlark.MakeInt64(int64(v))
		}
	}
	for name, v := range s.equates {
		env[name] = starlark.MakeInt64(v)
	}

	thread := &starlark.Thread{Name: "asm"}
	opts := syntax.FileOptions{}

	globals, err := starlark.ExecFileOptions(&opts, thread, "expr", "rc = "+expr+"\n", env)
	if err != nil {
		return 0, &ExpressionError{Expr: expr, Err: err}
	}

	rc, ok := globals["rc"].(starlark.Int)
	if !ok {
		return 0, &ExpressionError{Expr: expr, Err: ErrExpressionType}
	}

	v, ok := rc.Int64()
	if !ok {
		return 0, &ExpressionError{Expr: expr, Err: ErrValueRange}
	}

	return v, nil
}

var registerNames = map[string]uint32{
	"zero": 0, "at": 1, "v0": 2, "v1": 3,
	"a0": 4, "a1": 5, "a2": 6, "a3": 7,
	"t0": 8, "t1": 9, "t2": 10, "t3": 11, "t4": 12, "t5": 13, "t6": 14, "t7": 15,
	"s0": 16, "s1": 17, "s2": 18, "s3": 19, "s4": 20, "s5": 21, "s6": 22, "s7": 23,
	"t8": 24, "t9": 25, "k0": 26, "k1": 27,
	"gp": 28, "sp": 29, "fp": 30, "s8": 30, "ra": 31,
}

// register parses "$n" or "$name".
func register(text string) (uint32, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "$") || strings.HasPrefix(text, "$(") {
		return 0, fmt.Errorf("%w: %q", ErrRegisterInvalid, text)
	}

	name := strings.ToLower(text[1:])
	if n, err := strconv.ParseUint(name, 10, 8); err == nil && n < 32 {
		return uint32(n), nil
	}

	if n, ok := registerNames[name]; ok {
		return n, nil
	}

	return 0, fmt.Errorf("%w: %q", ErrRegisterInvalid, text)
}
