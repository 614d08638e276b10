package asm

import (
	"errors"

	"github.com/sarchlab/mipsim/internal/translate"
)

var f = translate.From

var (
	ErrMnemonicUnknown  = errors.New(f("unknown mnemonic"))
	ErrOperandCount     = errors.New(f("wrong number of operands"))
	ErrRegisterInvalid  = errors.New(f("register invalid"))
	ErrValueMissing     = errors.New(f("value missing"))
	ErrValueRange       = errors.New(f("value out of range"))
	ErrImmediateRange   = errors.New(f("immediate out of range"))
	ErrShiftRange       = errors.New(f("shift amount out of range"))
	ErrBranchRange      = errors.New(f("branch target out of range"))
	ErrJumpRange        = errors.New(f("jump target outside the current 256MB region"))
	ErrMisaligned       = errors.New(f("address not word aligned"))
	ErrMemoryOperand    = errors.New(f("memory operand invalid"))
	ErrLabelDuplicate   = errors.New(f("label duplicated"))
	ErrLabelInvalid     = errors.New(f("label invalid"))
	ErrLocalLabel       = errors.New(f("local label reference unresolved"))
	ErrEquateSyntax     = errors.New(f(".equ syntax"))
	ErrEquateDuplicate  = errors.New(f(".equ duplicated"))
	ErrOrgBackwards     = errors.New(f(".org moves backwards"))
	ErrDirectiveUnknown = errors.New(f("unknown directive"))
	ErrExpressionType   = errors.New(f("expression is not an integer"))
)

// UndefinedSymbolError names a symbol that is neither a label nor an equate.
type UndefinedSymbolError string

func (err UndefinedSymbolError) Error() string {
	return f("symbol %v undefined", string(err))
}

// ExpressionError reports a $(...) expression Starlark could not evaluate.
type ExpressionError struct {
	Expr string
	Err  error
}

func (err *ExpressionError) Error() string {
	return f("$(%v) is not a valid expression: %v", err.Expr, err.Err)
}

func (err *ExpressionError) Unwrap() error {
	return err.Err
}

// SyntaxError locates an assembly error in the source.
type SyntaxError struct {
	Line int
	Text string
	Err  error
}

func (err *SyntaxError) Error() string {
	return f("line %d '%v' %v", err.Line, err.Text, err.Err)
}

func (err *SyntaxError) Unwrap() error {
	return err.Err
}
