package emu

import "fmt"

// OutcomeKind classifies how Run stopped.
type OutcomeKind uint8

// Run outcomes.
const (
	// Completed means the pass address was reached or the program exited
	// through a host call.
	Completed OutcomeKind = iota

	// Halted means execution stopped for the reason in Outcome.Reason.
	Halted

	// CycleLimitExceeded means the step budget ran out.
	CycleLimitExceeded
)

func (k OutcomeKind) String() string {
	switch k {
	case Completed:
		return "completed"
	case Halted:
		return "halted"
	case CycleLimitExceeded:
		return "cycle limit exceeded"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
	}
}

// HaltReason explains a Halted outcome.
type HaltReason uint8

// Halt reasons.
const (
	HaltNone HaltReason = iota
	HaltFail
	HaltException
	HaltCancelled
)

var haltReasonNames = [...]string{"none", "fail", "exception", "cancelled"}

func (r HaltReason) String() string {
	if int(r) < len(haltReasonNames) {
		return haltReasonNames[r]
	}
	return fmt.Sprintf("HaltReason(%d)", uint8(r))
}

// Outcome is the structured result of Run.
type Outcome struct {
	Kind   OutcomeKind
	Reason HaltReason

	// ExitCode is set when the program exited through a host call.
	ExitCode int64

	// Exception is the exception that halted execution, if any.
	Exception *Exception

	// Steps is the number of instructions executed by this Run.
	Steps uint64
}

func (o Outcome) String() string {
	switch {
	case o.Kind == Halted && o.Exception != nil:
		return fmt.Sprintf("halted (%s): %v", o.Reason, o.Exception)
	case o.Kind == Halted:
		return fmt.Sprintf("halted (%s)", o.Reason)
	case o.Kind == Completed && o.ExitCode != 0:
		return fmt.Sprintf("completed (exit %d)", o.ExitCode)
	default:
		return o.Kind.String()
	}
}
