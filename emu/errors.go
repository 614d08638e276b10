package emu

import (
	"errors"
	"fmt"

	"github.com/sarchlab/mipsim/insts"
)

// ErrAddressOutOfRange is wrapped by every access outside physical memory.
// It is a harness-level failure: the simulated program cannot recover.
var ErrAddressOutOfRange = errors.New("address out of range")

// MemoryError reports an access outside physical memory.
type MemoryError struct {
	Addr uint32
	Size uint32
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("%d-byte access at 0x%08x: %v", e.Size, e.Addr, ErrAddressOutOfRange)
}

// Unwrap returns ErrAddressOutOfRange.
func (e *MemoryError) Unwrap() error {
	return ErrAddressOutOfRange
}

// AlignmentError reports a misaligned access under the strict alignment
// policy. The emulator turns it into an address-error exception.
type AlignmentError struct {
	Addr uint32
	Size uint32
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("misaligned %d-byte access at 0x%08x", e.Size, e.Addr)
}

// Exception describes an architectural exception taken by one instruction.
// Exceptions are recoverable by the simulated program and are never
// returned as host errors.
type Exception struct {
	Code insts.ExcCode

	// PC is the address of the faulting instruction.
	PC uint32

	// EPC is the value saved into the EPC register: PC, or the address of
	// the branch when the fault happened in its delay slot.
	EPC uint32

	// BadAddr is the offending address of an address error.
	BadAddr uint32

	InDelaySlot bool
}

func (e *Exception) Error() string {
	if e.Code == insts.ExcAddress {
		return fmt.Sprintf("%s exception at 0x%08x (bad address 0x%08x)", e.Code, e.PC, e.BadAddr)
	}
	return fmt.Sprintf("%s exception at 0x%08x", e.Code, e.PC)
}
