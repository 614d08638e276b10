package emu

import "fmt"

// PCState is the program-counter source chosen by the last instruction.
type PCState uint8

// Control unit states.
const (
	StateReset PCState = iota
	StateIncrement
	StateBranch
	StateJump
	StateJumpRegister
	StateException
)

var pcStateNames = [...]string{"reset", "increment", "branch", "jump", "jump-register", "exception"}

func (s PCState) String() string {
	if int(s) < len(pcStateNames) {
		return pcStateNames[s]
	}
	return fmt.Sprintf("PCState(%d)", uint8(s))
}

// ControlUnit sequences the program counter.
//
// With branch delay slots enabled it keeps the address of the instruction
// after the current one in next, so a control transfer only redirects the
// fetch that follows its delay slot.
type ControlUnit struct {
	pc   uint32
	next uint32

	// branchPC is the address of the control-transfer instruction whose
	// delay slot is at pc, valid while inDelaySlot is set.
	branchPC    uint32
	inDelaySlot bool

	state      PCState
	delaySlots bool
}

// NewControlUnit creates a control unit positioned at the reset vector.
func NewControlUnit(resetVector uint32, delaySlots bool) *ControlUnit {
	c := &ControlUnit{delaySlots: delaySlots}
	c.Reset(resetVector)
	return c
}

// Reset places the PC at addr and enters StateReset.
func (c *ControlUnit) Reset(addr uint32) {
	c.pc = addr
	c.next = addr + 4
	c.inDelaySlot = false
	c.state = StateReset
}

// PC returns the address of the next instruction to execute.
func (c *ControlUnit) PC() uint32 {
	return c.pc
}

// State returns the decision of the last instruction.
func (c *ControlUnit) State() PCState {
	return c.state
}

// DelaySlots reports whether branch delay slots are modelled.
func (c *ControlUnit) DelaySlots() bool {
	return c.delaySlots
}

// InDelaySlot reports whether the instruction at PC is in a delay slot.
func (c *ControlUnit) InDelaySlot() bool {
	return c.inDelaySlot
}

// BranchPC returns the address of the branch owning the current delay slot.
func (c *ControlUnit) BranchPC() uint32 {
	return c.branchPC
}

// LinkAddress is the return address written by jal, jalr and the
// and-link branches: past the delay slot when there is one.
func (c *ControlUnit) LinkAddress() uint32 {
	if c.delaySlots {
		return c.pc + 8
	}
	return c.pc + 4
}

// Increment advances to the sequential successor.
func (c *ControlUnit) Increment() {
	c.advance(c.next + 4)
	c.state = StateIncrement
}

// NotTaken advances past a branch whose condition failed. The following
// instruction is still the branch's delay slot.
func (c *ControlUnit) NotTaken() {
	if !c.delaySlots {
		c.Increment()
		return
	}

	c.enterDelaySlot(c.next + 4)
	c.state = StateIncrement
}

// Transfer redirects execution to target and records state, one of
// StateBranch, StateJump or StateJumpRegister.
func (c *ControlUnit) Transfer(state PCState, target uint32) {
	if c.delaySlots {
		c.enterDelaySlot(target)
	} else {
		c.pc = target
		c.next = target + 4
		c.inDelaySlot = false
	}
	c.state = state
}

// Trap redirects execution to the exception vector.
func (c *ControlUnit) Trap(vector uint32) {
	c.pc = vector
	c.next = vector + 4
	c.inDelaySlot = false
	c.state = StateException
}

func (c *ControlUnit) advance(after uint32) {
	c.pc = c.next
	c.next = after
	c.inDelaySlot = false
}

func (c *ControlUnit) enterDelaySlot(after uint32) {
	c.branchPC = c.pc
	c.pc = c.next
	c.next = after
	c.inDelaySlot = true
}
