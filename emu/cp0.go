package emu

import "github.com/sarchlab/mipsim/insts"

// Status register layout.
const (
	// StatusStackMask covers the three-deep KUo/IEo, KUp/IEp, KUc/IEc
	// stack in bits 5:0.
	StatusStackMask uint32 = 0x3F

	// StatusCodeShift and StatusCodeMask locate the cause code of the last
	// exception.
	StatusCodeShift        = 8
	StatusCodeMask  uint32 = 0x1F << StatusCodeShift

	// StatusBD is set when the last exception hit a branch delay slot.
	StatusBD uint32 = 1 << 31
)

// Coprocessor0 is the system control register block.
type Coprocessor0 struct {
	Status   uint32
	EPC      uint32
	BadVAddr uint32

	// Cycle is the running cycle count, visible as cyclelo/cyclehi.
	Cycle uint64
}

// Enter records an exception: the KU/IE stack is pushed (interrupts
// disabled, kernel mode), the cause code and delay-slot flag are written
// into status and epc is saved.
func (c *Coprocessor0) Enter(code insts.ExcCode, epc uint32, inDelaySlot bool) {
	stack := (c.Status << 2) & StatusStackMask

	status := c.Status &^ (StatusStackMask | StatusCodeMask | StatusBD)
	status |= stack
	status |= uint32(code) << StatusCodeShift & StatusCodeMask
	if inDelaySlot {
		status |= StatusBD
	}

	c.Status = status
	c.EPC = epc
}

// RFE pops the KU/IE stack and clears the exception cause fields, restoring
// the status bits in effect before the exception.
func (c *Coprocessor0) RFE() {
	stack := c.Status & StatusStackMask
	popped := stack&0x30 | stack>>2

	c.Status = c.Status&^(StatusStackMask|StatusCodeMask|StatusBD) | popped
}

// Read returns a coprocessor 0 register. Unknown registers read as zero.
func (c *Coprocessor0) Read(reg insts.CP0Reg) uint32 {
	switch reg {
	case insts.CP0RegStatus:
		return c.Status
	case insts.CP0RegEPC:
		return c.EPC
	case insts.CP0RegCycleLo:
		return uint32(c.Cycle)
	case insts.CP0RegCycleHi:
		return uint32(c.Cycle >> 32)
	case insts.CP0RegBadVAddr:
		return c.BadVAddr
	default:
		return 0
	}
}

// Write sets a coprocessor 0 register. Writes to registers other than
// status, epc, cyclelo and cyclehi are ignored.
func (c *Coprocessor0) Write(reg insts.CP0Reg, value uint32) {
	switch reg {
	case insts.CP0RegStatus:
		c.Status = value
	case insts.CP0RegEPC:
		c.EPC = value
	case insts.CP0RegCycleLo:
		c.Cycle = c.Cycle&^0xFFFFFFFF | uint64(value)
	case insts.CP0RegCycleHi:
		c.Cycle = c.Cycle&0xFFFFFFFF | uint64(value)<<32
	}
}

// Reset clears every register.
func (c *Coprocessor0) Reset() {
	*c = Coprocessor0{}
}
