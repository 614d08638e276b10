// Package emu provides functional MIPS emulation.
package emu

// RegFile represents the MIPS register file.
// It contains 32 general-purpose registers and the HI/LO
// multiply/divide result registers.
type RegFile struct {
	// R holds general-purpose registers $0-$31.
	// R[0] is hardwired to zero: it always reads as 0.
	R [32]uint32

	// HI holds the high word of a product or the remainder of a division.
	HI uint32

	// LO holds the low word of a product or the quotient of a division.
	LO uint32
}

// ReadReg reads a register value. Register 0 returns 0.
func (r *RegFile) ReadReg(reg uint8) uint32 {
	reg &= 0x1F
	if reg == 0 {
		return 0
	}
	return r.R[reg]
}

// WriteReg writes a value to a register. Writes to register 0 are ignored.
func (r *RegFile) WriteReg(reg uint8, value uint32) {
	reg &= 0x1F
	if reg == 0 {
		return
	}
	r.R[reg] = value
}
