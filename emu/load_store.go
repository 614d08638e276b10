package emu

import "github.com/sarchlab/mipsim/insts"

// AlignmentPolicy decides what happens on a misaligned halfword or word
// access.
type AlignmentPolicy uint8

// Alignment policies.
const (
	// AlignStrict raises an address-error exception.
	AlignStrict AlignmentPolicy = iota

	// AlignPermissive performs the access byte by byte.
	AlignPermissive
)

func (p AlignmentPolicy) String() string {
	if p == AlignPermissive {
		return "permissive"
	}
	return "strict"
}

// MemoryUnit implements MIPS load and store operations on top of Memory.
type MemoryUnit struct {
	memory *Memory
	policy AlignmentPolicy
}

// NewMemoryUnit creates a new MemoryUnit connected to the given memory.
func NewMemoryUnit(memory *Memory, policy AlignmentPolicy) *MemoryUnit {
	return &MemoryUnit{
		memory: memory,
		policy: policy,
	}
}

func (u *MemoryUnit) checkAlign(addr, size uint32) error {
	if u.policy == AlignStrict && addr&(size-1) != 0 {
		return &AlignmentError{Addr: addr, Size: size}
	}
	return nil
}

// Load reads a byte, halfword or word and extends it to 32 bits.
func (u *MemoryUnit) Load(addr uint32, size insts.MemSize, sign insts.MemSign) (uint32, error) {
	switch size {
	case insts.MemSizeByte:
		v, err := u.memory.Read8(addr)
		if err != nil {
			return 0, err
		}
		if sign == insts.MemSigned {
			return uint32(int32(int8(v))), nil
		}
		return uint32(v), nil

	case insts.MemSizeHalf:
		if err := u.checkAlign(addr, 2); err != nil {
			return 0, err
		}
		v, err := u.memory.Read16(addr)
		if err != nil {
			return 0, err
		}
		if sign == insts.MemSigned {
			return uint32(int32(int16(v))), nil
		}
		return uint32(v), nil

	default:
		if err := u.checkAlign(addr, 4); err != nil {
			return 0, err
		}
		return u.memory.Read32(addr)
	}
}

// Store writes the low byte, halfword or the whole of value.
func (u *MemoryUnit) Store(addr uint32, size insts.MemSize, value uint32) error {
	switch size {
	case insts.MemSizeByte:
		return u.memory.Write8(addr, uint8(value))

	case insts.MemSizeHalf:
		if err := u.checkAlign(addr, 2); err != nil {
			return err
		}
		return u.memory.Write16(addr, uint16(value))

	default:
		if err := u.checkAlign(addr, 4); err != nil {
			return err
		}
		return u.memory.Write32(addr, value)
	}
}

// LoadPartial implements lwl (left) and lwr (right). It merges the bytes of
// the aligned word containing addr into rt and never faults on alignment.
//
// On a big-endian machine lwl at byte offset b loads bytes b..3 into the
// upper lanes of rt; lwr at offset b loads bytes 0..b into the lower lanes.
func (u *MemoryUnit) LoadPartial(addr uint32, left insts.MemLeft, rt uint32) (uint32, error) {
	word, err := u.memory.Read32(addr &^ 3)
	if err != nil {
		return 0, err
	}

	offset := addr & 3

	if left == insts.MemLeftSide {
		s := 8 * offset
		keep := uint32(1)<<s - 1
		return word<<s | rt&keep, nil
	}

	s := 8 * (3 - offset)
	keep := ^(uint32(0xFFFFFFFF) >> s)
	return word>>s | rt&keep, nil
}

// StorePartial implements swl (left) and swr (right), the inverse of
// LoadPartial.
func (u *MemoryUnit) StorePartial(addr uint32, left insts.MemLeft, rt uint32) error {
	aligned := addr &^ 3

	word, err := u.memory.Read32(aligned)
	if err != nil {
		return err
	}

	offset := addr & 3

	if left == insts.MemLeftSide {
		s := 8 * offset
		keep := ^(uint32(0xFFFFFFFF) >> s)
		return u.memory.Write32(aligned, rt>>s|word&keep)
	}

	s := 8 * (3 - offset)
	keep := uint32(1)<<s - 1
	return u.memory.Write32(aligned, rt<<s|word&keep)
}
