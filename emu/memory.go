package emu

// DefaultMemorySize is the default physical memory size: 16K words, the
// largest block-RAM image the hardware build supports.
const DefaultMemorySize = 64 * 1024

// Memory is a flat, big-endian, byte-addressed physical memory.
type Memory struct {
	data []byte
}

// NewMemory creates a zeroed memory of the given size in bytes.
func NewMemory(size uint32) *Memory {
	return &Memory{data: make([]byte, size)}
}

// Size returns the memory size in bytes.
func (m *Memory) Size() uint32 {
	return uint32(len(m.data))
}

// Contains reports whether [addr, addr+size) lies inside memory.
func (m *Memory) Contains(addr, size uint32) bool {
	end := uint64(addr) + uint64(size)
	return end <= uint64(len(m.data))
}

func (m *Memory) check(addr, size uint32) error {
	if !m.Contains(addr, size) {
		return &MemoryError{Addr: addr, Size: size}
	}
	return nil
}

// Read8 reads a byte.
func (m *Memory) Read8(addr uint32) (uint8, error) {
	if err := m.check(addr, 1); err != nil {
		return 0, err
	}
	return m.data[addr], nil
}

// Read16 reads a big-endian halfword. The address need not be aligned.
func (m *Memory) Read16(addr uint32) (uint16, error) {
	if err := m.check(addr, 2); err != nil {
		return 0, err
	}
	return uint16(m.data[addr])<<8 | uint16(m.data[addr+1]), nil
}

// Read32 reads a big-endian word. The address need not be aligned.
func (m *Memory) Read32(addr uint32) (uint32, error) {
	if err := m.check(addr, 4); err != nil {
		return 0, err
	}
	b := m.data[addr : addr+4]
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]), nil
}

// Write8 writes a byte.
func (m *Memory) Write8(addr uint32, value uint8) error {
	if err := m.check(addr, 1); err != nil {
		return err
	}
	m.data[addr] = value
	return nil
}

// Write16 writes a big-endian halfword.
func (m *Memory) Write16(addr uint32, value uint16) error {
	if err := m.check(addr, 2); err != nil {
		return err
	}
	m.data[addr] = byte(value >> 8)
	m.data[addr+1] = byte(value)
	return nil
}

// Write32 writes a big-endian word.
func (m *Memory) Write32(addr uint32, value uint32) error {
	if err := m.check(addr, 4); err != nil {
		return err
	}
	m.data[addr] = byte(value >> 24)
	m.data[addr+1] = byte(value >> 16)
	m.data[addr+2] = byte(value >> 8)
	m.data[addr+3] = byte(value)
	return nil
}

// LoadBytes copies a byte image into memory starting at addr.
func (m *Memory) LoadBytes(addr uint32, data []byte) error {
	if err := m.check(addr, uint32(len(data))); err != nil {
		return err
	}
	copy(m.data[addr:], data)
	return nil
}

// LoadWords stores consecutive big-endian words starting at addr.
func (m *Memory) LoadWords(addr uint32, words []uint32) error {
	for i, w := range words {
		if err := m.Write32(addr+uint32(i)*4, w); err != nil {
			return err
		}
	}
	return nil
}

// Clear zeroes the whole memory.
func (m *Memory) Clear() {
	clear(m.data)
}
