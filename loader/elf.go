// Package loader provides program loading for big-endian MIPS executables
// and memory images.
package loader

import (
	"debug/elf"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/mipsim/emu"
)

// SegmentFlags represents memory protection flags for a segment.
type SegmentFlags uint32

const (
	// SegmentFlagExecute indicates the segment is executable.
	SegmentFlagExecute SegmentFlags = 1 << iota
	// SegmentFlagWrite indicates the segment is writable.
	SegmentFlagWrite
	// SegmentFlagRead indicates the segment is readable.
	SegmentFlagRead
)

// Symbols the test harness places at the end of a self-checking program.
const (
	PassSymbol = "pass"
	FailSymbol = "fail"
)

// Segment represents a loadable segment.
type Segment struct {
	// VirtAddr is the address where this segment should be loaded.
	VirtAddr uint32
	// Data contains the segment contents from the file.
	Data []byte
	// MemSize is the size in memory (may be larger than len(Data) for BSS).
	MemSize uint32
	// Flags contains the segment protection flags.
	Flags SegmentFlags
}

// Program represents a loaded program ready for execution.
type Program struct {
	// EntryPoint is the address where execution should begin.
	EntryPoint uint32
	// Segments contains all loadable segments.
	Segments []Segment
	// Symbols maps symbol names to addresses. It is empty for raw images.
	Symbols map[string]uint32
}

// Symbol looks up the address of a named symbol.
func (p *Program) Symbol(name string) (uint32, bool) {
	addr, ok := p.Symbols[name]
	return addr, ok
}

// EmuSegments returns the segments in the form the emulator loads, with BSS
// bytes zero-filled.
func (p *Program) EmuSegments() []emu.Segment {
	segs := make([]emu.Segment, 0, len(p.Segments))
	for _, s := range p.Segments {
		data := s.Data
		if uint32(len(data)) < s.MemSize {
			data = make([]byte, s.MemSize)
			copy(data, s.Data)
		}
		segs = append(segs, emu.Segment{Addr: s.VirtAddr, Data: data})
	}
	return segs
}

// LoadInto copies the program into the emulator's memory and sets its PC to
// the entry point.
func (p *Program) LoadInto(e *emu.Emulator) error {
	return e.Load(p.EntryPoint, p.EmuSegments()...)
}

// Load parses a big-endian MIPS ELF32 executable.
func Load(path string) (*Program, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	return LoadELF(f)
}

// LoadELF parses a big-endian MIPS ELF32 executable from r.
func LoadELF(r io.ReaderAt) (*Program, error) {
	f, err := elf.NewFile(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse ELF file: %w", err)
	}
	defer func() { _ = f.Close() }()

	if f.Class != elf.ELFCLASS32 {
		return nil, fmt.Errorf("not a 32-bit ELF file")
	}

	if f.Data != elf.ELFDATA2MSB {
		return nil, fmt.Errorf("not a big-endian ELF file")
	}

	if f.Machine != elf.EM_MIPS {
		return nil, fmt.Errorf("not a MIPS ELF file (machine type: %v)", f.Machine)
	}

	prog := &Program{
		EntryPoint: uint32(f.Entry),
		Symbols:    make(map[string]uint32),
	}

	for _, phdr := range f.Progs {
		if phdr.Type != elf.PT_LOAD {
			continue
		}

		seg, err := readSegment(phdr)
		if err != nil {
			return nil, err
		}

		prog.Segments = append(prog.Segments, seg)
	}

	syms, err := f.Symbols()
	if err != nil && !errors.Is(err, elf.ErrNoSymbols) {
		return nil, fmt.Errorf("failed to read symbol table: %w", err)
	}

	for _, sym := range syms {
		if sym.Name != "" {
			prog.Symbols[sym.Name] = uint32(sym.Value)
		}
	}

	return prog, nil
}

func readSegment(phdr *elf.Prog) (Segment, error) {
	data := make([]byte, phdr.Filesz)
	if phdr.Filesz > 0 {
		n, err := phdr.ReadAt(data, 0)
		if err != nil && err != io.EOF {
			return Segment{}, fmt.Errorf("failed to read segment at 0x%x: %w", phdr.Vaddr, err)
		}
		if uint64(n) != phdr.Filesz {
			return Segment{}, fmt.Errorf("short read for segment at 0x%x: got %d bytes, expected %d",
				phdr.Vaddr, n, phdr.Filesz)
		}
	}

	var flags SegmentFlags
	if phdr.Flags&elf.PF_X != 0 {
		flags |= SegmentFlagExecute
	}
	if phdr.Flags&elf.PF_W != 0 {
		flags |= SegmentFlagWrite
	}
	if phdr.Flags&elf.PF_R != 0 {
		flags |= SegmentFlagRead
	}

	return Segment{
		VirtAddr: uint32(phdr.Vaddr),
		Data:     data,
		MemSize:  uint32(phdr.Memsz),
		Flags:    flags,
	}, nil
}
