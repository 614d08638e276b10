package loader_test

import (
	"encoding/binary"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
)

// elfSegment describes one PT_LOAD header for buildMIPSELF.
type elfSegment struct {
	addr    uint32
	data    []byte
	memSize uint32
	flags   uint32
}

type elfSymbol struct {
	name  string
	value uint32
}

var _ = Describe("ELF Loader", func() {
	var tempDir string

	// addiu $2, $0, 42; nop
	code := []byte{0x24, 0x02, 0x00, 0x2A, 0x00, 0x00, 0x00, 0x00}

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	write := func(name string, data []byte) string {
		path := filepath.Join(tempDir, name)
		Expect(os.WriteFile(path, data, 0644)).To(Succeed())
		return path
	}

	Describe("Load", func() {
		Context("with a valid MIPS ELF binary", func() {
			var elfPath string

			BeforeEach(func() {
				elfPath = write("test.elf", buildMIPSELF(0x400,
					[]elfSegment{{addr: 0x400, data: code, flags: 0x5}},
					[]elfSymbol{{"pass", 0x500}, {"fail", 0x504}}))
			})

			It("should extract the correct entry point", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.EntryPoint).To(Equal(uint32(0x400)))
			})

			It("should read the code segment", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())
				Expect(prog.Segments).To(HaveLen(1))
				Expect(prog.Segments[0].VirtAddr).To(Equal(uint32(0x400)))
				Expect(prog.Segments[0].Data).To(Equal(code))
				Expect(prog.Segments[0].Flags & loader.SegmentFlagExecute).NotTo(BeZero())
			})

			It("should resolve the pass and fail symbols", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				pass, ok := prog.Symbol(loader.PassSymbol)
				Expect(ok).To(BeTrue())
				Expect(pass).To(Equal(uint32(0x500)))

				fail, ok := prog.Symbol(loader.FailSymbol)
				Expect(ok).To(BeTrue())
				Expect(fail).To(Equal(uint32(0x504)))
			})

			It("should load into the emulator and run", func() {
				prog, err := loader.Load(elfPath)
				Expect(err).NotTo(HaveOccurred())

				e := emu.NewEmulator()
				Expect(prog.LoadInto(e)).To(Succeed())
				Expect(e.ReadPC()).To(Equal(uint32(0x400)))

				Expect(e.Step().Err).NotTo(HaveOccurred())
				Expect(e.ReadRegister(2)).To(Equal(uint32(42)))
			})
		})

		It("should load programs without a symbol table", func() {
			path := write("nosyms.elf", buildMIPSELF(0,
				[]elfSegment{{addr: 0, data: code, flags: 0x5}}, nil))

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Symbols).To(BeEmpty())
		})

		It("should load multiple PT_LOAD segments", func() {
			data := []byte{0x01, 0x02, 0x03, 0x04}
			path := write("multi.elf", buildMIPSELF(0, []elfSegment{
				{addr: 0, data: code, flags: 0x5},
				{addr: 0x1000, data: data, flags: 0x6},
			}, nil))

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments).To(HaveLen(2))
			Expect(prog.Segments[1].VirtAddr).To(Equal(uint32(0x1000)))
			Expect(prog.Segments[1].Data).To(Equal(data))
			Expect(prog.Segments[1].Flags & loader.SegmentFlagWrite).NotTo(BeZero())
		})

		It("should zero-fill BSS when converting to emulator segments", func() {
			path := write("bss.elf", buildMIPSELF(0, []elfSegment{
				{addr: 0x2000, data: []byte{0xAA}, memSize: 16, flags: 0x6},
			}, nil))

			prog, err := loader.Load(path)
			Expect(err).NotTo(HaveOccurred())
			Expect(prog.Segments[0].MemSize).To(Equal(uint32(16)))

			segs := prog.EmuSegments()
			Expect(segs).To(HaveLen(1))
			Expect(segs[0].Data).To(HaveLen(16))
			Expect(segs[0].Data[0]).To(Equal(byte(0xAA)))
			Expect(segs[0].Data[15]).To(BeZero())
		})

		Context("with an invalid file", func() {
			It("should return error for non-existent file", func() {
				_, err := loader.Load("/nonexistent/path/to/file.elf")
				Expect(err).To(MatchError(ContainSubstring("failed to open")))
			})

			It("should return error for non-ELF file", func() {
				_, err := loader.Load(write("not-elf.bin", []byte("not an elf file")))
				Expect(err).To(MatchError(ContainSubstring("ELF")))
			})

			It("should reject little-endian ELF files", func() {
				image := buildMIPSELF(0, nil, nil)
				image[5] = 1 // ELFDATA2LSB

				_, err := loader.Load(write("le.elf", image))
				Expect(err).To(HaveOccurred())
			})

			It("should reject other machines", func() {
				image := buildMIPSELF(0, nil, nil)
				binary.BigEndian.PutUint16(image[18:20], 40) // EM_ARM

				_, err := loader.Load(write("arm.elf", image))
				Expect(err).To(MatchError(ContainSubstring("not a MIPS")))
			})
		})
	})
})

// buildMIPSELF creates a big-endian ELF32 EM_MIPS executable with the given
// PT_LOAD segments and, when syms is non-empty, a symbol table.
func buildMIPSELF(entry uint32, segs []elfSegment, syms []elfSymbol) []byte {
	const (
		ehSize = 52
		phSize = 32
		shSize = 40
		stSize = 16
	)

	be := binary.BigEndian

	dataOff := uint32(ehSize + phSize*len(segs))
	var body []byte
	phdrs := make([]byte, 0, phSize*len(segs))

	for _, s := range segs {
		memSize := s.memSize
		if memSize == 0 {
			memSize = uint32(len(s.data))
		}

		ph := make([]byte, phSize)
		be.PutUint32(ph[0:], 1) // PT_LOAD
		be.PutUint32(ph[4:], dataOff+uint32(len(body)))
		be.PutUint32(ph[8:], s.addr)
		be.PutUint32(ph[12:], s.addr)
		be.PutUint32(ph[16:], uint32(len(s.data)))
		be.PutUint32(ph[20:], memSize)
		be.PutUint32(ph[24:], s.flags)
		be.PutUint32(ph[28:], 4)
		phdrs = append(phdrs, ph...)

		body = append(body, s.data...)
	}

	var shdrs []byte
	shNum := 0
	if len(syms) > 0 {
		strtab := []byte{0}
		symtab := make([]byte, stSize) // null symbol
		for _, sym := range syms {
			st := make([]byte, stSize)
			be.PutUint32(st[0:], uint32(len(strtab)))
			be.PutUint32(st[4:], sym.value)
			// STB_GLOBAL, STT_NOTYPE, SHN_ABS
			st[12] = 0x10
			be.PutUint16(st[14:], 0xFFF1)
			symtab = append(symtab, st...)
			strtab = append(append(strtab, sym.name...), 0)
		}

		symOff := dataOff + uint32(len(body))
		body = append(body, symtab...)
		strOff := dataOff + uint32(len(body))
		body = append(body, strtab...)

		shdrs = make([]byte, shSize*3) // null, .symtab, .strtab
		sym := shdrs[shSize:]
		be.PutUint32(sym[4:], 2) // SHT_SYMTAB
		be.PutUint32(sym[16:], symOff)
		be.PutUint32(sym[20:], uint32(len(symtab)))
		be.PutUint32(sym[24:], 2) // link to .strtab
		be.PutUint32(sym[28:], 1)
		be.PutUint32(sym[32:], 4)
		be.PutUint32(sym[36:], stSize)

		str := shdrs[shSize*2:]
		be.PutUint32(str[4:], 3) // SHT_STRTAB
		be.PutUint32(str[16:], strOff)
		be.PutUint32(str[20:], uint32(len(strtab)))
		be.PutUint32(str[32:], 1)
		shNum = 3
	}

	header := make([]byte, ehSize)
	copy(header, []byte{0x7f, 'E', 'L', 'F', 1, 2, 1})
	be.PutUint16(header[16:], 2) // ET_EXEC
	be.PutUint16(header[18:], 8) // EM_MIPS
	be.PutUint32(header[20:], 1)
	be.PutUint32(header[24:], entry)
	if len(segs) > 0 {
		be.PutUint32(header[28:], ehSize)
	}
	if shNum > 0 {
		be.PutUint32(header[32:], dataOff+uint32(len(body)))
	}
	be.PutUint16(header[40:], ehSize)
	be.PutUint16(header[42:], phSize)
	be.PutUint16(header[44:], uint16(len(segs)))
	be.PutUint16(header[46:], shSize)
	be.PutUint16(header[48:], uint16(shNum))

	image := append(header, phdrs...)
	image = append(image, body...)
	return append(image, shdrs...)
}
