package insts_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("Disassembly", func() {
	var decoder *insts.Decoder

	BeforeEach(func() {
		decoder = insts.NewDecoder()
	})

	DescribeTable("String",
		func(word uint32, text string) {
			inst, _ := decoder.Decode(word)
			Expect(inst.String()).To(Equal(text))
		},
		Entry("nop", uint32(0x00000000), "nop"),
		Entry("addu", uint32(0x00432021), "addu $4, $2, $3"),
		Entry("sll", uint32(0x000220C0), "sll $4, $2, 3"),
		Entry("addiu", uint32(0x2402FFFB), "addiu $2, $0, -5"),
		Entry("andi", uint32(0x3062FFFF), "andi $2, $3, 0xffff"),
		Entry("lui", uint32(0x3C021234), "lui $2, 0x1234"),
		Entry("lw", uint32(0x8C440008), "lw $4, 8($2)"),
		Entry("beq", uint32(0x1043FFFF), "beq $2, $3, -4"),
		Entry("bltz", uint32(0x04400003), "bltz $2, +12"),
		Entry("j", uint32(0x08000100), "j 0x400"),
		Entry("jr", uint32(0x03E00008), "jr $31"),
		Entry("jalr", uint32(0x0040F809), "jalr $31, $2"),
		Entry("mfhi", uint32(0x00001810), "mfhi $3"),
		Entry("mult", uint32(0x00430018), "mult $2, $3"),
		Entry("mtc0", uint32(0x40820800), "mtc0 $2, $1"),
		Entry("syscall", uint32(0x0000000C), "syscall"),
		Entry("reserved", uint32(0xFC000000), ".word 0xfc000000"),
	)
})

var _ = Describe("Control signal names", func() {
	It("should name selectors after their hardware mnemonics", func() {
		Expect(insts.PCJumpReg.String()).To(Equal("jr"))
		Expect(insts.BranchNE.String()).To(Equal("bneq"))
		Expect(insts.ExcOverflow.String()).To(Equal("overflow"))
		Expect(insts.WANone.String()).To(Equal("0"))
		Expect(insts.WBMemory.String()).To(Equal("mdin"))
		Expect(insts.MemSizePartial.String()).To(Equal("lwx"))
		Expect(insts.CP0RegCycleHi.String()).To(Equal("cyclehi"))
		Expect(insts.CP0Reg(7).String()).To(Equal("cp0r7"))
	})

	It("should use Unspecified as the zero value", func() {
		var ctrl insts.ControlSignals

		Expect(ctrl.PC).To(Equal(insts.PCUnspecified))
		Expect(ctrl.A).To(Equal(insts.AUnspecified))
		Expect(ctrl.Unit.String()).To(Equal("x"))
		Expect(ctrl.MulDiv).To(Equal(insts.MulDivNone))
		Expect(ctrl.Exc).To(Equal(insts.ExcNone))
	})

	It("should report access widths", func() {
		Expect(insts.MemSizeByte.Bytes()).To(Equal(uint32(1)))
		Expect(insts.MemSizeHalf.Bytes()).To(Equal(uint32(2)))
		Expect(insts.MemSizeWord.Bytes()).To(Equal(uint32(4)))
		Expect(insts.MemSizePartial.Bytes()).To(Equal(uint32(4)))
		Expect(insts.MemSizeUnspecified.Bytes()).To(Equal(uint32(0)))
	})
})
