package emu_test

import (
	"errors"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

var _ = Describe("RegFile", func() {
	It("should read zero from $0 regardless of writes", func() {
		rf := &emu.RegFile{}
		rf.WriteReg(0, 0xDEADBEEF)

		Expect(rf.ReadReg(0)).To(Equal(uint32(0)))
		Expect(rf.R[0]).To(Equal(uint32(0)))
	})

	It("should mask register indices to five bits", func() {
		rf := &emu.RegFile{}
		rf.WriteReg(33, 7)

		Expect(rf.ReadReg(1)).To(Equal(uint32(7)))
	})
})

var _ = Describe("Memory", func() {
	var memory *emu.Memory

	BeforeEach(func() {
		memory = emu.NewMemory(256)
	})

	It("should store words big-endian", func() {
		Expect(memory.Write32(0x10, 0x11223344)).To(Succeed())

		b, err := memory.Read8(0x10)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(uint8(0x11)))

		h, err := memory.Read16(0x12)
		Expect(err).NotTo(HaveOccurred())
		Expect(h).To(Equal(uint16(0x3344)))
	})

	It("should reject accesses past the end", func() {
		_, err := memory.Read32(254)

		Expect(errors.Is(err, emu.ErrAddressOutOfRange)).To(BeTrue())

		var memErr *emu.MemoryError
		Expect(errors.As(err, &memErr)).To(BeTrue())
		Expect(memErr.Addr).To(Equal(uint32(254)))
		Expect(memErr.Size).To(Equal(uint32(4)))
	})

	It("should reject accesses that wrap around the address space", func() {
		Expect(memory.Write32(0xFFFFFFFE, 0)).To(MatchError(emu.ErrAddressOutOfRange))
	})
})

var _ = Describe("ALU", func() {
	var alu *emu.ALU

	BeforeEach(func() {
		alu = emu.NewALU()
	})

	evaluate := func(name string, a, b uint32) emu.ALUResult {
		spec, ok := insts.Lookup(name)
		Expect(ok).To(BeTrue())
		return alu.Evaluate(spec.Control, a, b)
	}

	DescribeTable("results",
		func(name string, a, b, want uint32) {
			Expect(evaluate(name, a, b).Value).To(Equal(want))
		},
		Entry("addu", "addu", uint32(5), uint32(7), uint32(12)),
		Entry("subu wraps", "subu", uint32(0), uint32(1), uint32(0xFFFFFFFF)),
		Entry("slt signed", "slt", uint32(0xFFFFFFFF), uint32(1), uint32(1)),
		Entry("sltu unsigned", "sltu", uint32(0xFFFFFFFF), uint32(1), uint32(0)),
		Entry("and", "and", uint32(0xFF00FF00), uint32(0x0FF00FF0), uint32(0x0F000F00)),
		Entry("or", "or", uint32(0xFF00FF00), uint32(0x0FF00FF0), uint32(0xFFF0FFF0)),
		Entry("xor", "xor", uint32(0xFF00FF00), uint32(0x0FF00FF0), uint32(0xF0F0F0F0)),
		Entry("nor", "nor", uint32(0xFF00FF00), uint32(0x0FF00FF0), uint32(0x000F000F)),
		Entry("sllv", "sllv", uint32(4), uint32(0x1), uint32(0x10)),
		Entry("sllv masks amount", "sllv", uint32(33), uint32(0x1), uint32(0x2)),
		Entry("srlv", "srlv", uint32(4), uint32(0x80000000), uint32(0x08000000)),
		Entry("srav", "srav", uint32(4), uint32(0x80000000), uint32(0xF8000000)),
		Entry("lui", "lui", uint32(16), uint32(0x1234), uint32(0x12340000)),
	)

	It("should flag overflow only for checked operations", func() {
		Expect(evaluate("add", 0x7FFFFFFF, 1).Overflow).To(BeTrue())
		Expect(evaluate("addu", 0x7FFFFFFF, 1).Overflow).To(BeFalse())
		Expect(evaluate("sub", 0x80000000, 1).Overflow).To(BeTrue())
		Expect(evaluate("subu", 0x80000000, 1).Overflow).To(BeFalse())
		Expect(evaluate("add", 0xFFFFFFFF, 1).Overflow).To(BeFalse())
		Expect(evaluate("sub", 0, 0x80000000).Overflow).To(BeTrue())
	})
})

var _ = Describe("MulDivUnit", func() {
	var (
		rf   *emu.RegFile
		unit *emu.MulDivUnit
	)

	BeforeEach(func() {
		rf = &emu.RegFile{}
		unit = emu.NewMulDivUnit(rf)
	})

	It("should sign-extend mult products", func() {
		unit.Issue(insts.MulDivMult, uint32(0xFFFFFFFB), 3) // -5 * 3

		Expect(rf.LO).To(Equal(uint32(0xFFFFFFF1)))
		Expect(rf.HI).To(Equal(uint32(0xFFFFFFFF)))
	})

	It("should zero-extend multu products", func() {
		unit.Issue(insts.MulDivMultU, 0xFFFFFFFF, 2)

		Expect(rf.LO).To(Equal(uint32(0xFFFFFFFE)))
		Expect(rf.HI).To(Equal(uint32(1)))
	})

	It("should leave quotient in LO and remainder in HI", func() {
		unit.Issue(insts.MulDivDivU, 7, 2)

		Expect(rf.LO).To(Equal(uint32(3)))
		Expect(rf.HI).To(Equal(uint32(1)))
	})

	It("should truncate signed division toward zero", func() {
		unit.Issue(insts.MulDivDiv, uint32(0xFFFFFFF9), 2) // -7 / 2

		Expect(rf.LO).To(Equal(uint32(0xFFFFFFFD)))
		Expect(rf.HI).To(Equal(uint32(0xFFFFFFFF)))
	})

	DescribeTable("division edge cases",
		func(op insts.MulDivOp, rs, rt, hi, lo uint32) {
			unit.Issue(op, rs, rt)

			Expect(rf.HI).To(Equal(hi))
			Expect(rf.LO).To(Equal(lo))
		},
		Entry("divu by zero", insts.MulDivDivU, uint32(9), uint32(0), uint32(9), uint32(0xFFFFFFFF)),
		Entry("div positive by zero", insts.MulDivDiv, uint32(9), uint32(0), uint32(9), uint32(0xFFFFFFFF)),
		Entry("div negative by zero", insts.MulDivDiv, uint32(0xFFFFFFF7), uint32(0), uint32(0xFFFFFFF7), uint32(1)),
		Entry("div min by -1", insts.MulDivDiv, uint32(0x80000000), uint32(0xFFFFFFFF), uint32(0), uint32(0x80000000)),
	)

	It("should move to HI and LO", func() {
		unit.Issue(insts.MulDivMTHI, 0xAA, 0)
		unit.Issue(insts.MulDivMTLO, 0xBB, 0)

		Expect(rf.HI).To(Equal(uint32(0xAA)))
		Expect(rf.LO).To(Equal(uint32(0xBB)))
	})
})

var _ = Describe("BranchUnit", func() {
	unit := emu.NewBranchUnit()

	DescribeTable("decisions",
		func(cond insts.BranchCond, a, b uint32, taken bool) {
			Expect(unit.Decide(cond, a, b)).To(Equal(taken))
		},
		Entry("beq equal", insts.BranchEQ, uint32(3), uint32(3), true),
		Entry("beq different", insts.BranchEQ, uint32(3), uint32(4), false),
		Entry("bne different", insts.BranchNE, uint32(3), uint32(4), true),
		Entry("bne equal", insts.BranchNE, uint32(3), uint32(3), false),
		Entry("blez zero", insts.BranchLEZ, uint32(0), uint32(0), true),
		Entry("blez negative", insts.BranchLEZ, uint32(0x80000000), uint32(0), true),
		Entry("blez positive", insts.BranchLEZ, uint32(1), uint32(0), false),
		Entry("bgtz positive", insts.BranchGTZ, uint32(1), uint32(0), true),
		Entry("bgtz zero", insts.BranchGTZ, uint32(0), uint32(0), false),
		Entry("bltz negative", insts.BranchLTZ, uint32(0xFFFFFFFF), uint32(0), true),
		Entry("bltz zero", insts.BranchLTZ, uint32(0), uint32(0), false),
		Entry("bgez zero", insts.BranchGEZ, uint32(0), uint32(0), true),
		Entry("bgez negative", insts.BranchGEZ, uint32(0x80000000), uint32(0), false),
		Entry("unspecified", insts.BranchUnspecified, uint32(0), uint32(0), false),
	)
})

var _ = Describe("Coprocessor0", func() {
	var cp0 *emu.Coprocessor0

	BeforeEach(func() {
		cp0 = &emu.Coprocessor0{}
	})

	It("should push the KU/IE stack and record the cause on entry", func() {
		cp0.Status = 0x01
		cp0.Enter(insts.ExcSyscall, 0x40, false)

		Expect(cp0.Status & emu.StatusStackMask).To(Equal(uint32(0x04)))
		Expect((cp0.Status & emu.StatusCodeMask) >> emu.StatusCodeShift).To(Equal(uint32(insts.ExcSyscall)))
		Expect(cp0.Status & emu.StatusBD).To(BeZero())
		Expect(cp0.EPC).To(Equal(uint32(0x40)))
	})

	It("should set BD for delay-slot exceptions", func() {
		cp0.Enter(insts.ExcBreak, 0x40, true)

		Expect(cp0.Status & emu.StatusBD).To(Equal(emu.StatusBD))
	})

	It("should restore the current and previous mode bits on rfe", func() {
		cp0.Status = 0x0000FF05

		cp0.Enter(insts.ExcOverflow, 0, true)
		Expect(cp0.Status & 0xF).To(Equal(uint32(0x4)))

		cp0.RFE()

		Expect(cp0.Status & 0xF).To(Equal(uint32(0x5)))
		Expect(cp0.Status & emu.StatusCodeMask).To(BeZero())
		Expect(cp0.Status & emu.StatusBD).To(BeZero())
	})

	It("should expose the cycle counter as two halves", func() {
		cp0.Cycle = 0x0000000100000002

		Expect(cp0.Read(insts.CP0RegCycleLo)).To(Equal(uint32(2)))
		Expect(cp0.Read(insts.CP0RegCycleHi)).To(Equal(uint32(1)))

		cp0.Write(insts.CP0RegCycleHi, 5)
		cp0.Write(insts.CP0RegCycleLo, 6)
		Expect(cp0.Cycle).To(Equal(uint64(0x0000000500000006)))
	})

	It("should ignore writes to unknown registers and read them as zero", func() {
		cp0.Write(insts.CP0Reg(12), 0xFFFFFFFF)
		cp0.Write(insts.CP0RegBadVAddr, 0xFFFFFFFF)

		Expect(cp0.Read(insts.CP0Reg(12))).To(BeZero())
		Expect(cp0.Read(insts.CP0RegBadVAddr)).To(BeZero())
		Expect(cp0.Status).To(BeZero())
	})
})

var _ = Describe("ControlUnit", func() {
	It("should start in the reset state", func() {
		c := emu.NewControlUnit(0x100, true)

		Expect(c.PC()).To(Equal(uint32(0x100)))
		Expect(c.State()).To(Equal(emu.StateReset))
	})

	It("should execute the delay slot before a transfer", func() {
		c := emu.NewControlUnit(0, true)

		Expect(c.LinkAddress()).To(Equal(uint32(8)))
		c.Transfer(emu.StateJump, 0x40)

		Expect(c.State()).To(Equal(emu.StateJump))
		Expect(c.PC()).To(Equal(uint32(4)))
		Expect(c.InDelaySlot()).To(BeTrue())
		Expect(c.BranchPC()).To(Equal(uint32(0)))

		c.Increment()
		Expect(c.PC()).To(Equal(uint32(0x40)))
		Expect(c.InDelaySlot()).To(BeFalse())
	})

	It("should keep a delay slot after an untaken branch", func() {
		c := emu.NewControlUnit(0, true)

		c.NotTaken()

		Expect(c.State()).To(Equal(emu.StateIncrement))
		Expect(c.PC()).To(Equal(uint32(4)))
		Expect(c.InDelaySlot()).To(BeTrue())

		c.Increment()
		Expect(c.PC()).To(Equal(uint32(8)))
	})

	It("should redirect immediately without delay slots", func() {
		c := emu.NewControlUnit(0, false)

		Expect(c.LinkAddress()).To(Equal(uint32(4)))
		c.Transfer(emu.StateBranch, 0x40)

		Expect(c.PC()).To(Equal(uint32(0x40)))
		Expect(c.InDelaySlot()).To(BeFalse())
	})

	It("should go to the vector on a trap", func() {
		c := emu.NewControlUnit(0, true)
		c.Transfer(emu.StateJump, 0x40)

		c.Trap(0x80)

		Expect(c.State()).To(Equal(emu.StateException))
		Expect(c.PC()).To(Equal(uint32(0x80)))
		Expect(c.InDelaySlot()).To(BeFalse())

		c.Increment()
		Expect(c.PC()).To(Equal(uint32(0x84)))
	})

	It("should name its states", func() {
		Expect(emu.StateJumpRegister.String()).To(Equal("jump-register"))
		Expect(emu.PCState(42).String()).To(Equal("PCState(42)"))
	})
})
