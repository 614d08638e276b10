package emu_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/insts"
)

type fixedCycleModel struct {
	cost  uint64
	calls int
	addrs []uint32
}

func (m *fixedCycleModel) Cycles(_ uint32, _ *insts.Instruction, ctrl insts.ControlSignals, dataAddr uint32) uint64 {
	m.calls++
	if ctrl.Mem != insts.MemNone {
		m.addrs = append(m.addrs, dataAddr)
	}
	return m.cost
}

var _ = Describe("Emulator", func() {
	var e *emu.Emulator

	load := func(words ...uint32) {
		Expect(e.LoadWords(0, words)).To(Succeed())
	}

	step := func(n int) emu.StepResult {
		var res emu.StepResult
		for i := 0; i < n; i++ {
			res = e.Step()
			Expect(res.Err).NotTo(HaveOccurred())
		}
		return res
	}

	BeforeEach(func() {
		e = emu.NewEmulator()
	})

	It("should start at the reset vector in the reset state", func() {
		e = emu.NewEmulator(emu.WithResetVector(0x40))

		Expect(e.ReadPC()).To(Equal(uint32(0x40)))
		Expect(e.State()).To(Equal(emu.StateReset))
	})

	It("should add two loaded immediates", func() {
		load(addiu(2, 0, 5), addiu(3, 0, 7), add(4, 2, 3))

		step(3)

		Expect(e.ReadRegister(4)).To(Equal(uint32(12)))
		Expect(e.ReadPC()).To(Equal(uint32(12)))
		Expect(e.State()).To(Equal(emu.StateIncrement))
		Expect(e.InstructionCount()).To(Equal(uint64(3)))
	})

	It("should keep $0 at zero", func() {
		load(addiu(0, 0, 5), add(0, 0, 0))

		step(2)

		Expect(e.ReadRegister(0)).To(BeZero())
	})

	It("should multiply and divide through HI/LO", func() {
		load(
			addiu(2, 0, -5), addiu(3, 0, 3), mult(2, 3), mflo(4), mfhi(5),
			addiu(6, 0, 7), addiu(7, 0, 2), divu(6, 7), mflo(8), mfhi(9),
		)

		step(10)

		Expect(e.ReadRegister(4)).To(Equal(uint32(0xFFFFFFF1)))
		Expect(e.ReadRegister(5)).To(Equal(uint32(0xFFFFFFFF)))
		Expect(e.ReadRegister(8)).To(Equal(uint32(3)))
		Expect(e.ReadRegister(9)).To(Equal(uint32(1)))
		Expect(e.LO()).To(Equal(uint32(3)))
		Expect(e.HI()).To(Equal(uint32(1)))
	})

	It("should sign- and zero-extend byte loads", func() {
		load(addiu(2, 0, 0xFF), sb(2, 0x100, 0), lbu(3, 0x100, 0), lb(4, 0x100, 0))

		step(4)

		Expect(e.ReadRegister(3)).To(Equal(uint32(255)))
		Expect(e.ReadRegister(4)).To(Equal(uint32(0xFFFFFFFF)))
	})

	It("should store words big-endian", func() {
		load(lui(2, 0x1122), ori(2, 2, 0x3344), sw(2, 0x200, 0), lw(3, 0x200, 0))

		step(4)

		Expect(e.ReadRegister(3)).To(Equal(uint32(0x11223344)))
		b, err := e.Memory().Read8(0x200)
		Expect(err).NotTo(HaveOccurred())
		Expect(b).To(Equal(uint8(0x11)))
	})

	Describe("branch delay slots", func() {
		It("should execute the delay slot of a taken branch", func() {
			load(beq(0, 0, 2), addiu(2, 0, 1), addiu(3, 0, 1), addiu(4, 0, 1))

			res := step(1)
			Expect(res.Inst.Op).To(Equal(insts.OpBEQ))
			Expect(e.State()).To(Equal(emu.StateBranch))
			Expect(e.ReadPC()).To(Equal(uint32(4)))

			step(2)

			Expect(e.ReadRegister(2)).To(Equal(uint32(1)))
			Expect(e.ReadRegister(3)).To(BeZero())
			Expect(e.ReadRegister(4)).To(Equal(uint32(1)))
		})

		It("should fall through an untaken branch", func() {
			load(bne(0, 0, 2), addiu(2, 0, 1), addiu(3, 0, 1))

			step(1)
			Expect(e.State()).To(Equal(emu.StateIncrement))

			step(2)
			Expect(e.ReadRegister(2)).To(Equal(uint32(1)))
			Expect(e.ReadRegister(3)).To(Equal(uint32(1)))
		})

		It("should link past the delay slot", func() {
			load(jal(0x10), nop)

			step(1)

			Expect(e.ReadRegister(31)).To(Equal(uint32(8)))
			Expect(e.State()).To(Equal(emu.StateJump))

			step(1)
			Expect(e.ReadPC()).To(Equal(uint32(0x10)))
		})

		It("should link and return through jalr and jr", func() {
			load(addiu(2, 0, 0x20), jalr(31, 2), nop)
			Expect(e.Memory().LoadWords(0x20, []uint32{jr(31), addiu(5, 0, 9)})).To(Succeed())

			step(3)
			Expect(e.ReadRegister(31)).To(Equal(uint32(0xC)))
			Expect(e.ReadPC()).To(Equal(uint32(0x20)))

			step(1)
			Expect(e.State()).To(Equal(emu.StateJumpRegister))

			step(1)
			Expect(e.ReadRegister(5)).To(Equal(uint32(9)))
			Expect(e.ReadPC()).To(Equal(uint32(0xC)))
		})

		It("should write the link register even when not taken", func() {
			load(addiu(2, 0, -1), bgezal(2, 4), nop)

			step(2)

			Expect(e.ReadRegister(31)).To(Equal(uint32(0xC)))
			Expect(e.State()).To(Equal(emu.StateIncrement))
		})

		It("should redirect immediately when disabled", func() {
			e = emu.NewEmulator(emu.WithDelaySlots(false))
			load(beq(0, 0, 1), addiu(2, 0, 1), addiu(3, 0, 1))

			step(1)
			Expect(e.ReadPC()).To(Equal(uint32(8)))

			step(1)
			Expect(e.ReadRegister(2)).To(BeZero())
			Expect(e.ReadRegister(3)).To(Equal(uint32(1)))
		})

		It("should link to the next instruction when disabled", func() {
			e = emu.NewEmulator(emu.WithDelaySlots(false))
			load(jal(0x10))

			step(1)

			Expect(e.ReadRegister(31)).To(Equal(uint32(4)))
			Expect(e.ReadPC()).To(Equal(uint32(0x10)))
		})
	})

	Describe("exceptions", func() {
		It("should save EPC and restore status across syscall and rfe", func() {
			load(addiu(2, 0, 1), mtc0(2, 0), syscall, nop)
			handler := []uint32{mfc0(26, 1), addiu(26, 26, 4), jr(26), rfe}
			Expect(e.Memory().LoadWords(emu.DefaultExceptionVector, handler)).To(Succeed())

			res := step(3)

			Expect(res.Exception).NotTo(BeNil())
			Expect(res.Exception.Code).To(Equal(insts.ExcSyscall))
			Expect(e.State()).To(Equal(emu.StateException))
			Expect(e.ReadPC()).To(Equal(uint32(emu.DefaultExceptionVector)))
			Expect(e.ReadCoprocessor0(insts.CP0RegEPC)).To(Equal(uint32(8)))
			Expect(e.ReadCoprocessor0(insts.CP0RegStatus)).To(Equal(uint32(0x304)))

			step(4)

			Expect(e.ReadCoprocessor0(insts.CP0RegStatus)).To(Equal(uint32(1)))
			Expect(e.ReadPC()).To(Equal(uint32(0xC)))
		})

		It("should trap checked overflow without writing back", func() {
			load(lui(2, 0x7FFF), ori(2, 2, 0xFFFF), addiu(3, 2, 1), addi(4, 2, 1))

			step(3)
			Expect(e.ReadRegister(3)).To(Equal(uint32(0x80000000)))

			res := step(1)
			Expect(res.Exception.Code).To(Equal(insts.ExcOverflow))
			Expect(res.Exception.PC).To(Equal(uint32(0xC)))
			Expect(e.ReadRegister(4)).To(BeZero())
		})

		It("should trap reserved instructions", func() {
			load(0xFC000000)

			res := step(1)

			Expect(res.Exception.Code).To(Equal(insts.ExcReserved))
			Expect(e.ReadCoprocessor0(insts.CP0RegStatus) >> emu.StatusCodeShift).To(Equal(uint32(1)))
		})

		It("should report the branch as EPC for delay-slot faults", func() {
			load(beq(0, 0, 3), breakInst)

			res := step(2)

			Expect(res.Exception.Code).To(Equal(insts.ExcBreak))
			Expect(res.Exception.PC).To(Equal(uint32(4)))
			Expect(res.Exception.EPC).To(Equal(uint32(0)))
			Expect(res.Exception.InDelaySlot).To(BeTrue())
			Expect(e.ReadCoprocessor0(insts.CP0RegStatus) & emu.StatusBD).To(Equal(emu.StatusBD))
		})

		It("should raise an address error for misaligned loads", func() {
			load(addiu(2, 0, 0x102), lw(3, 0, 2))

			res := step(2)

			Expect(res.Exception.Code).To(Equal(insts.ExcAddress))
			Expect(res.Exception.BadAddr).To(Equal(uint32(0x102)))
			Expect(e.ReadCoprocessor0(insts.CP0RegBadVAddr)).To(Equal(uint32(0x102)))
			Expect(e.ReadRegister(3)).To(BeZero())
		})

		It("should allow misaligned loads in permissive mode", func() {
			e = emu.NewEmulator(emu.WithAlignment(emu.AlignPermissive))
			load(addiu(2, 0, 0x102), lw(3, 0, 2))
			Expect(e.Memory().Write32(0x100, 0x11223344)).To(Succeed())
			Expect(e.Memory().Write32(0x104, 0x55667788)).To(Succeed())

			res := step(2)

			Expect(res.Exception).To(BeNil())
			Expect(e.ReadRegister(3)).To(Equal(uint32(0x33445566)))
		})

		It("should raise an address error at a misaligned jump register", func() {
			load(addiu(2, 0, 6), jr(2))

			res := step(2)

			Expect(res.Exception.Code).To(Equal(insts.ExcAddress))
			Expect(res.Exception.PC).To(Equal(uint32(4)))
			Expect(e.ReadPC()).To(Equal(uint32(emu.DefaultExceptionVector)))
			Expect(e.ReadCoprocessor0(insts.CP0RegBadVAddr)).To(Equal(uint32(6)))
		})

		It("should use a configured exception vector", func() {
			e = emu.NewEmulator(emu.WithExceptionVector(0x400))
			load(breakInst)

			step(1)

			Expect(e.ReadPC()).To(Equal(uint32(0x400)))
		})
	})

	Describe("coprocessor 0", func() {
		It("should count cycles and keep mtc0 writes to the counter", func() {
			load(addiu(2, 0, 100), mtc0(2, 2), mfc0(3, 2), mfc0(4, 3))

			step(4)

			Expect(e.ReadRegister(3)).To(Equal(uint32(101)))
			Expect(e.ReadRegister(4)).To(BeZero())
			Expect(e.ReadCoprocessor0(insts.CP0RegCycleLo)).To(Equal(uint32(102)))
		})

		It("should ignore mtc0 to unknown registers", func() {
			load(addiu(2, 0, 7), mtc0(2, 12), mfc0(3, 12))

			step(3)

			Expect(e.ReadRegister(3)).To(BeZero())
			Expect(e.ReadCoprocessor0(insts.CP0RegStatus)).To(BeZero())
		})

		It("should charge cycles from the cycle model", func() {
			model := &fixedCycleModel{cost: 5}
			e = emu.NewEmulator(emu.WithCycleModel(model))
			load(addiu(2, 0, 0x40), lw(3, 8, 2), nop)

			step(3)

			Expect(model.calls).To(Equal(3))
			Expect(model.addrs).To(Equal([]uint32{0x48}))
			Expect(e.Coprocessor0().Cycle).To(Equal(uint64(15)))
		})
	})

	Describe("Run", func() {
		It("should complete at the pass address", func() {
			e = emu.NewEmulator(emu.WithPassAddress(0x100), emu.WithFailAddress(0x200))
			load(addiu(2, 0, 1), j(0x100), nop)

			outcome, err := e.Run(context.Background(), 100)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Kind).To(Equal(emu.Completed))
			Expect(outcome.Steps).To(Equal(uint64(3)))
		})

		It("should halt at the fail address", func() {
			e = emu.NewEmulator(emu.WithPassAddress(0x100), emu.WithFailAddress(0x200))
			load(j(0x200), nop)

			outcome, err := e.Run(context.Background(), 100)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Kind).To(Equal(emu.Halted))
			Expect(outcome.Reason).To(Equal(emu.HaltFail))
			Expect(outcome.String()).To(Equal("halted (fail)"))
		})

		It("should stop after the cycle budget", func() {
			load(beq(0, 0, -1), nop)

			outcome, err := e.Run(context.Background(), 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Kind).To(Equal(emu.CycleLimitExceeded))
			Expect(outcome.Steps).To(Equal(uint64(10)))
			Expect(e.InstructionCount()).To(Equal(uint64(10)))
		})

		It("should halt on exceptions when asked", func() {
			e = emu.NewEmulator(emu.WithHaltOnException(true))
			load(nop, breakInst)

			outcome, err := e.Run(context.Background(), 10)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Kind).To(Equal(emu.Halted))
			Expect(outcome.Reason).To(Equal(emu.HaltException))
			Expect(outcome.Exception.Code).To(Equal(insts.ExcBreak))
		})

		It("should halt when the context is cancelled", func() {
			load(beq(0, 0, -1), nop)
			ctx, cancel := context.WithCancel(context.Background())
			cancel()

			outcome, err := e.Run(ctx, 0)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Reason).To(Equal(emu.HaltCancelled))
			Expect(outcome.Steps).To(BeZero())
		})

		It("should return out-of-range fetches as errors", func() {
			e = emu.NewEmulator(emu.WithMemorySize(0x100))
			load(j(0x200), nop)

			_, err := e.Run(context.Background(), 10)

			Expect(err).To(MatchError(emu.ErrAddressOutOfRange))
		})
	})

	Describe("host calls", func() {
		var stdout *bytes.Buffer

		BeforeEach(func() {
			stdout = new(bytes.Buffer)
			e = emu.NewEmulator(emu.WithHostCalls(true), emu.WithStdout(stdout))
		})

		It("should print and exit", func() {
			Expect(e.Memory().LoadBytes(0x200, []byte("hi\x00"))).To(Succeed())
			load(
				addiu(2, 0, 4), addiu(4, 0, 0x200), syscall,
				addiu(2, 0, 1), addiu(4, 0, -42), syscall,
				addiu(2, 0, 11), addiu(4, 0, '!'), syscall,
				addiu(2, 0, 17), addiu(4, 0, 3), syscall,
			)

			outcome, err := e.Run(context.Background(), 100)

			Expect(err).NotTo(HaveOccurred())
			Expect(outcome.Kind).To(Equal(emu.Completed))
			Expect(outcome.ExitCode).To(Equal(int64(3)))
			Expect(stdout.String()).To(Equal("hi-42!"))
		})

		It("should fall back to the exception for unknown calls", func() {
			load(addiu(2, 0, 99), syscall)

			res := step(2)

			Expect(res.Exception).NotTo(BeNil())
			Expect(res.Exception.Code).To(Equal(insts.ExcSyscall))
		})

		It("should trace executed instructions", func() {
			trace := new(bytes.Buffer)
			e = emu.NewEmulator(emu.WithTrace(trace))
			load(addiu(2, 0, 5))

			step(1)

			Expect(trace.String()).To(Equal("00000000: 24020005  addiu $2, $0, 5\n"))
		})
	})

	It("should reset to a clean state", func() {
		load(addiu(2, 0, 5), addiu(3, 0, 7))
		step(2)

		e.Reset()

		Expect(e.ReadRegister(2)).To(BeZero())
		Expect(e.ReadPC()).To(BeZero())
		Expect(e.InstructionCount()).To(BeZero())
		Expect(e.ReadMemoryWord(0)).To(BeZero())
	})

	It("should reject misaligned entry points", func() {
		Expect(e.LoadWords(2, []uint32{nop})).To(HaveOccurred())
	})
})
