package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/mipsim/emu"
	"github.com/sarchlab/mipsim/loader"
	"github.com/sarchlab/mipsim/timing/latency"
)

var _ = Describe("mipsim", func() {
	var dir string

	write := func(name, content string) string {
		path := filepath.Join(dir, name)
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		dir = GinkgoT().TempDir()
	})

	DescribeTable("format detection",
		func(path, explicit, want string) {
			got, err := detectFormat(path, explicit)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(want))
		},
		Entry("elf by default", "prog", "", formatELF),
		Entry("raw binary", "prog.BIN", "", formatBin),
		Entry("memory hex", "prog.vmh", "", formatVMH),
		Entry("assembler", "prog.s", "", formatAsm),
		Entry("explicit overrides extension", "prog.s", "bin", formatBin),
	)

	It("should reject an unknown format", func() {
		_, err := detectFormat("prog", "hex")
		Expect(err).To(HaveOccurred())
	})

	It("should load every image format", func() {
		bin := write("p.bin", string([]byte{0x24, 0x02, 0x00, 0x05}))
		vmh := write("p.vmh", "@0\n24020005\n")
		src := write("p.s", "start: li $2, 5\n")

		for _, path := range []string{bin, vmh, src} {
			prog, err := loadProgram(path, "", 0x40)
			Expect(err).NotTo(HaveOccurred(), path)
			Expect(prog.Segments).To(HaveLen(1))
			Expect(prog.Segments[0].Data).To(Equal([]byte{0x24, 0x02, 0x00, 0x05}))
		}

		prog, err := loadProgram(src, "", 0x40)
		Expect(err).NotTo(HaveOccurred())
		Expect(prog.EntryPoint).To(Equal(uint32(0x40)))
		addr, ok := prog.Symbol("start")
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint32(0x40)))
	})

	It("should report assembler errors with the file name", func() {
		src := write("bad.s", "frob $1\n")

		_, err := loadProgram(src, "", 0)

		Expect(err).To(MatchError(ContainSubstring("bad.s")))
	})

	It("should resolve pass and fail addresses", func() {
		prog := loader.FromWords(0, []uint32{0, 0}, map[string]uint32{"pass": 4, "done": 8})

		addr, ok, err := resolveAddress(prog, "", loader.PassSymbol)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeTrue())
		Expect(addr).To(Equal(uint32(4)))

		_, ok, err = resolveAddress(prog, "", loader.FailSymbol)
		Expect(err).NotTo(HaveOccurred())
		Expect(ok).To(BeFalse())

		addr, _, err = resolveAddress(prog, "0x100", loader.FailSymbol)
		Expect(err).NotTo(HaveOccurred())
		Expect(addr).To(Equal(uint32(0x100)))

		addr, _, err = resolveAddress(prog, "done", loader.FailSymbol)
		Expect(err).NotTo(HaveOccurred())
		Expect(addr).To(Equal(uint32(8)))

		_, _, err = resolveAddress(prog, "nowhere", loader.FailSymbol)
		Expect(err).To(HaveOccurred())
	})

	It("should build the cycle model from a timing configuration", func() {
		config := latency.DefaultTimingConfig()
		config.LoadLatency = 7
		path := filepath.Join(dir, "timing.json")
		Expect(config.SaveConfig(path)).To(Succeed())

		model, err := newCycleModel(path, true)

		Expect(err).NotTo(HaveOccurred())
		Expect(model.Table().Config().LoadLatency).To(Equal(uint64(7)))
		Expect(model.ICache()).NotTo(BeNil())
		Expect(model.DCache()).NotTo(BeNil())

		model, err = newCycleModel("", false)
		Expect(err).NotTo(HaveOccurred())
		Expect(model.ICache()).To(BeNil())
	})

	It("should reject an invalid timing configuration", func() {
		path := write("timing.json", `{"alu_latency": 0}`)

		_, err := newCycleModel(path, false)

		Expect(err).To(HaveOccurred())
	})

	It("should select self-test suites", func() {
		all, err := selectSuites("all")
		Expect(err).NotTo(HaveOccurred())
		Expect(len(all)).To(BeNumerically(">", 5))

		some, err := selectSuites("load, store")
		Expect(err).NotTo(HaveOccurred())
		Expect(some).To(HaveLen(2))
		Expect(some[1].Name).To(Equal("store"))

		_, err = selectSuites("nope")
		Expect(err).To(HaveOccurred())
	})

	DescribeTable("exit status",
		func(o emu.Outcome, want int) {
			Expect(exitStatus(o)).To(Equal(want))
		},
		Entry("completed", emu.Outcome{Kind: emu.Completed}, 0),
		Entry("host exit", emu.Outcome{Kind: emu.Completed, ExitCode: 4}, 4),
		Entry("fail", emu.Outcome{Kind: emu.Halted, Reason: emu.HaltFail}, exitFail),
		Entry("exception", emu.Outcome{Kind: emu.Halted, Reason: emu.HaltException}, exitException),
		Entry("cancelled", emu.Outcome{Kind: emu.Halted, Reason: emu.HaltCancelled}, exitCancelled),
		Entry("cycle limit", emu.Outcome{Kind: emu.CycleLimitExceeded}, exitCycleLimit),
	)

	Describe("running programs", func() {
		It("should run an assembler program with host calls", func() {
			src := write("hello.s", `
	li $a0, 42
	li $v0, 1
	syscall
	li $a0, 3
	li $v0, 17
	syscall
`)
			var out bytes.Buffer

			status := runProgram(context.Background(), src, &out)

			Expect(out.String()).To(Equal("42"))
			Expect(status).To(Equal(3))
		})

		It("should stop at the pass label", func() {
			src := write("pass.s", `
	li $2, 1
	b pass
	nop
	nop
pass:	nop
fail:	nop
`)
			Expect(runProgram(context.Background(), src, &bytes.Buffer{})).To(Equal(0))
		})

		It("should stop at the fail label", func() {
			src := write("fail.s", `
	b fail
	nop
pass:	nop
fail:	nop
`)
			Expect(runProgram(context.Background(), src, &bytes.Buffer{})).To(Equal(exitFail))
		})

		It("should run the self-test suites", func() {
			var out bytes.Buffer
			*selfTest = "addiu,branch"
			DeferCleanup(func() { *selfTest = "" })

			status := runSelfTest(context.Background(), &out)

			Expect(status).To(Equal(0))
			Expect(out.String()).To(ContainSubstring("Suite: addiu  PASS"))
			Expect(out.String()).To(ContainSubstring("Suite: branch  PASS"))
		})
	})
})
