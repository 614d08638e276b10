package emu

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sarchlab/mipsim/insts"
)

// DefaultExceptionVector is the fetch address after an exception.
const DefaultExceptionVector = 0x80

// StepResult represents the result of executing a single instruction.
type StepResult struct {
	// PC is the address of the executed instruction.
	PC uint32

	// Inst is the decoded instruction, nil if the fetch failed.
	Inst *insts.Instruction

	// Exception is set if the instruction raised an exception.
	Exception *Exception

	// Exited is true if the program terminated (via exit host call).
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is set if a harness-level error occurred during execution.
	Err error
}

// Segment is a block of bytes to place in memory.
type Segment struct {
	Addr uint32
	Data []byte
}

// Emulator executes MIPS instructions functionally.
type Emulator struct {
	regFile        *RegFile
	cp0            *Coprocessor0
	memory         *Memory
	decoder        *insts.Decoder
	syscallHandler SyscallHandler

	// Execution units
	alu        *ALU
	mulDiv     *MulDivUnit
	mem        *MemoryUnit
	branchUnit *BranchUnit
	control    *ControlUnit

	// Configuration
	memorySize      uint32
	alignment       AlignmentPolicy
	delaySlots      bool
	resetVector     uint32
	exceptionVector uint32
	passAddr        *uint32
	failAddr        *uint32
	haltOnException bool
	hostCalls       bool
	cycleModel      CycleModel

	// I/O
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer
	trace  io.Writer

	// Execution state
	instructionCount uint64
}

// EmulatorOption is a functional option for configuring the Emulator.
type EmulatorOption func(*Emulator)

// WithMemorySize sets the physical memory size in bytes.
func WithMemorySize(size uint32) EmulatorOption {
	return func(e *Emulator) {
		e.memorySize = size
	}
}

// WithAlignment sets the policy for misaligned halfword and word accesses.
func WithAlignment(policy AlignmentPolicy) EmulatorOption {
	return func(e *Emulator) {
		e.alignment = policy
	}
}

// WithDelaySlots enables or disables branch delay slots. They are enabled
// by default.
func WithDelaySlots(enabled bool) EmulatorOption {
	return func(e *Emulator) {
		e.delaySlots = enabled
	}
}

// WithResetVector sets the initial PC. The low two bits are ignored.
func WithResetVector(addr uint32) EmulatorOption {
	return func(e *Emulator) {
		e.resetVector = addr &^ 3
	}
}

// WithExceptionVector sets the fetch address after an exception. The low
// two bits are ignored.
func WithExceptionVector(addr uint32) EmulatorOption {
	return func(e *Emulator) {
		e.exceptionVector = addr &^ 3
	}
}

// WithPassAddress makes Run complete when the PC reaches addr.
func WithPassAddress(addr uint32) EmulatorOption {
	return func(e *Emulator) {
		e.passAddr = &addr
	}
}

// WithFailAddress makes Run halt when the PC reaches addr.
func WithFailAddress(addr uint32) EmulatorOption {
	return func(e *Emulator) {
		e.failAddr = &addr
	}
}

// WithHaltOnException makes Run halt on the first exception instead of
// entering the exception vector and continuing.
func WithHaltOnException(halt bool) EmulatorOption {
	return func(e *Emulator) {
		e.haltOnException = halt
	}
}

// WithHostCalls services syscall instructions on the host using the SPIM
// conventions instead of taking the syscall exception.
func WithHostCalls(enabled bool) EmulatorOption {
	return func(e *Emulator) {
		e.hostCalls = enabled
	}
}

// WithSyscallHandler sets a custom host call handler and enables host calls.
func WithSyscallHandler(handler SyscallHandler) EmulatorOption {
	return func(e *Emulator) {
		e.syscallHandler = handler
		e.hostCalls = true
	}
}

// WithStdin sets the reader serving the read host calls.
func WithStdin(r io.Reader) EmulatorOption {
	return func(e *Emulator) {
		e.stdin = r
	}
}

// WithStdout sets a custom stdout writer.
func WithStdout(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stdout = w
	}
}

// WithStderr sets a custom stderr writer.
func WithStderr(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.stderr = w
	}
}

// WithCycleModel sets the model that advances the cycle counter.
func WithCycleModel(model CycleModel) EmulatorOption {
	return func(e *Emulator) {
		e.cycleModel = model
	}
}

// WithTrace writes one line per executed instruction to w.
func WithTrace(w io.Writer) EmulatorOption {
	return func(e *Emulator) {
		e.trace = w
	}
}

// NewEmulator creates a new MIPS emulator.
func NewEmulator(opts ...EmulatorOption) *Emulator {
	e := &Emulator{
		regFile:         &RegFile{},
		cp0:             &Coprocessor0{},
		decoder:         insts.NewDecoder(),
		memorySize:      DefaultMemorySize,
		alignment:       AlignStrict,
		delaySlots:      true,
		exceptionVector: DefaultExceptionVector,
		cycleModel:      SingleCycleModel{},
		stdout:          os.Stdout,
		stderr:          os.Stderr,
	}

	// Apply options first (may set memory size and stdout/stderr)
	for _, opt := range opts {
		opt(e)
	}

	// Create memory and execution units
	e.memory = NewMemory(e.memorySize)
	e.alu = NewALU()
	e.mulDiv = NewMulDivUnit(e.regFile)
	e.mem = NewMemoryUnit(e.memory, e.alignment)
	e.branchUnit = NewBranchUnit()
	e.control = NewControlUnit(e.resetVector, e.delaySlots)

	// If no syscall handler was provided, create a default one
	if e.syscallHandler == nil {
		handler := NewDefaultSyscallHandler(e.regFile, e.memory, e.stdout, e.stderr)
		handler.SetStdin(e.stdin)
		e.syscallHandler = handler
	}

	return e
}

// RegFile returns the emulator's register file.
func (e *Emulator) RegFile() *RegFile {
	return e.regFile
}

// Memory returns the emulator's memory.
func (e *Emulator) Memory() *Memory {
	return e.memory
}

// Coprocessor0 returns the emulator's system control registers.
func (e *Emulator) Coprocessor0() *Coprocessor0 {
	return e.cp0
}

// InstructionCount returns the number of instructions executed, including
// those that raised an exception.
func (e *Emulator) InstructionCount() uint64 {
	return e.instructionCount
}

// ReadRegister returns general register reg.
func (e *Emulator) ReadRegister(reg uint8) uint32 {
	return e.regFile.ReadReg(reg)
}

// WriteRegister sets general register reg. Writes to $0 are ignored.
func (e *Emulator) WriteRegister(reg uint8, value uint32) {
	e.regFile.WriteReg(reg, value)
}

// ReadMemoryWord reads the big-endian word at addr.
func (e *Emulator) ReadMemoryWord(addr uint32) (uint32, error) {
	return e.memory.Read32(addr)
}

// ReadPC returns the address of the next instruction to execute.
func (e *Emulator) ReadPC() uint32 {
	return e.control.PC()
}

// ReadCoprocessor0 returns a coprocessor 0 register, as mfc0 would.
func (e *Emulator) ReadCoprocessor0(reg insts.CP0Reg) uint32 {
	return e.cp0.Read(reg)
}

// HI returns the HI register.
func (e *Emulator) HI() uint32 {
	return e.regFile.HI
}

// LO returns the LO register.
func (e *Emulator) LO() uint32 {
	return e.regFile.LO
}

// State returns the control unit state left by the last instruction.
func (e *Emulator) State() PCState {
	return e.control.State()
}

// Load copies the segments into memory and sets the PC to entry.
func (e *Emulator) Load(entry uint32, segments ...Segment) error {
	if entry&3 != 0 {
		return fmt.Errorf("entry point 0x%08x is not word aligned", entry)
	}

	for _, seg := range segments {
		if err := e.memory.LoadBytes(seg.Addr, seg.Data); err != nil {
			return fmt.Errorf("loading segment at 0x%08x: %w", seg.Addr, err)
		}
	}

	e.control.Reset(entry)
	return nil
}

// LoadWords stores the program words starting at entry and sets the PC to
// entry.
func (e *Emulator) LoadWords(entry uint32, words []uint32) error {
	if entry&3 != 0 {
		return fmt.Errorf("entry point 0x%08x is not word aligned", entry)
	}

	if err := e.memory.LoadWords(entry, words); err != nil {
		return fmt.Errorf("loading program at 0x%08x: %w", entry, err)
	}

	e.control.Reset(entry)
	return nil
}

// Reset resets the emulator to its initial state.
func (e *Emulator) Reset() {
	*e.regFile = RegFile{}
	e.cp0.Reset()
	e.memory.Clear()
	e.control.Reset(e.resetVector)
	e.instructionCount = 0

	if h, ok := e.syscallHandler.(*DefaultSyscallHandler); ok {
		h.resetFiles()
	}
}

// Step executes a single instruction.
func (e *Emulator) Step() StepResult {
	pc := e.control.PC()

	// 1. Fetch
	word, err := e.memory.Read32(pc)
	if err != nil {
		return StepResult{PC: pc, Err: fmt.Errorf("fetch: %w", err)}
	}

	// 2. Decode
	inst, ctrl := e.decoder.Decode(word)

	if e.trace != nil {
		_, _ = fmt.Fprintf(e.trace, "%08x: %08x  %s\n", pc, word, inst)
	}

	// The cycle counter advances before execution so an mtc0 to
	// cyclelo/cyclehi in this instruction is not overwritten.
	e.cp0.Cycle += e.cycleModel.Cycles(pc, inst, ctrl, e.dataAddress(inst, ctrl))

	// 3. Execute and write back
	result := e.execute(pc, inst, ctrl)
	result.PC = pc
	result.Inst = inst

	e.instructionCount++

	return result
}

// Run executes instructions until a halt condition is reached. maxCycles
// bounds the number of steps taken by this call; zero means no bound.
// Only harness-level failures are returned as errors.
func (e *Emulator) Run(ctx context.Context, maxCycles uint64) (Outcome, error) {
	var steps uint64

	for {
		pc := e.control.PC()

		if e.passAddr != nil && pc == *e.passAddr {
			return Outcome{Kind: Completed, Steps: steps}, nil
		}
		if e.failAddr != nil && pc == *e.failAddr {
			return Outcome{Kind: Halted, Reason: HaltFail, Steps: steps}, nil
		}
		if maxCycles > 0 && steps >= maxCycles {
			return Outcome{Kind: CycleLimitExceeded, Steps: steps}, nil
		}
		if ctx.Err() != nil {
			return Outcome{Kind: Halted, Reason: HaltCancelled, Steps: steps}, nil
		}

		result := e.Step()
		steps++

		if result.Err != nil {
			return Outcome{Steps: steps}, fmt.Errorf("at pc 0x%08x: %w", result.PC, result.Err)
		}
		if result.Exited {
			return Outcome{Kind: Completed, ExitCode: result.ExitCode, Steps: steps}, nil
		}
		if result.Exception != nil && e.haltOnException {
			return Outcome{
				Kind:      Halted,
				Reason:    HaltException,
				Exception: result.Exception,
				Steps:     steps,
			}, nil
		}
	}
}

func (e *Emulator) dataAddress(inst *insts.Instruction, ctrl insts.ControlSignals) uint32 {
	if ctrl.Mem == insts.MemNone {
		return 0
	}
	return e.regFile.ReadReg(inst.Rs) + inst.SignExtImm()
}

// operands returns the ALU A and B inputs selected by ctrl.
func (e *Emulator) operands(inst *insts.Instruction, ctrl insts.ControlSignals) (a, b uint32) {
	switch ctrl.A {
	case insts.ARs:
		a = e.regFile.ReadReg(inst.Rs)
	case insts.A16:
		a = 16
	case insts.AShamt:
		a = uint32(inst.Shamt)
	}

	switch ctrl.B {
	case insts.BRt:
		b = e.regFile.ReadReg(inst.Rt)
	case insts.BImm:
		b = inst.ZeroExtImm()
	case insts.BSxtImm:
		b = inst.SignExtImm()
	}

	return a, b
}

// execute performs one decoded instruction and moves the control unit.
func (e *Emulator) execute(pc uint32, inst *insts.Instruction, ctrl insts.ControlSignals) StepResult {
	if ctrl.Exc != insts.ExcNone {
		return e.executeTrap(pc, ctrl.Exc)
	}

	a, b := e.operands(inst, ctrl)

	switch ctrl.PC {
	case insts.PCBranch:
		e.executeBranch(pc, inst, ctrl, a, b)
		return StepResult{}
	case insts.PCJump:
		e.writeBack(inst, ctrl, e.control.LinkAddress())
		e.control.Transfer(StateJump, inst.JumpTarget(pc))
		return StepResult{}
	case insts.PCJumpReg:
		if a&3 != 0 {
			return e.raise(pc, insts.ExcAddress, a)
		}
		e.writeBack(inst, ctrl, e.control.LinkAddress())
		e.control.Transfer(StateJumpRegister, a)
		return StepResult{}
	}

	if ctrl.MulDiv != insts.MulDivNone {
		e.mulDiv.Issue(ctrl.MulDiv, a, b)
		e.control.Increment()
		return StepResult{}
	}

	var value uint32

	if ctrl.Unit != insts.UnitUnspecified {
		res := e.alu.Evaluate(ctrl, a, b)
		if res.Overflow {
			return e.raise(pc, insts.ExcOverflow, 0)
		}
		value = res.Value
	}

	switch ctrl.Mem {
	case insts.MemRead:
		loaded, err := e.load(inst, ctrl, value)
		if err != nil {
			return e.memoryFault(pc, err)
		}
		value = loaded
	case insts.MemWrite:
		if err := e.store(inst, ctrl, value); err != nil {
			return e.memoryFault(pc, err)
		}
	}

	switch ctrl.CP0 {
	case insts.CP0MTC0:
		e.cp0.Write(insts.CP0Reg(inst.Rd), b)
	case insts.CP0RFE:
		e.cp0.RFE()
	}

	if ctrl.WB == insts.WBCoproc {
		value = e.coprocessorValue(inst, ctrl)
	}

	e.writeBack(inst, ctrl, value)
	e.control.Increment()

	return StepResult{}
}

func (e *Emulator) executeBranch(pc uint32, inst *insts.Instruction, ctrl insts.ControlSignals, a, b uint32) {
	// The and-link forms write $31 whether or not the branch is taken.
	e.writeBack(inst, ctrl, e.control.LinkAddress())

	if !e.branchUnit.Decide(ctrl.Branch, a, b) {
		e.control.NotTaken()
		return
	}

	target := pc + 4 + uint32(inst.BranchOffset())
	e.control.Transfer(StateBranch, target)
}

// executeTrap handles syscall, break and reserved instructions.
func (e *Emulator) executeTrap(pc uint32, code insts.ExcCode) StepResult {
	if code == insts.ExcSyscall && e.hostCalls {
		res := e.syscallHandler.Handle()
		if res.Err != nil {
			return StepResult{Err: res.Err}
		}
		if res.Handled {
			e.control.Increment()
			return StepResult{Exited: res.Exited, ExitCode: res.ExitCode}
		}
	}

	return e.raise(pc, code, 0)
}

func (e *Emulator) load(inst *insts.Instruction, ctrl insts.ControlSignals, addr uint32) (uint32, error) {
	if ctrl.MemSize == insts.MemSizePartial {
		return e.mem.LoadPartial(addr, ctrl.MemLeft, e.regFile.ReadReg(inst.Rt))
	}
	return e.mem.Load(addr, ctrl.MemSize, ctrl.MemSign)
}

func (e *Emulator) store(inst *insts.Instruction, ctrl insts.ControlSignals, addr uint32) error {
	rt := e.regFile.ReadReg(inst.Rt)
	if ctrl.MemSize == insts.MemSizePartial {
		return e.mem.StorePartial(addr, ctrl.MemLeft, rt)
	}
	return e.mem.Store(addr, ctrl.MemSize, rt)
}

// memoryFault routes alignment errors to an address-error exception and
// reports everything else as a harness-level failure.
func (e *Emulator) memoryFault(pc uint32, err error) StepResult {
	var ae *AlignmentError
	if errors.As(err, &ae) {
		return e.raise(pc, insts.ExcAddress, ae.Addr)
	}
	return StepResult{Err: err}
}

func (e *Emulator) coprocessorValue(inst *insts.Instruction, ctrl insts.ControlSignals) uint32 {
	switch ctrl.CPSel {
	case insts.CPSelHI:
		return e.regFile.HI
	case insts.CPSelLO:
		return e.regFile.LO
	case insts.CPSelCP0:
		return e.cp0.Read(insts.CP0Reg(inst.Rd))
	default:
		return 0
	}
}

func (e *Emulator) writeBack(inst *insts.Instruction, ctrl insts.ControlSignals, value uint32) {
	switch ctrl.WA {
	case insts.WARt:
		e.regFile.WriteReg(inst.Rt, value)
	case insts.WARd:
		e.regFile.WriteReg(inst.Rd, value)
	case insts.WA31:
		e.regFile.WriteReg(31, value)
	}
}

// raise enters the exception state for the instruction at pc.
func (e *Emulator) raise(pc uint32, code insts.ExcCode, badAddr uint32) StepResult {
	exc := &Exception{
		Code:        code,
		PC:          pc,
		EPC:         pc,
		BadAddr:     badAddr,
		InDelaySlot: e.control.InDelaySlot(),
	}
	if exc.InDelaySlot {
		exc.EPC = e.control.BranchPC()
	}

	e.cp0.Enter(code, exc.EPC, exc.InDelaySlot)
	if code == insts.ExcAddress {
		e.cp0.BadVAddr = badAddr
	}
	e.control.Trap(e.exceptionVector)

	return StepResult{Exception: exc}
}
