package emu

import (
	"fmt"
	"io"
)

// Host call numbers, passed in $v0 following the SPIM conventions.
const (
	SyscallPrintInt    uint32 = 1  // print_int($a0)
	SyscallPrintString uint32 = 4  // print_string($a0)
	SyscallExit        uint32 = 10 // exit(0)
	SyscallPrintChar   uint32 = 11 // print_char($a0)
	SyscallReadChar    uint32 = 12 // $v0 = read_char()
	SyscallOpen        uint32 = 13 // $v0 = open($a0 name, $a1 flags)
	SyscallRead        uint32 = 14 // $v0 = read($a0 fd, $a1 buf, $a2 len)
	SyscallWrite       uint32 = 15 // $v0 = write($a0 fd, $a1 buf, $a2 len)
	SyscallClose       uint32 = 16 // close($a0 fd)
	SyscallExit2       uint32 = 17 // exit($a0)
)

// Registers used by the host call convention.
const (
	RegV0 uint8 = 2
	RegA0 uint8 = 4
	RegA1 uint8 = 5
	RegA2 uint8 = 6
)

// hostCallError is returned in $v0 by failing file calls.
const hostCallError = 0xFFFFFFFF

// maxStringLen bounds string arguments so a missing terminator cannot scan
// all of memory.
const maxStringLen = 4096

// SyscallResult represents the result of a host call.
type SyscallResult struct {
	// Handled is false when the call number is unknown; the emulator then
	// takes the architectural syscall exception instead.
	Handled bool

	// Exited is true if the call terminated the program.
	Exited bool

	// ExitCode is the exit status if Exited is true.
	ExitCode int64

	// Err is set when the call failed at the host level.
	Err error
}

// SyscallHandler services syscall instructions on the host.
type SyscallHandler interface {
	// Handle executes the call indicated by the register file state.
	// MIPS convention: call number in $v0, argument in $a0.
	Handle() SyscallResult
}

// DefaultSyscallHandler implements the SPIM console and file calls.
type DefaultSyscallHandler struct {
	regFile *RegFile
	memory  *Memory
	fdTable *FDTable
	stdin   io.Reader
	stdout  io.Writer
	stderr  io.Writer
}

// NewDefaultSyscallHandler creates a default host call handler.
func NewDefaultSyscallHandler(regFile *RegFile, memory *Memory, stdout, stderr io.Writer) *DefaultSyscallHandler {
	return &DefaultSyscallHandler{
		regFile: regFile,
		memory:  memory,
		fdTable: NewFDTable(),
		stdout:  stdout,
		stderr:  stderr,
	}
}

// SetStdin sets the stdin reader for the syscall handler.
func (h *DefaultSyscallHandler) SetStdin(stdin io.Reader) {
	h.stdin = stdin
}

// FDTable returns the table of files opened by the program.
func (h *DefaultSyscallHandler) FDTable() *FDTable {
	return h.fdTable
}

// Handle executes the host call indicated by the register file state.
func (h *DefaultSyscallHandler) Handle() SyscallResult {
	switch h.regFile.ReadReg(RegV0) {
	case SyscallPrintInt:
		return h.handlePrintInt()
	case SyscallPrintString:
		return h.handlePrintString()
	case SyscallExit:
		return SyscallResult{Handled: true, Exited: true}
	case SyscallPrintChar:
		return h.handlePrintChar()
	case SyscallReadChar:
		return h.handleReadChar()
	case SyscallOpen:
		return h.handleOpen()
	case SyscallRead:
		return h.handleRead()
	case SyscallWrite:
		return h.handleWrite()
	case SyscallClose:
		return h.handleClose()
	case SyscallExit2:
		return SyscallResult{
			Handled:  true,
			Exited:   true,
			ExitCode: int64(int32(h.regFile.ReadReg(RegA0))),
		}
	default:
		return SyscallResult{}
	}
}

func (h *DefaultSyscallHandler) handlePrintInt() SyscallResult {
	v := int32(h.regFile.ReadReg(RegA0))
	if _, err := fmt.Fprintf(h.stdout, "%d", v); err != nil {
		h.reportWriteError(err)
	}
	return SyscallResult{Handled: true}
}

func (h *DefaultSyscallHandler) handlePrintChar() SyscallResult {
	c := byte(h.regFile.ReadReg(RegA0))
	if _, err := h.stdout.Write([]byte{c}); err != nil {
		h.reportWriteError(err)
	}
	return SyscallResult{Handled: true}
}

func (h *DefaultSyscallHandler) handlePrintString() SyscallResult {
	s, err := h.readString(h.regFile.ReadReg(RegA0))
	if err != nil {
		return SyscallResult{Handled: true, Err: fmt.Errorf("print_string: %w", err)}
	}

	if _, err := io.WriteString(h.stdout, s); err != nil {
		h.reportWriteError(err)
	}
	return SyscallResult{Handled: true}
}

// handleReadChar returns the next stdin byte, or -1 at end of input.
func (h *DefaultSyscallHandler) handleReadChar() SyscallResult {
	var buf [1]byte

	if h.stdin == nil {
		h.regFile.WriteReg(RegV0, hostCallError)
		return SyscallResult{Handled: true}
	}

	if n, _ := h.stdin.Read(buf[:]); n == 0 {
		h.regFile.WriteReg(RegV0, hostCallError)
		return SyscallResult{Handled: true}
	}

	h.regFile.WriteReg(RegV0, uint32(buf[0]))
	return SyscallResult{Handled: true}
}

func (h *DefaultSyscallHandler) handleOpen() SyscallResult {
	path, err := h.readString(h.regFile.ReadReg(RegA0))
	if err != nil {
		return SyscallResult{Handled: true, Err: fmt.Errorf("open: %w", err)}
	}

	fd, err := h.fdTable.Open(path, h.regFile.ReadReg(RegA1))
	if err != nil {
		h.regFile.WriteReg(RegV0, hostCallError)
		return SyscallResult{Handled: true}
	}

	h.regFile.WriteReg(RegV0, fd)
	return SyscallResult{Handled: true}
}

func (h *DefaultSyscallHandler) handleRead() SyscallResult {
	fd := h.regFile.ReadReg(RegA0)
	bufPtr := h.regFile.ReadReg(RegA1)
	count := min(h.regFile.ReadReg(RegA2), h.memory.Size())

	var r io.Reader
	if fd == 0 {
		r = h.stdin
	} else if entry, ok := h.fdTable.Get(fd); ok && entry.HostFile != nil {
		r = entry.HostFile
	}

	if r == nil {
		h.regFile.WriteReg(RegV0, hostCallError)
		return SyscallResult{Handled: true}
	}

	// Nothing is consumed from the host unless the whole buffer fits.
	if err := h.memory.check(bufPtr, count); err != nil {
		return SyscallResult{Handled: true, Err: fmt.Errorf("read: %w", err)}
	}

	buf := make([]byte, count)
	n, err := r.Read(buf)
	if err != nil && n == 0 && err != io.EOF {
		h.regFile.WriteReg(RegV0, hostCallError)
		return SyscallResult{Handled: true}
	}

	if err := h.memory.LoadBytes(bufPtr, buf[:n]); err != nil {
		return SyscallResult{Handled: true, Err: fmt.Errorf("read: %w", err)}
	}

	h.regFile.WriteReg(RegV0, uint32(n))
	return SyscallResult{Handled: true}
}

func (h *DefaultSyscallHandler) handleWrite() SyscallResult {
	fd := h.regFile.ReadReg(RegA0)
	bufPtr := h.regFile.ReadReg(RegA1)
	count := min(h.regFile.ReadReg(RegA2), h.memory.Size())

	var w io.Writer
	switch fd {
	case 1:
		w = h.stdout
	case 2:
		w = h.stderr
	default:
		if entry, ok := h.fdTable.Get(fd); ok && entry.HostFile != nil {
			w = entry.HostFile
		}
	}

	if w == nil {
		h.regFile.WriteReg(RegV0, hostCallError)
		return SyscallResult{Handled: true}
	}

	buf := make([]byte, count)
	for i := range buf {
		c, err := h.memory.Read8(bufPtr + uint32(i))
		if err != nil {
			return SyscallResult{Handled: true, Err: fmt.Errorf("write: %w", err)}
		}
		buf[i] = c
	}

	n, err := w.Write(buf)
	if err != nil {
		h.regFile.WriteReg(RegV0, hostCallError)
		return SyscallResult{Handled: true}
	}

	h.regFile.WriteReg(RegV0, uint32(n))
	return SyscallResult{Handled: true}
}

func (h *DefaultSyscallHandler) handleClose() SyscallResult {
	if err := h.fdTable.Close(h.regFile.ReadReg(RegA0)); err != nil {
		h.regFile.WriteReg(RegV0, hostCallError)
		return SyscallResult{Handled: true}
	}

	h.regFile.WriteReg(RegV0, 0)
	return SyscallResult{Handled: true}
}

func (h *DefaultSyscallHandler) resetFiles() {
	h.fdTable.CloseAll()
	h.fdTable = NewFDTable()
}

// readString reads a NUL-terminated string from memory.
func (h *DefaultSyscallHandler) readString(addr uint32) (string, error) {
	buf := make([]byte, 0, 64)
	for i := uint32(0); i < maxStringLen; i++ {
		c, err := h.memory.Read8(addr + i)
		if err != nil {
			return "", err
		}
		if c == 0 {
			break
		}
		buf = append(buf, c)
	}
	return string(buf), nil
}

// Console write failures do not stop the simulated program.
func (h *DefaultSyscallHandler) reportWriteError(err error) {
	_, _ = fmt.Fprintf(h.stderr, "host call output error: %v\n", err)
}
