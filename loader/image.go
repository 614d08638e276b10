package loader

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// ReadWords reads a raw big-endian image as 32-bit words. A trailing partial
// word is zero-padded on the right.
func ReadWords(r io.Reader) ([]uint32, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}

	if rem := len(data) % 4; rem != 0 {
		data = append(data, make([]byte, 4-rem)...)
	}

	words := make([]uint32, len(data)/4)
	for i := range words {
		words[i] = binary.BigEndian.Uint32(data[i*4:])
	}

	return words, nil
}

// LoadBinary reads a raw big-endian image and places it at base. The entry
// point is base.
func LoadBinary(r io.Reader, base uint32) (*Program, error) {
	words, err := ReadWords(r)
	if err != nil {
		return nil, err
	}

	return programFromWords(base, words), nil
}

// LoadVMH reads a Verilog memory hex file: "@addr" lines set the word address
// of the following words, every other field is one hexadecimal word. "//"
// starts a comment. The entry point is the first word address times four.
func LoadVMH(r io.Reader) (*Program, error) {
	prog := &Program{Symbols: make(map[string]uint32)}

	var (
		addr    uint32
		current *Segment
		started bool
	)

	scanner := bufio.NewScanner(r)
	lineNo := 0

	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if i := strings.Index(line, "//"); i >= 0 {
			line = line[:i]
		}

		for _, field := range strings.Fields(line) {
			if strings.HasPrefix(field, "@") {
				v, err := strconv.ParseUint(field[1:], 16, 32)
				if err != nil {
					return nil, fmt.Errorf("vmh line %d: bad address %q", lineNo, field)
				}
				addr = uint32(v) * 4
				current = nil
				continue
			}

			w, err := strconv.ParseUint(field, 16, 32)
			if err != nil {
				return nil, fmt.Errorf("vmh line %d: bad word %q", lineNo, field)
			}

			if current == nil {
				prog.Segments = append(prog.Segments, Segment{
					VirtAddr: addr,
					Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
				})
				current = &prog.Segments[len(prog.Segments)-1]
				if !started {
					prog.EntryPoint = addr
					started = true
				}
			}

			current.Data = binary.BigEndian.AppendUint32(current.Data, uint32(w))
			current.MemSize += 4
			addr += 4
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read vmh: %w", err)
	}

	return prog, nil
}

// WriteVMH writes words as a memory hex file starting at word address 0.
func WriteVMH(w io.Writer, words []uint32) error {
	bw := bufio.NewWriter(w)

	if _, err := fmt.Fprintln(bw, "@0"); err != nil {
		return err
	}

	for _, word := range words {
		if _, err := fmt.Fprintf(bw, "%08x\n", word); err != nil {
			return err
		}
	}

	return bw.Flush()
}

func programFromWords(base uint32, words []uint32) *Program {
	data := make([]byte, 0, len(words)*4)
	for _, w := range words {
		data = binary.BigEndian.AppendUint32(data, w)
	}

	return &Program{
		EntryPoint: base,
		Segments: []Segment{{
			VirtAddr: base,
			Data:     data,
			MemSize:  uint32(len(data)),
			Flags:    SegmentFlagRead | SegmentFlagWrite | SegmentFlagExecute,
		}},
		Symbols: make(map[string]uint32),
	}
}

// FromWords builds a single-segment program from words placed at base, with
// the given symbols. It is the form the assembler's output takes.
func FromWords(base uint32, words []uint32, symbols map[string]uint32) *Program {
	prog := programFromWords(base, words)
	for name, addr := range symbols {
		prog.Symbols[name] = addr
	}
	return prog
}
