// Package main provides mipsmem, which converts a raw big-endian memory image
// into a Verilog memory hex file.
//
// Usage:
//
//	mipsmem input.bin output.vmh
package main

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/sarchlab/mipsim/loader"
)

// maxWords is the capacity of the target memory, in words.
const maxWords = 16384

var errTooBig = errors.New("image too big")

// convert reads a raw image from in and writes it to out as memory hex.
func convert(in io.Reader, out io.Writer) error {
	words, err := loader.ReadWords(in)
	if err != nil {
		return err
	}

	if len(words) > maxWords {
		return fmt.Errorf("%w: %d words, limit %d", errTooBig, len(words), maxWords)
	}

	return loader.WriteVMH(out, words)
}

func main() {
	log.SetFlags(0)
	log.SetPrefix("mipsmem: ")

	if len(os.Args) != 3 {
		fmt.Fprintf(os.Stderr, "Usage: mipsmem input.bin output.vmh\n")
		os.Exit(1)
	}

	in, err := os.Open(os.Args[1])
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(os.Args[2])
	if err != nil {
		log.Fatalf("%v", err)
	}

	if err := convert(in, out); err != nil {
		_ = out.Close()
		_ = os.Remove(os.Args[2])
		log.Fatalf("%s: %v", os.Args[1], err)
	}

	if err := out.Close(); err != nil {
		log.Fatalf("%v", err)
	}
}
