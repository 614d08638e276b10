// Package main provides the entry point for mipsim.
// mipsim is an architectural MIPS-I simulator with an instruction cycle
// model built on Akita caches.
//
// For the full CLI, use: go run ./cmd/mipsim
package main

import (
	"fmt"
	"os"
)

func main() {
	fmt.Println("mipsim - MIPS-I architectural simulator")
	fmt.Println("")
	fmt.Println("Usage: mipsim [options] <program>")
	fmt.Println("       mipsim -selftest all")
	fmt.Println("       mipsmem input.bin output.vmh")
	fmt.Println("")
	fmt.Println("Programs may be ELF executables, raw binaries (.bin),")
	fmt.Println("memory hex files (.vmh) or assembler sources (.s).")
	fmt.Println("")
	fmt.Println("Run 'go run ./cmd/mipsim -h' for the full list of options.")

	if len(os.Args) > 1 {
		fmt.Println("\nNote: You provided arguments. Use 'go run ./cmd/mipsim' instead.")
	}
}
