// Package insts provides MIPS-I instruction definitions, control signals and
// decoding.
//
// Every instruction word decodes into an Instruction (its fields) and a
// ControlSignals record (the datapath selectors the processor's control unit
// drives for it). It supports:
//   - ALU: add/sub, set-less-than, boolean and shifter operations,
//     register and immediate forms
//   - Multiply/divide: mult, multu, div, divu and the HI/LO moves
//   - Memory: byte/half/word loads and stores, lwl/lwr/swl/swr
//   - Control flow: beq, bne, blez, bgtz, bltz, bgez (with link), j, jal,
//     jr, jalr
//   - System: syscall, break, mfc0, mtc0, rfe
//
// Usage:
//
//	decoder := insts.NewDecoder()
//	inst, ctrl := decoder.Decode(0x00432021) // addu $4, $2, $3
//	fmt.Printf("%v unit=%v wa=%v\n", inst, ctrl.Unit, ctrl.WA)
package insts
