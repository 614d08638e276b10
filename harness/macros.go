package harness

import (
	"fmt"
	"strings"
)

// Test is one self-checking test case in assembler source form. On a
// mismatch the case branches to the fail label with its number in $30.
// Num must be nonzero and unique within a suite.
type Test struct {
	Num    int
	Source string
}

// block accumulates the source of one test case.
type block struct {
	sb strings.Builder
}

func (b *block) label(name string) {
	fmt.Fprintf(&b.sb, "%s:\n", name)
}

func (b *block) op(format string, args ...any) {
	fmt.Fprintf(&b.sb, "\t"+format+"\n", args...)
}

// nops inserts n bubble instructions.
func (b *block) nops(n int) {
	for range n {
		b.op("nop")
	}
}

func (b *block) String() string {
	return b.sb.String()
}

func newBlock(num int) *block {
	b := &block{}
	b.label(fmt.Sprintf("test_%d", num))
	return b
}

// TestCase runs code and checks that reg holds result afterwards.
func TestCase(num int, reg string, result int64, code ...string) Test {
	b := newBlock(num)
	for _, c := range code {
		b.op("%s", c)
	}
	b.op("li $29, %d", result)
	b.op("li $30, %d", num)
	b.op("bne %s, $29, fail", reg)
	b.op("nop")

	return Test{Num: num, Source: b.String()}
}

// ImmOp checks "inst $4, $2, imm" with $2 = val1.
func ImmOp(num int, inst string, result, val1, imm int64) Test {
	return TestCase(num, "$4", result,
		fmt.Sprintf("li $2, %d", val1),
		fmt.Sprintf("%s $4, $2, %d", inst, imm),
	)
}

// ImmSrc1EqDest checks an immediate operation whose source is its
// destination.
func ImmSrc1EqDest(num int, inst string, result, val1, imm int64) Test {
	return TestCase(num, "$2", result,
		fmt.Sprintf("li $2, %d", val1),
		fmt.Sprintf("%s $2, $2, %d", inst, imm),
	)
}

// bypassLoop wraps body in the two-iteration loop shared by the bypass
// cases. $5 counts iterations.
func bypassLoop(body ...string) []string {
	code := []string{"li $5, 0", "1:"}
	code = append(code, body...)
	return append(code, "addiu $5, $5, 1", "li $6, 2", "bne $5, $6, 1b", "nop")
}

func nopList(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = "nop"
	}
	return out
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// ImmDestBypass consumes the result of an immediate operation after nops
// bubbles.
func ImmDestBypass(num, nops int, inst string, result, val1, imm int64) Test {
	return TestCase(num, "$7", result, bypassLoop(concat(
		[]string{
			fmt.Sprintf("li $2, %d", val1),
			fmt.Sprintf("%s $4, $2, %d", inst, imm),
		},
		nopList(nops),
		[]string{"addiu $7, $4, 0"},
	)...)...)
}

// ImmSrc1Bypass produces the source of an immediate operation nops bubbles
// before it.
func ImmSrc1Bypass(num, nops int, inst string, result, val1, imm int64) Test {
	return TestCase(num, "$4", result, bypassLoop(concat(
		[]string{fmt.Sprintf("li $2, %d", val1)},
		nopList(nops),
		[]string{fmt.Sprintf("%s $4, $2, %d", inst, imm)},
	)...)...)
}

// RROp checks "inst $4, $2, $3".
func RROp(num int, inst string, result, val1, val2 int64) Test {
	return TestCase(num, "$4", result,
		fmt.Sprintf("li $2, %d", val1),
		fmt.Sprintf("li $3, %d", val2),
		fmt.Sprintf("%s $4, $2, $3", inst),
	)
}

// RRSrc1EqDest checks "inst $2, $2, $3".
func RRSrc1EqDest(num int, inst string, result, val1, val2 int64) Test {
	return TestCase(num, "$2", result,
		fmt.Sprintf("li $2, %d", val1),
		fmt.Sprintf("li $3, %d", val2),
		fmt.Sprintf("%s $2, $2, $3", inst),
	)
}

// RRSrc2EqDest checks "inst $3, $2, $3".
func RRSrc2EqDest(num int, inst string, result, val1, val2 int64) Test {
	return TestCase(num, "$3", result,
		fmt.Sprintf("li $2, %d", val1),
		fmt.Sprintf("li $3, %d", val2),
		fmt.Sprintf("%s $3, $2, $3", inst),
	)
}

// RRSrc12EqDest checks "inst $2, $2, $2".
func RRSrc12EqDest(num int, inst string, result, val1 int64) Test {
	return TestCase(num, "$2", result,
		fmt.Sprintf("li $2, %d", val1),
		fmt.Sprintf("%s $2, $2, $2", inst),
	)
}

// RRDestBypass consumes the result of a register operation after nops
// bubbles.
func RRDestBypass(num, nops int, inst string, result, val1, val2 int64) Test {
	return TestCase(num, "$7", result, bypassLoop(concat(
		[]string{
			fmt.Sprintf("li $2, %d", val1),
			fmt.Sprintf("li $3, %d", val2),
			fmt.Sprintf("%s $4, $2, $3", inst),
		},
		nopList(nops),
		[]string{"addiu $7, $4, 0"},
	)...)...)
}

// RRSrc12Bypass produces $2 then $3 with the given bubbles before the
// operation.
func RRSrc12Bypass(num, src1Nops, src2Nops int, inst string, result, val1, val2 int64) Test {
	return TestCase(num, "$4", result, bypassLoop(concat(
		[]string{fmt.Sprintf("li $2, %d", val1)},
		nopList(src1Nops),
		[]string{fmt.Sprintf("li $3, %d", val2)},
		nopList(src2Nops),
		[]string{fmt.Sprintf("%s $4, $2, $3", inst)},
	)...)...)
}

// RRSrc21Bypass produces $3 then $2 with the given bubbles before the
// operation.
func RRSrc21Bypass(num, src1Nops, src2Nops int, inst string, result, val1, val2 int64) Test {
	return TestCase(num, "$4", result, bypassLoop(concat(
		[]string{fmt.Sprintf("li $3, %d", val2)},
		nopList(src1Nops),
		[]string{fmt.Sprintf("li $2, %d", val1)},
		nopList(src2Nops),
		[]string{fmt.Sprintf("%s $4, $2, $3", inst)},
	)...)...)
}

// LO round-trips result through mtlo/mflo.
func LO(num int, result int64) Test {
	return TestCase(num, "$3", result,
		fmt.Sprintf("li $2, %d", result),
		"mtlo $2",
		"mflo $3",
	)
}

// HI round-trips result through mthi/mfhi.
func HI(num int, result int64) Test {
	return TestCase(num, "$3", result,
		fmt.Sprintf("li $2, %d", result),
		"mthi $2",
		"mfhi $3",
	)
}

// MulDiv checks both halves of a mult/div result.
func MulDiv(num int, inst string, rs, rt, resultLo, resultHi int64) Test {
	b := newBlock(num)
	b.op("li $30, %d", num)
	b.op("li $2, %d", rs)
	b.op("li $3, %d", rt)
	b.op("%s $2, $3", inst)
	b.op("li $4, %d", resultLo)
	b.op("li $5, %d", resultHi)
	b.op("mflo $2")
	b.op("bne $2, $4, fail")
	b.op("mfhi $3")
	b.op("bne $3, $5, fail")
	b.op("nop")

	return Test{Num: num, Source: b.String()}
}

// LdOp loads offset(base) into $4 with inst. base is a data label.
func LdOp(num int, inst string, result, offset int64, base string) Test {
	return TestCase(num, "$4", result,
		fmt.Sprintf("la $2, %s", base),
		fmt.Sprintf("%s $4, %d($2)", inst, offset),
	)
}

// StOp stores result at offset(base) and loads it back.
func StOp(num int, loadInst, storeInst string, result, offset int64, base string) Test {
	return TestCase(num, "$4", result,
		fmt.Sprintf("la $2, %s", base),
		fmt.Sprintf("li $3, %d", result),
		fmt.Sprintf("%s $3, %d($2)", storeInst, offset),
		fmt.Sprintf("%s $4, %d($2)", loadInst, offset),
	)
}

// StBHOp stores svalue with a byte or halfword store and checks the whole
// word at base.
func StBHOp(num int, storeInst string, svalue, result, offset int64, base string) Test {
	return TestCase(num, "$4", result,
		fmt.Sprintf("la $2, %s", base),
		fmt.Sprintf("li $3, %d", result),
		fmt.Sprintf("li $4, %d", svalue),
		fmt.Sprintf("%s $4, %d($2)", storeInst, offset),
		"lw $4, ($2)",
	)
}

// checkedLoop is a bypass loop that checks its result on every iteration.
func checkedLoop(num int, body []string) Test {
	b := newBlock(num)
	b.op("li $30, %d", num)
	for _, c := range bypassLoop(body...) {
		if strings.HasSuffix(c, ":") {
			b.label(strings.TrimSuffix(c, ":"))
			continue
		}
		b.op("%s", c)
	}
	return Test{Num: num, Source: b.String()}
}

// LdDestBypass consumes a loaded value after nops bubbles.
func LdDestBypass(num, nops int, inst string, result, offset int64, base string) Test {
	return checkedLoop(num, concat(
		[]string{
			fmt.Sprintf("la $2, %s", base),
			fmt.Sprintf("%s $4, %d($2)", inst, offset),
		},
		nopList(nops),
		[]string{
			"addiu $7, $4, 0",
			fmt.Sprintf("li $29, %d", result),
			"bne $7, $29, fail",
		},
	))
}

// LdSrc1Bypass produces the base address nops bubbles before the load.
func LdSrc1Bypass(num, nops int, inst string, result, offset int64, base string) Test {
	return checkedLoop(num, concat(
		[]string{fmt.Sprintf("la $2, %s", base)},
		nopList(nops),
		[]string{
			fmt.Sprintf("%s $4, %d($2)", inst, offset),
			fmt.Sprintf("li $29, %d", result),
			"bne $4, $29, fail",
		},
	))
}

// StSrc12Bypass produces the stored value then the base address before a
// store and load back.
func StSrc12Bypass(num, src1Nops, src2Nops int, loadInst, storeInst string, result, offset int64, base string) Test {
	return checkedLoop(num, concat(
		[]string{fmt.Sprintf("li $2, %d", result)},
		nopList(src1Nops),
		[]string{fmt.Sprintf("la $3, %s", base)},
		nopList(src2Nops),
		[]string{
			fmt.Sprintf("%s $2, %d($3)", storeInst, offset),
			fmt.Sprintf("%s $4, %d($3)", loadInst, offset),
			fmt.Sprintf("li $29, %d", result),
			"bne $4, $29, fail",
		},
	))
}

// StSrc21Bypass produces the base address then the stored value.
func StSrc21Bypass(num, src1Nops, src2Nops int, loadInst, storeInst string, result, offset int64, base string) Test {
	return checkedLoop(num, concat(
		[]string{fmt.Sprintf("la $3, %s", base)},
		nopList(src1Nops),
		[]string{fmt.Sprintf("li $2, %d", result)},
		nopList(src2Nops),
		[]string{
			fmt.Sprintf("%s $2, %d($3)", storeInst, offset),
			fmt.Sprintf("%s $4, %d($3)", loadInst, offset),
			fmt.Sprintf("li $29, %d", result),
			"bne $4, $29, fail",
		},
	))
}

// branchHeader starts a branch case: the number goes in $30 first since
// the branch itself is the check.
func branchHeader(num int) *block {
	b := newBlock(num)
	b.op("li $30, %d", num)
	return b
}

// BR1OpTaken checks that a one-register branch is taken, forwards and
// backwards.
func BR1OpTaken(num int, inst string, val1 int64) Test {
	b := branchHeader(num)
	b.op("li $2, %d", val1)
	b.op("%s $2, 2f", inst)
	b.op("nop")
	b.op("bne $0, $30, fail")
	b.op("nop")
	b.label("1")
	b.op("bne $0, $30, 3f")
	b.op("nop")
	b.label("2")
	b.op("%s $2, 1b", inst)
	b.op("nop")
	b.op("bne $0, $30, fail")
	b.label("3")
	b.op("nop")

	return Test{Num: num, Source: b.String()}
}

// BR1OpNotTaken checks that a one-register branch falls through.
func BR1OpNotTaken(num int, inst string, val1 int64) Test {
	b := branchHeader(num)
	b.op("li $2, %d", val1)
	b.op("%s $2, 1f", inst)
	b.op("bne $0, $30, 2f")
	b.op("nop")
	b.label("1")
	b.op("bne $0, $30, fail")
	b.op("nop")
	b.label("2")
	b.op("%s $2, 1b", inst)
	b.label("3")
	b.op("nop")

	return Test{Num: num, Source: b.String()}
}

// BR1Src1Bypass produces the operand of an untaken branch nops bubbles
// before it.
func BR1Src1Bypass(num, nops int, inst string, val1 int64) Test {
	return checkedLoop(num, concat(
		[]string{fmt.Sprintf("li $2, %d", val1)},
		nopList(nops),
		[]string{fmt.Sprintf("%s $2, fail", inst)},
	))
}

// BR2OpTaken checks that a two-register branch is taken, forwards and
// backwards.
func BR2OpTaken(num int, inst string, val1, val2 int64) Test {
	b := branchHeader(num)
	b.op("li $2, %d", val1)
	b.op("li $3, %d", val2)
	b.op("%s $2, $3, 2f", inst)
	b.op("nop")
	b.op("bne $0, $30, fail")
	b.op("nop")
	b.label("1")
	b.op("bne $0, $30, 3f")
	b.op("nop")
	b.label("2")
	b.op("%s $2, $3, 1b", inst)
	b.op("nop")
	b.op("bne $0, $30, fail")
	b.label("3")
	b.op("nop")

	return Test{Num: num, Source: b.String()}
}

// BR2OpNotTaken checks that a two-register branch falls through.
func BR2OpNotTaken(num int, inst string, val1, val2 int64) Test {
	b := branchHeader(num)
	b.op("li $2, %d", val1)
	b.op("li $3, %d", val2)
	b.op("%s $2, $3, 1f", inst)
	b.op("nop")
	b.op("bne $0, $30, 2f")
	b.op("nop")
	b.label("1")
	b.op("bne $0, $30, fail")
	b.op("nop")
	b.label("2")
	b.op("%s $2, $3, 1b", inst)
	b.label("3")
	b.op("nop")

	return Test{Num: num, Source: b.String()}
}

// BR2Src12Bypass produces $2 then $3 before an untaken branch.
func BR2Src12Bypass(num, src1Nops, src2Nops int, inst string, val1, val2 int64) Test {
	return checkedLoop(num, concat(
		[]string{fmt.Sprintf("li $2, %d", val1)},
		nopList(src1Nops),
		[]string{fmt.Sprintf("li $3, %d", val2)},
		nopList(src2Nops),
		[]string{fmt.Sprintf("%s $2, $3, fail", inst), "nop"},
	))
}

// BR2Src21Bypass produces $3 then $2 before an untaken branch.
func BR2Src21Bypass(num, src1Nops, src2Nops int, inst string, val1, val2 int64) Test {
	return checkedLoop(num, concat(
		[]string{fmt.Sprintf("li $3, %d", val2)},
		nopList(src1Nops),
		[]string{fmt.Sprintf("li $2, %d", val1)},
		nopList(src2Nops),
		[]string{fmt.Sprintf("%s $2, $3, fail", inst), "nop"},
	))
}

// JRSrc1Bypass produces a jump register target nops bubbles before the
// jump.
func JRSrc1Bypass(num, nops int, inst string) Test {
	b := branchHeader(num)
	b.op("li $5, 0")
	b.label("1")
	b.op("la $7, 2f")
	b.nops(nops)
	b.op("%s $7", inst)
	b.op("nop")
	b.op("bne $0, $30, fail")
	b.op("nop")
	b.label("2")
	b.op("addiu $5, $5, 1")
	b.op("li $6, 2")
	b.op("bne $5, $6, 1b")
	b.op("nop")

	return Test{Num: num, Source: b.String()}
}

// JALRSrc1Bypass is JRSrc1Bypass for a linking jump into $16.
func JALRSrc1Bypass(num, nops int, inst string) Test {
	b := branchHeader(num)
	b.op("li $5, 0")
	b.label("1")
	b.op("la $7, 2f")
	b.nops(nops)
	b.op("%s $16, $7", inst)
	b.op("nop")
	b.op("bne $0, $30, fail")
	b.label("2")
	b.op("addiu $5, $5, 1")
	b.op("li $6, 2")
	b.op("bne $5, $6, 1b")
	b.op("nop")

	return Test{Num: num, Source: b.String()}
}
