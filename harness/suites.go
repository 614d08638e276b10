package harness

// Suites returns the built-in instruction self-test suites. Each suite
// targets one group of instructions and passes on a correct MIPS-I
// implementation with branch delay slots.
func Suites() []Suite {
	return []Suite{
		addImmediate(),
		addRegister(),
		subtract(),
		logical(),
		setLessThan(),
		shifts(),
		multiplyDivide(),
		loads(),
		stores(),
		branches(),
		jumps(),
		coprocessor0(),
	}
}

// Lookup returns the built-in suite with the given name.
func Lookup(name string) (Suite, bool) {
	for _, s := range Suites() {
		if s.Name == name {
			return s, true
		}
	}
	return Suite{}, false
}

func addImmediate() Suite {
	return Suite{
		Name: "addiu",
		Tests: []Test{
			ImmOp(2, "addiu", 0x00000000, 0x00000000, 0),
			ImmOp(3, "addiu", 0x00000002, 0x00000001, 1),
			ImmOp(4, "addiu", 0x0000000a, 0x00000003, 7),
			ImmOp(5, "addiu", 0xffff8000, 0x00000000, -0x8000),
			ImmOp(6, "addiu", 0x80000000, 0x7fffffff, 1),
			ImmOp(7, "addiu", 0x00000000, -1, 1),
			ImmOp(8, "addi", 0x00000005, 0x00000007, -2),

			ImmSrc1EqDest(9, "addiu", 24, 13, 11),

			ImmDestBypass(10, 0, "addiu", 24, 13, 11),
			ImmDestBypass(11, 1, "addiu", 23, 13, 10),
			ImmDestBypass(12, 2, "addiu", 22, 13, 9),

			ImmSrc1Bypass(13, 0, "addiu", 24, 13, 11),
			ImmSrc1Bypass(14, 1, "addiu", 23, 13, 10),
			ImmSrc1Bypass(15, 2, "addiu", 22, 13, 9),
		},
	}
}

func addRegister() Suite {
	return Suite{
		Name: "addu",
		Tests: []Test{
			RROp(2, "addu", 0x00000000, 0x00000000, 0x00000000),
			RROp(3, "addu", 0x00000002, 0x00000001, 0x00000001),
			RROp(4, "addu", 0x0000000a, 0x00000003, 0x00000007),
			RROp(5, "addu", -0x8000, 0x00000000, -0x8000),
			RROp(6, "addu", 0x80000000, 0x7fffffff, 0x00000001),
			RROp(7, "addu", 0x00000000, -1, 0x00000001),
			RROp(8, "add", 0x00000005, 0x00000002, 0x00000003),

			RRSrc1EqDest(9, "addu", 24, 13, 11),
			RRSrc2EqDest(10, "addu", 25, 14, 11),
			RRSrc12EqDest(11, "addu", 26, 13),

			RRDestBypass(12, 0, "addu", 24, 13, 11),
			RRDestBypass(13, 1, "addu", 25, 14, 11),
			RRDestBypass(14, 2, "addu", 26, 15, 11),

			RRSrc12Bypass(15, 0, 0, "addu", 24, 13, 11),
			RRSrc12Bypass(16, 1, 1, "addu", 25, 14, 11),
			RRSrc12Bypass(17, 0, 2, "addu", 26, 15, 11),

			RRSrc21Bypass(18, 0, 0, "addu", 24, 13, 11),
			RRSrc21Bypass(19, 2, 0, "addu", 25, 14, 11),
		},
	}
}

func subtract() Suite {
	return Suite{
		Name: "subu",
		Tests: []Test{
			RROp(2, "subu", 0x00000000, 0x00000000, 0x00000000),
			RROp(3, "subu", 0x00000000, 0x00000001, 0x00000001),
			RROp(4, "subu", -4, 0x00000003, 0x00000007),
			RROp(5, "subu", 0x80000000, 0x00000000, 0x80000000),
			RROp(6, "sub", 0x00000002, 0x00000005, 0x00000003),

			RRSrc1EqDest(7, "subu", 2, 13, 11),
			RRSrc2EqDest(8, "subu", 3, 14, 11),
			RRSrc12EqDest(9, "subu", 0, 13),

			RRDestBypass(10, 1, "subu", 2, 13, 11),
			RRSrc12Bypass(11, 1, 0, "subu", 2, 13, 11),
			RRSrc21Bypass(12, 0, 1, "subu", 2, 13, 11),
		},
	}
}

func logical() Suite {
	return Suite{
		Name: "logical",
		Tests: []Test{
			RROp(2, "and", 0x0f000f00, 0xff00ff00, 0x0f0f0f0f),
			RROp(3, "or", 0xff0fff0f, 0xff00ff00, 0x0f0f0f0f),
			RROp(4, "xor", 0xf00ff00f, 0xff00ff00, 0x0f0f0f0f),
			RROp(5, "nor", 0x00f000f0, 0xff00ff00, 0x0f0f0f0f),

			ImmOp(6, "andi", 0x0000ff00, 0xff00ff00, 0xff0f),
			ImmOp(7, "ori", 0xff00ff0f, 0xff00ff00, 0x0f0f),
			ImmOp(8, "xori", 0xff00f00f, 0xff00ff00, 0x0f0f),

			TestCase(9, "$4", 0x12340000, "lui $4, 0x1234"),
			TestCase(10, "$4", 0x12345678, "li $4, 0x12345678"),
		},
	}
}

func setLessThan() Suite {
	return Suite{
		Name: "slt",
		Tests: []Test{
			RROp(2, "slt", 0, 0, 0),
			RROp(3, "slt", 1, -1, 0),
			RROp(4, "slt", 0, 0, -1),
			RROp(5, "sltu", 0, -1, 0),
			RROp(6, "sltu", 1, 0, -1),

			ImmOp(7, "slti", 1, -5, -4),
			ImmOp(8, "slti", 0, 5, 5),
			ImmOp(9, "sltiu", 1, 5, -1),
			ImmOp(10, "sltiu", 0, -1, 5),
		},
	}
}

func shifts() Suite {
	return Suite{
		Name: "shift",
		Tests: []Test{
			ImmOp(2, "sll", 0x80000000, 0x00000001, 31),
			ImmOp(3, "srl", 0x00000001, 0x80000000, 31),
			ImmOp(4, "sra", -1, 0x80000000, 31),
			ImmOp(5, "sll", 0x00000010, 0x00000001, 4),

			RROp(6, "sllv", 0x00000100, 0x00000001, 8),
			RROp(7, "srlv", 0x00000001, 0x00000100, 8),
			RROp(8, "srav", -2, -8, 2),
			RROp(9, "sllv", 0x00000002, 0x00000001, 33),
		},
	}
}

func multiplyDivide() Suite {
	return Suite{
		Name: "muldiv",
		Tests: []Test{
			LO(2, 0x12345678),
			HI(3, -1),

			MulDiv(4, "mult", -5, 3, -15, -1),
			MulDiv(5, "multu", 0xffffffff, 2, 0xfffffffe, 1),
			MulDiv(6, "divu", 7, 2, 3, 1),
			MulDiv(7, "div", -7, 2, -3, -1),
			MulDiv(8, "mult", 0x10000, 0x10000, 0, 1),
		},
	}
}

const loadData = `tdat:
	.word 0x00ff00ff
	.word 0xff00ff00
	.word 0x0ff00ff0
	.word 0xf00ff00f
`

func loads() Suite {
	return Suite{
		Name: "load",
		Tests: []Test{
			LdOp(2, "lw", 0x00ff00ff, 0, "tdat"),
			LdOp(3, "lw", 0xff00ff00, 4, "tdat"),
			LdOp(4, "lw", 0xf00ff00f, 12, "tdat"),
			LdOp(5, "lw", 0x00ff00ff, -4, "tdat+4"),

			LdOp(6, "lb", -1, 1, "tdat"),
			LdOp(7, "lbu", 0xff, 1, "tdat"),
			LdOp(8, "lb", 0, 0, "tdat"),

			LdOp(9, "lh", -256, 4, "tdat"),
			LdOp(10, "lhu", 0xff00, 4, "tdat"),
			LdOp(11, "lh", 0xff, 0, "tdat"),

			LdDestBypass(12, 0, "lw", 0xff00ff00, 4, "tdat"),
			LdDestBypass(13, 1, "lw", 0x0ff00ff0, 8, "tdat"),
			LdSrc1Bypass(14, 0, "lw", 0x0ff00ff0, 8, "tdat"),
			LdSrc1Bypass(15, 2, "lw", 0xf00ff00f, 12, "tdat"),

			TestCase(16, "$4", 0xff00ffff,
				"la $2, tdat",
				"lwl $4, 1($2)",
				"lwr $4, 4($2)",
			),
		},
		Data: loadData,
	}
}

const storeData = `sdat:
	.word 0, 0, 0, 0
bdat:
	.word 0
pdat:
	.word 0, 0
`

func stores() Suite {
	return Suite{
		Name: "store",
		Tests: []Test{
			StOp(2, "lw", "sw", 0x00aa00aa, 0, "sdat"),
			StOp(3, "lw", "sw", -1, 4, "sdat"),
			StOp(4, "lb", "sb", -86, 8, "sdat"),
			StOp(5, "lbu", "sb", 0x55, 9, "sdat"),
			StOp(6, "lh", "sh", -21846, 12, "sdat"),
			StOp(7, "lhu", "sh", 0x5555, 14, "sdat"),

			StBHOp(8, "sb", 0xef, 0xef000000, 0, "bdat"),
			StBHOp(9, "sh", 0x1234, 0xef001234, 2, "bdat"),
			StBHOp(10, "sb", 0x56, 0xef561234, 1, "bdat"),

			StSrc12Bypass(11, 0, 0, "lw", "sw", 0x12345678, 0, "pdat"),
			StSrc21Bypass(12, 1, 0, "lw", "sw", 0x2468ace0, 4, "pdat"),

			TestCase(13, "$4", 0x11223344,
				"la $2, pdat",
				"li $3, 0x11223344",
				"swl $3, 1($2)",
				"swr $3, 4($2)",
				"lwl $4, 1($2)",
				"lwr $4, 4($2)",
			),
		},
		Data: storeData,
	}
}

func branches() Suite {
	return Suite{
		Name: "branch",
		Tests: []Test{
			BR2OpTaken(2, "beq", 0, 0),
			BR2OpTaken(3, "beq", -1, -1),
			BR2OpNotTaken(4, "beq", 0, 1),
			BR2OpTaken(5, "bne", 0, 1),
			BR2OpNotTaken(6, "bne", 1, 1),

			BR1OpTaken(7, "blez", 0),
			BR1OpTaken(8, "blez", -1),
			BR1OpNotTaken(9, "blez", 1),
			BR1OpTaken(10, "bgtz", 1),
			BR1OpNotTaken(11, "bgtz", 0),
			BR1OpTaken(12, "bltz", -1),
			BR1OpNotTaken(13, "bltz", 0),
			BR1OpTaken(14, "bgez", 0),
			BR1OpNotTaken(15, "bgez", -1),
			BR1OpTaken(16, "bgezal", 1),
			BR1OpNotTaken(17, "bltzal", 1),

			BR1Src1Bypass(18, 0, "bgtz", 0),
			BR1Src1Bypass(19, 2, "bltz", 1),
			BR2Src12Bypass(20, 0, 0, "beq", 0, 1),
			BR2Src12Bypass(21, 1, 1, "bne", 1, 1),
			BR2Src21Bypass(22, 0, 1, "beq", 0, -1),
		},
	}
}

func jumps() Suite {
	return Suite{
		Name: "jump",
		Tests: []Test{
			JRSrc1Bypass(2, 0, "jr"),
			JRSrc1Bypass(3, 2, "jr"),
			JALRSrc1Bypass(4, 0, "jalr"),
			JALRSrc1Bypass(5, 1, "jalr"),

			// jal links past its delay slot.
			{Num: 6, Source: `test_6:
	li $30, 6
	jal 1f
	nop
1:	la $29, 1b
	bne $31, $29, fail
	nop
`},

			// The delay slot of j executes, the instruction after it
			// does not.
			TestCase(7, "$4", 1,
				"li $4, 0",
				"j 1f",
				"li $4, 1",
				"li $4, 2",
				"1:",
			),
		},
	}
}

func coprocessor0() Suite {
	return Suite{
		Name: "cop0",
		Tests: []Test{
			TestCase(2, "$4", 0x5, "li $2, 5", "mtc0 $2, $0", "mfc0 $4, $0"),
			TestCase(3, "$4", 0x1234, "li $2, 0x1234", "mtc0 $2, $1", "mfc0 $4, $1"),
			TestCase(4, "$4", 0, "mfc0 $4, $3"),
		},
	}
}
