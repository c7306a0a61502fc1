package cpu

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func parseProgram(t *testing.T, program []string) (prog *Program) {
	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	if err != nil {
		t.Fatal(err)
	}

	return
}

func TestAssembler(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}

	prog, err := asm.Parse(strings.NewReader(".ORIG x3000\n.END\n"))
	assert.NoError(err)
	assert.Equal(uint16(0x3000), prog.Origin)
	assert.Equal(0, len(prog.Statements))

	assert.Equal("2", asm.Equate["LINENO"])
	assert.Equal("0xfe00", asm.Equate["KBSR"])
	assert.Equal("0xfe02", asm.Equate["KBDR"])
	assert.Equal("0x23", asm.Equate["TRAP_IN"])
}

func TestAssemblerHello(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"        LEA R0, HELLO",
		"        PUTS",
		"        HALT",
		`HELLO   .STRINGZ "Hi"`,
		".END",
		"this line is ignored",
	}

	prog := parseProgram(t, program)

	expected := []Statement{
		{2, 0x3000, []string{"LEA", "R0", "HELLO"}, []Code{0xe002}, "HELLO", 9},
		{3, 0x3001, []string{"PUTS"}, []Code{0xf022}, "", 0},
		{4, 0x3002, []string{"HALT"}, []Code{0xf025}, "", 0},
		{5, 0x3003, []string{".STRINGZ", `"Hi"`}, []Code{'H', 'i', 0}, "", 0},
	}

	assert.Equal(expected, prog.Statements)
}

func TestAssemblerAlu(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".orig x3000",
		"        AND R1, R1, #0",
		"        ADD R1, R1, #5",
		"LOOP    ADD R1, R1, #-1",
		"        BRp LOOP",
		"        NOT R2, R1",
		"        add r3, r1, r2 ; lower case",
		"        HALT",
	}

	prog := parseProgram(t, program)

	assert.Equal([]uint16{0x5260, 0x1265, 0x127f, 0x03fe, 0x947f, 0x1642, 0xf025}, prog.Binary())
}

func TestAssemblerControl(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		"        JSR SUB",
		"        HALT",
		"        .FILL SUB",
		"SUB:    RET",
		"        JSRR R2",
		"        JMP R3",
		"        LDR R4, R5, #-2",
		"        STR R4, R5, #3",
		"        TRAP x21",
		"        .BLKW 2 x7",
		"        .BLKW #1",
		"        RTI",
		"        BR SUB",
		"        BRnz SUB",
		"        BRzp #-1",
		"        BRnzp SUB",
	}

	prog := parseProgram(t, program)

	assert.Equal([]uint16{
		0x4802, // JSR SUB
		0xf025, // HALT
		0x3003, // .FILL SUB
		0xc1c0, // RET
		0x4080, // JSRR R2
		0xc0c0, // JMP R3
		0x697e, // LDR
		0x7943, // STR
		0xf021, // TRAP
		0x0007, // .BLKW
		0x0007,
		0x0000,
		0x8000, // RTI
		0x0ff5, // BR SUB
		0x0df4, // BRnz SUB
		0x07ff, // BRzp #-1
		0x0ff2, // BRnzp SUB
	}, prog.Binary())
}

func TestAssemblerLiterals(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG 0x4000",
		".FILL #10",
		".FILL -10",
		".FILL xBEEF",
		".FILL 0xbeef",
		".FILL b1010",
		".FILL 'A'",
		`.FILL '\n'`,
		".FILL ' '",
		".FILL ~0",
		`.STRINGZ "a;b, \"c\"\n"`,
	}

	prog := parseProgram(t, program)

	assert.Equal(uint16(0x4000), prog.Origin)
	assert.Equal([]uint16{
		10, 0xfff6, 0xbeef, 0xbeef, 10, 'A', '\n', ' ', 0xffff,
		'a', ';', 'b', ',', ' ', '"', 'c', '"', '\n', 0,
	}, prog.Binary())
}

func TestAssemblerEqu(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		".equ COUNT 3",
		"        ADD R1, R1, COUNT",
		"        ADD R2, R2, $(COUNT * 2)",
		".equ DOUBLE $(COUNT + COUNT)",
		"        ADD R3, R3, DOUBLE",
		"        .FILL $(LINENO * 8)",
		"        LD R0, KEY",
		"KEY     .FILL KBSR",
	}

	prog := parseProgram(t, program)

	assert.Equal([]uint16{0x1263, 0x14a6, 0x16e6, 56, 0x2000, 0xfe00}, prog.Binary())
	assert.Equal([]string{"ADD", "R1", "R1", "3"}, prog.Statements[0].Words)
}

func TestAssemblerPredefine(t *testing.T) {
	assert := assert.New(t)

	asm := &Assembler{}
	asm.Predefine("ORIGIN", "0x5000")
	asm.Predefine("ANSWER", "#15")

	prog, err := asm.Parse(strings.NewReader(".ORIG ORIGIN\nAND R0, R0, ANSWER\n"))
	assert.NoError(err)
	assert.Equal(uint16(0x5000), prog.Origin)
	assert.Equal([]uint16{0x502f}, prog.Binary())
}

func TestAssemblerMacro(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		".macro CLEAR reg",
		"        AND reg, reg, #0",
		".endm",
		".macro COUNTDOWN reg",
		"@top    ADD reg, reg, #-1",
		"        BRp @top",
		".endm",
		"        CLEAR R3",
		"        COUNTDOWN R3",
		"        COUNTDOWN R4",
	}

	prog := parseProgram(t, program)

	assert.Equal([]uint16{0x56e0, 0x16ff, 0x03fe, 0x193f, 0x03fe}, prog.Binary())

	st := prog.Statements[2]
	assert.Equal(7, st.LineNo)
	assert.Equal("COUNTDOWN_2_top", st.LinkLabel)
}

func TestAssemblerErrors(t *testing.T) {
	assert := assert.New(t)

	table := [](struct {
		name    string
		program []string
		err     error
		lineno  int
	}){
		{"orig_missing", []string{"ADD R1, R1, R1"}, ErrOrigMissing, 1},
		{"orig_empty", []string{""}, ErrOrigMissing, 0},
		{"orig_duplicate", []string{".ORIG x3000", ".ORIG x4000"}, ErrOrigDuplicate, 2},
		{"range_imm5", []string{".ORIG x3000", "ADD R1, R1, #16"}, ErrRange{Value: 16, Bits: 5}, 2},
		{"range_offset6", []string{".ORIG x3000", "LDR R1, R1, #-33"}, ErrRange{Value: -33, Bits: 6}, 2},
		{"range_trap", []string{".ORIG x3000", "TRAP x100"}, ErrRange{Value: 256, Bits: 8}, 2},
		{"range_link", []string{".ORIG x3000", "BR FAR", ".BLKW 300", "FAR HALT"}, ErrRange{Value: 300, Bits: 9}, 2},
		{"label_missing", []string{".ORIG x3000", "", "BR NOWHERE"}, ErrLabelMissing("NOWHERE"), 3},
		{"label_duplicate", []string{".ORIG x3000", "A HALT", "A HALT"}, ErrLabelDuplicate, 3},
		{"label_invalid", []string{".ORIG x3000", "#5 HALT"}, ErrLabelInvalid, 2},
		{"register", []string{".ORIG x3000", "ADD R8, R1, R2"}, ErrRegisterInvalid, 2},
		{"missing", []string{".ORIG x3000", "ADD R1, R1"}, ErrOpcodeValueMissing, 2},
		{"extra", []string{".ORIG x3000", "HALT R1"}, ErrOpcodeExtraArgs, 2},
		{"instruction", []string{".ORIG x3000", "FOO BAR"}, ErrInstructionInvalid, 2},
		{"string", []string{".ORIG x3000", `.STRINGZ "abc`}, ErrStringInvalid, 2},
		{"number", []string{".ORIG x3000", "ADD R1, R1, #x"}, ErrParseNumber("#x"), 2},
		{"character", []string{".ORIG x3000", ".FILL 'ab'"}, ErrParseCharacter("'ab'"), 2},
		{"expression", []string{".ORIG x3000", ".FILL $(1 +)"}, ErrParseExpression("1 +"), 2},
		{"equ_syntax", []string{".equ A"}, ErrEquateSyntax, 1},
		{"equ_duplicate", []string{".equ A 1", ".equ A 2"}, ErrEquateDuplicate, 2},
		{"macro_lonely", []string{".macro A", "HALT"}, ErrMacroLonely, 2},
		{"macro_endm", []string{".endm"}, ErrMacroLonelyEndm, 1},
		{"macro_nesting", []string{".macro A", ".macro B"}, ErrMacroNesting, 2},
		{"macro_duplicate", []string{".macro A", ".endm", ".macro A", ".endm"}, ErrMacroDuplicate, 3},
		{"macro_args", []string{".ORIG x3000", ".macro A x", ".endm", "A"}, ErrMacroSyntax, 4},
	}

	for _, entry := range table {
		asm := &Assembler{}
		_, err := asm.Parse(strings.NewReader(strings.Join(entry.program, "\n")))
		assert.ErrorIs(err, entry.err, entry.name)

		var syntaxErr *ErrSyntax
		if assert.True(errors.As(err, &syntaxErr), entry.name) {
			assert.Equal(entry.lineno, syntaxErr.LineNo, entry.name)
		}
	}
}

func TestAssemblerMacroError(t *testing.T) {
	assert := assert.New(t)

	program := []string{
		".ORIG x3000",
		".macro BAD",
		"        ADD R9, R1, R2",
		".endm",
		"        BAD",
	}

	asm := &Assembler{}
	_, err := asm.Parse(strings.NewReader(strings.Join(program, "\n")))
	assert.ErrorIs(err, ErrRegisterInvalid)

	var macroErr *ErrMacro
	if assert.ErrorAs(err, &macroErr) {
		assert.Equal("BAD", macroErr.Macro)
		assert.Equal(3, macroErr.Line)
	}
}
