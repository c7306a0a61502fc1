// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package cpu

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"maps"
	"slices"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"

	"go.starlark.net/starlark"
	"go.starlark.net/syntax"
)

// Macro represents a macro definition in the assembly language.
type Macro struct {
	LineNo int      // Line number of the macro definition.
	Args   []string // Arguments for the macro.
	Lines  []string // Lines of macro text to expand.
}

// Assembler is a single pass macro assembler for LC-3 assembly.
type Assembler struct {
	Verbose   bool        // If set, verbosely logs the assembler actions.
	Statement []Statement // List of assembled statements.

	predefine map[string]string   // Predefines
	Label     map[string]int      // Map of labels to addresses.
	Equate    map[string]string   // Map of equates.
	Macro     map[string](*Macro) // Map of macros.

	origin    int  // Origin address, or -1 before .ORIG
	address   int  // Address of the next statement.
	ended     bool // Set after .END
	expansion int  // Count of macro expansions.
}

// Predefine defines a new equate or redefines an existing equate.
func (asm *Assembler) Predefine(equ string, value string) {
	if asm.predefine == nil {
		asm.predefine = map[string]string{equ: value}
	} else {
		asm.predefine[equ] = value
	}
}

// regMap is a map of register names.
var regMap = map[string]Register{
	"r0": REG_R0,
	"r1": REG_R1,
	"r2": REG_R2,
	"r3": REG_R3,
	"r4": REG_R4,
	"r5": REG_R5,
	"r6": REG_R6,
	"r7": REG_R7,
}

// trapMap maps the trap service routine aliases.
var trapMap = map[string]TrapVector{
	"getc":  TRAP_GETC,
	"out":   TRAP_OUT,
	"puts":  TRAP_PUTS,
	"in":    TRAP_IN,
	"putsp": TRAP_PUTSP,
	"halt":  TRAP_HALT,
}

// opMap maps the memory access mnemonics.
var opMap = map[string]Opcode{
	"ld":  OP_LD,
	"ldi": OP_LDI,
	"lea": OP_LEA,
	"st":  OP_ST,
	"sti": OP_STI,
	"ldr": OP_LDR,
	"str": OP_STR,
}

// keywords are the reserved words of the assembler, besides branches.
var keywords = map[string]bool{
	"add": true, "and": true, "not": true,
	"jmp": true, "ret": true, "jsr": true, "jsrr": true,
	"trap": true, "rti": true,
	".orig": true, ".fill": true, ".blkw": true, ".stringz": true, ".end": true,
	".equ": true, ".macro": true, ".endm": true,
}

// branchNZP parses a BR mnemonic. Plain BR branches always.
func branchNZP(name string) (nzp uint16, ok bool) {
	suffix, ok := strings.CutPrefix(name, "br")
	if !ok {
		return
	}

	if len(suffix) == 0 {
		nzp = NZP_N | NZP_Z | NZP_P
		return
	}

	for _, c := range suffix {
		var bit uint16
		switch c {
		case 'n':
			bit = NZP_N
		case 'z':
			bit = NZP_Z
		case 'p':
			bit = NZP_P
		}
		if bit == 0 || (nzp&bit) != 0 {
			ok = false
			return
		}
		nzp |= bit
	}

	return
}

// isKeyword returns true if the word is a mnemonic, directive or macro.
func (asm *Assembler) isKeyword(word string) bool {
	if _, ok := asm.Macro[word]; ok {
		return true
	}

	name := strings.ToLower(word)
	if keywords[name] {
		return true
	}
	if _, ok := trapMap[name]; ok {
		return true
	}
	if _, ok := opMap[name]; ok {
		return true
	}
	_, ok := branchNZP(name)

	return ok
}

// isLabel returns true if the word is a valid label name.
func isLabel(word string) bool {
	if len(word) == 0 {
		return false
	}

	for n, c := range word {
		switch {
		case c == '_', unicode.IsLetter(c):
		case n > 0 && unicode.IsDigit(c):
		default:
			return false
		}
	}

	return true
}

// splitWords splits a line into words, separated by whitespace or commas.
// String literals, character literals and $(...) expressions are kept
// whole, and everything after a ';' is ignored.
func splitWords(line string) (words []string, err error) {
	var word strings.Builder
	var quote rune
	var escaped bool
	var depth int

	flush := func() {
		if word.Len() > 0 {
			words = append(words, word.String())
			word.Reset()
		}
	}

	for _, c := range line {
		if quote != 0 {
			word.WriteRune(c)
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == quote:
				quote = 0
			}
			continue
		}

		if depth > 0 {
			word.WriteRune(c)
			switch c {
			case '(':
				depth++
			case ')':
				depth--
			}
			continue
		}

		switch {
		case c == ';':
			flush()
			return
		case c == '"' || c == '\'':
			quote = c
			word.WriteRune(c)
		case c == '(' && strings.HasSuffix(word.String(), "$"):
			depth = 1
			word.WriteRune(c)
		case c == ',' || unicode.IsSpace(c):
			flush()
		default:
			word.WriteRune(c)
		}
	}

	if quote != 0 || depth != 0 {
		err = ErrStringInvalid
		return
	}

	flush()

	return
}

// valueOf returns the value of a numeric literal.
func (asm *Assembler) valueOf(word string) (value int, err error) {
	invert := false
	text := word
	if strings.HasPrefix(text, "~") {
		invert = true
		text = text[1:]
	}

	var v64 int64
	var perr error
	switch {
	case len(text) == 0:
		perr = strconv.ErrSyntax
	case text[0] == '#':
		v64, perr = strconv.ParseInt(text[1:], 10, 32)
	case text[0] == 'x' || text[0] == 'X':
		v64, perr = strconv.ParseInt(text[1:], 16, 32)
	case text[0] == 'b' || text[0] == 'B':
		v64, perr = strconv.ParseInt(text[1:], 2, 32)
	default:
		v64, perr = strconv.ParseInt(text, 0, 32)
	}
	if perr != nil {
		err = ErrParseNumber(word)
		return
	}

	value = int(v64)
	if invert {
		value = ^value
	}

	return
}

// parenEval does compile-time $(...) evaluations
func (asm *Assembler) parenEval(expr string) (value int, err error) {
	thread := starlark.Thread{}
	opts := syntax.FileOptions{}
	pred := starlark.StringDict{}
	for key, str := range asm.Equate {
		var equ int
		equ, err = asm.valueOf(str)
		if err != nil {
			// Ignore non-integer equates. They may be registers
			// or something else.
			err = nil
			continue
		}
		pred[key] = starlark.MakeInt(equ)
	}
	prog := "rc=" + expr + "\n"
	dict, err := starlark.ExecFileOptions(&opts, &thread, "expr", prog, pred)
	if err != nil {
		err = ErrParseExpression(expr)
		return
	}
	st_rc, ok := dict["rc"]
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int, ok := st_rc.(starlark.Int)
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	st_int64, ok := st_int.Int64()
	if !ok {
		err = ErrParseExpression(expr)
		return
	}
	value = int(st_int64)
	return
}

// expand replaces equates, character literals and $(...) expressions
// in a word with their values.
func (asm *Assembler) expand(word string) (out string, err error) {
	out = word
	if equate, ok := asm.Equate[out]; ok {
		out = equate
	}

	switch {
	case strings.HasPrefix(out, "$(") && strings.HasSuffix(out, ")"):
		var value int
		value, err = asm.parenEval(out[2 : len(out)-1])
		if err != nil {
			return
		}
		out = strconv.Itoa(value)
	case strings.HasPrefix(out, "'"):
		str, uerr := strconv.Unquote(out)
		if uerr != nil || utf8.RuneCountInString(str) != 1 {
			err = ErrParseCharacter(out)
			return
		}
		r, _ := utf8.DecodeRuneInString(str)
		out = strconv.Itoa(int(r))
	}

	return
}

// defineLabel sets a label to the current address.
func (asm *Assembler) defineLabel(label string) (err error) {
	if !isLabel(label) {
		err = ErrLabelInvalid
		return
	}
	if asm.origin < 0 {
		err = ErrOrigMissing
		return
	}
	_, ok := asm.Label[label]
	if ok {
		err = ErrLabelDuplicate
		return
	}

	if asm.Verbose {
		log.Printf("asm: %v = 0x%04x", label, asm.address)
	}

	asm.Label[label] = asm.address

	return
}

// parseLine parses a single line into the words of a statement.
func (asm *Assembler) parseLine(line string, lineno int) (words []string, err error) {
	// Set line number.
	asm.Equate["LINENO"] = fmt.Sprintf("%v", lineno)

	words, err = splitWords(line)
	if err != nil {
		return
	}

	if len(words) == 0 {
		return
	}

	// .equ CONST VALUE
	if strings.ToLower(words[0]) == ".equ" {
		if len(words) != 3 {
			err = ErrEquateSyntax
			return
		}
		_, ok := asm.Equate[words[1]]
		if ok {
			err = ErrEquateDuplicate
			return
		}
		var value string
		value, err = asm.expand(words[2])
		if err != nil {
			return
		}
		asm.Equate[words[1]] = value
		words = words[:0]
		return
	}

	// Labels, with or without a trailing ':'
	for len(words) > 0 {
		label, ok := strings.CutSuffix(words[0], ":")
		if !ok {
			if asm.isKeyword(words[0]) {
				break
			}
			label = words[0]
		}
		err = asm.defineLabel(label)
		if err != nil {
			return
		}
		words = words[1:]
		if !ok {
			break
		}
	}

	if len(words) == 0 {
		return
	}

	for n, word := range words {
		if n == 0 || strings.HasPrefix(word, "\"") {
			continue
		}
		words[n], err = asm.expand(word)
		if err != nil {
			return
		}
	}

	// .macro processing
	macro, ok := asm.Macro[words[0]]
	if ok {
		name := words[0]

		args := words[1:]
		if len(args) != len(macro.Args) {
			err = ErrMacroSyntax
			return
		}
		// Turn args into equs
		old_equate := maps.Clone(asm.Equate)
		for n, arg := range macro.Args {
			asm.Equate[arg] = args[n]
		}
		defer func() { asm.Equate = old_equate }()

		asm.expansion++
		unique := fmt.Sprintf("%v_%v_", name, asm.expansion)

		for n, line := range macro.Lines {
			lineno := macro.LineNo + n

			line = strings.ReplaceAll(line, "@", unique)
			words, err = asm.parseLine(line, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}

			err = asm.parseWords(words, lineno)
			if err != nil {
				err = &ErrMacro{Macro: name, Line: lineno, Err: err}
				return
			}
		}

		words = nil
		return
	}

	return
}

// Parse parses an input stream into a Program.
func (asm *Assembler) Parse(input io.Reader) (prog *Program, err error) {

	scanner := bufio.NewScanner(input)

	var line string
	var lineno int
	var macro *Macro

	defer func() {
		if err != nil {
			err = &ErrSyntax{LineNo: lineno, Line: line, Err: err}
		}
	}()

	asm.Label = make(map[string]int)
	asm.Statement = asm.Statement[:0]
	asm.Macro = make(map[string](*Macro))
	asm.Equate = maps.Clone(_cpu_defines)
	asm.Equate["LINENO"] = "0"
	maps.Copy(asm.Equate, asm.predefine)
	asm.origin = -1
	asm.address = 0
	asm.ended = false
	asm.expansion = 0

	for scanner.Scan() && !asm.ended {
		line = scanner.Text()
		lineno += 1

		if asm.Verbose {
			log.Printf("asm: %v: %v\n", lineno, line)
		}

		var words []string
		words, err = splitWords(line)
		if err != nil {
			return
		}

		// .macro NAME arg...
		if len(words) > 0 && strings.ToLower(words[0]) == ".macro" {
			if macro != nil {
				err = ErrMacroNesting
				return
			}
			if len(words) < 2 {
				err = ErrMacroSyntax
				return
			}
			_, ok := asm.Macro[words[1]]
			if ok {
				err = ErrMacroDuplicate
				return
			}
			macro = &Macro{
				LineNo: lineno + 1,
				Args:   words[2:],
			}
			asm.Macro[words[1]] = macro
			continue
		}

		if len(words) > 0 && strings.ToLower(words[0]) == ".endm" {
			if macro == nil {
				err = ErrMacroLonelyEndm
				return
			}
			macro = nil
			continue
		}

		if macro != nil {
			macro.Lines = append(macro.Lines, line)
			continue
		}

		words, err = asm.parseLine(line, lineno)
		if err != nil {
			return
		}

		err = asm.parseWords(words, lineno)
		if err != nil {
			return
		}
	}

	err = scanner.Err()
	if err != nil {
		return
	}

	if macro != nil {
		err = ErrMacroLonely
		return
	}

	if asm.origin < 0 {
		err = ErrOrigMissing
		return
	}

	// Final linking of labels.
	for n := range asm.Statement {
		st := &asm.Statement[n]

		if len(st.LinkLabel) == 0 {
			continue
		}

		err = asm.link(st)
		if err != nil {
			lineno = st.LineNo
			line = strings.Join(st.Words, " ")
			return
		}
	}

	prog = &Program{
		Origin:     uint16(asm.origin),
		Statements: slices.Clone(asm.Statement),
	}

	return
}

// link resolves the label of a statement into its last code.
func (asm *Assembler) link(st *Statement) (err error) {
	addr, ok := asm.Label[st.LinkLabel]
	if !ok {
		err = ErrLabelMissing(st.LinkLabel)
		return
	}

	linked := &st.Codes[len(st.Codes)-1]

	if st.LinkBits == 16 {
		*linked = Code(addr)
		return
	}

	offset := addr - (st.Address + len(st.Codes))
	field, err := signedField(offset, st.LinkBits)
	if err != nil {
		return
	}
	*linked |= Code(field)

	return
}

// signedField checks that a value fits a signed field of the given width,
// and returns the field bits.
func signedField(value int, bits int) (field uint16, err error) {
	limit := 1 << (bits - 1)
	if value < -limit || value >= limit {
		err = ErrRange{Value: value, Bits: bits}
		return
	}

	field = uint16(value) & ((1 << bits) - 1)

	return
}

// argCount checks the number of operands.
func argCount(args []string, count int) (err error) {
	switch {
	case len(args) < count:
		err = ErrOpcodeValueMissing
	case len(args) > count:
		err = ErrOpcodeExtraArgs
	}

	return
}

// register parses a register name.
func (asm *Assembler) register(word string) (reg Register, err error) {
	reg, ok := regMap[strings.ToLower(word)]
	if !ok {
		err = ErrRegisterInvalid
		return
	}

	return
}

// offset parses a signed immediate of the given width, or a label to be
// linked as a PC relative offset.
func (asm *Assembler) offset(word string, bits int) (field uint16, label string, err error) {
	value, err := asm.valueOf(word)
	if err != nil {
		if !isLabel(word) {
			return
		}
		err = nil
		label = word
		return
	}

	field, err = signedField(value, bits)

	return
}

// parseWords evaluates the words of a statement.
func (asm *Assembler) parseWords(words []string, lineno int) (err error) {
	var codes []Code
	var label string
	var bits int

	// no-op
	if len(words) == 0 {
		return
	}

	name := strings.ToLower(words[0])
	args := words[1:]

	switch name {
	case ".orig":
		if asm.origin >= 0 {
			err = ErrOrigDuplicate
			return
		}
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var value int
		value, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if value < 0 || value >= MEMORY_SIZE {
			err = ErrRange{Value: value, Bits: 16}
			return
		}
		asm.origin = value
		asm.address = value
		return
	case ".end":
		asm.ended = true
		return
	}

	if asm.origin < 0 {
		err = ErrOrigMissing
		return
	}

	defer func() {
		if err != nil || len(codes) == 0 {
			return
		}
		if asm.address+len(codes) > MEMORY_SIZE {
			err = ErrImageOverflow
			return
		}
		st := Statement{
			LineNo:    lineno,
			Address:   asm.address,
			Words:     words,
			Codes:     codes,
			LinkLabel: label,
			LinkBits:  bits,
		}
		asm.Statement = append(asm.Statement, st)
		asm.address += len(codes)
	}()

	if nzp, ok := branchNZP(name); ok {
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var field uint16
		field, label, err = asm.offset(args[0], 9)
		if err != nil {
			return
		}
		bits = 9
		codes = append(codes, MakeCodeBranch(nzp, field))
		return
	}

	if vector, ok := trapMap[name]; ok {
		err = argCount(args, 0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeTrap(vector))
		return
	}

	switch name {
	case ".fill":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var value int
		value, err = asm.valueOf(args[0])
		if err != nil {
			if !isLabel(args[0]) {
				return
			}
			err = nil
			label = args[0]
			bits = 16
		} else if value < -0x8000 || value > 0xffff {
			err = ErrRange{Value: value, Bits: 16}
			return
		}
		codes = append(codes, Code(uint16(value)))
	case ".blkw":
		if len(args) < 1 {
			err = ErrOpcodeValueMissing
			return
		}
		if len(args) > 2 {
			err = ErrOpcodeExtraArgs
			return
		}
		var count, fill int
		count, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if count < 1 || count > MEMORY_SIZE {
			err = ErrRange{Value: count, Bits: 16}
			return
		}
		if len(args) == 2 {
			fill, err = asm.valueOf(args[1])
			if err != nil {
				return
			}
		}
		for range count {
			codes = append(codes, Code(uint16(fill)))
		}
	case ".stringz":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var str string
		str, err = strconv.Unquote(args[0])
		if err != nil || !strings.HasPrefix(args[0], "\"") {
			err = ErrStringInvalid
			return
		}
		for _, r := range str {
			codes = append(codes, Code(uint16(r)))
		}
		codes = append(codes, 0)
	case "add", "and":
		op := OP_ADD
		if name == "and" {
			op = OP_AND
		}
		err = argCount(args, 3)
		if err != nil {
			return
		}
		var dst, src1, src2 Register
		dst, err = asm.register(args[0])
		if err != nil {
			return
		}
		src1, err = asm.register(args[1])
		if err != nil {
			return
		}
		src2, err = asm.register(args[2])
		if err == nil {
			codes = append(codes, MakeCodeAlu(op, dst, src1, src2))
			return
		}
		var imm int
		imm, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		var field uint16
		field, err = signedField(imm, 5)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeAluImm(op, dst, src1, field))
	case "not":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		var dst, src Register
		dst, err = asm.register(args[0])
		if err != nil {
			return
		}
		src, err = asm.register(args[1])
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeNot(dst, src))
	case "jmp", "jsrr":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var base Register
		base, err = asm.register(args[0])
		if err != nil {
			return
		}
		if name == "jmp" {
			codes = append(codes, MakeCodeJump(base))
		} else {
			codes = append(codes, MakeCodeJsrr(base))
		}
	case "ret":
		err = argCount(args, 0)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeJump(REG_R7))
	case "jsr":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var field uint16
		field, label, err = asm.offset(args[0], 11)
		if err != nil {
			return
		}
		bits = 11
		codes = append(codes, MakeCodeJsr(field))
	case "ld", "ldi", "lea", "st", "sti":
		err = argCount(args, 2)
		if err != nil {
			return
		}
		var reg Register
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		var field uint16
		field, label, err = asm.offset(args[1], 9)
		if err != nil {
			return
		}
		bits = 9
		codes = append(codes, MakeCodePcRelative(opMap[name], reg, field))
	case "ldr", "str":
		err = argCount(args, 3)
		if err != nil {
			return
		}
		var reg, base Register
		reg, err = asm.register(args[0])
		if err != nil {
			return
		}
		base, err = asm.register(args[1])
		if err != nil {
			return
		}
		var value int
		value, err = asm.valueOf(args[2])
		if err != nil {
			return
		}
		var field uint16
		field, err = signedField(value, 6)
		if err != nil {
			return
		}
		codes = append(codes, MakeCodeBase(opMap[name], reg, base, field))
	case "trap":
		err = argCount(args, 1)
		if err != nil {
			return
		}
		var vector int
		vector, err = asm.valueOf(args[0])
		if err != nil {
			return
		}
		if vector < 0 || vector > 0xff {
			err = ErrRange{Value: vector, Bits: 8}
			return
		}
		codes = append(codes, MakeCodeTrap(TrapVector(vector)))
	case "rti":
		err = argCount(args, 0)
		if err != nil {
			return
		}
		codes = append(codes, makeOp(OP_RTI, 0))
	default:
		err = ErrInstructionInvalid
		return
	}

	return
}
