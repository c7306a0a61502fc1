package cpu

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Cpu errors
	ErrHalted         = errors.New(f("halted"))
	ErrReservedOpcode = errors.New(f("reserved opcode"))
	ErrTrapVector     = errors.New(f("undefined trap vector"))
	ErrConsole        = errors.New(f("console"))
	ErrConsoleMissing = errors.New(f("no console attached"))

	// Image errors
	ErrImageShort    = errors.New(f("image too short"))
	ErrImageOdd      = errors.New(f("image has odd length"))
	ErrImageOverflow = errors.New(f("image overflows memory"))

	// Assembler errors
	ErrOrigMissing        = errors.New(f(".ORIG missing"))
	ErrOrigDuplicate      = errors.New(f(".ORIG duplicated"))
	ErrEquateSyntax       = errors.New(f(".equ syntax"))
	ErrEquateDuplicate    = errors.New(f(".equ duplicated"))
	ErrLabelDuplicate     = errors.New(f("label duplicated"))
	ErrLabelInvalid       = errors.New(f("label invalid"))
	ErrMacroSyntax        = errors.New(f(".macro syntax"))
	ErrMacroNesting       = errors.New(f(".macro in .macro prohibited"))
	ErrMacroDuplicate     = errors.New(f(".macro duplicated"))
	ErrMacroLonely        = errors.New(f(".macro without .endm"))
	ErrMacroLonelyEndm    = errors.New(f(".endm without .macro"))
	ErrOpcodeExtraArgs    = errors.New(f("excessive arguments"))
	ErrOpcodeValueMissing = errors.New(f("value missing"))
	ErrRegisterInvalid    = errors.New(f("register invalid"))
	ErrStringInvalid      = errors.New(f("string invalid"))
	ErrInstructionInvalid = errors.New(f("instruction invalid"))
)

// ErrOpcode reports the instruction word of an opcode that could not execute.
type ErrOpcode Code

func (eo ErrOpcode) Error() string {
	return f("opcode 0x%04x %v", uint16(eo), Code(eo).Op().String())
}

func (eo ErrOpcode) Is(err error) (ok bool) {
	_, ok = err.(ErrOpcode)
	return
}

// ErrTrap reports a trap vector that has no service routine.
type ErrTrap TrapVector

func (et ErrTrap) Error() string {
	return f("trap vector 0x%02x", int(et))
}

func (et ErrTrap) Is(err error) (ok bool) {
	_, ok = err.(ErrTrap)
	return
}

// ErrFault is a fatal CPU fault, with the address of the faulting instruction.
type ErrFault struct {
	Pc   uint16
	Code Code
	Err  error
}

func (err *ErrFault) Error() string {
	return f("pc 0x%04x: %v", err.Pc, err.Err)
}

func (err *ErrFault) Unwrap() error {
	return err.Err
}

type ErrLabelMissing string

func (el ErrLabelMissing) Error() string {
	return f("label %v missing", string(el))
}

// ErrRange reports a value that does not fit in its instruction field.
type ErrRange struct {
	Value int
	Bits  int
}

func (err ErrRange) Error() string {
	return f("%d does not fit in %d bits", err.Value, err.Bits)
}

type ErrSyntax struct {
	LineNo int
	Line   string
	Err    error
}

func (err *ErrSyntax) Error() string {
	return f("line %d '%v' %v", err.LineNo, err.Line, err.Err)
}

func (err *ErrSyntax) Unwrap() error {
	return err.Err
}

type ErrParseNumber string

func (err ErrParseNumber) Error() string {
	return f("'%v' is not a number", string(err))
}

type ErrParseCharacter string

func (err ErrParseCharacter) Error() string {
	return f("'%v' is not a character", string(err))
}

type ErrParseExpression string

func (err ErrParseExpression) Error() string {
	return f("$(%v) is not a valid expression", string(err))
}

type ErrMacro struct {
	Macro string
	Line  int
	Err   error
}

func (err *ErrMacro) Error() string {
	return f("macro %v line %v %v", err.Macro, err.Line, err.Err.Error())
}

func (err *ErrMacro) Unwrap() error {
	return err.Err
}
