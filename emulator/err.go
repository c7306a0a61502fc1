package emulator

import (
	"github.com/ezrec/lc3/translate"
)

var f = translate.From

// ErrRuntime indicates the location of a runtime error.
type ErrRuntime struct {
	Pc     uint16 // Address of the faulting instruction.
	LineNo int    // Source line, or 0 if unknown.
	Source string // Source text, if known.
	Err    error
}

func (err *ErrRuntime) Error() string {
	if err.LineNo == 0 {
		return err.Err.Error()
	}

	return f("line %d '%v' %v", err.LineNo, err.Source, err.Err)
}

func (err *ErrRuntime) Unwrap() error {
	return err.Err
}
