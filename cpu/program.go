package cpu

import (
	"iter"
)

// Statement is a single assembled source statement.
type Statement struct {
	LineNo    int      // Source line number.
	Address   int      // Address of the first code.
	Words     []string // Source words, after expansion.
	Codes     []Code   // Generated instruction words.
	LinkLabel string   // Label to link into the last code, if any.
	LinkBits  int      // Width of the linked field. 16 is an absolute address.
}

// Program is an assembled LC-3 program.
type Program struct {
	Origin     uint16
	Statements []Statement
}

// Debug locates the statement that generated the word at an address.
type Debug struct {
	*Statement
	Index int
}

// Debug returns the statement at pc. Statement is nil if pc is not part
// of the program.
func (prog *Program) Debug(pc uint16) (dbg Debug) {
	for n, st := range prog.Statements {
		if int(pc) >= st.Address && int(pc) < st.Address+len(st.Codes) {
			dbg = Debug{
				Statement: &prog.Statements[n],
				Index:     int(pc) - st.Address,
			}
			break
		}
	}

	return
}

// Codes iterates over the address and value of every program word.
func (prog *Program) Codes() iter.Seq2[uint16, Code] {
	return func(yield func(addr uint16, code Code) bool) {
		for _, st := range prog.Statements {
			addr := uint16(st.Address)
			for n, code := range st.Codes {
				if !yield(addr+uint16(n), code) {
					return
				}
			}
		}
	}
}

// Binary returns the program words, starting at the origin.
func (prog *Program) Binary() (words []uint16) {
	for _, code := range prog.Codes() {
		words = append(words, uint16(code))
	}

	return
}

// Image returns the loadable object image of the program.
func (prog *Program) Image() *Image {
	return &Image{
		Origin: prog.Origin,
		Words:  prog.Binary(),
	}
}
