// Copyright 2024, Jason S. McMullan <jason.mcmullan@gmail.com>

package emulator

import (
	"fmt"
	"iter"
	"log"
	"maps"
	"strings"

	"github.com/ezrec/lc3/cpu"
	"github.com/ezrec/lc3/internal"
	"github.com/ezrec/lc3/io"
)

const (
	ORIGIN = cpu.SPACE_USER // Start address, if no image is loaded.
)

var _emulator_defines = map[string]string{
	"ORIGIN": fmt.Sprintf("0x%x", ORIGIN),
}

// Emulator state. CPU + memory + console.
type Emulator struct {
	Verbose  bool         // If set, enables verbose logging.
	*cpu.Cpu              // Reference to the CPU simulation.
	Program  *cpu.Program // Reference to the currently running program listing.

	Console io.Console // Console attached to the keyboard and the traps.

	start  uint16 // Start address.
	loaded bool   // Set once an image has been loaded.
}

// NewEmulator creates a new emulator.
func NewEmulator() (emu *Emulator) {
	emu = &Emulator{
		Program: &cpu.Program{},
		start:   ORIGIN,
	}

	emu.Cpu = cpu.NewCpu(&emu.Console)

	return
}

// Defines returns an iterator over all of the defines
func (emu *Emulator) Defines() iter.Seq2[string, string] {
	return internal.IterSeq2Concat(maps.All(_emulator_defines),
		emu.Cpu.Defines(),
	)
}

// Close the emulator, flushing console output.
func (emu *Emulator) Close() (err error) {
	err = emu.Console.Flush()

	return
}

// Load copies an image into memory.
// The first image loaded sets the start address.
func (emu *Emulator) Load(img *cpu.Image) (err error) {
	emu.Cpu.Verbose = emu.Verbose

	err = emu.Cpu.Load(img)
	if err != nil {
		return
	}

	if !emu.loaded {
		emu.loaded = true
		emu.start = img.Origin
		emu.Reset()
	}

	return
}

// LoadProgram loads an assembled program, and keeps its listing for
// runtime diagnostics.
func (emu *Emulator) LoadProgram(prog *cpu.Program) (err error) {
	err = emu.Load(prog.Image())
	if err != nil {
		return
	}

	emu.Program = prog

	return
}

// Reset the CPU to the start address. Memory is unchanged.
func (emu *Emulator) Reset() {
	emu.Cpu.Verbose = emu.Verbose
	emu.Cpu.Reset(emu.start)
}

// Start returns the start address.
func (emu *Emulator) Start() uint16 {
	return emu.start
}

// LineNo returns the source line number of the next instruction, or 0 if
// it is not part of the program listing.
func (emu *Emulator) LineNo() int {
	dbg := emu.Program.Debug(emu.Cpu.PC)
	if dbg.Statement == nil {
		return 0
	}

	return dbg.LineNo
}

// Tick executes a single instruction. done is set once the CPU halts.
func (emu *Emulator) Tick() (done bool, err error) {
	// Set CPU verbosity
	emu.Cpu.Verbose = emu.Verbose

	if emu.Cpu.State == cpu.STATE_HALTED {
		done = true
		return
	}

	pc := emu.Cpu.PC
	dbg := emu.Program.Debug(pc)
	defer func() {
		if err != nil {
			rt := &ErrRuntime{Pc: pc, Err: err}
			if dbg.Statement != nil {
				rt.LineNo = dbg.LineNo
				rt.Source = strings.Join(dbg.Words, " ")
			}
			err = rt
		}
	}()

	err = emu.Cpu.Tick()
	if err != nil {
		done = true
		return
	}

	if emu.Cpu.State == cpu.STATE_HALTED {
		done = true
		if emu.Verbose {
			log.Printf("emu: halted after %d instructions", emu.Cpu.Ticks)
		}
		err = emu.Console.Flush()
	}

	return
}

// Run the emulator until it halts.
func (emu *Emulator) Run() (err error) {
	for done := false; !done; {
		done, err = emu.Tick()
		if err != nil {
			return
		}
	}

	return
}
