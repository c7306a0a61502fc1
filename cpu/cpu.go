package cpu

import (
	"errors"
	"fmt"
	"iter"
	"log"
	"maps"
)

// State is the execution state of the CPU.
type State int

//go:generate go tool stringer -linecomment -type=State
const (
	STATE_RUNNING = State(0) // running
	STATE_HALTED  = State(1) // halted
)

var _cpu_defines = map[string]string{
	"MEMORY_SIZE":      fmt.Sprintf("0x%x", MEMORY_SIZE),
	"SPACE_TRAP_TABLE": fmt.Sprintf("0x%x", SPACE_TRAP_TABLE),
	"SPACE_INTERRUPT":  fmt.Sprintf("0x%x", SPACE_INTERRUPT),
	"SPACE_SYSTEM":     fmt.Sprintf("0x%x", SPACE_SYSTEM),
	"SPACE_USER":       fmt.Sprintf("0x%x", SPACE_USER),
	"SPACE_DEVICE":     fmt.Sprintf("0x%x", SPACE_DEVICE),
	"KBSR":             fmt.Sprintf("0x%x", KBSR),
	"KBDR":             fmt.Sprintf("0x%x", KBDR),
	"KBSR_READY":       fmt.Sprintf("0x%x", KBSR_READY),
	"TRAP_GETC":        fmt.Sprintf("0x%x", int(TRAP_GETC)),
	"TRAP_OUT":         fmt.Sprintf("0x%x", int(TRAP_OUT)),
	"TRAP_PUTS":        fmt.Sprintf("0x%x", int(TRAP_PUTS)),
	"TRAP_IN":          fmt.Sprintf("0x%x", int(TRAP_IN)),
	"TRAP_PUTSP":       fmt.Sprintf("0x%x", int(TRAP_PUTSP)),
	"TRAP_HALT":        fmt.Sprintf("0x%x", int(TRAP_HALT)),
}

// Cpu is the simulation context for an LC-3 processor and its memory.
type Cpu struct {
	Verbose bool // Set to enable verbose logging.

	Registers        // Register file.
	Memory    Memory // Memory, including the keyboard registers.

	Console Console // Console used by the TRAP routines.

	State State // Execution state.
	Fault error // Fault that halted the CPU, if any.
	Ticks int   // Instructions executed.
}

// NewCpu creates a new CPU attached to a console.
func NewCpu(console Console) (cpu *Cpu) {
	cpu = &Cpu{}
	cpu.SetConsole(console)
	cpu.Reset(SPACE_USER)

	return
}

// Defines for the cpu
func (cpu *Cpu) Defines() iter.Seq2[string, string] {
	return maps.All(_cpu_defines)
}

// SetConsole attaches the console to the TRAP routines and to the
// memory-mapped keyboard registers.
func (cpu *Cpu) SetConsole(console Console) {
	cpu.Console = console
	cpu.Memory.Keyboard = console
}

// Reset the CPU state.
// - Clears the registers, and sets the program counter to pc.
// - Zeros statistics counters.
// - Returns to the running state.
// Memory is not changed.
func (cpu *Cpu) Reset(pc uint16) {
	if cpu.Verbose {
		log.Printf("cpu: reset pc 0x%04x", pc)
	}

	cpu.Registers.Clear(pc)
	cpu.State = STATE_RUNNING
	cpu.Fault = nil
	cpu.Ticks = 0
}

// Load copies an image into memory.
func (cpu *Cpu) Load(img *Image) (err error) {
	if cpu.Verbose {
		log.Printf("cpu: load 0x%04x..0x%04x", img.Origin, img.End())
	}

	return cpu.Memory.Load(img.Origin, img.Words)
}

// String returns the current CPU state as a string.
func (cpu *Cpu) String() (text string) {
	regs := []string{
		"pc",
		"cond",
		"r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7",
		"state",
	}
	for _, reg := range regs {
		var strval string
		switch reg {
		case "pc":
			strval = fmt.Sprintf("%04X", cpu.PC)
		case "cond":
			strval = cpu.Cond.String()
		case "r0", "r1", "r2", "r3", "r4", "r5", "r6", "r7":
			val := cpu.R[byte(reg[1]-'0')]
			strval = fmt.Sprintf("%04X (%d)", val, int16(val))
		case "state":
			strval = cpu.State.String()
		}
		text += fmt.Sprintf("% 5s: %v\n", reg, strval)
	}

	return
}

// Run ticks the CPU until it halts.
// A HALT trap returns nil, any other fault is returned.
func (cpu *Cpu) Run() (err error) {
	for cpu.State == STATE_RUNNING {
		err = cpu.Tick()
		if err != nil {
			return
		}
	}

	return
}

// Tick fetches, decodes and executes a single instruction.
// Faults halt the CPU and are returned as *ErrFault.
func (cpu *Cpu) Tick() (err error) {
	if cpu.State != STATE_RUNNING {
		err = ErrHalted
		return
	}

	pc := cpu.PC
	code := Code(cpu.Memory.Read(pc))
	cpu.PC++

	if cpu.Verbose {
		log.Printf("cpu: 0x%04x 0x%04x %v", pc, uint16(code), Decode(code))
	}

	err = cpu.Execute(code)
	if err != nil {
		err = &ErrFault{Pc: pc, Code: code, Err: err}
		cpu.Fault = err
		cpu.State = STATE_HALTED
		return
	}

	return
}

// Execute executes a single instruction word. The program counter must
// already point past the instruction.
func (cpu *Cpu) Execute(code Code) (err error) {
	inst := Decode(code)
	mem := &cpu.Memory

	switch inst.Op {
	case OP_ADD:
		cpu.setResult(inst.Dst, cpu.R[inst.Src]+cpu.aluOperand(inst))
	case OP_AND:
		cpu.setResult(inst.Dst, cpu.R[inst.Src]&cpu.aluOperand(inst))
	case OP_NOT:
		cpu.setResult(inst.Dst, ^cpu.R[inst.Src])
	case OP_BR:
		if (inst.NZP & uint16(cpu.Cond)) != 0 {
			cpu.PC += inst.Offset
		}
	case OP_JMP:
		cpu.PC = cpu.R[inst.Src]
	case OP_JSR:
		link := cpu.PC
		if inst.Imm {
			cpu.PC += inst.Offset
		} else {
			cpu.PC = cpu.R[inst.Src]
		}
		cpu.R[REG_R7] = link
	case OP_LD:
		cpu.setResult(inst.Dst, mem.Read(cpu.PC+inst.Offset))
	case OP_LDI:
		cpu.setResult(inst.Dst, mem.Read(mem.Read(cpu.PC+inst.Offset)))
	case OP_LDR:
		cpu.setResult(inst.Dst, mem.Read(cpu.R[inst.Src]+inst.Offset))
	case OP_LEA:
		cpu.setResult(inst.Dst, cpu.PC+inst.Offset)
	case OP_ST:
		mem.Write(cpu.PC+inst.Offset, cpu.R[inst.Dst])
	case OP_STI:
		mem.Write(mem.Read(cpu.PC+inst.Offset), cpu.R[inst.Dst])
	case OP_STR:
		mem.Write(cpu.R[inst.Src]+inst.Offset, cpu.R[inst.Dst])
	case OP_TRAP:
		cpu.R[REG_R7] = cpu.PC
		var halt bool
		halt, err = cpu.Trap(inst.Vector)
		if halt {
			cpu.State = STATE_HALTED
		}
		if err != nil {
			return
		}
	case OP_RTI, OP_RES:
		err = errors.Join(ErrReservedOpcode, ErrOpcode(code))
		return
	}

	cpu.Ticks += 1

	return
}

// aluOperand returns the second operand of ADD or AND.
func (cpu *Cpu) aluOperand(inst Instruction) uint16 {
	if inst.Imm {
		return inst.Offset
	}
	return cpu.R[inst.Src2]
}
