package cpu

import (
	"fmt"
)

// Opcode is the 4-bit operation tag in the top of an instruction word.
type Opcode int

//go:generate go tool stringer -linecomment -type=Opcode
const (
	OP_BR   = Opcode(0)  // br
	OP_ADD  = Opcode(1)  // add
	OP_LD   = Opcode(2)  // ld
	OP_ST   = Opcode(3)  // st
	OP_JSR  = Opcode(4)  // jsr
	OP_AND  = Opcode(5)  // and
	OP_LDR  = Opcode(6)  // ldr
	OP_STR  = Opcode(7)  // str
	OP_RTI  = Opcode(8)  // rti
	OP_NOT  = Opcode(9)  // not
	OP_LDI  = Opcode(10) // ldi
	OP_STI  = Opcode(11) // sti
	OP_JMP  = Opcode(12) // jmp
	OP_RES  = Opcode(13) // res
	OP_LEA  = Opcode(14) // lea
	OP_TRAP = Opcode(15) // trap
)

// Reserved returns true if the opcode has no defined behaviour.
func (op Opcode) Reserved() bool {
	return op == OP_RTI || op == OP_RES
}

// Register is a register index. r0-r7 are encodable in an instruction,
// pc is only reachable through the register file accessors.
type Register int

//go:generate go tool stringer -linecomment -type=Register
const (
	REG_R0 = Register(0) // r0
	REG_R1 = Register(1) // r1
	REG_R2 = Register(2) // r2
	REG_R3 = Register(3) // r3
	REG_R4 = Register(4) // r4
	REG_R5 = Register(5) // r5
	REG_R6 = Register(6) // r6
	REG_R7 = Register(7) // r7
	REG_PC = Register(8) // pc
)

// Flag is the condition flag state. Exactly one flag is active at a time.
// The values match the n, z and p bits of a BR instruction.
type Flag int

//go:generate go tool stringer -linecomment -type=Flag
const (
	FLAG_POS = Flag(1 << 0) // p
	FLAG_ZRO = Flag(1 << 1) // z
	FLAG_NEG = Flag(1 << 2) // n
)

// TrapVector selects a TRAP service routine.
type TrapVector int

//go:generate go tool stringer -linecomment -type=TrapVector
const (
	TRAP_GETC  = TrapVector(0x20) // getc
	TRAP_OUT   = TrapVector(0x21) // out
	TRAP_PUTS  = TrapVector(0x22) // puts
	TRAP_IN    = TrapVector(0x23) // in
	TRAP_PUTSP = TrapVector(0x24) // putsp
	TRAP_HALT  = TrapVector(0x25) // halt
)

// Branch condition bits of a BR instruction.
const (
	NZP_P = uint16(FLAG_POS)
	NZP_Z = uint16(FLAG_ZRO)
	NZP_N = uint16(FLAG_NEG)
)

// Code is a single LC-3 instruction word.
type Code uint16

// SignExtend replicates bit (bits-1) of value into all higher bits.
func SignExtend(value uint16, bits int) uint16 {
	value &= (1 << bits) - 1
	if (value>>(bits-1))&1 != 0 {
		value |= 0xffff << bits
	}
	return value
}

// Op returns the opcode of the instruction word.
func (code Code) Op() Opcode {
	return Opcode(uint16(code) >> 12)
}

// Instruction is a decoded instruction word. Only the fields used by
// Op are meaningful.
type Instruction struct {
	Op     Opcode
	Dst    Register   // DR, or SR for ST/STI/STR.
	Src    Register   // SR1, SR, or BaseR.
	Src2   Register   // SR2 of register mode ADD/AND.
	Unused uint16     // Bits 3-4 of register mode ADD/AND, normally zero.
	Imm    bool       // ADD/AND immediate mode, or JSR offset mode.
	Offset uint16     // Sign extended imm5, offset6, PCoffset9 or PCoffset11.
	NZP    uint16     // BR condition bits.
	Vector TrapVector // TRAP vector.
}

// Decode decodes an instruction word.
func Decode(code Code) (inst Instruction) {
	word := uint16(code)

	inst.Op = code.Op()

	switch inst.Op {
	case OP_ADD, OP_AND:
		inst.Dst = Register((word >> 9) & 0x7)
		inst.Src = Register((word >> 6) & 0x7)
		inst.Imm = ((word >> 5) & 1) == 1
		if inst.Imm {
			inst.Offset = SignExtend(word, 5)
		} else {
			inst.Src2 = Register(word & 0x7)
			inst.Unused = (word >> 3) & 0x3
		}
	case OP_NOT:
		inst.Dst = Register((word >> 9) & 0x7)
		inst.Src = Register((word >> 6) & 0x7)
	case OP_BR:
		inst.NZP = (word >> 9) & 0x7
		inst.Offset = SignExtend(word, 9)
	case OP_JMP:
		inst.Src = Register((word >> 6) & 0x7)
	case OP_JSR:
		inst.Imm = ((word >> 11) & 1) == 1
		if inst.Imm {
			inst.Offset = SignExtend(word, 11)
		} else {
			inst.Src = Register((word >> 6) & 0x7)
		}
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		inst.Dst = Register((word >> 9) & 0x7)
		inst.Offset = SignExtend(word, 9)
	case OP_LDR, OP_STR:
		inst.Dst = Register((word >> 9) & 0x7)
		inst.Src = Register((word >> 6) & 0x7)
		inst.Offset = SignExtend(word, 6)
	case OP_TRAP:
		inst.Vector = TrapVector(word & 0xff)
	case OP_RTI, OP_RES:
		// No operands.
	}

	return
}

// Code encodes the instruction into its instruction word.
func (inst Instruction) Code() Code {
	switch inst.Op {
	case OP_ADD, OP_AND:
		if inst.Imm {
			return MakeCodeAluImm(inst.Op, inst.Dst, inst.Src, inst.Offset)
		}
		return MakeCodeAlu(inst.Op, inst.Dst, inst.Src, inst.Src2) | Code((inst.Unused&0x3)<<3)
	case OP_NOT:
		return MakeCodeNot(inst.Dst, inst.Src)
	case OP_BR:
		return MakeCodeBranch(inst.NZP, inst.Offset)
	case OP_JMP:
		return MakeCodeJump(inst.Src)
	case OP_JSR:
		if inst.Imm {
			return MakeCodeJsr(inst.Offset)
		}
		return MakeCodeJsrr(inst.Src)
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		return MakeCodePcRelative(inst.Op, inst.Dst, inst.Offset)
	case OP_LDR, OP_STR:
		return MakeCodeBase(inst.Op, inst.Dst, inst.Src, inst.Offset)
	case OP_TRAP:
		return MakeCodeTrap(inst.Vector)
	}

	return makeOp(inst.Op, 0)
}

// makeOp places the opcode in the top 4 bits of the operand bits.
func makeOp(op Opcode, operands uint16) Code {
	return Code((uint16(op) << 12) | (operands & 0x0fff))
}

// MakeCodeAlu creates a register mode ADD or AND instruction.
func MakeCodeAlu(op Opcode, dst, src1, src2 Register) Code {
	return makeOp(op, (uint16(dst&7)<<9)|(uint16(src1&7)<<6)|uint16(src2&7))
}

// MakeCodeAluImm creates an immediate mode ADD or AND instruction.
func MakeCodeAluImm(op Opcode, dst, src1 Register, imm5 uint16) Code {
	return makeOp(op, (uint16(dst&7)<<9)|(uint16(src1&7)<<6)|(1<<5)|(imm5&0x1f))
}

// MakeCodeNot creates a NOT instruction.
func MakeCodeNot(dst, src Register) Code {
	return makeOp(OP_NOT, (uint16(dst&7)<<9)|(uint16(src&7)<<6)|0x3f)
}

// MakeCodeBranch creates a BR instruction.
func MakeCodeBranch(nzp uint16, offset9 uint16) Code {
	return makeOp(OP_BR, ((nzp&7)<<9)|(offset9&0x1ff))
}

// MakeCodeJump creates a JMP instruction. JMP r7 is RET.
func MakeCodeJump(base Register) Code {
	return makeOp(OP_JMP, uint16(base&7)<<6)
}

// MakeCodeJsr creates a PC relative JSR instruction.
func MakeCodeJsr(offset11 uint16) Code {
	return makeOp(OP_JSR, (1<<11)|(offset11&0x7ff))
}

// MakeCodeJsrr creates a register JSRR instruction.
func MakeCodeJsrr(base Register) Code {
	return makeOp(OP_JSR, uint16(base&7)<<6)
}

// MakeCodePcRelative creates a LD, LDI, LEA, ST or STI instruction.
func MakeCodePcRelative(op Opcode, reg Register, offset9 uint16) Code {
	return makeOp(op, (uint16(reg&7)<<9)|(offset9&0x1ff))
}

// MakeCodeBase creates a LDR or STR instruction.
func MakeCodeBase(op Opcode, reg, base Register, offset6 uint16) Code {
	return makeOp(op, (uint16(reg&7)<<9)|(uint16(base&7)<<6)|(offset6&0x3f))
}

// MakeCodeTrap creates a TRAP instruction.
func MakeCodeTrap(vector TrapVector) Code {
	return makeOp(OP_TRAP, uint16(vector)&0xff)
}

// String returns a short textual form of the instruction, for traces.
func (inst Instruction) String() (out string) {
	offset := int16(inst.Offset)

	switch inst.Op {
	case OP_ADD, OP_AND:
		if inst.Imm {
			out = fmt.Sprintf("%v %v %v #%d", inst.Op, inst.Dst, inst.Src, offset)
		} else {
			out = fmt.Sprintf("%v %v %v %v", inst.Op, inst.Dst, inst.Src, inst.Src2)
		}
	case OP_NOT:
		out = fmt.Sprintf("%v %v %v", inst.Op, inst.Dst, inst.Src)
	case OP_BR:
		var nzp string
		for _, flag := range []Flag{FLAG_NEG, FLAG_ZRO, FLAG_POS} {
			if inst.NZP&uint16(flag) != 0 {
				nzp += flag.String()
			}
		}
		out = fmt.Sprintf("%v%v #%d", inst.Op, nzp, offset)
	case OP_JMP:
		out = fmt.Sprintf("%v %v", inst.Op, inst.Src)
	case OP_JSR:
		if inst.Imm {
			out = fmt.Sprintf("%v #%d", inst.Op, offset)
		} else {
			out = fmt.Sprintf("%vr %v", inst.Op, inst.Src)
		}
	case OP_LD, OP_LDI, OP_LEA, OP_ST, OP_STI:
		out = fmt.Sprintf("%v %v #%d", inst.Op, inst.Dst, offset)
	case OP_LDR, OP_STR:
		out = fmt.Sprintf("%v %v %v #%d", inst.Op, inst.Dst, inst.Src, offset)
	case OP_TRAP:
		out = fmt.Sprintf("%v %v", inst.Op, inst.Vector)
	default:
		out = inst.Op.String()
	}

	return
}
