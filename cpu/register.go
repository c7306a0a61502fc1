package cpu

// Registers is the LC-3 register file.
type Registers struct {
	R    [8]uint16 // General purpose registers.
	PC   uint16    // Program counter.
	Cond Flag      // Active condition flag.
}

// Clear zeros the general purpose registers and sets the program counter.
// The condition flag becomes FLAG_ZRO, matching the zeroed registers.
func (regs *Registers) Clear(pc uint16) {
	clear(regs.R[:])
	regs.PC = pc
	regs.Cond = FLAG_ZRO
}

// Get returns the value of r0-r7 or pc.
func (regs *Registers) Get(reg Register) uint16 {
	if reg == REG_PC {
		return regs.PC
	}
	return regs.R[reg&7]
}

// Set sets the value of r0-r7 or pc.
func (regs *Registers) Set(reg Register, value uint16) {
	if reg == REG_PC {
		regs.PC = value
		return
	}
	regs.R[reg&7] = value
}

// SetFlags makes the flag matching the sign of result the only active flag.
func (regs *Registers) SetFlags(result int16) {
	switch {
	case result < 0:
		regs.Cond = FLAG_NEG
	case result == 0:
		regs.Cond = FLAG_ZRO
	default:
		regs.Cond = FLAG_POS
	}
}

// setResult stores value in reg and updates the flags from it.
func (regs *Registers) setResult(reg Register, value uint16) {
	regs.Set(reg, value)
	regs.SetFlags(int16(value))
}
