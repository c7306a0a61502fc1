package cpu

import (
	"errors"
	"log"
	"unicode/utf8"
)

// TRAP_IN_PROMPT is written by the IN trap before it waits for a key.
const TRAP_IN_PROMPT = "Enter a character: "

// Console is the console device used by the TRAP routines.
type Console interface {
	Keyboard

	// ReadKey blocks until a keystroke is available. It does not echo.
	ReadKey() (key byte, err error)
	// WriteByte writes a single byte to the console output.
	WriteByte(c byte) error
}

// Trap runs the service routine for a trap vector, and reports if the
// CPU must halt. Undefined vectors halt with ErrTrapVector.
func (cpu *Cpu) Trap(vector TrapVector) (halt bool, err error) {
	switch vector {
	case TRAP_GETC:
		var key byte
		key, err = cpu.readKey()
		if err != nil {
			return
		}
		cpu.setResult(REG_R0, uint16(key))
	case TRAP_OUT:
		err = cpu.writeByte(byte(cpu.R[REG_R0]))
	case TRAP_PUTS:
		addr := cpu.R[REG_R0]
		for range MEMORY_SIZE {
			ch := cpu.Memory.Read(addr)
			if ch == 0 {
				break
			}
			err = cpu.writeRune(rune(ch))
			if err != nil {
				return
			}
			addr++
		}
	case TRAP_IN:
		for _, c := range []byte(TRAP_IN_PROMPT) {
			err = cpu.writeByte(c)
			if err != nil {
				return
			}
		}
		var key byte
		key, err = cpu.readKey()
		if err != nil {
			return
		}
		err = cpu.writeByte(key)
		if err != nil {
			return
		}
		cpu.setResult(REG_R0, uint16(key))
	case TRAP_PUTSP:
		addr := cpu.R[REG_R0]
		for range MEMORY_SIZE {
			word := cpu.Memory.Read(addr)
			lo, hi := byte(word), byte(word>>8)
			if lo == 0 {
				break
			}
			err = cpu.writeByte(lo)
			if err != nil {
				return
			}
			if hi == 0 {
				break
			}
			err = cpu.writeByte(hi)
			if err != nil {
				return
			}
			addr++
		}
	case TRAP_HALT:
		if cpu.Verbose {
			log.Printf("cpu: halt")
		}
		halt = true
	default:
		halt = true
		err = errors.Join(ErrTrapVector, ErrTrap(vector))
	}

	return
}

// readKey returns the keystroke latched in KBDR by a KBSR poll, or waits
// for the next one.
func (cpu *Cpu) readKey() (key byte, err error) {
	if (cpu.Memory.Data[KBSR] & KBSR_READY) != 0 {
		key = byte(cpu.Memory.Read(KBDR))
		return
	}

	if cpu.Console == nil {
		err = errors.Join(ErrConsole, ErrConsoleMissing)
		return
	}

	key, err = cpu.Console.ReadKey()
	if err != nil {
		err = errors.Join(ErrConsole, err)
	}

	return
}

func (cpu *Cpu) writeByte(c byte) (err error) {
	if cpu.Console == nil {
		err = errors.Join(ErrConsole, ErrConsoleMissing)
		return
	}

	err = cpu.Console.WriteByte(c)
	if err != nil {
		err = errors.Join(ErrConsole, err)
	}

	return
}

// writeRune writes a code point as UTF-8. Surrogate halves
// (0xd800-0xdfff) are not code points, and are written as U+FFFD.
func (cpu *Cpu) writeRune(r rune) (err error) {
	var buf [utf8.UTFMax]byte
	n := utf8.EncodeRune(buf[:], r)
	for _, c := range buf[:n] {
		err = cpu.writeByte(c)
		if err != nil {
			return
		}
	}

	return
}
