package cpu

// LC-3 memory map.
const (
	MEMORY_SIZE = 1 << 16 // Number of addressable words.

	SPACE_TRAP_TABLE = 0x0000 // Trap vector table.
	SPACE_INTERRUPT  = 0x0100 // Interrupt vector table.
	SPACE_SYSTEM     = 0x0200 // Operating system.
	SPACE_USER       = 0x3000 // User programs.
	SPACE_DEVICE     = 0xfe00 // Device registers.

	KBSR = 0xfe00 // Keyboard status register.
	KBDR = 0xfe02 // Keyboard data register.

	KBSR_READY = 0x8000 // Keyboard status 'key ready' bit.
)
