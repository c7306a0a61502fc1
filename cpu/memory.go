package cpu

// Keyboard is a non-blocking keyboard port.
type Keyboard interface {
	// Poll returns a pending keystroke, if there is one.
	Poll() (key byte, ok bool)
}

// Memory is the LC-3 word addressed memory.
//
// Reading KBSR polls the keyboard port when no keystroke is already
// pending: a keystroke sets KBSR_READY and places the key in KBDR,
// otherwise KBSR is cleared. Reading KBDR clears KBSR_READY.
type Memory struct {
	Keyboard Keyboard // Keyboard port, may be nil.

	Data [MEMORY_SIZE]uint16
}

// Read returns the word at addr.
func (mem *Memory) Read(addr uint16) uint16 {
	switch addr {
	case KBSR:
		if (mem.Data[KBSR] & KBSR_READY) == 0 {
			mem.poll()
		}
	case KBDR:
		mem.Data[KBSR] &^= KBSR_READY
	}

	return mem.Data[addr]
}

// Write stores value at addr.
func (mem *Memory) Write(addr uint16, value uint16) {
	mem.Data[addr] = value
}

// Load copies words into memory, starting at origin.
func (mem *Memory) Load(origin uint16, words []uint16) (err error) {
	if int(origin)+len(words) > MEMORY_SIZE {
		err = ErrImageOverflow
		return
	}

	copy(mem.Data[origin:], words)

	return
}

// Reset zeros all of memory.
func (mem *Memory) Reset() {
	clear(mem.Data[:])
}

func (mem *Memory) poll() {
	mem.Data[KBSR] = 0

	if mem.Keyboard == nil {
		return
	}

	key, ok := mem.Keyboard.Poll()
	if ok {
		mem.Data[KBSR] = KBSR_READY
		mem.Data[KBDR] = uint16(key)
	}
}
