package cpu

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func FuzzCpu(f *testing.F) {
	for op := range 16 {
		f.Add(uint16(op<<12), uint16(0), uint16(0))
		f.Add(uint16(op<<12)|0x0fff, uint16(0x8000), uint16(0x1234))
	}
	f.Add(uint16(0x1063), uint16(5), uint16(0xfffe))

	f.Fuzz(func(t *testing.T, word uint16, base uint16, step uint16) {
		assert := assert.New(t)

		cpu := NewCpu(&testConsole{input: []byte("xyz")})
		for n := range cpu.R {
			cpu.R[n] = base + uint16(n)*step
		}
		cpu.Memory.Write(SPACE_USER, word)

		err := cpu.Tick()

		switch cpu.Cond {
		case FLAG_NEG, FLAG_ZRO, FLAG_POS:
		default:
			t.Fatalf("0x%04x: invalid flags %v", word, cpu.Cond)
		}

		code := Code(word)
		switch {
		case code.Op().Reserved():
			assert.ErrorIs(err, ErrReservedOpcode)
			assert.Equal(STATE_HALTED, cpu.State)
		case code.Op() == OP_TRAP:
			inst := Decode(code)
			if inst.Vector == TRAP_HALT {
				assert.Equal(STATE_HALTED, cpu.State)
			}
			if err != nil {
				assert.ErrorIs(err, ErrTrapVector)
			}
		default:
			assert.NoError(err)
			assert.Equal(STATE_RUNNING, cpu.State)
			assert.Equal(1, cpu.Ticks)
		}
	})
}
