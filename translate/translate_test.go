package translate

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFrom(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("pc 0x3000: halted", From("pc 0x%04x: %v", 0x3000, "halted"))
	assert.Equal("label LOOP missing", From("label %v missing", "LOOP"))
	assert.NotEmpty(Locale())
}
