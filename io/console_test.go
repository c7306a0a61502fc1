package io

import (
	"bytes"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/ezrec/lc3/cpu"
)

var _ cpu.Console = &Console{}

func TestConsoleReadKey(t *testing.T) {
	assert := assert.New(t)

	con := &Console{Input: strings.NewReader("ab")}

	key, err := con.ReadKey()
	assert.NoError(err)
	assert.Equal(byte('a'), key)

	key, err = con.ReadKey()
	assert.NoError(err)
	assert.Equal(byte('b'), key)

	_, err = con.ReadKey()
	assert.ErrorIs(err, io.EOF)

	_, ok := con.Poll()
	assert.False(ok)
}

func TestConsolePoll(t *testing.T) {
	assert := assert.New(t)

	reader, writer := io.Pipe()
	defer writer.Close()

	con := &Console{Input: reader}

	_, ok := con.Poll()
	assert.False(ok)

	go writer.Write([]byte("k"))

	var key byte
	assert.Eventually(func() bool {
		key, ok = con.Poll()
		return ok
	}, time.Second, time.Millisecond)
	assert.Equal(byte('k'), key)

	_, ok = con.Poll()
	assert.False(ok)
}

func TestConsoleInputMissing(t *testing.T) {
	assert := assert.New(t)

	con := &Console{}

	_, ok := con.Poll()
	assert.False(ok)

	_, err := con.ReadKey()
	assert.ErrorIs(err, io.EOF)
}

func TestConsoleInputError(t *testing.T) {
	assert := assert.New(t)

	broken := errors.New("broken")
	reader, writer := io.Pipe()
	writer.CloseWithError(broken)

	con := &Console{Input: reader}

	_, err := con.ReadKey()
	assert.ErrorIs(err, broken)
}

func TestConsoleWrite(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	con := &Console{Output: &out}

	for _, c := range []byte("hi") {
		assert.NoError(con.WriteByte(c))
	}
	assert.Equal("", out.String())

	assert.NoError(con.WriteByte('\n'))
	assert.Equal("hi\n", out.String())

	assert.NoError(con.WriteByte('!'))
	assert.NoError(con.Flush())
	assert.Equal("hi\n!", out.String())
}

func TestConsoleFlushOnRead(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	con := &Console{Input: strings.NewReader("y"), Output: &out}

	for _, c := range []byte("? ") {
		assert.NoError(con.WriteByte(c))
	}

	key, err := con.ReadKey()
	assert.NoError(err)
	assert.Equal(byte('y'), key)
	assert.Equal("? ", out.String())
}

// failWriter fails every write.
type failWriter struct {
	err error
}

func (fw *failWriter) Write(p []byte) (n int, err error) {
	err = fw.err
	return
}

func TestConsolePollOutputError(t *testing.T) {
	assert := assert.New(t)

	broken := errors.New("broken")
	con := &Console{Output: &failWriter{err: broken}}

	assert.NoError(con.WriteByte('x'))

	_, ok := con.Poll()
	assert.False(ok)

	assert.ErrorIs(con.WriteByte('y'), broken)
	assert.ErrorIs(con.Flush(), broken)
}

func TestConsoleOutputMissing(t *testing.T) {
	assert := assert.New(t)

	con := &Console{}
	assert.ErrorIs(con.WriteByte('x'), ErrOutputMissing)
	assert.NoError(con.Flush())
}

func TestConsoleCpu(t *testing.T) {
	assert := assert.New(t)

	var out bytes.Buffer
	con := &Console{Input: strings.NewReader("z"), Output: &out}

	// GETC, OUT, HALT
	lc3 := cpu.NewCpu(con)
	err := lc3.Load(&cpu.Image{Origin: cpu.SPACE_USER, Words: []uint16{0xf020, 0xf021, 0xf025}})
	assert.NoError(err)

	err = lc3.Run()
	assert.NoError(err)
	assert.NoError(con.Flush())
	assert.Equal("z", out.String())
}
