// Package io provides console implementations for the LC-3 emulator:
// a Console over byte streams, and raw mode control for a Terminal.
package io

import (
	"bufio"
	"io"
	"sync"
)

// Console provides keyboard and display operations over byte streams.
// Input is read by a background goroutine, so that the keyboard can be
// polled without blocking. Output is buffered until a newline, a blocking
// read, or Flush.
type Console struct {
	Input  io.Reader
	Output io.Writer

	once  sync.Once
	keys  chan byte
	err   error // Input error, valid once keys is closed.
	write *bufio.Writer
}

// start the input pump.
func (con *Console) start() {
	con.once.Do(func() {
		con.keys = make(chan byte, 1)
		if con.Input == nil {
			con.err = io.EOF
			close(con.keys)
			return
		}
		go con.pump()
	})
}

// pump feeds keystrokes from the input stream.
func (con *Console) pump() {
	defer close(con.keys)

	var one [1]byte
	for {
		n, err := con.Input.Read(one[:])
		if n == 1 {
			con.keys <- one[0]
		}
		if err != nil {
			con.err = err
			return
		}
	}
}

// Poll returns a keystroke, if one is available.
func (con *Console) Poll() (key byte, ok bool) {
	con.start()

	// A failed flush is kept by the writer, and returned by the next
	// WriteByte or Flush.
	if con.write != nil && con.write.Buffered() > 0 {
		con.write.Flush()
	}

	select {
	case key, ok = <-con.keys:
	default:
	}

	return
}

// ReadKey waits for a keystroke. Pending output is flushed first.
// At the end of the input, the input error (usually io.EOF) is returned.
func (con *Console) ReadKey() (key byte, err error) {
	con.start()

	err = con.Flush()
	if err != nil {
		return
	}

	key, ok := <-con.keys
	if !ok {
		err = con.err
	}

	return
}

// WriteByte writes a byte to the output.
func (con *Console) WriteByte(c byte) (err error) {
	if con.write == nil {
		if con.Output == nil {
			err = ErrOutputMissing
			return
		}
		con.write = bufio.NewWriter(con.Output)
	}

	err = con.write.WriteByte(c)
	if err != nil {
		return
	}

	if c == '\n' {
		err = con.write.Flush()
	}

	return
}

// Flush writes any buffered output.
func (con *Console) Flush() (err error) {
	if con.write == nil {
		return
	}

	err = con.write.Flush()

	return
}
