//go:build windows

package io

import (
	"os"

	"golang.org/x/term"
)

// Terminal is a terminal in raw mode, and the state to restore.
type Terminal struct {
	file  *os.File
	saved *term.State
}

// MakeRaw puts the console into raw mode, so that keystrokes are
// delivered as they are typed.
func MakeRaw(file *os.File) (tty *Terminal, err error) {
	if !IsTerminal(file) {
		err = ErrNotTerminal
		return
	}

	saved, err := term.MakeRaw(int(file.Fd()))
	if err != nil {
		return
	}

	tty = &Terminal{
		file:  file,
		saved: saved,
	}

	return
}

// Restore the terminal to the state before MakeRaw.
func (tty *Terminal) Restore() (err error) {
	return term.Restore(int(tty.file.Fd()), tty.saved)
}
