//go:build !windows

package io

import (
	"os"

	"github.com/pkg/term/termios"
	"golang.org/x/sys/unix"
)

// Terminal is a terminal in raw mode, and the state to restore.
type Terminal struct {
	file  *os.File
	saved unix.Termios
}

// MakeRaw disables line editing and echo on a terminal, so that
// keystrokes are delivered as they are typed. Output processing is left
// enabled.
func MakeRaw(file *os.File) (tty *Terminal, err error) {
	if !IsTerminal(file) {
		err = ErrNotTerminal
		return
	}

	saved := unix.Termios{}
	err = termios.Tcgetattr(file.Fd(), &saved)
	if err != nil {
		return
	}

	raw := saved
	raw.Lflag &^= unix.ICANON | unix.ECHO
	raw.Cc[unix.VMIN] = 1
	raw.Cc[unix.VTIME] = 0

	err = termios.Tcsetattr(file.Fd(), termios.TCSANOW, &raw)
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
	return termios.Tcsetattr(tty.file.Fd(), termios.TCSANOW, &tty.saved)
}
