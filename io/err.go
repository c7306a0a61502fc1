package io

import (
	"errors"

	"github.com/ezrec/lc3/translate"
)

var f = translate.From

var (
	// Console errors
	ErrOutputMissing = errors.New(f("console output missing"))
	ErrNotTerminal   = errors.New(f("not a terminal"))
)
