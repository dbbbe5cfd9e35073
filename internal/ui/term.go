package ui

import (
	"io"
	"os"

	"golang.org/x/term"
)

// IsInteractive reports whether w is a terminal. Progress output and the
// spinner are only shown on interactive terminals.
func IsInteractive(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

// Beep rings the terminal bell.
func Beep(w io.Writer) {
	_, _ = io.WriteString(w, "\a")
}
