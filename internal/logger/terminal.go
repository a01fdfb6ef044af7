package logger

import "github.com/mattn/go-isatty"

// isTerminal reports whether the descriptor is an interactive terminal,
// which enables colored console output.
func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
