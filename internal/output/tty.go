package output

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stderr, where progress and logs go, is a terminal.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stderr.Fd()))
}

// IsNoColor reports whether colored output is disabled, either through
// NO_COLOR or because stdout is not a terminal.
func IsNoColor() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}
