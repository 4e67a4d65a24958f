package output

import (
	"os"

	"golang.org/x/term"
)

// IsTTY reports whether stdout is attached to a terminal. Spinners and
// interactive prompts are only shown on a TTY.
func IsTTY() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
