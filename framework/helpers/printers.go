package helpers

import (
	"fmt"
	"io"
)

// MustFprintf and MustFprintln are for console output, where a failed write means the process
// has nowhere left to report anything.

func MustFprintln(w io.Writer, a ...any) {
	if _, err := fmt.Fprintln(w, a...); err != nil {
		panic(err)
	}
}

func MustFprintf(w io.Writer, format string, a ...any) {
	if _, err := fmt.Fprintf(w, format, a...); err != nil {
		panic(err)
	}
}
