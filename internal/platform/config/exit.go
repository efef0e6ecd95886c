package config

import (
	"fmt"
	"os"
	"strings"
)

// Exitf reports a fatal startup failure on stderr and exits with code 1.
// Entry points use it before logging is configured.
func Exitf(format string, args ...any) {
	msg := strings.TrimRight(fmt.Sprintf(format, args...), "\n")
	fmt.Fprintln(os.Stderr, msg)
	os.Exit(1)
}
