// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package util

import (
	"fmt"
	"os"

	"golang.org/x/term"
)

// ANSI color codes used by console output.
const (
	ColorGreen  = "32"
	ColorRed    = "31"
	ColorYellow = "33"
	ColorDim    = "90"
)

// supportsColor checks if the terminal supports ANSI color codes
func supportsColor() bool {
	// Check if stdout is a terminal
	if !term.IsTerminal(int(os.Stdout.Fd())) { // #nosec G115 - file descriptors are small integers
		return false
	}

	// Check TERM environment variable
	termEnv := os.Getenv("TERM")
	if termEnv == "" || termEnv == "dumb" {
		return false
	}

	return true
}

// Colorize wraps s in the ANSI escape for the given color code when
// stdout is a color terminal, and returns it unchanged otherwise.
func Colorize(s string, colorCode string) string {
	if colorCode == "" || !supportsColor() {
		return s
	}
	return fmt.Sprintf("\033[%sm%s\033[0m", colorCode, s)
}
