// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package util

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// DefaultDataDir is the fallback data directory.
const DefaultDataDir = "~/.amp"

var dataDirOverride string

// SetDataDir pins the data directory, overriding environment and
// default resolution. The main program calls it once after flag
// parsing; everything else resolves through DataDir.
func SetDataDir(dir string) {
	dataDirOverride = dir
}

// DataDir resolves the data directory. Resolution order: SetDataDir >
// AMP_DATA environment variable > ~/.amp. Empty when the home
// directory cannot be determined.
func DataDir() string {
	if dataDirOverride != "" {
		return dataDirOverride
	}
	if envDir := os.Getenv("AMP_DATA"); envDir != "" {
		return envDir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".amp")
}

// RequireDataDir resolves the data directory from the flag value, the
// AMP_DATA environment variable, or the default. Exits if unresolvable.
func RequireDataDir(flagValue string) string {
	if flagValue != "" {
		SetDataDir(flagValue)
	}
	dir := DataDir()
	if dir == "" {
		fmt.Fprintln(os.Stderr, "Error: Could not determine data directory")
		fmt.Fprintln(os.Stderr, "Use -d <path> or set AMP_DATA environment variable")
		os.Exit(1)
	}
	return dir
}

// ExpandPath expands the leading "~~/" to the data directory and "~/"
// to the user's home directory. Anything else passes through.
func ExpandPath(path string) string {
	if rest, ok := strings.CutPrefix(path, "~~/"); ok {
		return filepath.Join(DataDir(), rest)
	}
	if rest, ok := strings.CutPrefix(path, "~/"); ok {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, rest)
	}
	return path
}

// FindConfigFile looks name up in the data directory and reports the
// full path when the file exists.
func FindConfigFile(name string) (string, bool) {
	dir := DataDir()
	if dir == "" {
		return "", false
	}
	path := filepath.Join(dir, name)
	if _, err := os.Stat(path); err != nil {
		return "", false
	}
	return path, true
}

// ResolvePath makes a relative path absolute against base. Absolute
// paths and empty base pass through.
func ResolvePath(path, base string) string {
	if path == "" || base == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(base, path)
}
