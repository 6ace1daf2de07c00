// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package util

import "fmt"

// FormatDuration renders a length in seconds as H:MM:SS for console
// display. Fractions of a second truncate toward zero.
func FormatDuration(seconds float64) string {
	sign := ""
	if seconds < 0 {
		sign = "-"
		seconds = -seconds
	}
	t := int64(seconds)
	return fmt.Sprintf("%s%d:%02d:%02d", sign, t/3600, t/60%60, t%60)
}
