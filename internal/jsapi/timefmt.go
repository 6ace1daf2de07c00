// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package jsapi

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var errBadTimeFormat = errors.New("bad time format")

// formatTime renders t seconds using a strftime-like template:
//
//	%H  hours, two digits        %h  hours
//	%M  minutes of the hour      %m  total minutes
//	%S  seconds of the minute    %s  total seconds
//	%f  milliseconds, three digits
//	%%  a literal %
//
// Uppercase directives are zero padded. Unknown directives make the
// whole template invalid.
func formatTime(format string, t float64) (string, error) {
	neg := t < 0
	if neg {
		t = -t
	}
	secs := int64(t)
	ms := int64(math.Round((t - float64(secs)) * 1000))
	if ms >= 1000 {
		ms -= 1000
		secs++
	}

	var b strings.Builder
	for i := 0; i < len(format); i++ {
		if format[i] != '%' {
			b.WriteByte(format[i])
			continue
		}
		i++
		if i >= len(format) {
			return "", errBadTimeFormat
		}
		switch format[i] {
		case 'H':
			fmt.Fprintf(&b, "%02d", secs/3600)
		case 'h':
			fmt.Fprintf(&b, "%d", secs/3600)
		case 'M':
			fmt.Fprintf(&b, "%02d", secs/60%60)
		case 'm':
			fmt.Fprintf(&b, "%d", secs/60)
		case 'S':
			fmt.Fprintf(&b, "%02d", secs%60)
		case 's':
			fmt.Fprintf(&b, "%d", secs)
		case 'f':
			fmt.Fprintf(&b, "%03d", ms)
		case '%':
			b.WriteByte('%')
		default:
			return "", errBadTimeFormat
		}
	}
	if neg {
		return "-" + b.String(), nil
	}
	return b.String(), nil
}
