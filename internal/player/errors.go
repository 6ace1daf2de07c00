// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package player

// Error is a status code returned by client API calls. Zero means
// success, negative values are failures. The string form is what
// scripts see as their last error.
type Error int

const (
	Success Error = 0

	ErrEventQueueFull      Error = -1
	ErrUninitialized       Error = -2
	ErrInvalidParameter    Error = -3
	ErrPropertyNotFound    Error = -4
	ErrPropertyFormat      Error = -5
	ErrPropertyUnavailable Error = -6
	ErrPropertyError       Error = -7
	ErrOptionNotFound      Error = -8
	ErrOptionError         Error = -9
	ErrCommand             Error = -10
	ErrLoadingFailed       Error = -11
	ErrNothingToPlay       Error = -12
	ErrUnknownFormat       Error = -13
	ErrNotImplemented      Error = -14
	ErrGeneric             Error = -15
)

var errorStrings = map[Error]string{
	Success:                "success",
	ErrEventQueueFull:      "event queue full",
	ErrUninitialized:       "core not initialized",
	ErrInvalidParameter:    "invalid parameter",
	ErrPropertyNotFound:    "property not found",
	ErrPropertyFormat:      "unsupported format for accessing property",
	ErrPropertyUnavailable: "property unavailable",
	ErrPropertyError:       "error accessing property",
	ErrOptionNotFound:      "option not found",
	ErrOptionError:         "error setting option",
	ErrCommand:             "error running command",
	ErrLoadingFailed:       "loading failed",
	ErrNothingToPlay:       "no audio or video data played",
	ErrUnknownFormat:       "unrecognized file format",
	ErrNotImplemented:      "operation not implemented",
	ErrGeneric:             "something happened",
}

// Error implements the error interface. Success stringifies as
// "success" but callers should never wrap a zero code as an error.
func (e Error) Error() string {
	if s, ok := errorStrings[e]; ok {
		return s
	}
	return "unknown error"
}

// IsError reports whether e is a failure code.
func (e Error) IsError() bool { return e < 0 }

// ErrorCode extracts the status code from an error returned by the
// client API. A nil error is Success, a foreign error is ErrGeneric.
func ErrorCode(err error) Error {
	if err == nil {
		return Success
	}
	if e, ok := err.(Error); ok {
		return e
	}
	return ErrGeneric
}
