// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package cesu8

// String variants mirror the byte-slice API without forcing a []byte
// conversion, so the no-conversion path stays allocation free.

func utf8SMPInString(s string, i int) bool {
	if i+3 >= len(s) {
		return false
	}
	return s[i]&0xf8 == 0xf0 &&
		s[i+1]&0xc0 == 0x80 && s[i+2]&0xc0 == 0x80 && s[i+3]&0xc0 == 0x80 &&
		(s[i]&0x04 == 0) != ((s[i]&0x03 | s[i+1]&0x30) == 0)
}

func cesu8SMPInString(s string, i int) bool {
	if i+5 >= len(s) {
		return false
	}
	return s[i] == 0xed && s[i+1]&0xf0 == 0xa0 && s[i+2]&0xc0 == 0x80 &&
		s[i+3] == 0xed && s[i+4]&0xf0 == 0xb0 && s[i+5]&0xc0 == 0x80
}

// EncodedLenInString is EncodedLen for a string.
func EncodedLenInString(s string) (int, bool) {
	if len(s) < 4 {
		return len(s), false
	}
	smp := 0
	for i := 0; i <= len(s)-4; i++ {
		if utf8SMPInString(s, i) {
			smp++
		}
	}
	if smp == 0 {
		return len(s), false
	}
	return len(s) + 2*smp, true
}

// DecodedLenInString is DecodedLen for a string.
func DecodedLenInString(s string) (int, bool) {
	if len(s) < 6 {
		return len(s), false
	}
	smp := 0
	for i := 0; i <= len(s)-6; i++ {
		if cesu8SMPInString(s, i) {
			smp++
		}
	}
	if smp == 0 {
		return len(s), false
	}
	return len(s) - 2*smp, true
}

// EncodeString converts a UTF-8 string to CESU-8, returning s itself
// when no conversion is needed.
func EncodeString(s string) string {
	n, needed := EncodedLenInString(s)
	if !needed {
		return s
	}
	dst := make([]byte, n)
	encode(dst, []byte(s))
	return string(dst)
}

// DecodeString converts a CESU-8 string to UTF-8, returning s itself
// when no conversion is needed.
func DecodeString(s string) string {
	n, needed := DecodedLenInString(s)
	if !needed {
		return s
	}
	dst := make([]byte, n)
	decode(dst, []byte(s))
	return string(dst)
}
