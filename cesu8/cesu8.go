// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

// Package cesu8 converts between UTF-8 and CESU-8 byte strings.
//
// CESU-8 is the encoding used internally by UTF-16-native script engines
// when their strings are surfaced as bytes: every supplementary codepoint
// (U+10000 and above) is stored as a surrogate pair of two 3-byte
// sequences (6 bytes total) instead of the single 4-byte UTF-8 sequence.
// All other codepoints are byte-identical in both encodings, so a string
// without supplementary codepoints needs no conversion at all.
//
// The conversion functions follow a three-tier storage strategy: if the
// input needs no conversion it is returned unchanged (borrowed), if the
// result fits strictly below the caller-supplied buffer's length it is
// written there, and otherwise a fresh buffer is allocated and reported
// to the caller. Converting to a Go string afterwards copies the bytes
// into ordinary garbage-collected storage, which is the hand-off point
// for results that must outlive the call.
package cesu8

// A supplementary codepoint in UTF-8:
//
//	11110ccc 10ccbbbb 10bbbbaa 10aaaaaa
//
// where the top five bits (ccccc) are in 1..0x10. The same codepoint in
// CESU-8 is a surrogate pair:
//
//	11101101 1010yyyy 10bbbbbb 11101101 1011bbaa 10aaaaaa
//
// where yyyy is the top five bits minus one.

// utf8SMP reports whether a supplementary-codepoint sequence starts at
// p[i]. Never reads past len(p); a truncated candidate is not a match.
func utf8SMP(p []byte, i int) bool {
	if i+3 >= len(p) {
		return false
	}
	return p[i]&0xf8 == 0xf0 &&
		p[i+1]&0xc0 == 0x80 && p[i+2]&0xc0 == 0x80 && p[i+3]&0xc0 == 0x80 &&
		(p[i]&0x04 == 0) != ((p[i]&0x03 | p[i+1]&0x30) == 0) // top5 in 1..0x10
}

// cesu8SMP reports whether a surrogate pair starts at p[i]. The full
// 6-byte pattern must be present; a lone surrogate half is not a match.
func cesu8SMP(p []byte, i int) bool {
	if i+5 >= len(p) {
		return false
	}
	return p[i] == 0xed && p[i+1]&0xf0 == 0xa0 && p[i+2]&0xc0 == 0x80 &&
		p[i+3] == 0xed && p[i+4]&0xf0 == 0xb0 && p[i+5]&0xc0 == 0x80
}

// EncodedLen returns the CESU-8 length of the UTF-8 string p and whether
// any conversion is needed. With no supplementary codepoints the length
// is len(p) unchanged and the second result is false. Each supplementary
// codepoint grows the string by exactly 2 bytes.
func EncodedLen(p []byte) (int, bool) {
	if len(p) < 4 {
		return len(p), false
	}
	smp := 0
	for i := 0; i <= len(p)-4; i++ {
		if utf8SMP(p, i) {
			smp++
		}
	}
	if smp == 0 {
		return len(p), false
	}
	return len(p) + 2*smp, true
}

// DecodedLen returns the UTF-8 length of the CESU-8 string p and whether
// any conversion is needed. Each surrogate pair shrinks the string by
// exactly 2 bytes.
func DecodedLen(p []byte) (int, bool) {
	if len(p) < 6 {
		return len(p), false
	}
	smp := 0
	for i := 0; i <= len(p)-6; i++ {
		if cesu8SMP(p, i) {
			smp++
		}
	}
	if smp == 0 {
		return len(p), false
	}
	return len(p) - 2*smp, true
}

// encode writes the CESU-8 form of src into dst, which must be exactly
// the EncodedLen of src. dst must not alias src (the result is longer).
func encode(dst, src []byte) {
	j := 0
	for i := 0; i < len(src); {
		if utf8SMP(src, i) {
			top5 := src[i]&0x07<<2 | src[i+1]&0x30>>4

			dst[j] = 0xed
			dst[j+1] = 0xa0 | (top5 - 1)
			dst[j+2] = 0x80 | src[i+1]&0x0f<<2 | src[i+2]&0x30>>4
			dst[j+3] = 0xed
			dst[j+4] = 0xb0 | src[i+2]&0x0f
			dst[j+5] = src[i+3]

			i += 4
			j += 6
		} else {
			dst[j] = src[i]
			i++
			j++
		}
	}
}

// decode writes the UTF-8 form of src into dst, which must be exactly
// the DecodedLen of src. dst may share src's backing array starting at
// the same position: the write index never passes the read index in the
// shrinking direction.
func decode(dst, src []byte) {
	j := 0
	for i := 0; i < len(src); {
		if cesu8SMP(src, i) {
			top5 := src[i+1]&0x0f + 1

			dst[j] = 0xf0 | top5>>2
			dst[j+1] = 0x80 | top5&0x03<<4 | src[i+2]&0x3f>>2
			dst[j+2] = 0x80 | src[i+2]&0x03<<4 | src[i+4]&0x0f
			dst[j+3] = src[i+5]

			i += 6
			j += 4
		} else {
			dst[j] = src[i]
			i++
			j++
		}
	}
}

// Encode converts the UTF-8 string src to CESU-8. It returns src itself
// when no conversion is needed, the result written into buf when it fits
// strictly below len(buf), and a freshly allocated buffer otherwise. The
// second result reports the fresh allocation. buf may be nil.
func Encode(src, buf []byte) ([]byte, bool) {
	n, needed := EncodedLen(src)
	if !needed {
		return src, false
	}
	if n < len(buf) {
		encode(buf[:n], src)
		return buf[:n], false
	}
	dst := make([]byte, n)
	encode(dst, src)
	return dst, true
}

// Decode converts the CESU-8 string src to UTF-8 with the same storage
// strategy as Encode. buf may share src's backing array: the shrinking
// rewrite is in-place safe when both start at the same byte.
func Decode(src, buf []byte) ([]byte, bool) {
	n, needed := DecodedLen(src)
	if !needed {
		return src, false
	}
	if n < len(buf) {
		decode(buf[:n], src)
		return buf[:n], false
	}
	dst := make([]byte, n)
	decode(dst, src)
	return dst, true
}

// DecodeInPlace rewrites p from CESU-8 to UTF-8 reusing its backing
// array and returns the shortened slice. Only the shrinking direction
// supports this; encoding grows and must go through Encode.
func DecodeInPlace(p []byte) []byte {
	n, needed := DecodedLen(p)
	if !needed {
		return p
	}
	decode(p[:n], p)
	return p[:n]
}
