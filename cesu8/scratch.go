// SPDX-License-Identifier: AGPL-3.0-or-later
// Copyright (C) 2026 Amp Authors

package cesu8

import "sync"

// ScratchSize is the fixed size of a Scratch buffer. Conversions whose
// result is at least this long allocate instead.
const ScratchSize = 256

var scratchPool = sync.Pool{
	New: func() any { return new([ScratchSize]byte) },
}

// Scratch is a pooled fixed-size conversion buffer for call-scoped use
// with Encode and Decode. Acquire one per call site and release it on
// every exit path (a deferred Release covers exceptional unwinds).
// Each Scratch must be released exactly once; conversion results that
// must outlive the release are detached first, or copied implicitly by
// the []byte-to-string conversion the caller does anyway.
type Scratch struct {
	buf *[ScratchSize]byte
}

// AcquireScratch returns a Scratch backed by the shared pool.
func AcquireScratch() *Scratch {
	return &Scratch{buf: scratchPool.Get().(*[ScratchSize]byte)}
}

// Bytes returns the buffer to pass to Encode or Decode.
func (s *Scratch) Bytes() []byte {
	if s.buf == nil {
		panic("cesu8: scratch used after release")
	}
	return s.buf[:]
}

// Detach transfers a conversion result out of the scratch buffer into
// a slice that stays valid after Release. Results not backed by the
// buffer (the borrowed-source and allocated strategies) come back
// unchanged. Encode and Decode write buffer-backed results starting at
// the buffer's first byte.
func (s *Scratch) Detach(result []byte) []byte {
	if s.buf == nil {
		panic("cesu8: scratch used after release")
	}
	if len(result) == 0 || &result[0] != &s.buf[0] {
		return result
	}
	out := make([]byte, len(result))
	copy(out, result)
	return out
}

// Release returns the buffer to the pool. Releasing twice is a
// programmer error and panics rather than corrupting the pool.
func (s *Scratch) Release() {
	if s.buf == nil {
		panic("cesu8: scratch released twice")
	}
	scratchPool.Put(s.buf)
	s.buf = nil
}
