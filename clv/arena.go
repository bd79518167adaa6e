// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package clv owns the per-inner-node conditional-likelihood-vector
// buffers, their allocation and reuse, the per-node per-partition scaling
// counters, and the gap sidecars (§4.3).
package clv

import (
	"unsafe"

	"v.io/x/lib/vlog"
)

// platformArena abstracts the backing memory region for an Arena; see
// arena_amd64.go (mmap+madvise) and arena_generic.go (plain make).
type platformArena interface {
	bytes() []byte
	close() error
}

// Align is the byte boundary CLV buffers are allocated on: 32 for
// AVX-class builds, matching the vector width biosimd keys its unrolled
// loops off of; 16 would suffice for SSE-class builds but 32 is never
// wrong, only occasionally wasteful.
const Align = 32

// Arena is a bump allocator over one large backing region, the same
// technique as encoding/pam/unsafearena.go's unsafeArena, generalized to
// hand out aligned float64 slices instead of raw byte slices, and backed by
// an mmap'd region instead of a plain Go slice (see platformArena).
type Arena struct {
	backing platformArena
	buf     []byte
	n       int
}

// NewArena creates an arena with byteCapacity bytes of backing storage.
func NewArena(byteCapacity int) (*Arena, error) {
	backing, err := newPlatformArena(byteCapacity)
	if err != nil {
		return nil, err
	}
	return &Arena{backing: backing, buf: backing.bytes()}, nil
}

// align rounds a.n up to the next Align-byte boundary.
func (a *Arena) align() {
	a.n = (a.n + Align - 1) / Align * Align
}

// AllocFloat64 returns a zeroed, Align-byte-aligned slice of n float64s
// carved out of the arena's backing region, reinterpreted without copying
// the way biosimd's amd64 files reinterpret byte regions via unsafe.Pointer
// rather than allocating a fresh typed slice.
//
// Requires: the arena has at least n*8 (+ alignment slop) bytes free.
func (a *Arena) AllocFloat64(n int) []float64 {
	a.align()
	size := n * 8
	if a.n+size > len(a.buf) {
		vlog.Fatalf("clv: arena overflow, n=%d, want=%d, cap=%d", a.n, size, len(a.buf))
	}
	raw := a.buf[a.n : a.n+size]
	a.n += size
	for i := range raw {
		raw[i] = 0
	}
	return *(*[]float64)(unsafe.Pointer(&sliceHeader{
		data: unsafe.Pointer(&raw[0]),
		len:  n,
		cap:  n,
	}))
}

// sliceHeader mirrors reflect.SliceHeader's layout so AllocFloat64 can build
// a []float64 header by hand without importing reflect.
type sliceHeader struct {
	data unsafe.Pointer
	len  int
	cap  int
}

// Reset rewinds the bump pointer without releasing the backing region, so
// the same arena can be reused across a fresh set of traversals once every
// node's CLV has been reallocated at its current size (§3 "Lifecycle").
func (a *Arena) Reset() {
	a.n = 0
}

// Close releases the backing region. After Close, no slice previously
// returned by AllocFloat64 may be read or written.
func (a *Arena) Close() error {
	return a.backing.close()
}
