// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// +build !linux !amd64

package clv

// platformArena on non-linux/amd64 builds falls back to a plain Go
// allocation; the mmap+madvise(MADV_HUGEPAGE) path in arena_amd64.go is an
// optimization specific to that platform, not a correctness requirement.
type genericArena struct {
	region []byte
}

func newPlatformArena(size int) (platformArena, error) {
	return &genericArena{region: make([]byte, size)}, nil
}

func (a *genericArena) bytes() []byte {
	return a.region
}

func (a *genericArena) close() error {
	a.region = nil
	return nil
}
