// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// +build linux,amd64

package clv

import (
	"golang.org/x/sys/unix"
)

// mmapArena backs a CLV arena with an anonymous mmap'd region advised
// MADV_HUGEPAGE, the way fusion/kmer_index.go backs its hash table: Ubuntu
// only activates transparent hugepages for madvised regions, so large CLV
// arenas bypass the standard allocator the same way.
type mmapArena struct {
	region []byte
}

func newPlatformArena(size int) (platformArena, error) {
	region, err := unix.Mmap(-1, 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_ANON|unix.MAP_PRIVATE)
	if err != nil {
		return nil, err
	}
	if err := unix.Madvise(region, unix.MADV_HUGEPAGE); err != nil {
		// Hugepages are an optimization, not a correctness requirement;
		// fall through with the plain mapping.
		_ = err
	}
	return &mmapArena{region: region}, nil
}

func (a *mmapArena) bytes() []byte {
	return a.region
}

func (a *mmapArena) close() error {
	if a.region == nil {
		return nil
	}
	err := unix.Munmap(a.region)
	a.region = nil
	return err
}
