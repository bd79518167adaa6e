// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package plk wires the Alignment Store, Rate Matrices, CLV Store,
// Traversal Engine and Reduction Layer behind the §6 caller interface: a
// single Kernel type the (out-of-scope) tree-search collaborator drives.
package plk

import "github.com/evoplk/plk/traversal"

// PartitionConfig is the per-partition slice of the §6 "Configuration
// inputs" the tree-search collaborator supplies at construction: which
// rate-heterogeneity mode this partition uses, its rate multiplier table
// and, for CAT, the table of per-site category assignments. The empirical
// protein model of an AA partition is not configured here; it is read from
// the partition's exabin.PartitionMeta.
type PartitionConfig struct {
	RateHet        traversal.RateHetMode
	Rates          []float64 // category multiplier table; nil selects a type-appropriate default.
	CatSitePattern []int32   // only read when RateHet == traversal.CAT.
}

// Config is the full set of construction-time configuration inputs (§6).
type Config struct {
	// PerPartitionBranchLengths selects whether branch lengths are a
	// vector per partition or a single value shared by all partitions.
	PerPartitionBranchLengths bool
	// SaveMemory enables gap sidecars across every partition (§6
	// "save_memory").
	SaveMemory bool
	// MaxCat is the save_mem extra-slot index passed to substmodel.MakeP.
	MaxCat int
	// Partitions holds one entry per alignment partition, in partition
	// order.
	Partitions []PartitionConfig
}
