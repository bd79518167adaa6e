// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package exabin implements the reader and writer for the kernel's binary
// alignment format: a fixed byte layout describing a set of partitions
// (pattern ranges, per-partition substitution-model metadata) and the
// per-taxon tip data (byte codes, or precomputed CLVs for PoMo partitions)
// that the traversal engine consumes at runtime.
//
// This is the sole external wire format the kernel reads; it is produced
// once by an out-of-scope parser and loaded here, analogous to how
// encoding/pam implements the PAM reader/writer for BAM-derived records.
package exabin

import "fmt"

// Magic is the fixed magic number every valid alignment file begins with
// (after the word-size and version fields). It must match exactly or Read
// fails with FormatMismatch.
const Magic = uint32(6517718)

// CurrentVersion is the version tag this package writes and expects to
// read. A mismatch is VersionMismatch, not FormatMismatch.
const CurrentVersion = uint32(1)

// SizeOfSizeT is this build's notion of "sizeof(size_t)" in bytes: the
// width used to encode pattern counts and partition [lower,upper) bounds.
// The header's own sizeof_size_t field must equal this for the file to be
// readable on this host, per spec.
const SizeOfSizeT = 8

// DataType selects the tip-data encoding and state count of a partition.
type DataType int32

const (
	Binary   DataType = iota // S=2
	DNA                      // S=4
	AA                       // S=20
	Multi32                  // S up to 32
	Codon64                  // S up to 64
	PoMo16                   // S=16, PoMo tip CLVs
	PoMo64                   // S=64, PoMo tip CLVs
)

func (d DataType) String() string {
	switch d {
	case Binary:
		return "BINARY"
	case DNA:
		return "DNA"
	case AA:
		return "AA"
	case Multi32:
		return "MULTI_32"
	case Codon64:
		return "CODON_64"
	case PoMo16:
		return "POMO_16"
	case PoMo64:
		return "POMO_64"
	default:
		return fmt.Sprintf("DataType(%d)", int32(d))
	}
}

// IsPoMo reports whether d carries tip CLVs instead of tip bytes.
func (d DataType) IsPoMo() bool {
	return d == PoMo16 || d == PoMo64
}

// ProtModel selects the empirical amino-acid substitution matrix, when
// DataType is AA. It is meaningless for other data types.
type ProtModel int32

const (
	ProtModelNone ProtModel = iota
	JTT
	WAG
	LG
	LG4M
	LG4X
	ProtModelAuto
)

// ProtFreqs selects how amino-acid state frequencies are derived.
type ProtFreqs int32

const (
	ProtFreqsEmpirical ProtFreqs = iota
	ProtFreqsML
	ProtFreqsModel
)

// FormatMismatchError is returned when the header's word size or magic
// number does not match this build's constants. It is always fatal (§7).
type FormatMismatchError struct {
	Field    string
	Got      interface{}
	Expected interface{}
}

func (e *FormatMismatchError) Error() string {
	return fmt.Sprintf("exabin: format mismatch in %s: got %v, expected %v", e.Field, e.Got, e.Expected)
}

// VersionMismatchError is returned when the producer and consumer version
// tags differ. Always fatal (§7).
type VersionMismatchError struct {
	Got, Expected uint32
}

func (e *VersionMismatchError) Error() string {
	return fmt.Sprintf("exabin: version mismatch: file has version %d, this build expects %d", e.Got, e.Expected)
}
