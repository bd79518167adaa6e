// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// Package trace implements an optional, zstd-compressed dump of a
// traversal descriptor for offline debugging or replay by the tree-search
// collaborator. It is not part of the kernel's critical path: nothing in
// package plk or traversal calls it, and it never runs unless a caller
// explicitly asks for a descriptor trace.
package trace

import (
	"encoding/binary"
	"io"

	"github.com/evoplk/plk/traversal"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
)

// recordLen is the on-wire size of one traversal.Entry: four little-endian
// uint32 fields (P, Q, R, Case).
const recordLen = 16

// WriteDescriptor zstd-compresses entries to w, one fixed-size record per
// entry, in order.
func WriteDescriptor(w io.Writer, entries []traversal.Entry) error {
	enc, err := zstd.NewWriter(w)
	if err != nil {
		return errors.Wrap(err, "trace: opening zstd writer")
	}
	buf := make([]byte, recordLen)
	for _, e := range entries {
		binary.LittleEndian.PutUint32(buf[0:4], uint32(e.P))
		binary.LittleEndian.PutUint32(buf[4:8], uint32(e.Q))
		binary.LittleEndian.PutUint32(buf[8:12], uint32(e.R))
		binary.LittleEndian.PutUint32(buf[12:16], uint32(e.Case))
		if _, err := enc.Write(buf); err != nil {
			enc.Close() // nolint: errcheck
			return errors.Wrap(err, "trace: writing descriptor record")
		}
	}
	if err := enc.Close(); err != nil {
		return errors.Wrap(err, "trace: closing zstd writer")
	}
	return nil
}

// ReadDescriptor decodes a trace written by WriteDescriptor.
func ReadDescriptor(r io.Reader) ([]traversal.Entry, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, errors.Wrap(err, "trace: opening zstd reader")
	}
	defer dec.Close()

	var entries []traversal.Entry
	buf := make([]byte, recordLen)
	for {
		if _, err := io.ReadFull(dec, buf); err != nil {
			if err == io.EOF {
				break
			}
			return nil, errors.Wrap(err, "trace: reading descriptor record")
		}
		entries = append(entries, traversal.Entry{
			P:    int(binary.LittleEndian.Uint32(buf[0:4])),
			Q:    int(binary.LittleEndian.Uint32(buf[4:8])),
			R:    int(binary.LittleEndian.Uint32(buf[8:12])),
			Case: traversal.TipCase(binary.LittleEndian.Uint32(buf[12:16])),
		})
	}
	return entries, nil
}
