// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package exabin

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func smallData() *Data {
	return &Data{
		Header: Header{Gappiness: 0.1},
		Weights: []int32{1, 2, 1, 1},
		Taxa:    []string{"human", "chimp", "gorilla"},
		Partitions: []PartitionMeta{
			{
				States: 4, MaxTipState: 15, Lower: 0, Upper: 3,
				DataType: DNA, ProtModel: ProtModelNone, ProtFreqs: ProtFreqsEmpirical,
				Name: "coi", Frequencies: []float64{0.25, 0.25, 0.25, 0.25},
			},
			{
				States: 2, MaxTipState: 2, Lower: 3, Upper: 4,
				DataType: PoMo16, ProtModel: ProtModelNone, ProtFreqs: ProtFreqsEmpirical,
				NonGTR: true, Name: "popA", Frequencies: []float64{0.6, 0.4},
			},
		},
		TipBytes: [][]byte{
			{1, 2, 3, 1, 2, 3, 1, 2, 3},
			nil,
		},
		TipCLVs: [][]float64{
			nil,
			{0.1, 0.9, 0.2, 0.8, 0.3, 0.7},
		},
	}
}

func TestWriteReadRoundTrip(t *testing.T) {
	d := smallData()
	var buf bytes.Buffer
	require.NoError(t, WriteFull(&buf, d))

	got, err := ReadFull(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)

	assert.Equal(t, Magic, got.Header.Magic)
	assert.Equal(t, CurrentVersion, got.Header.Version)
	assert.Equal(t, uint32(SizeOfSizeT), got.Header.SizeOfSizeT)
	assert.Equal(t, d.Taxa, got.Taxa)
	assert.Equal(t, d.Weights, got.Weights)
	require.Len(t, got.Partitions, 2)
	assert.Equal(t, d.Partitions[0].Name, got.Partitions[0].Name)
	assert.Equal(t, d.Partitions[0].Frequencies, got.Partitions[0].Frequencies)
	assert.Equal(t, uint64(3), got.Partitions[0].Width)
	assert.Equal(t, uint64(1), got.Partitions[1].Width)
	assert.Equal(t, d.TipBytes[0], got.TipBytes[0])
	assert.InDeltaSlice(t, d.TipCLVs[1], got.TipCLVs[1], 1e-12)
}

func TestReadWorkerPartialAssignment(t *testing.T) {
	d := smallData()
	var buf bytes.Buffer
	require.NoError(t, WriteFull(&buf, d))

	got, err := ReadWorker(bytes.NewReader(buf.Bytes()), []PartitionAssignment{
		{Partition: 0, Offset: 1, Width: 2},
	})
	require.NoError(t, err)
	require.NotNil(t, got.TipBytes[0])
	// Each taxon contributes columns [1,3) of its 3-column row: {2,3}.
	assert.Equal(t, []byte{2, 3, 2, 3, 2, 3}, got.TipBytes[0])
	assert.Nil(t, got.TipBytes[1])
	assert.Nil(t, got.TipCLVs[0])
}

func TestReadPartitionMetaSkipsWeightsAndTaxa(t *testing.T) {
	d := smallData()
	var buf bytes.Buffer
	require.NoError(t, WriteFull(&buf, d))

	h, parts, err := ReadPartitionMeta(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, uint32(len(d.Taxa)), h.TaxaCount)
	require.Len(t, parts, 2)
	assert.Equal(t, "coi", parts[0].Name)
	assert.Equal(t, d.Partitions[0].Frequencies, parts[0].Frequencies)
	assert.Equal(t, "popA", parts[1].Name)
	assert.Equal(t, d.Partitions[1].Frequencies, parts[1].Frequencies)
}

func TestSeekSectionPositionsAtAlignmentBody(t *testing.T) {
	d := smallData()
	var buf bytes.Buffer
	require.NoError(t, WriteFull(&buf, d))
	r := bytes.NewReader(buf.Bytes())

	h, err := SeekSection(r, SectionAlignment)
	require.NoError(t, err)
	assert.Equal(t, uint32(2), h.PartitionCount)

	// Reading from here directly (no further header/weights/taxa/partition
	// decoding) should land on partition 0's first taxon's raw tip bytes.
	var got [3]byte
	_, err = r.Read(got[:])
	require.NoError(t, err)
	assert.Equal(t, [3]byte{1, 2, 3}, got)
}

func TestHeaderValidateRejectsBadMagic(t *testing.T) {
	h := Header{SizeOfSizeT: SizeOfSizeT, Version: CurrentVersion, Magic: 1}
	err := h.Validate()
	require.Error(t, err)
	_, ok := err.(*FormatMismatchError)
	assert.True(t, ok)
}

func TestHeaderValidateRejectsBadVersion(t *testing.T) {
	h := Header{SizeOfSizeT: SizeOfSizeT, Version: 99, Magic: Magic}
	err := h.Validate()
	require.Error(t, err)
	_, ok := err.(*VersionMismatchError)
	assert.True(t, ok)
}
