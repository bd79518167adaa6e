// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package reduce

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestThreadReduceSumsAcrossThreadsInTidOrder(t *testing.T) {
	buffers := [][]float64{
		{1.0, 2.0},
		{0.5, -1.0},
		{10.0, 0.0},
	}
	out := ThreadReduce(buffers)
	require.Len(t, out, 2)
	assert.InDelta(t, 11.5, out[0], 1e-12)
	assert.InDelta(t, 1.0, out[1], 1e-12)
}

func TestThreadReduceHandlesRaggedAndNilBuffers(t *testing.T) {
	buffers := [][]float64{
		nil,
		{1.0, 2.0, 3.0},
		{4.0},
	}
	out := ThreadReduce(buffers)
	require.Len(t, out, 3)
	assert.InDelta(t, 5.0, out[0], 1e-12)
	assert.InDelta(t, 2.0, out[1], 1e-12)
	assert.InDelta(t, 3.0, out[2], 1e-12)
}

func TestThreadReduceEmpty(t *testing.T) {
	assert.Nil(t, ThreadReduce(nil))
}

func TestLocalAllReducerIsIdentity(t *testing.T) {
	r := LocalAllReducer{}
	in := []float64{-1.5, -2.5, -3.5}
	out, err := r.AllReduceSum(context.Background(), in)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	// Mutating the returned slice must not alias the input.
	out[0] = 99
	assert.Equal(t, -1.5, in[0])
}

func TestTotal(t *testing.T) {
	assert.InDelta(t, -6.0, Total([]float64{-1.0, -2.0, -3.0}), 1e-12)
	assert.Equal(t, 0.0, Total(nil))
}

// TestReductionDeterminismAcrossWorkerCounts models §8 scenario 6: splitting
// one partition's per-worker contributions over K in {1, 2, 4, 8} threads
// must reduce to the same total regardless of K.
func TestReductionDeterminismAcrossWorkerCounts(t *testing.T) {
	perWorker := []float64{-0.1, -0.2, -0.3, -0.4, -0.5, -0.6, -0.7, -0.8}

	var want float64
	for _, k := range []int{1, 2, 4, 8} {
		buffers := make([][]float64, k)
		perBucket := len(perWorker) / k
		for tid := 0; tid < k; tid++ {
			sum := 0.0
			for _, v := range perWorker[tid*perBucket : (tid+1)*perBucket] {
				sum += v
			}
			buffers[tid] = []float64{sum}
		}
		reduced := ThreadReduce(buffers)
		require.Len(t, reduced, 1)
		if k == 1 {
			want = reduced[0]
		}
		assert.InDelta(t, want, reduced[0], 8*1e-15*(-want))
	}
}
