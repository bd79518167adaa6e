// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// +build amd64

package clv

import "math"

// avxWidth is the number of float64 lanes this build unrolls the
// below-threshold check over, matching the AVX vector width biosimd_amd64.go
// assumes for its own byte-lane operations.
const avxWidth = 4

// ScaleRowIfNeeded is the amd64 build's scaling-threshold check (§4.4),
// unrolled in AVX-width chunks; behaviorally identical to the generic
// fallback in kernel_generic.go (same strict ABS(v) < MinLikelihood
// comparison on every lane, including exact zeros).
func ScaleRowIfNeeded(row []float64) bool {
	n := len(row)
	i := 0
	for ; i+avxWidth <= n; i += avxWidth {
		chunk := row[i : i+avxWidth]
		if math.Abs(chunk[0]) >= MinLikelihood ||
			math.Abs(chunk[1]) >= MinLikelihood ||
			math.Abs(chunk[2]) >= MinLikelihood ||
			math.Abs(chunk[3]) >= MinLikelihood {
			return false
		}
	}
	for ; i < n; i++ {
		if math.Abs(row[i]) >= MinLikelihood {
			return false
		}
	}
	for i := range row {
		row[i] *= TwoToThe256
	}
	return true
}
