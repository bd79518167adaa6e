// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

// +build !amd64

package clv

import "math"

// ScaleRowIfNeeded implements §4.4's scaling decision for one pattern's
// output row: if every element's absolute value is below MinLikelihood,
// every element is multiplied by TwoToThe256 and true is returned (the
// caller adds the pattern's weight to the local scaler delta). Matches the
// strict "ABS(v) < minlikelihood" comparison the vectorized path of the
// source uses on every lane, including exact zeros (DESIGN.md Open
// Question 2).
//
// This is the portable fallback; kernel_amd64.go keys the same computation
// off a 4-wide unrolled loop on the assumption of AVX-class vector width,
// mirroring how biosimd splits by build tag instead of by runtime dispatch.
func ScaleRowIfNeeded(row []float64) bool {
	for _, v := range row {
		if math.Abs(v) >= MinLikelihood {
			return false
		}
	}
	for i := range row {
		row[i] *= TwoToThe256
	}
	return true
}
