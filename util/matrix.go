// Package util holds small numeric helpers shared by the kernel packages
// that don't warrant their own package.
package util

import (
	"fmt"
	"strconv"
	"strings"
)

// Matrix is a row-major 2-dimensional array of float64, used to print
// P-matrices and CLV rows in diagnostics and tests.
type Matrix struct {
	NRow, NCol int
	Data       []float64 // row-major NRow*NCol array.
}

// NewMatrix returns an n x m zeroed matrix.
func NewMatrix(n, m int) Matrix {
	return Matrix{
		NRow: n,
		NCol: m,
		Data: make([]float64, n*m),
	}
}

// At returns the (i, j) entry.
func (m Matrix) At(i, j int) float64 {
	return m.Data[i*m.NCol+j]
}

// Set assigns the (i, j) entry.
func (m Matrix) Set(i, j int, v float64) {
	m.Data[i*m.NCol+j] = v
}

// Row returns the backing slice for row i. Mutating it mutates the matrix.
func (m Matrix) Row(i int) []float64 {
	return m.Data[i*m.NCol : (i+1)*m.NCol]
}

// MulVec computes dst = m * v, where v has length NCol and dst has length
// NRow. dst and v must not overlap.
func (m Matrix) MulVec(dst, v []float64) {
	for i := 0; i < m.NRow; i++ {
		var sum float64
		row := m.Row(i)
		for j := 0; j < m.NCol; j++ {
			sum += row[j] * v[j]
		}
		dst[i] = sum
	}
}

// String returns a human-readable, column-aligned representation of the
// matrix, useful when dumping a P-matrix or CLV row in a failing test.
func (m Matrix) String() (r string) {
	maxLength := 0
	for _, d := range m.Data {
		if l := len(strconv.FormatFloat(d, 'g', 6, 64)); l > maxLength {
			maxLength = l
		}
	}

	lines := []string{"\n"}
	for i := 0; i < m.NRow; i++ {
		var parts []string
		for j := 0; j < m.NCol; j++ {
			parts = append(parts, fmt.Sprintf("%*s", maxLength, strconv.FormatFloat(m.At(i, j), 'g', 6, 64)))
		}
		lines = append(lines, strings.Join(parts, " | "))
	}
	return strings.Join(lines, "\n")
}
