package util

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatrixMulVec(t *testing.T) {
	m := NewMatrix(2, 3)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	m.Set(0, 2, 3)
	m.Set(1, 0, 4)
	m.Set(1, 1, 5)
	m.Set(1, 2, 6)

	dst := make([]float64, 2)
	m.MulVec(dst, []float64{1, 1, 1})
	assert.Equal(t, []float64{6, 15}, dst)
}

func TestMatrixRowAliasesData(t *testing.T) {
	m := NewMatrix(2, 2)
	row := m.Row(1)
	row[0] = 42
	assert.Equal(t, 42.0, m.At(1, 0))
}

func TestMatrixString(t *testing.T) {
	m := NewMatrix(1, 2)
	m.Set(0, 0, 1)
	m.Set(0, 1, 2)
	assert.Contains(t, m.String(), "1")
}
