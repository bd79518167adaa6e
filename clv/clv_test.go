package clv

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestArenaAllocFloat64Aligned(t *testing.T) {
	a, err := NewArena(1 << 20)
	require.NoError(t, err)
	defer a.Close()

	buf := a.AllocFloat64(16)
	assert.Len(t, buf, 16)
	for _, v := range buf {
		assert.Equal(t, 0.0, v)
	}
	buf[0] = 1.5
	assert.Equal(t, 1.5, buf[0])
}

func TestStoreGetCLVMutReallocatesOnSizeChange(t *testing.T) {
	s, err := NewStore(1 << 20)
	require.NoError(t, err)
	defer s.Close()

	buf1 := s.GetCLVMut(0, 0, 10, 1, 4)
	buf1[0] = 42
	buf1Again := s.GetCLVMut(0, 0, 10, 1, 4)
	assert.Equal(t, 42.0, buf1Again[0])

	buf2 := s.GetCLVMut(0, 0, 20, 1, 4)
	assert.Len(t, buf2, 80)
	assert.Equal(t, 0.0, buf2[0])
}

func TestStoreOrientationAndScaler(t *testing.T) {
	s, err := NewStore(1 << 10)
	require.NoError(t, err)
	defer s.Close()

	assert.False(t, s.IsOriented(1))
	s.SetOriented(1, true)
	assert.True(t, s.IsOriented(1))

	s.SetScaler(1, 0, 5)
	assert.Equal(t, uint32(5), s.Scaler(1, 0))
}

func TestGapSetAndAndCount(t *testing.T) {
	a := NewGapSet(70)
	a.Set(0)
	a.Set(65)
	b := NewGapSet(70)
	b.Set(0)
	b.Set(3)

	out := NewGapSet(70)
	out.And(a, b)
	assert.True(t, out.Get(0))
	assert.False(t, out.Get(65))
	assert.False(t, out.Get(3))
	assert.Equal(t, 1, out.Count())
}

func TestScaleRowIfNeeded(t *testing.T) {
	row := []float64{MinLikelihood / 2, 0, -MinLikelihood / 4}
	scaled := ScaleRowIfNeeded(row)
	assert.True(t, scaled)
	assert.InDelta(t, MinLikelihood/2*TwoToThe256, row[0], 1e-300)

	row2 := []float64{MinLikelihood * 2, 0, 0}
	scaled2 := ScaleRowIfNeeded(row2)
	assert.False(t, scaled2)
}
