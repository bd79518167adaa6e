package substmodel

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMakeDiagPJukesCantor(t *testing.T) {
	e := NewGTRDecomp(nil, nil)
	diag := MakeDiagP(0.1, []float64{1.0}, e)
	require.Len(t, diag, 4)
	assert.Equal(t, 1.0, diag[0])
	want := math.Exp(1.0 * (-4.0 / 3) * math.Log(0.1))
	assert.InDelta(t, want, diag[1], 1e-12)
	assert.InDelta(t, want, diag[2], 1e-12)
	assert.InDelta(t, want, diag[3], 1e-12)
}

func TestMakeDiagPClampsZmin(t *testing.T) {
	e := NewGTRDecomp(nil, nil)
	diag := MakeDiagP(0, []float64{1.0}, e)
	for _, v := range diag {
		assert.False(t, math.IsNaN(v))
		assert.False(t, math.IsInf(v, 0))
	}
}

func TestMakePShapeAndIdentityColumn(t *testing.T) {
	e := NewGTRDecomp(nil, nil)
	left, right := MakeP(0.1, 0.2, []float64{1.0}, e, false, 0)
	require.Len(t, left, 4*4)
	require.Len(t, right, 4*4)
	for j := 0; j < 4; j++ {
		assert.Equal(t, 1.0, left[j*4+0])
		assert.Equal(t, 1.0, right[j*4+0])
	}
}

func TestMakePSaveMemExtraSlot(t *testing.T) {
	e := NewGTRDecomp(nil, nil)
	left, _ := MakeP(0.1, 0.2, []float64{1.0, 0.5}, e, true, 2)
	require.Len(t, left, 3*4*4)
}

func TestNewLG4RejectsNonLG4(t *testing.T) {
	_, err := NewLG4(JTT)
	assert.Error(t, err)
}

func TestNewLG4HasFourMatrices(t *testing.T) {
	set, err := NewLG4(LG4M)
	require.NoError(t, err)
	for _, m := range set.Matrices {
		require.NotNil(t, m)
		assert.Equal(t, 20, m.States)
	}
}

func TestEigenDecompValidate(t *testing.T) {
	e := NewGTRDecomp(nil, nil)
	assert.NoError(t, e.Validate())

	bad := &EigenDecomp{States: 4, EIGN: []float64{0, 1, 2}}
	assert.Error(t, bad.Validate())
}
