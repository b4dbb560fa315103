package bsr_test

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestApplyRejectsWrongDimension(t *testing.T) {
	m := buildTestMatrix(t)
	err := m.Apply(1, make([]float64, 2), make([]float64, 3))
	require.Error(t, err)
}

func TestGEMV3RejectsWrongDimension(t *testing.T) {
	m := buildTestMatrix(t)
	err := m.GEMV3(1, make([]float64, 3), 1, make([]float64, 2))
	require.Error(t, err)
}

func TestApplyZeroAlphaYieldsZero(t *testing.T) {
	m := buildTestMatrix(t)
	x := []float64{1, 2, 3}
	y := []float64{9, 9, 9}
	require.NoError(t, m.Apply(0, x, y))
	require.InDeltaSlice(t, []float64{0, 0, 0}, y, 1e-12)
}
