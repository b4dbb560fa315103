package bsr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/blasted/bsr"
)

// TestPermutationInvolution exercises testable property #9:
// ApplyVector(ApplyVector(v, Forward), Inverse) reproduces v bit-identically.
func TestPermutationInvolution(t *testing.T) {
	fwd := []int32{2, 0, 1, 3}
	perm := bsr.NewPermutation(fwd)
	v := []float64{10, 20, 30, 40}

	forwarded := bsr.ApplyVector[float64, int32](perm, v, 1, bsr.Forward)
	back := bsr.ApplyVector[float64, int32](perm, forwarded, 1, bsr.Inverse)

	require.Equal(t, v, back)
}

func TestGreedyMC64ProducesValidPermutation(t *testing.T) {
	m := buildTestMatrix(t)
	perm, scaling, err := bsr.GreedyMC64(m)
	require.NoError(t, err)

	seen := make(map[int32]bool)
	for _, col := range perm.Fwd {
		require.False(t, seen[col], "duplicate column assignment %d", col)
		seen[col] = true
	}
	require.Len(t, scaling.Row, m.Nbrows)
	require.Len(t, scaling.Col, m.Nbrows)
}

func TestScaleBlockMultipliesByRowTimesCol(t *testing.T) {
	vals := []float64{1, 2, 3, 4}
	blk := bsr.BlockAt(vals, 0, 2, bsr.RowMajor)
	scaling := &bsr.Scaling[float64]{Row: []float64{2, 1}, Col: []float64{3, 1}}
	scaling.ScaleBlock(blk, 0, 1)
	require.InDeltaSlice(t, []float64{2, 4, 6, 8}, vals, 1e-12)
}
