package bsr_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/blasted/bsr"
)

func TestNewRejectsMissingDiagonal(t *testing.T) {
	// Row 1 has no diagonal block: diagind[1] points at row 1's only entry,
	// whose column is 0, not 1.
	browptr := []int32{0, 1, 2}
	bcolind := []int32{0, 0} // row 1's only entry is column 0, not the diagonal
	diagind := []int32{0, 1}
	vals := make([]float64, len(bcolind))
	_, err := bsr.New[float64, int32](bsr.BS1, bsr.RowMajor, browptr, bcolind, diagind, vals)
	require.Error(t, err)
}

func TestNewRejectsUnsortedColumns(t *testing.T) {
	browptr := []int32{0, 2}
	bcolind := []int32{0, 0} // not strictly increasing
	diagind := []int32{0}
	vals := make([]float64, 2)
	_, err := bsr.New[float64, int32](bsr.BS1, bsr.RowMajor, browptr, bcolind, diagind, vals)
	require.Error(t, err)
}

func TestNewRejectsUncommittedBlockSize(t *testing.T) {
	browptr := []int32{0, 1}
	bcolind := []int32{0}
	diagind := []int32{0}
	vals := make([]float64, 4)
	_, err := bsr.New[float64, int32](bsr.BlockSize(2), bsr.RowMajor, browptr, bcolind, diagind, vals)
	require.Error(t, err)
}

// buildTestMatrix constructs a 3x3 scalar matrix:
//
//	[ 4 -1  0]
//	[-1  4 -1]
//	[ 0 -1  4]
func buildTestMatrix(t *testing.T) *bsr.Matrix[float64, int32] {
	t.Helper()
	coo := bsr.NewCOO[float64, int32](3)
	coo.Add(0, 0, 4)
	coo.Add(0, 1, -1)
	coo.Add(1, 0, -1)
	coo.Add(1, 1, 4)
	coo.Add(1, 2, -1)
	coo.Add(2, 1, -1)
	coo.Add(2, 2, 4)
	m, err := coo.ToBSR1()
	require.NoError(t, err)
	return m
}

func TestApplyMatchesHandComputedSpMV(t *testing.T) {
	m := buildTestMatrix(t)
	x := []float64{1, 2, 3}
	y := make([]float64, 3)
	require.NoError(t, m.Apply(1, x, y))
	require.InDeltaSlice(t, []float64{4*1 - 1*2, -1*1 + 4*2 - 1*3, -1*2 + 4*3}, y, 1e-12)
}

func TestGEMV3AccumulatesIntoY(t *testing.T) {
	m := buildTestMatrix(t)
	x := []float64{1, 0, 0}
	y := []float64{10, 20, 30}
	require.NoError(t, m.GEMV3(2, x, 1, y))
	// alpha*A*x contributes [8,-2,0]; beta*y (old y) contributes [10,20,30].
	require.InDeltaSlice(t, []float64{18, 18, 30}, y, 1e-12)
}

func TestSubmitAndUpdateBlock(t *testing.T) {
	m := buildTestMatrix(t)
	m.SubmitBlock(0, 0, []float64{9})
	require.Equal(t, 9.0, m.Block(m.FindBlock(0, 0)).At(0, 0))

	m.UpdateBlock(0, 0, []float64{1})
	require.Equal(t, 10.0, m.Block(m.FindBlock(0, 0)).At(0, 0))
}

func TestFindBlockMissingReturnsNegativeOne(t *testing.T) {
	m := buildTestMatrix(t)
	require.Equal(t, -1, m.FindBlock(0, 2))
}

func TestWrapRejectsWrongLength(t *testing.T) {
	m := buildTestMatrix(t)
	err := m.Wrap(make([]float64, 1))
	require.Error(t, err)
}

func TestWrapAcceptsMatchingLength(t *testing.T) {
	m := buildTestMatrix(t)
	newVals := make([]float64, len(m.Vals))
	copy(newVals, m.Vals)
	newVals[0] = 100
	require.NoError(t, m.Wrap(newVals))
	require.Equal(t, 100.0, m.Block(0).At(0, 0))
}
