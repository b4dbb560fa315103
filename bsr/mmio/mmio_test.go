package mmio_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/blasted/bsr"
	"github.com/katalvlaran/blasted/bsr/mmio"
)

func TestReadMatrixMarketGeneral(t *testing.T) {
	src := strings.NewReader(`%%MatrixMarket matrix coordinate real general
% comment line
3 3 3
1 1 4.0
2 2 4.0
3 3 4.0
`)
	coo, err := mmio.ReadMatrixMarket(src)
	require.NoError(t, err)
	require.Equal(t, 3, coo.N)
	require.Len(t, coo.Rows, 3)
}

func TestReadMatrixMarketSymmetricMirrors(t *testing.T) {
	src := strings.NewReader(`%%MatrixMarket matrix coordinate real symmetric
2 2 1
2 1 5.0
`)
	coo, err := mmio.ReadMatrixMarket(src)
	require.NoError(t, err)
	require.Len(t, coo.Rows, 2, "symmetric entry off the diagonal must be mirrored")
}

func TestReadMatrixMarketRejectsNonSquare(t *testing.T) {
	src := strings.NewReader(`%%MatrixMarket matrix coordinate real general
2 3 0
`)
	_, err := mmio.ReadMatrixMarket(src)
	require.Error(t, err)
}

func TestSidecarRoundTrip(t *testing.T) {
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

	var buf bytes.Buffer
	require.NoError(t, mmio.WriteSidecar(&buf, m))

	back, err := mmio.ReadSidecar(&buf)
	require.NoError(t, err)

	require.Equal(t, m.Nbrows, back.Nbrows)
	require.Equal(t, m.Browptr, back.Browptr)
	require.Equal(t, m.Bcolind, back.Bcolind)
	require.Equal(t, m.Diagind, back.Diagind)
	require.InDeltaSlice(t, m.Vals, back.Vals, 1e-12)
}

func TestWriteSidecarRejectsNonScalarBlockSize(t *testing.T) {
	browptr := []int32{0, 1}
	bcolind := []int32{0}
	diagind := []int32{0}
	vals := make([]float64, 9)
	m, err := bsr.New[float64, int32](bsr.BS3, bsr.RowMajor, browptr, bcolind, diagind, vals)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.Error(t, mmio.WriteSidecar(&buf, m))
}

func TestReadSidecarRejectsRowIndexMismatch(t *testing.T) {
	// nrows=2, nnz=2; row 0's entry falsely claims row index 1.
	src := strings.NewReader("2 2 2\n0 1 2\n1 1\n0 1\n4.0 4.0\n0 1\n")
	_, err := mmio.ReadSidecar(src)
	require.Error(t, err)
}
