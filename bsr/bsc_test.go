package bsr_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/blasted/bsr"
)

// patternView is the subset of a Matrix's pattern worth structurally diffing
// with go-cmp when a round-trip test fails: the unexported bs/stor fields
// aren't comparable across package boundaries, so this narrows the
// comparison to the exported pattern arrays cmp.Diff can actually walk.
type patternView struct {
	Nbrows  int
	Browptr []int32
	Bcolind []int32
	Diagind []int32
}

// TestBSRBSCRoundTrip exercises testable property #2: converting BSR -> BSC
// -> BSR reproduces the original pattern and values exactly. On failure it
// reports a structural diff via go-cmp rather than one opaque assertion,
// since a pattern mismatch is easiest to diagnose field-by-field.
func TestBSRBSCRoundTrip(t *testing.T) {
	m := buildTestMatrix(t)
	bsc := m.ToBSC()
	back := bsc.ToBSR()

	want := patternView{Nbrows: m.Nbrows, Browptr: m.Browptr, Bcolind: m.Bcolind, Diagind: m.Diagind}
	got := patternView{Nbrows: back.Nbrows, Browptr: back.Browptr, Bcolind: back.Bcolind, Diagind: back.Diagind}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("pattern mismatch after BSR->BSC->BSR round trip (-want +got):\n%s", diff)
	}
	require.InDeltaSlice(t, m.Vals, back.Vals, 1e-12)
}

func TestBSCGEMV3MatchesBSRApply(t *testing.T) {
	m := buildTestMatrix(t)
	bsc := m.ToBSC()

	x := []float64{1, 2, 3}
	wantY := make([]float64, 3)
	require.NoError(t, m.Apply(1, x, wantY))

	gotY := make([]float64, 3)
	require.NoError(t, bsc.GEMV3(1, x, 0, gotY))

	require.InDeltaSlice(t, wantY, gotY, 1e-12)
}

func TestBSCDim(t *testing.T) {
	m := buildTestMatrix(t)
	bsc := m.ToBSC()
	require.Equal(t, m.Dim(), bsc.Dim())
}
