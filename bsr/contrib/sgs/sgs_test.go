package sgs_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/blasted/bsr"
	"github.com/katalvlaran/blasted/bsr/contrib/asyncpool"
	"github.com/katalvlaran/blasted/bsr/contrib/sgs"
)

func tridiag(t *testing.T, n int, diag float64) *bsr.Matrix[float64, int32] {
	t.Helper()
	coo := bsr.NewCOO[float64, int32](n)
	for i := 0; i < n; i++ {
		coo.Add(i, i, diag)
		if i > 0 {
			coo.Add(i, i-1, -1)
		}
		if i < n-1 {
			coo.Add(i, i+1, -1)
		}
	}
	m, err := coo.ToBSR1()
	require.NoError(t, err)
	return m
}

// The chaotic sweep dispatch should converge to the same fixed point as the
// deterministic level-scheduled reference once enough sweeps have run,
// validating the async engine per SPEC_FULL.md's supplemented feature 3.
func TestSGSChaoticMatchesLevelScheduled(t *testing.T) {
	n := 16
	mat := tridiag(t, n, 6)

	pool := asyncpool.New(4)
	defer pool.Close()
	prec := sgs.New(mat, pool, sgs.Config{ApplySweeps: n * 2, ChunkSize: 3})
	require.NoError(t, prec.Compute())

	r := make([]float64, n)
	for i := range r {
		r[i] = float64(i + 1)
	}

	zChaotic := make([]float64, n)
	require.NoError(t, prec.Apply(r, zChaotic))

	zLevel := make([]float64, n)
	require.NoError(t, prec.LevelScheduled(r, zLevel))

	for i := 0; i < n; i++ {
		require.InDelta(t, zLevel[i], zChaotic[i], 1e-3)
	}
}

func TestSGSApplyRequiresCompute(t *testing.T) {
	mat := tridiag(t, 5, 3)
	pool := asyncpool.New(1)
	defer pool.Close()
	prec := sgs.New(mat, pool, sgs.Config{})
	err := prec.Apply(make([]float64, 5), make([]float64, 5))
	require.Error(t, err)
}

func TestSGSRelaxReducesResidual(t *testing.T) {
	n := 20
	mat := tridiag(t, n, 4)
	pool := asyncpool.New(2)
	defer pool.Close()
	prec := sgs.New(mat, pool, sgs.Config{ApplySweeps: 2, ChunkSize: 4})
	require.NoError(t, prec.Compute())

	b := make([]float64, n)
	for i := range b {
		b[i] = 1
	}
	x := make([]float64, n)

	residualNorm := func(x []float64) float64 {
		ax := make([]float64, n)
		require.NoError(t, mat.Apply(1, x, ax))
		var sum float64
		for i := range ax {
			d := b[i] - ax[i]
			sum += d * d
		}
		return sum
	}

	before := residualNorm(x)
	for i := 0; i < 15; i++ {
		require.NoError(t, prec.ApplyRelax(b, x))
	}
	after := residualNorm(x)
	require.Less(t, after, before*1e-6)
}
