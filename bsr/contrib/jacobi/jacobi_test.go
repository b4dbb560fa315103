package jacobi_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/blasted/bsr"
	"github.com/katalvlaran/blasted/bsr/contrib/asyncpool"
	"github.com/katalvlaran/blasted/bsr/contrib/jacobi"
)

// tridiag builds the classic n x n tridiagonal (diag, -1 off-diagonal)
// scalar test matrix used throughout (§8 E1/E4).
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

func TestJacobiIdentityOnDiagonalMatrix(t *testing.T) {
	n := 5
	coo := bsr.NewCOO[float64, int32](n)
	want := make([]float64, n)
	for i := 0; i < n; i++ {
		d := float64(i + 2)
		coo.Add(i, i, d)
		want[i] = 1 / d
	}
	mat, err := coo.ToBSR1()
	require.NoError(t, err)

	pool := asyncpool.New(2)
	defer pool.Close()
	prec := jacobi.New(mat, pool, jacobi.Config{})
	require.NoError(t, prec.Compute())

	r := make([]float64, n)
	for i := range r {
		r[i] = float64(i + 1)
	}
	z := make([]float64, n)
	require.NoError(t, prec.Apply(r, z))

	for i := 0; i < n; i++ {
		require.InDelta(t, want[i]*r[i], z[i], 1e-12)
	}
}

func TestJacobiApplyRequiresCompute(t *testing.T) {
	mat := tridiag(t, 4, 2)
	pool := asyncpool.New(2)
	defer pool.Close()
	prec := jacobi.New(mat, pool, jacobi.Config{})
	err := prec.Apply(make([]float64, 4), make([]float64, 4))
	require.Error(t, err)
}

func TestJacobiRelaxReducesResidual(t *testing.T) {
	n := 20
	mat := tridiag(t, n, 4) // diagonally dominant
	pool := asyncpool.New(2)
	defer pool.Close()
	prec := jacobi.New(mat, pool, jacobi.Config{})
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
	for i := 0; i < 30; i++ {
		require.NoError(t, prec.ApplyRelax(b, x))
	}
	after := residualNorm(x)
	require.Less(t, after, before*1e-6)
}
