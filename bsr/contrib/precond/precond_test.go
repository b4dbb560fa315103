package precond_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/katalvlaran/blasted/bsr"
	"github.com/katalvlaran/blasted/bsr/contrib/precond"
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

func TestFactoryBuildsEveryKind(t *testing.T) {
	kinds := []precond.Kind{precond.Jacobi, precond.GS, precond.SGS, precond.ILU0, precond.SAPILU0, precond.None}
	for _, kind := range kinds {
		kind := kind
		t.Run(string(kind), func(t *testing.T) {
			mat := tridiag(t, 10, 4)
			prec, pool, err := precond.New[float64, int32](kind, mat, nil, precond.Config{BuildSweeps: 2, ApplySweeps: 2, ChunkSize: 4})
			require.NoError(t, err)
			defer pool.Close()
			require.NoError(t, prec.Compute())

			r := make([]float64, mat.Dim())
			for i := range r {
				r[i] = float64(i + 1)
			}
			z := make([]float64, mat.Dim())
			require.NoError(t, prec.Apply(r, z))
			for _, v := range z {
				require.False(t, v != v, "NaN in %s apply output", kind)
			}
		})
	}
}

func TestFactoryRejectsUnknownKind(t *testing.T) {
	mat := tridiag(t, 4, 3)
	_, _, err := precond.New[float64, int32](precond.Kind("bogus"), mat, nil, precond.Config{})
	require.Error(t, err)
}

func TestFactoryNoneIsIdentity(t *testing.T) {
	mat := tridiag(t, 6, 3)
	prec, pool, err := precond.New[float64, int32](precond.None, mat, nil, precond.Config{})
	require.NoError(t, err)
	defer pool.Close()
	require.NoError(t, prec.Compute())

	r := []float64{1, 2, 3, 4, 5, 6}
	z := make([]float64, 6)
	require.NoError(t, prec.Apply(r, z))
	require.Equal(t, r, z)
}
