package ilu0

import (
	"sort"

	"github.com/katalvlaran/blasted/bsr"
)

// Positions is the precomputed ILU(0) index-list needed so the asynchronous
// numeric factorization has O(1) lookups for the products it must subtract
// at each nonzero (§3 "ILU positions list", §4.E). For each stored nonzero at
// flat position j, the range [Posptr[j], Posptr[j+1]) names the (Lowerp[k],
// Upperp[k]) pairs of already-computed L/U entries whose product contributes
// to the fixed-point update at j.
type Positions[I bsr.Index] struct {
	Posptr []I
	Lowerp []I
	Upperp []I
}

// innerSearch binary-searches bcolind[lo:hi) (sorted, §3) for target,
// returning its position or -1 if absent. This is the same "inner_search"
// helper the original symbolic pass uses, since bcolind is always sorted
// within a row (§4.E: "search within a row uses binary search").
func innerSearch[I bsr.Index](bcolind []I, lo, hi int, target I) int {
	row := bcolind[lo:hi]
	idx := sort.Search(len(row), func(k int) bool { return row[k] >= target })
	if idx < len(row) && row[idx] == target {
		return lo + idx
	}
	return -1
}

// Compute builds the ILU(0) positions list for mat's sparsity pattern (§4.E).
// It runs once per pattern; the caller is expected to cache the result across
// every subsequent Compute() of the owning ilu0.Preconditioner, exactly as
// §3's lifecycle contract describes for pattern-dependent scratch.
func Compute[S bsr.Scalar, I bsr.Index](mat *bsr.Matrix[S, I]) *Positions[I] {
	nbrows := mat.Nbrows
	nnzb := mat.Nnzb()

	numpos := make([]int, nnzb)

	visit := func(irow int, record func(j, k, ipos int)) {
		lo, hi := int(mat.Browptr[irow]), int(mat.Browptr[irow+1])
		for j := lo; j < hi; j++ {
			col := int(mat.Bcolind[j])
			if irow > col {
				// Lower entry l_{irow,col}: k ranges over row irow's entries
				// left of column col; ipos is the position of column col in
				// row bcolind[k]'s upper part.
				for k := lo; k < hi && int(mat.Bcolind[k]) < col; k++ {
					kcol := int(mat.Bcolind[k])
					ipos := innerSearch(mat.Bcolind, int(mat.Diagind[kcol]), int(mat.Browptr[kcol+1]), mat.Bcolind[j])
					if ipos > -1 {
						record(j, k, ipos)
					}
				}
			} else {
				// Upper entry u_{irow,col}: k ranges over row irow's lower
				// part (columns left of the diagonal); ipos is the matching
				// column col in row bcolind[k]'s upper part.
				for k := lo; k < hi && int(mat.Bcolind[k]) < irow; k++ {
					kcol := int(mat.Bcolind[k])
					ipos := innerSearch(mat.Bcolind, int(mat.Diagind[kcol]), int(mat.Browptr[kcol+1]), mat.Bcolind[j])
					if ipos > -1 {
						record(j, k, ipos)
					}
				}
			}
		}
	}

	for irow := 0; irow < nbrows; irow++ {
		visit(irow, func(j, k, ipos int) {
			numpos[j]++
		})
	}

	posptr := make([]I, nnzb+1)
	for j := 0; j < nnzb; j++ {
		posptr[j+1] = posptr[j] + I(numpos[j])
	}
	total := int(posptr[nnzb])

	lowerp := make([]I, total)
	upperp := make([]I, total)
	cursor := make([]int, nnzb)
	for j := range cursor {
		cursor[j] = int(posptr[j])
	}

	for irow := 0; irow < nbrows; irow++ {
		visit(irow, func(j, k, ipos int) {
			lowerp[cursor[j]] = I(k)
			upperp[cursor[j]] = I(ipos)
			cursor[j]++
		})
	}

	return &Positions[I]{Posptr: posptr, Lowerp: lowerp, Upperp: upperp}
}
