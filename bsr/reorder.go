package bsr

import (
	"math"

	"github.com/samber/lo"
)

// Direction selects which way a Permutation is applied (§4.I).
type Direction int

const (
	// Forward: block-row rp[i] of the original becomes block-row i of the
	// permuted vector/matrix.
	Forward Direction = iota
	// Inverse undoes Forward.
	Inverse
)

// Permutation holds a row/column permutation and its inverse (§4.I). Forward
// and Inverse are built together so that ApplyVector(ApplyVector(v, Forward),
// Inverse) reproduces v bit-identically (testable property #9).
type Permutation[I Index] struct {
	Fwd []I
	Inv []I
}

// NewPermutation builds a Permutation from a forward mapping, deriving the
// inverse via samber/lo's map inversion (round-tripped through an int map
// since lo.Invert operates on maps, not slices).
func NewPermutation[I Index](fwd []I) *Permutation[I] {
	n := len(fwd)
	asMap := make(map[int]int, n)
	for i, f := range fwd {
		asMap[i] = int(f)
	}
	inverted := lo.Invert(asMap) // value -> key
	inv := make([]I, n)
	for v, k := range inverted {
		inv[v] = I(k)
	}
	out := make([]I, n)
	copy(out, fwd)
	return &Permutation[I]{Fwd: out, Inv: inv}
}

// ApplyVector returns a new bs-block-permuted copy of v. With dir==Forward,
// output block-row i is input block-row Fwd[i]; with dir==Inverse, output
// block-row i is input block-row Inv[i].
func ApplyVector[S Scalar, I Index](p *Permutation[I], v []S, bs int, dir Direction) []S {
	n := len(p.Fwd)
	out := make([]S, len(v))
	table := p.Fwd
	if dir == Inverse {
		table = p.Inv
	}
	for i := 0; i < n; i++ {
		src := int(table[i])
		copy(out[i*bs:(i+1)*bs], v[src*bs:(src+1)*bs])
	}
	return out
}

// Scaling holds per-block-row and per-block-column scale factors (§4.I): an
// entire bs×bs block is multiplied by one scalar, not element-wise.
type Scaling[S Scalar] struct {
	Row []S
	Col []S
}

// ScaleBlock multiplies every entry of a bs×bs block in place by
// Row[irow]*Col[jcol].
func (s *Scaling[S]) ScaleBlock(blk Block[S], irow, jcol int) {
	factor := s.Row[irow] * s.Col[jcol]
	raw := blk.Raw()
	for i := range raw {
		raw[i] *= factor
	}
}

// GreedyMC64 computes a simplified maximum-product-transversal row
// permutation plus row/column equilibration scalings (§4.I), in the spirit
// of MC64 but using a greedy largest-magnitude assignment rather than the
// full Hopcroft-Karp-based augmenting-path algorithm HSL's MC64 uses (see
// DESIGN.md for why the simplification is acceptable here: §4.I only
// requires *an* MC64-style algorithm, not a byte-exact port).
//
// The greedy pass visits rows in order and assigns each to the unclaimed
// column, among that row's stored blocks, whose block has the
// largest-magnitude entry; on a tie the leftmost such column wins. A row
// with no unclaimed column falls back to the identity assignment, and a
// clash that causes is resolved afterwards by handing the row the first
// free column.
func GreedyMC64[S Scalar, I Index](m *Matrix[S, I]) (*Permutation[I], *Scaling[S], error) {
	n := m.Nbrows
	bs := int(m.bs)
	fwd := make([]I, n)
	claimed := make([]bool, n)

	magnitude := func(pos int) float64 {
		blk := m.Block(pos)
		var best float64
		for r := 0; r < bs; r++ {
			for c := 0; c < bs; c++ {
				v := math.Abs(float64(blk.At(r, c)))
				if v > best {
					best = v
				}
			}
		}
		return best
	}

	for irow := 0; irow < n; irow++ {
		lo, hi := int(m.Browptr[irow]), int(m.Browptr[irow+1])
		bestCol, bestMag := -1, -1.0
		for j := lo; j < hi; j++ {
			col := int(m.Bcolind[j])
			if claimed[col] {
				continue
			}
			mag := magnitude(j)
			if mag > bestMag {
				bestMag = mag
				bestCol = col
			}
		}
		if bestCol < 0 {
			// No unclaimed column available in this row; keep identity and
			// let a later pass fix up any resulting clash.
			bestCol = irow
		}
		fwd[irow] = I(bestCol)
		claimed[bestCol] = true
	}

	// Resolve any duplicate assignments (rows that fell back to an
	// already-claimed identity slot) by reassigning to the first free
	// column, preserving a valid permutation.
	seen := make([]bool, n)
	free := make([]int, 0, n)
	for c := 0; c < n; c++ {
		seen[c] = false
	}
	assignedTo := make([]int, n)
	for c := range assignedTo {
		assignedTo[c] = -1
	}
	for irow, col := range fwd {
		if assignedTo[col] == -1 {
			assignedTo[col] = irow
			seen[col] = true
		}
	}
	for c := 0; c < n; c++ {
		if !seen[c] {
			free = append(free, c)
		}
	}
	finalCol := make([]int, n)
	for c := range finalCol {
		finalCol[c] = -1
	}
	freeIdx := 0
	for irow, col := range fwd {
		ic := int(col)
		if assignedTo[ic] == irow {
			finalCol[irow] = ic
		} else {
			finalCol[irow] = free[freeIdx]
			freeIdx++
		}
	}
	for irow, col := range finalCol {
		fwd[irow] = I(col)
	}

	perm := NewPermutation(fwd)

	// Equilibration: divide each block-row's scale by the largest block-entry
	// magnitude in that row, so its max-magnitude entry becomes 1. Only rows
	// are scaled (every column scale stays 1), and no log-sum averaging is
	// done: the second pass recomputes the row maxima under the first pass's
	// scales, which are then already 1.
	rowScale := make([]S, n)
	colScale := make([]S, n)
	for i := range rowScale {
		rowScale[i] = 1
		colScale[i] = 1
	}
	for pass := 0; pass < 2; pass++ {
		rowMax := make([]float64, n)
		for irow := 0; irow < n; irow++ {
			lo, hi := int(m.Browptr[irow]), int(m.Browptr[irow+1])
			for j := lo; j < hi; j++ {
				mag := magnitude(j) * float64(rowScale[irow]) * float64(colScale[int(m.Bcolind[j])])
				if mag > rowMax[irow] {
					rowMax[irow] = mag
				}
			}
		}
		for irow := 0; irow < n; irow++ {
			if rowMax[irow] > 0 {
				rowScale[irow] = S(float64(rowScale[irow]) / rowMax[irow])
			}
		}
	}

	return perm, &Scaling[S]{Row: rowScale, Col: colScale}, nil
}
