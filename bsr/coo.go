package bsr

import "sort"

// COO is an unordered coordinate-form scalar matrix, used as the intake
// format for matrix-market files and hand-built test matrices before they are
// compacted into a Matrix (mirrors the original library's coomatrix.hpp,
// which plays the same "before the pattern is frozen" role).
type COO[S Scalar, I Index] struct {
	N    int
	Rows []I
	Cols []I
	Vals []S
}

// NewCOO creates an empty n x n COO matrix.
func NewCOO[S Scalar, I Index](n int) *COO[S, I] {
	return &COO[S, I]{N: n}
}

// Add appends one scalar entry (row, col, val). Duplicate (row, col) pairs
// are summed when the COO is compacted into BSR (see ToBSR1).
func (c *COO[S, I]) Add(row, col int, val S) {
	c.Rows = append(c.Rows, I(row))
	c.Cols = append(c.Cols, I(col))
	c.Vals = append(c.Vals, val)
}

// ToBSR1 compacts a scalar (bs=1) COO matrix into row-major CSR/BSR form,
// summing duplicate entries and requiring every diagonal to be present
// (§3 D1: "missing diagonals are a compute-time error").
func (c *COO[S, I]) ToBSR1() (*Matrix[S, I], error) {
	n := c.N
	type entry struct {
		col int
		val S
	}
	byRow := make([][]entry, n)
	for k := range c.Rows {
		r, col := int(c.Rows[k]), int(c.Cols[k])
		if r < 0 || r >= n || col < 0 || col >= n {
			return nil, NewInputError("COO entry (%d,%d) out of range [0,%d)", r, col, n)
		}
		found := false
		for i, e := range byRow[r] {
			if e.col == col {
				byRow[r][i].val += c.Vals[k]
				found = true
				break
			}
		}
		if !found {
			byRow[r] = append(byRow[r], entry{col: col, val: c.Vals[k]})
		}
	}

	browptr := make([]I, n+1)
	for r := 0; r < n; r++ {
		sort.Slice(byRow[r], func(i, j int) bool { return byRow[r][i].col < byRow[r][j].col })
		browptr[r+1] = browptr[r] + I(len(byRow[r]))
	}
	nnz := int(browptr[n])
	bcolind := make([]I, nnz)
	vals := make([]S, nnz)
	diagind := make([]I, n)

	pos := 0
	for r := 0; r < n; r++ {
		hasDiag := false
		for _, e := range byRow[r] {
			bcolind[pos] = I(e.col)
			vals[pos] = e.val
			if e.col == r {
				diagind[r] = I(pos)
				hasDiag = true
			}
			pos++
		}
		if !hasDiag {
			return nil, NewInputError("row %d is missing a diagonal entry", r)
		}
	}

	return New[S, I](BS1, RowMajor, browptr, bcolind, diagind, vals)
}
