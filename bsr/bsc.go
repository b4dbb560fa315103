package bsr

// BSC is a Block Sparse Column matrix (§3), the column analogue of Matrix.
// It is produced by ToBSC and consumed by the gemv3 atomic-scatter kernel
// (§4.C) and by SAI pattern support.
type BSC[S Scalar, I Index] struct {
	Nbcols  int
	Bcolptr []I
	Browind []I
	Diagind []I
	Vals    []S

	bs   BlockSize
	stor Storage
}

// Dim returns the scalar dimension (nbcols * bs).
func (c *BSC[S, I]) Dim() int { return c.Nbcols * int(c.bs) }

// Block returns a view of the stored block at flat position pos.
func (c *BSC[S, I]) Block(pos int) Block[S] {
	return BlockAt(c.Vals, pos, int(c.bs), c.stor)
}

// ToBSC converts a BSR matrix to its Block Sparse Column form (§4.B). The
// result is the "symmetrically populated column view": block values are
// carried over unchanged (not transposed — only their storage position
// changes), matching scenario (E5) where bs=1 and the scalar values are
// simply regrouped by column.
//
// This is the classic counting-sort CSR->CSC transpose: one pass to count
// column occupancy, an exclusive scan to get Bcolptr, and one more pass to
// scatter blocks into their column-major slots.
func (m *Matrix[S, I]) ToBSC() *BSC[S, I] {
	nbcols := m.Nbrows // square matrices only (§1 Non-goals)
	nnzb := m.Nnzb()
	bs := int(m.bs)

	colCount := make([]I, nbcols+1)
	for j := 0; j < nnzb; j++ {
		colCount[m.Bcolind[j]+1]++
	}
	for c := 0; c < nbcols; c++ {
		colCount[c+1] += colCount[c]
	}

	bcolptr := colCount
	browind := make([]I, nnzb)
	vals := make([]S, nnzb*bs*bs)
	diagind := make([]I, nbcols)
	cursor := make([]I, nbcols)
	copy(cursor, bcolptr[:nbcols])

	for irow := 0; irow < m.Nbrows; irow++ {
		lo, hi := int(m.Browptr[irow]), int(m.Browptr[irow+1])
		for j := lo; j < hi; j++ {
			col := int(m.Bcolind[j])
			dst := int(cursor[col])
			browind[dst] = I(irow)
			copy(vals[dst*bs*bs:(dst+1)*bs*bs], m.Vals[j*bs*bs:(j+1)*bs*bs])
			if irow == col {
				diagind[col] = I(dst)
			}
			cursor[col]++
		}
	}

	return &BSC[S, I]{
		Nbcols:  nbcols,
		Bcolptr: bcolptr,
		Browind: browind,
		Diagind: diagind,
		Vals:    vals,
		bs:      m.bs,
		stor:    m.stor,
	}
}

// ToBSR converts a BSC matrix back into BSR form, by the same counting-sort
// transpose run in the other direction. Round-tripping BSR->BSC->BSR
// reproduces the original pattern and values exactly (testable property #2).
func (c *BSC[S, I]) ToBSR() *Matrix[S, I] {
	nbrows := c.Nbcols
	nnzb := len(c.Browind)
	bs := int(c.bs)

	rowCount := make([]I, nbrows+1)
	for j := 0; j < nnzb; j++ {
		rowCount[c.Browind[j]+1]++
	}
	for r := 0; r < nbrows; r++ {
		rowCount[r+1] += rowCount[r]
	}

	browptr := rowCount
	bcolind := make([]I, nnzb)
	vals := make([]S, nnzb*bs*bs)
	diagind := make([]I, nbrows)
	cursor := make([]I, nbrows)
	copy(cursor, browptr[:nbrows])

	for col := 0; col < c.Nbcols; col++ {
		lo, hi := int(c.Bcolptr[col]), int(c.Bcolptr[col+1])
		for j := lo; j < hi; j++ {
			row := int(c.Browind[j])
			dst := int(cursor[row])
			bcolind[dst] = I(col)
			copy(vals[dst*bs*bs:(dst+1)*bs*bs], c.Vals[j*bs*bs:(j+1)*bs*bs])
			if row == col {
				diagind[row] = I(dst)
			}
			cursor[row]++
		}
	}

	return &Matrix[S, I]{
		Nbrows:  nbrows,
		Browptr: browptr,
		Bcolind: bcolind,
		Diagind: diagind,
		Vals:    vals,
		bs:      c.bs,
		stor:    c.stor,
	}
}
