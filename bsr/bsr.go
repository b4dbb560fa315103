package bsr

import (
	"context"
	"sort"

	"golang.org/x/sync/errgroup"
)

// Matrix is a Block Sparse Row matrix (§3). The sparsity pattern (Browptr,
// Bcolind, Diagind, Nbrows) is immutable once constructed (invariant D2);
// only Vals may be mutated afterward, via Submit/Update or direct access.
//
// Block storage: Vals holds nnzb contiguous bs×bs blocks, each laid out in
// the declared Stor order (see Block in align.go). Bs==1 is the scalar (CSR)
// specialization.
type Matrix[S Scalar, I Index] struct {
	Nbrows  int
	Browptr []I
	Bcolind []I
	Diagind []I
	Vals    []S

	bs   BlockSize
	stor Storage
}

// Dim returns the scalar dimension (nbrows * bs) of the matrix.
func (m *Matrix[S, I]) Dim() int { return m.Nbrows * int(m.bs) }

// BlockSize returns the matrix's block size.
func (m *Matrix[S, I]) BlockSize() BlockSize { return m.bs }

// Storage returns the matrix's in-block storage order.
func (m *Matrix[S, I]) Storage() Storage { return m.stor }

// Nnzb returns the number of stored blocks.
func (m *Matrix[S, I]) Nnzb() int {
	if len(m.Browptr) == 0 {
		return 0
	}
	return int(m.Browptr[m.Nbrows])
}

// New constructs a Matrix from caller-supplied pattern and value arrays,
// validating invariants D1 and D2 from §3:
//
//	0 <= browptr[i] <= diagind[i] < browptr[i+1]  and  bcolind[diagind[i]] == i
//
// and that bcolind is strictly increasing within each block-row. Vals is
// taken by reference, not copied; the caller must size it to
// browptr[nbrows] * bs * bs (one bs×bs block per stored block).
//
// Validation fans a parallel pass out over an errgroup.Group so the first row
// found violating an invariant cancels the rest and its error is returned —
// there's no benefit waiting for every row to be individually checked once
// one has already failed.
func New[S Scalar, I Index](bs BlockSize, stor Storage, browptr, bcolind, diagind []I, vals []S) (*Matrix[S, I], error) {
	if _, err := dispatchBlockKernels(bs, stor); err != nil {
		return nil, err
	}

	if len(browptr) < 1 {
		return nil, NewInputError("browptr must have at least one entry")
	}
	nbrows := len(browptr) - 1
	if len(diagind) != nbrows {
		return nil, NewInputError("diagind has length %d, want %d", len(diagind), nbrows)
	}
	if browptr[0] != 0 {
		return nil, NewInputError("browptr[0] = %d, want 0", browptr[0])
	}
	nnzb := int(browptr[nbrows])
	if len(bcolind) != nnzb {
		return nil, NewInputError("bcolind has length %d, want %d (browptr[nbrows])", len(bcolind), nnzb)
	}
	want := nnzb * int(bs) * int(bs)
	if len(vals) != want {
		return nil, NewInputError("vals has length %d, want %d (nnzb*bs*bs)", len(vals), want)
	}

	grp, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < nbrows; i++ {
		irow := i
		grp.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			lo, hi := browptr[irow], browptr[irow+1]
			if lo > hi {
				return NewInputError("browptr not non-decreasing at row %d: %d > %d", irow, lo, hi)
			}
			di := diagind[irow]
			if di < lo || di >= hi {
				return NewInputError("diagind[%d]=%d out of [browptr[%d], browptr[%d+1])=[%d,%d)",
					irow, di, irow, irow, lo, hi)
			}
			if int(bcolind[di]) != irow {
				return NewInputError("bcolind[diagind[%d]]=%d, want %d", irow, bcolind[di], irow)
			}
			for j := lo + 1; j < hi; j++ {
				if bcolind[j] <= bcolind[j-1] {
					return NewInputError("bcolind not strictly increasing in row %d at position %d", irow, j)
				}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}

	return &Matrix[S, I]{
		Nbrows:  nbrows,
		Browptr: browptr,
		Bcolind: bcolind,
		Diagind: diagind,
		Vals:    vals,
		bs:      bs,
		stor:    stor,
	}, nil
}

// Wrap updates Vals in place under an unchanged sparsity pattern, without
// reallocating any pattern array (§6 wrap). It does not re-validate the
// pattern: callers that changed browptr/bcolind/diagind should construct a
// fresh Matrix with New instead.
func (m *Matrix[S, I]) Wrap(vals []S) error {
	want := m.Nnzb() * int(m.bs) * int(m.bs)
	if len(vals) != want {
		return NewInputError("wrap: vals has length %d, want %d", len(vals), want)
	}
	m.Vals = vals
	return nil
}

// Block returns a view of the stored block at flat position pos.
func (m *Matrix[S, I]) Block(pos int) Block[S] {
	return BlockAt(m.Vals, pos, int(m.bs), m.stor)
}

// FindBlock returns the flat position of the block at (irow, jcol), or -1 if
// (irow, jcol) is not in the pattern. Uses binary search since bcolind is
// sorted within each row (§4.E).
func (m *Matrix[S, I]) FindBlock(irow, jcol int) int {
	lo, hi := int(m.Browptr[irow]), int(m.Browptr[irow+1])
	row := m.Bcolind[lo:hi]
	idx := sort.Search(len(row), func(k int) bool { return int(row[k]) >= jcol })
	if idx < len(row) && int(row[idx]) == jcol {
		return lo + idx
	}
	return -1
}

// SubmitBlock overwrites the block at (irow, jcol) with the bs*bs values in
// src (flat, in the matrix's declared storage order), for callers building A
// incrementally from an assembly loop. It is a contract violation — reported
// per reportContractViolation, non-fatal — to submit to a position absent
// from the pattern.
func (m *Matrix[S, I]) SubmitBlock(irow, jcol int, src []S) {
	pos := m.FindBlock(irow, jcol)
	if pos < 0 {
		reportContractViolation("SubmitBlock(%d,%d): block not in pattern", irow, jcol)
		return
	}
	copy(m.Block(pos).Raw(), src)
}

// UpdateBlock adds the bs*bs values in delta (flat, declared storage order)
// into the block at (irow, jcol), one scalar at a time via atomic add.
// Multiple concurrent updates to the same block are admissible (§4.B); each
// element-wise update is atomic, so no lock is needed across goroutines
// calling UpdateBlock concurrently for the same or different blocks.
func (m *Matrix[S, I]) UpdateBlock(irow, jcol int, delta []S) {
	pos := m.FindBlock(irow, jcol)
	if pos < 0 {
		reportContractViolation("UpdateBlock(%d,%d): block not in pattern", irow, jcol)
		return
	}
	raw := m.Block(pos).Raw()
	n := int(m.bs) * int(m.bs)
	for k := 0; k < n; k++ {
		atomicAddScalar(&raw[k], delta[k])
	}
}

// UpdateDiagBlock adds delta into the diagonal block of block-row irow.
func (m *Matrix[S, I]) UpdateDiagBlock(irow int, delta []S) {
	m.UpdateBlock(irow, irow, delta)
}
