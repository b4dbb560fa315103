package bsr

import (
	"runtime"
	"sync"
)

// parallelRows runs fn(i) for i in [0, n) across goroutines with no
// synchronization between them beyond the final join — the kernel-layer
// analogue of the async engine's sweep dispatch (§4.C: "no synchronization
// inside; correctness requires reader and writer to refer to disjoint
// address ranges"). Unlike the chaotic engine in contrib/asyncpool, SpMV and
// gemv3 are single-pass: there is nothing to chain between sweeps.
func parallelRows(n int, fn func(i int)) {
	if n <= 0 {
		return
	}
	workers := min(runtime.GOMAXPROCS(0), n)
	if workers <= 1 {
		for i := 0; i < n; i++ {
			fn(i)
		}
		return
	}
	chunk := (n + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < n; start += chunk {
		end := min(start+chunk, n)
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				fn(i)
			}
		}(start, end)
	}
	wg.Wait()
}

// Apply computes y = alpha * A * x (§4.B apply). x and y must not alias (the
// caller's responsibility per §4.C) and must each have length Dim().
func (m *Matrix[S, I]) Apply(alpha S, x, y []S) error {
	if len(x) != m.Dim() || len(y) != m.Dim() {
		return NewInputError("Apply: dimension mismatch: dim=%d len(x)=%d len(y)=%d", m.Dim(), len(x), len(y))
	}
	bs := int(m.bs)
	parallelRows(m.Nbrows, func(irow int) {
		yseg := SegmentAt(y, irow, bs)
		for i := 0; i < bs; i++ {
			yseg.Set(i, 0)
		}
		lo, hi := int(m.Browptr[irow]), int(m.Browptr[irow+1])
		for j := lo; j < hi; j++ {
			col := int(m.Bcolind[j])
			xseg := SegmentAt(x, col, bs)
			blockMulAdd(alpha, m.Block(j), xseg.Raw(), yseg.Raw())
		}
	})
	return nil
}

// GEMV3 computes y = alpha*A*x + beta*y (§4.B gemv3), overwriting y in place.
// z and y may alias in the mathematical sense (there is only one output
// argument, y, which also supplies the beta*y term) because each block-row's
// new value depends only on its own old value, never on a peer row's.
func (m *Matrix[S, I]) GEMV3(alpha S, x []S, beta S, y []S) error {
	if len(x) != m.Dim() || len(y) != m.Dim() {
		return NewInputError("GEMV3: dimension mismatch: dim=%d len(x)=%d len(y)=%d", m.Dim(), len(x), len(y))
	}
	bs := int(m.bs)
	parallelRows(m.Nbrows, func(irow int) {
		yseg := SegmentAt(y, irow, bs)
		old := make([]S, bs)
		copy(old, yseg.Raw())
		for i := 0; i < bs; i++ {
			yseg.Set(i, 0)
		}
		lo, hi := int(m.Browptr[irow]), int(m.Browptr[irow+1])
		for j := lo; j < hi; j++ {
			col := int(m.Bcolind[j])
			xseg := SegmentAt(x, col, bs)
			blockMulAdd(alpha, m.Block(j), xseg.Raw(), yseg.Raw())
		}
		for i := 0; i < bs; i++ {
			yseg.Set(i, yseg.At(i)+beta*old[i])
		}
	})
	return nil
}

// GEMV3 computes y = alpha*A*x + beta*y for a BSC matrix. Because work is
// partitioned by block-column here rather than block-row, several columns
// can contribute to the same output row concurrently; per §4.B this uses a
// block-wise atomic add over the bs output slots rather than per-block locks.
func (c *BSC[S, I]) GEMV3(alpha S, x []S, beta S, y []S) error {
	if len(x) != c.Dim() || len(y) != c.Dim() {
		return NewInputError("BSC.GEMV3: dimension mismatch: dim=%d len(x)=%d len(y)=%d", c.Dim(), len(x), len(y))
	}
	bs := int(c.bs)
	// Scale y by beta first: single pass, no concurrent writers yet.
	for i := range y {
		y[i] *= beta
	}
	parallelRows(c.Nbcols, func(jcol int) {
		xseg := SegmentAt(x, jcol, bs)
		lo, hi := int(c.Bcolptr[jcol]), int(c.Bcolptr[jcol+1])
		for j := lo; j < hi; j++ {
			row := int(c.Browind[j])
			contrib := make([]S, bs)
			blockMulAdd(alpha, c.Block(j), xseg.Raw(), contrib)
			base := row * bs
			for i := 0; i < bs; i++ {
				atomicAddScalar(&y[base+i], contrib[i])
			}
		}
	})
	return nil
}
