// Package jacobi implements the block-Jacobi preconditioner (§4.D): M =
// diag(A), apply = inverse-diagonal block scale, dispatched in parallel over
// block-rows through the same persistent worker pool the other
// preconditioners share. It also offers the "relaxation" variant (§4.F
// "Relaxation vs preconditioner" and
// original_source/include/relaxation_chaotic.hpp's ChaoticRelaxation): the
// same diagonal scale applied for a caller-supplied sweep count with no
// convergence check, used when the outer driver wants Jacobi relaxation
// steps rather than a one-shot apply.
package jacobi

import (
	"github.com/katalvlaran/blasted/bsr"
	"github.com/katalvlaran/blasted/bsr/contrib/asyncpool"
	"github.com/katalvlaran/blasted/bsr/contrib/diagblocks"
)

// Config holds Apply/ApplyRelax's dispatch granularity. There is no sweep
// count here (unlike sgs/ilu0): one diagonal scale is exactly one pass.
type Config struct {
	ChunkSize int
}

// Preconditioner is the block-Jacobi preconditioner over a borrowed matrix.
type Preconditioner[S bsr.Scalar, I bsr.Index] struct {
	mat   *bsr.Matrix[S, I]
	pool  *asyncpool.Pool
	diag  diagblocks.Inverted[S]
	ready bool

	chunkSize int
}

// New binds mat (borrowed, not owned — §3 lifecycle) to a fresh Jacobi
// preconditioner backed by pool, like sgs.New/ilu0.New.
func New[S bsr.Scalar, I bsr.Index](mat *bsr.Matrix[S, I], pool *asyncpool.Pool, cfg Config) *Preconditioner[S, I] {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 256
	}
	return &Preconditioner[S, I]{mat: mat, pool: pool, chunkSize: cfg.ChunkSize}
}

// SetMatrix rebinds the preconditioner to a new matrix, discarding any
// previously computed state (a different pattern invalidates dblocks' shape).
func (p *Preconditioner[S, I]) SetMatrix(mat *bsr.Matrix[S, I]) {
	p.mat = mat
	p.ready = false
}

// Wrap updates the bound matrix's values under an unchanged pattern (§6).
func (p *Preconditioner[S, I]) Wrap(vals []S) error {
	return p.mat.Wrap(vals)
}

// Dim returns the preconditioner's scalar dimension.
func (p *Preconditioner[S, I]) Dim() int { return p.mat.Dim() }

// Compute inverts every diagonal block of the bound matrix (§4.D). Safe to
// call repeatedly as the matrix's values change under a fixed pattern.
func (p *Preconditioner[S, I]) Compute() error {
	if err := diagblocks.Compute(&p.diag, p.mat); err != nil {
		return err
	}
	p.ready = true
	return nil
}

// Apply computes z = dblocks * r block-wise, in parallel over block-rows
// (§4.D). Compute must have been called at least once first.
func (p *Preconditioner[S, I]) Apply(r, z []S) error {
	if !p.ready {
		return bsr.NewInputError("jacobi: Apply called before Compute")
	}
	if len(r) != p.Dim() || len(z) != p.Dim() {
		return bsr.NewInputError("jacobi: Apply dimension mismatch: dim=%d len(r)=%d len(z)=%d", p.Dim(), len(r), len(z))
	}
	bs := int(p.mat.BlockSize())
	stor := p.mat.Storage()
	p.pool.RunSweep(p.mat.Nbrows, p.chunkSize, func(start, end int) {
		for irow := start; irow < end; irow++ {
			rseg := bsr.SegmentAt(r, irow, bs)
			zseg := bsr.SegmentAt(z, irow, bs)
			bsr.BlockSolve(p.diag.Block(irow, stor), rseg.Raw(), zseg.Raw())
		}
	})
	return nil
}

// RelaxationAvailable always reports true: Jacobi relaxation never needs
// anything beyond the diagonal inverse already computed.
func (p *Preconditioner[S, I]) RelaxationAvailable() bool { return true }

// ApplyRelax performs one block-Jacobi relaxation step: x = x + dblocks*(b -
// A*x), updating x in place. Unlike Apply, sweep counting (if any) is the caller's
// responsibility — this never checks a tolerance or residual (§4.F).
func (p *Preconditioner[S, I]) ApplyRelax(b, x []S) error {
	if !p.ready {
		return bsr.NewInputError("jacobi: ApplyRelax called before Compute")
	}
	dim := p.Dim()
	if len(b) != dim || len(x) != dim {
		return bsr.NewInputError("jacobi: ApplyRelax dimension mismatch: dim=%d len(b)=%d len(x)=%d", dim, len(b), len(x))
	}
	resid := make([]S, dim)
	copy(resid, b)
	if err := p.mat.GEMV3(-1, x, 1, resid); err != nil {
		return err
	}
	bs := int(p.mat.BlockSize())
	stor := p.mat.Storage()
	p.pool.RunSweep(p.mat.Nbrows, p.chunkSize, func(start, end int) {
		for irow := start; irow < end; irow++ {
			rseg := bsr.SegmentAt(resid, irow, bs)
			correction := make([]S, bs)
			bsr.BlockSolve(p.diag.Block(irow, stor), rseg.Raw(), correction)
			xseg := bsr.SegmentAt(x, irow, bs)
			for i := 0; i < bs; i++ {
				xseg.Set(i, xseg.At(i)+correction[i])
			}
		}
	})
	return nil
}
