// Package sgs implements the block symmetric Gauss-Seidel preconditioner
// (§4.G): M = (D+L)D^{-1}(D+U), applied via an asynchronous forward sweep
// followed by an asynchronous backward sweep through the same chaotic engine
// the ILU(0) preconditioner uses. It also offers LevelScheduled, a
// barrier-synchronized reference variant (SPEC_FULL.md's supplemented
// feature 3) used to validate the chaotic sweep's fixed point, and
// ApplyRelax, an open-ended chaotic relaxation variant with no convergence
// check (supplemented feature 2).
package sgs

import (
	"sync"

	"github.com/katalvlaran/blasted/bsr"
	"github.com/katalvlaran/blasted/bsr/contrib/asyncpool"
	"github.com/katalvlaran/blasted/bsr/contrib/diagblocks"
)

// Config holds the asynchronous engine's sweep configuration.
type Config struct {
	ApplySweeps int
	ChunkSize   int
}

// Preconditioner is the asynchronous block symmetric Gauss-Seidel
// preconditioner over a borrowed matrix.
type Preconditioner[S bsr.Scalar, I bsr.Index] struct {
	mat  *bsr.Matrix[S, I]
	pool *asyncpool.Pool
	diag diagblocks.Inverted[S]

	applySweeps int
	chunkSize   int
	ready       bool

	fwdLevels [][]int
	bwdLevels [][]int
}

// New binds mat (borrowed, not owned — §3 lifecycle) to a fresh SGS
// preconditioner backed by pool.
func New[S bsr.Scalar, I bsr.Index](mat *bsr.Matrix[S, I], pool *asyncpool.Pool, cfg Config) *Preconditioner[S, I] {
	if cfg.ApplySweeps <= 0 {
		cfg.ApplySweeps = 1
	}
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = 256
	}
	return &Preconditioner[S, I]{mat: mat, pool: pool, applySweeps: cfg.ApplySweeps, chunkSize: cfg.ChunkSize}
}

// SetMatrix rebinds the preconditioner to a new matrix, discarding any
// previously computed diagonal inverse.
func (p *Preconditioner[S, I]) SetMatrix(mat *bsr.Matrix[S, I]) {
	p.mat = mat
	p.ready = false
	p.fwdLevels = nil
	p.bwdLevels = nil
}

// Wrap updates the bound matrix's values under an unchanged pattern (§6).
func (p *Preconditioner[S, I]) Wrap(vals []S) error { return p.mat.Wrap(vals) }

// Dim returns the preconditioner's scalar dimension.
func (p *Preconditioner[S, I]) Dim() int { return p.mat.Dim() }

// Compute inverts every diagonal block of the bound matrix, the only
// precomputation SGS needs (§4.G).
func (p *Preconditioner[S, I]) Compute() error {
	if err := diagblocks.Compute(&p.diag, p.mat); err != nil {
		return err
	}
	p.ready = true
	return nil
}

// forwardSweep computes y_i = D_i^{-1}(r_i - sum_{j<i} L_ij y_j), the
// forward half of (D+L)y=r.
func (p *Preconditioner[S, I]) forwardSweep(r, y []S, rows []int) {
	bs := int(p.mat.BlockSize())
	stor := p.mat.Storage()
	for _, irow := range rows {
		lo, hi := int(p.mat.Browptr[irow]), int(p.mat.Browptr[irow+1])
		rseg := bsr.SegmentAt(r, irow, bs)
		acc := make([]S, bs)
		copy(acc, rseg.Raw())
		for j := lo; j < hi; j++ {
			col := int(p.mat.Bcolind[j])
			if col >= irow {
				break
			}
			yj := bsr.SegmentAt(y, col, bs)
			bsr.BlockMulAdd(-1, p.mat.Block(j), yj.Raw(), acc)
		}
		yseg := bsr.SegmentAt(y, irow, bs)
		bsr.BlockSolve(p.diag.Block(irow, stor), acc, yseg.Raw())
	}
}

// backwardSweep computes z_i = y_i + D_i^{-1}(-sum_{j>i} U_ij z_j), the
// backward half of (D+U)z = Dy → z = y - D^{-1}sum_{j>i}U_ij z_j, matching
// the symmetric Gauss-Seidel recurrence of §4.G.
func (p *Preconditioner[S, I]) backwardSweep(y, z []S, rows []int) {
	bs := int(p.mat.BlockSize())
	stor := p.mat.Storage()
	for k := len(rows) - 1; k >= 0; k-- {
		irow := rows[k]
		lo, hi := int(p.mat.Browptr[irow]), int(p.mat.Browptr[irow+1])
		acc := make([]S, bs)
		for j := lo; j < hi; j++ {
			col := int(p.mat.Bcolind[j])
			if col <= irow {
				continue
			}
			zj := bsr.SegmentAt(z, col, bs)
			bsr.BlockMulAdd(-1, p.mat.Block(j), zj.Raw(), acc)
		}
		correction := make([]S, bs)
		bsr.BlockSolve(p.diag.Block(irow, stor), acc, correction)
		yseg := bsr.SegmentAt(y, irow, bs)
		zseg := bsr.SegmentAt(z, irow, bs)
		for i := 0; i < bs; i++ {
			zseg.Set(i, yseg.At(i)+correction[i])
		}
	}
}

// Apply solves Mz=r for M=(D+L)D^{-1}(D+U) via an asynchronous forward sweep
// into a scratch vector then an asynchronous backward sweep into z, each run
// for ApplySweeps chaotic passes (§4.F/§4.G). Compute must have been called
// at least once first.
func (p *Preconditioner[S, I]) Apply(r, z []S) error {
	if !p.ready {
		return bsr.NewInputError("sgs: Apply called before Compute")
	}
	dim := p.Dim()
	if len(r) != dim || len(z) != dim {
		return bsr.NewInputError("sgs: Apply dimension mismatch: dim=%d len(r)=%d len(z)=%d", dim, len(r), len(z))
	}

	y := make([]S, dim)
	p.pool.RunSweeps(p.applySweeps, p.mat.Nbrows, p.chunkSize, func(start, end int) {
		rows := make([]int, end-start)
		for i := range rows {
			rows[i] = start + i
		}
		p.forwardSweep(r, y, rows)
	})
	p.pool.RunSweeps(p.applySweeps, p.mat.Nbrows, p.chunkSize, func(start, end int) {
		rows := make([]int, end-start)
		for i := range rows {
			rows[i] = start + i
		}
		p.backwardSweep(y, z, rows)
	})
	return nil
}

// computeForwardLevels groups rows by dependency depth over the lower (L)
// pattern (§4.G/GLOSSARY "level scheduling": row i's level is 1 + the max
// level of its L-pattern predecessors, 0 if it has none). Rows are visited in
// increasing index order so every L-pattern predecessor's level is already
// known — bcolind is sorted, so the L-pattern of a row is its prefix of
// entries with column < irow.
func computeForwardLevels[S bsr.Scalar, I bsr.Index](mat *bsr.Matrix[S, I]) [][]int {
	nbrows := mat.Nbrows
	level := make([]int, nbrows)
	maxLevel := 0
	for irow := 0; irow < nbrows; irow++ {
		lo, hi := int(mat.Browptr[irow]), int(mat.Browptr[irow+1])
		rowLevel := 0
		for j := lo; j < hi; j++ {
			col := int(mat.Bcolind[j])
			if col >= irow {
				break
			}
			if level[col]+1 > rowLevel {
				rowLevel = level[col] + 1
			}
		}
		level[irow] = rowLevel
		if rowLevel > maxLevel {
			maxLevel = rowLevel
		}
	}
	return groupByLevel(nbrows, level, maxLevel)
}

// computeBackwardLevels is computeForwardLevels' mirror over the upper (U)
// pattern: row i's level is 1 + the max level of its U-pattern successors.
// Rows are visited in decreasing index order so every U-pattern successor's
// level is already known.
func computeBackwardLevels[S bsr.Scalar, I bsr.Index](mat *bsr.Matrix[S, I]) [][]int {
	nbrows := mat.Nbrows
	level := make([]int, nbrows)
	maxLevel := 0
	for irow := nbrows - 1; irow >= 0; irow-- {
		lo, hi := int(mat.Browptr[irow]), int(mat.Browptr[irow+1])
		rowLevel := 0
		for j := hi - 1; j >= lo; j-- {
			col := int(mat.Bcolind[j])
			if col <= irow {
				break
			}
			if level[col]+1 > rowLevel {
				rowLevel = level[col] + 1
			}
		}
		level[irow] = rowLevel
		if rowLevel > maxLevel {
			maxLevel = rowLevel
		}
	}
	return groupByLevel(nbrows, level, maxLevel)
}

func groupByLevel(nbrows int, level []int, maxLevel int) [][]int {
	groups := make([][]int, maxLevel+1)
	for irow := 0; irow < nbrows; irow++ {
		l := level[irow]
		groups[l] = append(groups[l], irow)
	}
	return groups
}

// runLevel dispatches fn over rows split into up to workers concurrent
// chunks, blocking until every chunk finishes — the barrier between levels
// that makes the next level's reads of this level's writes well-defined.
func runLevel(rows []int, workers int, fn func(rows []int)) {
	if len(rows) == 0 {
		return
	}
	if workers <= 1 || len(rows) == 1 {
		fn(rows)
		return
	}
	chunkSize := (len(rows) + workers - 1) / workers
	var wg sync.WaitGroup
	for start := 0; start < len(rows); start += chunkSize {
		end := start + chunkSize
		if end > len(rows) {
			end = len(rows)
		}
		wg.Add(1)
		go func(sub []int) {
			defer wg.Done()
			fn(sub)
		}(rows[start:end])
	}
	wg.Wait()
}

// LevelScheduled solves Mz=r the same way as Apply but grouping rows by
// dependency depth and processing each level's rows in parallel with a
// barrier between levels, rather than the chaotic engine's dynamic-chunk
// dispatch (§4.G/GLOSSARY "level scheduling") — the validated reference
// implementation SPEC_FULL.md's supplemented feature 3 calls for, used to
// check the chaotic engine's fixed point against a known-correct
// deterministic answer. Levels are computed once per bound pattern and
// reused across calls.
func (p *Preconditioner[S, I]) LevelScheduled(r, z []S) error {
	if !p.ready {
		return bsr.NewInputError("sgs: LevelScheduled called before Compute")
	}
	dim := p.Dim()
	if len(r) != dim || len(z) != dim {
		return bsr.NewInputError("sgs: LevelScheduled dimension mismatch: dim=%d len(r)=%d len(z)=%d", dim, len(r), len(z))
	}
	if p.fwdLevels == nil {
		p.fwdLevels = computeForwardLevels(p.mat)
	}
	if p.bwdLevels == nil {
		p.bwdLevels = computeBackwardLevels(p.mat)
	}

	workers := p.pool.NumWorkers()
	y := make([]S, dim)
	for _, rows := range p.fwdLevels {
		runLevel(rows, workers, func(sub []int) { p.forwardSweep(r, y, sub) })
	}
	for _, rows := range p.bwdLevels {
		runLevel(rows, workers, func(sub []int) { p.backwardSweep(y, z, sub) })
	}
	return nil
}

// RelaxationAvailable always reports true: SGS relaxation reuses the same
// diagonal inverse and async engine Apply already relies on.
func (p *Preconditioner[S, I]) RelaxationAvailable() bool { return true }

// ApplyRelax performs one asynchronous SGS relaxation step in place on x
// against right-hand side b: x is updated toward the solution of Ax=b using
// the (D+L)D^{-1}(D+U) recurrence directly on the residual, with no
// convergence check ever performed (§4.F, SPEC_FULL.md supplemented feature
// 2 — AsyncSGSRelaxation).
func (p *Preconditioner[S, I]) ApplyRelax(b, x []S) error {
	if !p.ready {
		return bsr.NewInputError("sgs: ApplyRelax called before Compute")
	}
	dim := p.Dim()
	if len(b) != dim || len(x) != dim {
		return bsr.NewInputError("sgs: ApplyRelax dimension mismatch: dim=%d len(b)=%d len(x)=%d", dim, len(b), len(x))
	}
	resid := make([]S, dim)
	copy(resid, b)
	if err := p.mat.GEMV3(-1, x, 1, resid); err != nil {
		return err
	}
	correction := make([]S, dim)
	if err := p.Apply(resid, correction); err != nil {
		return err
	}
	for i := range x {
		x[i] += correction[i]
	}
	return nil
}
