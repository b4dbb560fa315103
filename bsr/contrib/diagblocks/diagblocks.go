// Package diagblocks holds the inverted-diagonal-block state shared by the
// Jacobi and SGS preconditioners. The original library reaches this code
// reuse through an inheritance chain (Preconditioner <- SRPreconditioner <-
// JacobiSRPreconditioner <- ABSGS); per the flattening redesign in §9 this
// module holds it as a composed struct instead, used by value inside both
// contrib/jacobi and contrib/sgs.
package diagblocks

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/katalvlaran/blasted/bsr"
)

// Inverted owns the per-block-row inverse of A's diagonal block (§3: "Jacobi:
// dblocks[nbrows*bs*bs], holding per-block inverse of A's diagonal block").
// Zero value is ready to use; Compute allocates Vals on first call and reuses
// it on subsequent calls against matrices sharing the same pattern.
type Inverted[S bsr.Scalar] struct {
	Vals []S
	bs   int
}

// Compute inverts every diagonal block of mat into d.Vals, allocating on
// first call. Inversion is embarrassingly parallel across rows; it runs over
// an errgroup so that the first singular block found (a NumericError, §4.D)
// cancels the remaining work instead of every goroutine racing to finish.
func Compute[S bsr.Scalar, I bsr.Index](d *Inverted[S], mat *bsr.Matrix[S, I]) error {
	bs := int(mat.BlockSize())
	d.bs = bs
	need := mat.Nbrows * bs * bs
	if len(d.Vals) != need {
		d.Vals = bsr.AlignedScalars[S](need)
	}

	grp, ctx := errgroup.WithContext(context.Background())
	for i := 0; i < mat.Nbrows; i++ {
		irow := i
		grp.Go(func() error {
			if ctx.Err() != nil {
				return nil
			}
			pos := int(mat.Diagind[irow])
			src := mat.Block(pos)
			dst := bsr.BlockAt(d.Vals, irow, bs, mat.Storage())
			if err := bsr.BlockInvert(dst, src); err != nil {
				return bsr.NewNumericError("diagblocks: block-row %d: %v", irow, err)
			}
			return nil
		})
	}
	return grp.Wait()
}

// Block returns a view of the inverted diagonal block for block-row irow.
func (d *Inverted[S]) Block(irow int, stor bsr.Storage) bsr.Block[S] {
	return bsr.BlockAt(d.Vals, irow, d.bs, stor)
}
