package bsr

import "math"

// sqrtEpsilon64 is the pivot-rejection threshold used for float64 block
// inversion (§4.D): a pivot magnitude below this is treated as numerically
// singular. float32 callers use the float32 machine epsilon's square root
// instead, computed inline in blockInvert.
var sqrtEpsilon64 = math.Sqrt(2.220446049250313e-16)

// blockMulAdd computes y += alpha * B * x for one bs×bs block B (given as a
// flat Block view) and bs-length segments x, y. B, x, y must not alias.
func blockMulAdd[S Scalar](alpha S, blk Block[S], x, y []S) {
	bs := blk.bs
	for r := 0; r < bs; r++ {
		var sum S
		for c := 0; c < bs; c++ {
			sum += blk.At(r, c) * x[c]
		}
		y[r] += alpha * sum
	}
}

// blockSolve computes x = D^{-1} * r for a pre-inverted bs×bs block D.
func blockSolve[S Scalar](d Block[S], r, x []S) {
	bs := d.bs
	for row := 0; row < bs; row++ {
		var sum S
		for c := 0; c < bs; c++ {
			sum += d.At(row, c) * r[c]
		}
		x[row] = sum
	}
}

// blockInvert computes dst = src^{-1} for a bs×bs block using Gaussian
// elimination with partial pivoting. It returns a NumericError if any pivot's
// magnitude falls below sqrt(machine epsilon) for S, per §4.D.
//
// The elimination runs on scratch copies (a working copy of src and an
// identity matrix reduced alongside it); dst is written only once the
// elimination has finished, and is left untouched when a NumericError is
// returned.
func blockInvert[S Scalar](dst, src Block[S]) error {
	bs := src.bs

	// Working copy of src (row-major scratch regardless of declared storage,
	// since pivoting permutes rows).
	a := make([][]S, bs)
	for i := range a {
		a[i] = make([]S, bs)
		for j := 0; j < bs; j++ {
			a[i][j] = src.At(i, j)
		}
	}

	inv := make([][]S, bs)
	for i := range inv {
		inv[i] = make([]S, bs)
		inv[i][i] = 1
	}

	var eps float64
	switch any(a[0][0]).(type) {
	case float32:
		eps = math.Sqrt(1.1920929e-7)
	default:
		eps = sqrtEpsilon64
	}

	for col := 0; col < bs; col++ {
		// Partial pivot: find the largest-magnitude entry in this column at
		// or below the diagonal.
		piv := col
		best := math.Abs(float64(a[col][col]))
		for r := col + 1; r < bs; r++ {
			mag := math.Abs(float64(a[r][col]))
			if mag > best {
				best = mag
				piv = r
			}
		}
		if piv != col {
			a[col], a[piv] = a[piv], a[col]
			inv[col], inv[piv] = inv[piv], inv[col]
		}

		pivotVal := a[col][col]
		if math.Abs(float64(pivotVal)) < eps {
			return NewNumericError("singular block: pivot magnitude %g below threshold %g at column %d",
				math.Abs(float64(pivotVal)), eps, col)
		}

		invPivot := 1 / pivotVal
		for c := 0; c < bs; c++ {
			a[col][c] *= invPivot
			inv[col][c] *= invPivot
		}

		for r := 0; r < bs; r++ {
			if r == col {
				continue
			}
			factor := a[r][col]
			if factor == 0 {
				continue
			}
			for c := 0; c < bs; c++ {
				a[r][c] -= factor * a[col][c]
				inv[r][c] -= factor * inv[col][c]
			}
		}
	}

	for i := 0; i < bs; i++ {
		for j := 0; j < bs; j++ {
			dst.Set(i, j, inv[i][j])
		}
	}
	return nil
}

// BlockMulAdd computes y += alpha * B * x for one block, per §4.A's
// "block multiply-accumulate y += a·B·x".
func BlockMulAdd[S Scalar](alpha S, blk Block[S], x, y []S) { blockMulAdd(alpha, blk, x, y) }

// BlockSolve computes x = D^{-1} * r for a pre-inverted block, per §4.A's
// "block solve x = D⁻¹·r".
func BlockSolve[S Scalar](d Block[S], r, x []S) { blockSolve(d, r, x) }

// BlockInvert computes dst = src^{-1}, per §4.A's "block invert", rejecting
// pivots below sqrt(machine epsilon) with a NumericError (§4.D).
func BlockInvert[S Scalar](dst, src Block[S]) error { return blockInvert(dst, src) }

// BlockMatMulSub computes dst -= a * b for three bs×bs blocks, the
// block-block primitive the ILU(0) factorization kernel needs to subtract
// L_{ik}*U_{kj} products (§4.F numerical semantics) that BlockMulAdd (a
// block-vector primitive) cannot express.
func BlockMatMulSub[S Scalar](dst, a, b Block[S]) {
	bs := a.bs
	for r := 0; r < bs; r++ {
		for c := 0; c < bs; c++ {
			var sum S
			for k := 0; k < bs; k++ {
				sum += a.At(r, k) * b.At(k, c)
			}
			dst.Set(r, c, dst.At(r, c)-sum)
		}
	}
}

// BlockMatMul computes dst = a * b for three bs×bs blocks.
func BlockMatMul[S Scalar](dst, a, b Block[S]) {
	bs := a.bs
	for r := 0; r < bs; r++ {
		for c := 0; c < bs; c++ {
			var sum S
			for k := 0; k < bs; k++ {
				sum += a.At(r, k) * b.At(k, c)
			}
			dst.Set(r, c, sum)
		}
	}
}

