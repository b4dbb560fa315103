// Package bsr provides the block sparse row/column matrix representation and
// the kernels (SpMV, gemv3, block views) that the asynchronous preconditioner
// engine in bsr/contrib is built on.
//
// It follows the same shape as a portable numerics layer: a small set of
// generic constraints (Scalar, Index), a runtime dispatch table keyed by a
// small enum (BlockSize, Storage) instead of compile-time template
// instantiation, and plain aligned slices underneath rather than opaque
// vector handles.
//
// Basic usage:
//
//	a, err := bsr.New(bsr.BS1, bsr.RowMajor, browptr, bcolind, diagind, vals)
//	y := make([]float64, a.Dim())
//	a.Apply(1, x, y)
package bsr

// Scalar is the field over which matrices and vectors are defined.
type Scalar interface {
	~float32 | ~float64
}

// Index is the signed integer type used for all pattern arrays. It must be
// signed because -1 is used as the "not found" sentinel throughout the ILU(0)
// symbolic search (see contrib/ilu0).
type Index interface {
	~int32 | ~int64
}
