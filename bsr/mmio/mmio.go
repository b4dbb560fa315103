// Package mmio reads Matrix Market coordinate files for seeding tests and
// reads/writes the plain-text sidecar format from spec §6 used for golden
// comparisons. Both are scalar (bs=1) formats; block matrices are built by
// converting a scalar matrix's blocks at a higher level.
package mmio

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/katalvlaran/blasted/bsr"
)

// ReadMatrixMarket reads a coordinate-format Matrix Market file (the
// "%%MatrixMarket matrix coordinate real general|symmetric" family) into a
// COO matrix. Symmetric files get both (i,j) and (j,i) entries emitted,
// except on the diagonal.
func ReadMatrixMarket(r io.Reader) (*bsr.COO[float64, int32], error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	symmetric := false
	var header string
	for sc.Scan() {
		line := sc.Text()
		if strings.HasPrefix(line, "%%MatrixMarket") {
			header = line
			symmetric = strings.Contains(strings.ToLower(line), "symmetric")
			continue
		}
		if strings.HasPrefix(line, "%") {
			continue
		}
		// First non-comment line: "nrows ncols nnz".
		fields := strings.Fields(line)
		if len(fields) != 3 {
			return nil, fmt.Errorf("mmio: malformed dimension line %q", line)
		}
		nrows, err := strconv.Atoi(fields[0])
		if err != nil {
			return nil, fmt.Errorf("mmio: bad nrows: %w", err)
		}
		ncols, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("mmio: bad ncols: %w", err)
		}
		if nrows != ncols {
			return nil, fmt.Errorf("mmio: matrix is %dx%d, only square matrices are supported", nrows, ncols)
		}
		coo := bsr.NewCOO[float64, int32](nrows)
		for sc.Scan() {
			entryLine := strings.TrimSpace(sc.Text())
			if entryLine == "" || strings.HasPrefix(entryLine, "%") {
				continue
			}
			parts := strings.Fields(entryLine)
			if len(parts) < 2 {
				return nil, fmt.Errorf("mmio: malformed entry line %q", entryLine)
			}
			row, err := strconv.Atoi(parts[0])
			if err != nil {
				return nil, fmt.Errorf("mmio: bad row index: %w", err)
			}
			col, err := strconv.Atoi(parts[1])
			if err != nil {
				return nil, fmt.Errorf("mmio: bad col index: %w", err)
			}
			val := 1.0
			if len(parts) >= 3 {
				val, err = strconv.ParseFloat(parts[2], 64)
				if err != nil {
					return nil, fmt.Errorf("mmio: bad value: %w", err)
				}
			}
			// Matrix Market indices are 1-based.
			coo.Add(row-1, col-1, val)
			if symmetric && row != col {
				coo.Add(col-1, row-1, val)
			}
		}
		return coo, nil
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return nil, fmt.Errorf("mmio: no dimension line found (header: %q)", header)
}

// ReadSidecar reads the plain-text sidecar format from spec §6:
//
//	line 1: nrows ncols nnz
//	line 2: browptr (nrows+1 values)
//	line 3: row indices per nonzero
//	line 4: column indices per nonzero
//	line 5: values per nonzero
//	line 6: diagind (nrows values)
//
// Line 3 (row indices) is redundant with browptr and is cross-checked against
// it rather than discarded, to catch sidecar files that were hand-edited
// inconsistently.
func ReadSidecar(r io.Reader) (*bsr.Matrix[float64, int32], error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 64*1024*1024)
	lines := make([]string, 0, 6)
	for sc.Scan() && len(lines) < 6 {
		lines = append(lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if len(lines) != 6 {
		return nil, fmt.Errorf("mmio: sidecar file has %d lines, want 6", len(lines))
	}

	dims := strings.Fields(lines[0])
	if len(dims) != 3 {
		return nil, fmt.Errorf("mmio: malformed dimension line %q", lines[0])
	}
	nrows, err := strconv.Atoi(dims[0])
	if err != nil {
		return nil, fmt.Errorf("mmio: bad nrows: %w", err)
	}
	nnz, err := strconv.Atoi(dims[2])
	if err != nil {
		return nil, fmt.Errorf("mmio: bad nnz: %w", err)
	}

	browptr, err := parseInts(lines[1], nrows+1)
	if err != nil {
		return nil, fmt.Errorf("mmio: browptr: %w", err)
	}
	rowIdx, err := parseInts(lines[2], nnz)
	if err != nil {
		return nil, fmt.Errorf("mmio: row indices: %w", err)
	}
	bcolind, err := parseInts(lines[3], nnz)
	if err != nil {
		return nil, fmt.Errorf("mmio: column indices: %w", err)
	}
	vals, err := parseFloats(lines[4], nnz)
	if err != nil {
		return nil, fmt.Errorf("mmio: values: %w", err)
	}
	diagind, err := parseInts(lines[5], nrows)
	if err != nil {
		return nil, fmt.Errorf("mmio: diagind: %w", err)
	}

	for irow := 0; irow < nrows; irow++ {
		for j := browptr[irow]; j < browptr[irow+1]; j++ {
			if rowIdx[j] != int32(irow) {
				return nil, fmt.Errorf("mmio: row-indices line disagrees with browptr at position %d: got row %d, want %d",
					j, rowIdx[j], irow)
			}
		}
	}

	return bsr.New[float64, int32](bsr.BS1, bsr.RowMajor, browptr, bcolind, diagind, vals)
}

// WriteSidecar writes a scalar (bs=1) matrix in the sidecar format.
func WriteSidecar(w io.Writer, m *bsr.Matrix[float64, int32]) error {
	if m.BlockSize() != bsr.BS1 {
		return fmt.Errorf("mmio: sidecar format only supports bs=1, got %s", m.BlockSize())
	}
	nnz := m.Nnzb()
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "%d %d %d\n", m.Nbrows, m.Nbrows, nnz)
	writeInts(bw, m.Browptr)
	rowIdx := make([]int32, nnz)
	for irow := 0; irow < m.Nbrows; irow++ {
		for j := m.Browptr[irow]; j < m.Browptr[irow+1]; j++ {
			rowIdx[j] = int32(irow)
		}
	}
	writeInts(bw, rowIdx)
	writeInts(bw, m.Bcolind)
	writeFloats(bw, m.Vals)
	writeInts(bw, m.Diagind)
	return bw.Flush()
}

func parseInts(line string, want int) ([]int32, error) {
	fields := strings.Fields(line)
	if len(fields) != want {
		return nil, fmt.Errorf("have %d values, want %d", len(fields), want)
	}
	out := make([]int32, want)
	for i, f := range fields {
		v, err := strconv.Atoi(f)
		if err != nil {
			return nil, err
		}
		out[i] = int32(v)
	}
	return out, nil
}

func parseFloats(line string, want int) ([]float64, error) {
	fields := strings.Fields(line)
	if len(fields) != want {
		return nil, fmt.Errorf("have %d values, want %d", len(fields), want)
	}
	out := make([]float64, want)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func writeInts[I ~int32 | ~int64](w *bufio.Writer, vals []I) {
	for i, v := range vals {
		if i > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(w, "%d", v)
	}
	w.WriteByte('\n')
}

func writeFloats(w *bufio.Writer, vals []float64) {
	for i, v := range vals {
		if i > 0 {
			w.WriteByte(' ')
		}
		fmt.Fprintf(w, "%.17g", v)
	}
	w.WriteByte('\n')
}
