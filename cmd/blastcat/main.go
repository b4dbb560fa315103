// Command blastcat converts between the Matrix Market coordinate format and
// the plain-text sidecar format used for golden-value comparisons (§6).
//
// Usage:
//
//	blastcat -input A.mtx -output A.sidecar -from mtx -to sidecar
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/katalvlaran/blasted/bsr"
	"github.com/katalvlaran/blasted/bsr/mmio"
)

var (
	inputFile  = flag.String("input", "", "Input file (required)")
	outputFile = flag.String("output", "", "Output file (required)")
	from       = flag.String("from", "mtx", "Input format: mtx or sidecar")
	to         = flag.String("to", "sidecar", "Output format: sidecar")
)

func main() {
	flag.Parse()

	if *inputFile == "" || *outputFile == "" {
		fmt.Fprintf(os.Stderr, "Error: -input and -output are both required\n\n")
		flag.Usage()
		os.Exit(1)
	}

	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	in, err := os.Open(*inputFile)
	if err != nil {
		return fmt.Errorf("opening input: %w", err)
	}
	defer in.Close()

	var mat *bsr.Matrix[float64, int32]
	switch *from {
	case "mtx":
		coo, err := mmio.ReadMatrixMarket(in)
		if err != nil {
			return fmt.Errorf("reading matrix market: %w", err)
		}
		mat, err = coo.ToBSR1()
		if err != nil {
			return fmt.Errorf("compacting coordinate entries: %w", err)
		}
	case "sidecar":
		mat, err = mmio.ReadSidecar(in)
		if err != nil {
			return fmt.Errorf("reading sidecar: %w", err)
		}
	default:
		return fmt.Errorf("unknown -from format %q (want mtx or sidecar)", *from)
	}

	out, err := os.Create(*outputFile)
	if err != nil {
		return fmt.Errorf("creating output: %w", err)
	}
	defer out.Close()

	switch *to {
	case "sidecar":
		if err := mmio.WriteSidecar(out, mat); err != nil {
			return fmt.Errorf("writing sidecar: %w", err)
		}
	default:
		return fmt.Errorf("unknown -to format %q (only sidecar is supported as an output)", *to)
	}

	fmt.Fprintf(os.Stderr, "blastcat: wrote %d rows, %d nonzero blocks to %s\n", mat.Nbrows, mat.Nnzb(), *outputFile)
	return nil
}
