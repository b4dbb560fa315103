//go:build !blasted_debug

package bsr

// reportContractViolation is the release-build handler for an assembly-time
// contract violation (submitting/updating a block absent from the sparsity
// pattern, per §4.B/§7): silent no-op. Build with -tags blasted_debug to get
// the warning-printing variant in contract_debug.go instead.
func reportContractViolation(format string, args ...any) {}
