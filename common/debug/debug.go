//go:build !debug

package debug

// Enabled turns on internal invariant checks. Build with -tags debug.
const Enabled = false
