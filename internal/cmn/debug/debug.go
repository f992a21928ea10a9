// Package debug provides cheap, disable-able invariant checks, mirroring the
// teacher's cmn/debug (see xact/xs/tcb.go's debug.Assert/debug.AssertNoErr
// call sites). Stdlib-only: an assertion is a control-flow primitive, not a
// library concern, and no example repo reaches for a third-party assertion
// library even where they reach for testify/gomega in tests.
package debug

import "github.com/ucg-hpc/ucg/internal/cmn/nlog"

// Enabled gates all checks in this package. Production builds of the engine
// set this false; tests and the CLI leave it true to catch invariant
// violations early (a nil current step in the executor, an out-of-range
// rank in topology construction, a non-rank loopback endpoint).
var Enabled = true

func Assert(cond bool) {
	if Enabled && !cond {
		nlog.Fatalf("assertion failed")
	}
}

func Assertf(cond bool, format string, args ...any) {
	if Enabled && !cond {
		nlog.Fatalf(format, args...)
	}
}

func AssertNoErr(err error) {
	if Enabled && err != nil {
		nlog.Fatalf("unexpected error: %v", err)
	}
}
