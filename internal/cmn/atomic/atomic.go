// Package atomic re-exports go.uber.org/atomic's counter types under the
// engine's own import path, mirroring the teacher's "github.com/NVIDIA/
// aistore/3rdparty/atomic" vendored-upstream idiom (see the atomic.Int32/
// atomic.Int64 fields on xact/xs/tcb.go's XactTCB, and the
// ratomic.Pointer[bundle] field in the transport/bundle corpus sample).
// Rather than vendor a copy, this module depends on the real upstream
// directly.
package atomic

import "go.uber.org/atomic"

type (
	Int32 = atomic.Int32
	Int64 = atomic.Int64
	Uint32 = atomic.Uint32
	Bool  = atomic.Bool
)
