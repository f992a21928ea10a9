// Package reduceop implements the reduction-operator contract from spec §3:
// predefined or user, exposing an is_commutative flag and a
// reduce(src, dst, count, dtype) function. The implementations themselves
// are out of scope (spec §1); this package only carries the descriptor and
// the handful of predefined numeric reducers needed for the engine's own
// end-to-end tests (spec §8 S2/S3/S6).
package reduceop

import (
	"math"

	"github.com/ucg-hpc/ucg/dtype"
)

// ReduceFn reduces count elements of src into dst in place (dst = dst OP src),
// element layout per dt.
type ReduceFn func(src, dst []byte, count int, dt dtype.Datatype)

type Op struct {
	Name         string
	Commutative  bool
	Reduce       ReduceFn
}

// SumInt32 is the predefined commutative SUM operator for int32 elements,
// used by the engine's own Allreduce end-to-end tests.
var SumInt32 = Op{
	Name:        "sum.i32",
	Commutative: true,
	Reduce: func(src, dst []byte, count int, dt dtype.Datatype) {
		for i := 0; i < count; i++ {
			off := i * dt.Extent
			s := int32(le32(src[off:]))
			d := int32(le32(dst[off:]))
			putLE32(dst[off:], uint32(s+d))
		}
	},
}

// SumFloat32 is the predefined commutative SUM operator for float32 elements.
var SumFloat32 = Op{
	Name:        "sum.f32",
	Commutative: true,
	Reduce: func(src, dst []byte, count int, dt dtype.Datatype) {
		for i := 0; i < count; i++ {
			off := i * dt.Extent
			s := math.Float32frombits(le32(src[off:]))
			d := math.Float32frombits(le32(dst[off:]))
			putLE32(dst[off:], math.Float32bits(s+d))
		}
	},
}

func le32(b []byte) uint32 {
	return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
