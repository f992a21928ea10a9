// Package dtype implements the datatype descriptor from spec §3: predefined
// types carry a known extent/true-extent; user types expose pack/unpack
// callbacks and an is_contiguous flag. Grounded on the predefined-type enum
// in original_source's src/planc/hccl/planc_hccl_dt.h.
package dtype

import "github.com/pkg/errors"

// Kind enumerates the predefined element types the engine reduces and
// packs natively. User-defined types use KindUser.
type Kind int

const (
	KindInt8 Kind = iota
	KindInt16
	KindInt32
	KindInt64
	KindUint8
	KindUint16
	KindUint32
	KindUint64
	KindFloat32
	KindFloat64
	KindUser
)

var predefinedExtent = map[Kind]int{
	KindInt8: 1, KindUint8: 1,
	KindInt16: 2, KindUint16: 2,
	KindInt32: 4, KindUint32: 4, KindFloat32: 4,
	KindInt64: 8, KindUint64: 8, KindFloat64: 8,
}

// PackFn serializes count elements starting at src into dst, returning the
// number of bytes written. UnpackFn is its inverse.
type PackFn func(dst []byte, src []byte, count int) int
type UnpackFn func(dst []byte, src []byte, count int) int

// Datatype is the engine's view of a user's MPI-style datatype (spec §3).
type Datatype struct {
	Kind         Kind
	Extent       int // stride between elements
	TrueExtent   int // size of one element's significant bytes
	Contiguous   bool
	Pack         PackFn
	Unpack       UnpackFn
}

// Predefined returns the built-in descriptor for k. Panics on KindUser: use
// NewUser instead.
func Predefined(k Kind) Datatype {
	ext, ok := predefinedExtent[k]
	if !ok {
		panic("dtype: not a predefined kind")
	}
	return Datatype{Kind: k, Extent: ext, TrueExtent: ext, Contiguous: true}
}

// NewUser builds a user-defined, non-contiguous-capable descriptor. pack and
// unpack must be non-nil when contiguous is false (spec §3: "the descriptor
// must expose pack/unpack callbacks").
func NewUser(extent, trueExtent int, contiguous bool, pack PackFn, unpack UnpackFn) (Datatype, error) {
	if !contiguous && (pack == nil || unpack == nil) {
		return Datatype{}, errors.New("dtype: non-contiguous user type requires pack/unpack callbacks")
	}
	return Datatype{
		Kind: KindUser, Extent: extent, TrueExtent: trueExtent,
		Contiguous: contiguous, Pack: pack, Unpack: unpack,
	}, nil
}

// Span returns the byte span of count contiguous elements:
// (count-1)*Extent + TrueExtent, i.e. count*Extent with the final element's
// (Extent-TrueExtent) gap excluded, matching mpi_datatype_span semantics
// from the bootstrap contract (spec §6).
func (dt Datatype) Span(count int) int {
	if count == 0 {
		return 0
	}
	return (count-1)*dt.Extent + dt.TrueExtent
}

// ExceedsThreshold implements the §4.4 "dtype-exceeds-threshold (32B)"
// feasibility check input: true when a single element's true extent is
// larger than thresh bytes.
func (dt Datatype) ExceedsThreshold(thresh int) bool {
	return dt.TrueExtent > thresh
}
