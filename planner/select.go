// Package planner implements auto-selection, feasibility/fallback, and plan
// building (spec §4.3, §4.4). Grounded on xact/xs's two-level
// kind-then-variant dispatch (xs.go's registry of xact kinds each owning a
// Factory), generalized to a (collective-kind, size/ppn/node bucket) ->
// algo-id selection table plus a (kind, algo-id) -> builder table.
package planner

import (
	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/plan"
)

// SizeBucket discretizes a message's byte size onto the axis spec §4.4
// names explicitly.
type SizeBucket int

const (
	Size4B SizeBucket = iota
	Size8B
	Size16B
	Size32B
	Size64B
	Size128B
	Size256B
	Size512B
	Size1KB
	Size2KB
	Size4KB
	Size8KB
	Size1MB
	SizeOverflow
)

// BucketSize maps a raw byte count to its selection-table bucket.
func BucketSize(n int) SizeBucket {
	switch {
	case n <= 4:
		return Size4B
	case n <= 8:
		return Size8B
	case n <= 16:
		return Size16B
	case n <= 32:
		return Size32B
	case n <= 64:
		return Size64B
	case n <= 128:
		return Size128B
	case n <= 256:
		return Size256B
	case n <= 512:
		return Size512B
	case n <= 1<<10:
		return Size1KB
	case n <= 2<<10:
		return Size2KB
	case n <= 4<<10:
		return Size4KB
	case n <= 8<<10:
		return Size8KB
	case n <= 1<<20:
		return Size1MB
	default:
		return SizeOverflow
	}
}

// PPNBucket discretizes processes-per-node.
type PPNBucket int

const (
	PPN4 PPNBucket = iota
	PPN8
	PPN16
	PPN32
	PPN64
	PPNOver64
)

func BucketPPN(n int) PPNBucket {
	switch {
	case n <= 4:
		return PPN4
	case n <= 8:
		return PPN8
	case n <= 16:
		return PPN16
	case n <= 32:
		return PPN32
	case n <= 64:
		return PPN64
	default:
		return PPNOver64
	}
}

// NodeBucket discretizes node count.
type NodeBucket int

const (
	Nodes4 NodeBucket = iota
	Nodes8
	Nodes16
	Nodes32
	NodesOver32
)

func BucketNodes(n int) NodeBucket {
	switch {
	case n <= 4:
		return Nodes4
	case n <= 8:
		return Nodes8
	case n <= 16:
		return Nodes16
	case n <= 32:
		return Nodes32
	default:
		return NodesOver32
	}
}

// selKey is the three-axis lookup key for one collective kind's table.
type selKey struct {
	size SizeBucket
	ppn  PPNBucket
	node NodeBucket
}

// Table is one collective kind's selection table (spec §4.4): a value of
// algo.AlgoAuto ("0") means "no entry, fall through to the kind's default".
type Table struct {
	kind    plan.CollectiveKind
	entries map[selKey]algo.ID
	def     algo.ID
}

func NewTable(kind plan.CollectiveKind, def algo.ID) *Table {
	return &Table{kind: kind, entries: make(map[selKey]algo.ID), def: def}
}

// Set installs an entry; an id of algo.AlgoAuto clears it back to "auto".
func (t *Table) Set(size SizeBucket, ppn PPNBucket, node NodeBucket, id algo.ID) {
	k := selKey{size, ppn, node}
	if id == algo.AlgoAuto {
		delete(t.entries, k)
		return
	}
	t.entries[k] = id
}

// Select performs the table lookup: override takes precedence, then the
// bucketed entry, then the table's default (spec §4.4: "A value of 0 means
// auto; a user-supplied override bypasses selection").
func (t *Table) Select(override algo.ID, msgBytes, ppn, nodes int) algo.ID {
	if override != algo.AlgoAuto {
		return override
	}
	k := selKey{BucketSize(msgBytes), BucketPPN(ppn), BucketNodes(nodes)}
	if id, ok := t.entries[k]; ok {
		return id
	}
	return t.def
}

// Registry holds one Table per collective kind.
type Registry struct {
	tables map[plan.CollectiveKind]*Table
}

func NewRegistry() *Registry {
	return &Registry{tables: make(map[plan.CollectiveKind]*Table)}
}

func (r *Registry) Register(t *Table) { r.tables[t.kind] = t }

func (r *Registry) Select(kind plan.CollectiveKind, override algo.ID, msgBytes, ppn, nodes int) algo.ID {
	t, ok := r.tables[kind]
	if !ok {
		return override
	}
	return t.Select(override, msgBytes, ppn, nodes)
}

// DefaultRegistry builds the default selection tables:
// structurally faithful bucketed lookups defaulting each collective kind to
// its most broadly-applicable algorithm, with small-message / wide-fanout
// overrides standing in for the original's size-tuned crossover points.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	barrier := NewTable(plan.KindBarrier, algo.AlgoBarrierKNTree)
	r.Register(barrier)

	bcast := NewTable(plan.KindBcast, algo.AlgoBcastKNTree)
	bcast.Set(Size1MB, PPNOver64, NodesOver32, algo.AlgoBcastRing)
	bcast.Set(SizeOverflow, PPNOver64, NodesOver32, algo.AlgoBcastRing)
	r.Register(bcast)

	reduce := NewTable(plan.KindReduce, algo.AlgoReduceKNTree)
	r.Register(reduce)

	allreduce := NewTable(plan.KindAllreduce, algo.AlgoAllreduceRD)
	allreduce.Set(Size1MB, PPN64, Nodes32, algo.AlgoAllreduceRabenseifner)
	allreduce.Set(SizeOverflow, PPN64, Nodes32, algo.AlgoAllreduceRabenseifner)
	allreduce.Set(Size1MB, PPNOver64, NodesOver32, algo.AlgoAllreduceRing)
	allreduce.Set(SizeOverflow, PPNOver64, NodesOver32, algo.AlgoAllreduceRing)
	r.Register(allreduce)

	scatterv := NewTable(plan.KindScatterv, algo.AlgoScattervKNTree)
	scatterv.Set(Size4B, PPN4, Nodes4, algo.AlgoScattervLinear)
	r.Register(scatterv)

	gatherv := NewTable(plan.KindGatherv, algo.AlgoGathervKNTree)
	gatherv.Set(Size4B, PPN4, Nodes4, algo.AlgoGathervLinear)
	r.Register(gatherv)

	allgatherv := NewTable(plan.KindAllgatherv, algo.AlgoAllgathervRecursive)
	allgatherv.Set(Size4B, PPN64, NodesOver32, algo.AlgoAllgathervBruck)
	allgatherv.Set(Size8B, PPN64, NodesOver32, algo.AlgoAllgathervBruck)
	allgatherv.Set(Size1MB, PPNOver64, NodesOver32, algo.AlgoAllgathervRing)
	allgatherv.Set(SizeOverflow, PPNOver64, NodesOver32, algo.AlgoAllgathervRing)
	r.Register(allgatherv)

	alltoallv := NewTable(plan.KindAlltoallv, algo.AlgoAlltoallvLadd)
	alltoallv.Set(Size1MB, PPN64, Nodes32, algo.AlgoAlltoallvPlummer)
	alltoallv.Set(SizeOverflow, PPN64, Nodes32, algo.AlgoAlltoallvPlummer)
	alltoallv.Set(Size1MB, PPNOver64, NodesOver32, algo.AlgoAlltoallvPlummer)
	alltoallv.Set(SizeOverflow, PPNOver64, NodesOver32, algo.AlgoAlltoallvPlummer)
	r.Register(alltoallv)

	return r
}
