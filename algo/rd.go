package algo

import (
	"github.com/ucg-hpc/ucg/internal/cmn/cos"
	"github.com/ucg-hpc/ucg/topo"
)

// RDRole classifies a rank's participation in recursive doubling over a
// non-power-of-two group size (spec §4.2.2), ported from
// original_source's src/util/algo/ucg_rd.c.
type RDRole int

const (
	RDExtra RDRole = iota // one of the 2r low ranks with even rank: hands off to its proxy
	RDProxy                // the paired odd low rank (extra + 1): runs the RD core on its behalf
	RDBase                 // a rank >= 2r: always participates in the power-of-two core
)

// RDIter drives the sequence of peers one rank exchanges with across a full
// recursive-doubling allreduce/barrier: for an EXTRA rank, one pre-step to
// its proxy and one post-step back; for a PROXY, the same two steps plus
// the power-of-two RD core in between; for a BASE rank, just the core.
type RDIter struct {
	myrank, size     int
	nBase, proxyNum  int
	role             RDRole
	newRank          int // rank within the power-of-two core (PROXY/BASE only)
	idx, maxIdx      int
	current          int
}

func NewRDIter(size int, myrank topo.Rank) *RDIter {
	it := &RDIter{myrank: int(myrank), size: size}
	it.init()
	return it
}

func (it *RDIter) init() {
	nBase := cos.NextPow2LE(it.size)
	proxyNum := it.size - nBase
	maxIdx := cos.Ilog2(nBase)

	switch {
	case it.myrank < proxyNum*2 && it.myrank%2 == 0:
		it.role = RDExtra
		it.maxIdx = 2
	case it.myrank < proxyNum*2:
		it.role = RDProxy
		it.maxIdx = maxIdx + 2
		it.newRank = it.myrank >> 1
	default:
		it.role = RDBase
		it.maxIdx = maxIdx
		it.newRank = it.myrank - proxyNum
	}
	it.nBase = nBase
	it.proxyNum = proxyNum
	it.idx = 0
	it.update()
}

func (it *RDIter) update() {
	if it.idx == it.maxIdx {
		it.current = invalidRank
		return
	}
	switch it.role {
	case RDProxy:
		if it.idx == 0 || it.idx == it.maxIdx-1 {
			it.current = it.myrank - 1
		} else {
			nc := it.newRank ^ (1 << uint(it.idx-1))
			it.current = rdCoreToAbsolute(nc, it.proxyNum)
		}
	case RDBase:
		nc := it.newRank ^ (1 << uint(it.idx))
		it.current = rdCoreToAbsolute(nc, it.proxyNum)
	case RDExtra:
		it.current = it.myrank + 1
	}
}

func rdCoreToAbsolute(newRank, proxyNum int) int {
	if newRank < proxyNum {
		return newRank*2 + 1
	}
	return newRank + proxyNum
}

func (it *RDIter) Role() RDRole { return it.role }

// Peer returns the current step's partner, or InvalidRank once exhausted.
func (it *RDIter) Peer() topo.Rank {
	if it.current == invalidRank {
		return topo.InvalidRank
	}
	return topo.Rank(it.current)
}

func (it *RDIter) Next() {
	it.idx++
	it.update()
}

func (it *RDIter) Reset() {
	it.idx = 0
	it.update()
}

// Steps materializes every peer this rank exchanges with, in order.
func (it *RDIter) Steps() []topo.Rank {
	cp := *it
	cp.Reset()
	var out []topo.Rank
	for p := cp.Peer(); p != topo.InvalidRank; p = cp.Peer() {
		out = append(out, p)
		cp.Next()
	}
	return out
}
