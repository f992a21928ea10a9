package algo

import (
	"github.com/ucg-hpc/ucg/internal/cmn/cos"
	"github.com/ucg-hpc/ucg/topo"
)

// RHRankType is a bitmask classifying which half of a Rabenseifner
// reduce-scatter/allgather a rank participates in, ported from
// original_source's src/util/algo/ucg_rh.c.
type RHRankType int

const (
	RHBase  RHRankType = 1 << iota // rank < adjusted (power-of-two) group size
	RHProxy                        // a BASE rank that additionally proxies for one EXTRA rank
	RHExtra                        // rank >= adjusted group size: only exchanges with its proxy
)

// RHIter drives the pre/recursive/post exchange diagrammed in spec §4.2.3
// and ucg_rh.c's header comment: EXTRA ranks hand off to (and receive back
// from) their proxy; BASE ranks run recursive halving among themselves,
// with PROXY ranks carrying the EXTRA ranks' contributions along for the
// ride.
type RHIter struct {
	myRank, adjustSize, maxIter int
	myType                      RHRankType
	iteration                   int
}

func NewRHIter(groupSize int, myRank topo.Rank) *RHIter {
	adjust := cos.NextPow2LE(groupSize)
	it := &RHIter{
		myRank:     int(myRank),
		adjustSize: adjust,
		maxIter:    cos.Ilog2(adjust),
	}
	switch {
	case it.myRank < adjust && it.myRank < groupSize-adjust:
		it.myType = RHBase | RHProxy
	case it.myRank < adjust:
		it.myType = RHBase
	default:
		it.myType = RHExtra
	}
	return it
}

func (it *RHIter) Type() RHRankType { return it.myType }

// Extra returns the EXTRA-rank peer this PROXY exchanges with, or
// InvalidRank if this rank is not a proxy.
func (it *RHIter) Extra() topo.Rank {
	if it.myType&RHProxy == 0 {
		return topo.InvalidRank
	}
	return topo.Rank(it.myRank + it.adjustSize)
}

// Proxy returns the BASE-rank peer this EXTRA rank exchanges with, or
// InvalidRank if this rank is not EXTRA.
func (it *RHIter) Proxy() topo.Rank {
	if it.myType&RHExtra == 0 {
		return topo.InvalidRank
	}
	return topo.Rank(it.myRank - it.adjustSize)
}

// NextBase returns the peer for the next recursive-halving core step among
// BASE ranks, or InvalidRank once all maxIter steps have run.
func (it *RHIter) NextBase() topo.Rank {
	if it.myType&RHBase == 0 || it.iteration >= it.maxIter {
		return topo.InvalidRank
	}
	peer := it.myRank ^ (1 << uint(it.maxIter-it.iteration-1))
	it.iteration++
	return topo.Rank(peer)
}

func (it *RHIter) ResetBase() { it.iteration = 0 }

// BlockPlan describes one reduce-scatter/allgather step's block range,
// computed lazily from the live element count (spec §4.2.3's "phase init
// callback", spec §9's "phase view" design note). step counts from 0 at the
// first (largest-span) halving.
type BlockPlan struct {
	StartBlock int
	NumBlocks  int
	PeerStartBlock int
	PeerNumBlocks  int
}

// ReduceScatterBlocks computes, for BASE rank myVRank among adjustSize
// power-of-two peers at halving step, which contiguous block range it keeps
// versus sends away. count is the total element count (only defined when
// count >= adjustSize, spec §4.2.3's "count >= p" precondition).
func ReduceScatterBlocks(count, adjustSize, myVRank, step int) BlockPlan {
	// At step s (0-indexed), the active span halves s+1 times; rank keeps
	// the half matching its bit at position (maxIter-1-s).
	span := adjustSize >> uint(step)
	half := span / 2
	base := myVRank &^ (span - 1)
	lowHalf := (myVRank & (span - 1)) < half
	blockBase := count * base / adjustSize
	blockSpan := count*(base+span)/adjustSize - blockBase
	mid := blockBase + blockSpan/2
	if lowHalf {
		return BlockPlan{
			StartBlock: blockBase, NumBlocks: mid - blockBase,
			PeerStartBlock: mid, PeerNumBlocks: blockBase + blockSpan - mid,
		}
	}
	return BlockPlan{
		StartBlock: mid, NumBlocks: blockBase + blockSpan - mid,
		PeerStartBlock: blockBase, PeerNumBlocks: mid - blockBase,
	}
}
