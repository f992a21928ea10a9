package algo

import "github.com/ucg-hpc/ucg/topo"

// BruckSteps returns log2(p) rounded up to the next power of two's
// exponent: the number of Bruck rounds for a group of size p (spec §4.2.5).
func BruckSteps(p int) int {
	n := 0
	for (1 << uint(n)) < p {
		n++
	}
	return n
}

// BruckPeers returns the (send-to, recv-from) pair for step s of a Bruck
// exchange: send to rank-2^s, receive from rank+2^s (mod p).
func BruckPeers(p int, rank topo.Rank, step int) (sendTo, recvFrom topo.Rank) {
	d := 1 << uint(step)
	sendTo = topo.Rank(mod(int(rank)-d, p))
	recvFrom = topo.Rank(mod(int(rank)+d, p))
	return
}

// BruckSendsBlock reports whether, at step s, the block originally owned by
// srcRank (relative to this rank, i.e. the block index in the Bruck
// "rotated" numbering) must be included in this step's send — true iff bit
// s of that block's distance from rank is set (spec §4.2.5: "data block
// discretization computed by popcount patterns").
func BruckSendsBlock(rank topo.Rank, blockOriginRank topo.Rank, p, step int) bool {
	dist := mod(int(blockOriginRank)-int(rank), p)
	return dist&(1<<uint(step)) != 0
}

// PackedRank computes the Bruck "packed_rank" extra field (spec §3): the
// rotated index of originRank relative to rank, used to address a block
// inside the single rotated send/recv buffer each Bruck step exchanges.
func PackedRank(rank, originRank topo.Rank, p int) int {
	return mod(int(originRank)-int(rank), p)
}
