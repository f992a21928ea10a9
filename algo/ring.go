package algo

import "github.com/ucg-hpc/ucg/topo"

// RingBlocks splits count elements into p contiguous blocks, spreading the
// remainder one-extra-each over the lowest (count mod p) blocks (spec
// §4.2.4). Returns the per-block element counts in rank order.
func RingBlocks(count, p int) []int {
	base := count / p
	rem := count % p
	blocks := make([]int, p)
	for i := range blocks {
		blocks[i] = base
		if i < rem {
			blocks[i]++
		}
	}
	return blocks
}

// RingOffsets returns the starting element offset of each block, consistent
// with RingBlocks' sizes.
func RingOffsets(blocks []int) []int {
	offs := make([]int, len(blocks))
	sum := 0
	for i, b := range blocks {
		offs[i] = sum
		sum += b
	}
	return offs
}

// RingIter drives the p-1 reduce-scatter rotations and the p-1 allgather
// rotations of a ring allreduce (spec §4.2.4). At step s the rank sends
// block (me-s) mod p to its right neighbor and receives block
// (me-s-1) mod p from its left neighbor.
type RingIter struct {
	me, p, step int
}

func NewRingIter(p int, me topo.Rank) *RingIter {
	return &RingIter{me: int(me), p: p}
}

func (it *RingIter) Left() topo.Rank  { return topo.Rank((it.me - 1 + it.p) % it.p) }
func (it *RingIter) Right() topo.Rank { return topo.Rank((it.me + 1) % it.p) }

// SendBlockReduceScatter returns the block index this rank sends at the
// given 0-indexed reduce-scatter step.
func (it *RingIter) SendBlockReduceScatter(step int) int {
	return mod(it.me-step, it.p)
}

// RecvBlockReduceScatter returns the block index this rank receives (and
// reduces locally) at the given reduce-scatter step.
func (it *RingIter) RecvBlockReduceScatter(step int) int {
	return mod(it.me-step-1, it.p)
}

// SendBlockAllgather / RecvBlockAllgather give the block indices for the
// allgather phase that follows the reduce-scatter. The allgather keeps the
// reduce-scatter's direction (data still moves to the right neighbor), one
// block ahead of the reduce-scatter index: at step s a rank sends block
// me-s+1 and receives block me-s. The rotation is not reversed for the
// allgather phase.
func (it *RingIter) SendBlockAllgather(step int) int {
	return mod(it.me-step+1, it.p)
}

func (it *RingIter) RecvBlockAllgather(step int) int {
	return mod(it.me-step, it.p)
}

func mod(a, p int) int {
	m := a % p
	if m < 0 {
		m += p
	}
	return m
}
