package algo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/topo"
)

func TestRingBlocksCoverage(t *testing.T) {
	blocks := RingBlocks(10, 3)
	require.Equal(t, []int{4, 3, 3}, blocks)
	sum := 0
	for _, b := range blocks {
		sum += b
	}
	require.Equal(t, 10, sum)
}

func TestRingIterRotation(t *testing.T) {
	const p = 4
	it := NewRingIter(p, 1)
	require.Equal(t, topo.Rank(0), it.Left())
	require.Equal(t, topo.Rank(2), it.Right())

	// every rank's reduce-scatter recv at step s is some other rank's send
	// at step s, forming a permutation across the ring each step.
	for s := 0; s < p-1; s++ {
		seen := map[int]bool{}
		for r := 0; r < p; r++ {
			b := NewRingIter(p, topo.Rank(r)).SendBlockReduceScatter(s)
			require.False(t, seen[b])
			seen[b] = true
		}
	}
}
