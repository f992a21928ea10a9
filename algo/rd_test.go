package algo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/topo"
)

func TestRDIterPowerOfTwoIsPureCore(t *testing.T) {
	const size = 8
	for r := topo.Rank(0); r < size; r++ {
		it := NewRDIter(size, r)
		require.Equal(t, RDBase, it.Role())
		steps := it.Steps()
		require.Len(t, steps, 3) // log2(8)
	}
}

func TestRDIterNonPowerOfTwoPartition(t *testing.T) {
	const size = 7 // n_base=4, proxy_num=3: ranks 0-5 are extra/proxy pairs, rank 6 is base
	roles := map[RDRole]int{}
	for r := topo.Rank(0); r < size; r++ {
		it := NewRDIter(size, r)
		roles[it.Role()]++
	}
	require.Equal(t, 3, roles[RDExtra]) // ranks 0,2,4
	require.Equal(t, 3, roles[RDProxy]) // ranks 1,3,5
	require.Equal(t, 1, roles[RDBase])  // rank 6
}

func TestRDIterMutualPeers(t *testing.T) {
	const size = 7
	for r := topo.Rank(0); r < size; r++ {
		it := NewRDIter(size, r)
		if it.Role() == RDExtra {
			peer := it.Peer()
			require.Equal(t, r+1, peer)
			require.Equal(t, r, NewRDIter(size, peer).Peer())
		}
	}
}
