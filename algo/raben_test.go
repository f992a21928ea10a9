package algo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/topo"
)

func TestRHIterPartition(t *testing.T) {
	const size = 7 // adjust=4; ranks 0,1,2 are BASE|PROXY (size-adjust=3); rank3 BASE; 4,5,6 EXTRA
	for r := topo.Rank(0); r < size; r++ {
		it := NewRHIter(size, r)
		switch {
		case r < 3:
			require.Equal(t, RHBase|RHProxy, it.Type())
			require.Equal(t, r+4, it.Extra())
		case r == 3:
			require.Equal(t, RHBase, it.Type())
			require.Equal(t, topo.InvalidRank, it.Extra())
		default:
			require.Equal(t, RHExtra, it.Type())
			require.Equal(t, r-4, it.Proxy())
		}
	}
}

func TestRHIterCoreStepsMutual(t *testing.T) {
	const size = 8
	all := make([][]topo.Rank, size)
	for r := topo.Rank(0); r < size; r++ {
		it := NewRHIter(size, r)
		var steps []topo.Rank
		for p := it.NextBase(); p != topo.InvalidRank; p = it.NextBase() {
			steps = append(steps, p)
		}
		require.Len(t, steps, 3)
		all[r] = steps
	}
	// at every step, r's peer names r back as its own peer
	for r := topo.Rank(0); r < size; r++ {
		for s, p := range all[r] {
			require.Equal(t, r, all[p][s])
		}
	}
}

func TestReduceScatterBlocksCoverWithoutGap(t *testing.T) {
	const count, adjustSize = 16, 4
	// step 0: two halves of the full group, each spanning count/2
	seen := make([]bool, count)
	for v := 0; v < adjustSize; v++ {
		bp := ReduceScatterBlocks(count, adjustSize, v, 0)
		for i := bp.StartBlock; i < bp.StartBlock+bp.NumBlocks; i++ {
			seen[i] = true
		}
	}
	for i, ok := range seen {
		require.True(t, ok, "block %d never covered", i)
	}
}
