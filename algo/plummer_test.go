package algo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/topo"
)

func TestBuildPlummerPlanLeaderExcludesSelf(t *testing.T) {
	leaders := []topo.Rank{0, 4}
	local := []topo.Rank{4, 5, 6, 7}
	p := BuildPlummerPlan(leaders, local, 4, 4)
	require.True(t, p.IsNodeLeader)
	require.NotContains(t, p.LocalPeers, topo.Rank(4))
	require.ElementsMatch(t, []topo.Rank{5, 6, 7}, p.LocalPeers)
	require.Equal(t, leaders, p.Leaders)
}

func TestBuildPlummerPlanNonLeader(t *testing.T) {
	leaders := []topo.Rank{0, 4}
	local := []topo.Rank{4, 5, 6, 7}
	p := BuildPlummerPlan(leaders, local, 6, 4)
	require.False(t, p.IsNodeLeader)
	require.Equal(t, topo.Rank(4), p.NodeLeader)
}

func TestAggregateCountsSumsPerLeader(t *testing.T) {
	leaderOf := func(r topo.Rank) topo.Rank {
		if r < 4 {
			return 0
		}
		return 4
	}
	counts := []int{10, 20, 30, 40, 1, 2, 3, 4}
	totals := AggregateCounts(counts, leaderOf, []topo.Rank{0, 4})
	require.Equal(t, 100, totals[0])
	require.Equal(t, 10, totals[4])
}
