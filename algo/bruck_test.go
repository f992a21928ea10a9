package algo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/topo"
)

func TestBruckStepsIsCeilLog2(t *testing.T) {
	require.Equal(t, 3, BruckSteps(8))
	require.Equal(t, 3, BruckSteps(5))
	require.Equal(t, 0, BruckSteps(1))
}

func TestBruckPeersDistanceDoubles(t *testing.T) {
	const p = 8
	for step := 0; step < BruckSteps(p); step++ {
		sendTo, recvFrom := BruckPeers(p, 2, step)
		require.Equal(t, mod(2-(1<<uint(step)), p), int(sendTo))
		require.Equal(t, mod(2+(1<<uint(step)), p), int(recvFrom))
	}
}

func TestBruckSendsBlockMatchesDistanceBit(t *testing.T) {
	const p = 8
	rank := topo.Rank(1)
	for origin := topo.Rank(0); origin < p; origin++ {
		dist := mod(int(origin)-int(rank), p)
		for step := 0; step < BruckSteps(p); step++ {
			want := dist&(1<<uint(step)) != 0
			require.Equal(t, want, BruckSendsBlock(rank, origin, p, step))
		}
	}
}

func TestPackedRankIsSelfInverse(t *testing.T) {
	const p = 6
	rank, origin := topo.Rank(4), topo.Rank(1)
	packed := PackedRank(rank, origin, p)
	require.Equal(t, origin, topo.Rank(mod(int(rank)+packed, p)))
}
