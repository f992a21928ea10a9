package topo

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func threeNodesTwoPPN() []Location {
	// 3 nodes, 2 ranks/node, 1 socket/node: ranks 0,1 on node0; 2,3 on node1; 4,5 on node2.
	return []Location{
		{NodeIdx: 0, SocketIdx: 0},
		{NodeIdx: 0, SocketIdx: 0},
		{NodeIdx: 1, SocketIdx: 0},
		{NodeIdx: 1, SocketIdx: 0},
		{NodeIdx: 2, SocketIdx: 0},
		{NodeIdx: 2, SocketIdx: 0},
	}
}

func TestTopologyDerivation(t *testing.T) {
	locs := threeNodesTwoPPN()
	tp := New(locs, 2, BalanceFlags{})

	require.Equal(t, 6, tp.Size())
	require.Equal(t, 3, tp.NodeCount())
	require.Equal(t, 2, tp.NumLocalProcs())
	require.Equal(t, 2, tp.PPS())
	require.Equal(t, 1, tp.LocalSocketCount())
	require.ElementsMatch(t, []Rank{2, 3}, tp.LocalMembers())
	require.ElementsMatch(t, []Rank{0, 2, 4}, tp.NodeLeaders())
}

func TestTopologyDistance(t *testing.T) {
	locs := threeNodesTwoPPN()
	tp := New(locs, 0, BalanceFlags{})

	require.Equal(t, DistSelf, tp.DistanceTo(0))
	require.Equal(t, DistSocket, tp.DistanceTo(1))
	// rank 2 is on another node but at the same socket index (0)
	require.Equal(t, DistSocketRemote, tp.DistanceTo(2))
}

func TestRankMapRoundtrip(t *testing.T) {
	rm := NewRankMap([]Rank{0, 2, 4})
	require.Equal(t, Rank(4), rm.Eval(2))
	require.Equal(t, InvalidRank, rm.Eval(9))
	require.Equal(t, 2, rm.Invert(4))
	require.Equal(t, -1, rm.Invert(7))
}
