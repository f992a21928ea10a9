package algo

import "github.com/ucg-hpc/ucg/topo"

// PlummerStage names the three stages of a hierarchical alltoallv (spec
// §4.2.7), each itself a known plan composed from the primitives above.
type PlummerStage int

const (
	PlummerIntraGather PlummerStage = iota
	PlummerInterLeaders
	PlummerIntraScatter
)

// PlummerPlan precomputes the three stages' participant sets for one rank.
type PlummerPlan struct {
	IsNodeLeader bool
	NodeLeader   topo.Rank
	LocalPeers   []topo.Rank // intra-node gather/scatter fan-in/out set (excludes self)
	Leaders      []topo.Rank // inter-node alltoallv participant set (node leaders only)
}

// BuildPlummerPlan derives the three-stage participant sets from a group's
// topology: stage 1 gathers per-peer counts/buffers up to the node leader,
// stage 2 runs alltoallv among node leaders, stage 3 scatters results back
// down (spec §4.2.7).
func BuildPlummerPlan(nodeLeaders, localMembers []topo.Rank, myRank, myNodeLeader topo.Rank) PlummerPlan {
	isLeader := myRank == myNodeLeader
	var local []topo.Rank
	if isLeader {
		// Star topology: the leader's intra-node fan-in/out set is every
		// other rank sharing its node.
		local = make([]topo.Rank, 0, len(localMembers))
		for _, r := range localMembers {
			if r != myRank {
				local = append(local, r)
			}
		}
	} else {
		// A non-leader only ever talks to its own leader, never to sibling
		// non-leaders (spec §4.2.7's star-shaped intra-node stage).
		local = []topo.Rank{myNodeLeader}
	}
	return PlummerPlan{
		IsNodeLeader: isLeader,
		NodeLeader:   myNodeLeader,
		LocalPeers:   local,
		Leaders:      nodeLeaders,
	}
}

// AggregateCounts sums a per-peer send-count matrix down to per-node totals
// for the inter-leader alltoallv stage (stage 2 exchanges aggregated
// node-to-node byte counts, not per-rank ones).
func AggregateCounts(perPeerCounts []int, leaderOfRank func(topo.Rank) topo.Rank, leaders []topo.Rank) map[topo.Rank]int {
	totals := make(map[topo.Rank]int, len(leaders))
	for rank, cnt := range perPeerCounts {
		leader := leaderOfRank(topo.Rank(rank))
		totals[leader] += cnt
	}
	return totals
}
