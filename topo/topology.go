// Package topo implements the engine's topology discovery and rank-map
// (spec §4.1): a per-rank (node, socket) location array, derived leader
// sets, a distance predicate, and the logical<->absolute rank translation
// that sub-group plan builders (node leaders, socket leaders) need.
package topo

import "github.com/ucg-hpc/ucg/internal/cmn/debug"

// Rank is a non-negative absolute identifier within a context (spec §3).
type Rank int32

const InvalidRank Rank = -1

// Distance classifies a rank pair's topological proximity (spec §3).
type Distance int

const (
	DistSelf Distance = iota
	DistSocket
	DistL3
	DistHost
	DistSocketRemote
	DistHostRemote
)

// Location is one rank's (node, socket) placement.
type Location struct {
	NodeIdx   int32
	SocketIdx int32
}

// BalanceFlags are provided by the bootstrap collaborator (spec §4.1) and
// consumed by the feasibility checker (spec §4.4).
type BalanceFlags struct {
	PPNUnbalance     bool
	PPSUnbalance     bool
	NRankUncontinue  bool
	SRankUncontinue  bool
}

// Topology is immutable for the lifetime of the owning Group (spec §3
// invariant). It is derived from the bootstrap's flat node_index/socket_index
// arrays in one linear pass (spec §4.1).
type Topology struct {
	size    int
	myRank  Rank
	locs    []Location // indexed by member index (= group rank)
	flags   BalanceFlags

	numLocalProcs int // ranks sharing my node
	nodeCnt       int // distinct node ids
	pps           int // ranks sharing my node AND my socket
	localSocketCnt int

	localMembers   []Rank // ranks sharing my node
	socketMembers  []Rank // ranks sharing my node and socket
	nodeLeaders    []Rank // lowest-indexed rank per node, in node order of first appearance
	socketLeaders  []Rank // lowest-indexed rank per (node,socket), in order of first appearance
}

// New derives a Topology from flat per-rank location arrays in one linear
// pass (spec §4.1). myRank must be in [0, len(locs)).
func New(locs []Location, myRank Rank, flags BalanceFlags) *Topology {
	debug.Assertf(int(myRank) >= 0 && int(myRank) < len(locs), "myRank out of range")
	t := &Topology{
		size:   len(locs),
		myRank: myRank,
		locs:   append([]Location(nil), locs...),
		flags:  flags,
	}
	t.derive()
	return t
}

func (t *Topology) derive() {
	myLoc := t.locs[t.myRank]

	nodeSeen := make(map[int32]bool)
	nodeLeaderOf := make(map[int32]Rank)
	socketSeen := make(map[[2]int32]bool)
	socketLeaderOf := make(map[[2]int32]Rank)

	for r, loc := range t.locs {
		rank := Rank(r)
		if !nodeSeen[loc.NodeIdx] {
			nodeSeen[loc.NodeIdx] = true
			nodeLeaderOf[loc.NodeIdx] = rank
			t.nodeLeaders = append(t.nodeLeaders, rank)
		}
		key := [2]int32{loc.NodeIdx, loc.SocketIdx}
		if !socketSeen[key] {
			socketSeen[key] = true
			socketLeaderOf[key] = rank
			t.socketLeaders = append(t.socketLeaders, rank)
		}
		if loc.NodeIdx == myLoc.NodeIdx {
			t.localMembers = append(t.localMembers, rank)
			if loc.SocketIdx == myLoc.SocketIdx {
				t.socketMembers = append(t.socketMembers, rank)
			}
		}
	}
	t.numLocalProcs = len(t.localMembers)
	t.nodeCnt = len(nodeSeen)
	t.pps = len(t.socketMembers)
	if t.pps > 0 {
		t.localSocketCnt = t.numLocalProcs / t.pps
	}
}

func (t *Topology) Size() int          { return t.size }
func (t *Topology) MyRank() Rank       { return t.myRank }
func (t *Topology) Location(r Rank) Location {
	return t.locs[r]
}
func (t *Topology) Flags() BalanceFlags { return t.flags }

func (t *Topology) NumLocalProcs() int   { return t.numLocalProcs }
func (t *Topology) NodeCount() int       { return t.nodeCnt }
func (t *Topology) PPS() int             { return t.pps }
func (t *Topology) LocalSocketCount() int { return t.localSocketCnt }

func (t *Topology) LocalMembers() []Rank  { return t.localMembers }
func (t *Topology) SocketMembers() []Rank { return t.socketMembers }
func (t *Topology) NodeLeaders() []Rank   { return t.nodeLeaders }
func (t *Topology) SocketLeaders() []Rank { return t.socketLeaders }

// DistanceTo classifies the distance from t.myRank to other (spec §3). Same
// node/same socket is SOCKET; same node/different socket is L3 (shared
// last-level cache domain, no cross-node hop); different node keeps the
// socket-index comparison to distinguish a "mirrored" placement
// (SOCKET-REMOTE, e.g. symmetric rank layout across nodes) from a fully
// asymmetric one (HOST-REMOTE). HOST itself (same node, no shared socket
// grouping) only arises when socket indices are not tracked for a rank
// pair; this topology always has socket indices, so HOST is unreachable
// here and is kept in the enum for collaborators that model coarser
// topologies.
func (t *Topology) DistanceTo(other Rank) Distance {
	if other == t.myRank {
		return DistSelf
	}
	me, you := t.locs[t.myRank], t.locs[other]
	switch {
	case me.NodeIdx == you.NodeIdx && me.SocketIdx == you.SocketIdx:
		return DistSocket
	case me.NodeIdx == you.NodeIdx:
		return DistL3
	case me.SocketIdx == you.SocketIdx:
		return DistSocketRemote
	default:
		return DistHostRemote
	}
}
