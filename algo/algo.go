// Package algo is the collective-algorithm library (spec §4.2): pure
// functions of (topology, coll args, config) that append phases to a plan.
// Each file here is grounded on one file of the original C source
// (_examples/original_source/src/util/algo/*.c, builtin/plan/builtin_trees.c).
package algo

import "github.com/ucg-hpc/ucg/topo"

// Method tags the executable role of a phase (spec §4.2 table). Using a tag
// the executor switches on, rather than per-role virtual dispatch, follows
// spec §9's design note: phase-array cache locality matters, and a sum type
// is cheaper than an interface per phase.
type Method int

const (
	SendTerminal Method = iota
	RecvTerminal
	BcastWaypoint
	GatherWaypoint
	ScatterTerminal
	ScatterWaypoint
	ReduceTerminal
	ReduceWaypoint
	ReduceRecursive
	ReduceScatterRecursive
	AllgatherRecursive
	AllgatherBruck
	AlltoallBruck
	ReduceScatterRing
	AllgatherRing
	Exchange
	AlltoallvLadd
	AlltoallvPlummer
)

// FeatureFlag marks optional algorithm capabilities the feasibility checker
// consults (spec §4.2.3: "operator is commutative" requirement on
// Rabenseifner, spec §4.4's SUPPORT_NON_COMMUTATIVE gate).
type FeatureFlag int

const (
	FeatureNone               FeatureFlag = 0
	FeatureSupportNonCommute  FeatureFlag = 1 << iota
	FeatureRequiresContig
	FeatureRequiresCountGEp
)

// ID identifies one algorithm within one collective kind's namespace (spec
// §4.3: builder lookup key is (kind, algo-id)).
type ID int

const (
	AlgoAuto ID = 0

	AlgoBarrierKNTree ID = iota
	AlgoBcastKNTree
	AlgoBcastRing
	AlgoReduceKNTree
	AlgoReduceRecursive
	AlgoAllreduceRD
	AlgoAllreduceRing
	AlgoAllreduceRabenseifner
	AlgoAllreduceKNTree
	AlgoScattervKNTree
	AlgoScattervLinear
	AlgoGathervKNTree
	AlgoGathervLinear
	AlgoAllgathervRecursive
	AlgoAllgathervRing
	AlgoAllgathervBruck
	AlgoAlltoallvLadd
	AlgoAlltoallvPlummer
)

// Peer is one resolved communication partner in a phase.
type Peer struct {
	Rank topo.Rank
	Ep   topo.Endpoint
	Caps topo.EndpointCaps
}
