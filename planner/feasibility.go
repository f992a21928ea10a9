package planner

import (
	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/dtype"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/reduceop"
	"github.com/ucg-hpc/ucg/topo"
)

// FeasibilityInput bundles everything a check needs to decide whether an
// algorithm id is usable for one invocation (spec §4.4).
type FeasibilityInput struct {
	Kind          plan.CollectiveKind
	Topology      *topo.Topology
	Datatype      dtype.Datatype
	ReduceOp      *reduceop.Op
	BindToNone    bool
	NAPSupported  bool
	INCAvailable  bool
	InPlace       bool
	InPlaceOK     bool
	PhaseSegReq   bool
	DtypeThreshold int // spec: "dtype-exceeds-threshold (32B)"
}

// Check is one named feasibility rule (spec §4.4 names 16 of them). It
// reports whether it fires for the given algorithm id under in, and if so
// the deterministic fallback id to replace it with.
type Check struct {
	Name     string
	Fires    func(id algo.ID, in FeasibilityInput) bool
	Fallback func(id algo.ID, in FeasibilityInput) algo.ID
}

func hasAlgo(id algo.ID, known func(algo.ID) bool) bool { return known(id) }

// DefaultChecks returns the fixed, build-time-ordered check list named in
// spec §4.4, each edge encoding one deterministic fallback target.
func DefaultChecks(known func(algo.ID) bool) []Check {
	toRD := func(algo.ID, FeasibilityInput) algo.ID { return algo.AlgoAllreduceRD }
	toRing := func(algo.ID, FeasibilityInput) algo.ID { return algo.AlgoAllreduceRing }
	toKNTree := func(algo.ID, FeasibilityInput) algo.ID { return algo.AlgoAllreduceKNTree }
	toLadd := func(algo.ID, FeasibilityInput) algo.ID { return algo.AlgoAlltoallvLadd }

	return []Check{
		{
			Name:  "algo-missing",
			Fires: func(id algo.ID, in FeasibilityInput) bool { return !known(id) },
			Fallback: func(id algo.ID, in FeasibilityInput) algo.ID {
				return defaultForKind(in.Kind)
			},
		},
		{
			Name: "non-contig-dt",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return !in.Datatype.Contiguous && id == algo.AlgoAllreduceRabenseifner
			},
			Fallback: toRD,
		},
		{
			Name: "non-commutative",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return in.ReduceOp != nil && !in.ReduceOp.Commutative &&
					(id == algo.AlgoAllreduceRabenseifner || id == algo.AlgoAllreduceRing)
			},
			Fallback: toKNTree,
		},
		{
			Name: "NAP-unsupported",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return !in.NAPSupported && id == algo.AlgoAllreduceRing
			},
			Fallback: toRD,
		},
		{
			Name: "Rabenseifner-unsupported",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return id == algo.AlgoAllreduceRabenseifner && in.Topology.Size() < 2
			},
			Fallback: toRD,
		},
		{
			Name: "node-aware-Raben-unsupported",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return id == algo.AlgoAllreduceRabenseifner && in.Topology.Flags().NRankUncontinue
			},
			Fallback: toRD,
		},
		{
			Name: "socket-aware-Raben-unsupported",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return id == algo.AlgoAllreduceRabenseifner && in.Topology.Flags().SRankUncontinue
			},
			Fallback: toRD,
		},
		{
			Name: "bind-to-none",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return in.BindToNone && id == algo.AlgoAllreduceRabenseifner
			},
			Fallback: toRD,
		},
		{
			Name: "ppn-unbalanced",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return in.Topology.Flags().PPNUnbalance && id == algo.AlgoAllreduceRabenseifner
			},
			Fallback: toRing,
		},
		{
			Name: "node-ranks-noncontiguous",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return in.Topology.Flags().NRankUncontinue && id == algo.AlgoAlltoallvPlummer
			},
			Fallback: toLadd,
		},
		{
			Name: "pps-unbalanced",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return in.Topology.Flags().PPSUnbalance && id == algo.AlgoAllreduceRabenseifner
			},
			Fallback: toRing,
		},
		{
			Name: "socket-ranks-noncontiguous",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return in.Topology.Flags().SRankUncontinue && id == algo.AlgoAlltoallvPlummer
			},
			Fallback: toLadd,
		},
		{
			Name: "dtype-exceeds-threshold",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				thresh := in.DtypeThreshold
				if thresh == 0 {
					thresh = 32
				}
				return in.Datatype.ExceedsThreshold(thresh) && id == algo.AlgoAllreduceRabenseifner
			},
			Fallback: toRD,
		},
		{
			Name: "phase-segmentation-required",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return in.PhaseSegReq && id == algo.AlgoAllreduceRing
			},
			Fallback: toRD,
		},
		{
			Name: "INC-unavailable",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return !in.INCAvailable && id == algo.AlgoAllreduceKNTree && in.ReduceOp == nil
			},
			Fallback: toRD,
		},
		{
			Name: "in-place-unsupported",
			Fires: func(id algo.ID, in FeasibilityInput) bool {
				return in.InPlace && !in.InPlaceOK && id == algo.AlgoAllreduceRabenseifner
			},
			Fallback: toRD,
		},
	}
}

func defaultForKind(k plan.CollectiveKind) algo.ID {
	switch k {
	case plan.KindBarrier:
		return algo.AlgoBarrierKNTree
	case plan.KindBcast:
		return algo.AlgoBcastKNTree
	case plan.KindReduce:
		return algo.AlgoReduceKNTree
	case plan.KindAllreduce:
		return algo.AlgoAllreduceRD
	case plan.KindScatterv:
		return algo.AlgoScattervKNTree
	case plan.KindGatherv:
		return algo.AlgoGathervKNTree
	case plan.KindAllgatherv:
		return algo.AlgoAllgathervRecursive
	case plan.KindAlltoallv:
		return algo.AlgoAlltoallvLadd
	default:
		return algo.AlgoAuto
	}
}

// ResolveFeasible repeatedly applies the check list until no check fires
// (a fixed point), or bails out after maxIters to guarantee termination even
// if two checks were to form a fallback cycle (spec §4.4: "the loop is
// repeated until a fixed point is reached").
func ResolveFeasible(start algo.ID, in FeasibilityInput, checks []Check, maxIters int) (algo.ID, []string) {
	id := start
	var fired []string
	for iter := 0; iter < maxIters; iter++ {
		changed := false
		for _, c := range checks {
			if c.Fires(id, in) {
				next := c.Fallback(id, in)
				if next != id {
					fired = append(fired, c.Name)
					id = next
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}
	return id, fired
}
