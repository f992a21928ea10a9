package planner_test

import (
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"

	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/dtype"
	"github.com/ucg-hpc/ucg/internal/cfg"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/planner"
	"github.com/ucg-hpc/ucg/reduceop"
	"github.com/ucg-hpc/ucg/topo"
)

var nonCommuteOp = reduceop.Op{Name: "noncommute", Commutative: false}

type fakeConnector struct{}

func (fakeConnector) Connect(r topo.Rank) (topo.Endpoint, topo.EndpointCaps, error) {
	return r, topo.EndpointCaps{MaxShort: 256, MaxBcopy: 32 << 10, MaxZcopy: 1 << 20, MaxReg: 1 << 20}, nil
}

func makeGroup(size int, me topo.Rank) *topo.Group {
	locs := make([]topo.Location, size)
	for i := range locs {
		locs[i] = topo.Location{NodeIdx: int32(i / 4), SocketIdx: int32((i / 2) % 2)}
	}
	tp := topo.New(locs, me, topo.BalanceFlags{})
	return topo.NewGroup(tp, fakeConnector{})
}

var _ = Describe("Selection table", func() {
	It("buckets message size monotonically", func() {
		Expect(planner.BucketSize(1)).To(Equal(planner.Size4B))
		Expect(planner.BucketSize(5)).To(Equal(planner.Size8B))
		Expect(planner.BucketSize(1 << 21)).To(Equal(planner.SizeOverflow))
	})

	It("honors an override over the bucketed entry", func() {
		tbl := planner.NewTable(plan.KindAllreduce, algo.AlgoAllreduceRD)
		tbl.Set(planner.Size1MB, planner.PPN64, planner.Nodes32, algo.AlgoAllreduceRabenseifner)
		Expect(tbl.Select(algo.AlgoAllreduceRing, 1<<21, 64, 32)).To(Equal(algo.AlgoAllreduceRing))
		Expect(tbl.Select(algo.AlgoAuto, 1<<20, 64, 32)).To(Equal(algo.AlgoAllreduceRabenseifner))
	})

	It("falls back to the table default when no entry matches", func() {
		tbl := planner.NewTable(plan.KindBarrier, algo.AlgoBarrierKNTree)
		Expect(tbl.Select(algo.AlgoAuto, 4, 4, 4)).To(Equal(algo.AlgoBarrierKNTree))
	})
})

var _ = Describe("Feasibility resolution", func() {
	It("falls an unknown algorithm id back to the kind's default", func() {
		known := func(algo.ID) bool { return false }
		checks := planner.DefaultChecks(known)
		in := planner.FeasibilityInput{Kind: plan.KindAllreduce, Topology: makeGroup(4, 0).Topology()}
		id, fired := planner.ResolveFeasible(algo.AlgoAllreduceRabenseifner, in, checks, 8)
		Expect(id).To(Equal(algo.AlgoAllreduceRD))
		Expect(fired).To(ContainElement("algo-missing"))
	})

	It("routes a non-commutative reduce off Rabenseifner", func() {
		known := func(algo.ID) bool { return true }
		checks := planner.DefaultChecks(known)
		in := planner.FeasibilityInput{
			Kind: plan.KindAllreduce, Topology: makeGroup(8, 0).Topology(),
			ReduceOp: &nonCommuteOp,
		}
		id, fired := planner.ResolveFeasible(algo.AlgoAllreduceRabenseifner, in, checks, 8)
		Expect(id).To(Equal(algo.AlgoAllreduceKNTree))
		Expect(fired).NotTo(BeEmpty())
	})

	It("reaches a fixed point without oscillating", func() {
		known := func(algo.ID) bool { return true }
		checks := planner.DefaultChecks(known)
		in := planner.FeasibilityInput{Kind: plan.KindAllreduce, Topology: makeGroup(8, 0).Topology()}
		id, _ := planner.ResolveFeasible(algo.AlgoAllreduceRD, in, checks, 8)
		Expect(id).To(Equal(algo.AlgoAllreduceRD))
	})
})

var _ = Describe("Planner.BuildPlan", func() {
	It("builds and caches a barrier plan for every rank in a group of 4", func() {
		p := planner.New(cfg.Default())
		cache := plan.NewCache()
		for r := topo.Rank(0); r < 4; r++ {
			g := makeGroup(4, r)
			built, err := p.BuildPlan(cache, g, plan.KindBarrier, plan.CollArgs{Kind: plan.KindBarrier}, dtype.Predefined(dtype.KindInt32), nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(built.PhaseCount()).To(BeNumerically(">", 0))
		}
	})

	It("never caches an alltoallv plan", func() {
		p := planner.New(cfg.Default())
		cache := plan.NewCache()
		g := makeGroup(8, 0)
		args := plan.CollArgs{Kind: plan.KindAlltoallv, Count: 16}
		_, err := p.BuildPlan(cache, g, plan.KindAlltoallv, args, dtype.Predefined(dtype.KindInt32), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(cache.Len()).To(Equal(0))
	})

	It("builds a Rabenseifner allreduce plan for a power-of-two group", func() {
		p := planner.New(cfg.Default())
		cache := plan.NewCache()
		g := makeGroup(8, 3)
		c := cfg.Default()
		c.AllreduceAlgorithm = int(algo.AlgoAllreduceRabenseifner)
		p = planner.New(c)
		args := plan.CollArgs{Kind: plan.KindAllreduce, Count: 1024}
		built, err := p.BuildPlan(cache, g, plan.KindAllreduce, args, dtype.Predefined(dtype.KindFloat32), nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(built.AlgorithmID).To(Equal(algo.AlgoAllreduceRabenseifner))
		Expect(built.PhaseCount()).To(BeNumerically(">", 0))
	})
})
