package plan

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/topo"
)

func samplePlan(phases int) *Plan {
	p := &Plan{Kind: KindAllreduce, AlgorithmID: algo.ID(1), Phases: make([]Phase, phases)}
	for i := range p.Phases {
		p.Phases[i].StepIndex = i
	}
	p.StepCount = phases
	return p
}

func TestCacheMissThenHit(t *testing.T) {
	c := NewCache()
	require.Nil(t, c.Lookup(KindAllreduce, algo.ID(1), topo.InvalidRank, true))

	p := samplePlan(3)
	c.Store(KindAllreduce, algo.ID(1), topo.InvalidRank, true, p)
	got := c.Lookup(KindAllreduce, algo.ID(1), topo.InvalidRank, true)
	require.Same(t, p, got)
	require.Equal(t, 1, c.Len())
}

func TestCacheNeverStoresAlltoallv(t *testing.T) {
	c := NewCache()
	p := samplePlan(2)
	c.Store(KindAlltoallv, algo.ID(7), topo.InvalidRank, false, p)
	require.Equal(t, 0, c.Len())
	require.Nil(t, c.Lookup(KindAlltoallv, algo.ID(7), topo.InvalidRank, false))
}

func TestCacheKeyDistinguishesRoot(t *testing.T) {
	c := NewCache()
	p0 := samplePlan(1)
	p1 := samplePlan(1)
	c.Store(KindBcast, algo.ID(2), topo.Rank(0), true, p0)
	c.Store(KindBcast, algo.ID(2), topo.Rank(1), true, p1)
	require.Same(t, p0, c.Lookup(KindBcast, algo.ID(2), topo.Rank(0), true))
	require.Same(t, p1, c.Lookup(KindBcast, algo.ID(2), topo.Rank(1), true))
}

func TestOpPoolReusesBackingArray(t *testing.T) {
	p := samplePlan(4)
	pool := NewOpPool(p)

	op := pool.Get(CollArgs{Kind: KindAllreduce, Count: 16}, 0)
	require.Len(t, op.Steps, 4)
	require.Same(t, &p.Phases[2], op.Steps[2].Phase)

	pool.Put(op)
	op2 := pool.Get(CollArgs{Kind: KindAllreduce, Count: 32}, 1)
	require.Equal(t, uint8(1), op2.CollID)
	require.Len(t, op2.Steps, 4)
}

func TestCollectiveKindString(t *testing.T) {
	require.Equal(t, "allreduce", KindAllreduce.String())
	require.Equal(t, "alltoallv", KindAlltoallv.String())
}
