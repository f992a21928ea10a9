package exec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/topo"
	"github.com/ucg-hpc/ucg/transport"
)

func twoRankBarrierPlan() *plan.Plan {
	return &plan.Plan{
		Kind: plan.KindBarrier, AlgorithmID: algo.AlgoBarrierKNTree,
		Phases: []plan.Phase{{
			StepIndex: 0, Method: algo.Exchange,
			EPCountTotal: 1, EPCountSend: 1, EPCountRecv: 1,
		}},
		StepCount: 1,
	}
}

func TestExecutorCompletesAFullRoundTrip(t *testing.T) {
	lb := transport.NewLoopback(topo.EndpointCaps{MaxShort: 256})

	p0 := twoRankBarrierPlan()
	p1 := twoRankBarrierPlan()

	locs := []topo.Location{{NodeIdx: 0, SocketIdx: 0}, {NodeIdx: 0, SocketIdx: 0}}
	t0 := topo.New(locs, 0, topo.BalanceFlags{})
	t1 := topo.New(locs, 1, topo.BalanceFlags{})
	g0 := topo.NewGroup(t0, lb)
	g1 := topo.NewGroup(t1, lb)

	e0 := NewExecutor(1, g0, lb, nil)
	e1 := NewExecutor(1, g1, lb, nil)
	lb.Register(0, e0)
	lb.Register(1, e1)

	ep1, caps1, err := g0.Connect(1)
	require.NoError(t, err)
	ep0, caps0, err := g1.Connect(0)
	require.NoError(t, err)

	p0.Phases[0].Peers = []algo.Peer{{Rank: 1, Ep: ep1, Caps: caps1}}
	p1.Phases[0].Peers = []algo.Peer{{Rank: 0, Ep: ep0, Caps: caps0}}

	op0 := &plan.Op{Plan: p0, Steps: []plan.Step{{Phase: &p0.Phases[0], SendBuffer: []byte("a")}}, CollID: 5}
	op1 := &plan.Op{Plan: p1, Steps: []plan.Step{{Phase: &p1.Phases[0], SendBuffer: []byte("b")}}, CollID: 5}
	op0.Req.Op = op0
	op1.Req.Op = op1

	_, err = e0.Trigger(op0)
	require.NoError(t, err)
	_, err = e1.Trigger(op1)
	require.NoError(t, err)

	require.False(t, op0.Done)
	require.False(t, op1.Done)

	lb.Pump(1)
	lb.Pump(0)

	require.True(t, op0.Done)
	require.True(t, op1.Done)
}

func TestProgressWithEmptyResendListDoesNoWork(t *testing.T) {
	lb := transport.NewLoopback(topo.EndpointCaps{MaxShort: 256})
	t0 := topo.New([]topo.Location{{NodeIdx: 0}}, 0, topo.BalanceFlags{})
	g0 := topo.NewGroup(t0, lb)
	e := NewExecutor(1, g0, lb, nil)
	require.Equal(t, 0, e.Progress())
}
