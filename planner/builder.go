package planner

import (
	"github.com/pkg/errors"

	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/internal/cfg"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/topo"
)

// BuildFn allocates and fills the phase array for one (kind, algo-id) pair
// (spec §4.3 steps 1-3).
type BuildFn func(g *topo.Group, args plan.CollArgs, c *cfg.Config) (*plan.Plan, error)

type builderKey struct {
	kind plan.CollectiveKind
	id   algo.ID
}

// Builders is the two-level (kind, algo-id) table spec §4.3 step 1 looks up.
type Builders struct {
	table map[builderKey]BuildFn
}

func NewBuilders() *Builders { return &Builders{table: make(map[builderKey]BuildFn)} }

func (b *Builders) Register(kind plan.CollectiveKind, id algo.ID, fn BuildFn) {
	b.table[builderKey{kind, id}] = fn
}

func (b *Builders) Lookup(kind plan.CollectiveKind, id algo.ID) (BuildFn, bool) {
	fn, ok := b.table[builderKey{kind, id}]
	return fn, ok
}

func (b *Builders) Known(kind plan.CollectiveKind) func(algo.ID) bool {
	return func(id algo.ID) bool {
		_, ok := b.table[builderKey{kind, id}]
		return ok
	}
}

// connectAll resolves a peer set via the group's transport callback (spec
// §4.3 step 3: "resolves per-phase endpoint references via a transport
// connect(rank) callback that returns (endpoint, ep_caps, md_caps)").
func connectAll(g *topo.Group, ranks []topo.Rank) ([]algo.Peer, error) {
	peers := make([]algo.Peer, 0, len(ranks))
	for _, r := range ranks {
		ep, caps, err := g.Connect(r)
		if err != nil {
			return nil, errors.Wrapf(err, "connect rank %d", r)
		}
		peers = append(peers, algo.Peer{Rank: r, Ep: ep, Caps: caps})
	}
	return peers, nil
}

// deriveThresholds computes send/recv cutover points from one endpoint's
// capabilities minus the AM header size, aligned down to 16 bytes (spec
// §4.3 step 4). amHeaderSize is 8 for fixed-size headers, 12 when a
// remote_offset/local_id pair is carried (spec §6).
func deriveThresholds(caps topo.EndpointCaps, amHeaderSize int) plan.Thresholds {
	align := func(n int) int {
		n -= amHeaderSize
		if n < 0 {
			n = 0
		}
		return n &^ 0xF
	}
	return plan.Thresholds{
		MaxShortOne: align(caps.MaxShort),
		MaxShortMax: align(caps.MaxShort),
		MaxBcopyOne: align(caps.MaxBcopy),
		MaxBcopyMax: align(caps.MaxBcopy),
		MaxZcopyOne: align(caps.MaxZcopy),
		MDMaxReg:    caps.MaxReg,
	}
}

func phaseThresholds(peers []algo.Peer, amHeaderSize int) (plan.Thresholds, plan.Thresholds) {
	if len(peers) == 0 {
		return plan.Thresholds{}, plan.Thresholds{}
	}
	t := deriveThresholds(peers[0].Caps, amHeaderSize)
	return t, t
}

// newPlan finishes a plan's derived fields (spec §4.3 step 5: op pool sizing
// happens in plan.NewOpPool, keyed off PhaseCount/StepCount computed here).
func newPlan(kind plan.CollectiveKind, id algo.ID, root topo.Rank, contig bool, phases []plan.Phase) *plan.Plan {
	p := &plan.Plan{
		Kind: kind, AlgorithmID: id, Root: root, DatatypeContig: contig,
		Phases: phases, StepCount: len(phases),
	}
	var epTotal int
	for _, ph := range phases {
		epTotal += ph.EPCountTotal
	}
	p.EndpointCount = epTotal
	return p
}

// DefaultBuilders wires one builder per table entry referenced by
// planner.DefaultRegistry, each grounded on the matching algo/*.go
// primitive (spec §4.2's per-method table).
func DefaultBuilders(c *cfg.Config) *Builders {
	b := NewBuilders()

	b.Register(plan.KindBarrier, algo.AlgoBarrierKNTree, buildKNTreeBarrier(c))
	b.Register(plan.KindBcast, algo.AlgoBcastKNTree, buildKNTreeBcast(c))
	b.Register(plan.KindBcast, algo.AlgoBcastRing, buildRingBcast(c))
	b.Register(plan.KindReduce, algo.AlgoReduceKNTree, buildKNTreeReduce(c))
	b.Register(plan.KindAllreduce, algo.AlgoAllreduceRD, buildRDAllreduce(c))
	b.Register(plan.KindAllreduce, algo.AlgoAllreduceRing, buildRingAllreduce(c))
	b.Register(plan.KindAllreduce, algo.AlgoAllreduceRabenseifner, buildRabenAllreduce(c))
	b.Register(plan.KindAllreduce, algo.AlgoAllreduceKNTree, buildKNTreeAllreduce(c))
	b.Register(plan.KindScatterv, algo.AlgoScattervKNTree, buildKNTreeScatterv(c))
	b.Register(plan.KindGatherv, algo.AlgoGathervKNTree, buildKNTreeGatherv(c))
	b.Register(plan.KindAllgatherv, algo.AlgoAllgathervRecursive, buildRDAllgatherv(c))
	b.Register(plan.KindAllgatherv, algo.AlgoAllgathervRing, buildRingAllgatherv(c))
	b.Register(plan.KindAllgatherv, algo.AlgoAllgathervBruck, buildBruckAllgatherv(c))
	b.Register(plan.KindAlltoallv, algo.AlgoAlltoallvLadd, buildLaddAlltoallv(c))
	b.Register(plan.KindAlltoallv, algo.AlgoAlltoallvPlummer, buildPlummerAlltoallv(c))

	return b
}

func buildKNTreeBarrier(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		degree := c.BMTreeDegreeInterFanin
		it := algo.NewKNTreeIter(g.Size(), degree, 0, g.MyRank(), false)
		children := it.Children()
		peers, err := connectAll(g, children)
		if err != nil {
			return nil, err
		}
		if it.Parent() != topo.InvalidRank {
			pPeer, err := connectAll(g, []topo.Rank{it.Parent()})
			if err != nil {
				return nil, err
			}
			peers = append(peers, pPeer...)
		}
		sendT, recvT := phaseThresholds(peers, 8)
		// Barrier carries no payload: every neighbor is both a recv-from and
		// send-to partner in one mutual round (spec §4.2.1's fan-in/fan-out
		// collapsed to a single exchange since there is nothing to combine).
		phases := []plan.Phase{{
			StepIndex: 0, Method: algo.Exchange, Peers: peers,
			EPCountTotal: len(peers), EPCountSend: len(peers), EPCountRecv: len(peers),
			SendThresh: sendT, RecvThresh: recvT,
		}}
		return newPlan(plan.KindBarrier, algo.AlgoBarrierKNTree, topo.InvalidRank, true, phases), nil
	}
}

func buildKNTreeBcast(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		degree := c.BMTreeDegreeInterFanout
		it := algo.NewKNTreeIter(g.Size(), degree, int(args.Root), g.MyRank(), true)
		children := it.Children()
		peers, err := connectAll(g, children)
		if err != nil {
			return nil, err
		}
		var parentPeers []algo.Peer
		if it.Parent() != topo.InvalidRank {
			parentPeers, err = connectAll(g, []topo.Rank{it.Parent()})
			if err != nil {
				return nil, err
			}
		}
		all := append(append([]algo.Peer{}, parentPeers...), peers...)
		sendT, recvT := phaseThresholds(all, 8)
		method := algo.BcastWaypoint
		switch it.Role() {
		case algo.RoleLeaf:
			method = algo.RecvTerminal
		case algo.RoleRoot:
			method = algo.ScatterTerminal
		}
		phases := []plan.Phase{{
			StepIndex: 0, Method: method, Peers: all,
			EPCountTotal: len(all), EPCountSend: len(children), EPCountRecv: len(parentPeers),
			SendThresh: sendT, RecvThresh: recvT,
		}}
		return newPlan(plan.KindBcast, algo.AlgoBcastKNTree, args.Root, true, phases), nil
	}
}

func buildRingBcast(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		size := g.Size()
		me := int(g.MyRank())
		root := int(args.Root)
		vMe := (me - root + size) % size
		left := topo.Rank((vMe-1+size)%size + root)
		right := topo.Rank((vMe+1)%size + root)
		peers, err := connectAll(g, []topo.Rank{left, right})
		if err != nil {
			return nil, err
		}
		sendT, recvT := phaseThresholds(peers, 8)
		phases := make([]plan.Phase, 0, size-1)
		for i := 0; i < size-1; i++ {
			phases = append(phases, plan.Phase{
				StepIndex: i, Method: algo.BcastWaypoint, Peers: peers,
				EPCountTotal: 2, EPCountSend: 1, EPCountRecv: 1,
				SendThresh: sendT, RecvThresh: recvT,
			})
		}
		return newPlan(plan.KindBcast, algo.AlgoBcastRing, args.Root, true, phases), nil
	}
}

func buildKNTreeReduce(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		degree := c.BMTreeDegreeInterFanin
		it := algo.NewKNTreeIter(g.Size(), degree, int(args.Root), g.MyRank(), false)
		children := it.Children()
		peers, err := connectAll(g, children)
		if err != nil {
			return nil, err
		}
		var parentPeers []algo.Peer
		if it.Parent() != topo.InvalidRank {
			parentPeers, err = connectAll(g, []topo.Rank{it.Parent()})
			if err != nil {
				return nil, err
			}
		}
		sendT, recvT := phaseThresholds(peers, 8)
		method := algo.ReduceWaypoint
		switch it.Role() {
		case algo.RoleLeaf:
			method = algo.SendTerminal
		case algo.RoleRoot:
			method = algo.ReduceTerminal
		}
		merged := append(append([]algo.Peer{}, peers...), parentPeers...)
		phases := []plan.Phase{{
			StepIndex: 0, Method: method, Peers: merged,
			EPCountTotal: len(merged), EPCountSend: len(parentPeers), EPCountRecv: len(peers),
			SendThresh: sendT, RecvThresh: recvT,
		}}
		return newPlan(plan.KindReduce, algo.AlgoReduceKNTree, args.Root, true, phases), nil
	}
}

func buildKNTreeAllreduce(c *cfg.Config) BuildFn {
	reduceB := buildKNTreeReduce(c)
	bcastB := buildKNTreeBcast(c)
	return func(g *topo.Group, args plan.CollArgs, cc *cfg.Config) (*plan.Plan, error) {
		rp, err := reduceB(g, plan.CollArgs{Kind: plan.KindReduce, Root: 0}, cc)
		if err != nil {
			return nil, err
		}
		bp, err := bcastB(g, plan.CollArgs{Kind: plan.KindBcast, Root: 0}, cc)
		if err != nil {
			return nil, err
		}
		phases := append(append([]plan.Phase{}, rp.Phases...), bp.Phases...)
		for i := range phases {
			phases[i].StepIndex = i
		}
		return newPlan(plan.KindAllreduce, algo.AlgoAllreduceKNTree, topo.InvalidRank, true, phases), nil
	}
}

func buildRDAllreduce(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		size := g.Size()
		rdit := algo.NewRDIter(size, g.MyRank())
		steps := rdit.Steps()
		phases := make([]plan.Phase, 0, len(steps))
		for i, peerRank := range steps {
			peers, err := connectAll(g, []topo.Rank{peerRank})
			if err != nil {
				return nil, err
			}
			sendT, recvT := phaseThresholds(peers, 8)
			phases = append(phases, plan.Phase{
				StepIndex: i, Method: algo.ReduceRecursive, Peers: peers,
				EPCountTotal: 1, EPCountSend: 1, EPCountRecv: 1,
				SendThresh: sendT, RecvThresh: recvT,
				IsSwap: peerRank < g.MyRank(),
			})
		}
		return newPlan(plan.KindAllreduce, algo.AlgoAllreduceRD, topo.InvalidRank, true, phases), nil
	}
}

func buildRingAllreduce(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		size := g.Size()
		me := int(g.MyRank())
		left := topo.Rank((me - 1 + size) % size)
		right := topo.Rank((me + 1) % size)
		peers, err := connectAll(g, []topo.Rank{left, right})
		if err != nil {
			return nil, err
		}
		sendT, recvT := phaseThresholds(peers, 12)
		n := 2 * (size - 1)
		phases := make([]plan.Phase, 0, n)
		for i := 0; i < n; i++ {
			method := algo.ReduceScatterRing
			ringStep := i
			if i >= size-1 {
				method = algo.AllgatherRing
				ringStep = i - (size - 1)
			}
			phases = append(phases, plan.Phase{
				StepIndex: i, Method: method, Peers: peers,
				EPCountTotal: 2, EPCountSend: 1, EPCountRecv: 1,
				SendThresh: sendT, RecvThresh: recvT,
				Extra: plan.PhaseExtra{BlockIndex: ringStep, TotalBlocks: size},
			})
		}
		return newPlan(plan.KindAllreduce, algo.AlgoAllreduceRing, topo.InvalidRank, true, phases), nil
	}
}

// buildRabenAllreduce builds Rabenseifner's algorithm (spec §4.2.3): an
// optional extra/proxy pre-step handing off non-power-of-two ranks, a
// recursive-halving reduce-scatter core, then a mirrored recursive-doubling
// allgather core, and a matching post-step handing results back to extras.
func buildRabenAllreduce(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		size := g.Size()
		rhit := algo.NewRHIter(size, g.MyRank())

		var phases []plan.Phase
		stepIdx := 0

		addExchange := func(peer topo.Rank, method algo.Method, extra plan.PhaseExtra) error {
			peers, err := connectAll(g, []topo.Rank{peer})
			if err != nil {
				return err
			}
			sendT, recvT := phaseThresholds(peers, 12)
			phases = append(phases, plan.Phase{
				StepIndex: stepIdx, Method: method, Peers: peers,
				EPCountTotal: 1, EPCountSend: 1, EPCountRecv: 1,
				SendThresh: sendT, RecvThresh: recvT,
				Extra: extra,
			})
			stepIdx++
			return nil
		}

		switch {
		case rhit.Type()&algo.RHProxy != 0:
			if err := addExchange(rhit.Extra(), algo.ReduceWaypoint, plan.PhaseExtra{IsPartial: true}); err != nil {
				return nil, err
			}
		case rhit.Type()&algo.RHExtra != 0:
			if err := addExchange(rhit.Proxy(), algo.SendTerminal, plan.PhaseExtra{IsPartial: true}); err != nil {
				return nil, err
			}
		}

		var coreSteps []topo.Rank
		if rhit.Type()&algo.RHBase != 0 {
			for p := rhit.NextBase(); p != topo.InvalidRank; p = rhit.NextBase() {
				coreSteps = append(coreSteps, p)
			}
		}
		rsStart := stepIdx
		for i, peer := range coreSteps {
			if err := addExchange(peer, algo.ReduceScatterRecursive, plan.PhaseExtra{IsPartial: true, BlockIndex: i}); err != nil {
				return nil, err
			}
		}
		agStart := stepIdx
		for i := len(coreSteps) - 1; i >= 0; i-- {
			if err := addExchange(coreSteps[i], algo.AllgatherRecursive, plan.PhaseExtra{BlockIndex: i}); err != nil {
				return nil, err
			}
		}

		switch {
		case rhit.Type()&algo.RHProxy != 0:
			if err := addExchange(rhit.Extra(), algo.ScatterWaypoint, plan.PhaseExtra{}); err != nil {
				return nil, err
			}
			// the proxy only hands the result back: its single peer is a
			// send-to partner, not a recv-from one
			phases[len(phases)-1].EPCountRecv = 0
		case rhit.Type()&algo.RHExtra != 0:
			if err := addExchange(rhit.Proxy(), algo.RecvTerminal, plan.PhaseExtra{}); err != nil {
				return nil, err
			}
		}

		p := newPlan(plan.KindAllreduce, algo.AlgoAllreduceRabenseifner, topo.InvalidRank, true, phases)
		if n := len(coreSteps); n > 0 {
			adjust := 1 << uint(n)
			myVRank := int(g.MyRank())
			// Reduce-scatter half: keep [StartBlock,NumBlocks), hand the
			// other half [PeerStartBlock,PeerNumBlocks) to the peer, and
			// reduce the matching range the peer sends back (spec §4.2.3).
			for i := 0; i < n; i++ {
				idx := i
				p.Phases[rsStart+i].InitPhaseCB = func(st *plan.Step, a plan.CollArgs) {
					if a.Count < adjust {
						return
					}
					bp := algo.ReduceScatterBlocks(a.Count, adjust, myVRank, idx)
					st.IterOffset = bp.StartBlock
					st.FragmentLength = bp.NumBlocks
					st.SendOffset = bp.PeerStartBlock
					st.SendLength = bp.PeerNumBlocks
				}
			}
			// Allgather half mirrors the same halving step in reverse: send
			// back the block this rank ended up holding, receive the block
			// it handed away, no reduction.
			for i := 0; i < n; i++ {
				idx := i
				p.Phases[agStart+(n-1-i)].InitPhaseCB = func(st *plan.Step, a plan.CollArgs) {
					if a.Count < adjust {
						return
					}
					bp := algo.ReduceScatterBlocks(a.Count, adjust, myVRank, idx)
					st.IterOffset = bp.PeerStartBlock
					st.FragmentLength = bp.PeerNumBlocks
					st.SendOffset = bp.StartBlock
					st.SendLength = bp.NumBlocks
				}
			}
		}
		return p, nil
	}
}

func buildKNTreeScatterv(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		degree := c.BMTreeDegreeInterFanout
		it := algo.NewKNTreeIter(g.Size(), degree, int(args.Root), g.MyRank(), true)
		children := it.Children()
		peers, err := connectAll(g, children)
		if err != nil {
			return nil, err
		}
		var parentPeers []algo.Peer
		if it.Parent() != topo.InvalidRank {
			parentPeers, err = connectAll(g, []topo.Rank{it.Parent()})
			if err != nil {
				return nil, err
			}
		}
		merged := append(append([]algo.Peer{}, parentPeers...), peers...)
		sendT, recvT := phaseThresholds(merged, 12)
		method := algo.ScatterWaypoint
		switch it.Role() {
		case algo.RoleLeaf:
			method = algo.RecvTerminal
		case algo.RoleRoot:
			method = algo.ScatterTerminal
		}
		phases := []plan.Phase{{
			StepIndex: 0, Method: method, Peers: merged,
			EPCountTotal: len(merged), EPCountSend: len(children), EPCountRecv: len(parentPeers),
			SendThresh: sendT, RecvThresh: recvT,
			Extra: plan.PhaseExtra{IsVariableLen: true},
		}}
		return newPlan(plan.KindScatterv, algo.AlgoScattervKNTree, args.Root, true, phases), nil
	}
}

func buildKNTreeGatherv(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		degree := c.BMTreeDegreeInterFanin
		it := algo.NewKNTreeIter(g.Size(), degree, int(args.Root), g.MyRank(), false)
		children := it.Children()
		peers, err := connectAll(g, children)
		if err != nil {
			return nil, err
		}
		var parentPeers []algo.Peer
		if it.Parent() != topo.InvalidRank {
			parentPeers, err = connectAll(g, []topo.Rank{it.Parent()})
			if err != nil {
				return nil, err
			}
		}
		merged := append(append([]algo.Peer{}, peers...), parentPeers...)
		sendT, recvT := phaseThresholds(merged, 12)
		method := algo.GatherWaypoint
		switch it.Role() {
		case algo.RoleLeaf:
			method = algo.SendTerminal
		case algo.RoleRoot:
			method = algo.RecvTerminal
		}
		phases := []plan.Phase{{
			StepIndex: 0, Method: method, Peers: merged,
			EPCountTotal: len(merged), EPCountSend: len(parentPeers), EPCountRecv: len(peers),
			SendThresh: sendT, RecvThresh: recvT,
			Extra: plan.PhaseExtra{IsVariableLen: true},
		}}
		return newPlan(plan.KindGatherv, algo.AlgoGathervKNTree, args.Root, true, phases), nil
	}
}

func buildRDAllgatherv(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		size := g.Size()
		rdit := algo.NewRDIter(size, g.MyRank())
		steps := rdit.Steps()
		phases := make([]plan.Phase, 0, len(steps))
		for i, peerRank := range steps {
			peers, err := connectAll(g, []topo.Rank{peerRank})
			if err != nil {
				return nil, err
			}
			sendT, recvT := phaseThresholds(peers, 12)
			phases = append(phases, plan.Phase{
				StepIndex: i, Method: algo.AllgatherRecursive, Peers: peers,
				EPCountTotal: 1, EPCountSend: 1, EPCountRecv: 1,
				SendThresh: sendT, RecvThresh: recvT,
			})
		}
		return newPlan(plan.KindAllgatherv, algo.AlgoAllgathervRecursive, topo.InvalidRank, true, phases), nil
	}
}

func buildRingAllgatherv(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		size := g.Size()
		me := int(g.MyRank())
		left := topo.Rank((me - 1 + size) % size)
		right := topo.Rank((me + 1) % size)
		peers, err := connectAll(g, []topo.Rank{left, right})
		if err != nil {
			return nil, err
		}
		sendT, recvT := phaseThresholds(peers, 12)
		phases := make([]plan.Phase, 0, size-1)
		for i := 0; i < size-1; i++ {
			phases = append(phases, plan.Phase{
				StepIndex: i, Method: algo.AllgatherRing, Peers: peers,
				EPCountTotal: 2, EPCountSend: 1, EPCountRecv: 1,
				SendThresh: sendT, RecvThresh: recvT,
				Extra: plan.PhaseExtra{BlockIndex: i, TotalBlocks: size},
			})
		}
		return newPlan(plan.KindAllgatherv, algo.AlgoAllgathervRing, topo.InvalidRank, true, phases), nil
	}
}

func buildBruckAllgatherv(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		size := g.Size()
		steps := algo.BruckSteps(size)
		phases := make([]plan.Phase, 0, steps)
		for s := 0; s < steps; s++ {
			sendTo, recvFrom := algo.BruckPeers(size, g.MyRank(), s)
			peers, err := connectAll(g, []topo.Rank{recvFrom, sendTo})
			if err != nil {
				return nil, err
			}
			sendT, recvT := phaseThresholds(peers, 12)
			phases = append(phases, plan.Phase{
				StepIndex: s, Method: algo.AllgatherBruck, Peers: peers,
				EPCountTotal: 2, EPCountSend: 1, EPCountRecv: 1,
				SendThresh: sendT, RecvThresh: recvT,
				Extra: plan.PhaseExtra{PackedRank: algo.PackedRank(g.MyRank(), g.MyRank(), size)},
			})
		}
		return newPlan(plan.KindAllgatherv, algo.AlgoAllgathervBruck, topo.InvalidRank, true, phases), nil
	}
}

func buildLaddAlltoallv(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		size := g.Size()
		sched := algo.NewLaddSchedule(size, g.MyRank(), c.LaddThrottledFactor)
		windows := sched.InFlightWindows()
		phases := make([]plan.Phase, 0, len(windows))
		for i, w := range windows {
			peers, err := connectAll(g, w)
			if err != nil {
				return nil, err
			}
			sendT, recvT := phaseThresholds(peers, 12)
			phases = append(phases, plan.Phase{
				StepIndex: i, Method: algo.Exchange, Peers: peers,
				EPCountTotal: len(peers), EPCountSend: len(peers), EPCountRecv: len(peers),
				SendThresh: sendT, RecvThresh: recvT,
				Extra: plan.PhaseExtra{IsVariableLen: true},
			})
		}
		return newPlan(plan.KindAlltoallv, algo.AlgoAlltoallvLadd, topo.InvalidRank, true, phases), nil
	}
}

func buildPlummerAlltoallv(c *cfg.Config) BuildFn {
	return func(g *topo.Group, args plan.CollArgs, _ *cfg.Config) (*plan.Plan, error) {
		t := g.Topology()
		nodeLeaders := t.NodeLeaders()
		localMembers := t.LocalMembers()
		myLeader := nodeLeaders[0]
		for _, l := range nodeLeaders {
			if t.Location(l).NodeIdx == t.Location(g.MyRank()).NodeIdx {
				myLeader = l
				break
			}
		}
		pp := algo.BuildPlummerPlan(nodeLeaders, localMembers, g.MyRank(), myLeader)

		var phases []plan.Phase
		stepIdx := 0
		if len(pp.LocalPeers) > 0 {
			peers, err := connectAll(g, pp.LocalPeers)
			if err != nil {
				return nil, err
			}
			sendT, recvT := phaseThresholds(peers, 12)
			method := algo.GatherWaypoint
			sendCnt, recvCnt := 0, len(peers)
			if !pp.IsNodeLeader {
				method = algo.SendTerminal
				sendCnt, recvCnt = len(peers), 0
			}
			phases = append(phases, plan.Phase{
				StepIndex: stepIdx, Method: method, Peers: peers,
				EPCountTotal: len(peers), EPCountSend: sendCnt, EPCountRecv: recvCnt,
				Extra: plan.PhaseExtra{IsVariableLen: true},
				SendThresh: sendT, RecvThresh: recvT,
			})
			stepIdx++
		}
		if pp.IsNodeLeader && len(pp.Leaders) > 1 {
			peers, err := connectAll(g, pp.Leaders)
			if err != nil {
				return nil, err
			}
			sendT, recvT := phaseThresholds(peers, 12)
			phases = append(phases, plan.Phase{
				StepIndex: stepIdx, Method: algo.Exchange, Peers: peers,
				EPCountTotal: len(peers), EPCountSend: len(peers), EPCountRecv: len(peers),
				Extra: plan.PhaseExtra{IsVariableLen: true},
				SendThresh: sendT, RecvThresh: recvT,
			})
			stepIdx++
		}
		if len(pp.LocalPeers) > 0 {
			peers, err := connectAll(g, pp.LocalPeers)
			if err != nil {
				return nil, err
			}
			sendT, recvT := phaseThresholds(peers, 12)
			method := algo.ScatterWaypoint
			sendCnt, recvCnt := len(peers), 0
			if !pp.IsNodeLeader {
				method = algo.RecvTerminal
				sendCnt, recvCnt = 0, len(peers)
			}
			phases = append(phases, plan.Phase{
				StepIndex: stepIdx, Method: method, Peers: peers,
				EPCountTotal: len(peers), EPCountSend: sendCnt, EPCountRecv: recvCnt,
				Extra: plan.PhaseExtra{IsVariableLen: true},
				SendThresh: sendT, RecvThresh: recvT,
			})
		}
		return newPlan(plan.KindAlltoallv, algo.AlgoAlltoallvPlummer, topo.InvalidRank, true, phases), nil
	}
}
