// Package ucg is the engine's public surface: group lifecycle and the eight
// collective triggers (spec §2 "PUBLIC SURFACE"). Grounded on xact/xs's
// registry-and-renew style public API (xs.go wiring Factory.New into one
// call per xaction kind), generalized to one method per collective kind
// (Barrier, Bcast, Allreduce, Reduce, Scatterv, Gatherv, Allgatherv,
// Alltoallv) sharing one planner/cache/executor per group.
package ucg

import (
	"github.com/pkg/errors"

	"github.com/ucg-hpc/ucg/exec"
	"github.com/ucg-hpc/ucg/internal/cfg"
	"github.com/ucg-hpc/ucg/internal/metrics"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/planner"
	"github.com/ucg-hpc/ucg/topo"
	"github.com/ucg-hpc/ucg/transport"
)

// Group is the user-facing communicator handle (spec §3 "Group"). It owns
// a plan cache, a planner, and a step executor, all scoped to its lifetime
// (spec §3 "Lifecycles": "Topology: created when the group is created;
// destroyed with the group").
type Group struct {
	id       uint16
	topo     *topo.Group
	cache    *plan.Cache
	planner  *planner.Planner
	executor *exec.Executor
	pools    map[plan.CollectiveKind]*plan.OpPool
}

// New builds a group over an already-discovered topology, wired to a
// transport's sender/connector pair. id is the wire-level group_id carried
// in every AM header (spec §3 "Message Descriptor").
func New(id uint16, t *topo.Topology, connector topo.Connector, sender transport.Sender, c *cfg.Config, m *metrics.Metrics) *Group {
	tg := topo.NewGroup(t, connector)
	g := &Group{
		id:      id,
		topo:    tg,
		cache:   plan.NewCache(),
		planner: planner.NewWithMetrics(c, m),
		pools:   make(map[plan.CollectiveKind]*plan.OpPool),
	}
	g.executor = exec.NewExecutor(id, tg, sender, m)
	return g
}

// Executor exposes the group's executor so a transport can register it as
// its AM handler for this group's id.
func (g *Group) Executor() *exec.Executor { return g.executor }

func (g *Group) Size() int      { return g.topo.Size() }
func (g *Group) MyRank() topo.Rank { return g.topo.MyRank() }

// Progress pulls the group's executor once (spec §4.5.6). Call it from a
// host loop; the engine never spawns its own thread.
func (g *Group) Progress() int { return g.executor.Progress() }

// Destroy releases the group's staged descriptors, logging a warning for
// anything left unconsumed (spec §3 "Slot msg" lifecycle).
func (g *Group) Destroy() {
	g.executor.Drain()
	g.cache.Clear()
}

func (g *Group) poolFor(kind plan.CollectiveKind, p *plan.Plan) *plan.OpPool {
	pool, ok := g.pools[kind]
	if !ok || pool == nil {
		pool = plan.NewOpPool(p)
		g.pools[kind] = pool
	}
	return pool
}

// trigger is the common path behind every collective method: build (or reuse)
// a plan, pull an Op from its pool, and hand it to the executor.
func (g *Group) trigger(kind plan.CollectiveKind, args plan.CollArgs, opts collOpts) (*plan.Request, error) {
	args.Kind = kind
	args.Datatype = opts.datatype
	args.ReduceOp = opts.reduceOp
	p, err := g.planner.BuildPlan(g.cache, g.topo, kind, args, opts.datatype, opts.reduceOp)
	if err != nil {
		return nil, errors.Wrapf(err, "ucg: build plan for %s", kind)
	}
	pool := g.poolFor(kind, p)
	op := pool.Get(args, g.executor.AllocCollID())

	// Fixed-count reduction collectives accumulate across every step of the
	// op, so every step shares one working buffer seeded from the local
	// contribution (spec §4.2.2/§4.2.3: "dst = dst OP src" in place).
	// Bcast's send/recv buffer is the caller's own buf on every rank
	// (root's is already populated; others fill in as phases arrive).
	// The v-collectives (scatterv/gatherv/allgatherv/alltoallv) move
	// distinct per-peer slices of the caller's send/recv buffers directly,
	// with no shared intermediate working copy.
	switch kind {
	case plan.KindReduce, plan.KindAllreduce:
		// Reduce's non-root ranks pass no RecvBuf (only the root collects a
		// result), but still need a working buffer to contribute their own
		// value from and accumulate intermediate reductions into before
		// forwarding up the tree.
		work := args.RecvBuf
		if work == nil {
			work = append([]byte(nil), args.SendBuf...)
		} else if !args.InPlace && args.SendBuf != nil {
			copy(work, args.SendBuf)
		}
		for i := range op.Steps {
			op.Steps[i].SendBuffer = work
			op.Steps[i].RecvBuffer = work
		}
	default:
		for i := range op.Steps {
			op.Steps[i].SendBuffer = args.SendBuf
			op.Steps[i].RecvBuffer = args.RecvBuf
		}
	}

	req, err := g.executor.Trigger(op)
	if err != nil {
		pool.Put(op)
		return nil, err
	}
	return req, nil
}
