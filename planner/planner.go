package planner

import (
	"github.com/pkg/errors"

	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/dtype"
	"github.com/ucg-hpc/ucg/internal/cfg"
	"github.com/ucg-hpc/ucg/internal/cmn/nlog"
	"github.com/ucg-hpc/ucg/internal/metrics"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/reduceop"
	"github.com/ucg-hpc/ucg/topo"
)

// Planner ties the selection table, feasibility checks, and builder table
// into the single entry point spec §4.3/§4.4 describe: pick an algorithm,
// fall it back to a feasible one, then build the phase array, consulting
// the per-group cache first (spec §3 "Plan" lifecycle).
type Planner struct {
	cfg      *cfg.Config
	registry *Registry
	builders *Builders
	checks   map[plan.CollectiveKind][]Check
	metrics  *metrics.Metrics
}

func New(c *cfg.Config) *Planner {
	return NewWithMetrics(c, nil)
}

// NewWithMetrics is New plus an optional metrics sink; a nil sink behaves
// exactly like New (spec §1: metrics stay outside the required contract).
func NewWithMetrics(c *cfg.Config, m *metrics.Metrics) *Planner {
	if c == nil {
		c = cfg.Default()
	}
	p := &Planner{
		cfg:      c,
		registry: DefaultRegistry(),
		builders: DefaultBuilders(c),
		metrics:  m,
	}
	p.checks = map[plan.CollectiveKind][]Check{}
	for _, kind := range []plan.CollectiveKind{
		plan.KindBarrier, plan.KindBcast, plan.KindReduce, plan.KindAllreduce,
		plan.KindScatterv, plan.KindGatherv, plan.KindAllgatherv, plan.KindAlltoallv,
	} {
		p.checks[kind] = DefaultChecks(p.builders.Known(kind))
	}
	return p
}

// overrideFor reads the config's per-collective algorithm override (spec
// §6: *_ALGORITHM keys, 0 meaning auto).
func (p *Planner) overrideFor(kind plan.CollectiveKind) algo.ID {
	switch kind {
	case plan.KindBarrier:
		return algo.ID(p.cfg.BarrierAlgorithm)
	case plan.KindBcast:
		return algo.ID(p.cfg.BcastAlgorithm)
	case plan.KindAllreduce:
		return algo.ID(p.cfg.AllreduceAlgorithm)
	case plan.KindAlltoallv:
		return algo.ID(p.cfg.AlltoallvAlgorithm)
	default:
		return algo.AlgoAuto
	}
}

// BuildPlan resolves the algorithm id for kind via selection + feasibility,
// then invokes its builder, using cache for every kind except alltoallv
// (spec §4.3 step 1-3, §4.4).
func (p *Planner) BuildPlan(
	c *plan.Cache, g *topo.Group, kind plan.CollectiveKind,
	args plan.CollArgs, dt dtype.Datatype, rop *reduceop.Op,
) (*plan.Plan, error) {
	contig := dt.Contiguous
	msgBytes := dt.Span(args.Count)
	selected := p.registry.Select(kind, p.overrideFor(kind), msgBytes, g.Topology().PPS(), g.Topology().NodeCount())

	in := FeasibilityInput{
		Kind: kind, Topology: g.Topology(), Datatype: dt, ReduceOp: rop,
		DtypeThreshold: p.cfg.LargeDatatypeThresh,
	}
	resolved, fired := ResolveFeasible(selected, in, p.checks[kind], 16)
	if len(fired) > 0 {
		nlog.Infof("planner: %s algo %d -> %d via %v", kind, selected, resolved, fired)
		for _, name := range fired {
			if p.metrics != nil {
				p.metrics.Fallback(name)
			}
		}
	}

	if cached := c.Lookup(kind, resolved, args.Root, contig); cached != nil {
		return cached, nil
	}

	build, ok := p.builders.Lookup(kind, resolved)
	if !ok {
		return nil, errors.Errorf("planner: no builder for kind=%s algo=%d", kind, resolved)
	}
	built, err := build(g, args, p.cfg)
	if err != nil {
		return nil, errors.Wrapf(err, "planner: build kind=%s algo=%d", kind, resolved)
	}

	c.Store(kind, resolved, args.Root, contig, built)
	return built, nil
}
