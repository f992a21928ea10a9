package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ucg-hpc/ucg/dtype"
	"github.com/ucg-hpc/ucg/internal/cfg"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/planner"
	"github.com/ucg-hpc/ucg/reduceop"
	"github.com/ucg-hpc/ucg/topo"
)

var planCmd = &cobra.Command{
	Use:   "plan <file.json>",
	Args:  cobra.ExactArgs(1),
	Short: "Build and print a plan for a synthetic group/collective description",
	RunE:  runPlan,
}

// groupSpec is the ucgplan input document: one rank's view of a group plus
// the collective it would trigger.
type groupSpec struct {
	Locs           []locSpec `json:"locs"`
	MyRank         int       `json:"my_rank"`
	Kind           string    `json:"kind"`
	Algorithm      int       `json:"algorithm"`
	Count          int       `json:"count"`
	Root           int       `json:"root"`
	Datatype       string    `json:"datatype"`
	NonCommutative bool      `json:"non_commutative"`
}

type locSpec struct {
	Node   int32 `json:"node"`
	Socket int32 `json:"socket"`
}

var kindByName = map[string]plan.CollectiveKind{
	"barrier":    plan.KindBarrier,
	"bcast":      plan.KindBcast,
	"reduce":     plan.KindReduce,
	"allreduce":  plan.KindAllreduce,
	"scatterv":   plan.KindScatterv,
	"gatherv":    plan.KindGatherv,
	"allgatherv": plan.KindAllgatherv,
	"alltoallv":  plan.KindAlltoallv,
}

// nullConnector stands in for a real transport: the planner only needs an
// opaque endpoint and a capability set to size each phase's thresholds, it
// never sends through what BuildPlan hands back.
type nullConnector struct{ caps topo.EndpointCaps }

func (n nullConnector) Connect(r topo.Rank) (topo.Endpoint, topo.EndpointCaps, error) {
	return r, n.caps, nil
}

func runPlan(cmd *cobra.Command, args []string) error {
	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read %s: %w", args[0], err)
	}
	var gs groupSpec
	if err := json.Unmarshal(raw, &gs); err != nil {
		return fmt.Errorf("parse %s: %w", args[0], err)
	}
	kind, ok := kindByName[gs.Kind]
	if !ok {
		return fmt.Errorf("unknown collective kind %q", gs.Kind)
	}

	locs := make([]topo.Location, len(gs.Locs))
	for i, l := range gs.Locs {
		locs[i] = topo.Location{NodeIdx: l.Node, SocketIdx: l.Socket}
	}
	tp := topo.New(locs, topo.Rank(gs.MyRank), topo.BalanceFlags{})
	grp := topo.NewGroup(tp, nullConnector{caps: topo.EndpointCaps{
		MaxShort: 256, MaxBcopy: 32 << 10, MaxZcopy: 1 << 20, MaxReg: 1 << 20,
	}})

	dt := dtype.Predefined(dtype.KindInt32)
	var rop *reduceop.Op
	if kind == plan.KindAllreduce || kind == plan.KindReduce {
		rop = &reduceop.SumInt32
		if gs.NonCommutative {
			nc := reduceop.SumInt32
			nc.Commutative = false
			rop = &nc
		}
	}

	c := cfg.Default()
	switch kind {
	case plan.KindBarrier:
		c.BarrierAlgorithm = gs.Algorithm
	case plan.KindBcast:
		c.BcastAlgorithm = gs.Algorithm
	case plan.KindAllreduce:
		c.AllreduceAlgorithm = gs.Algorithm
	case plan.KindAlltoallv:
		c.AlltoallvAlgorithm = gs.Algorithm
	}

	pl := planner.New(c)
	cache := plan.NewCache()
	collArgs := plan.CollArgs{Count: gs.Count, Root: topo.Rank(gs.Root)}
	built, err := pl.BuildPlan(cache, grp, kind, collArgs, dt, rop)
	if err != nil {
		return fmt.Errorf("build plan: %w", err)
	}

	printPlan(cmd, built)
	return nil
}

func printPlan(cmd *cobra.Command, p *plan.Plan) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "kind=%s algorithm=%d root=%d phases=%d endpoints=%d\n",
		p.Kind, p.AlgorithmID, p.Root, p.PhaseCount(), p.EndpointCount)
	for i, ph := range p.Phases {
		fmt.Fprintf(out, "  [%d] method=%d peers=%d send_thresh(short=%d,bcopy=%d,zcopy=%d)\n",
			i, ph.Method, len(ph.Peers), ph.SendThresh.MaxShortMax, ph.SendThresh.MaxBcopyMax, ph.SendThresh.MaxZcopyOne)
	}
}
