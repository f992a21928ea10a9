package plan

import "sync"

// OpPool recycles Op values (and their Steps slices) for one plan, sized
// for `sizeof(Op) + phase_count * sizeof(Step)` (spec §4.3 step 5). Grounded
// on xact/xs/tcb.go's use of a sync.Pool-style object reuse for the hot
// per-xaction-batch path, generalized to "one pool per plan" instead of
// "one pool per transform".
type OpPool struct {
	plan *Plan
	pool sync.Pool
}

// NewOpPool builds a pool whose Get() always returns an Op with a Steps
// slice pre-sized to the plan's phase count.
func NewOpPool(p *Plan) *OpPool {
	op := &OpPool{plan: p}
	op.pool.New = func() any {
		return &Op{
			Plan:  p,
			Steps: make([]Step, p.PhaseCount()),
		}
	}
	return op
}

// Get returns a zeroed-for-reuse Op ready to be populated for a new
// collective invocation.
func (op *OpPool) Get(args CollArgs, collID uint8) *Op {
	o := op.pool.Get().(*Op)
	o.Args = args
	o.Done = false
	o.CollID = collID
	o.Req = Request{Op: o}
	for i := range o.Steps {
		o.Steps[i] = Step{Phase: &op.plan.Phases[i]}
	}
	return o
}

// Put returns a completed Op to the pool (spec §3 "Op" lifecycle: "returned
// to a per-plan pool on completion").
func (op *OpPool) Put(o *Op) {
	if o.Plan != op.plan {
		return
	}
	op.pool.Put(o)
}
