package ucg

import (
	"github.com/pkg/errors"

	"github.com/ucg-hpc/ucg/dtype"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/reduceop"
	"github.com/ucg-hpc/ucg/topo"
)

// collOpts carries the per-call inputs the planner needs beyond plan.CollArgs
// (spec §4.4 feasibility input: datatype and, for reduce-family collectives,
// the reduction operator).
type collOpts struct {
	datatype dtype.Datatype
	reduceOp *reduceop.Op
}

// Barrier triggers a barrier op; the returned Request completes once every
// participant's local exchange step has finished.
func (g *Group) Barrier() (*plan.Request, error) {
	args := plan.CollArgs{}
	return g.trigger(plan.KindBarrier, args, collOpts{datatype: dtype.Predefined(dtype.KindUint8)})
}

// Bcast triggers a broadcast of buf from root to every other rank.
func (g *Group) Bcast(buf []byte, dt dtype.Datatype, root topo.Rank) (*plan.Request, error) {
	args := plan.CollArgs{SendBuf: buf, RecvBuf: buf, Root: root, Count: len(buf) / dt.Extent}
	return g.trigger(plan.KindBcast, args, collOpts{datatype: dt})
}

// Allreduce triggers an all-to-all reduction of sendBuf into recvBuf using op.
func (g *Group) Allreduce(sendBuf, recvBuf []byte, dt dtype.Datatype, op *reduceop.Op) (*plan.Request, error) {
	if op == nil {
		return nil, errors.New("ucg: Allreduce requires a reduce op")
	}
	count := len(recvBuf) / dt.Extent
	args := plan.CollArgs{SendBuf: sendBuf, RecvBuf: recvBuf, Count: count, InPlace: sendBuf == nil}
	return g.trigger(plan.KindAllreduce, args, collOpts{datatype: dt, reduceOp: op})
}

// Reduce triggers a reduction of sendBuf into recvBuf at root using op.
func (g *Group) Reduce(sendBuf, recvBuf []byte, dt dtype.Datatype, op *reduceop.Op, root topo.Rank) (*plan.Request, error) {
	if op == nil {
		return nil, errors.New("ucg: Reduce requires a reduce op")
	}
	count := len(sendBuf) / dt.Extent
	args := plan.CollArgs{SendBuf: sendBuf, RecvBuf: recvBuf, Count: count, Root: root}
	return g.trigger(plan.KindReduce, args, collOpts{datatype: dt, reduceOp: op})
}

// Scatterv triggers a variable-length scatter from root.
func (g *Group) Scatterv(sendBuf []byte, sendCounts, sendDispls []int, recvBuf []byte, dt dtype.Datatype, root topo.Rank) (*plan.Request, error) {
	args := plan.CollArgs{
		SendBuf: sendBuf, RecvBuf: recvBuf, Root: root,
		SendCounts: sendCounts, SendDispls: sendDispls,
	}
	return g.trigger(plan.KindScatterv, args, collOpts{datatype: dt})
}

// Gatherv triggers a variable-length gather into root.
func (g *Group) Gatherv(sendBuf []byte, recvBuf []byte, recvCounts, recvDispls []int, dt dtype.Datatype, root topo.Rank) (*plan.Request, error) {
	args := plan.CollArgs{
		SendBuf: sendBuf, RecvBuf: recvBuf, Root: root,
		RecvCounts: recvCounts, RecvDispls: recvDispls,
	}
	return g.trigger(plan.KindGatherv, args, collOpts{datatype: dt})
}

// Allgatherv triggers a variable-length all-gather.
func (g *Group) Allgatherv(sendBuf []byte, recvBuf []byte, recvCounts, recvDispls []int, dt dtype.Datatype) (*plan.Request, error) {
	args := plan.CollArgs{SendBuf: sendBuf, RecvBuf: recvBuf, RecvCounts: recvCounts, RecvDispls: recvDispls}
	return g.trigger(plan.KindAllgatherv, args, collOpts{datatype: dt})
}

// Alltoallv triggers a variable-length all-to-all exchange. Its plan is
// never cached (spec §4.3 Open Question decision: per-call counts/displs
// make reuse unsound).
func (g *Group) Alltoallv(sendBuf []byte, sendCounts, sendDispls []int, recvBuf []byte, recvCounts, recvDispls []int, dt dtype.Datatype) (*plan.Request, error) {
	args := plan.CollArgs{
		SendBuf: sendBuf, RecvBuf: recvBuf,
		SendCounts: sendCounts, SendDispls: sendDispls,
		RecvCounts: recvCounts, RecvDispls: recvDispls,
	}
	return g.trigger(plan.KindAlltoallv, args, collOpts{datatype: dt})
}
