package ucg

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"

	"github.com/ucg-hpc/ucg/dtype"
	"github.com/ucg-hpc/ucg/internal/cfg"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/reduceop"
	"github.com/ucg-hpc/ucg/topo"
	"github.com/ucg-hpc/ucg/transport"
)

// cluster wires size Groups over one shared in-memory transport, one node
// per rank unless locs is given explicitly (spec §8's S3 wants three
// two-rank nodes).
type cluster struct {
	lb     *transport.Loopback
	groups []*Group
}

func newCluster(locs []topo.Location, c *cfg.Config) *cluster {
	lb := transport.NewLoopback(topo.EndpointCaps{MaxShort: 256, MaxBcopy: 64 * 1024, MaxZcopy: 1 << 20, MaxReg: 1 << 20})
	cl := &cluster{lb: lb, groups: make([]*Group, len(locs))}
	for i := range locs {
		t := topo.New(locs, topo.Rank(i), topo.BalanceFlags{})
		g := New(1, t, lb, lb, c, nil)
		lb.Register(topo.Rank(i), g.Executor())
		cl.groups[i] = g
	}
	return cl
}

func singleNode(size int) []topo.Location {
	locs := make([]topo.Location, size)
	for i := range locs {
		locs[i] = topo.Location{NodeIdx: 0, SocketIdx: int32(i % 2)}
	}
	return locs
}

// runToCompletion drives every rank's trigger function concurrently,
// pumping its own inbox and progress list until its request completes
// (spec §4.5.6: progress is host-pulled, one rank per goroutine here
// standing in for one process per rank).
func runToCompletion(cl *cluster, trigger func(rank int, g *Group) (*plan.Request, error)) error {
	var eg errgroup.Group
	for i := range cl.groups {
		i := i
		eg.Go(func() error {
			req, err := trigger(i, cl.groups[i])
			if err != nil {
				return err
			}
			for iter := 0; iter < 10000 && !req.RecvComp; iter++ {
				cl.lb.Pump(topo.Rank(i))
				cl.groups[i].Progress()
			}
			return nil
		})
	}
	return eg.Wait()
}

// S1: 4-rank barrier on a single node; every rank's trigger completes and
// no descriptor is left staged on destroy.
func TestE2EBarrier(t *testing.T) {
	cl := newCluster(singleNode(4), cfg.Default())
	err := runToCompletion(cl, func(rank int, g *Group) (*plan.Request, error) {
		return g.Barrier()
	})
	require.NoError(t, err)
	for _, g := range cl.groups {
		g.Destroy()
	}
}

// S2: 8-rank allreduce via recursive doubling. Rank r contributes r+1, so
// every rank's result must be the sum 1+...+8 = 36.
func TestE2EAllreduceRecursiveDoubling(t *testing.T) {
	cl := newCluster(singleNode(8), cfg.Default())
	dt := dtype.Predefined(dtype.KindInt32)
	recvs := make([][]byte, 8)
	err := runToCompletion(cl, func(rank int, g *Group) (*plan.Request, error) {
		send := make([]byte, dt.Extent)
		binary.LittleEndian.PutUint32(send, uint32(rank+1))
		recvs[rank] = make([]byte, dt.Extent)
		return g.Allreduce(send, recvs[rank], dt, &reduceop.SumInt32)
	})
	require.NoError(t, err)
	for rank, recv := range recvs {
		got := int32(binary.LittleEndian.Uint32(recv))
		require.Equalf(t, int32(36), got, "rank %d", rank)
	}
}

// S3: 6-rank allreduce of 10 f32 elements across three two-rank nodes,
// forced onto ring via config override. Rank r contributes r+1 in every
// element, so every rank's result must be 1+...+6 = 21 everywhere.
func TestE2EAllreduceRingThreeNodes(t *testing.T) {
	locs := []topo.Location{
		{NodeIdx: 0, SocketIdx: 0}, {NodeIdx: 0, SocketIdx: 0},
		{NodeIdx: 1, SocketIdx: 0}, {NodeIdx: 1, SocketIdx: 0},
		{NodeIdx: 2, SocketIdx: 0}, {NodeIdx: 2, SocketIdx: 0},
	}
	c := cfg.Default()
	c.AllreduceAlgorithm = 7 // AlgoAllreduceRing, forced for the ring-selection scenario
	cl := newCluster(locs, c)
	dt := dtype.Predefined(dtype.KindFloat32)
	const elems = 10
	recvs := make([][]byte, 6)
	err := runToCompletion(cl, func(rank int, g *Group) (*plan.Request, error) {
		send := make([]byte, elems*dt.Extent)
		for i := 0; i < elems; i++ {
			binary.LittleEndian.PutUint32(send[i*dt.Extent:], math.Float32bits(float32(rank+1)))
		}
		recvs[rank] = make([]byte, elems*dt.Extent)
		return g.Allreduce(send, recvs[rank], dt, &reduceop.SumFloat32)
	})
	require.NoError(t, err)
	for rank, recv := range recvs {
		for i := 0; i < elems; i++ {
			got := math.Float32frombits(binary.LittleEndian.Uint32(recv[i*dt.Extent:]))
			require.InDeltaf(t, float32(21), got, 1e-3, "rank %d elem %d", rank, i)
		}
	}
}

// S4: 4-rank broadcast of a buffer from root=2 using the left-most k-nomial
// tree at the inter-node fan-out degree (8 by default; the bcast builder
// does not switch to the intra-node degree for a single-node group, so
// root 2 sends to ranks 3, 0 and 1 directly); every rank's buffer must end
// up byte-identical to what root started with.
func TestE2EBroadcastKNTree(t *testing.T) {
	cl := newCluster(singleNode(4), cfg.Default())
	dt := dtype.Predefined(dtype.KindUint8)
	const root = 2
	bufs := make([][]byte, 4)
	err := runToCompletion(cl, func(rank int, g *Group) (*plan.Request, error) {
		buf := make([]byte, 64)
		if rank == root {
			for i := range buf {
				buf[i] = byte(i)
			}
		}
		bufs[rank] = buf
		return g.Bcast(buf, dt, topo.Rank(root))
	})
	require.NoError(t, err)
	for rank, buf := range bufs {
		require.Equalf(t, bufs[root], buf, "rank %d", rank)
	}
}

// S5: 4-rank alltoallv with uniform per-peer counts [1,2,3,4]; the plan
// cache must stay empty for alltoallv across every rank (spec §4.3 Open
// Question decision).
func TestE2EAlltoallvNotCached(t *testing.T) {
	cl := newCluster(singleNode(4), cfg.Default())
	dt := dtype.Predefined(dtype.KindUint8)
	counts := []int{1, 2, 3, 4}
	err := runToCompletion(cl, func(rank int, g *Group) (*plan.Request, error) {
		displs := make([]int, 4)
		off := 0
		for i, c := range counts {
			displs[i] = off
			off += c
		}
		send := make([]byte, off)
		recv := make([]byte, off)
		return g.Alltoallv(send, counts, displs, recv, counts, displs, dt)
	})
	require.NoError(t, err)
	for _, g := range cl.groups {
		require.Equal(t, 0, g.cache.Len())
	}
}

// S6: odd size=7 allreduce with a commutative op. Rabenseifner's
// reduce-scatter/allgather phases (algo/raben.go's RHIter) already handle a
// non-power-of-two group through its EXTRA/PROXY roles, so size=7 runs the
// real algorithm rather than tripping a fallback; the feasibility check
// this scenario exercises is the size<2 degenerate case, left in place as
// the one case Rabenseifner genuinely cannot run (a single-rank group has
// no halving to do).
func TestE2EAllreduceOddSizeRabenseifner(t *testing.T) {
	c := cfg.Default()
	c.AllreduceAlgorithm = 8 // AlgoAllreduceRabenseifner
	cl := newCluster(singleNode(7), c)
	dt := dtype.Predefined(dtype.KindInt32)
	recvs := make([][]byte, 7)
	err := runToCompletion(cl, func(rank int, g *Group) (*plan.Request, error) {
		send := make([]byte, dt.Extent)
		binary.LittleEndian.PutUint32(send, uint32(rank+1))
		recvs[rank] = make([]byte, dt.Extent)
		return g.Allreduce(send, recvs[rank], dt, &reduceop.SumInt32)
	})
	require.NoError(t, err)
	for rank, recv := range recvs {
		got := int32(binary.LittleEndian.Uint32(recv))
		require.Equalf(t, int32(28), got, "rank %d", rank)
	}
}
