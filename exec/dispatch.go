package exec

import (
	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/dtype"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/reduceop"
	"github.com/ucg-hpc/ucg/topo"
)

// mutualMethods exchange with every one of a phase's peers in both
// directions at once — there is no separate "recv-from" and "send-to"
// subset the way a tree's fan-in/fan-out phases have (spec §4.2.1's
// waypoint table vs. §4.2.2/§4.2.3/§4.2.6's exchange-style methods).
func isMutual(m algo.Method) bool {
	switch m {
	case algo.Exchange, algo.ReduceRecursive, algo.ReduceScatterRecursive, algo.AllgatherRecursive:
		return true
	default:
		return false
	}
}

// isReduceMethod reports whether arrivals under this method combine into
// RecvBuffer via the op's ReduceFn rather than a plain copy (spec §4.2
// table's Reduce*/ReduceScatter* rows).
func isReduceMethod(m algo.Method) bool {
	switch m {
	case algo.ReduceTerminal, algo.ReduceWaypoint, algo.ReduceRecursive, algo.ReduceScatterRecursive, algo.ReduceScatterRing:
		return true
	default:
		return false
	}
}

// isVKind reports whether a collective's phases move per-peer slices sized
// by SendCounts/RecvCounts/Displs rather than a single shared buffer (spec
// §3 "Collective Args": the four variable-length collectives).
func isVKind(k plan.CollectiveKind) bool {
	switch k {
	case plan.KindScatterv, plan.KindGatherv, plan.KindAllgatherv, plan.KindAlltoallv:
		return true
	default:
		return false
	}
}

// roleSplit partitions a phase's peers into its receive-from and send-to
// subsets, following the builder convention that peers are ordered
// [recv-from...][send-to...] (spec §4.5.4's "method table" drives which
// subset is used which way).
func roleSplit(ph *plan.Phase) (recvFrom, sendTo []algo.Peer) {
	if isMutual(ph.Method) {
		return ph.Peers, ph.Peers
	}
	switch ph.Method {
	case algo.SendTerminal, algo.ScatterTerminal:
		return nil, ph.Peers
	case algo.RecvTerminal, algo.ReduceTerminal:
		return ph.Peers, nil
	default: // BcastWaypoint, GatherWaypoint, ScatterWaypoint, ReduceWaypoint, Ring/Bruck exchange pairs
		n := ph.EPCountRecv
		if n > len(ph.Peers) {
			n = len(ph.Peers)
		}
		end := n + ph.EPCountSend
		if end > len(ph.Peers) {
			end = len(ph.Peers)
		}
		return ph.Peers[:n], ph.Peers[n:end]
	}
}

// isWaypointMethod reports whether a phase must finish receiving from its
// recvFrom set before it is allowed to send to sendTo — the relay behavior
// spec §4.2.1 names as the whole point of an intermediate tree node
// (BcastWaypoint forwards what it received; Gather/ReduceWaypoint forward
// what they accumulated; ScatterWaypoint forwards the slice each child owns).
func isWaypointMethod(m algo.Method) bool {
	switch m {
	case algo.BcastWaypoint, algo.GatherWaypoint, algo.ReduceWaypoint, algo.ScatterWaypoint:
		return true
	default:
		return false
	}
}

func elemSize(dt dtype.Datatype) int {
	if dt.Extent > 0 {
		return dt.Extent
	}
	return 1
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// blockRange splits count elements into totalBlocks contiguous blocks,
// spreading the remainder over the lowest-indexed blocks, and returns the
// element range owned by blockIndex (spec §4.2.4's ring block convention,
// shared here with any other fixed-block-count method).
func blockRange(count, totalBlocks, blockIndex int) (start, length int) {
	if totalBlocks <= 0 {
		return 0, count
	}
	base := count / totalBlocks
	rem := count % totalBlocks
	start = blockIndex*base + minInt(blockIndex, rem)
	length = base
	if blockIndex < rem {
		length++
	}
	return
}

// sendRange returns the byte offset/length of this step's outbound payload
// (spec §4.5.1/§4.5.4): the whole working buffer for plain tree/exchange
// methods, or the algorithm-specific sub-block for halving/ring methods
// whose send and receive sides cover different ranges.
func sendRange(op *plan.Op, ph *plan.Phase, step *plan.Step) (int, int) {
	args := &op.Args
	ext := elemSize(args.Datatype)
	switch ph.Method {
	case algo.ReduceScatterRecursive, algo.AllgatherRecursive:
		if step.SendLength > 0 {
			return step.SendOffset * ext, step.SendLength * ext
		}
	}
	return 0, len(step.SendBuffer)
}

// recvPlacement returns the byte offset/length at which an arrival from a
// given recv-from peer lands in step.RecvBuffer (spec §4.5.4 step 6,
// §4.5.5 step 3's `cb(request, remote_offset, payload, length)`).
func recvPlacement(op *plan.Op, ph *plan.Phase, step *plan.Step, myRank topo.Rank, senderRank topo.Rank) (int, int) {
	args := &op.Args
	ext := elemSize(args.Datatype)

	if isVKind(args.Kind) {
		if int(senderRank) < len(args.RecvDispls) && int(senderRank) < len(args.RecvCounts) {
			return args.RecvDispls[senderRank] * ext, args.RecvCounts[senderRank] * ext
		}
		return 0, len(step.RecvBuffer)
	}

	switch ph.Method {
	case algo.ReduceScatterRecursive, algo.AllgatherRecursive:
		if step.FragmentLength > 0 {
			return step.IterOffset * ext, step.FragmentLength * ext
		}
	case algo.ReduceScatterRing, algo.AllgatherRing:
		ri := algo.NewRingIter(ph.Extra.TotalBlocks, myRank)
		var blk int
		if ph.Method == algo.ReduceScatterRing {
			blk = ri.RecvBlockReduceScatter(ph.Extra.BlockIndex)
		} else {
			blk = ri.RecvBlockAllgather(ph.Extra.BlockIndex)
		}
		start, length := blockRange(args.Count, ph.Extra.TotalBlocks, blk)
		return start * ext, length * ext
	}
	// Generic tree/exchange methods send the whole working buffer, possibly
	// split into several fragments (spec §4.5.1); the sender carries each
	// fragment's byte offset in RemoteOffset (there is no per-sender
	// disambiguation to do here, since a fixed-count collective's arrivals
	// all land in the same buffer regardless of which peer they came from),
	// and senderRank is that same value reinterpreted as a byte count.
	off := int(senderRank)
	if off < 0 || off >= len(step.RecvBuffer) {
		off = 0
	}
	length := len(step.RecvBuffer) - off
	return off, length
}

// sendPlacementFor returns the byte offset/length of the slice sent to a
// specific send-to peer (spec §4.5.4 step 2): the v-collectives slice by
// that peer's own SendCounts/SendDispls entry, ring/halving methods slice
// by their algorithm-specific block, everything else sends the whole
// working buffer.
func sendPlacementFor(op *plan.Op, ph *plan.Phase, step *plan.Step, myRank topo.Rank, peerRank topo.Rank) (int, int) {
	args := &op.Args
	ext := elemSize(args.Datatype)

	if isVKind(args.Kind) {
		if int(peerRank) < len(args.SendDispls) && int(peerRank) < len(args.SendCounts) {
			return args.SendDispls[peerRank] * ext, args.SendCounts[peerRank] * ext
		}
		return 0, len(step.SendBuffer)
	}

	switch ph.Method {
	case algo.ReduceScatterRing, algo.AllgatherRing:
		ri := algo.NewRingIter(ph.Extra.TotalBlocks, myRank)
		var blk int
		if ph.Method == algo.ReduceScatterRing {
			blk = ri.SendBlockReduceScatter(ph.Extra.BlockIndex)
		} else {
			blk = ri.SendBlockAllgather(ph.Extra.BlockIndex)
		}
		start, length := blockRange(args.Count, ph.Extra.TotalBlocks, blk)
		return start * ext, length * ext
	}
	off, length := sendRange(op, ph, step)
	return off, length
}

// applyArrival copies or reduces an arrived payload into step.RecvBuffer at
// its placement (spec §4.5.4 step 6, §4.5.5 step 3), honoring ph.IsSwap so
// a non-commutative operator still applies in the group's canonical rank
// order (spec §4.2.1, testable property #7) even though reduceop.ReduceFn's
// contract is fixed as `dst = dst OP src`.
func applyArrival(op *plan.Op, ph *plan.Phase, step *plan.Step, myRank, senderRank topo.Rank, payload []byte) {
	if len(step.RecvBuffer) == 0 || len(payload) == 0 {
		return
	}
	off, length := recvPlacement(op, ph, step, myRank, senderRank)
	if length <= 0 || length > len(payload) {
		length = len(payload)
	}
	if off < 0 || off+length > len(step.RecvBuffer) {
		if off >= len(step.RecvBuffer) {
			return
		}
		length = len(step.RecvBuffer) - off
	}
	if length <= 0 {
		return
	}
	src := payload[:length]
	dst := step.RecvBuffer[off : off+length]

	args := &op.Args
	if isReduceMethod(ph.Method) && args.ReduceOp != nil {
		count := length / elemSize(args.Datatype)
		applyReduce(args.ReduceOp, src, dst, count, args.Datatype, ph.IsSwap)
		return
	}
	copy(dst, src)
}

func applyReduce(op *reduceop.Op, payload, dst []byte, count int, dt dtype.Datatype, swap bool) {
	if !swap {
		op.Reduce(payload, dst, count, dt)
		return
	}
	// Preserve operand order (incoming OP mine) for a non-commutative op:
	// fold the old local value into the freshly-arrived one instead of the
	// other way around.
	old := append([]byte(nil), dst...)
	copy(dst, payload)
	op.Reduce(old, dst, count, dt)
}
