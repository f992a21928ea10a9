package exec

import (
	"github.com/pkg/errors"

	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/internal/cmn/debug"
	"github.com/ucg-hpc/ucg/internal/cmn/nlog"
	"github.com/ucg-hpc/ucg/internal/metrics"
	"github.com/ucg-hpc/ucg/plan"
	"github.com/ucg-hpc/ucg/topo"
	"github.com/ucg-hpc/ucg/transport"
)

// Status is step_execute's return value (spec §4.5 "input is a Request;
// its outputs are ... possibly the completion of the op").
type Status int

const (
	StatusInProgress Status = iota
	StatusComplete
	StatusError
)

// Executor runs one group's collectives: it owns the per-coll-id slot
// table, the resend list, and the transport sender (spec §4.5, §5
// "single-threaded cooperative per group"). Grounded on xact/xs/tcb.go's
// per-xaction request bookkeeping (pending send/recv counters driving
// xaction completion), generalized to the engine's per-step pending model.
type Executor struct {
	groupID uint16
	group   *topo.Group
	sender  transport.Sender
	metrics *metrics.Metrics

	slots    [plan.MaxConcurrentOps]*plan.CompSlot
	resend   []*plan.Request
	nextColl uint8
	localIDs uint16
}

func NewExecutor(groupID uint16, g *topo.Group, sender transport.Sender, m *metrics.Metrics) *Executor {
	e := &Executor{groupID: groupID, group: g, sender: sender, metrics: m}
	for i := range e.slots {
		e.slots[i] = &plan.CompSlot{Pool: plan.NewDescriptorPool()}
	}
	return e
}

// AllocCollID hands out the next coll-id from the 256-wide circular counter
// (spec §3 "Op": "coll_id from a 256-element circular counter").
func (e *Executor) AllocCollID() uint8 {
	id := e.nextColl
	e.nextColl++
	return id
}

func (e *Executor) slotFor(collID uint8) *plan.CompSlot {
	return e.slots[int(collID)%plan.MaxConcurrentOps]
}

// stepDir reports a step's position within its op (spec §4.5.2's per-step
// direction bits); stepExecute reads DirLastStep to count the op's final
// step in metrics.
func stepDir(idx, total, peerCount int) DirFlags {
	var d DirFlags
	if idx == 0 {
		d |= DirFirstStep
	}
	if idx == total-1 {
		d |= DirLastStep
	}
	if peerCount == 1 {
		d |= DirSingleEndpoint
	}
	return d
}

// Trigger begins executing op's first step (spec §4.3/§4.5 entry point).
func (e *Executor) Trigger(op *plan.Op) (*plan.Request, error) {
	if op.Plan.PhaseCount() == 0 {
		op.Done = true
		return &op.Req, nil
	}
	op.Req.Cur = &op.Steps[0]
	slot := e.slotFor(op.CollID)
	slot.CollID = op.CollID
	slot.Req = &op.Req
	if e.metrics != nil {
		e.metrics.OpTriggered(op.Plan.Kind.String())
	}
	status := e.stepExecute(&op.Req)
	if status == StatusError {
		return &op.Req, errors.New("exec: step execution failed")
	}
	return &op.Req, nil
}

// stepExecute runs the execution procedure for the request's current step
// (spec §4.5.4): compute this step's recv-from/send-to roles, post sends
// unless the method must forward what it receives first, drain anything
// that arrived early, and advance once every arrival and send has landed.
func (e *Executor) stepExecute(req *plan.Request) Status {
	op := req.Op
	step := req.Cur
	debug.Assert(step != nil)
	ph := step.Phase

	if step.Fragments == 0 {
		e.initStep(req, step, ph)
	}

	recvFrom, sendTo := roleSplit(ph)
	dir := stepDir(ph.StepIndex, len(op.Steps), len(recvFrom)+len(sendTo))
	if dir&DirLastStep != 0 && e.metrics != nil {
		e.metrics.FragmentSent("final-step")
	}

	waypoint := isWaypointMethod(ph.Method)
	if !waypoint && step.Flags&plan.StepFlagSendPosted == 0 {
		if err := e.postAll(req, step, ph, sendTo); err != nil {
			return StatusInProgress
		}
		step.Flags |= plan.StepFlagSendPosted
	}

	slot := e.slotFor(op.CollID)
	slot.LocalID = e.localIDFor(op, ph)
	slot.StepIdx = uint8(ph.StepIndex)
	slot.CB = func(d *plan.MsgDescriptor) {
		senderRank := topo.Rank(d.Header.RemoteOffset)
		applyArrival(op, ph, step, e.group.MyRank(), senderRank, d.Payload)
		req.Pending--
		slot.Pool.Put(d)
	}

	return e.drainAndCheck(req, ph, step, sendTo, waypoint)
}

// initStep seeds a step's fragment/pending bookkeeping the first time it
// runs (spec §4.5.3). The representative fragment count is derived from
// the first send-to peer's slice, since every non-v-collective method sends
// a same-shaped payload to each of its send-to peers.
func (e *Executor) initStep(req *plan.Request, step *plan.Step, ph *plan.Phase) {
	op := req.Op
	if ph.InitPhaseCB != nil {
		ph.InitPhaseCB(step, op.Args)
	}
	recvFrom, sendTo := roleSplit(ph)
	myRank := e.group.MyRank()

	vKind := isVKind(op.Args.Kind)
	step.Fragments = 1
	sendZcopy := false
	if !vKind && len(sendTo) > 0 {
		_, repLen := sendPlacementFor(op, ph, step, myRank, sendTo[0].Rank)
		frag := ComputeFragmentation(repLen, elemSize(op.Args.Datatype), ph.SendThresh)
		if frag.Fragments > 0 {
			step.Fragments = frag.Fragments
		}
		sendZcopy = frag.Mode == SendZcopy
	}

	step.FragmentsRecv = 1
	if !vKind && len(recvFrom) > 0 {
		_, repLen := recvPlacement(op, ph, step, myRank, recvFrom[0].Rank)
		rf := ComputeFragmentation(repLen, elemSize(op.Args.Datatype), ph.RecvThresh)
		if rf.Fragments > 0 {
			step.FragmentsRecv = rf.Fragments
		}
	}

	switch {
	case len(recvFrom) > 0:
		req.Pending = InitPending(step.FragmentsRecv, step.Fragments, len(recvFrom), false)
	case len(sendTo) > 0:
		// A pure send-only terminal (spec §4.2.1's SendTerminal/ScatterTerminal
		// leaf) has nothing to receive; its own zero-copy send completions are
		// what the pending counter tracks instead (spec §4.5.3's zcopy clause).
		req.Pending = InitPending(0, step.Fragments, len(sendTo), sendZcopy)
	default:
		req.Pending = 0
	}
}

// postAll posts this step's outbound payload to every peer in peers,
// splitting each peer's slice into fragments per spec §4.5.1. step.IterEP
// and step.SendCursor form a restartable cursor (spec §4.5.2's
// fragment_pending idiom): a mid-loop send failure leaves them where they
// stopped so Progress's retry resumes instead of re-sending completed work.
func (e *Executor) postAll(req *plan.Request, step *plan.Step, ph *plan.Phase, peers []algo.Peer) error {
	op := req.Op
	myRank := e.group.MyRank()
	vKind := isVKind(op.Args.Kind)
	dt := op.Args.Datatype
	resend := step.Flags&plan.StepFlagResend != 0
	recvFrom, _ := roleSplit(ph)
	countsSend := len(recvFrom) == 0

	for ; step.IterEP < len(peers); step.IterEP++ {
		peer := peers[step.IterEP]
		off, length := sendPlacementFor(op, ph, step, myRank, peer.Rank)
		buf := sliceOrEmpty(step.SendBuffer, off, length)

		h := transport.Header{
			GroupID: e.groupID, CollID: op.CollID, StepIdx: uint8(ph.StepIndex),
			LocalID: e.localIDFor(op, ph),
		}
		if vKind {
			h.RemoteOffset = uint32(myRank)
		}

		if len(buf) == 0 {
			if err := e.send(req, peer, h, nil, SendShort, countsSend); err != nil {
				e.queueResend(req, step, resend)
				return err
			}
			continue
		}

		frag := ComputeFragmentation(len(buf), elemSize(dt), ph.SendThresh)
		shape := ShapeFlags(0)
		if frag.Fragments > 1 {
			shape |= ShapeFragmented
		}
		if len(peers) > 1 {
			shape |= ShapePipelined
		}

		for step.SendCursor < len(buf) {
			fLen := frag.FragmentLength
			if fLen <= 0 || step.SendCursor+fLen > len(buf) {
				fLen = len(buf) - step.SendCursor
			}
			chunk := buf[step.SendCursor : step.SendCursor+fLen]
			if !vKind {
				h.RemoteOffset = uint32(off + step.SendCursor)
			}

			cursorState := OffsetPipelineReady
			if err := e.send(req, peer, h, chunk, frag.Mode, countsSend); err != nil {
				cursorState = OffsetPipelinePending
				nlog.Infof("exec: fragment send deferred coll=%d step=%d peer=%d offset=%d state=%d shape=%d",
					op.CollID, ph.StepIndex, peer.Rank, step.SendCursor, cursorState, shape)
				e.queueResend(req, step, resend)
				return err
			}
			step.SendCursor += fLen
		}
		step.SendCursor = 0
	}
	return nil
}

// send dispatches one already-sliced chunk using the mode frag selected.
// For a zero-copy send on a send-only step (countsSend) the completion
// callback decrements the step's pending counter (spec §4.5.3's "send
// completions also count"); otherwise the callback does nothing.
func (e *Executor) send(req *plan.Request, peer algo.Peer, h transport.Header, chunk []byte, mode SendMode, countsSend bool) error {
	var err error
	switch mode {
	case SendZcopy:
		onComplete := func() {}
		if countsSend {
			onComplete = func() { req.Pending-- }
		}
		err = e.sender.SendZcopy(peer.Ep, h, chunk, onComplete)
	case SendBcopy:
		err = e.sender.SendBcopy(peer.Ep, h, chunk)
	default:
		err = e.sender.SendShort(peer.Ep, h, chunk)
	}
	if err == nil && e.metrics != nil {
		e.metrics.FragmentSent(mode.String())
	}
	return err
}

func (e *Executor) queueResend(req *plan.Request, step *plan.Step, alreadyQueued bool) {
	kind := ResendFirstSend
	if alreadyQueued {
		kind = ResendRetry
	} else {
		step.Flags |= plan.StepFlagResend
	}
	nlog.Infof("exec: queued send for progress, coll=%d resend_kind=%d", req.Op.CollID, kind)
	e.resend = append(e.resend, req)
}

func sliceOrEmpty(buf []byte, off, length int) []byte {
	if length <= 0 || off < 0 || off >= len(buf) {
		return nil
	}
	if off+length > len(buf) {
		length = len(buf) - off
	}
	return buf[off : off+length]
}

func (e *Executor) localIDFor(op *plan.Op, ph *plan.Phase) uint16 {
	return uint16(op.CollID)<<8 | uint16(ph.StepIndex)
}

// drainAndCheck consumes any arrivals this step's local-id already staged
// while it was waiting behind an earlier step, then decides whether a
// waypoint method may now forward what it has accumulated (spec §4.5.4
// step 5's "once all of a node's recv-from arrivals land, it forwards").
func (e *Executor) drainAndCheck(req *plan.Request, ph *plan.Phase, step *plan.Step, sendTo []algo.Peer, waypoint bool) Status {
	op := req.Op
	slot := e.slotFor(op.CollID)

	remaining := slot.MsgHead[:0]
	for _, d := range slot.MsgHead {
		if d.Header.LocalID == slot.LocalID {
			slot.CB(d)
		} else {
			remaining = append(remaining, d)
		}
	}
	slot.MsgHead = remaining

	if req.Pending > 0 {
		return StatusInProgress
	}
	return e.finishStep(req, ph, step, sendTo, waypoint)
}

// finishStep posts a waypoint's deferred forward once its inputs are fully
// in, then advances to the next phase.
func (e *Executor) finishStep(req *plan.Request, ph *plan.Phase, step *plan.Step, sendTo []algo.Peer, waypoint bool) Status {
	if waypoint && step.Flags&plan.StepFlagSendPosted == 0 {
		if err := e.postAll(req, step, ph, sendTo); err != nil {
			return StatusInProgress
		}
		step.Flags |= plan.StepFlagSendPosted
	}
	return e.advance(req)
}

func (e *Executor) advance(req *plan.Request) Status {
	op := req.Op
	idx := req.Cur.Phase.StepIndex
	if idx+1 >= len(op.Steps) {
		op.Done = true
		req.RecvComp = true
		slot := e.slotFor(op.CollID)
		slot.CB = nil
		slot.Req = nil
		if e.metrics != nil {
			e.metrics.OpCompleted(op.Plan.Kind.String(), "ok")
		}
		return StatusComplete
	}
	req.Cur = &op.Steps[idx+1]
	return e.stepExecute(req)
}

// HandleAM implements transport.AMHandler (spec §4.5.5).
func (e *Executor) HandleAM(h transport.Header, payload []byte) {
	slot := e.slotFor(h.CollID)
	if slot.CB != nil && h.LocalID == slot.LocalID {
		d := slot.Pool.Get()
		d.Header = plan.MsgHeader{
			GroupID: h.GroupID, CollID: h.CollID, StepIdx: h.StepIdx,
			RemoteOffset: h.RemoteOffset, LocalID: h.LocalID,
		}
		d.Length = len(payload)
		d.Payload = payload
		slot.CB(d)
		if slot.Req != nil && slot.Req.Pending <= 0 {
			ph := slot.Req.Cur.Phase
			_, sendTo := roleSplit(ph)
			e.finishStep(slot.Req, ph, slot.Req.Cur, sendTo, isWaypointMethod(ph.Method))
		}
		return
	}
	d := slot.Pool.Get()
	d.Header = plan.MsgHeader{
		GroupID: h.GroupID, CollID: h.CollID, StepIdx: h.StepIdx,
		RemoteOffset: h.RemoteOffset, LocalID: h.LocalID,
	}
	d.Length = len(payload)
	d.Payload = payload
	slot.MsgHead = append(slot.MsgHead, d)
	if len(slot.MsgHead) > 0 {
		nlog.Infof("exec: staged unmatched arrival group=%d coll=%d step=%d", h.GroupID, h.CollID, h.StepIdx)
	}
}

// Progress implements spec §4.5.6: splice the resend list and retry each
// queued request once.
func (e *Executor) Progress() int {
	pending := e.resend
	e.resend = nil
	work := 0
	for _, req := range pending {
		if e.stepExecute(req) != StatusInProgress {
			work++
		}
	}
	return work
}

// Drain releases every staged-but-unconsumed descriptor across all slots,
// logging a warning per spec §3's "Slot msg" lifecycle ("drained on group
// destroy, logging a warning").
func (e *Executor) Drain() {
	for _, slot := range e.slots {
		for _, d := range slot.MsgHead {
			nlog.Warningf("exec: dropping unconsumed descriptor coll=%d step=%d", d.Header.CollID, d.Header.StepIdx)
			slot.Pool.Put(d)
		}
		slot.MsgHead = nil
	}
}
