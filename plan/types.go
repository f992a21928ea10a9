// Package plan holds the engine's immutable plan/phase data model (spec
// §3) and the per-invocation Op/Step/Request state the executor drives.
// Grounded on xact/xs/tcb.go's factory/renew idiom (xreg.RenewBase,
// interface-guard pattern), generalized from "one xaction per bucket
// operation" to "one plan per (kind, algo, root)".
package plan

import (
	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/dtype"
	"github.com/ucg-hpc/ucg/reduceop"
	"github.com/ucg-hpc/ucg/topo"
)

// CollectiveKind tags which of the eight MPI-style collectives a plan or op
// belongs to (spec §3 "Collective Args").
type CollectiveKind int

const (
	KindBarrier CollectiveKind = iota
	KindBcast
	KindReduce
	KindAllreduce
	KindScatterv
	KindGatherv
	KindAllgatherv
	KindAlltoallv
)

func (k CollectiveKind) String() string {
	switch k {
	case KindBarrier:
		return "barrier"
	case KindBcast:
		return "bcast"
	case KindReduce:
		return "reduce"
	case KindAllreduce:
		return "allreduce"
	case KindScatterv:
		return "scatterv"
	case KindGatherv:
		return "gatherv"
	case KindAllgatherv:
		return "allgatherv"
	case KindAlltoallv:
		return "alltoallv"
	default:
		return "unknown"
	}
}

// Thresholds are the per-endpoint cutover points derived from transport
// capabilities minus the AM header size, aligned down to a 16-byte multiple
// (spec §3 "Phase" fields: send_thresh/recv_thresh).
type Thresholds struct {
	MaxShortOne int
	MaxShortMax int
	MaxBcopyOne int
	MaxBcopyMax int
	MaxZcopyOne int
	MDMaxReg    int
}

// PhaseExtra carries algorithm-specific data a phase needs that doesn't fit
// the common fields (spec §3 "extra").
type PhaseExtra struct {
	BlockIndex     int
	BlockCount     int
	TotalBlocks    int
	RecvStartBlock int
	PeerStartBlock int
	IsPartial      bool
	IsVariableLen  bool // alltoallv
	PackedRank     int  // Bruck-style
}

// InitPhaseCB recomputes a phase's live offsets from the current op's args
// just before execution (spec §3, §9's "phase view" design note): used by
// Rabenseifner and Plummer, whose block boundaries depend on the live
// element count rather than anything fixed at plan-build time.
type InitPhaseCB func(step *Step, args CollArgs)

// Phase is one executable unit of a plan (spec §3).
type Phase struct {
	StepIndex   int
	Method      algo.Method
	Peers       []algo.Peer
	EPCountTotal, EPCountSend, EPCountRecv int
	SendThresh  Thresholds
	RecvThresh  Thresholds
	IsSwap      bool
	Extra       PhaseExtra
	InitPhaseCB InitPhaseCB
}

// Plan is immutable once built (spec §3). It is reusable across invocations
// whose (kind, algo, root, datatype-is-contig) match; per spec §4.2.6 and
// §9 "Open questions", it is never reusable/cached for alltoallv because
// per-invocation counts differ.
type Plan struct {
	Kind          CollectiveKind
	AlgorithmID   algo.ID
	Root          topo.Rank
	DatatypeContig bool
	Phases        []Phase
	StepCount     int
	EndpointCount int
}

func (p *Plan) PhaseCount() int { return len(p.Phases) }

// StepFlags is a bit-field describing a Step's current progress (spec §4.5.2).
type StepFlags uint32

const (
	StepFlagSendPosted StepFlags = 1 << iota
	StepFlagRecvPosted
	StepFlagSendDone
	StepFlagRecvDone
	StepFlagZcopy
	StepFlagBcopy
	StepFlagShort
	StepFlagResend
)

// ZcopyState tracks a step's zero-copy registration bookkeeping (spec §3).
type ZcopyState struct {
	MemH     uintptr
	ZComp    []uintptr
	NumStore int
}

// Step is one phase's live execution state for a given Op (spec §3).
type Step struct {
	Phase          *Phase
	Flags          StepFlags
	IterEP         int
	IterOffset     int
	// SendCursor is the step executor's own restartable byte offset into
	// the current send-to peer's slice (spec §4.5.2's fragment_pending
	// idiom), kept separate from IterOffset because Rabenseifner
	// phases already use IterOffset for their algorithm-specific receive
	// block offset (set by InitPhaseCB before any fragment is sent).
	SendCursor     int
	FragmentLength int
	Fragments      int
	FragmentsRecv  int
	SendBuffer     []byte
	RecvBuffer     []byte
	BufferLength   int
	// SendOffset/SendLength are a step's outbound element range, counted in
	// elements (the executor scales them by the datatype extent), used when
	// a phase's send side covers a different sub-range of the working
	// buffer than its receive side (spec §4.2.3 halving). Ring phases
	// compute their blocks separately. Zero length means "whole buffer".
	SendOffset     int
	SendLength     int
	AMHeader       [12]byte
	Zcopy          ZcopyState
	PackState      any
	ContigBuffer   []byte
}

// Request is the in-flight handle for a running op (spec §3). `Pending` is
// decremented by both send-completion callbacks and receive callbacks;
// the op completes when it reaches zero and RecvComp is set.
type Request struct {
	Op         *Op
	Pending    int32
	RecvComp   bool
	SendListNext *Request
	Cur        *Step
}

// Op is a scheduled collective instance (spec §3). `CollID` comes from a
// 256-element circular counter that is the plan's concurrency ceiling
// (spec: MAX_CONCURRENT_OPS = 256, matching Comp-Slot's table size).
type Op struct {
	Plan     *Plan
	Steps    []Step
	Args     CollArgs
	Done     bool
	CollID   uint8
	Req      Request
}

// MaxConcurrentOps bounds the per-group comp-slot table and the coll-id
// circular counter (spec §3, §6.1 "Coll-id / Step-idx": 8-bit counters).
const MaxConcurrentOps = 256

// MsgHeader is the 8-byte wire header accompanying a staged arrival (spec §6).
type MsgHeader struct {
	GroupID      uint16
	CollID       uint8
	StepIdx      uint8
	RemoteOffset uint32
	LocalID      uint16
}

// MsgDescriptor is one FIFO entry in a Comp-Slot's msg_head (spec §3):
// created on an unmatched arrival, released when consumed or drained on
// group destroy.
type MsgDescriptor struct {
	Header    MsgHeader
	Length    int
	Payload   []byte
	ReleaseFn func()
}

// CompSlot is per-group, per-concurrent-op-id receive-side state (spec §3).
// A group has MaxConcurrentOps slots, indexed by coll_id mod MaxConcurrentOps.
type CompSlot struct {
	MsgHead []*MsgDescriptor
	Pool    *DescriptorPool
	CB      func(*MsgDescriptor)
	CollID  uint8
	StepIdx uint8
	LocalID uint16
	Req     *Request
}

// DescriptorPool recycles MsgDescriptor values to avoid per-arrival
// allocation on the hot path (spec §4.3 step 5's memory-pool idiom applied
// to the receive side).
type DescriptorPool struct {
	free []*MsgDescriptor
}

func NewDescriptorPool() *DescriptorPool { return &DescriptorPool{} }

func (p *DescriptorPool) Get() *MsgDescriptor {
	if n := len(p.free); n > 0 {
		d := p.free[n-1]
		p.free = p.free[:n-1]
		*d = MsgDescriptor{}
		return d
	}
	return &MsgDescriptor{}
}

func (p *DescriptorPool) Put(d *MsgDescriptor) {
	p.free = append(p.free, d)
}

// CollArgs is the tagged record carrying one collective invocation's
// buffers, counts, datatype, optional operator and root (spec §3). Fields
// unused by a given Kind are left zero.
type CollArgs struct {
	Kind       CollectiveKind
	SendBuf    []byte
	RecvBuf    []byte
	Count      int        // fixed-count collectives
	SendCounts []int      // v-collectives: per-peer counts
	RecvCounts []int
	SendDispls []int
	RecvDispls []int
	Root       topo.Rank
	InPlace    bool
	Datatype   dtype.Datatype // spec §3 "Collective Args": the operand element type
	ReduceOp   *reduceop.Op   // spec §3: nil for non-reduction kinds
}
