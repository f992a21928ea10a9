package transport

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/ucg-hpc/ucg/internal/cmn/debug"
	"github.com/ucg-hpc/ucg/topo"
)

// AMHandler receives a staged active message (spec §4.5.5's "engine's AM
// handler"). Implemented by the executor; the transport never interprets
// payload bytes itself.
type AMHandler interface {
	HandleAM(h Header, payload []byte)
}

// Sender is the executor's view of a connected endpoint (spec §6): three
// send modes, one per fragmentation tier (§4.5.1).
type Sender interface {
	SendShort(ep topo.Endpoint, h Header, payload []byte) error
	SendBcopy(ep topo.Endpoint, h Header, payload []byte) error
	SendZcopy(ep topo.Endpoint, h Header, payload []byte, onComplete func()) error
}

// mailbox holds messages queued for one rank until that rank's owner pumps
// progress (spec §4.5.6: "Progress is pulled by the host; no internal
// thread").
type mailbox struct {
	mu   sync.Mutex
	msgs []queuedMsg
}

type queuedMsg struct {
	h       Header
	payload []byte
}

// Loopback is an in-memory transport connecting every rank registered via
// Register, used by the engine's own tests in place of a real RDMA fabric
// (the planning CLI uses its own null connector and sends nothing).
// Grounded on the corpus's transport/bundle
// in-process streaming idiom (other_examples/), adapted from byte-stream
// framing to one fixed 12-byte AM header per send.
type Loopback struct {
	mu       sync.RWMutex
	handlers map[topo.Rank]AMHandler
	boxes    map[topo.Rank]*mailbox
	caps     topo.EndpointCaps
}

// NewLoopback builds a transport with uniform endpoint capabilities applied
// to every connection (real transports would probe these per-NIC).
func NewLoopback(caps topo.EndpointCaps) *Loopback {
	return &Loopback{
		handlers: make(map[topo.Rank]AMHandler),
		boxes:    make(map[topo.Rank]*mailbox),
		caps:     caps,
	}
}

// Register binds a rank's AM handler; it must be called before that rank
// appears as a Connect/Send target.
func (l *Loopback) Register(r topo.Rank, h AMHandler) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.handlers[r] = h
	if l.boxes[r] == nil {
		l.boxes[r] = &mailbox{}
	}
}

// Connect implements topo.Connector: the loopback's endpoint handle is the
// absolute rank itself.
func (l *Loopback) Connect(r topo.Rank) (topo.Endpoint, topo.EndpointCaps, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if _, ok := l.handlers[r]; !ok {
		return nil, topo.EndpointCaps{}, errors.Errorf("loopback: rank %d not registered", r)
	}
	return r, l.caps, nil
}

func (l *Loopback) enqueue(ep topo.Endpoint, h Header, payload []byte) error {
	rank, ok := ep.(topo.Rank)
	debug.Assert(ok)
	l.mu.RLock()
	box := l.boxes[rank]
	l.mu.RUnlock()
	if box == nil {
		return errors.Errorf("loopback: rank %d not registered", rank)
	}
	cp := append([]byte(nil), payload...)
	box.mu.Lock()
	box.msgs = append(box.msgs, queuedMsg{h: h, payload: cp})
	box.mu.Unlock()
	return nil
}

func (l *Loopback) SendShort(ep topo.Endpoint, h Header, payload []byte) error {
	h.Flags = h.Flags &^ uint16(FlagZcopy)
	return l.enqueue(ep, h, payload)
}

func (l *Loopback) SendBcopy(ep topo.Endpoint, h Header, payload []byte) error {
	h.Flags = h.Flags &^ uint16(FlagZcopy)
	return l.enqueue(ep, h, payload)
}

// SendZcopy queues the message like any other send, then calls onComplete
// once it has been handed off, matching a real zero-copy NIC's async
// completion semantics closely enough for the engine's pending-counter
// bookkeeping to exercise the same code path.
func (l *Loopback) SendZcopy(ep topo.Endpoint, h Header, payload []byte, onComplete func()) error {
	h.Flags |= uint16(FlagZcopy)
	if err := l.enqueue(ep, h, payload); err != nil {
		return err
	}
	if onComplete != nil {
		onComplete()
	}
	return nil
}

// Pump delivers every message currently queued for rank r to its registered
// handler, in arrival order (spec §4.5.6: one progress tick processes
// whatever is already staged). It returns the number of messages delivered.
func (l *Loopback) Pump(r topo.Rank) int {
	l.mu.RLock()
	box := l.boxes[r]
	h := l.handlers[r]
	l.mu.RUnlock()
	if box == nil || h == nil {
		return 0
	}
	box.mu.Lock()
	pending := box.msgs
	box.msgs = nil
	box.mu.Unlock()
	for _, m := range pending {
		h.HandleAM(m.h, m.payload)
	}
	return len(pending)
}

// Pending reports how many messages are queued for r without delivering them.
func (l *Loopback) Pending(r topo.Rank) int {
	l.mu.RLock()
	box := l.boxes[r]
	l.mu.RUnlock()
	if box == nil {
		return 0
	}
	box.mu.Lock()
	defer box.mu.Unlock()
	return len(box.msgs)
}
