package exec

// DirFlags are the per-step direction/method bits (spec §4.5.2).
type DirFlags uint32

const (
	DirFirstStep DirFlags = 1 << iota
	DirLastStep
	DirRecvAfterSend
	DirRecvBeforeSend1
	DirRecv1BeforeSend
	DirLengthPerRequest
	DirSingleEndpoint
)

// ShapeFlags describe whether a step's sends are split/pipelined (spec §4.5.2).
type ShapeFlags uint32

const (
	ShapeFragmented ShapeFlags = 1 << iota
	ShapePipelined
)

// ResendFlags distinguish a step's first send attempt from a resend carried
// on the group's resend list (spec §4.5.2, §4.5.4 step 4).
type ResendFlags uint32

const (
	ResendFirstSend ResendFlags = 1 << iota
	ResendRetry
)

// Offset sentinels distinguishing "ready to send" from "failed, retry on
// progress" inside a pipelined step's fragment_pending array (spec §4.5.2).
const (
	OffsetPipelineReady   = -1
	OffsetPipelinePending = -2
)

// InitPending computes a step's starting pending counter (spec §4.5.3):
// `fragments_recv * ep_cnt` for the receive side, plus `fragments * ep_cnt`
// when the send side is zero-copy (send completions also count).
func InitPending(fragmentsRecv, fragments, epCnt int, zcopySend bool) int32 {
	p := int32(fragmentsRecv * epCnt)
	if zcopySend {
		p += int32(fragments * epCnt)
	}
	return p
}
