// Package transport implements the active-message wire framing and an
// in-memory loopback transport used by the engine's own tests (spec
// §4.5.5, §6). The per-group slot/demux table itself
// lives in package exec, which already depends on both plan and transport;
// keeping it there avoids a transport->plan import back-edge. Grounded on
// the corpus's transport/bundle wiring style (other_examples/), adapted
// from "streaming object data between targets" to "staged collective
// fragments between ranks".
package transport

import "encoding/binary"

// HeaderSize is the fixed-size wire header spec §6 describes: group_id,
// coll_id, step_idx, remote_offset, local_id and flags packed without
// padding (2+1+1+4+2+2 bytes).
const HeaderSize = 12

// Header is the on-wire active-message header (spec §3 "Message Descriptor").
type Header struct {
	GroupID      uint16
	CollID       uint8
	StepIdx      uint8
	RemoteOffset uint32
	LocalID      uint16
	Flags        uint16
}

// AMFlag marks transport-owned buffer ownership and zero-copy completion
// bits consulted by the demux (spec §4.5.5).
type AMFlag uint16

const (
	FlagDesc AMFlag = 1 << iota // transport owns the payload buffer
	FlagZcopy
)

// Encode serializes h into a HeaderSize-byte wire header, little-endian.
func (h Header) Encode() [HeaderSize]byte {
	var buf [HeaderSize]byte
	binary.LittleEndian.PutUint16(buf[0:2], h.GroupID)
	buf[2] = h.CollID
	buf[3] = h.StepIdx
	binary.LittleEndian.PutUint32(buf[4:8], h.RemoteOffset)
	binary.LittleEndian.PutUint16(buf[8:10], h.LocalID)
	binary.LittleEndian.PutUint16(buf[10:12], h.Flags)
	return buf
}

// DecodeHeader parses a HeaderSize-byte wire header. Callers must ensure
// len(buf) >= HeaderSize.
func DecodeHeader(buf []byte) Header {
	return Header{
		GroupID:      binary.LittleEndian.Uint16(buf[0:2]),
		CollID:       buf[2],
		StepIdx:      buf[3],
		RemoteOffset: binary.LittleEndian.Uint32(buf[4:8]),
		LocalID:      binary.LittleEndian.Uint16(buf[8:10]),
		Flags:        binary.LittleEndian.Uint16(buf[10:12]),
	}
}

func (h Header) HasFlag(f AMFlag) bool { return AMFlag(h.Flags)&f != 0 }
