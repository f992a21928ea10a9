package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHeaderRoundtrip(t *testing.T) {
	h := Header{GroupID: 7, CollID: 200, StepIdx: 5, RemoteOffset: 0xdeadbeef, LocalID: 4321, Flags: uint16(FlagDesc | FlagZcopy)}
	wire := h.Encode()
	got := DecodeHeader(wire[:])
	require.Equal(t, h, got)
	require.True(t, got.HasFlag(FlagDesc))
	require.True(t, got.HasFlag(FlagZcopy))
}

func TestHeaderFlagsAreIndependent(t *testing.T) {
	h := Header{Flags: uint16(FlagDesc)}
	require.True(t, h.HasFlag(FlagDesc))
	require.False(t, h.HasFlag(FlagZcopy))
}
