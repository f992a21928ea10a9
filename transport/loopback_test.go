package transport

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/topo"
)

type recordingHandler struct {
	got []Header
}

func (r *recordingHandler) HandleAM(h Header, payload []byte) { r.got = append(r.got, h) }

func TestLoopbackConnectRequiresRegistration(t *testing.T) {
	lb := NewLoopback(topo.EndpointCaps{MaxShort: 256})
	_, _, err := lb.Connect(0)
	require.Error(t, err)
}

func TestLoopbackDeliversOnPump(t *testing.T) {
	lb := NewLoopback(topo.EndpointCaps{MaxShort: 256})
	var h0, h1 recordingHandler
	lb.Register(0, &h0)
	lb.Register(1, &h1)

	ep, _, err := lb.Connect(1)
	require.NoError(t, err)
	require.NoError(t, lb.SendShort(ep, Header{GroupID: 1, CollID: 2, LocalID: 9}, []byte("hi")))
	require.Equal(t, 1, lb.Pending(1))
	require.Equal(t, 0, len(h1.got))

	n := lb.Pump(1)
	require.Equal(t, 1, n)
	require.Equal(t, 1, len(h1.got))
	require.Equal(t, uint16(9), h1.got[0].LocalID)
	require.Equal(t, 0, lb.Pending(1))
}

func TestLoopbackZcopyCallsCompletionImmediately(t *testing.T) {
	lb := NewLoopback(topo.EndpointCaps{MaxZcopy: 1 << 20})
	var h recordingHandler
	lb.Register(0, &h)
	done := false
	require.NoError(t, lb.SendZcopy(topo.Rank(0), Header{}, []byte("x"), func() { done = true }))
	require.True(t, done)
	require.Equal(t, 1, lb.Pending(0))
}
