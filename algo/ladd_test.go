package algo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/topo"
)

func TestLaddScheduleVisitsEveryPeerOnce(t *testing.T) {
	const size = 6
	for me := topo.Rank(0); me < size; me++ {
		s := NewLaddSchedule(size, me, 0)
		peers := s.Peers()
		require.Len(t, peers, size-1)
		seen := map[topo.Rank]bool{me: true}
		for _, p := range peers {
			require.False(t, seen[p], "peer %d revisited", p)
			seen[p] = true
		}
	}
}

func TestLaddThrottleWindows(t *testing.T) {
	s := NewLaddSchedule(10, 0, 3)
	windows := s.InFlightWindows()
	total := 0
	for _, w := range windows {
		require.LessOrEqual(t, len(w), 3)
		total += len(w)
	}
	require.Equal(t, 9, total)
}
