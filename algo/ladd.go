package algo

import "github.com/ucg-hpc/ucg/topo"

// LaddSchedule is the Throttled-Scatter alltoallv peer order for one rank
// (spec §4.2.6): every other rank, visited in a fixed pseudo-random
// permutation derived from the rank itself so that no global coordination
// is needed to avoid hot spots, bounded in flight by throttle.
type LaddSchedule struct {
	peers    []topo.Rank
	throttle int
}

// NewLaddSchedule builds the permutation for `me` among `size` ranks. The
// permutation is a fixed multiplicative-step walk seeded by `me`, which
// staggers every rank's peer order relative to its neighbors without
// needing a shared random seed exchange (spec: "randomized schedule").
// throttle <= 0 means unbounded (spec §6 default LADD_THROTTLED_FACTOR=0).
func NewLaddSchedule(size int, me topo.Rank, throttle int) *LaddSchedule {
	step := coprimeStep(size, int(me))
	peers := make([]topo.Rank, 0, size-1)
	cur := int(me)
	for i := 0; i < size-1; i++ {
		cur = mod(cur+step, size)
		peers = append(peers, topo.Rank(cur))
	}
	if throttle <= 0 {
		throttle = size
	}
	return &LaddSchedule{peers: peers, throttle: throttle}
}

func (s *LaddSchedule) Peers() []topo.Rank { return s.peers }
func (s *LaddSchedule) Throttle() int      { return s.throttle }

// InFlightWindows splits the peer schedule into chunks no larger than the
// throttle factor, each chunk representing one phase's concurrent
// send/recv set (spec §4.2.6: "a throttle factor bounds the in-flight
// count").
func (s *LaddSchedule) InFlightWindows() [][]topo.Rank {
	var out [][]topo.Rank
	for i := 0; i < len(s.peers); i += s.throttle {
		end := i + s.throttle
		if end > len(s.peers) {
			end = len(s.peers)
		}
		out = append(out, s.peers[i:end])
	}
	return out
}

// coprimeStep returns a step in [1,size) coprime to size: it starts at
// 1+seed%(size-1) and moves up (wrapping to 1) until gcd(step,size)==1, so
// that successive steps visit every rank exactly once mod size (size need
// not be prime; stepping by any value coprime to size visits all residues).
// The step is not necessarily odd.
func coprimeStep(size, seed int) int {
	if size <= 1 {
		return 1
	}
	step := 1 + (seed % (size - 1))
	for gcd(step, size) != 1 {
		step++
		if step >= size {
			step = 1
		}
	}
	return step
}

func gcd(a, b int) int {
	for b != 0 {
		a, b = b, a%b
	}
	return a
}
