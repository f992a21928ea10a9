package algo

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/ucg-hpc/ucg/topo"
)

func TestKNTreeBinomialRoot0(t *testing.T) {
	const size = 8
	// root 0, degree 2, leftmost (fan-out): classic binomial tree.
	root := NewKNTreeIter(size, 2, 0, 0, true)
	require.Equal(t, topo.InvalidRank, root.Parent())
	require.Equal(t, RoleRoot, root.Role())

	leaf := NewKNTreeIter(size, 2, 0, 5, true)
	require.NotEqual(t, topo.InvalidRank, leaf.Parent())

	// every non-root rank has exactly one parent, and the union of all
	// children sets plus the root covers every rank exactly once.
	seen := map[topo.Rank]bool{0: true}
	for r := topo.Rank(0); r < size; r++ {
		it := NewKNTreeIter(size, 2, 0, r, true)
		for _, c := range it.Children() {
			require.False(t, seen[c], "rank %d reached twice", c)
			seen[c] = true
			child := NewKNTreeIter(size, 2, 0, c, true)
			require.Equal(t, r, child.Parent())
		}
	}
	for r := topo.Rank(0); r < size; r++ {
		require.True(t, seen[r], "rank %d unreached", r)
	}
}

func TestKNTreeNonZeroRootRotation(t *testing.T) {
	const size = 6
	root := NewKNTreeIter(size, 2, 3, 3, true)
	require.Equal(t, topo.InvalidRank, root.Parent())
	for r := topo.Rank(0); r < size; r++ {
		if r == 3 {
			continue
		}
		it := NewKNTreeIter(size, 2, 3, r, true)
		require.NotEqual(t, topo.InvalidRank, it.Parent())
	}
}

func TestKNTreeLeftmostVsRightmostDiffer(t *testing.T) {
	const size = 9
	left := NewKNTreeIter(size, 3, 0, 0, true).Children()
	right := NewKNTreeIter(size, 3, 0, 0, false).Children()
	require.NotEmpty(t, left)
	require.NotEmpty(t, right)
	require.NotEqual(t, left, right)
	// only the visiting order differs, not the child set
	require.ElementsMatch(t, left, right)
}

func TestSubtreeSizeCoversGroup(t *testing.T) {
	const size = 8
	require.Equal(t, size, SubtreeSize(size, 2, 0, 0))
}
