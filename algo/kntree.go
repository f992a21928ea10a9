package algo

import "github.com/ucg-hpc/ucg/topo"

// KNTreeIter is a k-nomial tree rank iterator, ported in semantics from
// original_source's src/util/algo/ucg_kntree.c. Two orientations are
// supported: left-most (used for fan-out / broadcast) visits the biggest
// sub-tree's children first; right-most (fan-in / reduce) visits the
// smallest sub-tree's children first. For non-zero root r, every rank is
// rotated by (rank - r + size) mod size before the tree math runs, and
// results are rotated back.
type KNTreeIter struct {
	size, degree, root int
	myrank             int // virtual (rotated) rank
	leftmost           bool

	parent     int // virtual parent, or invalidRank
	maxSubsize int
	subsize    int
	childIdx   int
	child      int // virtual child, or invalidRank
}

const invalidRank = -1

// NewKNTreeIter builds the iterator for myrank in a group of size ranks
// with the given k-nomial degree and root. leftmost selects fan-out order.
func NewKNTreeIter(size, degree, root int, myrank topo.Rank, leftmost bool) *KNTreeIter {
	it := &KNTreeIter{
		size: size, degree: degree, root: root,
		myrank: (int(myrank) - root + size) % size,
		leftmost: leftmost,
	}
	it.init()
	return it
}

func (it *KNTreeIter) init() {
	it.parent = invalidRank
	subsize := 1
	for subsize < it.size {
		next := subsize * it.degree
		if it.myrank%next != 0 {
			it.parent = (it.myrank/next*next + it.root) % it.size
			break
		}
		subsize = next
	}
	it.maxSubsize = subsize
	it.Reset()
}

// Reset rewinds child iteration to the first child (spec: used when a tree
// must be walked more than once, e.g. computing a subtree size).
func (it *KNTreeIter) Reset() {
	if it.leftmost {
		it.subsize = it.maxSubsize
	} else {
		it.subsize = 1
	}
	it.child = invalidRank
	it.childIdx = 1 // 0 is myself
	it.update()
}

func (it *KNTreeIter) update() {
	if it.leftmost {
		it.updateLeftmost()
	} else {
		it.updateRightmost()
	}
}

func (it *KNTreeIter) updateLeftmost() {
	stride := it.subsize / it.degree
	for stride > 0 {
		for ; it.childIdx < it.degree; it.childIdx++ {
			child := it.myrank + stride*it.childIdx
			if child < it.size {
				it.child = (child + it.root) % it.size
				return
			}
		}
		it.subsize = stride
		it.childIdx = 1
		stride /= it.degree
	}
	it.child = invalidRank
}

func (it *KNTreeIter) updateRightmost() {
	for it.subsize < it.maxSubsize {
		for ; it.childIdx < it.degree; it.childIdx++ {
			child := it.myrank + it.subsize*(it.degree-it.childIdx)
			if child < it.size {
				it.child = (child + it.root) % it.size
				return
			}
		}
		it.subsize *= it.degree
		it.childIdx = 1
	}
	it.child = invalidRank
}

// Child returns the current child, or InvalidRank when exhausted.
func (it *KNTreeIter) Child() topo.Rank {
	if it.child == invalidRank {
		return topo.InvalidRank
	}
	return topo.Rank(it.child)
}

// Next advances to the next child.
func (it *KNTreeIter) Next() {
	it.childIdx++
	it.update()
}

// Parent returns the virtual parent translated back to the absolute rank
// space, or InvalidRank at the root.
func (it *KNTreeIter) Parent() topo.Rank {
	if it.parent == invalidRank {
		return topo.InvalidRank
	}
	return topo.Rank(it.parent)
}

// Children collects every child in iteration order (used by the plan
// builders, which need the full fan-out/fan-in set up front, not a
// streaming cursor).
func (it *KNTreeIter) Children() []topo.Rank {
	cp := *it
	cp.Reset()
	var out []topo.Rank
	for c := cp.Child(); c != topo.InvalidRank; c = cp.Child() {
		out = append(out, c)
		cp.Next()
	}
	return out
}

// Role classifies this rank's position per spec §4.2.1.
type Role int

const (
	RoleLeaf Role = iota
	RoleRoot
	RoleWaypoint
)

func (it *KNTreeIter) Role() Role {
	nChildren := len(it.Children())
	switch {
	case it.Parent() == topo.InvalidRank:
		return RoleRoot
	case nChildren == 0:
		return RoleLeaf
	default:
		return RoleWaypoint
	}
}

// SubtreeSize returns the number of ranks (including rank itself) in the
// subtree rooted at rank, computed by recursively walking a fresh iterator
// (ported from ucg_algo_kntree_get_subtree_size).
func SubtreeSize(size, degree, root int, rank topo.Rank) int {
	it := NewKNTreeIter(size, degree, root, rank, true)
	count := 1
	for _, child := range it.Children() {
		count += SubtreeSize(size, degree, root, child)
	}
	return count
}

// NonCommutativeSwap reports whether, for a non-commutative reduction,
// this waypoint's receive from a given child must be pre-swapped with the
// local contribution before reducing (spec §4.2.1: "the tree must preserve
// rank-order"). The incoming data must be logically "before" the local
// buffer in rank order iff the child's virtual rank is less than myrank's.
func NonCommutativeSwap(size, degree, root int, myrank, childRank topo.Rank) bool {
	vMy := (int(myrank) - root + size) % size
	vChild := (int(childRank) - root + size) % size
	return vChild < vMy
}
