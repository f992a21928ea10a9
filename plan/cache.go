package plan

import (
	"encoding/binary"
	"sync"

	"github.com/cespare/xxhash/v2"
	"github.com/ucg-hpc/ucg/algo"
	"github.com/ucg-hpc/ucg/topo"
)

// Cache memoizes built plans keyed by (kind, algo, root, datatype-is-contig)
// per group (spec §3 "Plan" lifecycle: "created on first use ... cached;
// destroyed on group destroy"). Grounded on xact/xs's renew-on-miss
// factory pattern (xreg.RenewBase / Factory.New), generalized from "one
// running xaction per bucket" to "one built plan per cache key per group".
//
// Alltoallv plans are never entered here (Open Question Decision #1):
// per-invocation send/recv counts differ run to run, so a cached plan would
// either go stale or force a rebuild check that costs as much as building
// fresh.
type Cache struct {
	mu   sync.RWMutex
	byKey map[uint64]*Plan
}

func NewCache() *Cache {
	return &Cache{byKey: make(map[uint64]*Plan)}
}

func cacheKey(kind CollectiveKind, id algo.ID, root topo.Rank, contig bool) uint64 {
	var buf [12]byte
	binary.LittleEndian.PutUint16(buf[0:2], uint16(kind))
	binary.LittleEndian.PutUint32(buf[2:6], uint32(id))
	binary.LittleEndian.PutUint32(buf[6:10], uint32(root))
	if contig {
		buf[10] = 1
	}
	return xxhash.Sum64(buf[:])
}

// Lookup returns a cached plan for the key, or nil if absent. Callers must
// not mutate the returned plan: it may be shared across concurrent ops.
func (c *Cache) Lookup(kind CollectiveKind, id algo.ID, root topo.Rank, contig bool) *Plan {
	if kind == KindAlltoallv {
		return nil
	}
	k := cacheKey(kind, id, root, contig)
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.byKey[k]
}

// Store installs a newly-built plan under its cache key. A no-op for
// alltoallv plans, which are never cached.
func (c *Cache) Store(kind CollectiveKind, id algo.ID, root topo.Rank, contig bool, p *Plan) {
	if kind == KindAlltoallv {
		return
	}
	k := cacheKey(kind, id, root, contig)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey[k] = p
}

// Invalidate drops a specific cached plan, used when a reconfiguration
// changes a group's topology or transport capabilities underneath an
// otherwise-matching key.
func (c *Cache) Invalidate(kind CollectiveKind, id algo.ID, root topo.Rank, contig bool) {
	k := cacheKey(kind, id, root, contig)
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.byKey, k)
}

// Clear drops every cached plan, called on group destroy.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey = make(map[uint64]*Plan)
}

func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
