package topo

// EndpointCaps mirrors the transport collaborator's per-endpoint
// capabilities (spec §6): max_short/max_bcopy/max_zcopy plus the memory
// domain's max_reg and whether zero-copy needs a registered memory handle.
type EndpointCaps struct {
	MaxShort int
	MaxBcopy int
	MaxZcopy int
	MaxReg   int
	NeedMemh bool
}

// Endpoint is an opaque transport-owned handle; the core never inspects it,
// only threads it back through ep_am_short/bcopy/zcopy calls (spec §6).
type Endpoint any

// Connector is the engine's view of the transport/bootstrap collaborator's
// connect(group, rank) contract (spec §6). Implemented by the transport
// package; kept as a small interface here so topo/plan/algo never import
// transport and avoid a cycle back into the package that depends on them
// for wire framing.
type Connector interface {
	Connect(rank Rank) (Endpoint, EndpointCaps, error)
}

// Group is the ordered set of ranks participating in a communicator (spec
// §3). Topology metadata and the endpoint resolver are supplied once at
// construction and are immutable for the group's lifetime.
type Group struct {
	topology  *Topology
	connector Connector
}

func NewGroup(topology *Topology, connector Connector) *Group {
	return &Group{topology: topology, connector: connector}
}

func (g *Group) Size() int         { return g.topology.Size() }
func (g *Group) MyRank() Rank      { return g.topology.MyRank() }
func (g *Group) Topology() *Topology { return g.topology }

func (g *Group) Connect(rank Rank) (Endpoint, EndpointCaps, error) {
	return g.connector.Connect(rank)
}

// Sub builds a logical sub-group (e.g. node leaders) over the given
// absolute members, sharing this group's connector but presenting its own
// [0,len(members)) logical rank space via the returned RankMap.
func (g *Group) Sub(members []Rank) (*Group, *RankMap) {
	rm := NewRankMap(members)
	locs := make([]Location, len(members))
	var myVRank Rank = InvalidRank
	for i, r := range members {
		locs[i] = g.topology.Location(r)
		if r == g.MyRank() {
			myVRank = Rank(i)
		}
	}
	sub := New(locs, myVRank, g.topology.Flags())
	return NewGroup(sub, &subConnector{parent: g.connector, rm: rm}), rm
}

// subConnector translates a sub-group's logical ranks back to absolute
// ranks before delegating to the parent connector.
type subConnector struct {
	parent Connector
	rm     *RankMap
}

func (s *subConnector) Connect(vrank Rank) (Endpoint, EndpointCaps, error) {
	abs := s.rm.Eval(int(vrank))
	return s.parent.Connect(abs)
}
