package profiler

// NodeID addresses a Node inside its Store.
type NodeID int

// NoNode is the parent of the root.
const NoNode NodeID = -1

// initialChildCapacity is the preallocated size of a node's child list.
const initialChildCapacity = 4

// Counter accumulates the executions of one instruction.
type Counter struct {
	Count uint32  // times the instruction was executed
	Time  float64 // total seconds spent in it
}

// Node is the profile of one code unit reached through one calling context.
type Node struct {
	id        NodeID
	unit      CodeUnit
	ownerType string
	ownerName string
	parent    NodeID

	counters []Counter

	// children and invocations are parallel: invocations[i] counts how many
	// times the edge to children[i] was taken.
	children    []NodeID
	invocations []uint32
}

func newNode(unit CodeUnit, parent NodeID) *Node {
	typ, name := unit.Owner()
	return &Node{
		unit:        unit,
		ownerType:   typ,
		ownerName:   name,
		parent:      parent,
		counters:    make([]Counter, unit.Len()),
		children:    make([]NodeID, 0, initialChildCapacity),
		invocations: make([]uint32, 0, initialChildCapacity),
	}
}

// ID returns the node's index in its store.
func (n *Node) ID() NodeID { return n.id }

// Unit returns the code unit this node profiles.
func (n *Node) Unit() CodeUnit { return n.unit }

// Parent returns the calling node, or NoNode for the root.
func (n *Node) Parent() NodeID { return n.parent }

// Owner returns the owner type and method name captured at creation.
func (n *Node) Owner() (typ, name string) { return n.ownerType, n.ownerName }

// Counter returns the counter for an instruction offset.
func (n *Node) Counter(offset int) (Counter, error) {
	if offset < 0 || offset >= len(n.counters) {
		return Counter{}, &IndexError{Kind: "offset", Index: offset, Len: len(n.counters)}
	}
	return n.counters[offset], nil
}

// Children returns a copy of the child ids in creation order.
func (n *Node) Children() []NodeID {
	return append([]NodeID(nil), n.children...)
}

// Invocations returns a copy of the per-child invocation counts.
func (n *Node) Invocations() []uint32 {
	return append([]uint32(nil), n.invocations...)
}

// addChild appends a freshly created child whose edge has been taken once.
func (n *Node) addChild(id NodeID) {
	n.children = append(n.children, id)
	n.invocations = append(n.invocations, 1)
}

// charge attributes one execution of elapsed seconds to offset.
func (n *Node) charge(offset int64, elapsed float64) error {
	if offset < 0 || offset >= int64(len(n.counters)) {
		return &IndexError{Kind: "offset", Index: int(offset), Len: len(n.counters)}
	}
	c := &n.counters[offset]
	c.Count++
	c.Time += elapsed
	return nil
}
