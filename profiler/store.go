package profiler

// DefaultCapacity is the initial size of a Store.
const DefaultCapacity = 64

// Store owns every node of a session. Nodes are appended and never removed;
// their ids stay valid for the store's whole life.
type Store struct {
	nodes []*Node
	root  NodeID
}

// NewStore creates an empty store able to hold capacity nodes before it
// grows.
func NewStore(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		nodes: make([]*Node, 0, capacity),
		root:  NoNode,
	}
}

// Register appends n and returns its id.
func (s *Store) Register(n *Node) NodeID {
	id := NodeID(len(s.nodes))
	n.id = id
	s.nodes = append(s.nodes, n)
	return id
}

// Get returns the node with the given id.
func (s *Store) Get(id NodeID) (*Node, error) {
	if id < 0 || int(id) >= len(s.nodes) {
		return nil, &IndexError{Kind: "node", Index: int(id), Len: len(s.nodes)}
	}
	return s.nodes[id], nil
}

// Count returns the number of registered nodes.
func (s *Store) Count() int {
	return len(s.nodes)
}

// Root returns the id of the session root, if one exists yet.
func (s *Store) Root() (NodeID, bool) {
	return s.root, s.root != NoNode
}

// node is the unchecked lookup used on the hot path, where ids come from
// the store itself.
func (s *Store) node(id NodeID) *Node {
	return s.nodes[id]
}
