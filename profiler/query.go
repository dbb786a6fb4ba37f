package profiler

// Location names where an instruction lives: a source file, or the owner
// type and method name for units without one.
type Location struct {
	File      string
	OwnerType string
	OwnerName string
}

// HasFile reports whether the location is a source file.
func (l Location) HasFile() bool { return l.File != "" }

// String returns the file name or "Owner#name".
func (l Location) String() string {
	if l.File != "" {
		return l.File
	}
	return l.OwnerType + "#" + l.OwnerName
}

// InstructionInfo is the profile of one instruction of one node.
type InstructionInfo struct {
	Location    Location
	Line        int // 0 when the unit has no line table
	Count       uint32
	Time        float64
	Address     uint64
	Instruction string
}

// NodeInfo describes one node and its outgoing call edges.
type NodeInfo struct {
	ID          NodeID
	Parent      NodeID
	OwnerType   string
	OwnerName   string
	File        string
	Children    []NodeID
	Invocations []uint32
}

// Query is a read-only view over a session's store for report writers.
type Query struct {
	store  *Store
	disasm Disassembler
}

// UnitCount returns the number of profiled nodes.
func (q *Query) UnitCount() int {
	if q.store == nil {
		return 0
	}
	return q.store.Count()
}

func (q *Query) get(id NodeID) (*Node, error) {
	if q.store == nil {
		return nil, ErrSessionClosed
	}
	return q.store.Get(id)
}

// InstructionCount returns the number of instructions of a node's unit.
func (q *Query) InstructionCount(id NodeID) (int, error) {
	n, err := q.get(id)
	if err != nil {
		return 0, err
	}
	return len(n.counters), nil
}

// InstructionInfo returns the profile of the instruction at offset in node
// id.
func (q *Query) InstructionInfo(id NodeID, offset int) (InstructionInfo, error) {
	n, err := q.get(id)
	if err != nil {
		return InstructionInfo{}, err
	}
	c, err := n.Counter(offset)
	if err != nil {
		return InstructionInfo{}, err
	}

	info := InstructionInfo{
		Line:        n.unit.Line(offset),
		Count:       c.Count,
		Time:        c.Time,
		Address:     n.unit.Base() + uint64(offset),
		Instruction: q.disasm.Disassemble(n.unit, offset),
	}
	if file := n.unit.Filename(); file != "" {
		info.Location.File = file
	} else {
		info.Location.OwnerType = n.ownerType
		info.Location.OwnerName = n.ownerName
	}
	return info, nil
}

// NodeInfo returns the identity and call edges of node id.
func (q *Query) NodeInfo(id NodeID) (NodeInfo, error) {
	n, err := q.get(id)
	if err != nil {
		return NodeInfo{}, err
	}
	return NodeInfo{
		ID:          n.id,
		Parent:      n.parent,
		OwnerType:   n.ownerType,
		OwnerName:   n.ownerName,
		File:        n.unit.Filename(),
		Children:    n.Children(),
		Invocations: n.Invocations(),
	}, nil
}

// ReadLines returns the lines of a source file for report rendering.
func (q *Query) ReadLines(path string) ([]string, error) {
	return ReadLines(path)
}
