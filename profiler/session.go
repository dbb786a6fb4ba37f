package profiler

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("opprof.profiler")

// Reporter receives the finished profile during Teardown.
type Reporter func(q *Query) error

// Option configures a Session.
type Option func(*Session)

// WithClock replaces the default monotonic clock.
func WithClock(c Clock) Option {
	return func(s *Session) { s.clock = c }
}

// WithCapacity sets the initial store capacity.
func WithCapacity(n int) Option {
	return func(s *Session) { s.capacity = n }
}

// WithDisassembler sets the renderer used by Query.InstructionInfo.
func WithDisassembler(d Disassembler) Option {
	return func(s *Session) { s.disasm = d }
}

// WithReporter sets the callback run by Teardown.
func WithReporter(r Reporter) Option {
	return func(s *Session) { s.reporter = r }
}

// Session is one profiling run: the node store plus the dispatch cursor.
type Session struct {
	id       uuid.UUID
	clock    Clock
	capacity int
	disasm   Disassembler
	reporter Reporter
	store    *Store

	// Cursor. pending is false before the first event and after Flush.
	current  NodeID
	prevPtr  uint64
	prevTime float64
	pending  bool

	events uint64
	err    error
	closed bool
}

// NewSession allocates the store and returns a session ready to receive
// fetch events.
func NewSession(opts ...Option) *Session {
	s := &Session{
		id:       uuid.New(),
		capacity: DefaultCapacity,
		disasm:   noDisassembler{},
		current:  NoNode,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.clock == nil {
		s.clock = NewMonotonicClock()
	}
	s.store = NewStore(s.capacity)
	log.Infof("session %s started (capacity %d)", s.id, s.capacity)
	return s
}

// ID returns the session's unique id.
func (s *Session) ID() uuid.UUID { return s.id }

// Store returns the node store, or nil after Teardown.
func (s *Session) Store() *Store { return s.store }

// Events returns the number of attributable events received so far.
func (s *Session) Events() uint64 { return s.events }

// Err returns the error that stopped the session, if any.
func (s *Session) Err() error { return s.err }

// OnFetch is the fetch hook. The host calls it exactly once before executing
// each instruction; ptr is the address of that instruction within unit.
func (s *Session) OnFetch(unit CodeUnit, ptr uint64) error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.err != nil {
		return s.err
	}

	if unit.Len() == 1 {
		// Call trampoline.
		return nil
	}
	if off := int64(ptr - unit.Base()); off < 0 || off >= int64(unit.Len()) {
		return s.fail(NoNode, &IndexError{Kind: "offset", Index: int(off), Len: unit.Len()})
	}
	now := s.clock.Now()
	s.events++

	if s.current == NoNode {
		root := s.store.Register(newNode(unit, NoNode))
		s.store.root = root
		s.current = root
		s.prevPtr = ptr
		s.prevTime = now
		s.pending = true
		return nil
	}

	prev := s.store.node(s.current)
	if s.pending {
		if err := prev.charge(int64(s.prevPtr-prev.unit.Base()), now-s.prevTime); err != nil {
			return s.fail(prev.id, err)
		}
	}
	if prev.unit != unit {
		s.current = s.resolve(prev, unit)
	}

	s.prevPtr = ptr
	s.prevTime = now
	s.pending = true
	return nil
}

// fail stops the session with err; every later event returns it.
func (s *Session) fail(id NodeID, err error) error {
	if id == NoNode {
		s.err = fmt.Errorf("fetch: %w", err)
	} else {
		s.err = fmt.Errorf("attributing node %d: %w", id, err)
	}
	log.Errorf("session %s stopped: %s", s.id, s.err)
	return s.err
}

// resolve finds the node that executes unit next, seen from cur: a known
// child, then an ancestor, then a new child.
func (s *Session) resolve(cur *Node, unit CodeUnit) NodeID {
	for i, id := range cur.children {
		if s.store.node(id).unit == unit {
			cur.invocations[i]++
			return id
		}
	}

	for id := cur.parent; id != NoNode; {
		n := s.store.node(id)
		if n.unit == unit {
			return id
		}
		id = n.parent
	}

	id := s.store.Register(newNode(unit, cur.id))
	cur.addChild(id)
	if log.AllowLevel(commonlog.Debug) {
		typ, name := unit.Owner()
		log.Debugf("node %d: %s#%s called from node %d", id, typ, name, cur.id)
	}
	return id
}

// Flush charges the interval of the last fetched instruction up to now.
// Without it the final instruction executed is never accounted.
func (s *Session) Flush() error {
	if s.closed {
		return ErrSessionClosed
	}
	if s.err != nil || !s.pending {
		return s.err
	}
	n := s.store.node(s.current)
	if err := n.charge(int64(s.prevPtr-n.unit.Base()), s.clock.Now()-s.prevTime); err != nil {
		return s.fail(n.id, err)
	}
	s.pending = false
	return nil
}

// Query returns the read-only view of the session's profile.
func (s *Session) Query() *Query {
	return &Query{store: s.store, disasm: s.disasm}
}

// Teardown ends the session: it flushes the pending instruction, hands the
// profile to the reporter and releases every node.
func (s *Session) Teardown() error {
	if s.closed {
		return ErrSessionClosed
	}
	flushErr := s.Flush()

	var reportErr error
	if s.reporter != nil {
		reportErr = s.reporter(s.Query())
	}

	log.Infof("session %s finished: %d events, %d nodes", s.id, s.events, s.store.Count())
	s.closed = true
	s.store = nil

	if reportErr != nil {
		return fmt.Errorf("report: %w", reportErr)
	}
	return flushErr
}
