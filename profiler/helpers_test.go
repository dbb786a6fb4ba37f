package profiler

type testUnit struct {
	class  string
	method string
	file   string
	base   uint64
	ilen   int
	lines  []int
}

func (u *testUnit) Len() int                { return u.ilen }
func (u *testUnit) Base() uint64            { return u.base }
func (u *testUnit) Filename() string        { return u.file }
func (u *testUnit) Owner() (string, string) { return u.class, u.method }

func (u *testUnit) Line(offset int) int {
	if offset < 0 || offset >= len(u.lines) {
		return 0
	}
	return u.lines[offset]
}

func newUnit(method string, base uint64, ilen int) *testUnit {
	return &testUnit{class: "Object", method: method, base: base, ilen: ilen}
}

type event struct {
	unit *testUnit
	off  int
}

// feed sends each event to s, advancing clock by one second before every
// event after the first.
func feed(s *Session, clock *ManualClock, events ...event) error {
	for i, ev := range events {
		if i > 0 {
			clock.Advance(1)
		}
		if err := s.OnFetch(ev.unit, ev.unit.base+uint64(ev.off)); err != nil {
			return err
		}
	}
	return nil
}

func totalCount(n *Node) uint32 {
	var total uint32
	for _, c := range n.counters {
		total += c.Count
	}
	return total
}
