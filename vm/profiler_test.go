package vm

import (
	"bytes"
	"strings"
	"testing"

	"github.com/chazu/opprof/bytecode"
	"github.com/chazu/opprof/profiler"
)

const twoCalls = `.method helper
  LOADI R1 5
  RETURN R1
.end

.method main
  LOADSELF R1
  SEND R1 :helper 0
  SEND R1 :helper 0
  RETURN R1
.end`

func profile(t *testing.T, src string, opts ...profiler.Option) (*profiler.Session, *bytecode.Image) {
	t.Helper()
	im := assemble(t, src)
	s := profiler.NewSession(append([]profiler.Option{profiler.WithClock(&profiler.ManualClock{})}, opts...)...)
	vm := New(im, WithOutput(&bytes.Buffer{}))
	vm.AttachProfiler(s)
	if _, err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return s, im
}

func counts(t *testing.T, n *profiler.Node) []uint32 {
	t.Helper()
	out := make([]uint32, n.Unit().Len())
	for i := range out {
		c, err := n.Counter(i)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = c.Count
	}
	return out
}

func TestProfileCallTree(t *testing.T) {
	s, im := profile(t, twoCalls)
	store := s.Store()

	if store.Count() != 2 {
		t.Fatalf("got %d nodes, want 2", store.Count())
	}
	rootID, _ := store.Root()
	root, _ := store.Get(rootID)
	if root.Unit() != im.Lookup("main") {
		t.Fatal("root does not profile main")
	}
	if kids, inv := root.Children(), root.Invocations(); len(kids) != 1 || inv[0] != 2 {
		t.Fatalf("children %v invocations %v, want one child called twice", kids, inv)
	}
	helper, _ := store.Get(root.Children()[0])
	if helper.Unit() != im.Lookup("helper") {
		t.Error("child does not profile helper")
	}

	// Eight fetches; the last is still pending.
	if s.Events() != 8 {
		t.Errorf("Events() = %d, want 8", s.Events())
	}
	if got := counts(t, root); !equalCounts(got, []uint32{1, 1, 1, 0}) {
		t.Errorf("main counts = %v before flush", got)
	}
	if got := counts(t, helper); !equalCounts(got, []uint32{2, 2}) {
		t.Errorf("helper counts = %v", got)
	}

	if err := s.Flush(); err != nil {
		t.Fatal(err)
	}
	if got := counts(t, root); !equalCounts(got, []uint32{1, 1, 1, 1}) {
		t.Errorf("main counts = %v after flush", got)
	}
}

func TestProfileIgnoresNatives(t *testing.T) {
	s, _ := profile(t, `.method main
  LOADL R1 "x"
  SEND R0 :puts 1
  SEND R0 :puts 1
  RETURN R0
.end`)
	if s.Store().Count() != 1 {
		t.Errorf("got %d nodes, want 1", s.Store().Count())
	}
	if s.Events() != 4 {
		t.Errorf("Events() = %d, want 4", s.Events())
	}
}

func TestProfileRecursion(t *testing.T) {
	s, _ := profile(t, fibSource)
	// main, fib; recursion stays in the fib node.
	if s.Store().Count() != 2 {
		t.Errorf("got %d nodes, want 2", s.Store().Count())
	}
}

func TestProfileReport(t *testing.T) {
	var out bytes.Buffer
	s, _ := profile(t, twoCalls,
		profiler.WithDisassembler(Disassembler),
		profiler.WithReporter(profiler.CallgrindReport(&out)))
	if err := s.Teardown(); err != nil {
		t.Fatalf("Teardown: %v", err)
	}
	for _, want := range []string{"fn=(0) Object#main", "cfn=(1) Object#helper", "calls=2 0x1001 2"} {
		if !strings.Contains(out.String(), want) {
			t.Errorf("report missing %q:\n%s", want, out.String())
		}
	}
}

func TestDisassembler(t *testing.T) {
	im := assemble(t, twoCalls)
	u := im.Lookup("main")
	if got := Disassembler.Disassemble(u, 1); got != "SEND\tR1\t:helper\t0" {
		t.Errorf("Disassemble = %q", got)
	}
	if got := Disassembler.Disassemble(nil, 0); got != "?" {
		t.Errorf("Disassemble(nil) = %q", got)
	}
}

func equalCounts(a, b []uint32) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
