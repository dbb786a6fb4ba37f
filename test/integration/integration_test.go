package integration_test

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/opprof/bytecode"
	"github.com/chazu/opprof/profiler"
	"github.com/chazu/opprof/vm"
)

// ---------------------------------------------------------------------------
// Integration test helpers
// ---------------------------------------------------------------------------

// tickClock advances one second on every reading.
type tickClock struct{ now float64 }

func (c *tickClock) Now() float64 {
	c.now++
	return c.now
}

// runExample assembles an example program and runs it under a session.
func runExample(t *testing.T, name string, opts ...profiler.Option) (*profiler.Session, string) {
	t.Helper()
	im, err := bytecode.LoadFile(filepath.Join("..", "..", "examples", name))
	if err != nil {
		t.Fatalf("load %s: %v", name, err)
	}
	var out bytes.Buffer
	s := profiler.NewSession(append([]profiler.Option{profiler.WithClock(&tickClock{})}, opts...)...)
	machine := vm.New(im, vm.WithOutput(&out))
	machine.AttachProfiler(s)
	if _, err := machine.Run(); err != nil {
		t.Fatalf("run %s: %v", name, err)
	}
	if err := s.Err(); err != nil {
		t.Fatalf("session %s: %v", name, err)
	}
	return s, out.String()
}

// totals sums counts and times over every instruction of every node.
func totals(t *testing.T, q *profiler.Query) (uint64, float64) {
	t.Helper()
	var count uint64
	var elapsed float64
	for id := profiler.NodeID(0); int(id) < q.UnitCount(); id++ {
		n, err := q.InstructionCount(id)
		if err != nil {
			t.Fatal(err)
		}
		for off := 0; off < n; off++ {
			info, err := q.InstructionInfo(id, off)
			if err != nil {
				t.Fatal(err)
			}
			count += uint64(info.Count)
			elapsed += info.Time
		}
	}
	return count, elapsed
}

// ---------------------------------------------------------------------------
// Example programs
// ---------------------------------------------------------------------------

func TestExamples(t *testing.T) {
	tests := []struct {
		file   string
		output string
		nodes  int
	}{
		{"fib.oasm", "6765\n", 2},
		{"parity.oasm", "true\n", 3},
		{"squares.oasm", "squares: [1, 4, 9, 16, 25]\n", 2},
	}
	for _, tt := range tests {
		t.Run(tt.file, func(t *testing.T) {
			s, out := runExample(t, tt.file)
			if out != tt.output {
				t.Errorf("output = %q, want %q", out, tt.output)
			}
			if got := s.Store().Count(); got != tt.nodes {
				t.Errorf("got %d nodes, want %d", got, tt.nodes)
			}

			// Every attributable fetch but the last has been charged.
			count, _ := totals(t, s.Query())
			if count != s.Events()-1 {
				t.Errorf("charged %d executions for %d events", count, s.Events())
			}

			if err := s.Flush(); err != nil {
				t.Fatal(err)
			}
			count, elapsed := totals(t, s.Query())
			if count != s.Events() {
				t.Errorf("after flush charged %d executions for %d events", count, s.Events())
			}
			if elapsed <= 0 {
				t.Error("no time attributed")
			}
		})
	}
}

func TestExampleReports(t *testing.T) {
	var lines, grind bytes.Buffer

	for _, r := range []profiler.Reporter{
		profiler.LineReport(&lines, profiler.LineReportOptions{}),
		profiler.CallgrindReport(&grind),
	} {
		s, _ := runExample(t, "parity.oasm", profiler.WithDisassembler(vm.Disassembler), profiler.WithReporter(r))
		if err := s.Teardown(); err != nil {
			t.Fatalf("Teardown: %v", err)
		}
	}

	for _, want := range []string{"; Mutual recursion", "SEND\tR4\t:odd\t1", "EQ\tR3\tR1\tR2"} {
		if !strings.Contains(lines.String(), want) {
			t.Errorf("line report missing %q:\n%s", want, lines.String())
		}
	}
	for _, want := range []string{"fn=(0) Object#main", "cfn=(1) Parity#even", "cfn=(2) Parity#odd"} {
		if !strings.Contains(grind.String(), want) {
			t.Errorf("callgrind output missing %q:\n%s", want, grind.String())
		}
	}
}
