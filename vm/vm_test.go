package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/chazu/opprof/bytecode"
)

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func assemble(t *testing.T, src string) *bytecode.Image {
	t.Helper()
	im, err := bytecode.Assemble("test.oasm", []byte(src))
	if err != nil {
		t.Fatalf("Assemble: %v", err)
	}
	return im
}

// run executes src and returns its result and everything it printed.
func run(t *testing.T, src string, opts ...Option) (Value, string, error) {
	t.Helper()
	var out bytes.Buffer
	vm := New(assemble(t, src), append([]Option{WithOutput(&out)}, opts...)...)
	v, err := vm.Run()
	return v, out.String(), err
}

// ---------------------------------------------------------------------------
// Running images
// ---------------------------------------------------------------------------

func TestRunReturnsValue(t *testing.T) {
	v, _, err := run(t, `.method main
  LOADI R1 42
  RETURN R1
.end`)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v != int64(42) {
		t.Errorf("Run() = %v, want 42", v)
	}
}

func TestRunRequiresLinkedImage(t *testing.T) {
	im := bytecode.NewImage()
	im.Add(&bytecode.Unit{Method: "main", NRegs: 1, Iseq: []bytecode.Instr{bytecode.Z(bytecode.OpNop), bytecode.Z(bytecode.OpStop)}})

	if _, err := New(im).Run(); !errors.Is(err, ErrNotLinked) {
		t.Errorf("got %v, want ErrNotLinked", err)
	}
}

func TestCall(t *testing.T) {
	vm := New(assemble(t, `.method add
.args 2
  ENTER 2
  ADD R3 R1 R2
  RETURN R3
.end`))

	v, err := vm.Call("add", nil, int64(2), int64(3))
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if v != int64(5) {
		t.Errorf("add(2, 3) = %v", v)
	}

	if _, err := vm.Call("add", nil, int64(2)); !errors.Is(err, ErrArgumentCount) {
		t.Errorf("got %v, want ErrArgumentCount", err)
	}
	if _, err := vm.Call("sub", nil); !errors.Is(err, ErrNoMethod) {
		t.Errorf("got %v, want ErrNoMethod", err)
	}
}

func TestStop(t *testing.T) {
	v, _, err := run(t, `.method main
  LOADI R1 1
  STOP
.end`)
	if err != nil || v != nil {
		t.Errorf("Run() = %v, %v; want nil, nil", v, err)
	}
}

func TestStackOverflow(t *testing.T) {
	_, _, err := run(t, `.method main
  SEND R0 :main 0
  RETURN R0
.end`, WithMaxDepth(10))
	if !errors.Is(err, ErrStackOverflow) {
		t.Fatalf("got %v, want ErrStackOverflow", err)
	}
	var re *RuntimeError
	if !errors.As(err, &re) || re.Unit.Method != "main" || re.PC != 0 {
		t.Errorf("error not located at main@0: %v", err)
	}
}

func TestUndefinedMethod(t *testing.T) {
	_, _, err := run(t, `.method main
  LOADI R1 3
  SEND R1 :frobnicate 0
  RETURN R1
.end`)
	if !errors.Is(err, ErrNoMethod) {
		t.Fatalf("got %v, want ErrNoMethod", err)
	}
	if !strings.Contains(err.Error(), "'frobnicate' for Integer") {
		t.Errorf("error = %q", err)
	}
}

func TestRaise(t *testing.T) {
	_, _, err := run(t, `.method main
  NOP
  LOADL R1 "boom"
  RAISE R1
.end`)
	var raised *RaisedError
	if !errors.As(err, &raised) || raised.Value != "boom" {
		t.Fatalf("got %v, want raised \"boom\"", err)
	}
	if got := err.Error(); got != "Object#main@2 (test.oasm:4): boom" {
		t.Errorf("error = %q", got)
	}
}

func TestGlobals(t *testing.T) {
	src := `.method set
  LOADI R1 7
  SETGLOBAL R1 :answer
  RETURN R1
.end
.method main
  SEND R0 :set 0
  GETGLOBAL R1 :answer
  GETGLOBAL R2 :missing
  ARRAY R3 R1 2
  RETURN R3
.end`
	vm := New(assemble(t, src))
	v, err := vm.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if got := Inspect(v); got != "[7, nil]" {
		t.Errorf("Run() = %s, want [7, nil]", got)
	}
	if vm.Global("answer") != int64(7) {
		t.Errorf("Global(answer) = %v", vm.Global("answer"))
	}
}

// ---------------------------------------------------------------------------
// Fetch hook
// ---------------------------------------------------------------------------

type fetch struct {
	unit string
	pc   int
}

func TestHookSeesEveryFetch(t *testing.T) {
	im := assemble(t, `.method main
  LOADL R1 "hi"
  SEND R0 :puts 1
  RETURN R0
.end`)

	var got []fetch
	var out bytes.Buffer
	vm := New(im, WithOutput(&out), WithHook(func(u *bytecode.Unit, ptr uint64) error {
		got = append(got, fetch{u.Method, int(ptr - u.Base())})
		return nil
	}))
	if _, err := vm.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}

	want := []fetch{{"main", 0}, {"main", 1}, {"call", 0}, {"main", 2}}
	if len(got) != len(want) {
		t.Fatalf("fetches = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fetch %d = %v, want %v", i, got[i], want[i])
		}
	}
	if vm.Steps() != 4 {
		t.Errorf("Steps() = %d, want 4", vm.Steps())
	}
	if out.String() != "hi\n" {
		t.Errorf("output = %q", out.String())
	}
}

func TestFailingHookIsDetached(t *testing.T) {
	calls := 0
	v, _, err := run(t, `.method main
  LOADI R1 1
  ADDI R1 R1 1
  ADDI R1 R1 1
  ADDI R1 R1 1
  RETURN R1
.end`, WithHook(func(*bytecode.Unit, uint64) error {
		calls++
		if calls == 2 {
			return errors.New("hook failed")
		}
		return nil
	}))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if v != int64(4) {
		t.Errorf("Run() = %v, want 4", v)
	}
	if calls != 2 {
		t.Errorf("hook called %d times after failing, want 2 calls total", calls)
	}
}
