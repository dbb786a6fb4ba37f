package vm

import (
	"fmt"
	"io"
	"os"

	"github.com/chazu/opprof/bytecode"
	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("opprof.vm")

// DefaultMaxDepth bounds the frame stack when no other limit is configured.
const DefaultMaxDepth = 1024

// FetchHook is called before every instruction with the unit being executed
// and the address of the instruction, unit.Base()+pc. Native calls pass
// through the image's call trampoline, so the hook sees them as a fetch in a
// single-instruction unit.
type FetchHook func(unit *bytecode.Unit, ptr uint64) error

// ---------------------------------------------------------------------------
// VM: interpreter state for one image
// ---------------------------------------------------------------------------

// VM executes a linked image. A VM is not safe for concurrent use.
type VM struct {
	image    *bytecode.Image
	globals  map[string]Value
	natives  map[string]Native
	frames   []*frame
	maxDepth int
	out      io.Writer
	hook     FetchHook
	steps    uint64
}

// Option configures a VM.
type Option func(*VM)

// WithOutput sends the output of puts and print to w.
func WithOutput(w io.Writer) Option {
	return func(vm *VM) { vm.out = w }
}

// WithMaxDepth bounds the frame stack. Values below 1 keep the default.
func WithMaxDepth(n int) Option {
	return func(vm *VM) {
		if n > 0 {
			vm.maxDepth = n
		}
	}
}

// WithHook installs a fetch hook.
func WithHook(h FetchHook) Option {
	return func(vm *VM) { vm.hook = h }
}

// New creates a VM for a linked image.
func New(im *bytecode.Image, opts ...Option) *VM {
	vm := &VM{
		image:    im,
		globals:  make(map[string]Value),
		natives:  make(map[string]Native),
		maxDepth: DefaultMaxDepth,
		out:      os.Stdout,
	}
	registerNatives(vm)
	for _, opt := range opts {
		opt(vm)
	}
	return vm
}

// Image returns the image the VM executes.
func (vm *VM) Image() *bytecode.Image { return vm.image }

// SetHook replaces the fetch hook. A nil hook disables it.
func (vm *VM) SetHook(h FetchHook) { vm.hook = h }

// Steps returns the number of instructions executed so far, trampoline
// fetches included.
func (vm *VM) Steps() uint64 { return vm.steps }

// Global returns the value of a global, or nil.
func (vm *VM) Global(name string) Value { return vm.globals[name] }

// SetGlobal assigns a global.
func (vm *VM) SetGlobal(name string, v Value) { vm.globals[name] = v }

// fire passes one fetch to the hook. A failing hook is detached and the
// program keeps running without it.
func (vm *VM) fire(u *bytecode.Unit, pc int) {
	vm.steps++
	if vm.hook == nil {
		return
	}
	if err := vm.hook(u, u.Base()+uint64(pc)); err != nil {
		log.Warningf("detaching fetch hook at %s@%d: %s", u.Name(), pc, err)
		vm.hook = nil
	}
}

// Run executes the image's entry unit with nil as self and returns the value
// it returns.
func (vm *VM) Run() (Value, error) {
	if vm.image.Trampoline() == nil {
		return nil, ErrNotLinked
	}
	entry := vm.image.EntryUnit()
	if entry == nil {
		return nil, bytecode.ErrNoUnits
	}
	return vm.Call(entry.Method, nil)
}

// Call sends method to self with args and runs until it returns.
func (vm *VM) Call(method string, self Value, args ...Value) (Value, error) {
	if vm.image.Trampoline() == nil {
		return nil, ErrNotLinked
	}
	u := vm.image.Lookup(method)
	if u == nil {
		return nil, fmt.Errorf("%w '%s' for %s", ErrNoMethod, method, TypeName(self))
	}
	if len(args) != u.NArgs {
		return nil, fmt.Errorf("%w for %s (given %d, expected %d)", ErrArgumentCount, u.Name(), len(args), u.NArgs)
	}
	vm.frames = vm.frames[:0]
	vm.pushFrame(u, self, args, 0)
	v, err := vm.execute()
	vm.frames = vm.frames[:0]
	return v, err
}
