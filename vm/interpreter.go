package vm

import (
	"cmp"
	"fmt"
	"math"

	"github.com/chazu/opprof/bytecode"
)

// ---------------------------------------------------------------------------
// Frames
// ---------------------------------------------------------------------------

// frame is the execution state of one method invocation.
type frame struct {
	unit   *bytecode.Unit
	pc     int     // next instruction
	regs   []Value // register window, R0 is self
	retReg int     // caller register receiving the result
}

func (vm *VM) pushFrame(u *bytecode.Unit, self Value, args []Value, retReg int) {
	regs := make([]Value, u.NRegs)
	regs[0] = self
	copy(regs[1:], args)
	vm.frames = append(vm.frames, &frame{unit: u, regs: regs, retReg: retReg})
}

// ---------------------------------------------------------------------------
// Main interpreter loop
// ---------------------------------------------------------------------------

// execute runs until the bottom frame returns. Calls push frames instead of
// recursing, so the Go stack stays flat however deep the program goes.
func (vm *VM) execute() (Value, error) {
	for {
		f := vm.frames[len(vm.frames)-1]
		u := f.unit
		pc := f.pc
		if pc >= len(u.Iseq) {
			return nil, &RuntimeError{Unit: u, PC: pc - 1, Err: ErrPastEnd}
		}

		vm.fire(u, pc)
		ins := u.Iseq[pc]
		f.pc++
		r := f.regs

		switch ins.Op() {
		case bytecode.OpNop:

		case bytecode.OpMove:
			r[ins.A()] = r[ins.B()]
		case bytecode.OpLoadL:
			r[ins.A()] = literalValue(u.Pool[ins.Bx()])
		case bytecode.OpLoadI:
			r[ins.A()] = int64(ins.SBx())
		case bytecode.OpLoadSym:
			r[ins.A()] = Symbol(u.Syms[ins.Bx()])
		case bytecode.OpLoadNil:
			r[ins.A()] = nil
		case bytecode.OpLoadSelf:
			r[ins.A()] = r[0]
		case bytecode.OpLoadT:
			r[ins.A()] = true
		case bytecode.OpLoadF:
			r[ins.A()] = false

		case bytecode.OpGetGlobal:
			r[ins.A()] = vm.globals[u.Syms[ins.Bx()]]
		case bytecode.OpSetGlobal:
			vm.globals[u.Syms[ins.Bx()]] = r[ins.A()]

		case bytecode.OpJmp:
			f.pc = pc + ins.SBx()
		case bytecode.OpJmpIf:
			if Truthy(r[ins.A()]) {
				f.pc = pc + ins.SBx()
			}
		case bytecode.OpJmpNot:
			if !Truthy(r[ins.A()]) {
				f.pc = pc + ins.SBx()
			}

		case bytecode.OpSend:
			if err := vm.send(f, ins); err != nil {
				return nil, &RuntimeError{Unit: u, PC: pc, Err: err}
			}
		case bytecode.OpEnter:
			if ins.Ax() != u.NArgs {
				return nil, &RuntimeError{Unit: u, PC: pc, Err: fmt.Errorf("%w (method takes %d, ENTER expects %d)", ErrArgumentCount, u.NArgs, ins.Ax())}
			}
		case bytecode.OpReturn:
			v := r[ins.A()]
			vm.frames[len(vm.frames)-1] = nil
			vm.frames = vm.frames[:len(vm.frames)-1]
			if len(vm.frames) == 0 {
				return v, nil
			}
			vm.frames[len(vm.frames)-1].regs[f.retReg] = v

		case bytecode.OpAdd, bytecode.OpSub, bytecode.OpMul, bytecode.OpDiv, bytecode.OpMod:
			v, err := arith(ins.Op(), r[ins.B()], r[ins.C()])
			if err != nil {
				return nil, &RuntimeError{Unit: u, PC: pc, Err: err}
			}
			r[ins.A()] = v
		case bytecode.OpAddI, bytecode.OpSubI:
			op := bytecode.OpAdd
			if ins.Op() == bytecode.OpSubI {
				op = bytecode.OpSub
			}
			v, err := arith(op, r[ins.B()], int64(ins.C()))
			if err != nil {
				return nil, &RuntimeError{Unit: u, PC: pc, Err: err}
			}
			r[ins.A()] = v

		case bytecode.OpEq:
			r[ins.A()] = Equal(r[ins.B()], r[ins.C()])
		case bytecode.OpLt, bytecode.OpLe, bytecode.OpGt, bytecode.OpGe:
			v, err := compare(ins.Op(), r[ins.B()], r[ins.C()])
			if err != nil {
				return nil, &RuntimeError{Unit: u, PC: pc, Err: err}
			}
			r[ins.A()] = v

		case bytecode.OpArray:
			r[ins.A()] = NewArray(r[ins.B() : ins.B()+ins.C()]...)
		case bytecode.OpAryPush:
			a, ok := r[ins.A()].(*Array)
			if !ok {
				return nil, &RuntimeError{Unit: u, PC: pc, Err: typeError("%s is not an Array", TypeName(r[ins.A()]))}
			}
			a.Push(r[ins.B()])
		case bytecode.OpARef:
			a, ok := r[ins.B()].(*Array)
			if !ok {
				return nil, &RuntimeError{Unit: u, PC: pc, Err: typeError("%s is not an Array", TypeName(r[ins.B()]))}
			}
			r[ins.A()] = a.At(ins.C())
		case bytecode.OpString:
			lit := u.Pool[ins.Bx()]
			if lit.Kind != bytecode.LiteralString {
				return nil, &RuntimeError{Unit: u, PC: pc, Err: typeError("literal %s is not a String", lit)}
			}
			r[ins.A()] = lit.Str
		case bytecode.OpStrCat:
			r[ins.A()] = ToS(r[ins.A()]) + ToS(r[ins.B()])

		case bytecode.OpRaise:
			return nil, &RuntimeError{Unit: u, PC: pc, Err: &RaisedError{Value: r[ins.A()]}}
		case bytecode.OpStop:
			return nil, nil

		default:
			return nil, &RuntimeError{Unit: u, PC: pc, Err: fmt.Errorf("%w 0x%02X", ErrInvalidOpcode, byte(ins.Op()))}
		}
	}
}

// send dispatches SEND A B C: image methods get a new frame, natives run
// through the call trampoline.
func (vm *VM) send(f *frame, ins bytecode.Instr) error {
	a, c := ins.A(), ins.C()
	name := f.unit.Syms[ins.B()]
	self := f.regs[a]
	args := f.regs[a+1 : a+1+c]

	if u := vm.image.Lookup(name); u != nil {
		if c != u.NArgs {
			return fmt.Errorf("%w for %s (given %d, expected %d)", ErrArgumentCount, u.Name(), c, u.NArgs)
		}
		if len(vm.frames) >= vm.maxDepth {
			return fmt.Errorf("%w (%d frames)", ErrStackOverflow, len(vm.frames))
		}
		vm.pushFrame(u, self, args, a)
		return nil
	}

	if fn, ok := vm.natives[name]; ok {
		vm.fire(vm.image.Trampoline(), 0)
		v, err := fn(vm, self, append([]Value(nil), args...))
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		f.regs[a] = v
		return nil
	}

	return fmt.Errorf("%w '%s' for %s", ErrNoMethod, name, TypeName(self))
}

// ---------------------------------------------------------------------------
// Arithmetic and comparison
// ---------------------------------------------------------------------------

func arith(op bytecode.Opcode, a, b Value) (Value, error) {
	if x, ok := a.(int64); ok {
		if y, ok := b.(int64); ok {
			return intArith(op, x, y)
		}
	}
	if op == bytecode.OpAdd {
		if x, ok := a.(string); ok {
			if y, ok := b.(string); ok {
				return x + y, nil
			}
		}
	}
	x, y, ok := numbers(a, b)
	if !ok {
		return nil, typeError("%s %s %s", TypeName(a), opSymbol(op), TypeName(b))
	}
	switch op {
	case bytecode.OpAdd:
		return x + y, nil
	case bytecode.OpSub:
		return x - y, nil
	case bytecode.OpMul:
		return x * y, nil
	case bytecode.OpDiv:
		return x / y, nil
	default:
		m := math.Mod(x, y)
		if m != 0 && (m < 0) != (y < 0) {
			m += y
		}
		return m, nil
	}
}

// intArith uses floored division so the remainder takes the divisor's sign.
func intArith(op bytecode.Opcode, x, y int64) (Value, error) {
	switch op {
	case bytecode.OpAdd:
		return x + y, nil
	case bytecode.OpSub:
		return x - y, nil
	case bytecode.OpMul:
		return x * y, nil
	}
	if y == 0 {
		return nil, ErrZeroDivision
	}
	q, m := x/y, x%y
	if m != 0 && (m < 0) != (y < 0) {
		q--
		m += y
	}
	if op == bytecode.OpDiv {
		return q, nil
	}
	return m, nil
}

func compare(op bytecode.Opcode, a, b Value) (Value, error) {
	var c int
	switch {
	case isInt(a) && isInt(b):
		c = cmp.Compare(a.(int64), b.(int64))
	case isString(a) && isString(b):
		c = cmp.Compare(a.(string), b.(string))
	default:
		x, y, ok := numbers(a, b)
		if !ok {
			return nil, typeError("comparison of %s with %s failed", TypeName(a), TypeName(b))
		}
		if math.IsNaN(x) || math.IsNaN(y) {
			return false, nil
		}
		c = cmp.Compare(x, y)
	}
	switch op {
	case bytecode.OpLt:
		return c < 0, nil
	case bytecode.OpLe:
		return c <= 0, nil
	case bytecode.OpGt:
		return c > 0, nil
	default:
		return c >= 0, nil
	}
}

func isInt(v Value) bool {
	_, ok := v.(int64)
	return ok
}

func isString(v Value) bool {
	_, ok := v.(string)
	return ok
}

func opSymbol(op bytecode.Opcode) string {
	switch op {
	case bytecode.OpAdd:
		return "+"
	case bytecode.OpSub:
		return "-"
	case bytecode.OpMul:
		return "*"
	case bytecode.OpDiv:
		return "/"
	default:
		return "%"
	}
}
