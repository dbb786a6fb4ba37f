package vm

import (
	"fmt"
	"io"
)

// Native is a function implemented by the host. It receives the receiver of
// the SEND and a copy of its arguments.
type Native func(vm *VM, self Value, args []Value) (Value, error)

// RegisterNative makes fn callable as name. Image methods of the same name
// take precedence.
func (vm *VM) RegisterNative(name string, fn Native) {
	vm.natives[name] = fn
}

func registerNatives(vm *VM) {
	vm.RegisterNative("puts", nativePuts)
	vm.RegisterNative("print", nativePrint)
	vm.RegisterNative("inspect", nativeInspect)
}

// puts writes each argument on its own line; array elements are written one
// per line.
func nativePuts(vm *VM, _ Value, args []Value) (Value, error) {
	if len(args) == 0 {
		_, err := io.WriteString(vm.out, "\n")
		return nil, err
	}
	for _, a := range args {
		if err := putsValue(vm.out, a, 0); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

func putsValue(w io.Writer, v Value, depth int) error {
	if arr, ok := v.(*Array); ok && depth < 8 {
		if arr.Len() == 0 {
			_, err := io.WriteString(w, "\n")
			return err
		}
		for _, e := range arr.Elems {
			if err := putsValue(w, e, depth+1); err != nil {
				return err
			}
		}
		return nil
	}
	_, err := fmt.Fprintln(w, ToS(v))
	return err
}

func nativePrint(vm *VM, _ Value, args []Value) (Value, error) {
	for _, a := range args {
		if _, err := io.WriteString(vm.out, ToS(a)); err != nil {
			return nil, err
		}
	}
	return nil, nil
}

// inspect returns the source-like form of its argument, or of the receiver
// when called without one.
func nativeInspect(_ *VM, self Value, args []Value) (Value, error) {
	switch len(args) {
	case 0:
		return Inspect(self), nil
	case 1:
		return Inspect(args[0]), nil
	default:
		return nil, fmt.Errorf("%w (given %d, expected 0..1)", ErrArgumentCount, len(args))
	}
}
