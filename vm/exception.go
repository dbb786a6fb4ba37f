package vm

import (
	"errors"
	"fmt"

	"github.com/chazu/opprof/bytecode"
)

var (
	ErrNotLinked     = errors.New("image is not linked")
	ErrNoMethod      = errors.New("undefined method")
	ErrArgumentCount = errors.New("wrong number of arguments")
	ErrType          = errors.New("type error")
	ErrZeroDivision  = errors.New("divided by 0")
	ErrStackOverflow = errors.New("stack level too deep")
	ErrInvalidOpcode = errors.New("invalid opcode")
	ErrPastEnd       = errors.New("execution ran past the last instruction")
)

// ---------------------------------------------------------------------------
// Runtime errors
// ---------------------------------------------------------------------------

// RuntimeError locates an error raised while executing an instruction.
type RuntimeError struct {
	Unit *bytecode.Unit
	PC   int
	Err  error
}

func (e *RuntimeError) Error() string {
	where := fmt.Sprintf("%s@%d", e.Unit.Name(), e.PC)
	if line := e.Unit.Line(e.PC); line > 0 && e.Unit.File != "" {
		where = fmt.Sprintf("%s (%s:%d)", where, e.Unit.File, line)
	}
	return where + ": " + e.Err.Error()
}

func (e *RuntimeError) Unwrap() error { return e.Err }

// RaisedError carries the value passed to RAISE.
type RaisedError struct {
	Value Value
}

func (e *RaisedError) Error() string {
	if s, ok := e.Value.(string); ok {
		return s
	}
	return "raised " + Inspect(e.Value)
}

func typeError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrType, fmt.Sprintf(format, args...))
}
