package bytecode

import (
	"fmt"
	"strconv"
)

// LiteralKind tags the value held by a Literal.
type LiteralKind uint8

const (
	LiteralInt    LiteralKind = 1
	LiteralFloat  LiteralKind = 2
	LiteralString LiteralKind = 3
)

// Literal is one entry of a unit's literal pool.
type Literal struct {
	Kind  LiteralKind `cbor:"1,keyasint"`
	Int   int64       `cbor:"2,keyasint,omitempty"`
	Float float64     `cbor:"3,keyasint,omitempty"`
	Str   string      `cbor:"4,keyasint,omitempty"`
}

// String returns the literal as it would be written in source.
func (l Literal) String() string {
	switch l.Kind {
	case LiteralInt:
		return strconv.FormatInt(l.Int, 10)
	case LiteralFloat:
		return strconv.FormatFloat(l.Float, 'g', -1, 64)
	case LiteralString:
		return strconv.Quote(l.Str)
	default:
		return fmt.Sprintf("Literal(%d)", l.Kind)
	}
}

// Unit is one compiled method: its instructions plus the pools they index.
type Unit struct {
	Class  string    `cbor:"1,keyasint"`
	Method string    `cbor:"2,keyasint"`
	File   string    `cbor:"3,keyasint,omitempty"`
	Lines  []int     `cbor:"4,keyasint,omitempty"` // Source line per instruction, 1-based
	Iseq   []Instr   `cbor:"5,keyasint"`
	Syms   []string  `cbor:"6,keyasint,omitempty"`
	Pool   []Literal `cbor:"7,keyasint,omitempty"`
	NRegs  int       `cbor:"8,keyasint"` // Register window size, R0 is self
	NArgs  int       `cbor:"9,keyasint"` // Required arguments, in R1..R(NArgs)

	// base is assigned by Image.Link.
	base uint64
}

// Len returns the number of instructions.
func (u *Unit) Len() int { return len(u.Iseq) }

// Base returns the address of the first instruction.
func (u *Unit) Base() uint64 { return u.base }

// Filename returns the source file the unit was assembled from.
func (u *Unit) Filename() string { return u.File }

// Owner returns the class and method name.
func (u *Unit) Owner() (string, string) { return u.Class, u.Method }

// Line returns the source line of the instruction at offset, or 0 when the
// unit carries no line table.
func (u *Unit) Line(offset int) int {
	if offset < 0 || offset >= len(u.Lines) {
		return 0
	}
	return u.Lines[offset]
}

// Name returns "Class#method".
func (u *Unit) Name() string {
	return u.Class + "#" + u.Method
}

// AddSym interns a symbol and returns its index.
func (u *Unit) AddSym(name string) int {
	for i, s := range u.Syms {
		if s == name {
			return i
		}
	}
	u.Syms = append(u.Syms, name)
	return len(u.Syms) - 1
}

// AddLiteral adds a pool entry, reusing an identical one, and returns its
// index.
func (u *Unit) AddLiteral(l Literal) int {
	for i, p := range u.Pool {
		if p == l {
			return i
		}
	}
	u.Pool = append(u.Pool, l)
	return len(u.Pool) - 1
}

// Emit appends an instruction attributed to a source line and returns its
// offset.
func (u *Unit) Emit(ins Instr, line int) int {
	u.Iseq = append(u.Iseq, ins)
	if line > 0 || u.Lines != nil {
		for len(u.Lines) < len(u.Iseq)-1 {
			u.Lines = append(u.Lines, 0)
		}
		u.Lines = append(u.Lines, line)
	}
	return len(u.Iseq) - 1
}

// validate checks every operand against the unit's pools and registers.
func (u *Unit) validate() error {
	if len(u.Iseq) < 2 {
		return fmt.Errorf("%s: %d instructions; single-instruction units are reserved for the call trampoline", u.Name(), len(u.Iseq))
	}
	if u.Lines != nil && len(u.Lines) != len(u.Iseq) {
		return fmt.Errorf("%s: line table has %d entries for %d instructions", u.Name(), len(u.Lines), len(u.Iseq))
	}
	if u.NRegs < u.NArgs+1 {
		return fmt.Errorf("%s: %d registers cannot hold self and %d arguments", u.Name(), u.NRegs, u.NArgs)
	}

	for pc, ins := range u.Iseq {
		op := ins.Op()
		if !op.Valid() || op == OpCall {
			return fmt.Errorf("%s@%d: invalid opcode 0x%02X", u.Name(), pc, byte(op))
		}
		info := GetOpcodeInfo(op)
		ops := ins.operands(info.Format)
		for n, kind := range info.Operands {
			v := ops[n]
			switch kind {
			case KindRegister:
				limit := v
				if op == OpSend {
					limit = v + ins.C()
				} else if op == OpArray && n == 1 {
					limit = v + ins.C() - 1
				}
				if limit >= u.NRegs {
					return fmt.Errorf("%s@%d: register R%d outside window of %d", u.Name(), pc, limit, u.NRegs)
				}
			case KindSymbol:
				if v >= len(u.Syms) {
					return fmt.Errorf("%s@%d: symbol %d outside pool of %d", u.Name(), pc, v, len(u.Syms))
				}
			case KindLiteral:
				if v >= len(u.Pool) {
					return fmt.Errorf("%s@%d: literal %d outside pool of %d", u.Name(), pc, v, len(u.Pool))
				}
			case KindJump:
				if t := pc + v; t < 0 || t >= len(u.Iseq) {
					return fmt.Errorf("%s@%d: jump target %d outside [0, %d)", u.Name(), pc, t, len(u.Iseq))
				}
			}
		}
	}
	return nil
}
