package bytecode

import (
	"fmt"
	"strconv"
	"strings"
)

// AsmError is an assembly failure at a source position.
type AsmError struct {
	File string
	Line int
	Msg  string
}

func (e *AsmError) Error() string {
	return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
}

// fixup is a jump whose label is resolved when its method ends.
type fixup struct {
	pc    int
	label string
	line  int
}

type assembler struct {
	file string
	im   *Image

	unit     *Unit
	unitLine int
	regsSet  bool
	entry    bool
	maxReg   int
	labels   map[string]int
	fixups   []fixup
}

// Assemble translates assembly source into a linked image. file names the
// source; it becomes every unit's File, and every instruction's line table
// entry is the line it was written on.
//
// The syntax is one statement per line; ';' and '#' start comments:
//
//	.method fib Integer    ; start a method, class defaults to Object
//	.args 1                ; required arguments, received in R1..Rn
//	.regs 4                ; register window, derived when omitted
//	.entry                 ; run this method first (default: main)
//	loop:                  ; label, may prefix an instruction
//	  LOADI  R2 1
//	  JMPNOT R3 done       ; jump operands are labels or displacements
//	  SEND   R0 :puts 1    ; :name is a symbol, "text" and 1.5 literals
//	.end
func Assemble(file string, src []byte) (*Image, error) {
	a := &assembler{file: file, im: NewImage()}

	for n, raw := range strings.Split(string(src), "\n") {
		line := n + 1
		toks, err := tokenize(raw)
		if err != nil {
			return nil, a.errorf(line, "%s", err)
		}
		if len(toks) > 0 && isLabel(toks[0]) {
			if err := a.label(line, strings.TrimSuffix(toks[0], ":")); err != nil {
				return nil, err
			}
			toks = toks[1:]
		}
		if len(toks) == 0 {
			continue
		}
		if strings.HasPrefix(toks[0], ".") {
			err = a.directive(line, toks)
		} else {
			err = a.instruction(line, toks)
		}
		if err != nil {
			return nil, err
		}
	}

	if a.unit != nil {
		return nil, a.errorf(a.unitLine, "method %s is missing .end", a.unit.Method)
	}
	if len(a.im.Units) == 0 {
		return nil, a.errorf(1, "no methods defined")
	}
	if err := a.im.Link(); err != nil {
		return nil, fmt.Errorf("%s: %w", file, err)
	}
	return a.im, nil
}

func (a *assembler) errorf(line int, format string, args ...any) error {
	return &AsmError{File: a.file, Line: line, Msg: fmt.Sprintf(format, args...)}
}

func isLabel(tok string) bool {
	return len(tok) > 1 && strings.HasSuffix(tok, ":") && !strings.HasPrefix(tok, ":") && !strings.HasPrefix(tok, "\"")
}

// tokenize splits a line on blanks and commas, keeping quoted strings whole
// and dropping comments.
func tokenize(line string) ([]string, error) {
	var toks []string
	for i := 0; i < len(line); {
		c := line[i]
		switch {
		case c == ' ' || c == '\t' || c == ',' || c == '\r':
			i++
		case c == ';' || c == '#':
			return toks, nil
		case c == '"':
			j := i + 1
			for j < len(line) && line[j] != '"' {
				if line[j] == '\\' {
					j++
				}
				j++
			}
			if j >= len(line) {
				return nil, fmt.Errorf("unterminated string")
			}
			toks = append(toks, line[i:j+1])
			i = j + 1
		default:
			j := i
			for j < len(line) && !strings.ContainsRune(" \t,;#\"\r", rune(line[j])) {
				j++
			}
			toks = append(toks, line[i:j])
			i = j
		}
	}
	return toks, nil
}

func (a *assembler) label(line int, name string) error {
	if a.unit == nil {
		return a.errorf(line, "label %s outside a method", name)
	}
	if _, dup := a.labels[name]; dup {
		return a.errorf(line, "duplicate label %s", name)
	}
	a.labels[name] = len(a.unit.Iseq)
	return nil
}

func (a *assembler) directive(line int, toks []string) error {
	name, args := toks[0], toks[1:]

	if name == ".method" {
		if a.unit != nil {
			return a.errorf(line, "method %s is missing .end", a.unit.Method)
		}
		if len(args) < 1 || len(args) > 2 {
			return a.errorf(line, ".method takes a name and an optional class")
		}
		class := "Object"
		if len(args) == 2 {
			class = args[1]
		}
		a.unit = &Unit{Class: class, Method: args[0], File: a.file}
		a.unitLine = line
		a.regsSet = false
		a.entry = false
		a.maxReg = 0
		a.labels = make(map[string]int)
		a.fixups = nil
		return nil
	}

	if a.unit == nil {
		return a.errorf(line, "%s outside a method", name)
	}

	switch name {
	case ".args", ".regs":
		if len(args) != 1 {
			return a.errorf(line, "%s takes one number", name)
		}
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 || n > MaxA {
			return a.errorf(line, "%s: invalid count %q", name, args[0])
		}
		if name == ".args" {
			a.unit.NArgs = n
		} else {
			a.unit.NRegs = n
			a.regsSet = true
		}
	case ".entry":
		a.entry = true
	case ".end":
		return a.end()
	default:
		return a.errorf(line, "unknown directive %s", name)
	}
	return nil
}

func (a *assembler) end() error {
	u := a.unit
	for _, f := range a.fixups {
		target, ok := a.labels[f.label]
		if !ok {
			return a.errorf(f.line, "undefined label %s", f.label)
		}
		disp := target - f.pc
		if disp < MinSB || disp > MaxSB {
			return a.errorf(f.line, "jump to %s too far", f.label)
		}
		ins := u.Iseq[f.pc]
		if GetOpcodeInfo(ins.Op()).Format == FormatSBx {
			u.Iseq[f.pc] = AsBx(ins.Op(), 0, disp)
		} else {
			u.Iseq[f.pc] = AsBx(ins.Op(), ins.A(), disp)
		}
	}
	if !a.regsSet {
		u.NRegs = max(a.maxReg+1, u.NArgs+1)
	}
	idx := a.im.Add(u)
	if a.entry {
		a.im.Entry = idx
	}
	a.unit = nil
	return nil
}

// operandLimit returns the valid range of operand n in format f.
func operandLimit(f Format, n int) (lo, hi int) {
	switch {
	case f == FormatAx:
		return 0, MaxAx
	case f == FormatSBx, f == FormatAsBx && n == 1:
		return MinSB, MaxSB
	case f == FormatABx && n == 1:
		return 0, MaxBx
	default:
		return 0, MaxA
	}
}

func (a *assembler) instruction(line int, toks []string) error {
	if a.unit == nil {
		return a.errorf(line, "instruction outside a method")
	}
	op, ok := LookupOpcode(strings.ToUpper(toks[0]))
	if !ok || op == OpCall {
		return a.errorf(line, "unknown instruction %s", toks[0])
	}
	info := GetOpcodeInfo(op)
	args := toks[1:]
	if len(args) != len(info.Operands) {
		return a.errorf(line, "%s takes %d operands, got %d", info.Name, len(info.Operands), len(args))
	}

	pc := len(a.unit.Iseq)
	ops := make([]int, len(args))
	for n, kind := range info.Operands {
		v, err := a.operand(line, pc, byte(kind), args[n])
		if err != nil {
			return err
		}
		if lo, hi := operandLimit(info.Format, n); v < lo || v > hi {
			return a.errorf(line, "operand %s out of range [%d, %d]", args[n], lo, hi)
		}
		ops[n] = v
		if kind == KindRegister {
			a.maxReg = max(a.maxReg, v)
		}
	}
	switch op {
	case OpSend:
		a.maxReg = max(a.maxReg, ops[0]+ops[2])
	case OpArray:
		a.maxReg = max(a.maxReg, ops[1]+ops[2]-1)
	}

	a.unit.Emit(encode(op, info.Format, ops), line)
	return nil
}

func (a *assembler) operand(line, pc int, kind byte, tok string) (int, error) {
	switch kind {
	case KindRegister:
		if len(tok) < 2 || (tok[0] != 'R' && tok[0] != 'r') {
			return 0, a.errorf(line, "expected register, got %s", tok)
		}
		n, err := strconv.Atoi(tok[1:])
		if err != nil || n < 0 {
			return 0, a.errorf(line, "invalid register %s", tok)
		}
		return n, nil

	case KindSymbol:
		if len(tok) < 2 || tok[0] != ':' {
			return 0, a.errorf(line, "expected symbol, got %s", tok)
		}
		return a.unit.AddSym(tok[1:]), nil

	case KindLiteral:
		lit, err := parseLiteral(tok)
		if err != nil {
			return 0, a.errorf(line, "%s", err)
		}
		return a.unit.AddLiteral(lit), nil

	case KindJump:
		if n, err := strconv.Atoi(tok); err == nil {
			return n, nil
		}
		a.fixups = append(a.fixups, fixup{pc: pc, label: tok, line: line})
		return 0, nil

	default:
		n, err := strconv.ParseInt(tok, 0, 64)
		if err != nil {
			return 0, a.errorf(line, "expected number, got %s", tok)
		}
		if kind == KindUnsigned && n < 0 {
			return 0, a.errorf(line, "expected unsigned number, got %s", tok)
		}
		return int(n), nil
	}
}

func parseLiteral(tok string) (Literal, error) {
	if strings.HasPrefix(tok, "\"") {
		s, err := strconv.Unquote(tok)
		if err != nil {
			return Literal{}, fmt.Errorf("invalid string %s", tok)
		}
		return Literal{Kind: LiteralString, Str: s}, nil
	}
	if n, err := strconv.ParseInt(tok, 0, 64); err == nil {
		return Literal{Kind: LiteralInt, Int: n}, nil
	}
	if f, err := strconv.ParseFloat(tok, 64); err == nil {
		return Literal{Kind: LiteralFloat, Float: f}, nil
	}
	return Literal{}, fmt.Errorf("invalid literal %s", tok)
}
