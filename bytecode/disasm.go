package bytecode

import (
	"fmt"
	"strings"
)

// Render returns a one-line rendering of ins in the context of u, whose
// pools resolve symbol and literal operands. The result depends only on its
// arguments.
func Render(u *Unit, ins Instr) string {
	op := ins.Op()
	info := GetOpcodeInfo(op)
	ops := ins.operands(info.Format)

	var sb strings.Builder
	sb.WriteString(info.Name)
	var comment string
	for n, kind := range info.Operands {
		v := ops[n]
		sb.WriteByte('\t')
		switch kind {
		case KindRegister:
			fmt.Fprintf(&sb, "R%d", v)
		case KindSymbol:
			fmt.Fprintf(&sb, ":%s", symbolAt(u, v))
		case KindLiteral:
			fmt.Fprintf(&sb, "L(%d)", v)
			comment = literalAt(u, v)
		case KindJump:
			fmt.Fprintf(&sb, "%+d", v)
		default:
			fmt.Fprintf(&sb, "%d", v)
		}
	}
	if comment != "" {
		sb.WriteString("\t; ")
		sb.WriteString(comment)
	}
	return sb.String()
}

// Disassemble renders the instruction at offset of u.
func Disassemble(u *Unit, offset int) string {
	if offset < 0 || offset >= len(u.Iseq) {
		return "<out of range>"
	}
	return Render(u, u.Iseq[offset])
}

func symbolAt(u *Unit, i int) string {
	if u == nil || i >= len(u.Syms) {
		return "?"
	}
	return u.Syms[i]
}

func literalAt(u *Unit, i int) string {
	if u == nil || i >= len(u.Pool) {
		return "?"
	}
	s := u.Pool[i].String()
	if len(s) > 40 {
		s = s[:37] + "..."
	}
	return s
}

// Listing returns a human-readable listing of the whole unit.
func (u *Unit) Listing() string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("; === %s ===\n", u.Name()))
	if u.File != "" {
		sb.WriteString(fmt.Sprintf("; File: %s\n", u.File))
	}
	sb.WriteString(fmt.Sprintf("; Args: %d  Regs: %d  Base: 0x%x\n", u.NArgs, u.NRegs, u.base))

	if len(u.Syms) > 0 {
		sb.WriteString("; Symbols:\n")
		for i, s := range u.Syms {
			sb.WriteString(fmt.Sprintf(";   [%3d] :%s\n", i, s))
		}
	}
	if len(u.Pool) > 0 {
		sb.WriteString("; Literals:\n")
		for i := range u.Pool {
			sb.WriteString(fmt.Sprintf(";   [%3d] %s\n", i, literalAt(u, i)))
		}
	}

	sb.WriteString("; Code:\n")
	for pc, ins := range u.Iseq {
		text := Render(u, ins)
		if line := u.Line(pc); line > 0 {
			sb.WriteString(fmt.Sprintf("%04d  %-30s ; line %d\n", pc, text, line))
		} else {
			sb.WriteString(fmt.Sprintf("%04d  %s\n", pc, text))
		}
	}
	return sb.String()
}
