package bytecode

// Instr is one encoded instruction:
//
//	bits  0-7   opcode
//	bits  8-15  A
//	bits 16-23  B        bits 16-31 Bx (sBx = Bx - MaxSBx)
//	bits 24-31  C
//	bits  8-31  Ax
type Instr uint32

// MaxSBx is the bias applied to signed Bx operands.
const MaxSBx = 0x7FFF

// Operand limits.
const (
	MaxA  = 0xFF
	MaxB  = 0xFF
	MaxC  = 0xFF
	MaxBx = 0xFFFF
	MaxAx = 0xFFFFFF
	MinSB = -MaxSBx
	MaxSB = MaxBx - MaxSBx
)

func (i Instr) Op() Opcode { return Opcode(i & 0xFF) }
func (i Instr) A() int     { return int(i>>8) & 0xFF }
func (i Instr) B() int     { return int(i>>16) & 0xFF }
func (i Instr) C() int     { return int(i >> 24) }
func (i Instr) Bx() int    { return int(i >> 16) }
func (i Instr) SBx() int   { return i.Bx() - MaxSBx }
func (i Instr) Ax() int    { return int(i >> 8) }

// Z encodes an instruction without operands.
func Z(op Opcode) Instr {
	return Instr(op)
}

// ABC encodes an instruction with three byte operands.
func ABC(op Opcode, a, b, c int) Instr {
	return Instr(op) | Instr(a&0xFF)<<8 | Instr(b&0xFF)<<16 | Instr(c&0xFF)<<24
}

// ABx encodes an instruction with a byte operand and a 16-bit operand.
func ABx(op Opcode, a, bx int) Instr {
	return Instr(op) | Instr(a&0xFF)<<8 | Instr(bx&0xFFFF)<<16
}

// AsBx encodes an instruction with a byte operand and a signed 16-bit
// operand.
func AsBx(op Opcode, a, sbx int) Instr {
	return ABx(op, a, sbx+MaxSBx)
}

// Ax encodes an instruction with one 24-bit operand.
func Ax(op Opcode, ax int) Instr {
	return Instr(op) | Instr(ax&0xFFFFFF)<<8
}

// operands returns the operand values of i in the order of its format.
func (i Instr) operands(f Format) []int {
	switch f {
	case FormatA:
		return []int{i.A()}
	case FormatAB:
		return []int{i.A(), i.B()}
	case FormatABC:
		return []int{i.A(), i.B(), i.C()}
	case FormatABx:
		return []int{i.A(), i.Bx()}
	case FormatAsBx:
		return []int{i.A(), i.SBx()}
	case FormatSBx:
		return []int{i.SBx()}
	case FormatAx:
		return []int{i.Ax()}
	default:
		return nil
	}
}

// encode builds an instruction from operand values in format order.
func encode(op Opcode, f Format, ops []int) Instr {
	arg := func(n int) int {
		if n < len(ops) {
			return ops[n]
		}
		return 0
	}
	switch f {
	case FormatA:
		return ABC(op, arg(0), 0, 0)
	case FormatAB:
		return ABC(op, arg(0), arg(1), 0)
	case FormatABC:
		return ABC(op, arg(0), arg(1), arg(2))
	case FormatABx:
		return ABx(op, arg(0), arg(1))
	case FormatAsBx:
		return AsBx(op, arg(0), arg(1))
	case FormatSBx:
		return AsBx(op, 0, arg(0))
	case FormatAx:
		return Ax(op, arg(0))
	default:
		return Z(op)
	}
}
