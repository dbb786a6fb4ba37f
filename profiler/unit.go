package profiler

// CodeUnit is the host's compiled unit of instructions (a method, block or
// toplevel). The profiler only reads it. Identity is interface equality, so
// implementations must be comparable; pointer receivers are the norm.
type CodeUnit interface {
	// Len is the number of instructions in the unit. A unit of length 1 is
	// a call trampoline and is never attributed.
	Len() int

	// Base is the address of instruction 0. The instruction pointer of
	// offset i is Base()+i.
	Base() uint64

	// Filename returns the source file, or "" for units without one.
	Filename() string

	// Line returns the 1-based source line of an offset, or 0.
	Line(offset int) int

	// Owner identifies the method when no file is available.
	Owner() (typ, name string)
}

// Disassembler renders one instruction of a unit as a single line of text.
// It must be a pure function of its input.
type Disassembler interface {
	Disassemble(unit CodeUnit, offset int) string
}

// DisassemblerFunc adapts a function to Disassembler.
type DisassemblerFunc func(unit CodeUnit, offset int) string

// Disassemble calls f(unit, offset).
func (f DisassemblerFunc) Disassemble(unit CodeUnit, offset int) string {
	return f(unit, offset)
}

type noDisassembler struct{}

func (noDisassembler) Disassemble(CodeUnit, int) string { return "?" }
