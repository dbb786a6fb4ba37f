package bytecode

import "fmt"

// Opcode identifies an instruction. The set is closed: every value not
// listed below is invalid.
type Opcode byte

const (
	// ========================================================================
	// Loads (0x00-0x0F)
	// ========================================================================

	OpNop      Opcode = 0x00 // No operation
	OpMove     Opcode = 0x01 // R(A) := R(B)
	OpLoadL    Opcode = 0x02 // R(A) := Pool(Bx)
	OpLoadI    Opcode = 0x03 // R(A) := sBx
	OpLoadSym  Opcode = 0x04 // R(A) := Syms(Bx)
	OpLoadNil  Opcode = 0x05 // R(A) := nil
	OpLoadSelf Opcode = 0x06 // R(A) := self
	OpLoadT    Opcode = 0x07 // R(A) := true
	OpLoadF    Opcode = 0x08 // R(A) := false

	// ========================================================================
	// Globals (0x10-0x1F)
	// ========================================================================

	OpGetGlobal Opcode = 0x10 // R(A) := Globals[Syms(Bx)]
	OpSetGlobal Opcode = 0x11 // Globals[Syms(Bx)] := R(A)

	// ========================================================================
	// Control flow (0x20-0x2F), targets are relative to the jump itself
	// ========================================================================

	OpJmp    Opcode = 0x20 // pc += sBx
	OpJmpIf  Opcode = 0x21 // if R(A) pc += sBx
	OpJmpNot Opcode = 0x22 // if !R(A) pc += sBx

	// ========================================================================
	// Calls (0x30-0x3F)
	// ========================================================================

	OpSend   Opcode = 0x30 // R(A) := R(A).Syms(B)(R(A+1),...,R(A+C))
	OpEnter  Opcode = 0x31 // check the method received Ax arguments
	OpReturn Opcode = 0x32 // return R(A)
	OpCall   Opcode = 0x33 // invoke the pending native function (trampoline only)

	// ========================================================================
	// Arithmetic (0x40-0x4F)
	// ========================================================================

	OpAdd  Opcode = 0x40 // R(A) := R(B) + R(C)
	OpAddI Opcode = 0x41 // R(A) := R(B) + C
	OpSub  Opcode = 0x42 // R(A) := R(B) - R(C)
	OpSubI Opcode = 0x43 // R(A) := R(B) - C
	OpMul  Opcode = 0x44 // R(A) := R(B) * R(C)
	OpDiv  Opcode = 0x45 // R(A) := R(B) / R(C)
	OpMod  Opcode = 0x46 // R(A) := R(B) % R(C)

	// ========================================================================
	// Comparison (0x50-0x5F)
	// ========================================================================

	OpEq Opcode = 0x50 // R(A) := R(B) == R(C)
	OpLt Opcode = 0x51 // R(A) := R(B) < R(C)
	OpLe Opcode = 0x52 // R(A) := R(B) <= R(C)
	OpGt Opcode = 0x53 // R(A) := R(B) > R(C)
	OpGe Opcode = 0x54 // R(A) := R(B) >= R(C)

	// ========================================================================
	// Arrays and strings (0x60-0x7F)
	// ========================================================================

	OpArray   Opcode = 0x60 // R(A) := [R(B), ..., R(B+C-1)]
	OpAryPush Opcode = 0x61 // R(A).push(R(B))
	OpARef    Opcode = 0x62 // R(A) := R(B)[C]
	OpString  Opcode = 0x70 // R(A) := copy of Pool(Bx)
	OpStrCat  Opcode = 0x71 // R(A) := str(R(A)) + str(R(B))

	// ========================================================================
	// Termination (0xF0-0xFF)
	// ========================================================================

	OpRaise Opcode = 0xF0 // raise R(A)
	OpStop  Opcode = 0xFF // stop the VM
)

// Format is the operand layout of an instruction.
type Format uint8

const (
	FormatZ    Format = iota // no operands
	FormatA                  // A
	FormatAB                 // A B
	FormatABC                // A B C
	FormatABx                // A Bx
	FormatAsBx               // A sBx
	FormatSBx                // sBx
	FormatAx                 // Ax
)

// Operand kinds, one character per operand in OpcodeInfo.Operands:
//
//	R register   S symbol   L literal pool entry
//	I signed     N unsigned J jump displacement
const (
	KindRegister = 'R'
	KindSymbol   = 'S'
	KindLiteral  = 'L'
	KindSigned   = 'I'
	KindUnsigned = 'N'
	KindJump     = 'J'
)

// OpcodeInfo provides metadata about each opcode for rendering, assembly and
// validation.
type OpcodeInfo struct {
	Name     string // Mnemonic
	Format   Format // Operand layout
	Operands string // Operand kinds, see KindRegister and friends
}

// opcodeInfoTable maps opcodes to their metadata.
var opcodeInfoTable = map[Opcode]OpcodeInfo{
	// Loads
	OpNop:      {"NOP", FormatZ, ""},
	OpMove:     {"MOVE", FormatAB, "RR"},
	OpLoadL:    {"LOADL", FormatABx, "RL"},
	OpLoadI:    {"LOADI", FormatAsBx, "RI"},
	OpLoadSym:  {"LOADSYM", FormatABx, "RS"},
	OpLoadNil:  {"LOADNIL", FormatA, "R"},
	OpLoadSelf: {"LOADSELF", FormatA, "R"},
	OpLoadT:    {"LOADT", FormatA, "R"},
	OpLoadF:    {"LOADF", FormatA, "R"},

	// Globals
	OpGetGlobal: {"GETGLOBAL", FormatABx, "RS"},
	OpSetGlobal: {"SETGLOBAL", FormatABx, "RS"},

	// Control flow
	OpJmp:    {"JMP", FormatSBx, "J"},
	OpJmpIf:  {"JMPIF", FormatAsBx, "RJ"},
	OpJmpNot: {"JMPNOT", FormatAsBx, "RJ"},

	// Calls
	OpSend:   {"SEND", FormatABC, "RSN"},
	OpEnter:  {"ENTER", FormatAx, "N"},
	OpReturn: {"RETURN", FormatA, "R"},
	OpCall:   {"CALL", FormatZ, ""},

	// Arithmetic
	OpAdd:  {"ADD", FormatABC, "RRR"},
	OpAddI: {"ADDI", FormatABC, "RRN"},
	OpSub:  {"SUB", FormatABC, "RRR"},
	OpSubI: {"SUBI", FormatABC, "RRN"},
	OpMul:  {"MUL", FormatABC, "RRR"},
	OpDiv:  {"DIV", FormatABC, "RRR"},
	OpMod:  {"MOD", FormatABC, "RRR"},

	// Comparison
	OpEq: {"EQ", FormatABC, "RRR"},
	OpLt: {"LT", FormatABC, "RRR"},
	OpLe: {"LE", FormatABC, "RRR"},
	OpGt: {"GT", FormatABC, "RRR"},
	OpGe: {"GE", FormatABC, "RRR"},

	// Arrays and strings
	OpArray:   {"ARRAY", FormatABC, "RRN"},
	OpAryPush: {"ARYPUSH", FormatAB, "RR"},
	OpARef:    {"AREF", FormatABC, "RRN"},
	OpString:  {"STRING", FormatABx, "RL"},
	OpStrCat:  {"STRCAT", FormatAB, "RR"},

	// Termination
	OpRaise: {"RAISE", FormatA, "R"},
	OpStop:  {"STOP", FormatZ, ""},
}

// opcodeByName is the reverse of opcodeInfoTable, used by the assembler.
var opcodeByName = func() map[string]Opcode {
	m := make(map[string]Opcode, len(opcodeInfoTable))
	for op, info := range opcodeInfoTable {
		m[info.Name] = op
	}
	return m
}()

// GetOpcodeInfo returns metadata for an opcode.
// Returns a zero OpcodeInfo with name "UNKNOWN" if the opcode is not recognized.
func GetOpcodeInfo(op Opcode) OpcodeInfo {
	if info, ok := opcodeInfoTable[op]; ok {
		return info
	}
	return OpcodeInfo{Name: fmt.Sprintf("UNKNOWN(0x%02X)", byte(op)), Format: FormatABC, Operands: "NNN"}
}

// LookupOpcode returns the opcode with the given mnemonic.
func LookupOpcode(name string) (Opcode, bool) {
	op, ok := opcodeByName[name]
	return op, ok
}

// String returns the mnemonic of an opcode.
func (op Opcode) String() string {
	return GetOpcodeInfo(op).Name
}

// Valid reports whether op is part of the instruction set.
func (op Opcode) Valid() bool {
	_, ok := opcodeInfoTable[op]
	return ok
}

// IsJump returns true if this opcode is a jump instruction.
func (op Opcode) IsJump() bool {
	return op >= OpJmp && op <= OpJmpNot
}

// AllOpcodes returns a slice of all defined opcodes.
func AllOpcodes() []Opcode {
	opcodes := make([]Opcode, 0, len(opcodeInfoTable))
	for op := range opcodeInfoTable {
		opcodes = append(opcodes, op)
	}
	return opcodes
}
