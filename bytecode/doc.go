// Package bytecode defines the register bytecode executed by the opprof
// reference interpreter.
//
// The format is deliberately small:
//
//   - Instr: a fixed-width 32-bit instruction. The low byte is the opcode;
//     the remaining bits hold operands in one of a handful of layouts
//     (A/B/C bytes, A plus a 16-bit Bx, or a 24-bit Ax).
//
//   - Unit: one compiled method with its instruction sequence, symbol and
//     literal pools, register count and an optional per-instruction line
//     table. *Unit satisfies profiler.CodeUnit.
//
//   - Image: the units of a program laid out at stable base addresses, plus
//     the shared call trampoline (the only unit with a single instruction).
//
// Programs are written in a line-oriented assembly (Assemble) and can be
// stored as CBOR images (MarshalImage, UnmarshalImage). Render turns any
// instruction back into text and is what the profiler's reports print.
package bytecode
