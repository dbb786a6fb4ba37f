// Package vm implements a register interpreter for linked bytecode images.
//
// This package contains:
//   - Dynamic value representation
//   - Frames with register windows on an explicit frame stack
//   - Message dispatch to image methods and native functions
//   - The fetch hook that instruction-level profilers attach to
package vm
