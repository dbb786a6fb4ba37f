package vm

import (
	"github.com/chazu/opprof/bytecode"
	"github.com/chazu/opprof/profiler"
)

// AttachProfiler installs s as the fetch hook. If s fails, the VM detaches
// it and keeps running; s.Err reports the failure.
func (vm *VM) AttachProfiler(s *profiler.Session) {
	vm.SetHook(func(u *bytecode.Unit, ptr uint64) error {
		return s.OnFetch(u, ptr)
	})
}

// Disassembler renders instructions of bytecode units for profile reports.
var Disassembler profiler.Disassembler = profiler.DisassemblerFunc(disassemble)

func disassemble(unit profiler.CodeUnit, offset int) string {
	u, ok := unit.(*bytecode.Unit)
	if !ok {
		return "?"
	}
	return bytecode.Disassemble(u, offset)
}
