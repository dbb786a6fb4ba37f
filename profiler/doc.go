// Package profiler implements an instruction-level call-tree profiler for
// register bytecode interpreters.
//
// A host interpreter calls (*Session).OnFetch immediately before it executes
// each instruction, passing the code unit being executed and the address of
// the instruction. The session keeps a cursor on the call-tree node that is
// currently executing and, from code-unit identity alone, decides whether
// the new event is straight-line execution, a call into a callee it has
// already seen from this node, a return into an enclosing node, or a call
// into a new callee.
//
// # Attribution
//
// Every event closes the interval opened by the previous one: the elapsed
// time and one execution count are charged to the previous instruction of
// the previously current node. The very first event only establishes the
// root. Flush closes the last pending interval; Teardown flushes before it
// reports.
//
// # Tree size
//
// Children are searched before ancestors, so repeated calls along the same
// edge resolve to the existing node and returns never allocate. The tree is
// bounded by the static call graph rather than by the number of dynamic
// calls. The price is accuracy when one unit is reachable from unrelated
// call sites or through cycles that are neither a direct child nor an
// ancestor: those events may create a duplicate node or select the wrong
// ancestor.
//
// # Nodes and memory
//
// All nodes live in a Store arena and refer to each other by NodeID. Nothing
// is freed until Teardown drops the store as a whole.
//
// A Session is not safe for concurrent use. Hosts that run several logical
// execution contexts need one Session per context.
package profiler
