// Package disptable implements an opcode-indexed call dispatch table.
//
// Callers register operation descriptors (opcode, handler, argument and
// return shapes, return-buffer ownership) into a Table, then dispatch
// requests through a four-phase path: lookup, argument validation,
// return-slot binding, invocation. The table owns the return buffer of
// every dispatcher-owned operation for the lifetime of its entry;
// handler-owned buffers are never allocated or released here.
//
// The table assumes single-threaded or externally synchronized access. Each
// entry carries exactly one return buffer, reused across calls to the same
// opcode, so two in-flight calls to one opcode can clobber each other's
// result; serializing calls per opcode is the caller's job.
package disptable
