package disptable

import "errors"

// Sentinel errors for every failure the table can report. Callers match
// with errors.Is; messages carry the opcode key where one is known.
var (
	// ErrAlloc means an entry or return buffer could not be set up.
	ErrAlloc = errors.New("disptable: allocation failed")

	// ErrNotFound means the opcode was never registered.
	ErrNotFound = errors.New("disptable: opcode not registered")

	// ErrDuplicateKey means the opcode is already registered. Registration
	// rejects rather than overwrites.
	ErrDuplicateKey = errors.New("disptable: opcode already registered")

	// ErrInvalidArgs means the argument checker rejected the input.
	ErrInvalidArgs = errors.New("disptable: invalid arguments")

	// ErrNoFuncRegistered means the entry exists but carries no handler.
	ErrNoFuncRegistered = errors.New("disptable: no function registered")

	// ErrInvalidReturnPointer means the supplied return slot disagrees with
	// the operation's declared return shape.
	ErrInvalidReturnPointer = errors.New("disptable: invalid return slot")

	// ErrMalformedKey means a stored key does not decode back to an opcode.
	ErrMalformedKey = errors.New("disptable: malformed key")
)
