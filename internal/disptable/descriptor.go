package disptable

import "fmt"

// ArgType classifies the payload described by a Shape.
type ArgType uint8

const (
	// TypeNone marks "no value". An operation with a TypeNone return shape
	// produces nothing and must be called with a nil return slot.
	TypeNone ArgType = iota

	// TypeFixed payloads are exactly Size bytes.
	TypeFixed

	// TypeVar payloads are up to Size bytes.
	TypeVar
)

// Shape describes the size and kind of an argument or return payload.
// The zero value means "no value".
type Shape struct {
	Type ArgType
	Size uint32
}

// Fixed returns a shape for a payload of exactly size bytes.
func Fixed(size uint32) Shape {
	return Shape{Type: TypeFixed, Size: size}
}

// Variable returns a shape for a payload of at most max bytes.
func Variable(max uint32) Shape {
	return Shape{Type: TypeVar, Size: max}
}

// IsNone reports whether the shape is the "no value" marker.
func (s Shape) IsNone() bool {
	return s.Type == TypeNone
}

func (s Shape) String() string {
	switch s.Type {
	case TypeNone:
		return "none"
	case TypeFixed:
		return fmt.Sprintf("fixed(%d)", s.Size)
	default:
		return fmt.Sprintf("var(%d)", s.Size)
	}
}

// Ownership says which party allocates and releases an operation's return
// buffer.
type Ownership uint8

const (
	// OwnerDispatch: the table allocates the buffer on insert and releases
	// it on cleanup and removal.
	OwnerDispatch Ownership = iota

	// OwnerHandler: the handler side supplies the buffer (see
	// Table.BindReturn); the table never allocates or releases it.
	OwnerHandler
)

func (o Ownership) String() string {
	if o == OwnerHandler {
		return "handler"
	}
	return "dispatch"
}

// HandlerFunc performs one operation's work. owner is the opaque service
// value supplied at call time, args is the raw argument buffer, and ret is
// the bound return slot (nil for void operations). The returned status code
// is passed through to the caller uninterpreted.
type HandlerFunc func(owner any, args []byte, ret []byte) int32

// Op is an operation descriptor. It is supplied by the caller before
// registration, never mutated by the table, and must outlive every entry
// that references it.
type Op struct {
	// Opcode is the unique 32-bit identifier for the operation.
	Opcode uint32

	// Name is for diagnostics only.
	Name string

	// Func is the handler invoked on dispatch.
	Func HandlerFunc

	// Args describes the expected argument payload.
	Args Shape

	// Ret describes the return payload. The zero Shape marks a void
	// operation.
	Ret Shape

	// RetOwner says who allocates and releases the return buffer.
	RetOwner Ownership
}

// FillFuncs pairs each descriptor with the handler at the same index.
// It fails without assigning anything if the slices have different lengths.
func FillFuncs(ops []*Op, fns []HandlerFunc) error {
	if len(ops) != len(fns) {
		return fmt.Errorf("descriptor/handler count mismatch: %d vs %d", len(ops), len(fns))
	}
	for i, op := range ops {
		op.Func = fns[i]
	}
	return nil
}
