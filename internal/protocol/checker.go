package protocol

import (
	"fmt"

	"github.com/mattjoyce/opgate/internal/disptable"
)

// ShapeChecker validates a raw argument buffer against the descriptor's
// declared argument shape. It is the gateway's argument validator: fixed
// shapes must match exactly, variable shapes cap at the declared size, and
// void shapes require an empty buffer.
type ShapeChecker struct{}

// CheckArgs implements disptable.ArgChecker.
func (ShapeChecker) CheckArgs(op *disptable.Op, args []byte) error {
	n := uint32(len(args))

	switch op.Args.Type {
	case disptable.TypeNone:
		if n != 0 {
			return fmt.Errorf("op takes no arguments, got %d bytes", n)
		}
	case disptable.TypeFixed:
		if n != op.Args.Size {
			return fmt.Errorf("args are %d bytes, want exactly %d", n, op.Args.Size)
		}
	case disptable.TypeVar:
		if n > op.Args.Size {
			return fmt.Errorf("args are %d bytes, want at most %d", n, op.Args.Size)
		}
	default:
		return fmt.Errorf("unknown argument shape type %d", op.Args.Type)
	}

	return nil
}
