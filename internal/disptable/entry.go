package disptable

import "fmt"

// entry is the table's mutable record for one registered opcode: the
// descriptor plus the current return buffer, if any.
//
// ret is non-nil iff the entry currently holds return storage. For
// dispatcher-owned operations it is allocated on insert and released on
// cleanup and removal; for handler-owned operations it is whatever the
// owner installed via Table.BindReturn and is never released here.
type entry struct {
	op  *Op
	ret []byte
}

func newEntry(op *Op) *entry {
	e := &entry{op: op}
	e.allocRet()
	return e
}

// allocRet eagerly allocates the dispatcher-owned return buffer. A void
// return shape or a declared size of zero means no allocation is needed.
func (e *entry) allocRet() {
	if e.op.RetOwner != OwnerDispatch {
		return
	}
	if e.op.Ret.IsNone() || e.op.Ret.Size == 0 {
		return
	}
	e.ret = make([]byte, e.op.Ret.Size)
}

// releaseRet drops dispatcher-owned return storage. Idempotent. Buffers the
// table does not own are left alone.
func (e *entry) releaseRet() {
	if e.op.RetOwner != OwnerDispatch {
		return
	}
	e.ret = nil
}

// bindRet returns the slot a handler should write its result into: nil for
// a void operation, otherwise the entry's current buffer. A non-void
// operation without a buffer fails with ErrAlloc; for handler-owned
// operations that means no buffer was installed.
func (e *entry) bindRet() ([]byte, error) {
	if e.op.Ret.IsNone() {
		return nil, nil
	}
	if e.ret == nil {
		return nil, fmt.Errorf("op %q has no return buffer: %w", e.op.Name, ErrAlloc)
	}
	return e.ret, nil
}
