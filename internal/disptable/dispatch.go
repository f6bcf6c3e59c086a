package disptable

import "fmt"

// CheckArgs looks up the entry for opcode, runs the argument checker over
// args, and returns the bound return slot: nil for a void operation,
// otherwise the entry's buffer. The slot is borrowed; callers must not
// retain it past the next call to the same opcode or free it.
func (t *Table) CheckArgs(opcode uint32, args []byte) ([]byte, error) {
	e := t.lookupEntry(opcode)
	if e == nil {
		return nil, fmt.Errorf("check args opcode %s: %w", EncodeKey(opcode), ErrNotFound)
	}

	if err := t.checker.CheckArgs(e.op, args); err != nil {
		return nil, fmt.Errorf("opcode %s (%s): %v: %w", EncodeKey(opcode), e.op.Name, err, ErrInvalidArgs)
	}

	return e.bindRet()
}

// Call invokes the registered handler with (owner, args, ret) and returns
// its status code verbatim. The return slot must agree with the declared
// return shape: non-void operations require a non-nil slot, void operations
// a nil one. Call never touches the entry's buffer state.
func (t *Table) Call(opcode uint32, owner any, args []byte, ret []byte) (int32, error) {
	e := t.lookupEntry(opcode)
	if e == nil {
		return 0, fmt.Errorf("call opcode %s: %w", EncodeKey(opcode), ErrNotFound)
	}

	if e.op.Func == nil {
		return 0, fmt.Errorf("opcode %s (%s): %w", EncodeKey(opcode), e.op.Name, ErrNoFuncRegistered)
	}

	wantsRet := !e.op.Ret.IsNone()
	if wantsRet != (ret != nil) {
		return 0, fmt.Errorf("opcode %s (%s): ret shape %s, slot present %t: %w",
			EncodeKey(opcode), e.op.Name, e.op.Ret.String(), ret != nil, ErrInvalidReturnPointer)
	}

	return e.op.Func(owner, args, ret), nil
}

// CheckAndCall is the fused request path: validate, bind the return slot,
// invoke. Equivalent to CheckArgs followed by Call with the produced slot.
func (t *Table) CheckAndCall(opcode uint32, owner any, args []byte) (int32, error) {
	ret, err := t.CheckArgs(opcode, args)
	if err != nil {
		return 0, err
	}
	return t.Call(opcode, owner, args, ret)
}

// CleanupReturn releases the entry's return buffer if the table owns it.
// Idempotent, and a successful no-op for handler-owned operations or when
// the buffer is already absent.
func (t *Table) CleanupReturn(opcode uint32) error {
	e := t.lookupEntry(opcode)
	if e == nil {
		return fmt.Errorf("cleanup opcode %s: %w", EncodeKey(opcode), ErrNotFound)
	}
	e.releaseRet()
	return nil
}

// ReturnSlot returns the current return slot for an opcode without
// validating arguments: nil for void operations, the entry's buffer
// otherwise. Fails with ErrAlloc if a non-void operation has no buffer.
func (t *Table) ReturnSlot(opcode uint32) ([]byte, error) {
	e := t.lookupEntry(opcode)
	if e == nil {
		return nil, fmt.Errorf("return slot opcode %s: %w", EncodeKey(opcode), ErrNotFound)
	}
	return e.bindRet()
}

// BindReturn installs an externally owned return buffer on a handler-owned
// entry. The table never releases a buffer installed this way. Fails with
// ErrInvalidReturnPointer when the operation is dispatcher-owned (the table
// already holds that storage) or when the buffer is smaller than the
// declared return shape.
func (t *Table) BindReturn(opcode uint32, buf []byte) error {
	e := t.lookupEntry(opcode)
	if e == nil {
		return fmt.Errorf("bind return opcode %s: %w", EncodeKey(opcode), ErrNotFound)
	}
	if e.op.RetOwner != OwnerHandler {
		return fmt.Errorf("opcode %s (%s) is dispatcher-owned: %w",
			EncodeKey(opcode), e.op.Name, ErrInvalidReturnPointer)
	}
	if !e.op.Ret.IsNone() && uint32(len(buf)) < e.op.Ret.Size {
		return fmt.Errorf("opcode %s (%s): buffer %d bytes, shape %s: %w",
			EncodeKey(opcode), e.op.Name, len(buf), e.op.Ret.String(), ErrInvalidReturnPointer)
	}
	e.ret = buf
	return nil
}
