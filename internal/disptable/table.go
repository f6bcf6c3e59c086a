package disptable

import (
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/mattjoyce/opgate/internal/kvstore"
	"github.com/mattjoyce/opgate/internal/log"
)

// ArgChecker validates the raw argument buffer for an operation. It is
// supplied by the surrounding module and called unconditionally during
// CheckArgs and CheckAndCall.
type ArgChecker interface {
	CheckArgs(op *Op, args []byte) error
}

// Table maps opcodes to registered operations. It owns every entry it
// stores and, for dispatcher-owned operations, the entry's return buffer.
// Descriptors are borrowed from the caller and never copied or mutated.
//
// Not safe for concurrent mutation; see the package comment.
type Table struct {
	store   kvstore.Store
	checker ArgChecker
	logger  *slog.Logger
}

// New creates a table over the given store with the given argument checker.
// Both are required.
func New(store kvstore.Store, checker ArgChecker) (*Table, error) {
	if store == nil {
		return nil, fmt.Errorf("disptable: nil store")
	}
	if checker == nil {
		return nil, fmt.Errorf("disptable: nil arg checker")
	}
	return &Table{
		store:   store,
		checker: checker,
		logger:  log.WithComponent("disptable"),
	}, nil
}

func freeEntry(v any) {
	if e, ok := v.(*entry); ok {
		e.releaseRet()
	}
}

// Insert registers one descriptor. The entry's return buffer is allocated
// eagerly when the operation is dispatcher-owned and non-void. Fails with
// ErrDuplicateKey if the opcode is already registered; on any failure the
// partially built entry is released before returning.
func (t *Table) Insert(op *Op) error {
	if op == nil {
		return fmt.Errorf("insert: nil descriptor: %w", ErrAlloc)
	}

	key := EncodeKey(op.Opcode)
	e := newEntry(op)

	if err := t.store.Insert(key, e, freeEntry); err != nil {
		e.releaseRet()
		if errors.Is(err, kvstore.ErrDuplicateKey) {
			return fmt.Errorf("opcode %s (%s): %w", key, op.Name, ErrDuplicateKey)
		}
		return fmt.Errorf("opcode %s (%s): store insert: %v: %w", key, op.Name, err, ErrAlloc)
	}

	t.logger.Debug("registered operation", "opcode", key, "name", op.Name,
		"ret_shape", op.Ret.String(), "ret_owner", op.RetOwner.String())
	return nil
}

// InsertAll registers each descriptor in order, stopping at the first
// failure and returning it. Earlier successful insertions are not rolled
// back; callers treating registration failure as fatal should tear the
// table down.
func (t *Table) InsertAll(ops []*Op) error {
	for _, op := range ops {
		if err := t.Insert(op); err != nil {
			return fmt.Errorf("insert all: %w", err)
		}
	}
	return nil
}

// Remove unregisters an opcode, releasing its dispatcher-owned return
// buffer first. Fails with ErrNotFound if the opcode is not registered.
func (t *Table) Remove(opcode uint32) error {
	key := EncodeKey(opcode)
	e := t.lookupEntry(opcode)
	if e == nil {
		return fmt.Errorf("remove opcode %s: %w", key, ErrNotFound)
	}

	e.releaseRet()
	// The store runs freeEntry on delete; releaseRet is idempotent so the
	// double release is harmless.
	t.store.Delete(key)

	t.logger.Debug("removed operation", "opcode", key)
	return nil
}

// RemoveAll unregisters every opcode. Best-effort by contract: individual
// removal failures are swallowed and the sweep continues.
func (t *Table) RemoveAll() {
	for _, key := range t.store.Keys() {
		opcode, err := DecodeKey(key)
		if err != nil {
			t.logger.Warn("skipping undecodable key during sweep", "key", key, "error", err)
			continue
		}
		if err := t.Remove(opcode); err != nil {
			t.logger.Debug("remove during sweep failed", "key", key, "error", err)
		}
	}
}

// Lookup returns the registered descriptor for an opcode. The returned
// pointer is the caller's own descriptor, borrowed, not a copy.
func (t *Table) Lookup(opcode uint32) (*Op, bool) {
	e := t.lookupEntry(opcode)
	if e == nil {
		return nil, false
	}
	return e.op, true
}

// Ops returns every registered descriptor, ordered by opcode.
func (t *Table) Ops() []*Op {
	keys := t.store.Keys()
	sort.Strings(keys)

	ops := make([]*Op, 0, len(keys))
	for _, key := range keys {
		if v, ok := t.store.Lookup(key); ok {
			ops = append(ops, v.(*entry).op)
		}
	}
	return ops
}

// Len returns the number of registered operations.
func (t *Table) Len() int {
	return t.store.Len()
}

// Destroy removes every entry and purges the underlying store. Call once;
// the table is unusable afterwards.
func (t *Table) Destroy() {
	t.RemoveAll()
	t.store.Purge()
}

func (t *Table) lookupEntry(opcode uint32) *entry {
	v, ok := t.store.Lookup(EncodeKey(opcode))
	if !ok {
		return nil
	}
	return v.(*entry)
}
