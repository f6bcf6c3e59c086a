package disptable

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mattjoyce/opgate/internal/kvstore"
	"github.com/mattjoyce/opgate/internal/log"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR") // Suppress logs in tests
	m.Run()
}

// okChecker accepts everything.
type okChecker struct{}

func (okChecker) CheckArgs(op *Op, args []byte) error { return nil }

// rejectChecker rejects everything.
type rejectChecker struct{}

func (rejectChecker) CheckArgs(op *Op, args []byte) error {
	return fmt.Errorf("rejected %d bytes for %q", len(args), op.Name)
}

func newTestTable(t *testing.T, checker ArgChecker) *Table {
	t.Helper()
	if checker == nil {
		checker = okChecker{}
	}
	tbl, err := New(kvstore.NewMem(), checker)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return tbl
}

func statusOK(owner any, args []byte, ret []byte) int32 { return 0 }

func TestInsertLookupIdentity(t *testing.T) {
	tbl := newTestTable(t, nil)

	op := &Op{Opcode: 0x01, Name: "noop", Func: statusOK}
	if err := tbl.Insert(op); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	got, ok := tbl.Lookup(0x01)
	if !ok {
		t.Fatal("Lookup after Insert returned nothing")
	}
	if got != op {
		t.Error("Lookup returned a copy, want the registered descriptor itself")
	}
}

func TestLookupUnregistered(t *testing.T) {
	tbl := newTestTable(t, nil)

	if _, ok := tbl.Lookup(0x42); ok {
		t.Error("Lookup of unregistered opcode returned an entry")
	}
	if _, err := tbl.Call(0x42, nil, nil, nil); !errors.Is(err, ErrNotFound) {
		t.Errorf("Call of unregistered opcode = %v, want ErrNotFound", err)
	}
}

func TestInsertDuplicate(t *testing.T) {
	tbl := newTestTable(t, nil)

	first := &Op{Opcode: 0x10, Name: "first", Func: statusOK}
	if err := tbl.Insert(first); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	dup := &Op{Opcode: 0x10, Name: "dup", Func: statusOK}
	if err := tbl.Insert(dup); !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("duplicate Insert = %v, want ErrDuplicateKey", err)
	}

	// First registration must survive the rejected duplicate.
	got, ok := tbl.Lookup(0x10)
	if !ok || got != first {
		t.Error("original entry lost after duplicate insert")
	}
}

func TestInsertAllAbortsAtFirstFailure(t *testing.T) {
	tbl := newTestTable(t, nil)

	d1 := &Op{Opcode: 0x01, Name: "d1", Func: statusOK}
	d2 := &Op{Opcode: 0x01, Name: "d2-duplicate", Func: statusOK}
	d3 := &Op{Opcode: 0x03, Name: "d3", Func: statusOK}

	err := tbl.InsertAll([]*Op{d1, d2, d3})
	if !errors.Is(err, ErrDuplicateKey) {
		t.Fatalf("InsertAll = %v, want ErrDuplicateKey", err)
	}

	// d1 stays registered (no rollback), d3 never got inserted.
	if got, ok := tbl.Lookup(0x01); !ok || got != d1 {
		t.Error("d1 not retained after aborted InsertAll")
	}
	if _, ok := tbl.Lookup(0x03); ok {
		t.Error("d3 registered despite earlier failure")
	}
}

func TestInsertAllocatesDispatcherOwnedBuffer(t *testing.T) {
	tests := []struct {
		name     string
		op       *Op
		wantSize int
	}{
		{"dispatcher owned fixed", &Op{Opcode: 1, Name: "a", Func: statusOK, Ret: Fixed(4)}, 4},
		{"dispatcher owned zero size", &Op{Opcode: 2, Name: "b", Func: statusOK, Ret: Fixed(0)}, 0},
		{"void", &Op{Opcode: 3, Name: "c", Func: statusOK}, 0},
		{"handler owned", &Op{Opcode: 4, Name: "d", Func: statusOK, Ret: Fixed(4), RetOwner: OwnerHandler}, 0},
	}

	tbl := newTestTable(t, nil)
	for _, tt := range tests {
		if err := tbl.Insert(tt.op); err != nil {
			t.Fatalf("%s: Insert: %v", tt.name, err)
		}
		e := tbl.lookupEntry(tt.op.Opcode)
		if e == nil {
			t.Fatalf("%s: entry missing", tt.name)
		}
		if tt.wantSize == 0 && e.ret != nil {
			t.Errorf("%s: buffer allocated, want none", tt.name)
		}
		if tt.wantSize > 0 && len(e.ret) != tt.wantSize {
			t.Errorf("%s: buffer %d bytes, want %d", tt.name, len(e.ret), tt.wantSize)
		}
	}
}

func TestRemove(t *testing.T) {
	tbl := newTestTable(t, nil)

	op := &Op{Opcode: 0x01, Name: "noop", Func: statusOK, Ret: Fixed(4)}
	if err := tbl.Insert(op); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	if err := tbl.Remove(0x01); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, ok := tbl.Lookup(0x01); ok {
		t.Error("entry still present after Remove")
	}
	if err := tbl.Remove(0x01); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove = %v, want ErrNotFound", err)
	}
}

func TestRemoveAll(t *testing.T) {
	tbl := newTestTable(t, nil)

	for i := uint32(1); i <= 5; i++ {
		op := &Op{Opcode: i, Name: fmt.Sprintf("op-%d", i), Func: statusOK, Ret: Fixed(8)}
		if err := tbl.Insert(op); err != nil {
			t.Fatalf("Insert %d: %v", i, err)
		}
	}

	tbl.RemoveAll()
	if tbl.Len() != 0 {
		t.Errorf("table has %d entries after RemoveAll, want 0", tbl.Len())
	}
}

func TestDestroy(t *testing.T) {
	store := kvstore.NewMem()
	tbl, err := New(store, okChecker{})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	if err := tbl.Insert(&Op{Opcode: 0x01, Name: "noop", Func: statusOK, Ret: Fixed(4)}); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	tbl.Destroy()
	if store.Len() != 0 {
		t.Errorf("store has %d entries after Destroy, want 0", store.Len())
	}
}

func TestOpsOrderedByOpcode(t *testing.T) {
	tbl := newTestTable(t, nil)

	for _, opcode := range []uint32{0x30, 0x01, 0xffffffff, 0x20} {
		op := &Op{Opcode: opcode, Name: fmt.Sprintf("op-%x", opcode), Func: statusOK}
		if err := tbl.Insert(op); err != nil {
			t.Fatalf("Insert %#x: %v", opcode, err)
		}
	}

	ops := tbl.Ops()
	if len(ops) != 4 {
		t.Fatalf("Ops returned %d descriptors, want 4", len(ops))
	}
	want := []uint32{0x01, 0x20, 0x30, 0xffffffff}
	for i, op := range ops {
		if op.Opcode != want[i] {
			t.Errorf("ops[%d].Opcode = %#x, want %#x", i, op.Opcode, want[i])
		}
	}
}

func TestFillFuncs(t *testing.T) {
	ops := []*Op{
		{Opcode: 1, Name: "a"},
		{Opcode: 2, Name: "b"},
	}
	fns := []HandlerFunc{statusOK, statusOK}

	if err := FillFuncs(ops, fns); err != nil {
		t.Fatalf("FillFuncs: %v", err)
	}
	for _, op := range ops {
		if op.Func == nil {
			t.Errorf("op %q left without handler", op.Name)
		}
	}

	if err := FillFuncs(ops, fns[:1]); err == nil {
		t.Error("FillFuncs with uneven slices succeeded, want error")
	}
}
