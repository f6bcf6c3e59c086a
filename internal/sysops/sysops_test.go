package sysops

import (
	"bytes"
	"encoding/binary"
	"testing"
	"time"

	"github.com/mattjoyce/opgate/internal/disptable"
	"github.com/mattjoyce/opgate/internal/kvstore"
	"github.com/mattjoyce/opgate/internal/log"
	"github.com/mattjoyce/opgate/internal/protocol"
)

func TestMain(m *testing.M) {
	log.Setup("ERROR")
	m.Run()
}

func setupTestService(t *testing.T) (*disptable.Table, *Service) {
	t.Helper()

	tbl, err := disptable.New(kvstore.NewMem(), protocol.ShapeChecker{})
	if err != nil {
		t.Fatalf("disptable.New: %v", err)
	}

	svc := New("test")
	if err := Register(tbl, svc); err != nil {
		t.Fatalf("Register: %v", err)
	}
	return tbl, svc
}

func TestRegisterAllOps(t *testing.T) {
	tbl, _ := setupTestService(t)

	for _, opcode := range []uint32{OpPing, OpEcho, OpCounter, OpClock, OpInfo} {
		if _, ok := tbl.Lookup(opcode); !ok {
			t.Errorf("opcode %#x not registered", opcode)
		}
	}
}

func TestPing(t *testing.T) {
	tbl, svc := setupTestService(t)

	status, err := tbl.CheckAndCall(OpPing, svc, nil)
	if err != nil {
		t.Fatalf("CheckAndCall: %v", err)
	}
	if status != StatusOK {
		t.Errorf("status = %d, want 0", status)
	}
}

func TestEcho(t *testing.T) {
	tbl, svc := setupTestService(t)

	payload := []byte("hello")
	status, err := tbl.CheckAndCall(OpEcho, svc, payload)
	if err != nil {
		t.Fatalf("CheckAndCall: %v", err)
	}
	if status != int32(len(payload)) {
		t.Errorf("status = %d, want %d", status, len(payload))
	}

	ret, err := tbl.ReturnSlot(OpEcho)
	if err != nil {
		t.Fatalf("ReturnSlot: %v", err)
	}
	if !bytes.Equal(ret[:len(payload)], payload) {
		t.Errorf("echo payload = %q, want %q", ret[:len(payload)], payload)
	}
	for i := len(payload); i < len(ret); i++ {
		if ret[i] != 0 {
			t.Fatalf("echo tail not zeroed at %d", i)
		}
	}

	// Oversized payloads fail validation before reaching the handler.
	if _, err := tbl.CheckAndCall(OpEcho, svc, make([]byte, EchoRetSize+1)); err == nil {
		t.Error("oversized echo payload accepted")
	}
}

func TestCounterIncrements(t *testing.T) {
	tbl, svc := setupTestService(t)

	for want := uint64(1); want <= 3; want++ {
		if _, err := tbl.CheckAndCall(OpCounter, svc, nil); err != nil {
			t.Fatalf("CheckAndCall: %v", err)
		}
		ret, err := tbl.ReturnSlot(OpCounter)
		if err != nil {
			t.Fatalf("ReturnSlot: %v", err)
		}
		if got := binary.BigEndian.Uint64(ret); got != want {
			t.Errorf("counter = %d, want %d", got, want)
		}
	}
}

func TestClock(t *testing.T) {
	tbl, svc := setupTestService(t)

	fixed := time.Date(2026, 8, 29, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixed }

	if _, err := tbl.CheckAndCall(OpClock, svc, nil); err != nil {
		t.Fatalf("CheckAndCall: %v", err)
	}
	ret, err := tbl.ReturnSlot(OpClock)
	if err != nil {
		t.Fatalf("ReturnSlot: %v", err)
	}
	if got := binary.BigEndian.Uint64(ret); got != uint64(fixed.UnixNano()) {
		t.Errorf("clock = %d, want %d", got, fixed.UnixNano())
	}
}

func TestInfoWritesHandlerOwnedBuffer(t *testing.T) {
	tbl, svc := setupTestService(t)

	status, err := tbl.CheckAndCall(OpInfo, svc, nil)
	if err != nil {
		t.Fatalf("CheckAndCall: %v", err)
	}
	if status <= 0 {
		t.Fatalf("status = %d, want > 0", status)
	}

	// The handler wrote into the service-owned buffer.
	if !bytes.HasPrefix(svc.infoBuf, []byte("opgate test")) {
		t.Errorf("info banner = %q", svc.infoBuf[:status])
	}

	// Cleanup must leave the handler-owned buffer bound.
	if err := tbl.CleanupReturn(OpInfo); err != nil {
		t.Fatalf("CleanupReturn: %v", err)
	}
	if _, err := tbl.ReturnSlot(OpInfo); err != nil {
		t.Errorf("handler-owned slot lost after cleanup: %v", err)
	}
}

func TestBadOwner(t *testing.T) {
	tbl, _ := setupTestService(t)

	status, err := tbl.CheckAndCall(OpCounter, "not the service", nil)
	if err != nil {
		t.Fatalf("CheckAndCall: %v", err)
	}
	if status != StatusBadOwner {
		t.Errorf("status = %d, want %d", status, StatusBadOwner)
	}
}
