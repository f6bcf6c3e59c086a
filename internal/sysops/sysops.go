// Package sysops is the gateway's built-in operation set: a handful of
// compiled-in operations covering every descriptor variant the dispatch
// table supports, registered under the "sys" set name.
package sysops

import (
	"encoding/binary"
	"fmt"
	"time"

	"github.com/mattjoyce/opgate/internal/disptable"
)

// Opcodes for the sys operation set.
const (
	OpPing    uint32 = 0x0100 // void in, void out
	OpEcho    uint32 = 0x0101 // variable in, fixed dispatcher-owned out
	OpCounter uint32 = 0x0102 // void in, fixed dispatcher-owned out
	OpClock   uint32 = 0x0103 // void in, fixed dispatcher-owned out
	OpInfo    uint32 = 0x0104 // void in, fixed handler-owned out
)

// Payload sizes.
const (
	EchoRetSize = 64
	InfoRetSize = 128
)

// Handler status codes. Anything >= 0 is success; echo reports the number
// of bytes it copied.
const (
	StatusOK       int32 = 0
	StatusBadOwner int32 = -1
)

// Service holds the state behind the sys operations and owns the info
// operation's return buffer.
type Service struct {
	Version string

	started time.Time
	counter uint64
	infoBuf []byte
	now     func() time.Time
}

// New creates the sys service.
func New(version string) *Service {
	return &Service{
		Version: version,
		started: time.Now(),
		infoBuf: make([]byte, InfoRetSize),
		now:     time.Now,
	}
}

// Descriptors returns the operation descriptors for this service, handlers
// bound. The descriptors outlive any table entry referencing them; the
// service keeps no reference to the table.
func (s *Service) Descriptors() []*disptable.Op {
	return []*disptable.Op{
		{Opcode: OpPing, Name: "sys.ping", Func: handlePing},
		{
			Opcode: OpEcho, Name: "sys.echo", Func: handleEcho,
			Args: disptable.Variable(EchoRetSize), Ret: disptable.Fixed(EchoRetSize),
		},
		{Opcode: OpCounter, Name: "sys.counter", Func: handleCounter, Ret: disptable.Fixed(8)},
		{Opcode: OpClock, Name: "sys.clock", Func: handleClock, Ret: disptable.Fixed(8)},
		{
			Opcode: OpInfo, Name: "sys.info", Func: handleInfo,
			Ret: disptable.Fixed(InfoRetSize), RetOwner: disptable.OwnerHandler,
		},
	}
}

// Register inserts the sys operations into a table and installs the
// service-owned return buffer for sys.info.
func Register(tbl *disptable.Table, svc *Service) error {
	if err := tbl.InsertAll(svc.Descriptors()); err != nil {
		return fmt.Errorf("register sysops: %w", err)
	}
	if err := tbl.BindReturn(OpInfo, svc.infoBuf); err != nil {
		return fmt.Errorf("bind sys.info return: %w", err)
	}
	return nil
}

func handlePing(owner any, args []byte, ret []byte) int32 {
	return StatusOK
}

// handleEcho copies the argument payload into the return slot, zeroing the
// remainder so a short call never leaks the previous result. Status is the
// number of bytes copied.
func handleEcho(owner any, args []byte, ret []byte) int32 {
	n := copy(ret, args)
	for i := n; i < len(ret); i++ {
		ret[i] = 0
	}
	return int32(n)
}

func handleCounter(owner any, args []byte, ret []byte) int32 {
	svc, ok := owner.(*Service)
	if !ok {
		return StatusBadOwner
	}
	svc.counter++
	binary.BigEndian.PutUint64(ret, svc.counter)
	return StatusOK
}

func handleClock(owner any, args []byte, ret []byte) int32 {
	svc, ok := owner.(*Service)
	if !ok {
		return StatusBadOwner
	}
	binary.BigEndian.PutUint64(ret, uint64(svc.now().UnixNano()))
	return StatusOK
}

// handleInfo writes a version banner into the service-owned buffer.
func handleInfo(owner any, args []byte, ret []byte) int32 {
	svc, ok := owner.(*Service)
	if !ok {
		return StatusBadOwner
	}
	banner := fmt.Sprintf("opgate %s (up %s)", svc.Version, svc.now().Sub(svc.started).Round(time.Second))
	if len(banner) > len(ret) {
		banner = banner[:len(ret)]
	}
	n := copy(ret, banner)
	for i := n; i < len(ret); i++ {
		ret[i] = 0
	}
	return int32(n)
}
