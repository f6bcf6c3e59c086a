// Package protocol defines the versioned call envelope the gateway speaks
// and the shape-based argument checker it plugs into the dispatch table.
// The envelope has two codecs over the same types: JSON for scripted
// callers and CBOR for binary ones.
package protocol

// Version is the protocol version this build speaks.
const Version = 1

// Request is the call envelope: an opcode plus the raw argument buffer.
type Request struct {
	Protocol  int    `json:"protocol" cbor:"protocol"`
	RequestID string `json:"request_id,omitempty" cbor:"request_id,omitempty"`
	Opcode    uint32 `json:"opcode" cbor:"opcode"`
	Args      []byte `json:"args,omitempty" cbor:"args,omitempty"`
}

// Response carries the handler's status code and return payload back.
// Status is "ok" when the dispatch reached the handler; Code is the
// handler's status verbatim and is not interpreted by the gateway.
type Response struct {
	Protocol  int    `json:"protocol" cbor:"protocol"`
	RequestID string `json:"request_id,omitempty" cbor:"request_id,omitempty"`
	Status    string `json:"status" cbor:"status"` // ok | error
	Code      int32  `json:"code" cbor:"code"`
	Ret       []byte `json:"ret,omitempty" cbor:"ret,omitempty"`
	Error     string `json:"error,omitempty" cbor:"error,omitempty"`
}

// OK reports whether the dispatch itself succeeded.
func (r *Response) OK() bool {
	return r.Status == "ok"
}
