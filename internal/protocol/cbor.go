package protocol

import (
	"fmt"

	"github.com/fxamacker/cbor/v2"
)

// cborEncMode uses canonical options so equal envelopes encode to equal
// bytes regardless of caller.
var cborEncMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("protocol: failed to create CBOR enc mode: %v", err))
	}
	cborEncMode = em
}

// MarshalRequest serializes a Request to CBOR bytes.
func MarshalRequest(req *Request) ([]byte, error) {
	if req.Protocol != Version {
		return nil, fmt.Errorf("unsupported protocol version: %d", req.Protocol)
	}
	return cborEncMode.Marshal(req)
}

// UnmarshalRequest deserializes a Request from CBOR bytes.
func UnmarshalRequest(data []byte) (*Request, error) {
	var req Request
	if err := cbor.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("protocol: unmarshal request: %w", err)
	}
	if req.Protocol != Version {
		return nil, fmt.Errorf("unsupported protocol version: %d", req.Protocol)
	}
	return &req, nil
}

// MarshalResponse serializes a Response to CBOR bytes.
func MarshalResponse(resp *Response) ([]byte, error) {
	return cborEncMode.Marshal(resp)
}

// UnmarshalResponse deserializes a Response from CBOR bytes.
func UnmarshalResponse(data []byte) (*Response, error) {
	var resp Response
	if err := cbor.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("protocol: unmarshal response: %w", err)
	}
	if err := validateResponse(&resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
