package protocol

import (
	"encoding/json"
	"fmt"
	"io"
)

// EncodeRequest serializes a Request to JSON and writes it to w.
// Returns an error if the version is unsupported or writing fails.
func EncodeRequest(w io.Writer, req *Request) error {
	if req.Protocol != Version {
		return fmt.Errorf("unsupported protocol version: %d", req.Protocol)
	}

	encoder := json.NewEncoder(w)
	if err := encoder.Encode(req); err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	return nil
}

// DecodeRequest reads and deserializes a Request from JSON in r.
// Decoding is strict: unknown fields and version mismatches are errors.
func DecodeRequest(r io.Reader) (*Request, error) {
	var req Request

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&req); err != nil {
		return nil, fmt.Errorf("failed to decode request: %w", err)
	}

	if req.Protocol != Version {
		return nil, fmt.Errorf("unsupported protocol version: %d", req.Protocol)
	}

	return &req, nil
}

// EncodeResponse serializes a Response to JSON and writes it to w.
func EncodeResponse(w io.Writer, resp *Response) error {
	encoder := json.NewEncoder(w)
	if err := encoder.Encode(resp); err != nil {
		return fmt.Errorf("failed to encode response: %w", err)
	}

	return nil
}

// DecodeResponse reads and deserializes a Response from JSON in r.
// Returns an error if reading or unmarshaling fails, or if the response is invalid.
func DecodeResponse(r io.Reader) (*Response, error) {
	var resp Response

	decoder := json.NewDecoder(r)
	decoder.DisallowUnknownFields()

	if err := decoder.Decode(&resp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	if err := validateResponse(&resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func validateResponse(resp *Response) error {
	if resp.Status == "" {
		return fmt.Errorf("response missing required field: status")
	}
	if resp.Status != "ok" && resp.Status != "error" {
		return fmt.Errorf("invalid status value: %q (must be 'ok' or 'error')", resp.Status)
	}
	if resp.Status == "error" && resp.Error == "" {
		return fmt.Errorf("response has status=error but no error message")
	}
	return nil
}
