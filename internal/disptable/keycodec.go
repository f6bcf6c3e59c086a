package disptable

import (
	"fmt"
	"strconv"
)

// keyLen is the fixed width of an encoded opcode key: eight lowercase hex
// digits, enough for any 32-bit value.
const keyLen = 8

// EncodeKey converts an opcode to the string key it is stored under.
// Total and injective over all 32-bit values.
func EncodeKey(opcode uint32) string {
	return fmt.Sprintf("%0*x", keyLen, opcode)
}

// DecodeKey converts a stored key back to its opcode. It accepts exactly
// the strings EncodeKey produces and fails with ErrMalformedKey for
// anything else.
func DecodeKey(key string) (uint32, error) {
	if len(key) != keyLen {
		return 0, fmt.Errorf("key %q: wrong length: %w", key, ErrMalformedKey)
	}
	for i := 0; i < keyLen; i++ {
		c := key[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'f') {
			return 0, fmt.Errorf("key %q: not lowercase hex: %w", key, ErrMalformedKey)
		}
	}
	v, err := strconv.ParseUint(key, 16, 32)
	if err != nil {
		return 0, fmt.Errorf("key %q: %w", key, ErrMalformedKey)
	}
	return uint32(v), nil
}
