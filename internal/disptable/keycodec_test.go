package disptable

import (
	"errors"
	"testing"
)

func TestEncodeKeyWidth(t *testing.T) {
	cases := map[uint32]string{
		0:          "00000000",
		1:          "00000001",
		0xdeadbeef: "deadbeef",
		0xffffffff: "ffffffff",
	}
	for opcode, want := range cases {
		if got := EncodeKey(opcode); got != want {
			t.Errorf("EncodeKey(%#x) = %q, want %q", opcode, got, want)
		}
	}
}

func TestKeyRoundTrip(t *testing.T) {
	opcodes := []uint32{0, 1, 2, 0x7f, 0x80, 0xff, 0x100, 0xffff, 0x10000, 0xdeadbeef, 0xfffffffe, 0xffffffff}
	for _, opcode := range opcodes {
		got, err := DecodeKey(EncodeKey(opcode))
		if err != nil {
			t.Fatalf("DecodeKey(EncodeKey(%#x)): %v", opcode, err)
		}
		if got != opcode {
			t.Errorf("round trip %#x -> %#x", opcode, got)
		}
	}
}

func TestDecodeKeyMalformed(t *testing.T) {
	bad := []string{
		"",
		"0",
		"0000000",    // too short
		"000000000",  // too long
		"0000000g",   // not hex
		"DEADBEEF",   // uppercase is not what EncodeKey produces
		"0x000001",   // prefix
		" 0000001",   // whitespace
		"-0000001",   // sign
	}
	for _, key := range bad {
		if _, err := DecodeKey(key); !errors.Is(err, ErrMalformedKey) {
			t.Errorf("DecodeKey(%q) = %v, want ErrMalformedKey", key, err)
		}
	}
}
