package common

import (
	"bytes"
	"encoding/json"
	"testing"
)

func TestDecodeFromString(t *testing.T) {
	for _, c := range []struct {
		in  string
		out []byte
	}{
		{"0XA1B2", []byte{0xa1, 0xb2}},
		{"0xa1b2", []byte{0xa1, 0xb2}},
		{"a1b2", []byte{0xa1, 0xb2}},
		{"", []byte{}},
	} {
		got, err := DecodeFromString(c.in)
		if err != nil {
			t.Fatalf("DecodeFromString(%s): %v", c.in, err)
		}
		if !bytes.Equal(got, c.out) {
			t.Errorf("DecodeFromString(%s) => %X != %X", c.in, got, c.out)
		}
	}

	if _, err := DecodeFromString("0XZZ"); err == nil {
		t.Fatalf("DecodeFromString should fail on non-hex input")
	}
}

func TestHexBytesJSON(t *testing.T) {
	type holder struct {
		Nonce HexBytes
	}

	raw, err := json.Marshal(holder{Nonce: HexBytes{0x01, 0xff}})
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != `{"Nonce":"0X01FF"}` {
		t.Fatalf("unexpected encoding %s", raw)
	}

	var h holder
	if err := json.Unmarshal(raw, &h); err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(h.Nonce, []byte{0x01, 0xff}) {
		t.Fatalf("Nonce should be 01FF, not %X", []byte(h.Nonce))
	}
}
