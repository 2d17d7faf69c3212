package common

import (
	"encoding/hex"
	"fmt"
	"strings"
)

//EncodeToString returns the UPPERCASE string representation of hexBytes with
//the 0X prefix
func EncodeToString(hexBytes []byte) string {
	return fmt.Sprintf("0X%X", hexBytes)
}

//DecodeFromString converts a hex string, with or without the 0X prefix, to a
//byte slice
func DecodeFromString(hexString string) ([]byte, error) {
	if len(hexString) >= 2 && strings.EqualFold(hexString[:2], "0x") {
		hexString = hexString[2:]
	}
	return hex.DecodeString(hexString)
}

// HexBytes is a byte slice that travels as a 0X-prefixed hex string in every
// text encoding (JSON, canonical signing form).
type HexBytes []byte

// String implements fmt.Stringer
func (h HexBytes) String() string {
	return EncodeToString(h)
}

// MarshalText implements encoding.TextMarshaler
func (h HexBytes) MarshalText() ([]byte, error) {
	return []byte(EncodeToString(h)), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (h *HexBytes) UnmarshalText(text []byte) error {
	b, err := DecodeFromString(string(text))
	if err != nil {
		return err
	}
	*h = b
	return nil
}
