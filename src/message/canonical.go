package message

import (
	"encoding/json"
	"reflect"
	"strings"

	"github.com/ugorji/go/codec"
)

// Canonical returns the deterministic byte form of a Signed block: the same
// logical content always yields the same bytes. Map keys are sorted, binary
// values are hex strings (HexBytes and PublicKey marshal as text), and fields
// whose name starts with "__" are dropped at every depth. Strings must be
// valid UTF-8.
func Canonical(signed *Signed) ([]byte, error) {
	if err := checkUTF8(reflect.ValueOf(signed), "signed"); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(signed)
	if err != nil {
		return nil, err
	}

	var generic interface{}
	dec := codec.NewDecoderBytes(raw, decodeHandle())
	if err := dec.Decode(&generic); err != nil {
		return nil, err
	}

	var out []byte
	enc := codec.NewEncoderBytes(&out, canonicalHandle())
	if err := enc.Encode(stripHidden(generic)); err != nil {
		return nil, err
	}
	return out, nil
}

func decodeHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.MapType = reflect.TypeOf(map[string]interface{}(nil))
	return jh
}

func canonicalHandle() *codec.JsonHandle {
	jh := new(codec.JsonHandle)
	jh.Canonical = true
	return jh
}

// stripHidden removes "__" prefixed keys from decoded JSON objects.
func stripHidden(v interface{}) interface{} {
	switch t := v.(type) {
	case map[string]interface{}:
		res := make(map[string]interface{}, len(t))
		for k, val := range t {
			if strings.HasPrefix(k, "__") {
				continue
			}
			res[k] = stripHidden(val)
		}
		return res
	case []interface{}:
		res := make([]interface{}, len(t))
		for i, val := range t {
			res[i] = stripHidden(val)
		}
		return res
	default:
		return v
	}
}
