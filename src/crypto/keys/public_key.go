package keys

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/elliptic"
	"errors"

	"github.com/mosaicnetworks/party/src/common"
)

// ErrInvalidPublicKey is returned when bytes do not encode a point on the
// curve.
var ErrInvalidPublicKey = errors.New("invalid public key")

// PublicKey is the uncompressed form of a point on the curve, as returned by
// FromPublicKey. It is the identifier of parties, identities, devices and
// feeds.
type PublicKey []byte

// Hex returns the 0X-prefixed uppercase hex form of the key. It is the key
// used in all maps indexed by public key.
func (k PublicKey) Hex() string {
	return common.EncodeToString(k)
}

// String implements fmt.Stringer
func (k PublicKey) String() string {
	return k.Hex()
}

// Equal compares two public keys byte by byte.
func (k PublicKey) Equal(other PublicKey) bool {
	return len(k) > 0 && bytes.Equal(k, other)
}

// Validate checks that the key decodes to a point on the curve.
func (k PublicKey) Validate() error {
	if len(k) == 0 {
		return ErrInvalidPublicKey
	}
	x, _ := elliptic.Unmarshal(Curve(), k)
	if x == nil {
		return ErrInvalidPublicKey
	}
	return nil
}

// ECDSA returns the key as an ecdsa.PublicKey, or nil if it does not decode.
func (k PublicKey) ECDSA() *ecdsa.PublicKey {
	return ToPublicKey(k)
}

// MarshalText implements encoding.TextMarshaler
func (k PublicKey) MarshalText() ([]byte, error) {
	return []byte(k.Hex()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *PublicKey) UnmarshalText(text []byte) error {
	b, err := common.DecodeFromString(string(text))
	if err != nil {
		return err
	}
	*k = b
	return nil
}

// ToPublicKey is a wrapper around elliptic.Unmarshal which calls Curve() to
// determine which elliptic.Curve to use. The argument pub is expected to be the
// uncompressed form of a point on the curve, as returned by FromPublicKey.
func ToPublicKey(pub []byte) *ecdsa.PublicKey {
	if len(pub) == 0 {
		return nil
	}
	x, y := elliptic.Unmarshal(Curve(), pub)
	if x == nil {
		return nil
	}
	return &ecdsa.PublicKey{Curve: Curve(), X: x, Y: y}
}

// FromPublicKey is a wrapper around elliptic.Marshal which calls Curve() to
// determine which elliptic.Curve to use. It outputs the point in uncompressed
// form.
func FromPublicKey(pub *ecdsa.PublicKey) PublicKey {
	if pub == nil || pub.X == nil || pub.Y == nil {
		return nil
	}
	return elliptic.Marshal(Curve(), pub.X, pub.Y)
}

// PublicKeyHex returns the hexadecimal reprentation of the uncompressed form of
// the public key
func PublicKeyHex(pub *ecdsa.PublicKey) string {
	return FromPublicKey(pub).Hex()
}
