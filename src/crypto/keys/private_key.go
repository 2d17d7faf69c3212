package keys

import (
	"crypto/ecdsa"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

// privateKeyLen is the length of a dumped secp256k1 scalar.
const privateKeyLen = 32

var (
	// ErrInvalidPrivateKey is returned for dumps that are not a scalar in
	// [1, N).
	ErrInvalidPrivateKey = errors.New("invalid private key")
)

// GenerateECDSAKey creates a new private key on Curve().
func GenerateECDSAKey() (*ecdsa.PrivateKey, error) {
	return ecdsa.GenerateKey(Curve(), rand.Reader)
}

// DumpPrivateKey returns the D value of priv as a fixed-length big-endian
// slice. It is the secret half of a KeyPair and the content of key files.
func DumpPrivateKey(priv *ecdsa.PrivateKey) []byte {
	if priv == nil {
		return nil
	}
	return priv.D.FillBytes(make([]byte, privateKeyLen))
}

// ParsePrivateKey is the inverse of DumpPrivateKey. It derives the public half.
func ParsePrivateKey(d []byte) (*ecdsa.PrivateKey, error) {
	if len(d) != privateKeyLen {
		return nil, fmt.Errorf("%w: %d bytes, need %d", ErrInvalidPrivateKey, len(d), privateKeyLen)
	}

	scalar := new(big.Int).SetBytes(d)
	if scalar.Sign() == 0 || scalar.Cmp(secp256k1N) >= 0 {
		return nil, fmt.Errorf("%w: out of range", ErrInvalidPrivateKey)
	}

	priv := &ecdsa.PrivateKey{D: scalar}
	priv.PublicKey.Curve = Curve()
	priv.PublicKey.X, priv.PublicKey.Y = priv.PublicKey.Curve.ScalarBaseMult(d)
	if priv.PublicKey.X == nil {
		return nil, ErrInvalidPrivateKey
	}

	return priv, nil
}
