package keys

import (
	"crypto/ecdsa"
	"errors"
)

// ErrKeyPairMismatch is returned when a secret key does not derive the public
// key it is paired with.
var ErrKeyPairMismatch = errors.New("secret key does not match public key")

// KeyPair holds a public key and the raw dump of its private key. Feeds carry
// their own key pairs outside of any keyring.
type KeyPair struct {
	PublicKey PublicKey
	SecretKey []byte
}

// GenerateKeyPair creates a fresh KeyPair.
func GenerateKeyPair() (*KeyPair, error) {
	priv, err := GenerateECDSAKey()
	if err != nil {
		return nil, err
	}
	return NewKeyPair(priv), nil
}

// NewKeyPair wraps an ecdsa.PrivateKey.
func NewKeyPair(priv *ecdsa.PrivateKey) *KeyPair {
	return &KeyPair{
		PublicKey: FromPublicKey(&priv.PublicKey),
		SecretKey: DumpPrivateKey(priv),
	}
}

// PrivateKey parses the secret key.
func (kp *KeyPair) PrivateKey() (*ecdsa.PrivateKey, error) {
	return ParsePrivateKey(kp.SecretKey)
}

// Validate checks that the secret key derives the public key.
func (kp *KeyPair) Validate() error {
	if err := kp.PublicKey.Validate(); err != nil {
		return err
	}
	priv, err := kp.PrivateKey()
	if err != nil {
		return err
	}
	if !FromPublicKey(&priv.PublicKey).Equal(kp.PublicKey) {
		return ErrKeyPairMismatch
	}
	return nil
}
