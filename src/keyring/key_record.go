package keyring

import (
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
)

// KeyRecord is what a Keyring knows about a public key. Own records were
// created locally and carry a secret key, which may be stripped later.
type KeyRecord struct {
	PublicKey keys.PublicKey  `json:"publicKey"`
	SecretKey common.HexBytes `json:"secretKey,omitempty"`
	Type      message.KeyType `json:"type"`
	Own       bool            `json:"own"`
	Trusted   bool            `json:"trusted"`
	Hint      bool            `json:"hint"`
	Created   time.Time       `json:"created"`
	Added     time.Time       `json:"added"`
}

// Hex returns the hex identifier of the record's public key.
func (r *KeyRecord) Hex() string {
	return r.PublicKey.Hex()
}

// HasSecretKey reports whether the record carries a secret key.
func (r *KeyRecord) HasSecretKey() bool {
	return len(r.SecretKey) > 0
}

// KeyPair returns the record as a keys.KeyPair. It fails when the record has
// no secret key.
func (r *KeyRecord) KeyPair() (*keys.KeyPair, error) {
	if !r.HasSecretKey() {
		return nil, ErrNoSecretKey
	}
	return &keys.KeyPair{
		PublicKey: r.PublicKey,
		SecretKey: r.SecretKey,
	}, nil
}

// Copy returns a deep copy of the record.
func (r *KeyRecord) Copy() *KeyRecord {
	c := *r
	c.PublicKey = append(keys.PublicKey(nil), r.PublicKey...)
	if r.SecretKey != nil {
		c.SecretKey = append(common.HexBytes(nil), r.SecretKey...)
	}
	return &c
}

// public returns a copy without the secret key.
func (r *KeyRecord) public() *KeyRecord {
	c := r.Copy()
	c.SecretKey = nil
	return c
}
