package message

import (
	"errors"
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
)

// SignedMessageType is the type URL of SignedMessage
const SignedMessageType = "dxos.credentials.SignedMessage"

// ErrNoSignatures is returned for a SignedMessage without signatures.
var ErrNoSignatures = errors.New("signed message has no signatures")

// TimeFormat is the layout of Signed.Created.
const TimeFormat = time.RFC3339Nano

// Signed is the block covered by signatures.
type Signed struct {
	Created string          `json:"created"`
	Nonce   common.HexBytes `json:"nonce"`
	Payload Any             `json:"payload"`
}

// Signature is one signature over the canonical form of Signed. KeyChain is
// set when the signer proves its authority through a chain of admissions.
type Signature struct {
	Signature string         `json:"signature"`
	Key       keys.PublicKey `json:"key"`
	KeyChain  *KeyChain      `json:"keyChain,omitempty"`
}

// SignedMessage is a payload with one or more signatures.
type SignedMessage struct {
	Signed     Signed      `json:"signed"`
	Signatures []Signature `json:"signatures"`
}

// TypeURL implements Message
func (m *SignedMessage) TypeURL() string { return SignedMessageType }

// Payload returns the signed payload.
func (m *SignedMessage) Payload() Message {
	return m.Signed.Payload.Message
}

// CreatedAt parses Signed.Created.
func (m *SignedMessage) CreatedAt() (time.Time, error) {
	return time.Parse(TimeFormat, m.Signed.Created)
}

// Signers returns the keys of all the signatures, in order.
func (m *SignedMessage) Signers() []keys.PublicKey {
	res := make([]keys.PublicKey, 0, len(m.Signatures))
	for _, s := range m.Signatures {
		res = append(res, s.Key)
	}
	return res
}

// IsSignedBy reports whether one of the signatures claims to be from key. It
// does not check the signature itself.
func (m *SignedMessage) IsSignedBy(key keys.PublicKey) bool {
	for _, s := range m.Signatures {
		if s.Key.Equal(key) {
			return true
		}
	}
	return false
}

// Credential returns the payload as a PartyCredential.
func (m *SignedMessage) Credential() (*PartyCredential, bool) {
	c, ok := m.Payload().(*PartyCredential)
	return c, ok && c != nil
}

// Validate checks the structure of the message, not its signatures.
func (m *SignedMessage) Validate() error {
	if m == nil {
		return errors.New("nil signed message")
	}
	if len(m.Signatures) == 0 {
		return ErrNoSignatures
	}
	for _, s := range m.Signatures {
		if len(s.Key) == 0 || s.Signature == "" {
			return errors.New("incomplete signature")
		}
	}
	if m.Payload() == nil {
		return errors.New("signed message has no payload")
	}
	return nil
}

// KeyChain is a proof that PublicKey signed Message, where Message was
// possibly co-signed by other keys, each backed by its own chain in Parents.
type KeyChain struct {
	PublicKey keys.PublicKey `json:"publicKey"`
	Message   *SignedMessage `json:"message"`
	Parents   []*KeyChain    `json:"parents,omitempty"`
}

func init() {
	Register(SignedMessageType, func() Message { return new(SignedMessage) })
}
