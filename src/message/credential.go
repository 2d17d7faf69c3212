package message

import (
	"errors"
	"fmt"

	"github.com/mosaicnetworks/party/src/crypto/keys"
)

// PartyCredentialType is the type URL of PartyCredential
const PartyCredentialType = "dxos.credentials.party.PartyCredential"

// CredentialType discriminates the variants of PartyCredential. The integer
// values are part of the wire format.
type CredentialType int32

const (
	// PartyGenesis is the root credential of a party
	PartyGenesis CredentialType = iota
	// KeyAdmit admits a key
	KeyAdmit
	// FeedAdmit admits a feed
	FeedAdmit
	// Envelope re-signs an inner message on behalf of its subject
	Envelope
)

// String returns the string representation of CredentialType
func (t CredentialType) String() string {
	switch t {
	case PartyGenesis:
		return "PARTY_GENESIS"
	case KeyAdmit:
		return "KEY_ADMIT"
	case FeedAdmit:
		return "FEED_ADMIT"
	case Envelope:
		return "ENVELOPE"
	default:
		return fmt.Sprintf("CredentialType(%d)", int32(t))
	}
}

// ErrCredentialShape is returned when the populated variant of a
// PartyCredential does not match its Type.
var ErrCredentialShape = errors.New("credential variant does not match its type")

// PartyGenesisBody is the PARTY_GENESIS variant.
type PartyGenesisBody struct {
	PartyKey     keys.PublicKey `json:"partyKey"`
	AdmitKey     keys.PublicKey `json:"admitKey"`
	AdmitKeyType KeyType        `json:"admitKeyType"`
	FeedKey      keys.PublicKey `json:"feedKey"`
}

// KeyAdmitBody is the KEY_ADMIT variant.
type KeyAdmitBody struct {
	PartyKey     keys.PublicKey `json:"partyKey"`
	AdmitKey     keys.PublicKey `json:"admitKey"`
	AdmitKeyType KeyType        `json:"admitKeyType"`
}

// FeedAdmitBody is the FEED_ADMIT variant.
type FeedAdmitBody struct {
	PartyKey keys.PublicKey `json:"partyKey"`
	FeedKey  keys.PublicKey `json:"feedKey"`
}

// EnvelopeBody is the ENVELOPE variant.
type EnvelopeBody struct {
	PartyKey keys.PublicKey `json:"partyKey"`
	Message  *SignedMessage `json:"message"`
}

// PartyCredential is a closed variant over the four credential kinds. Exactly
// one of the body pointers is set, the one matching Type.
type PartyCredential struct {
	Type         CredentialType    `json:"type"`
	PartyGenesis *PartyGenesisBody `json:"partyGenesis,omitempty"`
	KeyAdmit     *KeyAdmitBody     `json:"keyAdmit,omitempty"`
	FeedAdmit    *FeedAdmitBody    `json:"feedAdmit,omitempty"`
	Envelope     *EnvelopeBody     `json:"envelope,omitempty"`
}

// TypeURL implements Message
func (c *PartyCredential) TypeURL() string { return PartyCredentialType }

// Validate checks that the variant matches the type and that the required
// keys are present.
func (c *PartyCredential) Validate() error {
	set := 0
	for _, p := range []bool{c.PartyGenesis != nil, c.KeyAdmit != nil, c.FeedAdmit != nil, c.Envelope != nil} {
		if p {
			set++
		}
	}
	if set != 1 {
		return ErrCredentialShape
	}

	switch c.Type {
	case PartyGenesis:
		b := c.PartyGenesis
		if b == nil {
			return ErrCredentialShape
		}
		if len(b.PartyKey) == 0 || len(b.AdmitKey) == 0 || len(b.FeedKey) == 0 {
			return fmt.Errorf("%s: missing key", c.Type)
		}
	case KeyAdmit:
		b := c.KeyAdmit
		if b == nil {
			return ErrCredentialShape
		}
		if len(b.PartyKey) == 0 || len(b.AdmitKey) == 0 {
			return fmt.Errorf("%s: missing key", c.Type)
		}
	case FeedAdmit:
		b := c.FeedAdmit
		if b == nil {
			return ErrCredentialShape
		}
		if len(b.PartyKey) == 0 || len(b.FeedKey) == 0 {
			return fmt.Errorf("%s: missing key", c.Type)
		}
	case Envelope:
		b := c.Envelope
		if b == nil {
			return ErrCredentialShape
		}
		if len(b.PartyKey) == 0 || b.Message == nil {
			return fmt.Errorf("%s: missing party key or message", c.Type)
		}
	default:
		return fmt.Errorf("%w: %s", ErrCredentialShape, c.Type)
	}
	return nil
}

// PartyKey returns the party key of whichever variant is set.
func (c *PartyCredential) PartyKey() keys.PublicKey {
	switch {
	case c.PartyGenesis != nil:
		return c.PartyGenesis.PartyKey
	case c.KeyAdmit != nil:
		return c.KeyAdmit.PartyKey
	case c.FeedAdmit != nil:
		return c.FeedAdmit.PartyKey
	case c.Envelope != nil:
		return c.Envelope.PartyKey
	}
	return nil
}

// AdmittedKey returns the key or feed admitted by a KEY_ADMIT or FEED_ADMIT
// credential.
func (c *PartyCredential) AdmittedKey() keys.PublicKey {
	switch c.Type {
	case KeyAdmit:
		if c.KeyAdmit != nil {
			return c.KeyAdmit.AdmitKey
		}
	case FeedAdmit:
		if c.FeedAdmit != nil {
			return c.FeedAdmit.FeedKey
		}
	}
	return nil
}

func init() {
	Register(PartyCredentialType, func() Message { return new(PartyCredential) })
}
