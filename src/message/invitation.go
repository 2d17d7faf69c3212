package message

import (
	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
)

const (
	// PartyInvitationType is the type URL of PartyInvitation
	PartyInvitationType = "dxos.credentials.party.PartyInvitation"
	// KeyHintType is the type URL of KeyHint
	KeyHintType = "dxos.credentials.party.KeyHint"
)

// PartyInvitation records in the party log that IssuerKey invited
// InviteeKey. It is claimed later through a greeting session.
type PartyInvitation struct {
	ID         common.HexBytes `json:"id"`
	PartyKey   keys.PublicKey  `json:"partyKey"`
	IssuerKey  keys.PublicKey  `json:"issuerKey"`
	InviteeKey keys.PublicKey  `json:"inviteeKey"`
}

// TypeURL implements Message
func (p *PartyInvitation) TypeURL() string { return PartyInvitationType }

// KeyHint announces a key or feed ahead of its credential message.
type KeyHint struct {
	PublicKey keys.PublicKey `json:"publicKey"`
	Type      KeyType        `json:"type"`
}

// TypeURL implements Message
func (h *KeyHint) TypeURL() string { return KeyHintType }

func init() {
	Register(PartyInvitationType, func() Message { return new(PartyInvitation) })
	Register(KeyHintType, func() Message { return new(KeyHint) })
}
