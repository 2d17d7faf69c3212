package greet

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mr-tron/base58"
)

// DescriptorType says how an invitation is redeemed.
type DescriptorType int

const (
	// Interactive invitations go straight to BEGIN
	Interactive DescriptorType = iota
	// PartyClaim invitations name a PartyInvitation that must be claimed
	// first
	PartyClaim
)

// InvitationDescriptor is everything an invitee needs to find and redeem an
// invitation. It is shared out of band as a base58 string.
type InvitationDescriptor struct {
	Type       DescriptorType  `json:"type"`
	SwarmKey   keys.PublicKey  `json:"swarmKey"`
	Invitation common.HexBytes `json:"invitation"`
	Identity   keys.PublicKey  `json:"identityKey,omitempty"`
	// PartyKey names the party of a PartyClaim invitation, which the
	// invitee signs into its claim secret.
	PartyKey keys.PublicKey `json:"partyKey,omitempty"`
}

// Encode returns the base58 form of the descriptor.
func (d *InvitationDescriptor) Encode() (string, error) {
	b, err := json.Marshal(d)
	if err != nil {
		return "", err
	}
	return base58.Encode(b), nil
}

// DecodeInvitationDescriptor parses the output of Encode.
func DecodeInvitationDescriptor(s string) (*InvitationDescriptor, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invitation descriptor: %v", err)
	}
	d := new(InvitationDescriptor)
	if err := json.Unmarshal(b, d); err != nil {
		return nil, fmt.Errorf("invitation descriptor: %v", err)
	}
	if len(d.Invitation) == 0 || len(d.SwarmKey) == 0 {
		return nil, errors.New("invitation descriptor: missing invitation or swarm key")
	}
	return d, nil
}
