package greet

import (
	"bytes"
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

// InvitationSource looks up the PartyInvitations recorded in a party log.
// party.PartyInvitationManager implements it.
type InvitationSource interface {
	GetInvitation(id []byte) (*message.PartyInvitation, bool)
}

// Rendezvous returns the key under which the greeting session of inv can be
// reached.
type Rendezvous func(inv *Invitation) (keys.PublicKey, error)

// PartyInvitationClaimHandler serves CLAIM. Each successful claim of a
// PartyInvitation mints a fresh Invitation on the Greeter. The invitee proves
// it owns the invited key by presenting, as the secret of that Invitation, a
// message signed by the invited key and carrying the Invitation's AuthNonce.
type PartyInvitationClaimHandler struct {
	greeter    *Greeter
	source     InvitationSource
	rendezvous Rendezvous
	expiration time.Duration
	keyring    *keyring.Keyring
	logger     *logrus.Entry
}

// NewPartyInvitationClaimHandler creates a handler minting invitations on
// greeter. A nil rendezvous gives every session a fresh random key.
func NewPartyInvitationClaimHandler(greeter *Greeter, source InvitationSource, rendezvous Rendezvous, expiration time.Duration) *PartyInvitationClaimHandler {
	if rendezvous == nil {
		rendezvous = randomRendezvous
	}
	return &PartyInvitationClaimHandler{
		greeter:    greeter,
		source:     source,
		rendezvous: rendezvous,
		expiration: expiration,
		keyring:    keyring.NewKeyring(nil, 0, greeter.logger),
		logger:     greeter.logger.WithField("prefix", "claim"),
	}
}

func randomRendezvous(*Invitation) (keys.PublicKey, error) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return kp.PublicKey, nil
}

// HandleMessage executes a CLAIM command from peerID.
func (h *PartyInvitationClaimHandler) HandleMessage(cmd *message.Command, peerID string) (message.Message, error) {
	if cmd == nil || cmd.Command != message.Claim {
		return nil, newError(ErrorInvalidCommand, "claim handler only serves CLAIM")
	}
	if !h.greeter.limiter.allow(peerID, h.greeter.clock.Now()) {
		h.greeter.metrics.command(cmd.Command.String(), "rate_limited")
		return nil, newError(ErrorRateLimited, "peer %s", peerID)
	}

	pi, ok := h.source.GetInvitation(cmd.Invitation)
	if !ok {
		h.greeter.metrics.command(cmd.Command.String(), ErrorInvalidInvitation.String())
		return nil, newError(ErrorInvalidInvitation, "no party invitation %s", cmd.Invitation)
	}

	inv, err := h.greeter.CreateInvitation(InvitationOptions{
		SecretValidator: h.validator(pi),
		Expiration:      h.expiration,
	})
	if err != nil {
		return nil, newError(ErrorInternal, "%v", err)
	}

	key, err := h.rendezvous(inv)
	if err != nil {
		h.greeter.Revoke(inv.ID)
		return nil, newError(ErrorInternal, "rendezvous: %v", err)
	}

	h.greeter.metrics.command(cmd.Command.String(), "ok")
	h.logger.WithFields(logrus.Fields{
		"party_invitation": pi.ID.String(),
		"invitation":       inv.ID.String(),
		"peer":             peerID,
	}).Debug("Party invitation claimed")

	return &message.ClaimResponse{
		ID:            inv.ID,
		RendezvousKey: key,
	}, nil
}

// validator accepts an encoded SignedMessage, signed by the invitee with the
// invitation's AuthNonce as nonce.
func (h *PartyInvitationClaimHandler) validator(pi *message.PartyInvitation) SecretValidator {
	invitee := pi.InviteeKey
	return func(inv *Invitation, secret []byte) bool {
		decoded, err := message.Decode(secret)
		if err != nil {
			return false
		}
		m, ok := decoded.(*message.SignedMessage)
		if !ok {
			return false
		}
		auth, ok := m.Payload().(*message.Auth)
		if !ok || !auth.PartyKey.Equal(pi.PartyKey) {
			return false
		}
		return bytes.Equal(m.Signed.Nonce, inv.AuthNonce) &&
			m.IsSignedBy(invitee) &&
			h.keyring.ValidateSignatures(m)
	}
}

// CreateClaimSecret builds the secret an invitee presents after claiming a
// PartyInvitation: an Auth payload signed by invitee, bound to the AuthNonce
// returned by BEGIN.
func CreateClaimSecret(kr *keyring.Keyring, partyKey keys.PublicKey, invitee *keyring.KeyRecord, authNonce []byte) ([]byte, error) {
	m, err := kr.SignWithOptions(&message.Auth{
		PartyKey:    partyKey,
		IdentityKey: invitee.PublicKey,
		DeviceKey:   invitee.PublicKey,
	}, []interface{}{invitee}, keyring.SignOptions{Nonce: common.HexBytes(authNonce)})
	if err != nil {
		return nil, err
	}
	return message.Encode(m)
}
