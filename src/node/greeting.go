package node

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/greet"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
	pnet "github.com/mosaicnetworks/party/src/net"
	"github.com/mosaicnetworks/party/src/party"
	"github.com/sirupsen/logrus"
)

// pinDigits is the length of the PIN of interactive invitations.
const pinDigits = 6

// Dialer opens a transport to the greeting session reachable at rendezvous.
type Dialer func(rendezvous keys.PublicKey) (greet.Transport, error)

// writeAdmissions is the greet.PartyWriter of the node: each admission is
// wrapped in an envelope signed by the node's identity and appended to the
// feed.
func (n *Node) writeAdmissions(msgs []*message.SignedMessage) ([]*message.SignedMessage, error) {
	identity, err := n.Identity()
	if err != nil {
		return nil, err
	}
	partyKey := n.PartyKey()

	copies := make([]*message.SignedMessage, 0, len(msgs))
	for _, m := range msgs {
		env, err := party.CreateEnvelopeMessage(n.Keyring, partyKey, m, []interface{}{identity})
		if err != nil {
			return nil, err
		}
		copies = append(copies, env)
	}

	if err := n.appendMessages(copies); err != nil {
		return nil, err
	}
	return copies, nil
}

// hints is the greet.HintProvider of the node: every member key and feed,
// except those admitted by msgs.
func (n *Node) hints(msgs []*message.SignedMessage) ([]message.KeyHint, error) {
	admitted := make(map[string]bool)
	for _, m := range msgs {
		if cred, ok := m.Credential(); ok {
			admitted[cred.AdmittedKey().Hex()] = true
		}
	}

	n.Lock()
	state := n.State
	n.Unlock()

	var hints []message.KeyHint
	for _, k := range state.MemberKeys() {
		if admitted[k.Hex()] {
			continue
		}
		t := message.KeyTypeUnknown
		if rec := state.Keyring().GetKey(k); rec != nil {
			t = rec.Type
		}
		hints = append(hints, message.KeyHint{PublicKey: k, Type: t})
	}
	for _, k := range state.MemberFeeds() {
		if admitted[k.Hex()] {
			continue
		}
		hints = append(hints, message.KeyHint{PublicKey: k, Type: message.KeyTypeFeed})
	}
	return hints, nil
}

// Handler returns the handler of the greeting commands sent to the node.
// CLAIM goes to the claim handler, everything else to the Greeter.
func (n *Node) Handler() pnet.Handler {
	return handlerFunc(func(cmd *message.Command, peerID string) (message.Message, error) {
		n.Lock()
		greeter, claims := n.Greeter, n.Claims
		n.Unlock()

		if greeter == nil {
			return nil, &greet.Error{Code: greet.ErrorInvalidInvitation, Message: ErrNoParty.Error()}
		}
		if cmd != nil && cmd.Command == message.Claim {
			return claims.HandleMessage(cmd, peerID)
		}
		return greeter.HandleMessage(cmd, peerID)
	})
}

type handlerFunc func(cmd *message.Command, peerID string) (message.Message, error)

func (f handlerFunc) HandleMessage(cmd *message.Command, peerID string) (message.Message, error) {
	return f(cmd, peerID)
}

// Invite issues an interactive invitation. The descriptor and the PIN are
// handed to the invitee out of band.
func (n *Node) Invite() (*greet.InvitationDescriptor, []byte, error) {
	n.Lock()
	greeter := n.Greeter
	n.Unlock()
	if greeter == nil {
		return nil, nil, ErrNoParty
	}

	pin, err := newPIN()
	if err != nil {
		return nil, nil, err
	}

	inv, err := greeter.CreateInvitation(greet.InvitationOptions{
		SecretProvider: func(*greet.Invitation) ([]byte, error) { return pin, nil },
		Expiration:     n.conf.InvitationExpiration,
	})
	if err != nil {
		return nil, nil, err
	}

	return &greet.InvitationDescriptor{
		Type:       greet.Interactive,
		SwarmKey:   n.RendezvousKey(),
		Invitation: inv.ID,
	}, pin, nil
}

// InviteMember writes a PartyInvitation for invitee to the feed. The invitee
// redeems it by claiming it, without a PIN.
func (n *Node) InviteMember(invitee keys.PublicKey) (*greet.InvitationDescriptor, error) {
	partyKey := n.PartyKey()
	if partyKey == nil {
		return nil, ErrNoParty
	}
	identity, err := n.Identity()
	if err != nil {
		return nil, err
	}

	m, err := party.CreatePartyInvitationMessage(n.Keyring, partyKey, invitee, identity)
	if err != nil {
		return nil, err
	}
	if err := n.appendMessages([]*message.SignedMessage{m}); err != nil {
		return nil, err
	}

	pi := m.Payload().(*message.PartyInvitation)
	return &greet.InvitationDescriptor{
		Type:       greet.PartyClaim,
		SwarmKey:   n.RendezvousKey(),
		Invitation: pi.ID,
		Identity:   invitee,
		PartyKey:   partyKey,
	}, nil
}

// Join redeems desc and switches the node to the party it was invited to. pin
// is the secret of interactive invitations and is ignored for party claims,
// whose identity key must be held by the Keyring.
func (n *Node) Join(ctx context.Context, desc *greet.InvitationDescriptor, pin []byte, dial Dialer) error {
	if n.PartyKey() != nil {
		return ErrHasParty
	}

	var identity *keyring.KeyRecord
	var err error
	if desc.Type == greet.PartyClaim {
		identity = n.Keyring.GetFullKey(desc.Identity)
		if identity == nil || !identity.HasSecretKey() {
			return fmt.Errorf("%w: %s", keyring.ErrNoSecretKey, desc.Identity.Hex())
		}
	} else if identity, err = n.Identity(); err != nil {
		return err
	}

	feedRecord, err := n.Keyring.CreateKeyRecord(message.KeyTypeFeed)
	if err != nil {
		return err
	}

	transport, err := dial(desc.SwarmKey)
	if err != nil {
		return err
	}
	initiator := greet.NewInitiator(transport, n.logger)

	id := []byte(desc.Invitation)
	secretFn := func(*message.BeginResponse) ([]byte, error) { return pin, nil }

	if desc.Type == greet.PartyClaim {
		claim, err := initiator.Claim(ctx, desc.Invitation)
		if err != nil {
			return err
		}
		id = claim.ID
		if !claim.RendezvousKey.Equal(desc.SwarmKey) {
			if transport, err = dial(claim.RendezvousKey); err != nil {
				return err
			}
			initiator = greet.NewInitiator(transport, n.logger)
		}
		secretFn = func(begin *message.BeginResponse) ([]byte, error) {
			return greet.CreateClaimSecret(n.Keyring, desc.PartyKey, identity, begin.AuthNonce)
		}
	}

	var partyKey keys.PublicKey
	admitFn := func(h *message.HandshakeResponse) ([]*message.SignedMessage, error) {
		partyKey = h.PartyKey
		keyAdmit, err := party.CreateKeyAdmitMessage(n.Keyring, h.PartyKey, identity, []interface{}{identity}, h.Nonce)
		if err != nil {
			return nil, err
		}
		feedAdmit, err := party.CreateFeedAdmitMessage(n.Keyring, h.PartyKey, feedRecord, []interface{}{feedRecord, identity}, h.Nonce)
		if err != nil {
			return nil, err
		}
		return []*message.SignedMessage{keyAdmit, feedAdmit}, nil
	}

	notarized, err := initiator.Redeem(ctx, id, secretFn, admitFn)
	if err != nil {
		return err
	}

	msgs := notarized.Copies
	if n.conf.Moniker != "" {
		info, err := party.CreateIdentityInfoMessage(n.Keyring, n.conf.Moniker, identity)
		if err != nil {
			return err
		}
		msgs = append(msgs, info)
	}

	n.Lock()
	defer n.Unlock()

	if n.State != nil {
		return ErrHasParty
	}
	info := &PartyInfo{
		PartyKey:       partyKey,
		GenesisFeedKey: notarized.GenesisFeedKey,
		Hints:          notarized.Hints,
	}
	if err := n.install(info, msgs); err != nil {
		return err
	}

	n.logger.WithFields(logrus.Fields{
		"party":    partyKey.Hex(),
		"identity": identity.Hex(),
	}).Info("Joined party")
	return nil
}

func newPIN() ([]byte, error) {
	limit := big.NewInt(1)
	for i := 0; i < pinDigits; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	v, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return nil, err
	}
	return []byte(fmt.Sprintf("%0*d", pinDigits, v)), nil
}
