package party

import (
	"crypto/rand"
	"fmt"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
)

// InvitationIDSize is the length of generated PartyInvitation ids.
const InvitationIDSize = 32

// SignerKey returns the public key of a signer accepted by Keyring.Sign.
func SignerKey(signer interface{}) (keys.PublicKey, error) {
	switch v := signer.(type) {
	case *keyring.KeyRecord:
		return v.PublicKey, nil
	case *message.KeyChain:
		return v.PublicKey, nil
	case *keys.KeyPair:
		return v.PublicKey, nil
	}
	return nil, fmt.Errorf("%w: %T is not a signer", keyring.ErrInvalidKey, signer)
}

// CreatePartyGenesisMessage creates the root message of a party, admitting
// admit and feed. It is signed by the party key, the feed and the admitted
// key.
func CreatePartyGenesisMessage(kr *keyring.Keyring, party *keyring.KeyRecord, feed interface{}, admit *keyring.KeyRecord) (*message.SignedMessage, error) {
	feedKey, err := SignerKey(feed)
	if err != nil {
		return nil, err
	}
	payload := &message.PartyCredential{
		Type: message.PartyGenesis,
		PartyGenesis: &message.PartyGenesisBody{
			PartyKey:     party.PublicKey,
			AdmitKey:     admit.PublicKey,
			AdmitKeyType: admit.Type,
			FeedKey:      feedKey,
		},
	}
	return kr.Sign(payload, []interface{}{party, feed, admit})
}

// CreateKeyAdmitMessage creates a KEY_ADMIT for admit, signed by admit and
// every one of signers. A non-nil nonce binds the message to a greeting
// session.
func CreateKeyAdmitMessage(kr *keyring.Keyring, partyKey keys.PublicKey, admit *keyring.KeyRecord, signers []interface{}, nonce []byte) (*message.SignedMessage, error) {
	payload := &message.PartyCredential{
		Type: message.KeyAdmit,
		KeyAdmit: &message.KeyAdmitBody{
			PartyKey:     partyKey,
			AdmitKey:     admit.PublicKey,
			AdmitKeyType: admit.Type,
		},
	}
	all := append([]interface{}{admit}, signers...)
	return kr.SignWithOptions(payload, all, keyring.SignOptions{Nonce: nonce})
}

// CreateFeedAdmitMessage creates a FEED_ADMIT for feed, signed by feed and
// every one of signers.
func CreateFeedAdmitMessage(kr *keyring.Keyring, partyKey keys.PublicKey, feed interface{}, signers []interface{}, nonce []byte) (*message.SignedMessage, error) {
	feedKey, err := SignerKey(feed)
	if err != nil {
		return nil, err
	}
	payload := &message.PartyCredential{
		Type: message.FeedAdmit,
		FeedAdmit: &message.FeedAdmitBody{
			PartyKey: partyKey,
			FeedKey:  feedKey,
		},
	}
	all := append([]interface{}{feed}, signers...)
	return kr.SignWithOptions(payload, all, keyring.SignOptions{Nonce: nonce})
}

// CreateEnvelopeMessage wraps inner in an ENVELOPE signed by signers.
func CreateEnvelopeMessage(kr *keyring.Keyring, partyKey keys.PublicKey, inner *message.SignedMessage, signers []interface{}) (*message.SignedMessage, error) {
	payload := &message.PartyCredential{
		Type: message.Envelope,
		Envelope: &message.EnvelopeBody{
			PartyKey: partyKey,
			Message:  inner,
		},
	}
	return kr.Sign(payload, signers)
}

// CreateIdentityInfoMessage creates an IdentityInfo self-signed by identity.
func CreateIdentityInfoMessage(kr *keyring.Keyring, displayName string, identity *keyring.KeyRecord) (*message.SignedMessage, error) {
	return kr.Sign(&message.IdentityInfo{
		PublicKey:   identity.PublicKey,
		DisplayName: displayName,
	}, []interface{}{identity})
}

// CreateDeviceInfoMessage creates a DeviceInfo self-signed by device.
func CreateDeviceInfoMessage(kr *keyring.Keyring, displayName string, device *keyring.KeyRecord) (*message.SignedMessage, error) {
	return kr.Sign(&message.DeviceInfo{
		PublicKey:   device.PublicKey,
		DisplayName: displayName,
	}, []interface{}{device})
}

// CreatePartyInvitationMessage creates a PartyInvitation for invitee, signed
// by issuer.
func CreatePartyInvitationMessage(kr *keyring.Keyring, partyKey keys.PublicKey, invitee keys.PublicKey, issuer interface{}) (*message.SignedMessage, error) {
	issuerKey, err := SignerKey(issuer)
	if err != nil {
		return nil, err
	}
	id := make([]byte, InvitationIDSize)
	if _, err := rand.Read(id); err != nil {
		return nil, err
	}
	return kr.Sign(&message.PartyInvitation{
		ID:         common.HexBytes(id),
		PartyKey:   partyKey,
		IssuerKey:  issuerKey,
		InviteeKey: invitee,
	}, []interface{}{issuer})
}

// CreateAuthMessage creates the credentials a device presents when connecting
// to a peer of the party. device is usually the KeyChain linking the device to
// identity; feed may be nil.
func CreateAuthMessage(kr *keyring.Keyring, partyKey keys.PublicKey, identity *keyring.KeyRecord, device interface{}, feed keys.PublicKey) (*message.SignedMessage, error) {
	deviceKey, err := SignerKey(device)
	if err != nil {
		return nil, err
	}
	return kr.Sign(&message.Auth{
		PartyKey:    partyKey,
		DeviceKey:   deviceKey,
		IdentityKey: identity.PublicKey,
		FeedKey:     feed,
	}, []interface{}{device})
}
