package party

import (
	"fmt"
	"sync"

	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
)

// IdentityMessageProcessor keeps the IdentityInfo and DeviceInfo found in the
// party log. Info is accepted when it is signed by the key it describes and
// that key is a member, or when a member wraps the self-signed info in an
// ENVELOPE.
type IdentityMessageProcessor struct {
	sync.RWMutex

	state   *PartyState
	infos   map[string]*message.IdentityInfo
	devices map[string]*message.DeviceInfo
	sources map[string]*message.SignedMessage
}

func newIdentityMessageProcessor(state *PartyState) *IdentityMessageProcessor {
	return &IdentityMessageProcessor{
		state:   state,
		infos:   make(map[string]*message.IdentityInfo),
		devices: make(map[string]*message.DeviceInfo),
		sources: make(map[string]*message.SignedMessage),
	}
}

func isIdentityEnvelope(cred *message.PartyCredential) bool {
	if cred.Type != message.Envelope || cred.Envelope == nil || cred.Envelope.Message == nil {
		return false
	}
	inner := cred.Envelope.Message.Payload()
	return inner != nil && message.IsIdentityType(inner.TypeURL())
}

// processMessage is called with the PartyState lock held.
func (ip *IdentityMessageProcessor) processMessage(m *message.SignedMessage) error {
	kr := ip.state.keyring

	inner := m
	if cred, ok := m.Credential(); ok {
		if !cred.PartyKey().Equal(ip.state.partyKey) {
			return fmt.Errorf("%w: %s", ErrWrongParty, cred.PartyKey())
		}
		if !kr.ValidateSignatures(m) {
			return ErrInvalidSignature
		}
		if kr.TrustedSigner(m) == nil {
			return fmt.Errorf("%w: identity envelope", ErrUntrusted)
		}
		inner = cred.Envelope.Message
		if err := inner.Validate(); err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
		}
	}

	if !kr.ValidateSignatures(inner) {
		return ErrInvalidSignature
	}

	var subject keys.PublicKey
	switch info := inner.Payload().(type) {
	case *message.IdentityInfo:
		subject = info.PublicKey
	case *message.DeviceInfo:
		subject = info.PublicKey
	default:
		return fmt.Errorf("%w: not identity info", ErrMalformed)
	}
	if err := subject.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !inner.IsSignedBy(subject) {
		return fmt.Errorf("%w: info for %s", ErrNotSelfSigned, subject)
	}
	if inner == m {
		if _, member := ip.state.memberKeys[subject.Hex()]; !member {
			return fmt.Errorf("%w: %s is not a member", ErrUntrusted, subject)
		}
	}

	ip.Lock()
	defer ip.Unlock()

	h := subject.Hex()
	switch info := inner.Payload().(type) {
	case *message.IdentityInfo:
		ip.infos[h] = info
	case *message.DeviceInfo:
		ip.devices[h] = info
	}
	ip.sources[h] = m

	ip.state.logger.WithField("key", h).Debug("Identity info recorded")
	return nil
}

// GetInfo returns the IdentityInfo of an identity key, or nil.
func (ip *IdentityMessageProcessor) GetInfo(key keys.PublicKey) *message.IdentityInfo {
	ip.RLock()
	defer ip.RUnlock()
	return ip.infos[key.Hex()]
}

// GetDeviceInfo returns the DeviceInfo of a device key, or nil.
func (ip *IdentityMessageProcessor) GetDeviceInfo(key keys.PublicKey) *message.DeviceInfo {
	ip.RLock()
	defer ip.RUnlock()
	return ip.devices[key.Hex()]
}

// GetDisplayName returns the display name bound to key, or "".
func (ip *IdentityMessageProcessor) GetDisplayName(key keys.PublicKey) string {
	ip.RLock()
	defer ip.RUnlock()

	if info, ok := ip.infos[key.Hex()]; ok {
		return info.DisplayName
	}
	if info, ok := ip.devices[key.Hex()]; ok {
		return info.DisplayName
	}
	return ""
}

// GetMessage returns the log message that carried the info of key, or nil.
func (ip *IdentityMessageProcessor) GetMessage(key keys.PublicKey) *message.SignedMessage {
	ip.RLock()
	defer ip.RUnlock()
	return ip.sources[key.Hex()]
}
