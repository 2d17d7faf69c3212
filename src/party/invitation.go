package party

import (
	"fmt"
	"sort"
	"sync"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
)

// PartyInvitationManager tracks the PartyInvitations recorded in the log that
// have not been used yet. An invitation is retired as soon as its invitee is
// admitted.
type PartyInvitationManager struct {
	sync.RWMutex

	state       *PartyState
	invitations map[string]*message.SignedMessage
	byInvitee   map[string]map[string]bool
}

func newPartyInvitationManager(state *PartyState) *PartyInvitationManager {
	return &PartyInvitationManager{
		state:       state,
		invitations: make(map[string]*message.SignedMessage),
		byInvitee:   make(map[string]map[string]bool),
	}
}

// recordInvitation is called with the PartyState lock held.
func (im *PartyInvitationManager) recordInvitation(m *message.SignedMessage, inv *message.PartyInvitation) error {
	if len(inv.ID) == 0 {
		return fmt.Errorf("%w: invitation without id", ErrMalformed)
	}
	if err := inv.InviteeKey.Validate(); err != nil {
		return fmt.Errorf("%w: invitee %v", ErrMalformed, err)
	}
	if !inv.PartyKey.Equal(im.state.partyKey) {
		return fmt.Errorf("%w: %s", ErrWrongParty, inv.PartyKey)
	}
	if !im.state.keyring.ValidateSignatures(m) {
		return ErrInvalidSignature
	}
	if !m.IsSignedBy(inv.IssuerKey) {
		return fmt.Errorf("%w: invitation not signed by its issuer", ErrUntrusted)
	}
	if im.state.keyring.TrustedSigner(m) == nil {
		return fmt.Errorf("%w: invitation", ErrUntrusted)
	}

	invitee := inv.InviteeKey.Hex()
	if _, member := im.state.memberKeys[invitee]; member {
		im.state.logger.WithField("invitee", invitee).Debug("Invitation for a member ignored")
		return nil
	}

	im.Lock()
	defer im.Unlock()

	id := inv.ID.String()
	if _, ok := im.invitations[id]; ok {
		return nil
	}
	im.invitations[id] = m
	if im.byInvitee[invitee] == nil {
		im.byInvitee[invitee] = make(map[string]bool)
	}
	im.byInvitee[invitee][id] = true

	im.state.logger.WithField("id", id).Debug("Invitation recorded")
	return nil
}

// retire drops the invitations of an admitted key.
func (im *PartyInvitationManager) retire(invitee keys.PublicKey) {
	im.Lock()
	defer im.Unlock()

	h := invitee.Hex()
	for id := range im.byInvitee[h] {
		delete(im.invitations, id)
	}
	delete(im.byInvitee, h)
}

// GetInvitation returns the PartyInvitation with the given id, if it is still
// outstanding.
func (im *PartyInvitationManager) GetInvitation(id []byte) (*message.PartyInvitation, bool) {
	m := im.GetInvitationMessage(id)
	if m == nil {
		return nil, false
	}
	inv, ok := m.Payload().(*message.PartyInvitation)
	return inv, ok
}

// GetInvitationMessage returns the log message of an outstanding invitation,
// or nil.
func (im *PartyInvitationManager) GetInvitationMessage(id []byte) *message.SignedMessage {
	im.RLock()
	defer im.RUnlock()
	return im.invitations[common.HexBytes(id).String()]
}

// HasInvitation reports whether an invitation is outstanding.
func (im *PartyInvitationManager) HasInvitation(id []byte) bool {
	return im.GetInvitationMessage(id) != nil
}

// Invitations returns the outstanding invitations, sorted by id.
func (im *PartyInvitationManager) Invitations() []*message.PartyInvitation {
	im.RLock()
	defer im.RUnlock()

	ids := make([]string, 0, len(im.invitations))
	for id := range im.invitations {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	res := make([]*message.PartyInvitation, 0, len(ids))
	for _, id := range ids {
		if inv, ok := im.invitations[id].Payload().(*message.PartyInvitation); ok {
			res = append(res, inv)
		}
	}
	return res
}
