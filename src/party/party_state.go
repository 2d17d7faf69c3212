package party

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

// maxEnvelopeDepth bounds the nesting of ENVELOPE credentials.
const maxEnvelopeDepth = 8

// PartyState is the membership of one party, derived from its log.
type PartyState struct {
	sync.RWMutex

	partyKey keys.PublicKey
	keyring  *keyring.Keyring

	memberKeys         map[string]keys.PublicKey
	memberFeeds        map[string]keys.PublicKey
	admittedBy         map[string]keys.PublicKey
	credentialMessages map[string]*message.SignedMessage

	identityProcessor *IdentityMessageProcessor
	invitationManager *PartyInvitationManager

	observerLock sync.Mutex
	observers    map[int]Observer
	nextObserver int

	logger *logrus.Entry
}

// NewPartyState creates the state of the party identified by partyKey. When
// kr is nil, the PartyState gets a Keyring of its own. The party key is added
// to the Keyring as a trusted key of type PARTY unless it is already known.
func NewPartyState(partyKey keys.PublicKey, kr *keyring.Keyring, logger *logrus.Entry) (*PartyState, error) {
	if err := partyKey.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = cm.DiscardEntry()
	}
	logger = logger.WithField("party", partyKey.Hex())

	if kr == nil {
		kr = keyring.NewKeyring(nil, 0, logger)
	}

	if !kr.HasKey(partyKey) {
		if _, err := kr.AddPublicKey(&keyring.KeyRecord{
			PublicKey: partyKey,
			Type:      message.KeyTypeParty,
			Trusted:   true,
		}); err != nil {
			return nil, err
		}
	}

	p := &PartyState{
		partyKey:           partyKey,
		keyring:            kr,
		memberKeys:         make(map[string]keys.PublicKey),
		memberFeeds:        make(map[string]keys.PublicKey),
		admittedBy:         make(map[string]keys.PublicKey),
		credentialMessages: make(map[string]*message.SignedMessage),
		observers:          make(map[int]Observer),
		logger:             logger,
	}
	p.identityProcessor = newIdentityMessageProcessor(p)
	p.invitationManager = newPartyInvitationManager(p)

	return p, nil
}

// Subscribe registers an observer of membership events. The returned function
// unregisters it.
func (p *PartyState) Subscribe(o Observer) func() {
	p.observerLock.Lock()
	defer p.observerLock.Unlock()

	id := p.nextObserver
	p.nextObserver++
	p.observers[id] = o

	return func() {
		p.observerLock.Lock()
		defer p.observerLock.Unlock()
		delete(p.observers, id)
	}
}

func (p *PartyState) notify(events []Event) {
	if len(events) == 0 {
		return
	}

	p.observerLock.Lock()
	ids := make([]int, 0, len(p.observers))
	for id := range p.observers {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	observers := make([]Observer, 0, len(ids))
	for _, id := range ids {
		observers = append(observers, p.observers[id])
	}
	p.observerLock.Unlock()

	for _, e := range events {
		for _, o := range observers {
			o(e)
		}
	}
}

// ProcessMessages replays msgs in order. Each message is applied entirely or
// not at all; a rejected message is logged and processing goes on with the
// next one. The returned error joins the errors of all rejected messages.
func (p *PartyState) ProcessMessages(msgs []*message.SignedMessage) error {
	var errs []error
	var events []Event

	p.Lock()
	for i, m := range msgs {
		evs, err := p.processMessage(m)
		if err != nil {
			p.logger.WithError(err).WithField("index", i).Warn("Message rejected")
			errs = append(errs, fmt.Errorf("message %d: %w", i, err))
			continue
		}
		events = append(events, evs...)
	}
	p.Unlock()

	p.notify(events)

	return errors.Join(errs...)
}

func (p *PartyState) processMessage(m *message.SignedMessage) ([]Event, error) {
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	switch payload := m.Payload().(type) {
	case *message.PartyInvitation:
		return nil, p.invitationManager.recordInvitation(m, payload)
	case *message.IdentityInfo, *message.DeviceInfo:
		return nil, p.identityProcessor.processMessage(m)
	case *message.PartyCredential:
		if isIdentityEnvelope(payload) {
			return nil, p.identityProcessor.processMessage(m)
		}
		admissions, err := p.planCredential(m, payload)
		if err != nil {
			return nil, err
		}
		if err := checkAdmissions(admissions); err != nil {
			return nil, err
		}
		return p.apply(admissions)
	default:
		return nil, fmt.Errorf("%w: unexpected payload %s", ErrMalformed, m.Signed.Payload.Message.TypeURL())
	}
}

// admission is one key or feed that a credential message admits.
type admission struct {
	key        keys.PublicKey
	keyType    message.KeyType
	feed       bool
	admittedBy keys.PublicKey
	msg        *message.SignedMessage
}

// planCredential checks a credential message and returns what it admits,
// without modifying anything.
func (p *PartyState) planCredential(m *message.SignedMessage, cred *message.PartyCredential) ([]admission, error) {
	if err := cred.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}
	if !cred.PartyKey().Equal(p.partyKey) {
		return nil, fmt.Errorf("%w: %s", ErrWrongParty, cred.PartyKey())
	}

	switch cred.Type {
	case message.PartyGenesis:
		return p.planGenesis(m, cred.PartyGenesis)
	case message.KeyAdmit, message.FeedAdmit:
		if !p.keyring.ValidateSignatures(m) {
			return nil, ErrInvalidSignature
		}
		admitted := cred.AdmittedKey()
		admitter := p.keyring.TrustedSigner(m, admitted)
		if admitter == nil {
			return nil, fmt.Errorf("%w: %s admitting %s", ErrUntrusted, cred.Type, admitted)
		}
		return []admission{newAdmission(cred, admitter, m)}, nil
	case message.Envelope:
		return p.planEnvelope(m, m, 1)
	}
	return nil, fmt.Errorf("%w: credential type %s", ErrMalformed, cred.Type)
}

func (p *PartyState) planGenesis(m *message.SignedMessage, g *message.PartyGenesisBody) ([]admission, error) {
	// nothing else can be trusted yet, so the party key must sign directly
	if !m.IsSignedBy(p.partyKey) {
		return nil, fmt.Errorf("%w: genesis not signed by the party key", ErrUntrusted)
	}
	if !p.keyring.VerifyWithOptions(m, keyring.VerifyOptions{}) {
		return nil, ErrInvalidSignature
	}

	return []admission{
		{
			key:        g.AdmitKey,
			keyType:    g.AdmitKeyType,
			admittedBy: p.partyKey,
			msg:        m,
		},
		{
			key:        g.FeedKey,
			keyType:    message.KeyTypeFeed,
			feed:       true,
			admittedBy: p.partyKey,
			msg:        m,
		},
	}, nil
}

// planEnvelope unwraps an ENVELOPE. Each envelope layer must be signed by a
// trusted key; the innermost admission only needs to be signed by the key it
// admits. The admissions are recorded against the outermost message.
func (p *PartyState) planEnvelope(outer, m *message.SignedMessage, depth int) ([]admission, error) {
	if depth > maxEnvelopeDepth {
		return nil, fmt.Errorf("%w: nested more than %d deep", ErrInvalidEnvelope, maxEnvelopeDepth)
	}

	cred, _ := m.Credential()
	if !p.keyring.ValidateSignatures(m) {
		return nil, ErrInvalidSignature
	}
	admitter := p.keyring.TrustedSigner(m)
	if admitter == nil {
		return nil, fmt.Errorf("%w: envelope", ErrUntrusted)
	}

	inner := cred.Envelope.Message
	if err := inner.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	innerCred, ok := inner.Credential()
	if !ok {
		return nil, fmt.Errorf("%w: wraps %s", ErrInvalidEnvelope, inner.Signed.Payload.Message.TypeURL())
	}
	if err := innerCred.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if !innerCred.PartyKey().Equal(p.partyKey) {
		return nil, fmt.Errorf("%w: %s", ErrWrongParty, innerCred.PartyKey())
	}

	switch innerCred.Type {
	case message.Envelope:
		return p.planEnvelope(outer, inner, depth+1)
	case message.KeyAdmit, message.FeedAdmit:
		if !p.keyring.ValidateSignatures(inner) {
			return nil, ErrInvalidSignature
		}
		admitted := innerCred.AdmittedKey()
		if !inner.IsSignedBy(admitted) {
			return nil, fmt.Errorf("%w: %s", ErrNotSelfSigned, admitted)
		}
		return []admission{newAdmission(innerCred, admitter, outer)}, nil
	}
	return nil, fmt.Errorf("%w: wraps %s", ErrInvalidEnvelope, innerCred.Type)
}

func newAdmission(cred *message.PartyCredential, admitter keys.PublicKey, m *message.SignedMessage) admission {
	if cred.Type == message.FeedAdmit {
		return admission{
			key:        cred.FeedAdmit.FeedKey,
			keyType:    message.KeyTypeFeed,
			feed:       true,
			admittedBy: admitter,
			msg:        m,
		}
	}
	return admission{
		key:        cred.KeyAdmit.AdmitKey,
		keyType:    cred.KeyAdmit.AdmitKeyType,
		admittedBy: admitter,
		msg:        m,
	}
}

// checkAdmissions rejects a plan that apply could only carry out in part.
// Every admitted key must be a point of the curve.
func checkAdmissions(admissions []admission) error {
	for _, a := range admissions {
		if err := a.key.Validate(); err != nil {
			return fmt.Errorf("%w: admitted key %s: %v", ErrMalformed, a.key, err)
		}
	}
	return nil
}

// apply writes the admissions of one message. Callers run checkAdmissions
// first so that nothing but a store failure can interrupt it.
func (p *PartyState) apply(admissions []admission) ([]Event, error) {
	var events []Event
	for _, a := range admissions {
		ev, err := p.admit(a)
		if err != nil {
			return events, err
		}
		if ev != nil {
			events = append(events, *ev)
		}
	}
	return events, nil
}

func (p *PartyState) admit(a admission) (*Event, error) {
	h := a.key.Hex()
	members := p.memberKeys
	admitEvent := AdmitKey
	if a.feed {
		members = p.memberFeeds
		admitEvent = AdmitFeed
	}

	existing := p.keyring.GetKey(a.key)
	switch {
	case existing != nil && existing.Hint:
		existing.Hint = false
		existing.Trusted = true
		rec, err := p.keyring.UpdateKey(existing)
		if err != nil {
			return nil, err
		}
		p.record(h, a, members)
		p.logger.WithField("key", h).Debug("Hint confirmed")
		return &Event{Type: UpdateKey, Record: rec, AdmittedBy: a.admittedBy}, nil

	case existing != nil:
		if _, ok := members[h]; ok {
			return nil, nil
		}
		if !existing.Trusted {
			existing.Trusted = true
			if _, err := p.keyring.UpdateKey(existing); err != nil {
				return nil, err
			}
		}
		p.record(h, a, members)
		return &Event{Type: admitEvent, Record: p.keyring.GetKey(a.key), AdmittedBy: a.admittedBy}, nil

	default:
		rec, err := p.keyring.AddPublicKey(&keyring.KeyRecord{
			PublicKey: a.key,
			Type:      a.keyType,
			Trusted:   true,
		})
		if err != nil {
			return nil, err
		}
		p.record(h, a, members)
		p.logger.WithFields(logrus.Fields{
			"key":         h,
			"type":        a.keyType,
			"admitted_by": a.admittedBy.Hex(),
		}).Debug("Admitted")
		return &Event{Type: admitEvent, Record: rec, AdmittedBy: a.admittedBy}, nil
	}
}

func (p *PartyState) record(h string, a admission, members map[string]keys.PublicKey) {
	members[h] = a.key
	p.admittedBy[h] = a.admittedBy
	p.credentialMessages[h] = a.msg
	if !a.feed {
		p.invitationManager.retire(a.key)
	}
}

// TakeHints admits keys and feeds provisionally, ahead of their credential
// messages. Already known keys are left alone.
func (p *PartyState) TakeHints(hints []message.KeyHint) error {
	var events []Event

	p.Lock()
	for _, hint := range hints {
		if err := hint.PublicKey.Validate(); err != nil {
			p.Unlock()
			p.notify(events)
			return fmt.Errorf("%w: hint %v", ErrMalformed, err)
		}
		if p.keyring.HasKey(hint.PublicKey) {
			continue
		}
		rec, err := p.keyring.AddPublicKey(&keyring.KeyRecord{
			PublicKey: hint.PublicKey,
			Type:      hint.Type,
			Trusted:   true,
			Hint:      true,
		})
		if err != nil {
			p.Unlock()
			p.notify(events)
			return err
		}

		h := hint.PublicKey.Hex()
		if hint.Type == message.KeyTypeFeed {
			p.memberFeeds[h] = hint.PublicKey
			events = append(events, Event{Type: AdmitFeed, Record: rec})
		} else {
			p.memberKeys[h] = hint.PublicKey
			events = append(events, Event{Type: AdmitKey, Record: rec})
		}
	}
	p.Unlock()

	p.notify(events)
	return nil
}

// PartyKey returns the key of the party.
func (p *PartyState) PartyKey() keys.PublicKey {
	return p.partyKey
}

// Keyring returns the Keyring of the party.
func (p *PartyState) Keyring() *keyring.Keyring {
	return p.keyring
}

// IdentityProcessor returns the processor of identity messages.
func (p *PartyState) IdentityProcessor() *IdentityMessageProcessor {
	return p.identityProcessor
}

// InvitationManager returns the manager of party invitations.
func (p *PartyState) InvitationManager() *PartyInvitationManager {
	return p.invitationManager
}

// MemberKeys returns the member keys, sorted.
func (p *PartyState) MemberKeys() []keys.PublicKey {
	p.RLock()
	defer p.RUnlock()
	return sortedKeys(p.memberKeys)
}

// MemberFeeds returns the member feeds, sorted.
func (p *PartyState) MemberFeeds() []keys.PublicKey {
	p.RLock()
	defer p.RUnlock()
	return sortedKeys(p.memberFeeds)
}

// IsMemberKey reports whether key is a member key.
func (p *PartyState) IsMemberKey(key keys.PublicKey) bool {
	p.RLock()
	defer p.RUnlock()
	_, ok := p.memberKeys[key.Hex()]
	return ok
}

// IsMemberFeed reports whether key is a member feed.
func (p *PartyState) IsMemberFeed(key keys.PublicKey) bool {
	p.RLock()
	defer p.RUnlock()
	_, ok := p.memberFeeds[key.Hex()]
	return ok
}

// GetAdmittedBy returns the member that admitted key, or nil. Hinted keys
// have no admitter until their credential message arrives.
func (p *PartyState) GetAdmittedBy(key keys.PublicKey) keys.PublicKey {
	p.RLock()
	defer p.RUnlock()
	return p.admittedBy[key.Hex()]
}

// GetCredentialMessage returns the message that admitted key, or nil.
func (p *PartyState) GetCredentialMessage(key keys.PublicKey) *message.SignedMessage {
	p.RLock()
	defer p.RUnlock()
	return p.credentialMessages[key.Hex()]
}

// CredentialMessages returns a copy of the map from admitted key hex to the
// message that admitted it.
func (p *PartyState) CredentialMessages() map[string]*message.SignedMessage {
	p.RLock()
	defer p.RUnlock()

	res := make(map[string]*message.SignedMessage, len(p.credentialMessages))
	for k, v := range p.credentialMessages {
		res[k] = v
	}
	return res
}

func sortedKeys(m map[string]keys.PublicKey) []keys.PublicKey {
	hexes := make([]string, 0, len(m))
	for h := range m {
		hexes = append(hexes, h)
	}
	sort.Strings(hexes)

	res := make([]keys.PublicKey, 0, len(hexes))
	for _, h := range hexes {
		res = append(res, m[h])
	}
	return res
}
