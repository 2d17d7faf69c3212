package party

import (
	"errors"
	"testing"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/stretchr/testify/require"
)

type fixture struct {
	kr        *keyring.Keyring
	party     *keyring.KeyRecord
	identityA *keyring.KeyRecord
	identityB *keyring.KeyRecord
	device    *keyring.KeyRecord
	feedA     *keys.KeyPair
	feedB     *keys.KeyPair
}

func newFixture(t *testing.T) *fixture {
	kr := keyring.NewKeyring(nil, 0, common.NewTestEntry(t, "generator"))

	create := func(kt message.KeyType) *keyring.KeyRecord {
		r, err := kr.CreateKeyRecord(kt)
		if err != nil {
			t.Fatal(err)
		}
		return r
	}
	feed := func() *keys.KeyPair {
		kp, err := keys.GenerateKeyPair()
		if err != nil {
			t.Fatal(err)
		}
		return kp
	}

	return &fixture{
		kr:        kr,
		party:     create(message.KeyTypeParty),
		identityA: create(message.KeyTypeIdentity),
		identityB: create(message.KeyTypeIdentity),
		device:    create(message.KeyTypeDevice),
		feedA:     feed(),
		feedB:     feed(),
	}
}

func (f *fixture) partyKey() keys.PublicKey {
	return f.party.PublicKey
}

func (f *fixture) state(t *testing.T) *PartyState {
	ps, err := NewPartyState(f.partyKey(), nil, common.NewTestEntry(t, "party"))
	if err != nil {
		t.Fatal(err)
	}
	return ps
}

// deviceChain links the device to identity A through a KEY_ADMIT recorded in
// the identity's own log.
func (f *fixture) deviceChain(t *testing.T) *message.KeyChain {
	admit, err := CreateKeyAdmitMessage(f.kr, f.identityA.PublicKey, f.device, []interface{}{f.identityA}, nil)
	if err != nil {
		t.Fatal(err)
	}
	chain, err := f.kr.BuildKeyChain(f.device.PublicKey, map[string]*message.SignedMessage{
		f.device.Hex(): admit,
	}, nil)
	if err != nil {
		t.Fatal(err)
	}
	return chain
}

func (f *fixture) scenario(t *testing.T) []*message.SignedMessage {
	genesis, err := CreatePartyGenesisMessage(f.kr, f.party, f.feedA, f.identityA)
	require.NoError(t, err)

	keyAdmit, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), f.identityB, []interface{}{f.identityA}, nil)
	require.NoError(t, err)

	feedAdmit, err := CreateFeedAdmitMessage(f.kr, f.partyKey(), f.feedB, []interface{}{f.deviceChain(t)}, nil)
	require.NoError(t, err)

	info, err := CreateIdentityInfoMessage(f.kr, "Alice", f.identityA)
	require.NoError(t, err)
	envelope, err := CreateEnvelopeMessage(f.kr, f.partyKey(), info, []interface{}{f.identityA})
	require.NoError(t, err)

	return []*message.SignedMessage{genesis, keyAdmit, feedAdmit, envelope}
}

func requireKeys(t *testing.T, expected []keys.PublicKey, actual []keys.PublicKey) {
	t.Helper()
	require.Len(t, actual, len(expected))
	hexes := map[string]bool{}
	for _, k := range actual {
		hexes[k.Hex()] = true
	}
	for _, k := range expected {
		require.True(t, hexes[k.Hex()], "missing %s", k)
	}
}

func TestProcessScenario(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)

	var events []Event
	unsubscribe := ps.Subscribe(func(e Event) { events = append(events, e) })
	defer unsubscribe()

	require.NoError(ps.ProcessMessages(f.scenario(t)))

	requireKeys(t, []keys.PublicKey{f.identityA.PublicKey, f.identityB.PublicKey}, ps.MemberKeys())
	requireKeys(t, []keys.PublicKey{f.feedA.PublicKey, f.feedB.PublicKey}, ps.MemberFeeds())
	require.Len(ps.CredentialMessages(), 4)
	require.False(ps.IsMemberKey(f.device.PublicKey))
	require.False(ps.Keyring().HasKey(f.device.PublicKey))

	require.True(ps.GetAdmittedBy(f.identityA.PublicKey).Equal(f.partyKey()))
	require.True(ps.GetAdmittedBy(f.feedA.PublicKey).Equal(f.partyKey()))
	require.True(ps.GetAdmittedBy(f.identityB.PublicKey).Equal(f.identityA.PublicKey))
	require.True(ps.GetAdmittedBy(f.feedB.PublicKey).Equal(f.identityA.PublicKey))

	require.Equal("Alice", ps.IdentityProcessor().GetDisplayName(f.identityA.PublicKey))

	require.Len(events, 4)
	require.Equal(AdmitKey, events[0].Type)
	require.Equal(AdmitFeed, events[1].Type)
}

func TestProcessIdempotent(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)

	msgs := f.scenario(t)
	require.NoError(ps.ProcessMessages(msgs))

	events := 0
	ps.Subscribe(func(e Event) { events++ })

	require.NoError(ps.ProcessMessages(msgs[:2]))
	require.NoError(ps.ProcessMessages(msgs))
	require.Len(ps.MemberKeys(), 2)
	require.Len(ps.MemberFeeds(), 2)
	require.Len(ps.CredentialMessages(), 4)
	require.Zero(events)
}

func TestRejectWrongParty(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)
	require.NoError(ps.ProcessMessages(f.scenario(t)[:1]))

	other, err := f.kr.CreateKeyRecord(message.KeyTypeParty)
	require.NoError(err)
	intruder, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)

	admit, err := CreateKeyAdmitMessage(f.kr, other.PublicKey, intruder, []interface{}{f.identityA}, nil)
	require.NoError(err)

	err = ps.ProcessMessages([]*message.SignedMessage{admit})
	require.True(errors.Is(err, ErrWrongParty), "got %v", err)
	require.Len(ps.MemberKeys(), 1)
	require.Len(ps.MemberFeeds(), 1)
	require.False(ps.Keyring().HasKey(intruder.PublicKey))
}

func TestRejectMessageFromUnknownSource(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)
	require.NoError(ps.ProcessMessages(f.scenario(t)[:1]))

	stranger, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)
	intruder, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)

	bad, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), intruder, []interface{}{stranger}, nil)
	require.NoError(err)
	good, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), f.identityB, []interface{}{f.identityA}, nil)
	require.NoError(err)

	err = ps.ProcessMessages([]*message.SignedMessage{bad, good})
	require.True(errors.Is(err, ErrUntrusted), "got %v", err)
	require.False(ps.IsMemberKey(intruder.PublicKey))
	require.True(ps.IsMemberKey(f.identityB.PublicKey))
	require.Len(ps.MemberKeys(), 2)
}

func TestRejectForgedGenesis(t *testing.T) {
	f := newFixture(t)
	ps := f.state(t)

	// signed by everyone but the party key
	forged, err := f.kr.Sign(&message.PartyCredential{
		Type: message.PartyGenesis,
		PartyGenesis: &message.PartyGenesisBody{
			PartyKey:     f.partyKey(),
			AdmitKey:     f.identityA.PublicKey,
			AdmitKeyType: message.KeyTypeIdentity,
			FeedKey:      f.feedA.PublicKey,
		},
	}, []interface{}{f.feedA, f.identityA})
	if err != nil {
		t.Fatal(err)
	}

	if err := ps.ProcessMessages([]*message.SignedMessage{forged}); !errors.Is(err, ErrUntrusted) {
		t.Fatalf("expected ErrUntrusted, got %v", err)
	}
	if len(ps.MemberKeys()) != 0 || len(ps.MemberFeeds()) != 0 {
		t.Fatal("forged genesis admitted members")
	}
}

func TestEnvelope(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)
	require.NoError(ps.ProcessMessages(f.scenario(t)[:1]))

	invitee, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)

	// self-signed by the invitee, vouched for by A
	inner, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), invitee, nil, nil)
	require.NoError(err)
	envelope, err := CreateEnvelopeMessage(f.kr, f.partyKey(), inner, []interface{}{f.identityA})
	require.NoError(err)

	require.NoError(ps.ProcessMessages([]*message.SignedMessage{envelope}))
	require.True(ps.IsMemberKey(invitee.PublicKey))
	require.True(ps.GetAdmittedBy(invitee.PublicKey).Equal(f.identityA.PublicKey))
	require.Equal(envelope, ps.GetCredentialMessage(invitee.PublicKey))

	// the envelope itself must come from a member
	other, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)
	inner, err = CreateKeyAdmitMessage(f.kr, f.partyKey(), other, nil, nil)
	require.NoError(err)
	envelope, err = CreateEnvelopeMessage(f.kr, f.partyKey(), inner, []interface{}{other})
	require.NoError(err)
	err = ps.ProcessMessages([]*message.SignedMessage{envelope})
	require.True(errors.Is(err, ErrUntrusted), "got %v", err)

	// the inner admission must be signed by the admitted key
	inner, err = f.kr.Sign(&message.PartyCredential{
		Type: message.KeyAdmit,
		KeyAdmit: &message.KeyAdmitBody{
			PartyKey:     f.partyKey(),
			AdmitKey:     other.PublicKey,
			AdmitKeyType: message.KeyTypeIdentity,
		},
	}, []interface{}{f.identityA})
	require.NoError(err)
	envelope, err = CreateEnvelopeMessage(f.kr, f.partyKey(), inner, []interface{}{f.identityA})
	require.NoError(err)
	err = ps.ProcessMessages([]*message.SignedMessage{envelope})
	require.True(errors.Is(err, ErrNotSelfSigned), "got %v", err)

	// only admissions and envelopes may be wrapped
	genesis := f.scenario(t)[0]
	envelope, err = CreateEnvelopeMessage(f.kr, f.partyKey(), genesis, []interface{}{f.identityA})
	require.NoError(err)
	err = ps.ProcessMessages([]*message.SignedMessage{envelope})
	require.True(errors.Is(err, ErrInvalidEnvelope), "got %v", err)

	require.False(ps.IsMemberKey(other.PublicKey))
}

func TestTakeHints(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)

	var events []Event
	ps.Subscribe(func(e Event) { events = append(events, e) })

	require.NoError(ps.TakeHints([]message.KeyHint{
		{PublicKey: f.identityA.PublicKey, Type: message.KeyTypeIdentity},
		{PublicKey: f.feedA.PublicKey, Type: message.KeyTypeFeed},
	}))
	require.True(ps.IsMemberKey(f.identityA.PublicKey))
	require.True(ps.IsMemberFeed(f.feedA.PublicKey))
	require.True(ps.Keyring().GetKey(f.identityA.PublicKey).Hint)
	require.Nil(ps.GetAdmittedBy(f.identityA.PublicKey))
	require.Len(events, 2)

	// a hinted member can already admit others
	admit, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), f.identityB, []interface{}{f.identityA}, nil)
	require.NoError(err)
	require.NoError(ps.ProcessMessages([]*message.SignedMessage{admit}))
	require.True(ps.IsMemberKey(f.identityB.PublicKey))

	// the genesis confirms the hints
	events = nil
	require.NoError(ps.ProcessMessages(f.scenario(t)[:1]))
	require.Len(events, 2)
	require.Equal(UpdateKey, events[0].Type)
	require.Equal(UpdateKey, events[1].Type)
	require.False(ps.Keyring().GetKey(f.identityA.PublicKey).Hint)
	require.True(ps.GetAdmittedBy(f.identityA.PublicKey).Equal(f.partyKey()))
	require.Len(ps.MemberKeys(), 2)
}

func TestPartyInvitations(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)
	require.NoError(ps.ProcessMessages(f.scenario(t)[:1]))

	invitation, err := CreatePartyInvitationMessage(f.kr, f.partyKey(), f.identityB.PublicKey, f.identityA)
	require.NoError(err)
	require.NoError(ps.ProcessMessages([]*message.SignedMessage{invitation}))

	id := invitation.Payload().(*message.PartyInvitation).ID
	inv, ok := ps.InvitationManager().GetInvitation(id)
	require.True(ok)
	require.True(inv.InviteeKey.Equal(f.identityB.PublicKey))
	require.Len(ps.InvitationManager().Invitations(), 1)

	// an invitation from a stranger is ignored
	stranger, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)
	forged, err := CreatePartyInvitationMessage(f.kr, f.partyKey(), stranger.PublicKey, stranger)
	require.NoError(err)
	require.Error(ps.ProcessMessages([]*message.SignedMessage{forged}))
	require.Len(ps.InvitationManager().Invitations(), 1)

	// admitting the invitee retires the invitation
	admit, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), f.identityB, []interface{}{f.identityA}, nil)
	require.NoError(err)
	require.NoError(ps.ProcessMessages([]*message.SignedMessage{admit}))
	require.False(ps.InvitationManager().HasInvitation(id))
}

func TestIdentityInfoFromNonMember(t *testing.T) {
	f := newFixture(t)
	ps := f.state(t)
	if err := ps.ProcessMessages(f.scenario(t)[:1]); err != nil {
		t.Fatal(err)
	}

	info, err := CreateIdentityInfoMessage(f.kr, "Bob", f.identityB)
	if err != nil {
		t.Fatal(err)
	}
	if err := ps.ProcessMessages([]*message.SignedMessage{info}); !errors.Is(err, ErrUntrusted) {
		t.Fatalf("expected ErrUntrusted, got %v", err)
	}

	info, err = CreateIdentityInfoMessage(f.kr, "Alice", f.identityA)
	if err != nil {
		t.Fatal(err)
	}
	if err := ps.ProcessMessages([]*message.SignedMessage{info}); err != nil {
		t.Fatal(err)
	}
	if name := ps.IdentityProcessor().GetDisplayName(f.identityA.PublicKey); name != "Alice" {
		t.Fatalf("display name should be Alice, not %q", name)
	}
}

func TestRejectGenesisWithInvalidKey(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)

	genesis, err := f.kr.Sign(&message.PartyCredential{
		Type: message.PartyGenesis,
		PartyGenesis: &message.PartyGenesisBody{
			PartyKey:     f.partyKey(),
			AdmitKey:     f.identityA.PublicKey,
			AdmitKeyType: message.KeyTypeIdentity,
			FeedKey:      keys.PublicKey{1, 2, 3},
		},
	}, []interface{}{f.party, f.identityA})
	require.NoError(err)

	err = ps.ProcessMessages([]*message.SignedMessage{genesis})
	require.True(errors.Is(err, ErrMalformed), "got %v", err)

	// nothing of the rejected message is left behind
	require.Empty(ps.MemberKeys())
	require.Empty(ps.MemberFeeds())
	require.Empty(ps.CredentialMessages())
	require.Nil(ps.GetAdmittedBy(f.identityA.PublicKey))
	require.False(ps.Keyring().IsTrusted(f.identityA.PublicKey))

	// the valid genesis still goes through afterwards
	require.NoError(ps.ProcessMessages(f.scenario(t)[:1]))
	require.True(ps.IsMemberKey(f.identityA.PublicKey))
}

// nest wraps m in one envelope per signer, innermost first.
func (f *fixture) nest(t *testing.T, m *message.SignedMessage, signers ...*keyring.KeyRecord) *message.SignedMessage {
	for _, s := range signers {
		var err error
		m, err = CreateEnvelopeMessage(f.kr, f.partyKey(), m, []interface{}{s})
		require.NoError(t, err)
	}
	return m
}

func TestNestedEnvelope(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)
	require.NoError(ps.ProcessMessages(f.scenario(t)[:2]))

	invitee, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)
	inner, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), invitee, nil, nil)
	require.NoError(err)

	// B vouches for the invitee, A relays B's envelope
	outer := f.nest(t, inner, f.identityB, f.identityA)
	require.NoError(ps.ProcessMessages([]*message.SignedMessage{outer}))
	require.True(ps.IsMemberKey(invitee.PublicKey))
	require.True(ps.GetAdmittedBy(invitee.PublicKey).Equal(f.identityB.PublicKey))
	require.Equal(outer, ps.GetCredentialMessage(invitee.PublicKey))
}

func TestNestedEnvelopeUntrustedLayer(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)
	require.NoError(ps.ProcessMessages(f.scenario(t)[:2]))

	invitee, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)
	stranger, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)
	inner, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), invitee, nil, nil)
	require.NoError(err)

	// the outer layer is trusted but the stranger's inner layer is not
	outer := f.nest(t, inner, stranger, f.identityA)
	err = ps.ProcessMessages([]*message.SignedMessage{outer})
	require.True(errors.Is(err, ErrUntrusted), "got %v", err)
	require.False(ps.IsMemberKey(invitee.PublicKey))
	require.Len(ps.MemberKeys(), 2)
}

func TestEnvelopeDepthLimit(t *testing.T) {
	require := require.New(t)
	f := newFixture(t)
	ps := f.state(t)
	require.NoError(ps.ProcessMessages(f.scenario(t)[:1]))

	layers := func(n int) []*keyring.KeyRecord {
		signers := make([]*keyring.KeyRecord, n)
		for i := range signers {
			signers[i] = f.identityA
		}
		return signers
	}

	deep, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(err)
	inner, err := CreateKeyAdmitMessage(f.kr, f.partyKey(), deep, nil, nil)
	require.NoError(err)

	err = ps.ProcessMessages([]*message.SignedMessage{f.nest(t, inner, layers(maxEnvelopeDepth+1)...)})
	require.True(errors.Is(err, ErrInvalidEnvelope), "got %v", err)
	require.False(ps.IsMemberKey(deep.PublicKey))

	require.NoError(ps.ProcessMessages([]*message.SignedMessage{f.nest(t, inner, layers(maxEnvelopeDepth)...)}))
	require.True(ps.IsMemberKey(deep.PublicKey))
}
