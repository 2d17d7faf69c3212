package auth

import (
	"testing"
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/mosaicnetworks/party/src/party"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type authFixture struct {
	kr       *keyring.Keyring
	party    *keyring.KeyRecord
	identity *keyring.KeyRecord
	device   *keyring.KeyRecord
	chain    *message.KeyChain
	state    *party.PartyState
	clock    *common.ManualClock
}

func newAuthFixture(t *testing.T) *authFixture {
	require := require.New(t)

	kr := keyring.NewKeyring(nil, 0, common.NewTestEntry(t, "generator"))
	create := func(kt message.KeyType) *keyring.KeyRecord {
		r, err := kr.CreateKeyRecord(kt)
		require.NoError(err)
		return r
	}
	f := &authFixture{
		kr:       kr,
		party:    create(message.KeyTypeParty),
		identity: create(message.KeyTypeIdentity),
		device:   create(message.KeyTypeDevice),
		clock:    common.NewManualClock(time.Now()),
	}

	feed, err := keys.GenerateKeyPair()
	require.NoError(err)
	genesis, err := party.CreatePartyGenesisMessage(kr, f.party, feed, f.identity)
	require.NoError(err)

	f.state, err = party.NewPartyState(f.party.PublicKey, nil, common.NewTestEntry(t, "party"))
	require.NoError(err)
	require.NoError(f.state.ProcessMessages([]*message.SignedMessage{genesis}))

	admit, err := party.CreateKeyAdmitMessage(kr, f.identity.PublicKey, f.device, []interface{}{f.identity}, nil)
	require.NoError(err)
	f.chain, err = kr.BuildKeyChain(f.device.PublicKey, map[string]*message.SignedMessage{
		f.device.Hex(): admit,
	}, nil)
	require.NoError(err)

	return f
}

func (f *authFixture) authenticator(t *testing.T, reg prometheus.Registerer) *Authenticator {
	opts := Options{
		Clock:  f.clock,
		Logger: common.NewTestEntry(t, "auth"),
	}
	if reg != nil {
		opts.Metrics = NewMetrics(reg)
	}
	return NewAuthenticator(f.state, opts)
}

// credentials signs an Auth message with the device chain, created at the
// given time.
func (f *authFixture) credentials(t *testing.T, partyKey keys.PublicKey, created time.Time) *message.SignedMessage {
	msg, err := f.kr.SignWithOptions(&message.Auth{
		PartyKey:    partyKey,
		DeviceKey:   f.device.PublicKey,
		IdentityKey: f.identity.PublicKey,
	}, []interface{}{f.chain}, keyring.SignOptions{Created: created})
	require.NoError(t, err)
	return msg
}

func TestAuthenticate(t *testing.T) {
	f := newAuthFixture(t)

	var authenticated []*message.Auth
	reg := prometheus.NewRegistry()
	a := f.authenticator(t, reg)
	a.onAuthenticated = func(auth *message.Auth) {
		authenticated = append(authenticated, auth)
	}

	creds, err := party.CreateAuthMessage(f.kr, f.party.PublicKey, f.identity, f.chain, keys.PublicKey{})
	require.NoError(t, err)
	assert.True(t, a.Authenticate(creds))

	require.Len(t, authenticated, 1)
	assert.True(t, authenticated[0].DeviceKey.Equal(f.device.PublicKey))
	assert.Equal(t, 1.0, testutil.ToFloat64(a.metrics.attempts.WithLabelValues("ok")))
}

func TestAuthenticateRejects(t *testing.T) {
	f := newAuthFixture(t)
	a := f.authenticator(t, prometheus.NewRegistry())
	now := f.clock.Now()

	stranger, err := f.kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(t, err)

	info, err := party.CreateIdentityInfoMessage(f.kr, "alice", f.identity)
	require.NoError(t, err)

	unparsable := f.credentials(t, f.party.PublicKey, now)
	unparsable.Signed.Created = "yesterday"

	tampered := f.credentials(t, f.party.PublicKey, now)
	tampered.Payload().(*message.Auth).DeviceKey = stranger.PublicKey

	untrusted, err := f.kr.SignWithOptions(&message.Auth{
		PartyKey:    f.party.PublicKey,
		DeviceKey:   stranger.PublicKey,
		IdentityKey: stranger.PublicKey,
	}, []interface{}{stranger}, keyring.SignOptions{Created: now})
	require.NoError(t, err)

	cases := []struct {
		name        string
		credentials *message.SignedMessage
	}{
		{"missing", nil},
		{"unsigned", &message.SignedMessage{}},
		{"not auth", info},
		{"unparsable", unparsable},
		{"too old", f.credentials(t, f.party.PublicKey, now.Add(-25*time.Hour))},
		{"future", f.credentials(t, f.party.PublicKey, now.Add(25*time.Hour))},
		{"wrong party", f.credentials(t, stranger.PublicKey, now)},
		{"tampered", tampered},
		{"untrusted", untrusted},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			assert.False(t, a.Authenticate(c.credentials))
		})
	}
	assert.Equal(t, float64(len(cases)), testutil.ToFloat64(a.metrics.attempts.WithLabelValues("rejected")))
}

func TestReplayWindowEdges(t *testing.T) {
	f := newAuthFixture(t)
	a := f.authenticator(t, nil)
	now := f.clock.Now()

	assert.True(t, a.Authenticate(f.credentials(t, f.party.PublicKey, now.Add(-23*time.Hour))))
	assert.True(t, a.Authenticate(f.credentials(t, f.party.PublicKey, now.Add(23*time.Hour))))

	creds := f.credentials(t, f.party.PublicKey, now)
	f.clock.Advance(DefaultReplayWindow + time.Minute)
	assert.False(t, a.Authenticate(creds))
}

type fakeSession struct {
	info      SessionInfo
	destroyed bool
}

func (s *fakeSession) GetSession() SessionInfo { return s.info }

func (s *fakeSession) Destroy() { s.destroyed = true }

func TestAuthPlugin(t *testing.T) {
	f := newAuthFixture(t)
	plugin := NewAuthPlugin(f.authenticator(t, nil))

	creds, err := EncodeCredentials(f.credentials(t, f.party.PublicKey, f.clock.Now()))
	require.NoError(t, err)
	stale, err := EncodeCredentials(f.credentials(t, f.party.PublicKey, f.clock.Now().Add(-48*time.Hour)))
	require.NoError(t, err)

	t.Run("accepted", func(t *testing.T) {
		s := &fakeSession{info: SessionInfo{Credentials: creds, PeerID: f.device.PublicKey}}
		assert.True(t, plugin.HandleSession(s))
		assert.False(t, s.destroyed)
	})

	rejected := []struct {
		name string
		info SessionInfo
	}{
		{"no credentials", SessionInfo{PeerID: f.device.PublicKey}},
		{"not base64", SessionInfo{Credentials: "%%%", PeerID: f.device.PublicKey}},
		{"not a message", SessionInfo{Credentials: "bm90IGpzb24=", PeerID: f.device.PublicKey}},
		{"stale", SessionInfo{Credentials: stale, PeerID: f.device.PublicKey}},
		{"wrong peer", SessionInfo{Credentials: creds, PeerID: f.identity.PublicKey}},
	}
	for _, c := range rejected {
		t.Run(c.name, func(t *testing.T) {
			s := &fakeSession{info: c.info}
			assert.False(t, plugin.HandleSession(s))
			assert.True(t, s.destroyed)
		})
	}
}
