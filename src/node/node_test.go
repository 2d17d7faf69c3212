package node

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mosaicnetworks/party/src/config"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/greet"
	"github.com/mosaicnetworks/party/src/message"
	pnet "github.com/mosaicnetworks/party/src/net"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestNode(t *testing.T, moniker string, store bool) *Node {
	conf := config.NewTestConfig(t)
	conf.Moniker = moniker
	conf.Store = store
	return initTestNode(t, conf)
}

func initTestNode(t *testing.T, conf *config.Config) *Node {
	n := NewNode(conf)
	require.NoError(t, n.Init())
	t.Cleanup(n.Shutdown)
	return n
}

// serve exposes the greeting handler of n on an in-memory transport and
// returns a Dialer reaching it from a second transport.
func serve(t *testing.T, n *Node) Dialer {
	addr, server := pnet.NewInmemTransport("", time.Second)
	_, caller := pnet.NewInmemTransport("", time.Second)
	caller.Connect(addr, server)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go pnet.Serve(ctx, server.Consumer(), n.Handler(), n.logger)

	return func(rendezvous keys.PublicKey) (greet.Transport, error) {
		if !rendezvous.Equal(n.RendezvousKey()) {
			return nil, errors.New("unknown rendezvous key")
		}
		return caller.Dial(addr), nil
	}
}

func TestCreateParty(t *testing.T) {
	n := newTestNode(t, "alice", false)
	require.Nil(t, n.State)

	require.NoError(t, n.CreateParty())
	assert.Equal(t, ErrHasParty, n.CreateParty())

	identity, err := n.Identity()
	require.NoError(t, err)

	assert.Equal(t, []keys.PublicKey{identity.PublicKey}, n.State.MemberKeys())
	assert.Len(t, n.State.MemberFeeds(), 1)
	assert.Equal(t, "alice", n.State.IdentityProcessor().GetDisplayName(identity.PublicKey))
	assert.Equal(t, 2, n.Feed.Len())

	// the party key cannot sign anymore
	assert.False(t, n.Keyring.HasSecretKey(n.PartyKey()))
}

func TestInteractiveJoin(t *testing.T) {
	alice := newTestNode(t, "alice", false)
	require.NoError(t, alice.CreateParty())
	dial := serve(t, alice)

	desc, pin, err := alice.Invite()
	require.NoError(t, err)
	assert.Len(t, pin, pinDigits)

	// the descriptor travels out of band
	code, err := desc.Encode()
	require.NoError(t, err)
	desc, err = greet.DecodeInvitationDescriptor(code)
	require.NoError(t, err)

	bob := newTestNode(t, "bob", false)
	ctx := context.Background()

	assert.True(t, errors.Is(bob.Join(ctx, desc, []byte("000000x"), dial), greet.ErrInvalidSecret))

	desc2, pin2, err := alice.Invite()
	require.NoError(t, err)
	require.NoError(t, bob.Join(ctx, desc2, pin2, dial))
	assert.Equal(t, ErrHasParty, bob.Join(ctx, desc2, pin2, dial))

	bobIdentity, err := bob.Identity()
	require.NoError(t, err)
	aliceIdentity, err := alice.Identity()
	require.NoError(t, err)

	// both sides agree on membership
	assert.True(t, alice.State.IsMemberKey(bobIdentity.PublicKey))
	assert.True(t, alice.State.GetAdmittedBy(bobIdentity.PublicKey).Equal(aliceIdentity.PublicKey))
	assert.True(t, bob.PartyKey().Equal(alice.PartyKey()))
	assert.True(t, bob.State.IsMemberKey(aliceIdentity.PublicKey))
	assert.True(t, bob.State.IsMemberKey(bobIdentity.PublicKey))
	assert.ElementsMatch(t, alice.State.MemberFeeds(), bob.State.MemberFeeds())
	assert.Equal(t, "bob", bob.State.IdentityProcessor().GetDisplayName(bobIdentity.PublicKey))

	// bob's credentials are accepted by alice
	creds, err := bob.Credentials()
	require.NoError(t, err)
	assert.True(t, alice.Authenticate(creds))

	// a stranger's are not
	carol := newTestNode(t, "carol", false)
	_, err = carol.Credentials()
	assert.Equal(t, ErrNoParty, err)
}

func TestClaimJoin(t *testing.T) {
	alice := newTestNode(t, "alice", false)
	require.NoError(t, alice.CreateParty())
	dial := serve(t, alice)

	bob := newTestNode(t, "", false)
	bobIdentity, err := bob.Identity()
	require.NoError(t, err)

	desc, err := alice.InviteMember(bobIdentity.PublicKey)
	require.NoError(t, err)
	assert.Len(t, alice.State.InvitationManager().Invitations(), 1)

	// carol cannot redeem bob's invitation
	carol := newTestNode(t, "", false)
	assert.Error(t, carol.Join(context.Background(), desc, nil, dial))

	require.NoError(t, bob.Join(context.Background(), desc, nil, dial))
	assert.True(t, alice.State.IsMemberKey(bobIdentity.PublicKey))
	assert.Empty(t, alice.State.InvitationManager().Invitations())

	// the party invitation is spent
	_, err = greet.NewInitiator(mustDial(t, dial, desc.SwarmKey), nil).Claim(context.Background(), desc.Invitation)
	assert.True(t, errors.Is(err, greet.ErrInvalidInvitation))
}

func mustDial(t *testing.T, dial Dialer, key keys.PublicKey) greet.Transport {
	tr, err := dial(key)
	require.NoError(t, err)
	return tr
}

func TestNoPartyHandler(t *testing.T) {
	n := newTestNode(t, "", false)
	_, err := n.Handler().HandleMessage(&message.Command{Command: message.Begin}, "peer")
	assert.True(t, errors.Is(err, greet.ErrInvalidInvitation))
	_, _, err = n.Invite()
	assert.Equal(t, ErrNoParty, err)
	assert.Equal(t, ErrNoParty, n.Run())
}

func TestReload(t *testing.T) {
	conf := config.NewTestConfig(t)
	conf.Moniker = "alice"
	conf.Store = true

	alice := NewNode(conf)
	require.NoError(t, alice.Init())
	require.NoError(t, alice.CreateParty())
	dial := serve(t, alice)

	bob := newTestNode(t, "bob", false)
	desc, pin, err := alice.Invite()
	require.NoError(t, err)
	require.NoError(t, bob.Join(context.Background(), desc, pin, dial))

	members := alice.State.MemberKeys()
	feeds := alice.State.MemberFeeds()
	rendezvous := alice.RendezvousKey()
	alice.Shutdown()

	reloaded := initTestNode(t, conf)
	require.NotNil(t, reloaded.State)
	assert.Equal(t, members, reloaded.State.MemberKeys())
	assert.Equal(t, feeds, reloaded.State.MemberFeeds())
	assert.True(t, reloaded.RendezvousKey().Equal(rendezvous))

	creds, err := bob.Credentials()
	require.NoError(t, err)
	assert.True(t, reloaded.Authenticate(creds))
}
