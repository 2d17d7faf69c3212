package mobile

import (
	"encoding/json"
	"sync"
	"testing"

	"github.com/mosaicnetworks/party/src/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recorder struct {
	sync.Mutex
	identities []string
	exceptions []string
}

func (r *recorder) OnAuthenticated(identity string) {
	r.Lock()
	defer r.Unlock()
	r.identities = append(r.identities, identity)
}

func (r *recorder) OnException(msg string) {
	r.Lock()
	defer r.Unlock()
	r.exceptions = append(r.exceptions, msg)
}

func newTestNode(t *testing.T, rec *recorder) *Node {
	conf := DefaultMobileConfig()
	conf.Store = false
	conf.Moniker = "alice"

	n := New(t.TempDir(), rec, rec, conf)
	require.NotNil(t, n, "exceptions: %v", rec.exceptions)
	t.Cleanup(n.Shutdown)
	return n
}

func TestMobileParty(t *testing.T) {
	rec := new(recorder)
	n := newTestNode(t, rec)

	assert.Equal(t, "", n.PartyKey())
	assert.Equal(t, "[]", n.GetMembers())

	require.NoError(t, n.CreateParty())
	assert.NotEqual(t, "", n.PartyKey())

	identity, err := n.Identity()
	require.NoError(t, err)

	var members []service.Member
	require.NoError(t, json.Unmarshal([]byte(n.GetMembers()), &members))
	found := false
	for _, m := range members {
		if m.PublicKey.Hex() == identity {
			found = true
			assert.Equal(t, "alice", m.DisplayName)
		}
	}
	assert.True(t, found, "identity is not a member")

	res, err := n.Invite()
	require.NoError(t, err)
	var inv Invitation
	require.NoError(t, json.Unmarshal([]byte(res), &inv))
	assert.NotEmpty(t, inv.Code)
	assert.Len(t, inv.PIN, 6)
}

func TestMobileCredentials(t *testing.T) {
	rec := new(recorder)
	n := newTestNode(t, rec)
	require.NoError(t, n.CreateParty())

	credentials, err := n.Credentials()
	require.NoError(t, err)

	assert.True(t, n.Authenticate(credentials))
	assert.False(t, n.Authenticate("not base64!"))

	identity, err := n.Identity()
	require.NoError(t, err)

	rec.Lock()
	defer rec.Unlock()
	assert.Equal(t, []string{identity}, rec.identities)
	assert.Empty(t, rec.exceptions)
}

func TestMobileNoParty(t *testing.T) {
	rec := new(recorder)
	n := newTestNode(t, rec)

	_, err := n.Invite()
	assert.Error(t, err)

	_, err = n.Credentials()
	assert.Error(t, err)

	_, err = n.InviteMember("zz")
	assert.Error(t, err)
}
