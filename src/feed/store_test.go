package feed

import (
	"testing"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func infoMessages(t *testing.T, n int) []*message.SignedMessage {
	kr := keyring.NewKeyring(nil, 0, common.NewTestEntry(t, "keyring"))
	identity, err := kr.CreateKeyRecord(message.KeyTypeIdentity)
	require.NoError(t, err)

	var res []*message.SignedMessage
	for i := 0; i < n; i++ {
		m, err := kr.Sign(&message.IdentityInfo{
			PublicKey:   identity.PublicKey,
			DisplayName: string(rune('a' + i)),
		}, []interface{}{identity})
		require.NoError(t, err)
		res = append(res, m)
	}
	return res
}

func displayNames(msgs []*message.SignedMessage) []string {
	var res []string
	for _, m := range msgs {
		res = append(res, m.Payload().(*message.IdentityInfo).DisplayName)
	}
	return res
}

func testStore(t *testing.T, s Store, msgs []*message.SignedMessage) {
	require.Equal(t, 0, s.Len())

	require.NoError(t, s.Append(msgs[:2]...))
	require.NoError(t, s.Append(msgs[2:]...))
	assert.Equal(t, len(msgs), s.Len())

	all, err := s.Messages(0)
	require.NoError(t, err)
	assert.Equal(t, displayNames(msgs), displayNames(all))

	tail, err := s.Messages(3)
	require.NoError(t, err)
	assert.Equal(t, displayNames(msgs[3:]), displayNames(tail))

	none, err := s.Messages(len(msgs))
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = s.Messages(len(msgs) + 1)
	assert.Error(t, err)
	_, err = s.Messages(-1)
	assert.Error(t, err)
}

func TestInmemStore(t *testing.T) {
	testStore(t, NewInmemStore(), infoMessages(t, 5))
}

func TestBadgerStore(t *testing.T) {
	dir := t.TempDir()
	msgs := infoMessages(t, 5)

	s, err := NewBadgerStore(dir, common.NewTestEntry(t, "feed"))
	require.NoError(t, err)
	testStore(t, s, msgs)
	require.NoError(t, s.Close())

	// reopen and check that the log survived, signatures included
	s, err = NewBadgerStore(dir, common.NewTestEntry(t, "feed"))
	require.NoError(t, err)
	defer s.Close()

	assert.Equal(t, len(msgs), s.Len())
	all, err := s.Messages(0)
	require.NoError(t, err)
	assert.Equal(t, displayNames(msgs), displayNames(all))

	kr := keyring.NewKeyring(nil, 0, common.NewTestEntry(t, "verify"))
	for _, m := range all {
		assert.True(t, kr.ValidateSignatures(m))
	}

	// appends continue after the reloaded tail
	require.NoError(t, s.Append(msgs[0]))
	assert.Equal(t, len(msgs)+1, s.Len())
}
