package wamp

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/greet"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type handler struct {
	from string
}

func (h *handler) HandleMessage(cmd *message.Command, peerID string) (message.Message, error) {
	h.from = peerID
	switch cmd.Command {
	case message.Handshake:
		return &message.HandshakeResponse{Nonce: common.HexBytes("nonce")}, nil
	default:
		return nil, greet.ErrInvalidState
	}
}

func TestWamp(t *testing.T) {
	server, err := NewServer("localhost:0", "party", "", "", common.NewTestEntry(t, "wamp"))
	require.NoError(t, err)
	defer server.Shutdown()

	rendezvous, err := keys.GenerateKeyPair()
	require.NoError(t, err)

	calleeClient, err := server.ConnectLocal()
	require.NoError(t, err)
	h := &handler{}
	responder := NewResponder(calleeClient, h, common.NewTestEntry(t, "responder"))
	defer responder.Close()
	require.NoError(t, responder.Listen(rendezvous.PublicKey))

	callerClient, err := server.ConnectLocal()
	require.NoError(t, err)
	defer callerClient.Close()

	transport := NewTransport(callerClient, rendezvous.PublicKey, "caller", time.Second)

	resp, err := transport.Call(context.Background(), &message.Command{
		Command:    message.Handshake,
		Invitation: common.HexBytes("id"),
		Secret:     common.HexBytes("secret"),
	})
	require.NoError(t, err)
	hs, ok := resp.(*message.HandshakeResponse)
	require.True(t, ok)
	assert.Equal(t, common.HexBytes("nonce"), hs.Nonce)
	assert.Equal(t, "caller", h.from)

	_, err = transport.Call(context.Background(), &message.Command{Command: message.Finish})
	assert.True(t, errors.Is(err, greet.ErrInvalidState))

	// nothing is registered under another rendezvous key
	other, err := keys.GenerateKeyPair()
	require.NoError(t, err)
	_, err = NewTransport(callerClient, other.PublicKey, "caller", time.Second).
		Call(context.Background(), &message.Command{Command: message.Begin})
	assert.Error(t, err)

	require.NoError(t, responder.Stop(rendezvous.PublicKey))
	_, err = transport.Call(context.Background(), &message.Command{Command: message.Begin})
	assert.Error(t, err)
}
