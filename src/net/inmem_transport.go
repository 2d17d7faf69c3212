package net

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/party/src/message"
)

// NewInmemAddr returns a new in-memory addr with
// a randomly generate UUID as the ID.
func NewInmemAddr() string {
	return generateUUID()
}

// generateUUID is used to generate a random UUID.
func generateUUID() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		panic(fmt.Errorf("failed to read random bytes: %v", err))
	}

	return fmt.Sprintf("%08x-%04x-%04x-%04x-%12x",
		buf[0:4],
		buf[4:6],
		buf[6:8],
		buf[8:10],
		buf[10:16])
}

// InmemTransport carries greeting commands between peers of the same process.
// Commands sent to it are read from Consumer, usually by Serve.
type InmemTransport struct {
	sync.RWMutex
	consumerCh chan RPC
	localAddr  string
	peers      map[string]*InmemTransport
	timeout    time.Duration
}

// NewInmemTransport is used to initialize a new transport
// and generates a random local address if none is specified
func NewInmemTransport(addr string, timeout time.Duration) (string, *InmemTransport) {
	if addr == "" {
		addr = NewInmemAddr()
	}
	if timeout <= 0 {
		timeout = time.Second
	}
	trans := &InmemTransport{
		consumerCh: make(chan RPC, 16),
		localAddr:  addr,
		peers:      make(map[string]*InmemTransport),
		timeout:    timeout,
	}
	return addr, trans
}

// Consumer returns the channel of incoming commands.
func (i *InmemTransport) Consumer() <-chan RPC {
	return i.consumerCh
}

// LocalAddr returns the address peers use to reach this transport.
func (i *InmemTransport) LocalAddr() string {
	return i.localAddr
}

// Dial returns a greet.Transport sending commands to target.
func (i *InmemTransport) Dial(target string) *InmemClient {
	return &InmemClient{transport: i, target: target}
}

func (i *InmemTransport) makeRPC(ctx context.Context, target string, cmd *message.Command) (message.Message, error) {
	i.RLock()
	peer, ok := i.peers[target]
	i.RUnlock()

	if !ok {
		return nil, fmt.Errorf("failed to connect to peer: %v", target)
	}

	ctx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	// Send the RPC over
	respCh := make(chan RPCResponse, 1)
	rpc := RPC{
		Command:  cmd,
		PeerID:   i.localAddr,
		RespChan: respCh,
	}
	select {
	case peer.consumerCh <- rpc:
	case <-ctx.Done():
		return nil, fmt.Errorf("command timed out")
	}

	// Wait for a response
	select {
	case resp := <-respCh:
		return resp.Response, resp.Error
	case <-ctx.Done():
		return nil, fmt.Errorf("command timed out")
	}
}

// Connect is used to connect this transport to another transport for
// a given peer name. This allows for local routing.
func (i *InmemTransport) Connect(peer string, t *InmemTransport) {
	i.Lock()
	defer i.Unlock()
	i.peers[peer] = t
}

// Disconnect is used to remove the ability to route to a given peer.
func (i *InmemTransport) Disconnect(peer string) {
	i.Lock()
	defer i.Unlock()
	delete(i.peers, peer)
}

// DisconnectAll is used to remove all routes to peers.
func (i *InmemTransport) DisconnectAll() {
	i.Lock()
	defer i.Unlock()
	i.peers = make(map[string]*InmemTransport)
}

// Close is used to permanently disable the transport
func (i *InmemTransport) Close() error {
	i.DisconnectAll()
	return nil
}

// InmemClient is the greet.Transport of an InmemTransport bound to one peer.
type InmemClient struct {
	transport *InmemTransport
	target    string
}

// Call sends cmd to the peer and waits for its response.
func (c *InmemClient) Call(ctx context.Context, cmd *message.Command) (message.Message, error) {
	return c.transport.makeRPC(ctx, c.target, cmd)
}
