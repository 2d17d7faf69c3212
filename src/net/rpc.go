package net

import (
	"github.com/mosaicnetworks/party/src/message"
)

// RPCResponse captures both a response and a potential error.
type RPCResponse struct {
	Response message.Message
	Error    error
}

// RPC encapsulates a greeting command and provides a response mechanism.
type RPC struct {
	Command  *message.Command
	PeerID   string
	RespChan chan<- RPCResponse
}

// Respond is used to respond with a response, error or both.
func (r *RPC) Respond(resp message.Message, err error) {
	r.RespChan <- RPCResponse{resp, err}
}
