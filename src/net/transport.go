package net

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mosaicnetworks/party/src/greet"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

// Handler answers greeting commands sent by peerID.
type Handler interface {
	HandleMessage(cmd *message.Command, peerID string) (message.Message, error)
}

// Serve answers the RPCs read from consumer with h until ctx is cancelled or
// consumer is closed.
func Serve(ctx context.Context, consumer <-chan RPC, h Handler, logger *logrus.Entry) {
	for {
		select {
		case <-ctx.Done():
			return
		case rpc, ok := <-consumer:
			if !ok {
				return
			}
			resp, err := h.HandleMessage(rpc.Command, rpc.PeerID)
			if err != nil {
				logger.WithFields(logrus.Fields{
					"peer":    rpc.PeerID,
					"command": rpc.Command.Command,
				}).WithError(err).Debug("Greeting command failed")
			}
			rpc.Respond(resp, err)
		}
	}
}

// Reply is the encoding of a response, or of the error that replaced it, on
// transports that serialize them.
type Reply struct {
	Response *message.Any `json:"response,omitempty"`
	Error    *greet.Error `json:"error,omitempty"`
}

// EncodeReply serializes the outcome of a command. Errors that are not greeting
// errors are reported as internal errors.
func EncodeReply(resp message.Message, err error) ([]byte, error) {
	var r Reply
	switch {
	case err != nil:
		var gerr *greet.Error
		if !errors.As(err, &gerr) {
			gerr = &greet.Error{Code: greet.ErrorInternal, Message: err.Error()}
		}
		r.Error = gerr
	case resp != nil:
		a := message.NewAny(resp)
		r.Response = &a
	default:
		return nil, fmt.Errorf("empty reply")
	}
	return json.Marshal(r)
}

// DecodeReply is the inverse of EncodeReply.
func DecodeReply(data []byte) (message.Message, error) {
	var r Reply
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	if r.Error != nil {
		return nil, r.Error
	}
	if r.Response == nil || r.Response.Message == nil {
		return nil, fmt.Errorf("reply has neither response nor error")
	}
	return r.Response.Message, nil
}
