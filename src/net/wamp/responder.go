package wamp

import (
	"context"
	"fmt"

	"github.com/gammazero/nexus/v3/client"
	"github.com/gammazero/nexus/v3/wamp"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
	pnet "github.com/mosaicnetworks/party/src/net"
	"github.com/sirupsen/logrus"
)

// Responder answers the greeting commands sent to the rendezvous keys it
// listens on.
type Responder struct {
	client  *client.Client
	handler pnet.Handler
	logger  *logrus.Entry
}

// NewResponder creates a Responder forwarding commands to handler.
func NewResponder(cli *client.Client, handler pnet.Handler, logger *logrus.Entry) *Responder {
	return &Responder{
		client:  cli,
		handler: handler,
		logger:  logger,
	}
}

// Listen registers the procedure of rendezvous within the WAMP router.
func (r *Responder) Listen(rendezvous keys.PublicKey) error {
	proc := Procedure(rendezvous)
	if err := r.client.Register(proc, r.callHandler, nil); err != nil {
		r.logger.WithError(err).Error("Failed to register procedure")
		return err
	}
	r.logger.WithField("procedure", proc).Debug("Registered procedure with router")
	return nil
}

// Stop unregisters the procedure of rendezvous.
func (r *Responder) Stop(rendezvous keys.PublicKey) error {
	return r.client.Unregister(Procedure(rendezvous))
}

// Close closes the connection to the WAMP server
func (r *Responder) Close() error {
	return r.client.Close()
}

// callHandler is called when a command is received from the router.
func (r *Responder) callHandler(ctx context.Context, inv *wamp.Invocation) client.InvokeResult {
	if len(inv.Arguments) != 2 {
		return errResult(
			fmt.Sprintf("Invocation should contain 2 arguments, not %d", len(inv.Arguments)))
	}

	from, ok := wamp.AsString(inv.Arguments[0])
	if !ok {
		return errResult("Error reading invocation first argument")
	}

	raw, ok := wamp.AsString(inv.Arguments[1])
	if !ok {
		return errResult("Error reading invocation second argument")
	}

	decoded, err := message.Decode([]byte(raw))
	if err != nil {
		return errResult(fmt.Sprintf("Error parsing command: %v", err))
	}
	cmd, ok := decoded.(*message.Command)
	if !ok {
		return errResult(fmt.Sprintf("Expected a command, got %s", decoded.TypeURL()))
	}

	resp, err := r.handler.HandleMessage(cmd, from)
	if err != nil {
		r.logger.WithFields(logrus.Fields{
			"peer":    from,
			"command": cmd.Command,
		}).WithError(err).Debug("Greeting command failed")
	}

	reply, err := pnet.EncodeReply(resp, err)
	if err != nil {
		return errResult(fmt.Sprintf("Error encoding reply: %v", err))
	}

	return client.InvokeResult{
		Args: wamp.List{string(reply)},
	}
}

func errResult(msg string) client.InvokeResult {
	return client.InvokeResult{
		Err:  ErrProcessingCommand,
		Args: wamp.List{msg},
	}
}
