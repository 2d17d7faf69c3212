package greet

import (
	"context"
	"fmt"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

// Transport carries greeting commands to a Greeter and brings back the
// response. Errors returned by the Greeter come back as *Error.
type Transport interface {
	Call(ctx context.Context, cmd *message.Command) (message.Message, error)
}

// SecretFunc returns the secret to present once BEGIN has succeeded.
type SecretFunc func(begin *message.BeginResponse) ([]byte, error)

// AdmitFunc returns the admission messages to notarize. Each must carry
// handshake.Nonce as its nonce.
type AdmitFunc func(handshake *message.HandshakeResponse) ([]*message.SignedMessage, error)

// Initiator is the invitee side of the greeting protocol.
type Initiator struct {
	transport Transport
	logger    *logrus.Entry
}

// NewInitiator creates an Initiator talking through transport.
func NewInitiator(transport Transport, logger *logrus.Entry) *Initiator {
	if logger == nil {
		logger = common.DiscardEntry()
	}
	return &Initiator{
		transport: transport,
		logger:    logger.WithField("prefix", "initiator"),
	}
}

// Claim exchanges the id of a PartyInvitation for a live invitation.
func (i *Initiator) Claim(ctx context.Context, partyInvitationID []byte) (*message.ClaimResponse, error) {
	res := new(message.ClaimResponse)
	err := i.call(ctx, &message.Command{
		Command:    message.Claim,
		Invitation: partyInvitationID,
	}, res)
	return res, err
}

// Begin opens the session.
func (i *Initiator) Begin(ctx context.Context, id []byte) (*message.BeginResponse, error) {
	res := new(message.BeginResponse)
	err := i.call(ctx, &message.Command{
		Command:    message.Begin,
		Invitation: id,
	}, res)
	return res, err
}

// Handshake retrieves the party key and the session nonce.
func (i *Initiator) Handshake(ctx context.Context, id, secret []byte) (*message.HandshakeResponse, error) {
	res := new(message.HandshakeResponse)
	err := i.call(ctx, &message.Command{
		Command:    message.Handshake,
		Invitation: id,
		Secret:     secret,
	}, res)
	return res, err
}

// Notarize submits admission messages.
func (i *Initiator) Notarize(ctx context.Context, id, secret []byte, msgs []*message.SignedMessage) (*message.NotarizeResponse, error) {
	params := make([]message.Any, 0, len(msgs))
	for _, m := range msgs {
		params = append(params, message.NewAny(m))
	}
	res := new(message.NotarizeResponse)
	err := i.call(ctx, &message.Command{
		Command:    message.Notarize,
		Invitation: id,
		Secret:     secret,
		Params:     params,
	}, res)
	return res, err
}

// Finish closes the session.
func (i *Initiator) Finish(ctx context.Context, id, secret []byte) error {
	return i.call(ctx, &message.Command{
		Command:    message.Finish,
		Invitation: id,
		Secret:     secret,
	}, new(message.FinishResponse))
}

// Redeem runs a whole session on invitation id. The session is finished even
// when notarization fails, so that the invitation cannot be reused.
func (i *Initiator) Redeem(ctx context.Context, id []byte, secretFn SecretFunc, admitFn AdmitFunc) (*message.NotarizeResponse, error) {
	begin, err := i.Begin(ctx, id)
	if err != nil {
		return nil, err
	}

	secret, err := secretFn(begin)
	if err != nil {
		return nil, err
	}

	handshake, err := i.Handshake(ctx, id, secret)
	if err != nil {
		return nil, err
	}

	msgs, err := admitFn(handshake)
	if err != nil {
		return nil, err
	}

	notarized, err := i.Notarize(ctx, id, secret, msgs)
	if ferr := i.Finish(ctx, id, secret); ferr != nil {
		i.logger.WithError(ferr).Warn("Finish failed")
		if err == nil {
			err = ferr
		}
	}
	if err != nil {
		return nil, err
	}

	i.logger.WithField("copies", len(notarized.Copies)).Debug("Invitation redeemed")
	return notarized, nil
}

// call sends cmd and copies the response into res, which must be a pointer to
// the expected response type.
func (i *Initiator) call(ctx context.Context, cmd *message.Command, res message.Message) error {
	out, err := i.transport.Call(ctx, cmd)
	if err != nil {
		return err
	}
	if out == nil || out.TypeURL() != res.TypeURL() {
		return fmt.Errorf("%s: unexpected response %T", cmd.Command, out)
	}
	switch r := res.(type) {
	case *message.ClaimResponse:
		*r = *out.(*message.ClaimResponse)
	case *message.BeginResponse:
		*r = *out.(*message.BeginResponse)
	case *message.HandshakeResponse:
		*r = *out.(*message.HandshakeResponse)
	case *message.NotarizeResponse:
		*r = *out.(*message.NotarizeResponse)
	case *message.FinishResponse:
	}
	return nil
}
