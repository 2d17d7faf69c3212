package greet

import (
	"bytes"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

// PartyWriter appends admission messages to the party log and returns the
// copies that were written.
type PartyWriter func(msgs []*message.SignedMessage) ([]*message.SignedMessage, error)

// HintProvider returns the hints sent back to a notarized invitee so that it
// can replicate the party before its log catches up.
type HintProvider func(msgs []*message.SignedMessage) ([]message.KeyHint, error)

// InvitationOptions configures a new Invitation.
type InvitationOptions struct {
	SecretProvider  SecretProvider
	SecretValidator SecretValidator
	// OnFinish is called with the Greeter locked and must not call back
	// into it.
	OnFinish func(*Invitation)
	// Expiration is the lifetime of the invitation. Zero means no expiry.
	Expiration time.Duration
}

// Config configures a Greeter.
type Config struct {
	PartyKey       keys.PublicKey
	GenesisFeedKey keys.PublicKey
	Writer         PartyWriter
	HintProvider   HintProvider
	Clock          common.Clock
	Metrics        *Metrics
	Logger         *logrus.Entry

	// RateLimit and RateBurst bound the commands accepted per peer. A zero
	// value disables the limit.
	RateLimit float64
	RateBurst int

	// FinishedCacheSize bounds the memory of finished invitations, used to
	// report commands against them as state violations.
	FinishedCacheSize int
}

// Greeter is the inviter side of the greeting protocol. Commands are
// serialized, so a session never sees two commands at once.
type Greeter struct {
	sync.Mutex

	partyKey       keys.PublicKey
	genesisFeedKey keys.PublicKey
	writer         PartyWriter
	hintProvider   HintProvider

	invitations map[string]*Invitation
	finished    *lru.Cache[string, struct{}]

	// verifies the signatures of submitted messages; trusts nobody
	keyring *keyring.Keyring

	limiter *peerLimiter
	clock   common.Clock
	metrics *Metrics
	logger  *logrus.Entry
}

// NewGreeter creates a Greeter.
func NewGreeter(conf Config) *Greeter {
	if conf.Clock == nil {
		conf.Clock = common.SystemClock
	}
	if conf.Logger == nil {
		conf.Logger = common.DiscardEntry()
	}
	if conf.FinishedCacheSize <= 0 {
		conf.FinishedCacheSize = 1024
	}
	finished, _ := lru.New[string, struct{}](conf.FinishedCacheSize)

	return &Greeter{
		partyKey:       conf.PartyKey,
		genesisFeedKey: conf.GenesisFeedKey,
		writer:         conf.Writer,
		hintProvider:   conf.HintProvider,
		invitations:    make(map[string]*Invitation),
		finished:       finished,
		keyring:        keyring.NewKeyring(nil, 0, conf.Logger),
		limiter:        newPeerLimiter(conf.RateLimit, conf.RateBurst),
		clock:          conf.Clock,
		metrics:        conf.Metrics,
		logger:         conf.Logger.WithField("prefix", "greeter"),
	}
}

// CreateInvitation issues a new invitation to the party.
func (g *Greeter) CreateInvitation(opts InvitationOptions) (*Invitation, error) {
	inv, err := newInvitation(g.partyKey, g.clock, opts)
	if err != nil {
		return nil, err
	}

	g.Lock()
	defer g.Unlock()

	g.invitations[inv.ID.String()] = inv
	g.metrics.setInvitations(len(g.invitations))

	g.logger.WithField("id", inv.ID.String()).Debug("Invitation created")
	return inv, nil
}

// Invitation returns the invitation with the given id, if it is held.
func (g *Greeter) Invitation(id []byte) (*Invitation, bool) {
	g.Lock()
	defer g.Unlock()
	inv, ok := g.invitations[common.HexBytes(id).String()]
	return inv, ok
}

// Invitations returns the held invitations, sorted by issue time.
func (g *Greeter) Invitations() []*Invitation {
	g.Lock()
	defer g.Unlock()

	res := make([]*Invitation, 0, len(g.invitations))
	for _, inv := range g.invitations {
		res = append(res, inv)
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Issued.Before(res[j].Issued)
	})
	return res
}

// Revoke kills an invitation. Further commands against it fail.
func (g *Greeter) Revoke(id []byte) bool {
	g.Lock()
	defer g.Unlock()

	inv, ok := g.invitations[common.HexBytes(id).String()]
	if !ok {
		return false
	}
	inv.revoke()
	return true
}

// Purge drops revoked and expired invitations and returns how many were
// dropped.
func (g *Greeter) Purge() int {
	g.Lock()
	defer g.Unlock()

	n := 0
	for id, inv := range g.invitations {
		if !inv.Live() {
			delete(g.invitations, id)
			g.finished.Add(id, struct{}{})
			n++
		}
	}
	g.metrics.setInvitations(len(g.invitations))
	return n
}

// HandleMessage executes a command from peerID and returns the response.
// Errors are *Error values carrying a stable code.
func (g *Greeter) HandleMessage(cmd *message.Command, peerID string) (message.Message, error) {
	if cmd == nil {
		return nil, newError(ErrorInvalidCommand, "nil command")
	}

	if !g.limiter.allow(peerID, g.clock.Now()) {
		g.metrics.command(cmd.Command.String(), "rate_limited")
		return nil, newError(ErrorRateLimited, "peer %s", peerID)
	}

	g.Lock()
	defer g.Unlock()

	res, err := g.dispatch(cmd)

	fields := logrus.Fields{
		"command":    cmd.Command.String(),
		"invitation": cmd.Invitation.String(),
		"peer":       peerID,
	}
	if err != nil {
		g.metrics.command(cmd.Command.String(), CodeOf(err).String())
		g.logger.WithFields(fields).WithError(err).Warn("Greeting command failed")
		return nil, err
	}
	g.metrics.command(cmd.Command.String(), "ok")
	g.logger.WithFields(fields).Debug("Greeting command")
	return res, nil
}

func (g *Greeter) dispatch(cmd *message.Command) (message.Message, error) {
	switch cmd.Command {
	case message.Begin:
		return g.handleBegin(cmd)
	case message.Handshake, message.Notarize, message.Finish:
	default:
		return nil, newError(ErrorInvalidCommand, "%s", cmd.Command)
	}

	if len(cmd.Secret) == 0 {
		return nil, newError(ErrorMissingSecret, "%s", cmd.Command)
	}
	inv, err := g.lookup(cmd.Invitation)
	if err != nil {
		return nil, err
	}
	if !inv.Live() || inv.Began.IsZero() {
		return nil, newError(ErrorInvalidState, "%s on %s invitation", cmd.Command, inv.State())
	}
	if !inv.secretValidator(inv, cmd.Secret) {
		return nil, newError(ErrorInvalidSecret, "%s", cmd.Command)
	}

	switch cmd.Command {
	case message.Handshake:
		return g.handleHandshake(inv)
	case message.Notarize:
		return g.handleNotarize(inv, cmd)
	default:
		return g.handleFinish(inv)
	}
}

func (g *Greeter) lookup(id common.HexBytes) (*Invitation, error) {
	h := id.String()
	inv, ok := g.invitations[h]
	if ok {
		return inv, nil
	}
	if g.finished.Contains(h) {
		return nil, newError(ErrorInvalidState, "invitation %s is finished", h)
	}
	return nil, newError(ErrorInvalidInvitation, "unknown invitation %s", h)
}

func (g *Greeter) handleBegin(cmd *message.Command) (message.Message, error) {
	inv, err := g.lookup(cmd.Invitation)
	if err != nil {
		return nil, err
	}
	if err := inv.begin(); err != nil {
		return nil, err
	}

	if inv.secretProvider != nil {
		secret, err := inv.secretProvider(inv)
		if err != nil {
			return nil, newError(ErrorInternal, "secret provider: %v", err)
		}
		inv.Secret = secret
	}

	return &message.BeginResponse{
		ID:        inv.ID,
		AuthNonce: inv.AuthNonce,
	}, nil
}

func (g *Greeter) handleHandshake(inv *Invitation) (message.Message, error) {
	if err := inv.handshake(); err != nil {
		return nil, err
	}
	return &message.HandshakeResponse{
		Nonce:    inv.Nonce,
		PartyKey: inv.PartyKey,
	}, nil
}

func (g *Greeter) handleNotarize(inv *Invitation, cmd *message.Command) (message.Message, error) {
	if err := inv.checkNotarize(); err != nil {
		return nil, err
	}

	msgs, err := g.checkSubmission(inv, cmd.Params)
	if err != nil {
		return nil, err
	}

	if g.writer == nil {
		return nil, newError(ErrorInternal, "no party writer")
	}

	// everything that can fail runs before the writer; once the admissions
	// are in the log the invitation is notarized
	var hints []message.KeyHint
	if g.hintProvider != nil {
		hints, err = g.hintProvider(msgs)
		if err != nil {
			return nil, newError(ErrorInternal, "hint provider: %v", err)
		}
	}

	copies, err := g.writer(msgs)
	if err != nil {
		return nil, newError(ErrorInternal, "party writer: %v", err)
	}

	if err := inv.notarize(); err != nil {
		return nil, err
	}
	g.metrics.addAdmitted(len(msgs))

	return &message.NotarizeResponse{
		GenesisFeedKey: g.genesisFeedKey,
		Copies:         copies,
		Hints:          hints,
	}, nil
}

// checkSubmission accepts KEY_ADMIT and FEED_ADMIT messages for this party,
// bound to the session nonce and self-signed by the key they admit.
func (g *Greeter) checkSubmission(inv *Invitation, params []message.Any) ([]*message.SignedMessage, error) {
	if len(params) == 0 {
		return nil, newError(ErrorInvalidMessage, "nothing to notarize")
	}

	msgs := make([]*message.SignedMessage, 0, len(params))
	for i, p := range params {
		m, ok := p.Message.(*message.SignedMessage)
		if !ok || m == nil {
			return nil, newError(ErrorInvalidMessage, "param %d is not a signed message", i)
		}
		if !bytes.Equal(m.Signed.Nonce, inv.Nonce) {
			return nil, newError(ErrorNonceMismatch, "param %d", i)
		}
		cred, ok := m.Credential()
		if !ok || (cred.Type != message.KeyAdmit && cred.Type != message.FeedAdmit) {
			return nil, newError(ErrorInvalidMessage, "param %d is not an admission", i)
		}
		if err := cred.Validate(); err != nil {
			return nil, newError(ErrorInvalidMessage, "param %d: %v", i, err)
		}
		if !cred.PartyKey().Equal(inv.PartyKey) {
			return nil, newError(ErrorInvalidMessage, "param %d is for party %s", i, cred.PartyKey())
		}
		if !g.keyring.ValidateSignatures(m) {
			return nil, newError(ErrorInvalidMessage, "param %d has an invalid signature", i)
		}
		if !m.IsSignedBy(cred.AdmittedKey()) {
			return nil, newError(ErrorInvalidMessage, "param %d is not signed by %s", i, cred.AdmittedKey())
		}
		msgs = append(msgs, m)
	}
	return msgs, nil
}

func (g *Greeter) handleFinish(inv *Invitation) (message.Message, error) {
	if err := inv.finish(); err != nil {
		return nil, err
	}

	h := inv.ID.String()
	delete(g.invitations, h)
	g.finished.Add(h, struct{}{})
	g.metrics.setInvitations(len(g.invitations))

	if inv.onFinish != nil {
		inv.onFinish(inv)
	}

	return &message.FinishResponse{}, nil
}
