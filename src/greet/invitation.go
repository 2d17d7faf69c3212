package greet

import (
	"crypto/rand"
	"crypto/subtle"
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
)

const randomSize = 32

// SecretProvider produces the secret of an invitation when the invitee
// begins the session, for example a PIN shown to the inviter who then reads
// it to the invitee.
type SecretProvider func(inv *Invitation) ([]byte, error)

// SecretValidator checks the secret presented by the invitee.
type SecretValidator func(inv *Invitation, secret []byte) bool

// Invitation is a single-use greeting session. It moves from issued to
// began, handshook, notarized and finished, in that order; it can be revoked
// or expire at any point, after which it accepts nothing. Expiration is read
// from the clock on every check.
type Invitation struct {
	ID        common.HexBytes
	AuthNonce common.HexBytes
	Nonce     common.HexBytes
	PartyKey  keys.PublicKey
	Secret    common.HexBytes

	Issued     time.Time
	Began      time.Time
	Handshook  time.Time
	Notarized  time.Time
	Finished   time.Time
	Revoked    time.Time
	Expiration time.Time

	secretProvider  SecretProvider
	secretValidator SecretValidator
	onFinish        func(*Invitation)

	clock common.Clock
}

func newInvitation(partyKey keys.PublicKey, clock common.Clock, opts InvitationOptions) (*Invitation, error) {
	id, err := randomBytes()
	if err != nil {
		return nil, err
	}
	authNonce, err := randomBytes()
	if err != nil {
		return nil, err
	}
	nonce, err := randomBytes()
	if err != nil {
		return nil, err
	}

	now := clock.Now()
	inv := &Invitation{
		ID:              id,
		AuthNonce:       authNonce,
		Nonce:           nonce,
		PartyKey:        partyKey,
		Issued:          now,
		secretProvider:  opts.SecretProvider,
		secretValidator: opts.SecretValidator,
		onFinish:        opts.OnFinish,
		clock:           clock,
	}
	if opts.Expiration > 0 {
		inv.Expiration = now.Add(opts.Expiration)
	}
	if inv.secretValidator == nil {
		inv.secretValidator = defaultSecretValidator
	}
	return inv, nil
}

func randomBytes() (common.HexBytes, error) {
	b := make([]byte, randomSize)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}

func defaultSecretValidator(inv *Invitation, secret []byte) bool {
	return len(inv.Secret) > 0 && subtle.ConstantTimeCompare(inv.Secret, secret) == 1
}

// Expired reports whether the expiration time has passed.
func (i *Invitation) Expired() bool {
	return !i.Expiration.IsZero() && !i.clock.Now().Before(i.Expiration)
}

// Live reports whether the invitation can still be used.
func (i *Invitation) Live() bool {
	return i.Finished.IsZero() && i.Revoked.IsZero() && !i.Expired()
}

// State returns a short description of how far the session got.
func (i *Invitation) State() string {
	switch {
	case !i.Revoked.IsZero():
		return "revoked"
	case !i.Finished.IsZero():
		return "finished"
	case i.Expired():
		return "expired"
	case !i.Notarized.IsZero():
		return "notarized"
	case !i.Handshook.IsZero():
		return "handshook"
	case !i.Began.IsZero():
		return "began"
	}
	return "issued"
}

func (i *Invitation) begin() error {
	if !i.Live() || !i.Began.IsZero() {
		return newError(ErrorInvalidState, "cannot begin %s invitation", i.State())
	}
	i.Began = i.clock.Now()
	return nil
}

func (i *Invitation) handshake() error {
	if !i.Live() || i.Began.IsZero() || !i.Handshook.IsZero() {
		return newError(ErrorInvalidState, "cannot handshake %s invitation", i.State())
	}
	i.Handshook = i.clock.Now()
	return nil
}

func (i *Invitation) checkNotarize() error {
	if !i.Live() || i.Handshook.IsZero() || !i.Notarized.IsZero() {
		return newError(ErrorInvalidState, "cannot notarize %s invitation", i.State())
	}
	return nil
}

func (i *Invitation) notarize() error {
	if err := i.checkNotarize(); err != nil {
		return err
	}
	i.Notarized = i.clock.Now()
	return nil
}

// finish does not require the earlier steps, so that a session can be
// aborted.
func (i *Invitation) finish() error {
	if !i.Live() {
		return newError(ErrorInvalidState, "cannot finish %s invitation", i.State())
	}
	i.Finished = i.clock.Now()
	return nil
}

func (i *Invitation) revoke() {
	if i.Revoked.IsZero() {
		i.Revoked = i.clock.Now()
	}
}
