// Package auth checks the credentials a peer presents when it connects to a
// member of a party.
package auth

import (
	"time"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/mosaicnetworks/party/src/party"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

// DefaultReplayWindow is how far, in either direction, the creation time of
// credentials may be from now.
const DefaultReplayWindow = 24 * time.Hour

// Options configures an Authenticator. Zero values take defaults.
type Options struct {
	ReplayWindow    time.Duration
	Clock           common.Clock
	OnAuthenticated func(*message.Auth)
	Metrics         *Metrics
	Logger          *logrus.Entry
}

// Authenticator validates credentials against the state of one party.
type Authenticator struct {
	party           *party.PartyState
	window          time.Duration
	clock           common.Clock
	onAuthenticated func(*message.Auth)
	metrics         *Metrics
	logger          *logrus.Entry
}

// NewAuthenticator creates an Authenticator bound to ps.
func NewAuthenticator(ps *party.PartyState, opts Options) *Authenticator {
	if opts.ReplayWindow <= 0 {
		opts.ReplayWindow = DefaultReplayWindow
	}
	if opts.Clock == nil {
		opts.Clock = common.SystemClock
	}
	if opts.Logger == nil {
		opts.Logger = common.DiscardEntry()
	}
	return &Authenticator{
		party:           ps,
		window:          opts.ReplayWindow,
		clock:           opts.Clock,
		onAuthenticated: opts.OnAuthenticated,
		metrics:         opts.Metrics,
		logger:          opts.Logger.WithField("prefix", "auth"),
	}
}

// Authenticate reports whether credentials are a fresh Auth message for this
// party, signed by a key the party trusts. It never fails loudly: every
// rejection is a plain false, whatever its reason.
func (a *Authenticator) Authenticate(credentials *message.SignedMessage) bool {
	ok, reason := a.authenticate(credentials)
	if !ok {
		a.metrics.result(false)
		a.logger.WithField("reason", reason).Debug("Authentication failed")
		return false
	}

	a.metrics.result(true)
	auth := credentials.Payload().(*message.Auth)
	if a.onAuthenticated != nil {
		a.onAuthenticated(auth)
	}
	return true
}

func (a *Authenticator) authenticate(credentials *message.SignedMessage) (bool, string) {
	if credentials == nil {
		return false, "no credentials"
	}
	if err := credentials.Validate(); err != nil {
		return false, "malformed"
	}
	auth, ok := credentials.Payload().(*message.Auth)
	if !ok {
		return false, "not an auth message"
	}

	created, err := time.Parse(time.RFC3339, credentials.Signed.Created)
	if err != nil {
		return false, "bad timestamp"
	}
	now := a.clock.Now()
	if created.Before(now.Add(-a.window)) || created.After(now.Add(a.window)) {
		return false, "stale timestamp"
	}

	if !auth.PartyKey.Equal(a.party.PartyKey()) {
		return false, "wrong party"
	}

	if !a.party.Keyring().Verify(credentials) {
		return false, "untrusted"
	}
	return true, ""
}

// Metrics counts authentication attempts.
type Metrics struct {
	attempts *prometheus.CounterVec
}

// NewMetrics creates the authentication metrics and registers them with
// registerer.
func NewMetrics(registerer prometheus.Registerer) *Metrics {
	m := Metrics{
		attempts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "auth_attempts_total",
				Help: "Number of authentication attempts, by result",
			},
			[]string{"result"},
		),
	}
	registerer.MustRegister(m.attempts)
	return &m
}

func (m *Metrics) result(ok bool) {
	if m == nil {
		return
	}
	if ok {
		m.attempts.WithLabelValues("ok").Inc()
	} else {
		m.attempts.WithLabelValues("rejected").Inc()
	}
}
