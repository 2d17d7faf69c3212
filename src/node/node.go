package node

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mosaicnetworks/party/src/auth"
	"github.com/mosaicnetworks/party/src/config"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/feed"
	"github.com/mosaicnetworks/party/src/greet"
	"github.com/mosaicnetworks/party/src/keyring"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/mosaicnetworks/party/src/net/wamp"
	"github.com/mosaicnetworks/party/src/party"
	"github.com/mosaicnetworks/party/src/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
)

var (
	// ErrNoParty is returned by operations that need the node to belong to
	// a party.
	ErrNoParty = errors.New("node does not belong to a party")
	// ErrHasParty is returned when creating or joining a party twice.
	ErrHasParty = errors.New("node already belongs to a party")
)

// purgeInterval is the period at which dead invitations are dropped.
const purgeInterval = time.Minute

// Node is a member, or a future member, of a party.
type Node struct {
	// guards State and the greeting components, and serializes writes to
	// the feed
	sync.Mutex

	conf *config.Config

	Keyring  *keyring.Keyring
	Feed     feed.Store
	Registry *prometheus.Registry

	State         *party.PartyState
	Greeter       *greet.Greeter
	Claims        *greet.PartyInvitationClaimHandler
	Authenticator *auth.Authenticator
	Service       *service.Service

	// OnAuthenticated, when set before Init, is called with every accepted
	// credential.
	OnAuthenticated func(*message.Auth)

	info       *PartyInfo
	rendezvous *keys.KeyPair

	greetMetrics *greet.Metrics
	authMetrics  *auth.Metrics

	router    *wamp.Server
	responder *wamp.Responder

	shutdownCh   chan struct{}
	shutdownOnce sync.Once

	logger *logrus.Entry
}

// NewNode creates a Node. Init must be called before use.
func NewNode(conf *config.Config) *Node {
	return &Node{
		conf:       conf,
		shutdownCh: make(chan struct{}),
		logger:     conf.Logger(),
	}
}

// Init opens the key store and the feed and, if the node already belongs to a
// party, replays the feed.
func (n *Node) Init() error {
	n.Registry = prometheus.NewRegistry()
	n.greetMetrics = greet.NewMetrics(n.Registry)
	n.authMetrics = auth.NewMetrics(n.Registry)

	if err := n.initKey(); err != nil {
		return err
	}

	if err := n.initKeyring(); err != nil {
		return err
	}

	if err := n.initFeed(); err != nil {
		return err
	}

	info, err := readPartyInfo(n.conf.DataDir)
	if err != nil {
		return err
	}
	if info != nil {
		return n.loadParty(info)
	}

	n.logger.Debug("Node does not belong to a party yet")
	return nil
}

// initKey reads the device key, which is also the rendezvous key of the node,
// or creates it.
func (n *Node) initKey() error {
	privKey, created, err := keys.NewSimpleKeyfile(n.conf.Keyfile()).ReadOrCreate()
	if err != nil {
		n.logger.WithError(err).Error("Cannot read or create the private key")
		return err
	}
	if created {
		n.logger.WithField("key", keys.PublicKeyHex(&privKey.PublicKey)).Info("Created a new key")
	}

	n.rendezvous = keys.NewKeyPair(privKey)
	return nil
}

func (n *Node) initKeyring() error {
	var store keyring.KeyStore
	if n.conf.Store {
		n.logger.WithField("path", n.conf.KeyringDir()).Debug("Opening keyring database")

		var err error
		store, err = keyring.NewBadgerKeyStore(n.conf.KeyringDir(), n.logger)
		if err != nil {
			return err
		}
	}

	n.Keyring = keyring.NewKeyring(store, n.conf.CacheSize, n.logger)
	return n.Keyring.Load()
}

func (n *Node) initFeed() error {
	if !n.conf.Store {
		n.Feed = feed.NewInmemStore()
		return nil
	}

	n.logger.WithField("path", n.conf.FeedDir()).Debug("Opening feed database")

	store, err := feed.NewBadgerStore(n.conf.FeedDir(), n.logger)
	if err != nil {
		return err
	}
	n.Feed = store
	return nil
}

// loadParty rebuilds the PartyState from the feed.
func (n *Node) loadParty(info *PartyInfo) error {
	state, err := party.NewPartyState(info.PartyKey, nil, n.logger)
	if err != nil {
		return err
	}
	if err := state.TakeHints(info.Hints); err != nil {
		return err
	}

	msgs, err := n.Feed.Messages(0)
	if err != nil {
		return err
	}
	if err := state.ProcessMessages(msgs); err != nil {
		return fmt.Errorf("replaying feed: %w", err)
	}

	n.logger.WithFields(logrus.Fields{
		"party":    info.PartyKey.Hex(),
		"messages": len(msgs),
		"members":  len(state.MemberKeys()),
	}).Debug("Loaded party")

	n.Lock()
	defer n.Unlock()
	n.setParty(state, info)
	return nil
}

// setParty installs the state of the party and the components depending on
// it. The caller holds the lock.
func (n *Node) setParty(state *party.PartyState, info *PartyInfo) {
	n.State = state
	n.info = info

	n.Greeter = greet.NewGreeter(greet.Config{
		PartyKey:          info.PartyKey,
		GenesisFeedKey:    info.GenesisFeedKey,
		Writer:            n.writeAdmissions,
		HintProvider:      n.hints,
		Metrics:           n.greetMetrics,
		Logger:            n.logger,
		RateLimit:         n.conf.RateLimit,
		RateBurst:         n.conf.RateBurst,
		FinishedCacheSize: n.conf.CacheSize,
	})

	n.Claims = greet.NewPartyInvitationClaimHandler(
		n.Greeter,
		state.InvitationManager(),
		func(*greet.Invitation) (keys.PublicKey, error) { return n.RendezvousKey(), nil },
		n.conf.InvitationExpiration,
	)

	n.Authenticator = auth.NewAuthenticator(state, auth.Options{
		ReplayWindow:    n.conf.AuthWindow,
		OnAuthenticated: n.OnAuthenticated,
		Metrics:         n.authMetrics,
		Logger:          n.logger,
	})

	if !n.conf.NoService {
		n.Service = service.NewService(n.conf.ServiceAddr, state, n.Greeter, n.Registry, n.logger)
	}
}

// RendezvousKey returns the key under which the node answers greeting
// commands.
func (n *Node) RendezvousKey() keys.PublicKey {
	return n.rendezvous.PublicKey
}

// PartyKey returns the key of the party of the node, or nil.
func (n *Node) PartyKey() keys.PublicKey {
	n.Lock()
	defer n.Unlock()
	if n.info == nil {
		return nil
	}
	return n.info.PartyKey
}

// Identity returns the own identity key of the node, creating it if needed.
func (n *Node) Identity() (*keyring.KeyRecord, error) {
	if rec := n.Keyring.FindKey(keyring.OfType(message.KeyTypeIdentity), keyring.IsOwn()); rec != nil {
		return rec, nil
	}
	return n.Keyring.CreateKeyRecord(message.KeyTypeIdentity)
}

// CreateParty writes the genesis of a new party, admitting the identity of
// the node and a new feed. The secret of the party key is destroyed once the
// genesis is signed.
func (n *Node) CreateParty() error {
	n.Lock()
	defer n.Unlock()

	if n.State != nil {
		return ErrHasParty
	}

	partyRecord, err := n.Keyring.CreateKeyRecord(message.KeyTypeParty)
	if err != nil {
		return err
	}
	identity, err := n.Identity()
	if err != nil {
		return err
	}
	feedRecord, err := n.Keyring.CreateKeyRecord(message.KeyTypeFeed)
	if err != nil {
		return err
	}

	genesis, err := party.CreatePartyGenesisMessage(n.Keyring, partyRecord, feedRecord, identity)
	if err != nil {
		return err
	}
	msgs := []*message.SignedMessage{genesis}

	if n.conf.Moniker != "" {
		info, err := party.CreateIdentityInfoMessage(n.Keyring, n.conf.Moniker, identity)
		if err != nil {
			return err
		}
		msgs = append(msgs, info)
	}

	if err := n.Keyring.DeleteSecretKey(partyRecord.PublicKey); err != nil {
		return err
	}

	info := &PartyInfo{
		PartyKey:       partyRecord.PublicKey,
		GenesisFeedKey: feedRecord.PublicKey,
	}
	if err := n.install(info, msgs); err != nil {
		return err
	}

	n.logger.WithField("party", info.PartyKey.Hex()).Info("Created party")
	return nil
}

// install builds the PartyState of info from msgs, persists both and
// switches the node to the party. The caller holds the lock.
func (n *Node) install(info *PartyInfo, msgs []*message.SignedMessage) error {
	state, err := party.NewPartyState(info.PartyKey, nil, n.logger)
	if err != nil {
		return err
	}
	if err := state.TakeHints(info.Hints); err != nil {
		return err
	}
	if err := state.ProcessMessages(msgs); err != nil {
		return err
	}

	if err := n.Feed.Append(msgs...); err != nil {
		return err
	}
	if err := writePartyInfo(n.conf.DataDir, info); err != nil {
		return err
	}

	n.setParty(state, info)
	return nil
}

// appendMessages processes msgs and appends those that were accepted to the
// feed. Rejected messages are not written.
func (n *Node) appendMessages(msgs []*message.SignedMessage) error {
	n.Lock()
	defer n.Unlock()

	if n.State == nil {
		return ErrNoParty
	}

	var errs []error
	for _, m := range msgs {
		if err := n.State.ProcessMessages([]*message.SignedMessage{m}); err != nil {
			errs = append(errs, err)
			continue
		}
		if err := n.Feed.Append(m); err != nil {
			return err
		}
	}
	return errors.Join(errs...)
}

// Credentials returns the Auth message the node presents to peers of its
// party.
func (n *Node) Credentials() (*message.SignedMessage, error) {
	n.Lock()
	state := n.State
	n.Unlock()
	if state == nil {
		return nil, ErrNoParty
	}
	identity, err := n.Identity()
	if err != nil {
		return nil, err
	}
	var feedKey keys.PublicKey
	for _, rec := range n.Keyring.FindKeys(keyring.OfType(message.KeyTypeFeed), keyring.IsOwn()) {
		if state.IsMemberFeed(rec.PublicKey) {
			feedKey = rec.PublicKey
			break
		}
	}
	return party.CreateAuthMessage(n.Keyring, state.PartyKey(), identity, identity, feedKey)
}

// Authenticate checks the credentials of a peer against the party.
func (n *Node) Authenticate(credentials *message.SignedMessage) bool {
	n.Lock()
	a := n.Authenticator
	n.Unlock()
	if a == nil {
		return false
	}
	return a.Authenticate(credentials)
}

// Run serves the party until Shutdown is called: the HTTP service, the
// greeting procedure on the WAMP router, and the periodic purge of dead
// invitations.
func (n *Node) Run() error {
	n.Lock()
	greeter, svc := n.Greeter, n.Service
	n.Unlock()

	if greeter == nil {
		return ErrNoParty
	}

	if svc != nil {
		go svc.Serve()
	}

	if err := n.startWAMP(); err != nil {
		return err
	}

	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			if purged := greeter.Purge(); purged > 0 {
				n.logger.WithField("purged", purged).Debug("Purged invitations")
			}
		case <-n.shutdownCh:
			return nil
		}
	}
}

// Shutdown stops Run and closes the stores.
func (n *Node) Shutdown() {
	n.shutdownOnce.Do(func() {
		n.logger.Debug("Shutdown")

		close(n.shutdownCh)

		if n.responder != nil {
			if err := n.responder.Close(); err != nil {
				n.logger.WithError(err).Warn("Closing WAMP client")
			}
		}
		if n.router != nil {
			n.router.Shutdown()
		}
		if n.Feed != nil {
			n.Feed.Close()
		}
		if n.Keyring != nil {
			n.Keyring.Close()
		}
	})
}
