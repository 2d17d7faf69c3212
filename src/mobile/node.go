package mobile

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mosaicnetworks/party/src/auth"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/greet"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/mosaicnetworks/party/src/node"
	"github.com/mosaicnetworks/party/src/service"
	"github.com/sirupsen/logrus"
)

// Node wraps a party node behind types gomobile can bind.
type Node struct {
	node             *node.Node
	exceptionHandler ExceptionHandler
	logger           *logrus.Entry
}

// New initializes a node whose keys and feed live under dataDir. It returns
// nil, after telling exceptionHandler, if the node cannot start.
func New(dataDir string,
	authHandler AuthenticatedHandler,
	exceptionHandler ExceptionHandler,
	config *MobileConfig) *Node {

	conf := config.toPartyConfig(dataDir)
	logger := conf.Logger()

	logger.WithFields(logrus.Fields{
		"dataDir": dataDir,
		"config":  fmt.Sprintf("%v", config),
	}).Debug("New Mobile Node")

	n := node.NewNode(conf)
	if authHandler != nil {
		n.OnAuthenticated = func(a *message.Auth) {
			authHandler.OnAuthenticated(a.IdentityKey.Hex())
		}
	}

	if err := n.Init(); err != nil {
		exceptionHandler.OnException(fmt.Sprintf("Cannot initialize node: %s", err))
		n.Shutdown()
		return nil
	}

	return &Node{
		node:             n,
		exceptionHandler: exceptionHandler,
		logger:           logger,
	}
}

// Run serves the party. With async, it returns immediately and failures go
// to the ExceptionHandler.
func (n *Node) Run(async bool) {
	if async {
		go n.run()
	} else {
		n.run()
	}
}

func (n *Node) run() {
	if err := n.node.Run(); err != nil {
		n.exceptionHandler.OnException(fmt.Sprintf("Run: %s", err))
	}
}

func (n *Node) Shutdown() {
	n.node.Shutdown()
}

// PartyKey returns the hex key of the party of the node, or an empty string.
func (n *Node) PartyKey() string {
	if k := n.node.PartyKey(); k != nil {
		return k.Hex()
	}
	return ""
}

// Identity returns the hex identity key of the node.
func (n *Node) Identity() (string, error) {
	rec, err := n.node.Identity()
	if err != nil {
		return "", err
	}
	return rec.Hex(), nil
}

func (n *Node) CreateParty() error {
	return n.node.CreateParty()
}

// Invitation is the JSON returned by Invite.
type Invitation struct {
	Code string `json:"invitation"`
	PIN  string `json:"pin"`
}

// Invite issues an interactive invitation and returns it with its PIN, in
// JSON.
func (n *Node) Invite() (string, error) {
	desc, pin, err := n.node.Invite()
	if err != nil {
		return "", err
	}
	code, err := desc.Encode()
	if err != nil {
		return "", err
	}
	return marshal(Invitation{Code: code, PIN: string(pin)})
}

// InviteMember invites the hex identity key and returns the invitation code.
func (n *Node) InviteMember(identity string) (string, error) {
	var invitee keys.PublicKey
	if err := invitee.UnmarshalText([]byte(identity)); err != nil {
		return "", err
	}
	desc, err := n.node.InviteMember(invitee)
	if err != nil {
		return "", err
	}
	return desc.Encode()
}

// Join redeems the invitation code through the configured WAMP router. pin is
// ignored for invitations issued by InviteMember.
func (n *Node) Join(code string, pin string) error {
	desc, err := greet.DecodeInvitationDescriptor(code)
	if err != nil {
		return err
	}
	dial, closeFn, err := n.node.WAMPDialer()
	if err != nil {
		return err
	}
	defer closeFn()
	return n.node.Join(context.Background(), desc, []byte(pin), dial)
}

// Credentials returns fresh credentials of the node, in the form expected by
// Authenticate.
func (n *Node) Credentials() (string, error) {
	m, err := n.node.Credentials()
	if err != nil {
		return "", err
	}
	return auth.EncodeCredentials(m)
}

// Authenticate checks credentials produced by Credentials on any member
// device.
func (n *Node) Authenticate(credentials string) bool {
	m, err := auth.DecodeCredentials(credentials)
	if err != nil {
		n.logger.WithError(err).Debug("Undecodable credentials")
		return false
	}
	return n.node.Authenticate(m)
}

// GetMembers returns the members of the party in JSON.
func (n *Node) GetMembers() string {
	n.node.Lock()
	state := n.node.State
	n.node.Unlock()
	if state == nil {
		return "[]"
	}

	res, err := marshal(service.Members(state))
	if err != nil {
		return ""
	}
	return res
}

func marshal(v interface{}) (string, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
