package auth

import (
	"encoding/base64"
	"fmt"

	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

// SessionInfo is what the connection handshake exposes of the remote peer.
type SessionInfo struct {
	// Credentials is the base64 encoding of a SignedMessage, as produced by
	// EncodeCredentials.
	Credentials string
	PeerID      keys.PublicKey
}

// Session is the connection being authenticated.
type Session interface {
	GetSession() SessionInfo
	Destroy()
}

// AuthPlugin authenticates sessions during the connection handshake and
// tears down those that fail.
type AuthPlugin struct {
	authenticator *Authenticator
	logger        *logrus.Entry
}

// NewAuthPlugin creates an AuthPlugin.
func NewAuthPlugin(authenticator *Authenticator) *AuthPlugin {
	return &AuthPlugin{
		authenticator: authenticator,
		logger:        authenticator.logger,
	}
}

// HandleSession authenticates session. The credentials must be valid and their
// device key must be the peer id of the session. On failure the session is
// destroyed.
func (p *AuthPlugin) HandleSession(session Session) bool {
	if p.check(session.GetSession()) {
		return true
	}
	session.Destroy()
	return false
}

func (p *AuthPlugin) check(info SessionInfo) bool {
	if info.Credentials == "" {
		return false
	}
	credentials, err := DecodeCredentials(info.Credentials)
	if err != nil {
		p.logger.WithError(err).Debug("Undecodable credentials")
		return false
	}
	if !p.authenticator.Authenticate(credentials) {
		return false
	}

	auth := credentials.Payload().(*message.Auth)
	if !auth.DeviceKey.Equal(info.PeerID) {
		p.logger.WithField("peer", info.PeerID.Hex()).Debug("Device key is not the peer id")
		return false
	}
	return true
}

// EncodeCredentials returns the form of credentials carried in SessionInfo.
func EncodeCredentials(credentials *message.SignedMessage) (string, error) {
	raw, err := message.Encode(credentials)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// DecodeCredentials parses the output of EncodeCredentials.
func DecodeCredentials(s string) (*message.SignedMessage, error) {
	raw, err := base64.StdEncoding.DecodeString(s)
	if err != nil {
		return nil, err
	}
	decoded, err := message.Decode(raw)
	if err != nil {
		return nil, err
	}
	credentials, ok := decoded.(*message.SignedMessage)
	if !ok {
		return nil, fmt.Errorf("credentials are a %s, not a SignedMessage", decoded.TypeURL())
	}
	return credentials, nil
}
