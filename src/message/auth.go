package message

import "github.com/mosaicnetworks/party/src/crypto/keys"

// AuthType is the type URL of Auth
const AuthType = "dxos.credentials.auth.Auth"

// Auth is the payload a peer signs to prove membership when connecting.
type Auth struct {
	PartyKey    keys.PublicKey `json:"partyKey"`
	DeviceKey   keys.PublicKey `json:"deviceKey"`
	IdentityKey keys.PublicKey `json:"identityKey"`
	FeedKey     keys.PublicKey `json:"feedKey,omitempty"`
}

// TypeURL implements Message
func (a *Auth) TypeURL() string { return AuthType }

func init() {
	Register(AuthType, func() Message { return new(Auth) })
}
