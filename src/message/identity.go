package message

import (
	"strings"

	"github.com/mosaicnetworks/party/src/crypto/keys"
)

// IdentityNamespace prefixes the type URL of identity payloads.
const IdentityNamespace = "dxos.credentials.identity."

const (
	// IdentityInfoType is the type URL of IdentityInfo
	IdentityInfoType = IdentityNamespace + "IdentityInfo"
	// DeviceInfoType is the type URL of DeviceInfo
	DeviceInfoType = IdentityNamespace + "DeviceInfo"
)

// IdentityInfo binds a display name to an identity key.
type IdentityInfo struct {
	PublicKey   keys.PublicKey `json:"publicKey"`
	DisplayName string         `json:"displayName"`
}

// TypeURL implements Message
func (i *IdentityInfo) TypeURL() string { return IdentityInfoType }

// DeviceInfo binds a display name to a device key.
type DeviceInfo struct {
	PublicKey   keys.PublicKey `json:"publicKey"`
	DisplayName string         `json:"displayName"`
}

// TypeURL implements Message
func (d *DeviceInfo) TypeURL() string { return DeviceInfoType }

// IsIdentityType reports whether typeURL belongs to the identity namespace.
func IsIdentityType(typeURL string) bool {
	return strings.HasPrefix(typeURL, IdentityNamespace)
}

func init() {
	Register(IdentityInfoType, func() Message { return new(IdentityInfo) })
	Register(DeviceInfoType, func() Message { return new(DeviceInfo) })
}
