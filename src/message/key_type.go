package message

// KeyType says what a public key designates.
type KeyType int32

const (
	// KeyTypeUnknown is the zero value
	KeyTypeUnknown KeyType = iota
	// KeyTypeParty is the root key of a party
	KeyTypeParty
	// KeyTypeIdentity designates a person across devices
	KeyTypeIdentity
	// KeyTypeDevice designates one device of an identity
	KeyTypeDevice
	// KeyTypeFeed designates an append-only feed
	KeyTypeFeed
)

var keyTypes = []string{"UNKNOWN", "PARTY", "IDENTITY", "DEVICE", "FEED"}

// String returns the string representation of KeyType
func (t KeyType) String() string {
	if t < 0 || int(t) >= len(keyTypes) {
		return "UNKNOWN"
	}
	return keyTypes[t]
}

// ParseKeyType is the reverse of String. Unknown names map to KeyTypeUnknown.
func ParseKeyType(s string) KeyType {
	for i, name := range keyTypes {
		if name == s {
			return KeyType(i)
		}
	}
	return KeyTypeUnknown
}
