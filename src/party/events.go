package party

import (
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/keyring"
)

// EventType enumerates membership changes.
type EventType int

const (
	// AdmitKey is fired when a key becomes a member
	AdmitKey EventType = iota
	// AdmitFeed is fired when a feed becomes a member
	AdmitFeed
	// UpdateKey is fired when a hinted key or feed is confirmed by its
	// credential message
	UpdateKey
)

// String returns the string representation of EventType
func (t EventType) String() string {
	switch t {
	case AdmitKey:
		return "admit:key"
	case AdmitFeed:
		return "admit:feed"
	case UpdateKey:
		return "update:key"
	default:
		return "unknown"
	}
}

// Event describes a membership change.
type Event struct {
	Type       EventType
	Record     *keyring.KeyRecord
	AdmittedBy keys.PublicKey
}

// Observer receives membership events. Observers are called synchronously,
// in order, after the message that caused the events has been applied and
// without any PartyState lock held.
type Observer func(Event)
