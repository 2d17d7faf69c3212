// Package feed stores the ordered log of signed messages of a party.
//
// A node replays its feed into a party.PartyState on startup and appends the
// admissions it writes during greeting. There are two implementations of
// Store: InmemStore and BadgerStore.
package feed

import (
	"github.com/mosaicnetworks/party/src/message"
)

// Store is an append-only log of signed messages.
type Store interface {
	// Append adds messages at the end of the log.
	Append(msgs ...*message.SignedMessage) error
	// Messages returns the messages with index in [from, Len()), in order.
	Messages(from int) ([]*message.SignedMessage, error)
	// Len returns the number of messages in the log.
	Len() int
	Close() error
}
