// Package wamp carries greeting commands as RPC over WebSockets.
//
// This package contains a WAMP server that relays RPC requests between
// connected clients, a Responder which registers a net.Handler under the
// rendezvous key of an invitation, and a Transport which implements
// greet.Transport by calling that procedure.
//
// If the server address is secure (wss), the client can be given the
// certificate of the server. Otherwise, it relies on the platform's trusted
// certificates. This means that the certificate can be self-signed because it
// can be passed directly to the client. There is also an option to skip
// certificate verification, but this should only be used for testing.
package wamp

import (
	"fmt"

	"github.com/mosaicnetworks/party/src/crypto/keys"
)

const (
	// ErrProcessingCommand indicates that the responder could not read the
	// command it was sent. Greeting errors are not reported this way.
	ErrProcessingCommand = "io.party.processing_command"
)

// Procedure is the name of the procedure of the greeting session reachable at
// rendezvous.
func Procedure(rendezvous keys.PublicKey) string {
	return fmt.Sprintf("io.party.greet.%s", rendezvous.Hex())
}
