package message

import (
	"fmt"

	"github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
)

// GreetNamespace prefixes the type URL of greeting payloads.
const GreetNamespace = "dxos.credentials.greet."

const (
	// CommandType is the type URL of Command
	CommandType = GreetNamespace + "Command"
	// BeginResponseType is the type URL of BeginResponse
	BeginResponseType = GreetNamespace + "BeginResponse"
	// HandshakeResponseType is the type URL of HandshakeResponse
	HandshakeResponseType = GreetNamespace + "HandshakeResponse"
	// NotarizeResponseType is the type URL of NotarizeResponse
	NotarizeResponseType = GreetNamespace + "NotarizeResponse"
	// FinishResponseType is the type URL of FinishResponse
	FinishResponseType = GreetNamespace + "FinishResponse"
	// ClaimResponseType is the type URL of ClaimResponse
	ClaimResponseType = GreetNamespace + "ClaimResponse"
)

// GreetCommand enumerates the greeting commands. The integer values are part
// of the wire format.
type GreetCommand int32

const (
	// Begin opens a greeting session
	Begin GreetCommand = iota
	// Handshake exchanges the party key and the session nonce
	Handshake
	// Notarize submits admission messages
	Notarize
	// Finish closes the session
	Finish
	// Claim exchanges a logged PartyInvitation for a live session
	Claim
)

// String returns the string representation of GreetCommand
func (c GreetCommand) String() string {
	switch c {
	case Begin:
		return "BEGIN"
	case Handshake:
		return "HANDSHAKE"
	case Notarize:
		return "NOTARIZE"
	case Finish:
		return "FINISH"
	case Claim:
		return "CLAIM"
	default:
		return fmt.Sprintf("GreetCommand(%d)", int32(c))
	}
}

// Command is a request from the invitee to the greeter.
type Command struct {
	Command    GreetCommand    `json:"command"`
	Invitation common.HexBytes `json:"invitation"`
	Secret     common.HexBytes `json:"secret,omitempty"`
	Params     []Any           `json:"params,omitempty"`
}

// TypeURL implements Message
func (c *Command) TypeURL() string { return CommandType }

// BeginResponse answers BEGIN.
type BeginResponse struct {
	ID        common.HexBytes `json:"id"`
	AuthNonce common.HexBytes `json:"authNonce"`
}

// TypeURL implements Message
func (r *BeginResponse) TypeURL() string { return BeginResponseType }

// HandshakeResponse answers HANDSHAKE. Every message submitted with NOTARIZE
// must carry Nonce.
type HandshakeResponse struct {
	Nonce    common.HexBytes `json:"nonce"`
	PartyKey keys.PublicKey  `json:"partyKey"`
}

// TypeURL implements Message
func (r *HandshakeResponse) TypeURL() string { return HandshakeResponseType }

// NotarizeResponse answers NOTARIZE with the copies written to the party log.
type NotarizeResponse struct {
	GenesisFeedKey keys.PublicKey   `json:"genesisFeed,omitempty"`
	Copies         []*SignedMessage `json:"copies"`
	Hints          []KeyHint        `json:"hints,omitempty"`
}

// TypeURL implements Message
func (r *NotarizeResponse) TypeURL() string { return NotarizeResponseType }

// FinishResponse answers FINISH.
type FinishResponse struct{}

// TypeURL implements Message
func (r *FinishResponse) TypeURL() string { return FinishResponseType }

// ClaimResponse answers CLAIM with a fresh invitation and the rendezvous key
// where the greeting continues.
type ClaimResponse struct {
	ID            common.HexBytes `json:"id"`
	RendezvousKey keys.PublicKey  `json:"rendezvousKey"`
}

// TypeURL implements Message
func (r *ClaimResponse) TypeURL() string { return ClaimResponseType }

func init() {
	Register(CommandType, func() Message { return new(Command) })
	Register(BeginResponseType, func() Message { return new(BeginResponse) })
	Register(HandshakeResponseType, func() Message { return new(HandshakeResponse) })
	Register(NotarizeResponseType, func() Message { return new(NotarizeResponse) })
	Register(FinishResponseType, func() Message { return new(FinishResponse) })
	Register(ClaimResponseType, func() Message { return new(ClaimResponse) })
}
