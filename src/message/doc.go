// Package message defines every payload that travels in a party: signed
// credential messages, identity metadata, invitations, authentication
// payloads and the greeting protocol commands.
//
// Payloads form a closed tagged union. Each concrete type implements Message
// and is registered under a stable type URL. On the wire, a payload is a JSON
// object carrying its type URL in the "__type_url" field; Decode dispatches on
// that field once, so that consumers switch on Go types instead of probing the
// shape of the data.
//
// SignedMessage signatures cover the canonical form of the Signed block (see
// Canonical): map keys sorted, binary values hex-encoded, and fields whose
// name starts with "__" excluded.
package message
