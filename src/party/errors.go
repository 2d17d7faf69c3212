package party

import "errors"

var (
	// ErrMalformed is returned for messages missing required parts.
	ErrMalformed = errors.New("malformed message")
	// ErrWrongParty is returned for messages addressed to another party.
	ErrWrongParty = errors.New("wrong party")
	// ErrUntrusted is returned when no trusted member signed a message.
	ErrUntrusted = errors.New("not signed by a trusted key")
	// ErrInvalidSignature is returned when a signature does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrNotSelfSigned is returned when an admission inside an envelope is
	// not signed by the key it admits.
	ErrNotSelfSigned = errors.New("admission not signed by the admitted key")
	// ErrInvalidEnvelope is returned for envelopes that do not wrap a
	// KEY_ADMIT, FEED_ADMIT or ENVELOPE, or that are nested too deep.
	ErrInvalidEnvelope = errors.New("invalid envelope")
)
