package keyring

import "errors"

var (
	// ErrInvalidKey is returned for malformed keys and key pairs, and when a
	// signer cannot be used to sign.
	ErrInvalidKey = errors.New("invalid key")
	// ErrNoSecretKey is returned when a signing operation needs a secret key
	// that the record does not hold.
	ErrNoSecretKey = errors.New("no secret key")
	// ErrKeyExists is returned when adding a key that is already known.
	ErrKeyExists = errors.New("key already exists")
	// ErrKeyNotFound is returned when updating a key that is not known.
	ErrKeyNotFound = errors.New("key not found")
	// ErrUntrustedKey is returned by FindTrusted when a chain node is signed by
	// a key that the Keyring knows but does not trust.
	ErrUntrustedKey = errors.New("untrusted key")
	// ErrInvalidSignature is returned when a message carries a signature that
	// does not verify.
	ErrInvalidSignature = errors.New("invalid signature")
	// ErrMissingMessage is returned by BuildKeyChain when no message is
	// available for a key of the chain.
	ErrMissingMessage = errors.New("no message for key")
)
