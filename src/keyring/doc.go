// Package keyring manages key pairs and the trust placed in public keys.
//
// A Keyring stores KeyRecords in a KeyStore, signs payloads with one or more
// keys, and verifies SignedMessages. A message is verified when all of its
// signatures are valid and at least one signer (or every signer, on request)
// is trusted, either directly or through a KeyChain that leads back to a
// trusted key.
//
// KeyChains are proofs of delegation: a device key signed into a party by an
// identity key can sign on behalf of that identity by attaching the chain of
// admission messages that links it to the identity. FindTrusted walks such a
// chain from its tip toward its root and replays the messages bottom-up in a
// throwaway Keyring seeded with the first trusted key it meets.
package keyring
