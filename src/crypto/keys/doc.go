// Package keys implements the public key cryptography used throughout the
// party credentials.
//
// Every participant in a party (the party itself, identities, devices and
// feeds) is designated by a public key. Credential messages are signed with
// the corresponding private keys, and anyone holding the public key can verify
// them.
//
// Keys use elliptic curve cryptography (ECDSA) with the secp256k1 curve, the
// same curve used by Bitcoin and Ethereum. Public keys travel in uncompressed
// form, and signatures are encoded as a pair of base-36 integers.
package keys
