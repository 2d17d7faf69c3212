package keyring

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	cm "github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
)

// NonceSize is the length of the random nonce of signed messages.
const NonceSize = 32

// SignOptions overrides the nonce and creation time of a signed message.
// Zero values are replaced by a random nonce and the current time.
type SignOptions struct {
	Nonce   []byte
	Created time.Time
}

// VerifyOptions controls how much trust Verify demands.
type VerifyOptions struct {
	// RequireAllKeysBeTrusted demands that every signer be trusted instead
	// of at least one.
	RequireAllKeysBeTrusted bool
	// AllowKeyChains lets a signer be trusted through the KeyChain attached
	// to its signature.
	AllowKeyChains bool
}

// DefaultVerifyOptions is used by Verify.
var DefaultVerifyOptions = VerifyOptions{
	AllowKeyChains: true,
}

// Sign signs payload with every signer. A signer is a *KeyRecord (its secret
// is looked up in the Keyring), a *message.KeyChain (the tip key must be held
// by the Keyring, and the chain is attached to the signature) or a
// *keys.KeyPair (a feed signing with its own secret).
func (k *Keyring) Sign(payload message.Message, signers []interface{}) (*message.SignedMessage, error) {
	return k.SignWithOptions(payload, signers, SignOptions{})
}

// SignWithOptions is Sign with an explicit nonce and creation time.
func (k *Keyring) SignWithOptions(payload message.Message, signers []interface{}, opts SignOptions) (*message.SignedMessage, error) {
	if payload == nil {
		return nil, fmt.Errorf("%w: nil payload", ErrInvalidKey)
	}
	if len(signers) == 0 {
		return nil, fmt.Errorf("%w: no signers", ErrInvalidKey)
	}

	type signer struct {
		pair  *keys.KeyPair
		chain *message.KeyChain
	}

	resolved := make([]signer, 0, len(signers))
	for _, s := range signers {
		switch v := s.(type) {
		case *KeyRecord:
			full := k.GetFullKey(v.PublicKey)
			if full == nil || !full.HasSecretKey() {
				return nil, fmt.Errorf("%w: no secret for %s", ErrInvalidKey, v.Hex())
			}
			kp, _ := full.KeyPair()
			resolved = append(resolved, signer{pair: kp})
		case *message.KeyChain:
			full := k.GetFullKey(v.PublicKey)
			if full == nil || !full.HasSecretKey() {
				return nil, fmt.Errorf("%w: no secret for chain %s", ErrInvalidKey, v.PublicKey)
			}
			kp, _ := full.KeyPair()
			resolved = append(resolved, signer{pair: kp, chain: v})
		case *keys.KeyPair:
			if len(v.SecretKey) == 0 {
				return nil, fmt.Errorf("%w: key pair %s has no secret", ErrInvalidKey, v.PublicKey)
			}
			resolved = append(resolved, signer{pair: v})
		default:
			return nil, fmt.Errorf("%w: cannot sign with %T", ErrInvalidKey, s)
		}
	}

	nonce := opts.Nonce
	if len(nonce) == 0 {
		nonce = make([]byte, NonceSize)
		if _, err := rand.Read(nonce); err != nil {
			return nil, err
		}
	}
	created := opts.Created
	if created.IsZero() {
		created = time.Now()
	}

	msg := &message.SignedMessage{
		Signed: message.Signed{
			Created: created.UTC().Format(message.TimeFormat),
			Nonce:   cm.HexBytes(nonce),
			Payload: message.NewAny(payload),
		},
	}

	data, err := message.Canonical(&msg.Signed)
	if err != nil {
		return nil, err
	}

	for _, s := range resolved {
		priv, err := s.pair.PrivateKey()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
		}
		sig, err := keys.SignBytes(priv, data)
		if err != nil {
			return nil, err
		}
		msg.Signatures = append(msg.Signatures, message.Signature{
			Signature: sig,
			Key:       s.pair.PublicKey,
			KeyChain:  s.chain,
		})
	}

	return msg, nil
}

// ValidateSignatures checks every signature of msg against the canonical form
// of its Signed block. It says nothing about trust.
func (k *Keyring) ValidateSignatures(msg *message.SignedMessage) bool {
	if err := msg.Validate(); err != nil {
		return false
	}

	data, err := message.Canonical(&msg.Signed)
	if err != nil {
		return false
	}
	digest := sha256.Sum256(data)
	digestHex := hex.EncodeToString(digest[:])

	for _, s := range msg.Signatures {
		cacheKey := digestHex + "|" + s.Signature + "|" + s.Key.Hex()
		if ok, hit := k.sigCache.Get(cacheKey); hit {
			if !ok {
				return false
			}
			continue
		}
		ok := keys.VerifyBytes(s.Key, data, s.Signature)
		k.sigCache.Add(cacheKey, ok)
		if !ok {
			return false
		}
	}
	return true
}

// Verify checks msg with DefaultVerifyOptions.
func (k *Keyring) Verify(msg *message.SignedMessage) bool {
	return k.VerifyWithOptions(msg, DefaultVerifyOptions)
}

// VerifyWithOptions fails closed: every signature must be valid, then at
// least one signer, or all of them if requested, must be trusted directly or
// through its KeyChain.
func (k *Keyring) VerifyWithOptions(msg *message.SignedMessage, opts VerifyOptions) bool {
	if !k.ValidateSignatures(msg) {
		return false
	}

	trusted := 0
	for _, s := range msg.Signatures {
		if k.signatureTrusted(s, opts.AllowKeyChains) {
			trusted++
		} else if opts.RequireAllKeysBeTrusted {
			return false
		}
	}
	return trusted > 0
}

func (k *Keyring) signatureTrusted(s message.Signature, allowKeyChains bool) bool {
	if k.IsTrusted(s.Key) {
		return true
	}
	if !allowKeyChains || s.KeyChain == nil || !s.KeyChain.PublicKey.Equal(s.Key) {
		return false
	}
	rec, err := k.FindTrusted(s.KeyChain)
	if err != nil {
		k.logger.WithError(err).WithField("key", s.Key.Hex()).Debug("Key chain rejected")
		return false
	}
	return rec != nil
}

// TrustedSigner returns the public key that makes a signature of msg trusted,
// skipping the signatures of the keys in exclude. A signature backed by a
// KeyChain yields the trusted key at the root of the chain. It returns nil when
// no other signer is trusted.
func (k *Keyring) TrustedSigner(msg *message.SignedMessage, exclude ...keys.PublicKey) keys.PublicKey {
outer:
	for _, s := range msg.Signatures {
		for _, e := range exclude {
			if s.Key.Equal(e) {
				continue outer
			}
		}
		if k.IsTrusted(s.Key) {
			return s.Key
		}
		if s.KeyChain != nil && s.KeyChain.PublicKey.Equal(s.Key) {
			if rec, err := k.FindTrusted(s.KeyChain); err == nil && rec != nil {
				return rec.PublicKey
			}
		}
	}
	return nil
}
