package keyring

import (
	"fmt"

	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

// BuildKeyChain builds the KeyChain proving that publicKey signed the message
// stored for it in messages (keyed by public key hex). Co-signers of that
// message are followed recursively, except those in exclude and those already
// visited higher up the chain, so that mutually co-signing keys terminate.
// Co-signers without a message of their own, like the party key, are roots.
func (k *Keyring) BuildKeyChain(publicKey keys.PublicKey, messages map[string]*message.SignedMessage, exclude []keys.PublicKey) (*message.KeyChain, error) {
	visited := make(map[string]bool, len(exclude))
	for _, e := range exclude {
		visited[e.Hex()] = true
	}
	return k.buildKeyChain(publicKey, messages, visited)
}

func (k *Keyring) buildKeyChain(publicKey keys.PublicKey, messages map[string]*message.SignedMessage, visited map[string]bool) (*message.KeyChain, error) {
	msg, ok := messages[publicKey.Hex()]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingMessage, publicKey.Hex())
	}
	if !k.ValidateSignatures(msg) {
		return nil, fmt.Errorf("%w: message for %s", ErrInvalidSignature, publicKey.Hex())
	}
	if !msg.IsSignedBy(publicKey) {
		return nil, fmt.Errorf("%w: message for %s is not signed by it", ErrInvalidKey, publicKey.Hex())
	}

	chain := &message.KeyChain{
		PublicKey: publicKey,
		Message:   msg,
	}

	// every signer of this message is off limits for the parents
	next := make(map[string]bool, len(visited)+len(msg.Signatures)+1)
	for h := range visited {
		next[h] = true
	}
	next[publicKey.Hex()] = true
	for _, s := range msg.Signatures {
		next[s.Key.Hex()] = true
	}

	for _, s := range msg.Signatures {
		h := s.Key.Hex()
		if visited[h] || s.Key.Equal(publicKey) {
			continue
		}
		if _, ok := messages[h]; !ok {
			continue
		}
		parent, err := k.buildKeyChain(s.Key, messages, next)
		if err != nil {
			return nil, err
		}
		chain.Parents = append(chain.Parents, parent)
	}

	return chain, nil
}

// FindTrusted walks chain from its tip toward its roots and returns the first
// trusted record it finds, after checking that every message between that
// record and the tip verifies. Results are cached per tip key.
//
// It returns nil and no error when nothing in the chain is known, and
// ErrUntrustedKey when any known signer of a node is not trusted, even if
// another signer is. The two cases are kept apart on purpose: an unknown chain may
// become valid once more of the log is replayed, an untrusted one may not.
func (k *Keyring) FindTrusted(chain *message.KeyChain) (*KeyRecord, error) {
	if chain == nil || chain.Message == nil || len(chain.PublicKey) == 0 {
		return nil, nil
	}

	tip := chain.PublicKey.Hex()
	if h, ok := k.trustCache.Get(tip); ok {
		k.RLock()
		r, known := k.records[h]
		k.RUnlock()
		if known && r.Trusted {
			return r.public(), nil
		}
		k.trustCache.Remove(tip)
	}

	rec, err := k.findTrusted(chain, nil, make(map[string]bool))
	if err != nil {
		return nil, err
	}
	if rec != nil {
		k.trustCache.Add(tip, rec.Hex())
	}
	return rec, nil
}

// path holds the nodes from the tip down to, and excluding, node.
func (k *Keyring) findTrusted(node *message.KeyChain, path []*message.KeyChain, visited map[string]bool) (*KeyRecord, error) {
	if node == nil || node.Message == nil {
		return nil, nil
	}
	h := node.PublicKey.Hex()
	if visited[h] {
		return nil, nil
	}
	visited[h] = true

	if !node.Message.IsSignedBy(node.PublicKey) || !k.ValidateSignatures(node.Message) {
		k.logger.WithField("key", h).Debug("Key chain node not signed by its key")
		return nil, nil
	}

	path = append(path[:len(path):len(path)], node)

	// a known signer that is not trusted fails the node, whoever else signed it
	var trusted *KeyRecord
	for _, s := range node.Message.Signatures {
		r := k.GetKey(s.Key)
		if r == nil {
			continue
		}
		if !r.Trusted {
			return nil, fmt.Errorf("%w: chain node %s is signed by %s", ErrUntrustedKey, h, r.Hex())
		}
		if trusted == nil {
			trusted = r
		}
	}

	if trusted != nil {
		if len(path) == 1 {
			if k.VerifyWithOptions(node.Message, VerifyOptions{}) {
				return trusted, nil
			}
			return nil, nil
		}
		if k.rederive(trusted, path) {
			return trusted, nil
		}
		k.logger.WithFields(logrus.Fields{
			"tip":     path[0].PublicKey.Hex(),
			"trusted": trusted.Hex(),
		}).Warn("Key chain does not verify from its trusted key")
		return nil, nil
	}

	for _, parent := range node.Parents {
		r, err := k.findTrusted(parent, path, visited)
		if err != nil {
			return nil, err
		}
		if r != nil {
			return r, nil
		}
	}
	return nil, nil
}

// rederive replays path bottom-up in a throwaway Keyring that only trusts
// root. Each message must verify against the keys trusted so far, and its
// signers become trusted in turn.
func (k *Keyring) rederive(root *KeyRecord, path []*message.KeyChain) bool {
	tmp := NewKeyring(nil, len(path)*4, k.logger)
	if _, err := tmp.AddPublicKey(&KeyRecord{
		PublicKey: root.PublicKey,
		Type:      root.Type,
		Trusted:   true,
	}); err != nil {
		return false
	}

	for i := len(path) - 1; i >= 0; i-- {
		msg := path[i].Message
		if !tmp.VerifyWithOptions(msg, VerifyOptions{}) {
			return false
		}
		for _, s := range msg.Signatures {
			if tmp.HasKey(s.Key) {
				continue
			}
			if _, err := tmp.AddPublicKey(&KeyRecord{PublicKey: s.Key, Trusted: true}); err != nil {
				return false
			}
		}
	}

	return tmp.IsTrusted(path[0].PublicKey)
}
