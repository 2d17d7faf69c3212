package keyring

import (
	"fmt"
	"sort"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	cm "github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/crypto/keys"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

// DefaultCacheSize bounds the verification and trust caches when no size is
// given.
const DefaultCacheSize = 5000

// Keyring holds KeyRecords, signs and verifies messages. Records are kept in
// memory and written through to the KeyStore.
type Keyring struct {
	sync.RWMutex

	store   KeyStore
	records map[string]*KeyRecord

	cacheSize  int
	sigCache   *lru.Cache[string, bool]
	trustCache *lru.Cache[string, string]

	logger *logrus.Entry
}

// NewKeyring creates a Keyring backed by store. A nil store is replaced by an
// InmemKeyStore, a non-positive cacheSize by DefaultCacheSize, and a nil
// logger by one that discards everything. Records already in the store are
// not read until Load is called.
func NewKeyring(store KeyStore, cacheSize int, logger *logrus.Entry) *Keyring {
	if store == nil {
		store = NewInmemKeyStore()
	}
	if cacheSize <= 0 {
		cacheSize = DefaultCacheSize
	}
	if logger == nil {
		logger = cm.DiscardEntry()
	}

	// lru.New only fails on a non-positive size
	sigCache, _ := lru.New[string, bool](cacheSize)
	trustCache, _ := lru.New[string, string](cacheSize)

	return &Keyring{
		store:      store,
		records:    make(map[string]*KeyRecord),
		cacheSize:  cacheSize,
		sigCache:   sigCache,
		trustCache: trustCache,
		logger:     logger,
	}
}

// Load reads every record of the store into memory.
func (k *Keyring) Load() error {
	k.Lock()
	defer k.Unlock()

	hexes, err := k.store.Keys()
	if err != nil {
		return err
	}
	for _, h := range hexes {
		r, err := k.store.Get(h)
		if err != nil {
			return err
		}
		k.records[h] = r
	}

	k.logger.WithField("keys", len(hexes)).Debug("Keyring loaded")
	return nil
}

// CreateKeyRecord generates a new key pair and adds it as an own, trusted key
// of type t.
func (k *Keyring) CreateKeyRecord(t message.KeyType) (*KeyRecord, error) {
	kp, err := keys.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	return k.AddKeyRecord(&KeyRecord{
		PublicKey: kp.PublicKey,
		SecretKey: kp.SecretKey,
		Type:      t,
		Trusted:   true,
	})
}

// AddKeyRecord adds a record holding a secret key. The record becomes Own.
// The secret key must derive the public key.
func (k *Keyring) AddKeyRecord(record *KeyRecord) (*KeyRecord, error) {
	if record == nil || !record.HasSecretKey() {
		return nil, fmt.Errorf("%w: record has no secret key", ErrInvalidKey)
	}
	kp, _ := record.KeyPair()
	if err := kp.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	r := record.Copy()
	r.Own = true
	return k.insert(r)
}

// AddPublicKey adds a record without a secret key. The record is never Own.
func (k *Keyring) AddPublicKey(record *KeyRecord) (*KeyRecord, error) {
	if record == nil {
		return nil, fmt.Errorf("%w: nil record", ErrInvalidKey)
	}
	if err := record.PublicKey.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidKey, err)
	}

	r := record.public()
	r.Own = false
	return k.insert(r)
}

func (k *Keyring) insert(r *KeyRecord) (*KeyRecord, error) {
	k.Lock()
	defer k.Unlock()

	h := r.Hex()
	if _, ok := k.records[h]; ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyExists, h)
	}

	now := time.Now().UTC()
	if r.Created.IsZero() {
		r.Created = now
	}
	r.Added = now

	if err := k.store.Set(h, r); err != nil {
		return nil, err
	}
	k.records[h] = r

	k.logger.WithFields(logrus.Fields{
		"key":     h,
		"type":    r.Type,
		"own":     r.Own,
		"trusted": r.Trusted,
		"hint":    r.Hint,
	}).Debug("Key added")

	return r.public(), nil
}

// UpdateKey overwrites the Type, Trusted and Hint attributes of a known key.
// It never touches the secret key or the Own flag.
func (k *Keyring) UpdateKey(record *KeyRecord) (*KeyRecord, error) {
	k.Lock()
	defer k.Unlock()

	h := record.Hex()
	existing, ok := k.records[h]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, h)
	}

	r := existing.Copy()
	r.Type = record.Type
	r.Trusted = record.Trusted
	r.Hint = record.Hint

	if err := k.store.Set(h, r); err != nil {
		return nil, err
	}
	k.records[h] = r

	if !r.Trusted {
		k.trustCache.Purge()
	}

	return r.public(), nil
}

// DeleteSecretKey strips the secret key of a known record.
func (k *Keyring) DeleteSecretKey(publicKey keys.PublicKey) error {
	k.Lock()
	defer k.Unlock()

	h := publicKey.Hex()
	existing, ok := k.records[h]
	if !ok {
		return fmt.Errorf("%w: %s", ErrKeyNotFound, h)
	}

	r := existing.public()
	if err := k.store.Set(h, r); err != nil {
		return err
	}
	k.records[h] = r
	return nil
}

// DeleteAllKeyRecords removes every record from the Keyring and its store.
func (k *Keyring) DeleteAllKeyRecords() error {
	k.Lock()
	defer k.Unlock()

	for h := range k.records {
		if err := k.store.Delete(h); err != nil {
			return err
		}
	}
	k.records = make(map[string]*KeyRecord)
	k.sigCache.Purge()
	k.trustCache.Purge()
	return nil
}

// GetKey returns the record of publicKey without its secret key, or nil.
func (k *Keyring) GetKey(publicKey keys.PublicKey) *KeyRecord {
	k.RLock()
	defer k.RUnlock()

	r, ok := k.records[publicKey.Hex()]
	if !ok {
		return nil
	}
	return r.public()
}

// GetFullKey returns the record of publicKey including its secret key, or nil.
func (k *Keyring) GetFullKey(publicKey keys.PublicKey) *KeyRecord {
	k.RLock()
	defer k.RUnlock()

	r, ok := k.records[publicKey.Hex()]
	if !ok {
		return nil
	}
	return r.Copy()
}

// HasKey reports whether publicKey is known.
func (k *Keyring) HasKey(publicKey keys.PublicKey) bool {
	k.RLock()
	defer k.RUnlock()

	_, ok := k.records[publicKey.Hex()]
	return ok
}

// HasSecretKey reports whether the secret of publicKey is known.
func (k *Keyring) HasSecretKey(publicKey keys.PublicKey) bool {
	k.RLock()
	defer k.RUnlock()

	r, ok := k.records[publicKey.Hex()]
	return ok && r.HasSecretKey()
}

// IsTrusted reports whether publicKey is known and trusted.
func (k *Keyring) IsTrusted(publicKey keys.PublicKey) bool {
	k.RLock()
	defer k.RUnlock()

	r, ok := k.records[publicKey.Hex()]
	return ok && r.Trusted
}

// Keys returns every record, without secret keys, sorted by public key.
func (k *Keyring) Keys() []*KeyRecord {
	return k.FindKeys()
}

// FindKeys returns the records matching all the filters, sorted by public key.
func (k *Keyring) FindKeys(filters ...Filter) []*KeyRecord {
	k.RLock()
	defer k.RUnlock()

	res := []*KeyRecord{}
	for _, r := range k.records {
		if matchAll(r, filters) {
			res = append(res, r.public())
		}
	}
	sort.Slice(res, func(i, j int) bool {
		return res[i].Hex() < res[j].Hex()
	})
	return res
}

// FindKey returns the first record matching all the filters, or nil. It logs
// a warning when more than one record matches.
func (k *Keyring) FindKey(filters ...Filter) *KeyRecord {
	res := k.FindKeys(filters...)
	if len(res) == 0 {
		return nil
	}
	if len(res) > 1 {
		k.logger.WithField("matches", len(res)).Warn("FindKey: more than one key matches")
	}
	return res[0]
}

// Close closes the underlying store.
func (k *Keyring) Close() error {
	return k.store.Close()
}
