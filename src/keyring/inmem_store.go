package keyring

import (
	"sort"
	"sync"

	cm "github.com/mosaicnetworks/party/src/common"
)

// InmemKeyStore implements the KeyStore interface with a map. Records are
// copied in and out.
type InmemKeyStore struct {
	sync.RWMutex
	records map[string]*KeyRecord
}

// NewInmemKeyStore creates an empty InmemKeyStore.
func NewInmemKeyStore() *InmemKeyStore {
	return &InmemKeyStore{
		records: make(map[string]*KeyRecord),
	}
}

// Get implements the KeyStore interface.
func (s *InmemKeyStore) Get(key string) (*KeyRecord, error) {
	s.RLock()
	defer s.RUnlock()

	r, ok := s.records[key]
	if !ok {
		return nil, cm.NewStoreErr("InmemKeyStore", cm.KeyNotFound, key)
	}
	return r.Copy(), nil
}

// Set implements the KeyStore interface.
func (s *InmemKeyStore) Set(key string, record *KeyRecord) error {
	s.Lock()
	defer s.Unlock()

	s.records[key] = record.Copy()
	return nil
}

// Delete implements the KeyStore interface.
func (s *InmemKeyStore) Delete(key string) error {
	s.Lock()
	defer s.Unlock()

	delete(s.records, key)
	return nil
}

// Keys implements the KeyStore interface. Keys are sorted.
func (s *InmemKeyStore) Keys() ([]string, error) {
	s.RLock()
	defer s.RUnlock()

	res := make([]string, 0, len(s.records))
	for k := range s.records {
		res = append(res, k)
	}
	sort.Strings(res)
	return res, nil
}

// Close implements the KeyStore interface.
func (s *InmemKeyStore) Close() error {
	return nil
}
