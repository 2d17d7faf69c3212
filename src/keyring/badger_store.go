package keyring

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/party/src/common"
	"github.com/sirupsen/logrus"
)

const keyRecordPrefix = "keyrecord"

// BadgerKeyStore implements the KeyStore interface on top of a badger
// database. Records are stored as JSON under "keyrecord_<hex>".
type BadgerKeyStore struct {
	db   *badger.DB
	path string
}

// NewBadgerKeyStore opens, or creates, the database at path.
func NewBadgerKeyStore(path string, logger *logrus.Entry) (*BadgerKeyStore, error) {
	if err := os.MkdirAll(path, 0700); err != nil {
		return nil, err
	}

	if logger == nil {
		logger = cm.DiscardEntry()
	}

	opts := badger.DefaultOptions(path).
		WithSyncWrites(false).
		WithLogger(cm.NewBadgerLogger(logger))

	handle, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}

	return &BadgerKeyStore{
		db:   handle,
		path: path,
	}, nil
}

// Path returns the directory of the database.
func (s *BadgerKeyStore) Path() string {
	return s.path
}

// Get implements the KeyStore interface.
func (s *BadgerKeyStore) Get(key string) (*KeyRecord, error) {
	var val []byte
	err := s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(recordKey(key))
		if err != nil {
			return err
		}
		val, err = item.ValueCopy(nil)
		return err
	})
	if err != nil {
		return nil, mapError(err, key)
	}

	record := new(KeyRecord)
	if err := json.Unmarshal(val, record); err != nil {
		return nil, err
	}
	return record, nil
}

// Set implements the KeyStore interface.
func (s *BadgerKeyStore) Set(key string, record *KeyRecord) error {
	val, err := json.Marshal(record)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(key), val)
	})
}

// Delete implements the KeyStore interface.
func (s *BadgerKeyStore) Delete(key string) error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(recordKey(key))
	})
}

// Keys implements the KeyStore interface. Badger iterates in key order, so
// the result is sorted.
func (s *BadgerKeyStore) Keys() ([]string, error) {
	res := []string{}
	prefix := []byte(keyRecordPrefix + "_")
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			k := string(it.Item().Key())
			res = append(res, strings.TrimPrefix(k, string(prefix)))
		}
		return nil
	})
	return res, err
}

// Close implements the KeyStore interface.
func (s *BadgerKeyStore) Close() error {
	return s.db.Close()
}

func recordKey(key string) []byte {
	return []byte(fmt.Sprintf("%s_%s", keyRecordPrefix, key))
}

func mapError(err error, key string) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return cm.NewStoreErr("BadgerKeyStore", cm.KeyNotFound, key)
	}
	return err
}
