package feed

import (
	"encoding/binary"
	"fmt"
	"os"
	"sync"

	"github.com/dgraph-io/badger"
	cm "github.com/mosaicnetworks/party/src/common"
	"github.com/mosaicnetworks/party/src/message"
	"github.com/sirupsen/logrus"
)

const messagePrefix = "msg_"

// BadgerStore is a Store persisted in a badger database. Messages are stored
// in their encoded form under "msg_" followed by their big-endian index, so
// that badger iterates them in log order.
type BadgerStore struct {
	sync.Mutex
	db     *badger.DB
	path   string
	length int
}

// NewBadgerStore opens, or creates, the database at path.
func NewBadgerStore(path string, logger *logrus.Entry) (*BadgerStore, error) {
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

	store := &BadgerStore{
		db:   handle,
		path: path,
	}

	if store.length, err = store.dbCount(); err != nil {
		handle.Close()
		return nil, err
	}

	return store, nil
}

// Path returns the directory of the database.
func (s *BadgerStore) Path() string {
	return s.path
}

// Append implements the Store interface. The messages are written in a single
// transaction.
func (s *BadgerStore) Append(msgs ...*message.SignedMessage) error {
	s.Lock()
	defer s.Unlock()

	err := s.db.Update(func(txn *badger.Txn) error {
		for i, m := range msgs {
			val, err := message.Encode(m)
			if err != nil {
				return err
			}
			if err := txn.Set(messageKey(s.length+i), val); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.length += len(msgs)
	return nil
}

// Messages implements the Store interface.
func (s *BadgerStore) Messages(from int) ([]*message.SignedMessage, error) {
	s.Lock()
	length := s.length
	s.Unlock()

	if from < 0 || from > length {
		return nil, fmt.Errorf("index %d out of range [0, %d]", from, length)
	}

	res := make([]*message.SignedMessage, 0, length-from)
	prefix := []byte(messagePrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(messageKey(from)); it.ValidForPrefix(prefix) && len(res) < length-from; it.Next() {
			val, err := it.Item().ValueCopy(nil)
			if err != nil {
				return err
			}
			decoded, err := message.Decode(val)
			if err != nil {
				return err
			}
			m, ok := decoded.(*message.SignedMessage)
			if !ok {
				return fmt.Errorf("%s is not a signed message", it.Item().Key())
			}
			res = append(res, m)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Len implements the Store interface.
func (s *BadgerStore) Len() int {
	s.Lock()
	defer s.Unlock()
	return s.length
}

// Close implements the Store interface.
func (s *BadgerStore) Close() error {
	return s.db.Close()
}

func (s *BadgerStore) dbCount() (int, error) {
	count := 0
	prefix := []byte(messagePrefix)
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func messageKey(index int) []byte {
	key := make([]byte, len(messagePrefix)+8)
	copy(key, messagePrefix)
	binary.BigEndian.PutUint64(key[len(messagePrefix):], uint64(index))
	return key
}
