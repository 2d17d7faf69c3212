package feed

import (
	"fmt"
	"sync"

	"github.com/mosaicnetworks/party/src/message"
)

// InmemStore is a Store held in memory.
type InmemStore struct {
	sync.RWMutex
	msgs []*message.SignedMessage
}

// NewInmemStore creates an empty InmemStore.
func NewInmemStore() *InmemStore {
	return &InmemStore{}
}

// Append implements the Store interface.
func (s *InmemStore) Append(msgs ...*message.SignedMessage) error {
	s.Lock()
	defer s.Unlock()
	s.msgs = append(s.msgs, msgs...)
	return nil
}

// Messages implements the Store interface.
func (s *InmemStore) Messages(from int) ([]*message.SignedMessage, error) {
	s.RLock()
	defer s.RUnlock()
	if from < 0 || from > len(s.msgs) {
		return nil, fmt.Errorf("index %d out of range [0, %d]", from, len(s.msgs))
	}
	res := make([]*message.SignedMessage, len(s.msgs)-from)
	copy(res, s.msgs[from:])
	return res, nil
}

// Len implements the Store interface.
func (s *InmemStore) Len() int {
	s.RLock()
	defer s.RUnlock()
	return len(s.msgs)
}

// Close implements the Store interface.
func (s *InmemStore) Close() error {
	return nil
}
