package message

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
)

// TypeURLField is the name of the field carrying the type tag of a payload.
// Like every "__" field, it is not covered by signatures.
const TypeURLField = "__type_url"

// ErrUnknownType is returned when decoding a payload whose type URL is not
// registered.
var ErrUnknownType = errors.New("unknown message type")

// Message is implemented by every payload kind.
type Message interface {
	TypeURL() string
}

var (
	registryLock sync.RWMutex
	registry     = make(map[string]func() Message)
)

// Register associates a type URL with a constructor. It panics if the URL is
// already taken.
func Register(typeURL string, ctor func() Message) {
	registryLock.Lock()
	defer registryLock.Unlock()
	if _, ok := registry[typeURL]; ok {
		panic(fmt.Sprintf("message type %s registered twice", typeURL))
	}
	registry[typeURL] = ctor
}

func lookup(typeURL string) (func() Message, bool) {
	registryLock.RLock()
	defer registryLock.RUnlock()
	ctor, ok := registry[typeURL]
	return ctor, ok
}

// Any wraps a Message so that it can be embedded in other messages and
// decoded back into its concrete type.
type Any struct {
	Message Message
}

// NewAny wraps msg.
func NewAny(msg Message) Any {
	return Any{Message: msg}
}

// MarshalJSON implements json.Marshaler. The payload fields are written
// alongside its type URL.
func (a Any) MarshalJSON() ([]byte, error) {
	if a.Message == nil {
		return []byte("null"), nil
	}

	body, err := json.Marshal(a.Message)
	if err != nil {
		return nil, err
	}

	fields := make(map[string]json.RawMessage)
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("payload %s is not an object: %v", a.Message.TypeURL(), err)
	}

	typeURL, err := json.Marshal(a.Message.TypeURL())
	if err != nil {
		return nil, err
	}
	fields[TypeURLField] = typeURL

	return json.Marshal(fields)
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Any) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		a.Message = nil
		return nil
	}

	var head struct {
		TypeURL string `json:"__type_url"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return err
	}

	ctor, ok := lookup(head.TypeURL)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownType, head.TypeURL)
	}

	msg := ctor()
	if err := json.Unmarshal(data, msg); err != nil {
		return err
	}

	a.Message = msg
	return nil
}

// Encode serializes a payload together with its type URL.
func Encode(msg Message) ([]byte, error) {
	return json.Marshal(NewAny(msg))
}

// Decode parses a payload produced by Encode into its concrete type.
func Decode(data []byte) (Message, error) {
	var a Any
	if err := json.Unmarshal(data, &a); err != nil {
		return nil, err
	}
	if a.Message == nil {
		return nil, fmt.Errorf("%w: empty payload", ErrUnknownType)
	}
	return a.Message, nil
}
