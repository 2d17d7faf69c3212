package common

import "fmt"

// StoreErrType enumerates the failure modes of the key stores.
type StoreErrType uint32

const (
	// KeyNotFound is returned when the requested key has no record
	KeyNotFound StoreErrType = iota
	// KeyAlreadyExists is returned when a record would be silently overwritten
	KeyAlreadyExists
	// Empty is returned when a collection has no items
	Empty
	// Closed is returned when operating on a store that has been closed
	Closed
)

// StoreErr is the error returned by stores. It records which store failed,
// on which key, and why.
type StoreErr struct {
	dataType string
	errType  StoreErrType
	key      string
}

// NewStoreErr creates a StoreErr
func NewStoreErr(dataType string, errType StoreErrType, key string) StoreErr {
	return StoreErr{
		dataType: dataType,
		errType:  errType,
		key:      key,
	}
}

// Error implements the error interface
func (e StoreErr) Error() string {
	m := ""
	switch e.errType {
	case KeyNotFound:
		m = "Not Found"
	case KeyAlreadyExists:
		m = "Key Already Exists"
	case Empty:
		m = "Empty"
	case Closed:
		m = "Closed"
	}

	return fmt.Sprintf("%s, %s, %s", e.dataType, e.key, m)
}

// IsStore checks that an error is of type StoreErr and that it's code matches
// the provided StoreErr code.
func IsStore(err error, t StoreErrType) bool {
	storeErr, ok := err.(StoreErr)
	return ok && storeErr.errType == t
}
