package keyring

// KeyStore is the persistence medium behind a Keyring: a map from the hex
// form of a public key to its KeyRecord. Get returns a common.StoreErr with
// type KeyNotFound for unknown keys.
type KeyStore interface {
	Get(key string) (*KeyRecord, error)
	Set(key string, record *KeyRecord) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}
