package keyring

import "github.com/mosaicnetworks/party/src/message"

// Filter selects KeyRecords in FindKey and FindKeys.
type Filter func(*KeyRecord) bool

// OfType selects records of the given key type.
func OfType(t message.KeyType) Filter {
	return func(r *KeyRecord) bool { return r.Type == t }
}

// IsOwn selects records created locally.
func IsOwn() Filter {
	return func(r *KeyRecord) bool { return r.Own }
}

// IsTrusted selects trusted records.
func IsTrusted() Filter {
	return func(r *KeyRecord) bool { return r.Trusted }
}

// NotHint selects records that were admitted by a credential message.
func NotHint() Filter {
	return func(r *KeyRecord) bool { return !r.Hint }
}

// Not inverts a filter.
func Not(f Filter) Filter {
	return func(r *KeyRecord) bool { return !f(r) }
}

func matchAll(r *KeyRecord, filters []Filter) bool {
	for _, f := range filters {
		if !f(r) {
			return false
		}
	}
	return true
}
