// Package kvstore defines the associative container the dispatch table is
// layered on: a string-keyed store with duplicate-rejecting insert, a
// per-value destructor run on removal, and full key enumeration.
package kvstore

import "errors"

// ErrDuplicateKey is returned by Insert when the key is already present.
var ErrDuplicateKey = errors.New("kvstore: duplicate key")

// FreeFunc releases a value when it leaves the store. It runs on Delete and
// Purge, once per stored value.
type FreeFunc func(value any)

// Store is the contract the dispatch table registry depends on. The zero
// value of an implementation is not required to be usable.
//
// Implementations are not required to be safe for concurrent use; callers
// needing concurrency must synchronize externally.
type Store interface {
	// Insert stores value under key. A nil free is allowed and means the
	// value needs no teardown. Fails with ErrDuplicateKey if key is present.
	Insert(key string, value any, free FreeFunc) error

	// Lookup returns the value stored under key, if any.
	Lookup(key string) (any, bool)

	// Delete removes key, running its destructor. Removing an absent key is
	// a no-op.
	Delete(key string)

	// Keys returns every stored key. Order is unspecified but stable for an
	// unmodified store.
	Keys() []string

	// Len returns the number of stored entries.
	Len() int

	// Purge removes every entry, running each destructor.
	Purge()
}
