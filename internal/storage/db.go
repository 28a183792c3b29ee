// Package storage provides the key-value stores behind the gateway's
// output cache.
package storage

import "errors"

// ErrNotFound is returned by Get for a missing key.
var ErrNotFound = errors.New("key not found")

// DB is the interface for key-value storage. Implementations are safe for
// concurrent use.
type DB interface {
	Get(key []byte) ([]byte, error)
	Put(key, value []byte) error
	Delete(key []byte) error
	Has(key []byte) (bool, error)
	// ForEach calls fn for every key under prefix. A non-nil error from fn
	// stops iteration and is returned.
	ForEach(prefix []byte, fn func(key, value []byte) error) error
	Close() error
}
