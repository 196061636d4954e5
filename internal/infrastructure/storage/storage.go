// Package storage provides the persistent key-value store ghost recordings
// are saved to.
package storage

import "errors"

// ErrQuotaExceeded reports that a write would push the backend past its
// size limit.
var ErrQuotaExceeded = errors.New("storage quota exceeded")

// Storage is a string-keyed persistent store. Get returns (nil, nil) for a
// missing key; Set may fail with ErrQuotaExceeded.
type Storage interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	Remove(key string) error
	Keys() ([]string, error)
}
