// Package blob stores uploaded document payloads between the server that
// accepts them and the worker that ingests them. Objects are keyed by name
// and treated as immutable once stored.
package blob

import (
	"context"
	"errors"
)

var ErrNotFound = errors.New("object not found")

var ErrInvalidStoreType = errors.New("no blob store found for given type")

// Store persists raw document payloads. Fetch returns ErrNotFound when the
// named object was never stored or has been removed.
type Store interface {
	Store(ctx context.Context, name string, data []byte) error
	Fetch(ctx context.Context, name string) ([]byte, error)
	Remove(ctx context.Context, name string) error
}

type StoreType int

const (
	StoreTypeLocal StoreType = iota
	StoreTypeMinio
)

var storeTypeMap = map[string]StoreType{
	"local": StoreTypeLocal,
	"minio": StoreTypeMinio,
}

func ParseStoreType(name string) (StoreType, error) {
	t, ok := storeTypeMap[name]
	if !ok {
		return 0, ErrInvalidStoreType
	}
	return t, nil
}
