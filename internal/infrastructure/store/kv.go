package store

import (
	"context"
	"errors"
)

var ErrEmptyKey = errors.New("store: empty key")

// KV holds opaque blobs by key. A missing key is not an error.
type KV interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte) error
}

// KeyLister is implemented by backends that can enumerate keys by prefix.
type KeyLister interface {
	Keys(ctx context.Context, prefix string) ([]string, error)
}

func checkKey(key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return nil
}
