// Package storage persists a user's study history, favorites and saved
// prayers. Documents live in a device backend (SQLite) or, for signed-in
// Google users, a cloud backend; Library routes between them by UserContext.
package storage

import (
	"context"
	"encoding/json"

	lerrors "github.com/FocuswithJustin/lumina/core/errors"
)

// Backend is a document store addressed by string keys. Values are opaque
// JSON documents.
type Backend interface {
	// Name identifies the backend in logs and metrics ("device", "cloud").
	Name() string

	// Get returns the stored document. ok is false when the key is absent.
	Get(ctx context.Context, key string) (value []byte, ok bool, err error)

	// Put replaces the document at key.
	Put(ctx context.Context, key string, value []byte) error

	// Delete removes key. Deleting a missing key is not an error.
	Delete(ctx context.Context, key string) error

	Close() error
}

// GetJSON decodes the document at key into v. ok is false when the key is
// absent, leaving v untouched.
func GetJSON(ctx context.Context, b Backend, key string, v any) (bool, error) {
	data, ok, err := b.Get(ctx, key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, &lerrors.ParseError{Format: "JSON", Path: key, Message: err.Error(), Err: err}
	}
	return true, nil
}

// PutJSON encodes v and stores it at key.
func PutJSON(ctx context.Context, b Backend, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return lerrors.Wrapf(err, "encode %s", key)
	}
	return b.Put(ctx, key, data)
}
