//go:build !cgo

package provenance

import (
	"context"
	"errors"
)

// ErrPersistentUnavailable is returned by Open for a non-empty dir in
// builds without cgo.
var ErrPersistentUnavailable = errors.New("provenance: persistent store requires a cgo build")

// Open returns an in-memory store for an empty dir. Persistent stores need
// the Kuzu driver, which is only compiled with cgo.
func Open(_ context.Context, dir string) (Store, error) {
	if dir == "" {
		return NewMemStore(), nil
	}
	return nil, ErrPersistentUnavailable
}
