//go:build cgo

package provenance

import "context"

// Open returns the store at dir with its schema initialized. An empty dir
// yields an in-memory store.
func Open(ctx context.Context, dir string) (Store, error) {
	if dir == "" {
		return NewMemStore(), nil
	}
	s, err := NewKuzuFileStore(dir)
	if err != nil {
		return nil, err
	}
	if err := s.InitSchema(ctx); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
