//go:build cgo

package provenance

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *KuzuStore {
	t.Helper()
	s, err := NewKuzuStore()
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	require.NoError(t, s.InitSchema(context.Background()))
	return s
}

func TestKuzuStore_Record(t *testing.T) {
	exerciseStore(t, newTestStore(t))
}

func TestKuzuStore_InitSchemaIdempotent(t *testing.T) {
	s := newTestStore(t)
	assert.NoError(t, s.InitSchema(context.Background()))
}

func TestOpen_PersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "provenance.kz")

	s, err := Open(ctx, dir)
	require.NoError(t, err)
	entries, res := sampleRun()
	require.NoError(t, Record(ctx, s, entries, res))
	require.NoError(t, s.Close())

	s, err = Open(ctx, dir)
	require.NoError(t, err)
	defer s.Close()
	contributors, err := s.Contributors(ctx, "settings.json")
	require.NoError(t, err)
	assert.Equal(t, []string{"org", "team", "personal"}, contributors)
}
