package provenance

import (
	"context"
	"sort"
	"sync"
)

// Compile-time assertion: *MemStore satisfies Store.
var _ Store = (*MemStore)(nil)

// MemStore implements Store using Go maps. Thread-safe via sync.RWMutex.
type MemStore struct {
	mu            sync.RWMutex
	sources       map[string]SourceNode
	files         map[string]FileNode
	contributions []Contribution
}

// NewMemStore returns an initialized MemStore ready for use.
func NewMemStore() *MemStore {
	return &MemStore{
		sources: make(map[string]SourceNode),
		files:   make(map[string]FileNode),
	}
}

// InitSchema is a no-op for the in-memory store.
func (m *MemStore) InitSchema(_ context.Context) error {
	return nil
}

func (m *MemStore) Reset(_ context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources = make(map[string]SourceNode)
	m.files = make(map[string]FileNode)
	m.contributions = nil
	return nil
}

func (m *MemStore) AddSource(_ context.Context, node SourceNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sources[node.Name] = node
	return nil
}

func (m *MemStore) AddFile(_ context.Context, node FileNode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.files[node.Path] = node
	return nil
}

func (m *MemStore) AddContribution(_ context.Context, c Contribution) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.contributions = append(m.contributions, c)
	return nil
}

func (m *MemStore) GetFile(_ context.Context, path string) (*FileNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	f, ok := m.files[path]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *MemStore) Contributors(_ context.Context, path string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var matched []Contribution
	for _, c := range m.contributions {
		if c.Path == path {
			matched = append(matched, c)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return matched[i].Position < matched[j].Position })
	out := make([]string, len(matched))
	for i, c := range matched {
		out[i] = c.Source
	}
	return out, nil
}

func (m *MemStore) FilesFrom(_ context.Context, source string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0)
	for _, c := range m.contributions {
		if c.Source == source {
			out = append(out, c.Path)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (m *MemStore) Sources(_ context.Context) ([]SourceNode, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]SourceNode, 0, len(m.sources))
	for _, s := range m.sources {
		out = append(out, s)
	}
	sortSources(out)
	return out, nil
}

func (m *MemStore) Contributions(_ context.Context) ([]Contribution, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := append([]Contribution(nil), m.contributions...)
	sortContributions(out)
	return out, nil
}

func (m *MemStore) Stats(_ context.Context) (*Stats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return &Stats{
		SourceCount:       len(m.sources),
		FileCount:         len(m.files),
		ContributionCount: len(m.contributions),
	}, nil
}

// Close is a no-op for the in-memory store.
func (m *MemStore) Close() error {
	return nil
}

func sortSources(s []SourceNode) {
	sort.Slice(s, func(i, j int) bool {
		if s[i].Rank != s[j].Rank {
			return s[i].Rank < s[j].Rank
		}
		return s[i].Name < s[j].Name
	})
}

func sortContributions(c []Contribution) {
	sort.Slice(c, func(i, j int) bool {
		if c[i].Path != c[j].Path {
			return c[i].Path < c[j].Path
		}
		return c[i].Position < c[j].Position
	})
}
