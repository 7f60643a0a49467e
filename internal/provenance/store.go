// Package provenance records which sources contributed to each merged
// file, as a graph of Source and OutputFile nodes joined by ordered
// CONTRIBUTED edges.
package provenance

import (
	"context"
	"io"
)

// Store is the provenance graph backend.
// Implementations: KuzuStore (persistent, cgo), MemStore.
type Store interface {
	io.Closer

	// InitSchema is called once before any data is inserted.
	InitSchema(ctx context.Context) error

	// Reset removes every node and edge.
	Reset(ctx context.Context) error

	AddSource(ctx context.Context, node SourceNode) error
	AddFile(ctx context.Context, node FileNode) error
	AddContribution(ctx context.Context, c Contribution) error

	// GetFile returns the file at path, or nil if it is not recorded.
	GetFile(ctx context.Context, path string) (*FileNode, error)

	// Contributors returns the sources of path, lowest priority first.
	Contributors(ctx context.Context, path string) ([]string, error)

	// FilesFrom returns the paths source contributed to, sorted.
	FilesFrom(ctx context.Context, source string) ([]string, error)

	// Sources returns all sources ordered by rank.
	Sources(ctx context.Context) ([]SourceNode, error)

	// Contributions returns every edge, ordered by path then position.
	Contributions(ctx context.Context) ([]Contribution, error)

	Stats(ctx context.Context) (*Stats, error)
}

// SourceNode is one hierarchy level.
type SourceNode struct {
	Name string `json:"name"`
	Rank int    `json:"rank"`
	Root string `json:"root"`
}

// FileNode is one merged output file.
type FileNode struct {
	Path   string `json:"path"`
	Merger string `json:"merger"`
	Digest string `json:"digest"`
	RunID  string `json:"runId"`
}

// Contribution links a source to a file it contributed to. Position is the
// source's index among the file's contributors.
type Contribution struct {
	Source   string `json:"source"`
	Path     string `json:"path"`
	Position int    `json:"position"`
}

// Stats counts the nodes and edges in a store.
type Stats struct {
	SourceCount       int `json:"sourceCount"`
	FileCount         int `json:"fileCount"`
	ContributionCount int `json:"contributionCount"`
}
