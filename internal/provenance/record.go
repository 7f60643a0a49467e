package provenance

import (
	"context"
	"fmt"

	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/source"
)

// Record replaces the store's contents with the provenance of res.
// Failed files are not recorded.
func Record(ctx context.Context, store Store, entries []source.Entry, res *orchestrator.Result) error {
	if err := store.Reset(ctx); err != nil {
		return fmt.Errorf("provenance: reset: %w", err)
	}
	for _, e := range entries {
		if err := store.AddSource(ctx, SourceNode{Name: e.Name, Rank: e.Rank, Root: e.Root}); err != nil {
			return fmt.Errorf("provenance: add source %s: %w", e.Name, err)
		}
	}
	for _, p := range res.Paths() {
		if err := ctx.Err(); err != nil {
			return err
		}
		f := res.Files[p]
		node := FileNode{Path: f.Path, Merger: f.Merger, Digest: f.Digest, RunID: res.RunID}
		if err := store.AddFile(ctx, node); err != nil {
			return fmt.Errorf("provenance: add file %s: %w", p, err)
		}
		for i, src := range f.Contributors {
			c := Contribution{Source: src, Path: f.Path, Position: i}
			if err := store.AddContribution(ctx, c); err != nil {
				return fmt.Errorf("provenance: add contribution %s -> %s: %w", src, p, err)
			}
		}
	}
	return nil
}
