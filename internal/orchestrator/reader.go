package orchestrator

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/dusk-indust/stratum/internal/source"
)

// readResult holds one file of a source after reading. Err is a
// *source.ReadError when the file could not be read.
type readResult struct {
	Path    string
	Content string
	Err     error
}

// readLevel reads every file of entry in parallel, at most
// o.readConcurrency at a time. Results come back in the order of files.
// Read failures are per file and reported in the results; the returned
// error is only ever the context's.
func (o *Orchestrator) readLevel(ctx context.Context, entry source.Entry, files []string) ([]readResult, error) {
	results := make([]readResult, len(files))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.readConcurrency)

	for i, rel := range files {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := o.fs.ReadText(entry.Root, rel)
			if err != nil {
				results[i] = readResult{
					Path: rel,
					Err:  &source.ReadError{Source: entry.Name, Path: rel, Err: err},
				}
				return nil
			}
			results[i] = readResult{Path: rel, Content: text}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
