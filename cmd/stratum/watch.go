package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/stratum/internal/watch"
	"github.com/dusk-indust/stratum/internal/writer"
)

func runWatch(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("watch", "[flags]")
	debounce := fs.Duration("debounce", watch.DefaultDebounce, "wait this long for changes to settle")
	if err := parse(fs, args); err != nil {
		return err
	}

	p, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	apply := func(ctx context.Context) error {
		res, report, err := p.Apply(ctx, false)
		if err != nil {
			return err
		}
		for _, wr := range report.Written {
			if wr.Action != writer.ActionUnchanged {
				fmt.Fprintln(a.stdout, wr.Line())
			}
		}
		// Failures are reported but do not stop the watcher.
		_ = reportProblems(a, res, report.Counts)
		return nil
	}
	if err := apply(ctx); err != nil {
		return err
	}

	w := watch.New(p.Entries, func(ctx context.Context, c watch.Change) error {
		fmt.Fprintf(a.stderr, "%d change(s), merging\n", len(c.Paths))
		return apply(ctx)
	}, watch.WithExcludes(p.Excludes), watch.WithDebounce(*debounce), watch.WithLogger(p.Logger))

	fmt.Fprintln(a.stderr, "watching sources (Ctrl-C to stop)")
	return w.Run(ctx)
}
