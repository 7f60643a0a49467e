package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/dusk-indust/stratum/internal/orchestrator"
	"github.com/dusk-indust/stratum/internal/project"
)

func runMerge(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("merge", "[flags]")
	dryRun := fs.Bool("dry-run", false, "report what would be written without writing")
	progress := fs.Bool("progress", false, "print per-source progress to stderr")
	if err := parse(fs, args); err != nil {
		return err
	}

	var opts []project.Option
	var wg sync.WaitGroup
	var pr *orchestrator.ProgressReporter
	if *progress {
		pr = orchestrator.NewProgressReporter()
		opts = append(opts, project.WithProgress(pr))
		wg.Add(1)
		go func() {
			defer wg.Done()
			for ev := range pr.Subscribe() {
				fmt.Fprintln(a.stderr, orchestrator.FormatProgress(ev))
			}
		}()
	}

	p, err := a.open(ctx, opts...)
	if err != nil {
		if pr != nil {
			pr.Close()
			wg.Wait()
		}
		return err
	}
	defer p.Close()

	res, report, err := p.Apply(ctx, *dryRun)
	if pr != nil {
		pr.Close()
		wg.Wait()
	}
	if err != nil {
		return err
	}

	prefix := ""
	if *dryRun {
		prefix = "[dry-run] "
	}
	for _, w := range report.Written {
		fmt.Fprintf(a.stdout, "%s%s\n", prefix, w.Line())
	}
	return reportProblems(a, res, report.Counts)
}

// reportProblems prints skipped sources and failures, then a summary.
// It returns an exit error when any file failed.
func reportProblems(a *app, res *orchestrator.Result, counts func() (int, int, int)) error {
	for _, s := range res.Skipped {
		fmt.Fprintf(a.stderr, "skipped source %s: %v\n", s.Source, s.Err)
	}
	for _, f := range res.Failures {
		fmt.Fprintf(a.stderr, "failed %s: %v\n", f.Path, f.Err)
	}
	created, updated, unchanged := counts()
	fmt.Fprintf(a.stdout, "%d created, %d updated, %d unchanged, %d failed\n",
		created, updated, unchanged, len(res.Failures))
	if len(res.Failures) > 0 {
		return &exitError{code: 1, err: fmt.Errorf("%d file(s) could not be merged", len(res.Failures))}
	}
	return nil
}
