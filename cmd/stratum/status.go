package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/dusk-indust/stratum/internal/status"
	"github.com/dusk-indust/stratum/internal/writer"
)

func runStatus(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("status", "[flags]")
	all := fs.BoolP("all", "a", false, "list clean files too")
	if err := parse(fs, args); err != nil {
		return err
	}

	p, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	r, err := p.Status(ctx)
	if errors.Is(err, writer.ErrNoManifest) {
		fmt.Fprintf(a.stdout, "Nothing merged into %s yet.\n", p.Target)
		fmt.Fprintln(a.stdout, "Run 'stratum merge' to write it.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(a.stdout, "Target: %s (last run %s)\n\n", r.Target, r.RunID)
	for _, f := range r.Files {
		if f.State == status.StateClean && !*all {
			continue
		}
		fmt.Fprintf(a.stdout, "  %-9s %s\n", f.State, f.Path)
	}
	if r.Clean() {
		fmt.Fprintf(a.stdout, "  All %d files up to date.\n", len(r.Files))
		return nil
	}
	return &exitError{code: 1}
}
