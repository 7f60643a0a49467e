package main

import (
	"context"
	"fmt"
	"path"
)

func runExplain(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("explain", "<path>")
	if err := parse(fs, args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return &exitError{code: 2, err: fmt.Errorf("usage: stratum explain <path>")}
	}
	rel := path.Clean(fs.Arg(0))

	p, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	store, err := p.Provenance(ctx)
	if err != nil {
		return err
	}
	f, err := store.GetFile(ctx, rel)
	if err != nil {
		return err
	}
	if f == nil {
		return fmt.Errorf("no merged output named %s", rel)
	}
	contributors, err := store.Contributors(ctx, rel)
	if err != nil {
		return err
	}

	fmt.Fprintln(a.stdout, f.Path)
	fmt.Fprintf(a.stdout, "  merger: %s\n", f.Merger)
	fmt.Fprintf(a.stdout, "  digest: %s\n", f.Digest)
	fmt.Fprintf(a.stdout, "  run:    %s\n", f.RunID)
	fmt.Fprintln(a.stdout, "  sources (lowest priority first):")
	for i, c := range contributors {
		fmt.Fprintf(a.stdout, "    %d. %s\n", i+1, c)
	}
	return nil
}
