package main

import (
	"context"
	"fmt"

	"github.com/dusk-indust/stratum/internal/export"
)

func runDiagram(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("diagram", "")
	if err := parse(fs, args); err != nil {
		return err
	}

	p, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	store, err := p.Provenance(ctx)
	if err != nil {
		return err
	}
	mermaid, err := export.GenerateMermaid(ctx, store)
	if err != nil {
		return err
	}

	fmt.Fprint(a.stdout, mermaid)
	return nil
}
