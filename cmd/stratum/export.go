package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/dusk-indust/stratum/internal/export"
)

func runExport(ctx context.Context, a *app, args []string) error {
	fs := a.newFlagSet("export", "[flags]")
	output := fs.StringP("output", "o", "", "write the report to this file instead of stdout")
	if err := parse(fs, args); err != nil {
		return err
	}

	p, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	res, err := p.Merge(ctx)
	if err != nil {
		return err
	}

	out, err := json.MarshalIndent(export.ExportRun(p.Entries, res), "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	out = append(out, '\n')

	if *output == "" {
		_, err = a.stdout.Write(out)
		return err
	}
	if err := os.WriteFile(*output, out, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", *output, err)
	}
	fmt.Fprintf(a.stderr, "wrote %s\n", *output)
	return nil
}
