package main

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/spf13/afero"

	"github.com/dusk-indust/stratum/internal/scaffold"
)

// runInit writes a starter stratum.yaml into the config directory and,
// with --mcp, registers the MCP server in .mcp.json.
func runInit(_ context.Context, a *app, args []string) error {
	fs := a.newFlagSet("init", "[flags]")
	force := fs.Bool("force", false, "overwrite existing files")
	mcp := fs.Bool("mcp", false, "add the stratum MCP server to .mcp.json")
	if err := parse(fs, args); err != nil {
		return err
	}

	abs, err := filepath.Abs(a.flags.Dir)
	if err != nil {
		return fmt.Errorf("resolving directory: %w", err)
	}
	actions, err := scaffold.Init(afero.NewOsFs(), abs, scaffold.Options{Force: *force, MCP: *mcp})
	for _, act := range actions {
		fmt.Fprintf(a.stdout, "  %s\n", act)
	}
	if err != nil {
		return err
	}
	fmt.Fprintln(a.stdout, "\nEdit stratum.yaml to point at your sources, then run 'stratum merge'.")
	return nil
}
