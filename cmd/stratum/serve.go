package main

import (
	"context"

	"github.com/dusk-indust/stratum/internal/mcptools"
)

// runServeMCP serves the project's MCP tools on stdio until stdin closes.
func runServeMCP(ctx context.Context, a *app) error {
	p, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer p.Close()

	server := mcptools.NewMCPServer(mcptools.NewService(p))
	return mcptools.RunMCPServerStdio(ctx, server)
}
