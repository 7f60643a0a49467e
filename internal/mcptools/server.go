package mcptools

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

// version is set by the linker at build time.
var version = "dev"

// NewMCPServer creates an MCP server with the stratum tools registered.
func NewMCPServer(svc *Service) *mcp.Server {
	server := mcp.NewServer(&mcp.Implementation{
		Name:    "stratum",
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "merge_preview",
		Description: "Merge the configuration hierarchy in memory and report each output file with its merger and contributing sources. Nothing is written.",
	}, svc.MergePreview)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "resolve_merger",
		Description: "Report which merger handles a file path and whether it matched by exact name, extension, or the default.",
	}, svc.ResolveMerger)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_mergers",
		Description: "List the built-in mergers with their settings, and the project's file and extension bindings.",
	}, svc.ListMergers)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "explain_file",
		Description: "Explain an output file: which sources contributed to it, lowest priority first, and which merger combined them.",
	}, svc.ExplainFile)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "get_status",
		Description: "Compare the written target with its manifest and the current sources: clean, modified, missing, stale, new, or orphaned files.",
	}, svc.GetStatus)

	return server
}

// RunMCPServerStdio runs the MCP server on stdio transport, blocking
// until stdin is closed or the context is cancelled.
func RunMCPServerStdio(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
