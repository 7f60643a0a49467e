package mcptools

import (
	"github.com/dusk-indust/stratum/internal/merger"
	"github.com/dusk-indust/stratum/internal/status"
)

// --- MCP Tool Types for --serve-mcp ---
// These let an agent inspect the merged configuration without shelling out.

// MergePreviewInput is the input for the merge_preview MCP tool.
type MergePreviewInput struct {
	Path           string `json:"path,omitempty" jsonschema:"only report this output path (default: all)"`
	IncludeContent bool   `json:"includeContent,omitempty" jsonschema:"include merged file content"`
}

// MergePreviewOutput is the result of the merge_preview MCP tool.
type MergePreviewOutput struct {
	RunID    string           `json:"runId"`
	Files    []PreviewFile    `json:"files"`
	Failures []FailureSummary `json:"failures,omitempty"`
	Skipped  []string         `json:"skipped,omitempty"`
	Notices  []merger.Notice  `json:"notices,omitempty"`
}

// PreviewFile is one merged file.
type PreviewFile struct {
	Path         string   `json:"path"`
	Merger       string   `json:"merger"`
	Contributors []string `json:"contributors"`
	Digest       string   `json:"digest"`
	Content      string   `json:"content,omitempty"`
}

// FailureSummary is a file that could not be merged.
type FailureSummary struct {
	Path   string `json:"path"`
	Source string `json:"source,omitempty"`
	Error  string `json:"error"`
}

// ResolveMergerInput is the input for the resolve_merger MCP tool.
type ResolveMergerInput struct {
	Path string `json:"path" jsonschema:"output path, relative to a source root"`
}

// ResolveMergerOutput is the result of the resolve_merger MCP tool.
type ResolveMergerOutput struct {
	Path   string `json:"path"`
	Merger string `json:"merger"`
	Match  string `json:"match"` // "exact", "extension" or "default"
}

// ListMergersInput is the input for the list_mergers MCP tool.
type ListMergersInput struct{}

// ListMergersOutput is the result of the list_mergers MCP tool.
type ListMergersOutput struct {
	Mergers  []MergerInfo     `json:"mergers"`
	Bindings []merger.Binding `json:"bindings"`
}

// MergerInfo describes a built-in merger and its settings.
type MergerInfo struct {
	Name        string              `json:"name"`
	Preferences []merger.Preference `json:"preferences,omitempty"`
}

// ExplainFileInput is the input for the explain_file MCP tool.
type ExplainFileInput struct {
	Path string `json:"path" jsonschema:"output path to explain"`
}

// ExplainFileOutput is the result of the explain_file MCP tool.
type ExplainFileOutput struct {
	Path         string   `json:"path"`
	Found        bool     `json:"found"`
	Merger       string   `json:"merger,omitempty"`
	Digest       string   `json:"digest,omitempty"`
	RunID        string   `json:"runId,omitempty"`
	Contributors []string `json:"contributors,omitempty"`
}

// GetStatusInput is the input for the get_status MCP tool.
type GetStatusInput struct{}

// GetStatusOutput is the result of the get_status MCP tool.
type GetStatusOutput struct {
	Target string              `json:"target"`
	Clean  bool                `json:"clean"`
	Files  []status.FileStatus `json:"files"`
}
